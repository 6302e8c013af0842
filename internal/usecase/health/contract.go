package health

import "context"

// CorpusChecker reports whether the corpus index can serve retrieval.
type CorpusChecker interface {
	Ready() error
}

// StorePinger checks KV store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks embedding or generation provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
