package search

import "github.com/kailas-cloud/tourassist/internal/domain/corpus"

// Corpus is the read-only view of the index the retriever scans.
type Corpus interface {
	Len() int
	Dim() int
	At(i int) corpus.Entry
	Ready() error
}
