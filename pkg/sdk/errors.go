package tourassist

import "github.com/kailas-cloud/tourassist/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation        = domain.ErrValidation
	ErrCorpusUnavailable = domain.ErrCorpusUnavailable
	ErrProviderError     = domain.ErrProviderError
	ErrVectorDimMismatch = domain.ErrVectorDimMismatch
	ErrHandoffFailed     = domain.ErrHandoffFailed
)
