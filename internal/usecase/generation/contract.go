package generation

import (
	"context"

	"github.com/kailas-cloud/tourassist/internal/domain"
)

// Generator produces a completion for chat messages.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}
