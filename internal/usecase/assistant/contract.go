package assistant

import (
	"context"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/domain/prompt"
	"github.com/kailas-cloud/tourassist/internal/domain/search/result"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever finds the closest corpus entries.
type Retriever interface {
	Ready() error
	Retrieve(ctx context.Context, vector []float32, k int) ([]result.Result, error)
}

// Responder generates the final answer. It never fails: it falls back to a fixed text.
type Responder interface {
	Generate(ctx context.Context, p prompt.Payload) string
	Fallback() string
}

// HandoffSink forwards collected contacts to human support.
type HandoffSink interface {
	Submit(ctx context.Context, h conversation.Handoff) error
}
