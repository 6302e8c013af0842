package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/usecase/provider"
)

// DefaultMaxAPIBatchSize: максимальный размер батча для одного API-запроса.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps Embedder with the shared provider gate, retries and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	gate     *provider.Gate
	retry    provider.RetryPolicy
	logger   *zap.Logger
}

// Options configures an InstrumentedEmbedder. A nil Gate means calls are not bounded.
type Options struct {
	Provider string
	Model    string
	Gate     *provider.Gate
	Retry    provider.RetryPolicy
	Logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with limits, retries and observability.
func NewInstrumentedEmbedder(inner domain.Embedder, opts Options) *InstrumentedEmbedder {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: opts.Provider,
		model:    opts.Model,
		gate:     opts.Gate,
		retry:    opts.Retry,
		logger:   l,
	}
}

// Embed delegates to the inner embedder through the gate, retrying transient failures.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, attempts, err := provider.Retry(ctx, p.retry, "embed",
		func(ctx context.Context) (domain.EmbeddingResult, error) {
			return call(ctx, p.gate, func(ctx context.Context) (domain.EmbeddingResult, error) {
				return p.inner.Embed(ctx, text)
			})
		}, p.notify("embed", len([]rune(text))))

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("text_chars", len([]rune(text))),
			zap.Int("attempts", attempts),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("attempts", attempts),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed разбивает тексты на sub-batches и отправляет их по очереди.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *InstrumentedEmbedder) embedChunked(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult

	for offset := 0; offset < len(texts); offset += DefaultMaxAPIBatchSize {
		end := min(offset+DefaultMaxAPIBatchSize, len(texts))
		chunk := texts[offset:end]

		chunkResult, attempts, err := provider.Retry(ctx, p.retry, "embed",
			func(ctx context.Context) (domain.BatchEmbeddingResult, error) {
				return call(ctx, p.gate, func(ctx context.Context) (domain.BatchEmbeddingResult, error) {
					return p.embedInner(ctx, chunk)
				})
			}, p.notify("batch_embed", len(chunk)))
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}

		out.Embeddings = append(out.Embeddings, chunkResult.Embeddings...)
		out.PromptTokens += chunkResult.PromptTokens
		out.TotalTokens += chunkResult.TotalTokens
	}

	return out, nil
}

func (p *InstrumentedEmbedder) embedInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, p.inner, texts)
}

func (p *InstrumentedEmbedder) notify(op string, size int) provider.Notify {
	return func(attempt int, err error, next time.Duration) {
		p.logger.Warn("Embedding request retry",
			zap.String("provider", p.provider),
			zap.String("op", op),
			zap.Int("size", size),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}
}

func call[T any](ctx context.Context, g *provider.Gate, fn func(context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	return provider.Call(ctx, g, fn)
}
