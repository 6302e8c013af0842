// Package generation turns a prompt payload into an answer, never failing the caller.
package generation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/prompt"
	"github.com/kailas-cloud/tourassist/internal/metrics"
	"github.com/kailas-cloud/tourassist/internal/usecase/provider"
)

// DefaultFallback is returned when the provider cannot produce an answer.
const DefaultFallback = "Dịch vụ tạm thời không khả dụng, vui lòng thử lại sau hoặc để lại số điện thoại để nhân viên liên hệ với bạn."

const opGenerate = "generate"

// Responder calls the generation provider through the shared gate with retries.
type Responder struct {
	gen      Generator
	gate     *provider.Gate
	retry    provider.RetryPolicy
	fallback string
	provider string
	model    string
	logger   *zap.Logger
}

// Options configures a Responder.
type Options struct {
	Provider string
	Model    string
	Gate     *provider.Gate
	Retry    provider.RetryPolicy
	Fallback string
	Logger   *zap.Logger
}

// New creates a responder.
func New(gen Generator, opts Options) *Responder {
	r := &Responder{
		gen:      gen,
		gate:     opts.Gate,
		retry:    opts.Retry,
		fallback: opts.Fallback,
		provider: opts.Provider,
		model:    opts.Model,
		logger:   opts.Logger,
	}
	if r.fallback == "" {
		r.fallback = DefaultFallback
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Fallback returns the fixed text used when generation fails.
func (r *Responder) Fallback() string { return r.fallback }

// Generate returns the provider answer, or the fallback text after retries are exhausted,
// a permanent provider error or ctx expiry.
func (r *Responder) Generate(ctx context.Context, p prompt.Payload) string {
	text, _ := r.Complete(ctx, domain.CompletionRequest{Messages: p.Messages()})
	if text == "" {
		return r.fallback
	}
	return text
}

// Complete runs one request through the gate and retry policy. Errors are logged and returned;
// the prompt text itself is never logged.
func (r *Responder) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	start := time.Now()
	chars := req.PromptChars()

	res, attempts, err := provider.Retry(ctx, r.retry, opGenerate,
		func(ctx context.Context) (domain.Completion, error) {
			if r.gate == nil {
				return r.gen.Complete(ctx, req)
			}
			return provider.Call(ctx, r.gate, func(ctx context.Context) (domain.Completion, error) {
				return r.gen.Complete(ctx, req)
			})
		},
		func(attempt int, err error, next time.Duration) {
			r.logger.Warn("generation attempt failed",
				zap.String("provider", r.provider),
				zap.String("model", r.model),
				zap.Int("prompt_chars", chars),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		})
	if err != nil {
		metrics.ProviderFallbacksTotal.WithLabelValues(opGenerate).Inc()
		r.logger.Error("generation failed, using fallback",
			zap.String("provider", r.provider),
			zap.String("model", r.model),
			zap.Int("prompt_chars", chars),
			zap.Int("attempt", attempts),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	r.logger.Debug("generation completed",
		zap.String("provider", r.provider),
		zap.Int("prompt_chars", chars),
		zap.Int("attempt", attempts),
		zap.Int("completion_tokens", res.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return res.Text, nil
}
