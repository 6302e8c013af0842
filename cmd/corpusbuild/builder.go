package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tourassist/internal/domain"
	corpusrepo "github.com/kailas-cloud/tourassist/internal/repository/corpus"
)

// builder embeds tours in parallel chunks and keeps source order in the output.
type builder struct {
	embedder  domain.BatchEmbedder
	batchSize int
	workers   int
	metrics   *buildMetrics
	logger    *zap.Logger
}

// Build validates tours and returns corpus records in input order.
// Tours without ID or title are skipped; duplicate IDs fail the build.
func (b *builder) Build(ctx context.Context, tours []tour) ([]corpusrepo.Record, error) {
	valid := make([]tour, 0, len(tours))
	seen := make(map[string]struct{}, len(tours))
	for i, t := range tours {
		t.ID, t.Title = strings.TrimSpace(t.ID), strings.TrimSpace(t.Title)
		if t.ID == "" || t.Title == "" {
			b.logger.Warn("skipping tour without id or title", zap.Int("position", i))
			b.metrics.skipped.Inc()
			continue
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tour id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		valid = append(valid, t)
	}

	batchSize := max(b.batchSize, 1)
	records := make([]corpusrepo.Record, len(valid))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.workers, 1))
	for lo := 0; lo < len(valid); lo += batchSize {
		hi := min(lo+batchSize, len(valid))
		g.Go(func() error {
			chunk := valid[lo:hi]
			texts := make([]string, len(chunk))
			for i, t := range chunk {
				texts[i] = t.embedText()
			}

			start := time.Now()
			res, err := b.embedder.BatchEmbed(gctx, texts)
			b.metrics.batchDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				b.metrics.batches.WithLabelValues("error").Inc()
				return fmt.Errorf("embed tours [%d:%d]: %w", lo, hi, err)
			}
			if len(res.Embeddings) != len(chunk) {
				b.metrics.batches.WithLabelValues("error").Inc()
				return fmt.Errorf("embed tours [%d:%d]: got %d vectors", lo, hi, len(res.Embeddings))
			}
			b.metrics.batches.WithLabelValues("ok").Inc()
			b.metrics.tokens.Add(float64(res.TotalTokens))

			for i, t := range chunk {
				records[lo+i] = corpusrepo.Record{
					ID:          t.ID,
					Title:       t.Title,
					Description: t.Description,
					Vector:      res.Embeddings[i],
				}
			}
			n := done.Add(int64(len(chunk)))
			b.metrics.embedded.Add(float64(len(chunk)))
			b.logger.Info("batch embedded", zap.Int64("done", n), zap.Int("total", len(valid)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per batch
	}
	return records, nil
}
