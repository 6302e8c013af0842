package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/search/result"
)

// Service is the similarity retriever: exact cosine over every corpus entry.
type Service struct {
	corpus Corpus
}

// New creates a retriever over an immutable corpus. A nil corpus is never ready.
func New(c Corpus) *Service {
	return &Service{corpus: c}
}

// Ready reports whether the corpus can serve retrieval.
func (s *Service) Ready() error {
	if s.corpus == nil {
		return domain.ErrCorpusUnavailable
	}
	return s.corpus.Ready()
}

// Size returns the number of indexed entries.
func (s *Service) Size() int {
	if s.corpus == nil {
		return 0
	}
	return s.corpus.Len()
}

// Retrieve returns up to k entries by descending cosine similarity.
// Ties keep corpus order. Scores are clamped to [-1, 1].
func (s *Service) Retrieve(ctx context.Context, vector []float32, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, domain.NewValidation(fmt.Sprintf("k must be positive, got %d", k))
	}
	if err := s.Ready(); err != nil {
		return nil, err
	}
	if len(vector) != s.corpus.Dim() {
		return nil, fmt.Errorf("query: %w: got %d, want %d",
			domain.ErrVectorDimMismatch, len(vector), s.corpus.Dim())
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	qnorm := norm(vector)
	n := s.corpus.Len()
	scored := make([]result.Result, n)
	for i := range n {
		e := s.corpus.At(i)
		scored[i] = result.New(e, cosine(vector, qnorm, e.Vector()))
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score() > scored[b].Score()
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosine считает в float64; нулевой вектор даёт 0.
func cosine(q []float32, qnorm float64, v []float32) float64 {
	vnorm := norm(v)
	if qnorm == 0 || vnorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return clamp(dot / (qnorm * vnorm))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func clamp(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	case math.IsNaN(x):
		return 0
	}
	return x
}
