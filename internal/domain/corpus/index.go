package corpus

import (
	"fmt"

	"github.com/kailas-cloud/tourassist/internal/domain"
)

// Index is the read-only corpus built once at startup.
// Safe for concurrent reads; there is no mutation API.
type Index struct {
	entries []Entry
	dim     int
}

// NewIndex builds an index. All entries must share one dimension and have unique IDs.
// Zero entries is allowed: such an index is simply not ready.
func NewIndex(entries []Entry) (*Index, error) {
	idx := &Index{entries: make([]Entry, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Dim() == 0 {
			return nil, fmt.Errorf("entry [%d]: empty vector", i)
		}
		if idx.dim == 0 {
			idx.dim = e.Dim()
		}
		if e.Dim() != idx.dim {
			return nil, fmt.Errorf("entry %q: %w: got %d, want %d",
				e.ID(), domain.ErrVectorDimMismatch, e.Dim(), idx.dim)
		}
		if _, dup := seen[e.ID()]; dup {
			return nil, fmt.Errorf("entry %q: duplicate ID", e.ID())
		}
		seen[e.ID()] = struct{}{}
		idx.entries[i] = e
	}
	return idx, nil
}

// Len returns the number of entries. Nil-safe.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Dim returns the shared vector dimension, 0 for an empty index.
func (x *Index) Dim() int {
	if x == nil {
		return 0
	}
	return x.dim
}

// At returns the i-th entry in corpus order.
func (x *Index) At(i int) Entry { return x.entries[i] }

// Ready reports whether the index can serve retrieval.
func (x *Index) Ready() error {
	if x.Len() == 0 {
		return domain.ErrCorpusUnavailable
	}
	return nil
}
