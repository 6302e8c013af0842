package result

import "github.com/kailas-cloud/tourassist/internal/domain/corpus"

// Result is a single retrieval hit: a corpus entry with its cosine score.
type Result struct {
	entry corpus.Entry
	score float64
}

// New creates a retrieval result.
func New(entry corpus.Entry, score float64) Result {
	return Result{entry: entry, score: score}
}

// Entry returns the matched corpus entry.
func (r Result) Entry() corpus.Entry { return r.entry }

// ID returns the entry identifier.
func (r Result) ID() string { return r.entry.ID() }

// Title returns the entry title.
func (r Result) Title() string { return r.entry.Title() }

// Description returns the entry description.
func (r Result) Description() string { return r.entry.Description() }

// Score returns the cosine similarity in [-1, 1].
func (r Result) Score() float64 { return r.score }
