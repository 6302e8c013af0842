package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed caller input. Единственная ошибка, которая выходит за пределы ассистента.
	ErrValidation = errors.New("validation failed")
	// ErrCorpusUnavailable signals an empty or missing corpus index.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrProviderError signals an embedding or generation provider failure.
	ErrProviderError = errors.New("provider error")
	// ErrExtractionAmbiguous signals that a slot value could not be extracted with confidence.
	ErrExtractionAmbiguous = errors.New("extraction ambiguous")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrHandoffFailed signals that the support handoff sink rejected a submission.
	ErrHandoffFailed = errors.New("handoff failed")
)

// ProviderError wraps ErrProviderError with the upstream details needed for retry decisions.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	msg := ErrProviderError.Error() + ": " + e.Provider
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderError}
	}
	return []error{ErrProviderError, e.Err}
}

// IsTransient reports whether err is a provider failure worth retrying.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// ExtractionAmbiguousError wraps ErrExtractionAmbiguous with the slot that needs re-asking.
type ExtractionAmbiguousError struct {
	Slot string
}

func (e *ExtractionAmbiguousError) Error() string {
	return fmt.Sprintf("%s: slot %q", ErrExtractionAmbiguous.Error(), e.Slot)
}

func (e *ExtractionAmbiguousError) Unwrap() error { return ErrExtractionAmbiguous }

// NewExtractionAmbiguous creates an ambiguity error for the given slot.
func NewExtractionAmbiguous(slot string) error {
	return &ExtractionAmbiguousError{Slot: slot}
}

// NewValidation wraps ErrValidation with a human-readable reason.
func NewValidation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
