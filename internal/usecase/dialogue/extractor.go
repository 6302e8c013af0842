package dialogue

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
)

// SlotExtractor recovers the contact slots from the full history, current question included.
// An ambiguous slot is reported as *domain.ExtractionAmbiguousError together with
// whatever was extracted with confidence.
type SlotExtractor interface {
	Extract(ctx context.Context, turns conversation.History) (conversation.SlotSet, error)
}

// FallbackExtractor uses Secondary when Primary fails for any reason other than ambiguity.
type FallbackExtractor struct {
	Primary   SlotExtractor
	Secondary SlotExtractor
	Logger    *zap.Logger
}

// Extract implements SlotExtractor.
func (f *FallbackExtractor) Extract(ctx context.Context, turns conversation.History) (conversation.SlotSet, error) {
	slots, err := f.Primary.Extract(ctx, turns)
	if err == nil || errors.Is(err, domain.ErrExtractionAmbiguous) {
		return slots, err
	}
	if f.Logger != nil {
		f.Logger.Warn("slot extractor failed, using fallback", zap.Int("turns", len(turns)), zap.Error(err))
	}
	return f.Secondary.Extract(ctx, turns)
}
