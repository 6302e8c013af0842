// Package dialogue is the contact-collection state machine.
// State is derived from history on every call; nothing is kept between requests.
package dialogue

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/domain/intent"
	"github.com/kailas-cloud/tourassist/internal/metrics"
)

// Input is one user turn routed to the dialogue.
type Input struct {
	Intent         intent.Intent
	History        conversation.History
	Question       string
	ConversationID string
}

// Outcome is the result of one step. Text is empty when the state is Interrupted.
type Outcome struct {
	State      State
	Text       string
	Slots      conversation.SlotSet
	Handoff    *conversation.Handoff
	Transition Transition
}

// Dialogue is safe for concurrent use.
type Dialogue struct {
	extractor SlotExtractor
	pattern   *PatternExtractor
	tmpl      Templates
	openers   map[string]struct{}
	logger    *zap.Logger
}

// Option configures a Dialogue.
type Option func(*Dialogue)

// WithExtractor replaces the default pattern extractor.
func WithExtractor(x SlotExtractor) Option {
	return func(d *Dialogue) { d.extractor = x }
}

// WithTemplates overrides texts; empty fields keep defaults.
func WithTemplates(t Templates) Option {
	return func(d *Dialogue) { d.tmpl = t.merge(DefaultTemplates()) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dialogue) { d.logger = l }
}

// New creates a dialogue.
func New(opts ...Option) *Dialogue {
	d := &Dialogue{tmpl: DefaultTemplates(), logger: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	d.pattern = NewPatternExtractor(d.tmpl.namePrompts()...)
	if d.extractor == nil {
		d.extractor = d.pattern
	}
	d.openers = make(map[string]struct{}, len(d.tmpl.Openers))
	for _, s := range d.tmpl.Openers {
		if s = strings.TrimSpace(s); s != "" {
			d.openers[s] = struct{}{}
		}
	}
	return d
}

// Templates returns the effective texts.
func (d *Dialogue) Templates() Templates { return d.tmpl }

// Pattern returns the built-in extractor, e.g. as a fallback for an LLM extractor.
func (d *Dialogue) Pattern() *PatternExtractor { return d.pattern }

// Current derives the pre-turn state from the last assistant turn.
func (d *Dialogue) Current(h conversation.History) State {
	last, ok := h.LastAssistant()
	if !ok {
		return Start
	}
	switch strings.TrimSpace(last) {
	case strings.TrimSpace(d.tmpl.AskName), strings.TrimSpace(d.tmpl.AskNameAgain):
		return NeedName
	case strings.TrimSpace(d.tmpl.AskPhone), strings.TrimSpace(d.tmpl.AskPhoneAgain):
		return NeedPhone
	}
	if d.tmpl.isConfirmation(last) {
		return BothCollected
	}
	return Start
}

// Open reports whether the last assistant turn left a contact exchange open.
func (d *Dialogue) Open(h conversation.History) bool {
	switch d.Current(h) {
	case NeedName, NeedPhone:
		return true
	}
	last, ok := h.LastAssistant()
	if !ok {
		return false
	}
	_, opener := d.openers[strings.TrimSpace(last)]
	return opener
}

// Continues reports whether question continues an open exchange.
// Control flow never depends on the configured extractor: only local patterns decide.
func (d *Dialogue) Continues(h conversation.History, question string) bool {
	if !d.Open(h) {
		return false
	}
	last, _ := h.LastAssistant()
	return d.pattern.engages(question, last)
}

// Step runs one transition. The only error returned is ctx expiry.
func (d *Dialogue) Step(ctx context.Context, in Input) (Outcome, error) {
	from := d.Current(in.History)

	if in.Intent != intent.ContactCollection && !d.Continues(in.History, in.Question) {
		return d.finish(from, Outcome{State: Interrupted}), nil
	}

	slots, err := d.extractor.Extract(ctx, in.History.With(in.Question))
	var amb *domain.ExtractionAmbiguousError
	switch {
	case errors.As(err, &amb):
		if amb.Slot == SlotName && !slots.HasName() {
			return d.finish(from, Outcome{State: NeedName, Text: d.tmpl.AskNameAgain, Slots: slots}), nil
		}
		if amb.Slot == SlotPhone && !slots.HasPhone() {
			return d.finish(from, Outcome{State: NeedPhone, Text: d.tmpl.AskPhoneAgain, Slots: slots}), nil
		}
	case err != nil:
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		d.logger.Warn("slot extraction failed", zap.Int("turns", len(in.History)+1), zap.Error(err))
	}

	switch {
	case !slots.HasName():
		return d.finish(from, Outcome{State: NeedName, Text: d.tmpl.AskName, Slots: slots}), nil
	case !slots.HasPhone():
		return d.finish(from, Outcome{State: NeedPhone, Text: d.tmpl.AskPhone, Slots: slots}), nil
	}

	return d.finish(from, Outcome{
		State: BothCollected,
		Text:  d.tmpl.Confirm(slots.Name, slots.Phone),
		Slots: slots,
		Handoff: &conversation.Handoff{
			Name:           slots.Name,
			Phone:          slots.Phone,
			ConversationID: in.ConversationID,
		},
	}), nil
}

func (d *Dialogue) finish(from State, out Outcome) Outcome {
	out.Transition = Transition{From: from, To: out.State}
	metrics.DialogueTransitionsTotal.WithLabelValues(from.String(), out.State.String()).Inc()
	return out
}
