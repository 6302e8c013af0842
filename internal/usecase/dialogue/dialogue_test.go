package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/domain/intent"
)

const opener = "Dạ, bên em nhận thiết kế tour riêng theo yêu cầu. Anh/chị để lại tên và số điện thoại, nhân viên sẽ liên hệ tư vấn ạ."

func user(text string) conversation.Turn {
	return conversation.Turn{Sender: conversation.SenderUser, Text: text}
}

func bot(text string) conversation.Turn {
	return conversation.Turn{Sender: conversation.SenderAssistant, Text: text}
}

func newTestDialogue(opts ...Option) *Dialogue {
	t := DefaultTemplates()
	t.Openers = []string{opener}
	return New(append([]Option{WithTemplates(t)}, opts...)...)
}

func TestStep_EmptyHistoryAsksNameOnly(t *testing.T) {
	d := newTestDialogue()

	out, err := d.Step(context.Background(), Input{
		Intent:   intent.ContactCollection,
		Question: "cho mình gặp nhân viên tư vấn",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != NeedName {
		t.Fatalf("expected NeedName, got %s", out.State)
	}
	if out.Text != d.Templates().AskName {
		t.Errorf("expected name prompt, got %q", out.Text)
	}
	if strings.Contains(strings.ToLower(out.Text), "điện thoại") {
		t.Error("name prompt must not ask for the phone")
	}
	if out.Transition != (Transition{From: Start, To: NeedName}) {
		t.Errorf("unexpected transition %+v", out.Transition)
	}
}

func TestStep_BothSlotsInOneTurn(t *testing.T) {
	d := newTestDialogue()

	out, err := d.Step(context.Background(), Input{
		Intent:         intent.ContactCollection,
		Question:       "Tên tôi là Lan, số điện thoại 0901234567",
		ConversationID: "conv-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != BothCollected {
		t.Fatalf("expected BothCollected, got %s (%q)", out.State, out.Text)
	}
	if !strings.Contains(out.Text, "Lan") || !strings.Contains(out.Text, "0901234567") {
		t.Errorf("confirmation must echo slots, got %q", out.Text)
	}
	if out.Handoff == nil {
		t.Fatal("expected handoff")
	}
	want := conversation.Handoff{Name: "Lan", Phone: "0901234567", ConversationID: "conv-1"}
	if *out.Handoff != want {
		t.Errorf("handoff = %+v, want %+v", *out.Handoff, want)
	}
	if out.Transition.From != Start {
		t.Errorf("expected jump from Start, got %s", out.Transition.From)
	}
}

func TestStep_OneTurnContactPhrasings(t *testing.T) {
	d := newTestDialogue()

	tests := []struct {
		question  string
		wantState State
		wantName  string
		wantPhone string
	}{
		{"please call me back at 0901234567", NeedName, "", "0901234567"},
		{"chị tên Lan, sđt 0901234567", BothCollected, "Lan", "0901234567"},
		{"Tên tôi là Lan, sđt 0901234567 2 người lớn", BothCollected, "Lan", "0901234567"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			out, err := d.Step(context.Background(), Input{
				Intent:         intent.ContactCollection,
				Question:       tt.question,
				ConversationID: "conv-1",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.State != tt.wantState {
				t.Fatalf("state = %s, want %s (%q)", out.State, tt.wantState, out.Text)
			}
			if out.Slots.Name != tt.wantName || out.Slots.Phone != tt.wantPhone {
				t.Errorf("slots = %+v", out.Slots)
			}
			switch tt.wantState {
			case NeedName:
				if out.Text != d.Templates().AskName || out.Handoff != nil {
					t.Errorf("expected plain name prompt without handoff, got %q", out.Text)
				}
			case BothCollected:
				if out.Handoff == nil || out.Handoff.Name != tt.wantName || out.Handoff.Phone != tt.wantPhone {
					t.Errorf("unexpected handoff %+v", out.Handoff)
				}
			}
		})
	}
}

func TestStep_ChiTenReplyAfterNamePrompt(t *testing.T) {
	d := newTestDialogue()

	out, err := d.Step(context.Background(), Input{
		Intent:   intent.None,
		History:  conversation.History{user("cho mình gặp nhân viên"), bot(d.Templates().AskName)},
		Question: "chị tên Lan",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != NeedPhone || out.Slots.Name != "Lan" {
		t.Errorf("expected NeedPhone with name Lan, got %s %+v", out.State, out.Slots)
	}
}

func TestStep_SlotBySlot(t *testing.T) {
	d := newTestDialogue()
	tmpl := d.Templates()
	ctx := context.Background()

	h := conversation.History{user("cho mình gặp nhân viên"), bot(tmpl.AskName)}
	out, err := d.Step(ctx, Input{Intent: intent.None, History: h, Question: "Lan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != NeedPhone || out.Text != tmpl.AskPhone {
		t.Fatalf("expected NeedPhone, got %s %q", out.State, out.Text)
	}
	if out.Slots.Name != "Lan" {
		t.Errorf("expected name Lan, got %q", out.Slots.Name)
	}
	if out.Transition != (Transition{From: NeedName, To: NeedPhone}) {
		t.Errorf("unexpected transition %+v", out.Transition)
	}

	h = append(h, user("Lan"), bot(out.Text))
	out, err = d.Step(ctx, Input{Intent: intent.None, History: h, Question: "0901 234 567"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != BothCollected {
		t.Fatalf("expected BothCollected, got %s %q", out.State, out.Text)
	}
	if !strings.Contains(out.Text, "0901 234 567") {
		t.Errorf("phone must be echoed verbatim, got %q", out.Text)
	}

	h = append(h, user("0901 234 567"), bot(out.Text))
	if got := d.Current(h); got != BothCollected {
		t.Errorf("Current after confirmation = %s", got)
	}
}

func TestStep_UnrelatedQuestionInterrupts(t *testing.T) {
	d := newTestDialogue()
	h := conversation.History{user("gặp nhân viên"), bot(d.Templates().AskName)}

	out, err := d.Step(context.Background(), Input{
		Intent: intent.None, History: h, Question: "tour Đà Lạt giá bao nhiêu?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != Interrupted || out.Text != "" {
		t.Errorf("expected Interrupted with no text, got %s %q", out.State, out.Text)
	}
	if out.Transition.From != NeedName {
		t.Errorf("expected from NeedName, got %s", out.Transition.From)
	}
}

func TestStep_NoOpenExchangeInterrupts(t *testing.T) {
	d := newTestDialogue()
	out, _ := d.Step(context.Background(), Input{Intent: intent.None, Question: "Lan 0901234567"})
	if out.State != Interrupted {
		t.Errorf("expected Interrupted, got %s", out.State)
	}
}

func TestStep_AmbiguousPhoneReasks(t *testing.T) {
	d := newTestDialogue()
	tmpl := d.Templates()
	h := conversation.History{
		user("gặp nhân viên"), bot(tmpl.AskName),
		user("Lan"), bot(tmpl.AskPhone),
	}

	out, err := d.Step(context.Background(), Input{Intent: intent.None, History: h, Question: "số của tôi là 12345678"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != NeedPhone || out.Text != tmpl.AskPhoneAgain {
		t.Errorf("expected phone re-ask, got %s %q", out.State, out.Text)
	}
}

func TestStep_AmbiguousNameReasks(t *testing.T) {
	d := newTestDialogue()
	out, _ := d.Step(context.Background(), Input{Intent: intent.ContactCollection, Question: "tên tôi là"})
	if out.State != NeedName || out.Text != d.Templates().AskNameAgain {
		t.Errorf("expected name re-ask, got %s %q", out.State, out.Text)
	}
}

func TestStep_OpenerContinuation(t *testing.T) {
	d := newTestDialogue()
	h := conversation.History{user("tôi muốn đặt tour riêng cho gia đình"), bot(opener)}

	out, err := d.Step(context.Background(), Input{Intent: intent.None, History: h, Question: "0912345678"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != NeedName {
		t.Fatalf("expected NeedName, got %s", out.State)
	}
	if out.Slots.Phone != "0912345678" {
		t.Errorf("phone must be kept, got %q", out.Slots.Phone)
	}
}

func TestStep_Deterministic(t *testing.T) {
	d := newTestDialogue()
	in := Input{
		Intent:   intent.None,
		History:  conversation.History{user("gặp nhân viên"), bot(d.Templates().AskName)},
		Question: "Nguyễn Văn An",
	}
	first, _ := d.Step(context.Background(), in)
	second, _ := d.Step(context.Background(), in)
	if first.State != second.State || first.Text != second.Text || first.Slots != second.Slots {
		t.Errorf("steps differ: %+v vs %+v", first, second)
	}
	if first.Slots.Name != "Nguyễn Văn An" {
		t.Errorf("expected full name, got %q", first.Slots.Name)
	}
}

type failingExtractor struct{ calls int }

func (f *failingExtractor) Extract(context.Context, conversation.History) (conversation.SlotSet, error) {
	f.calls++
	return conversation.SlotSet{}, errors.New("provider down")
}

func TestStep_ExtractorFallback(t *testing.T) {
	primary := &failingExtractor{}
	d := newTestDialogue()
	d = newTestDialogue(WithExtractor(&FallbackExtractor{Primary: primary, Secondary: d.Pattern()}))

	out, err := d.Step(context.Background(), Input{
		Intent:   intent.ContactCollection,
		Question: "Tên tôi là Lan, số điện thoại 0901234567",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("expected primary to be tried once, got %d", primary.calls)
	}
	if out.State != BothCollected {
		t.Errorf("expected BothCollected via fallback, got %s", out.State)
	}
}

func TestStep_ExtractorErrorTreatedAsEmpty(t *testing.T) {
	d := newTestDialogue(WithExtractor(&failingExtractor{}))
	out, err := d.Step(context.Background(), Input{Intent: intent.ContactCollection, Question: "gọi lại cho tôi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != NeedName {
		t.Errorf("expected NeedName, got %s", out.State)
	}
}

func TestCurrent(t *testing.T) {
	d := newTestDialogue()
	tmpl := d.Templates()
	tests := []struct {
		name string
		h    conversation.History
		want State
	}{
		{"empty", nil, Start},
		{"ask name", conversation.History{bot(tmpl.AskName)}, NeedName},
		{"ask name again", conversation.History{bot(tmpl.AskNameAgain)}, NeedName},
		{"ask phone", conversation.History{bot(tmpl.AskPhone), user("?")}, NeedPhone},
		{"confirmation", conversation.History{bot(tmpl.Confirm("Lan", "0901234567"))}, BothCollected},
		{"rag answer", conversation.History{bot("Cảm ơn bạn đã hỏi, tour Huế có giá 2 triệu.")}, Start},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Current(tt.h); got != tt.want {
				t.Errorf("Current() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWithTemplates_KeepsDefaultsForEmptyFields(t *testing.T) {
	d := New(WithTemplates(Templates{AskName: "Tên bạn là gì?"}))
	if d.Templates().AskName != "Tên bạn là gì?" {
		t.Errorf("override lost")
	}
	if d.Templates().AskPhone != DefaultTemplates().AskPhone {
		t.Errorf("default lost")
	}
}

func TestStateString(t *testing.T) {
	if BothCollected.String() != "both_collected" || State(42).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
