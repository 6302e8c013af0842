package conversation

import "testing"

func TestHistory_Validate(t *testing.T) {
	ok := History{{SenderUser, "xin chào"}, {SenderAssistant, "Chào bạn!"}}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := History{{Sender("bot"), "hi"}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown sender")
	}
}

func TestHistory_LastAssistant(t *testing.T) {
	h := History{
		{SenderAssistant, "first"},
		{SenderUser, "q"},
		{SenderAssistant, "second"},
		{SenderUser, "q2"},
	}
	got, ok := h.LastAssistant()
	if !ok || got != "second" {
		t.Errorf("LastAssistant() = %q, %v", got, ok)
	}
	if _, ok := (History{{SenderUser, "x"}}).LastAssistant(); ok {
		t.Error("expected no assistant turn")
	}
}

func TestHistory_Tail(t *testing.T) {
	h := History{{SenderUser, "1"}, {SenderUser, "2"}, {SenderUser, "3"}}
	if got := h.Tail(2); len(got) != 2 || got[0].Text != "2" {
		t.Errorf("Tail(2) = %v", got)
	}
	if got := h.Tail(0); len(got) != 3 {
		t.Errorf("Tail(0) = %v", got)
	}
}

func TestHistory_WithDoesNotAlias(t *testing.T) {
	h := make(History, 1, 4)
	h[0] = Turn{SenderUser, "a"}
	x := h.With("b")
	y := h.With("c")
	if x[1].Text != "b" || y[1].Text != "c" {
		t.Errorf("With() aliased: %v %v", x, y)
	}
}

func TestSlotSet(t *testing.T) {
	tests := []struct {
		name     string
		s        SlotSet
		complete bool
	}{
		{"empty", SlotSet{}, false},
		{"name only", SlotSet{Name: "Lan"}, false},
		{"blank name", SlotSet{Name: " ", Phone: "0901234567"}, false},
		{"both", SlotSet{Name: "Lan", Phone: "0901234567"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Complete(); got != tt.complete {
				t.Errorf("Complete() = %v, want %v", got, tt.complete)
			}
		})
	}
}
