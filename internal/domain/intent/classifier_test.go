package intent

import "testing"

func TestClassify_DefaultTable(t *testing.T) {
	c := NewClassifier(DefaultTable())

	tests := []struct {
		question string
		want     Intent
	}{
		{"xin chào", Greeting},
		{"Xin Chào!", Greeting},
		{"xin chao", Greeting},
		{"hello shop", Greeting},
		{"tôi muốn đặt tour riêng cho gia đình", PrivateTourHandoff},
		{"Công ty mình ở đâu vậy?", CompanyInfo},
		{"cho mình gặp nhân viên", ContactCollection},
		{"Tên tôi là Lan, số điện thoại 0901234567", ContactCollection},
		{"chào bạn, cho mình gặp nhân viên", ContactCollection},
		{"số điện thoại của công ty là gì?", CompanyInfo},
		{"cho mình xin sđt công ty", CompanyInfo},
		{"hotline bên bạn là số nào?", CompanyInfo},
		{"mình để lại số điện thoại nhé", ContactCollection},
		{"please call me back", ContactCollection},
		{"tour Hạ Long 3 ngày giá bao nhiêu?", None},
		{"", None},
		{"   ", None},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := c.Classify(tt.question); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.question, got, tt.want)
			}
		})
	}
}

func TestClassify_TokenBoundary(t *testing.T) {
	c := NewClassifier(DefaultTable())

	// "chi phí" folds to "chi phi", которое содержит "hi" как подстроку.
	if got := c.Classify("chi phí tour Sa Pa"); got != None {
		t.Errorf("expected None for substring-only match, got %s", got)
	}
	if got := c.Classify("this trip"); got != None {
		t.Errorf("expected None, got %s", got)
	}
}

func TestClassify_TableOrderWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Greeting, []string{"tour"}},
		{PrivateTourHandoff, []string{"tour riêng"}},
	})
	if got := c.Classify("tour riêng"); got != Greeting {
		t.Errorf("expected first rule to win, got %s", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(DefaultTable())
	q := "chào, tôi muốn thiết kế tour"
	first := c.Classify(q)
	for range 50 {
		if got := c.Classify(q); got != first {
			t.Fatalf("non-deterministic: %s vs %s", got, first)
		}
	}
	if first != PrivateTourHandoff {
		t.Errorf("expected private tour handoff, got %s", first)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Đà Lạt":        "da lat",
		"XIN CHÀO":      "xin chao",
		"Phú Quốc":      "phu quoc",
		"already plain": "already plain",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseAndString(t *testing.T) {
	for _, i := range []Intent{None, Greeting, CompanyInfo, PrivateTourHandoff, ContactCollection} {
		got, err := Parse(i.String())
		if err != nil || got != i {
			t.Errorf("Parse(%q) = %v, %v", i.String(), got, err)
		}
	}
	if _, err := Parse("booking"); err == nil {
		t.Error("expected error for unknown intent")
	}
	if !PrivateTourHandoff.Canned() || ContactCollection.Canned() || None.Canned() {
		t.Error("unexpected Canned() result")
	}
}
