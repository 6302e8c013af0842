package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
)

type fakeCompleter struct {
	out     string
	err     error
	lastReq domain.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.lastReq = req
	return f.out, f.err
}

func TestLLMExtractor(t *testing.T) {
	turns := conversation.History{
		bot("Anh/chị cho em xin tên ạ?"),
		user("Mình là Lan, gọi mình qua 0901234567 nhé"),
	}

	tests := []struct {
		name      string
		out       string
		wantName  string
		wantPhone string
		wantAmb   string
		wantErr   bool
	}{
		{"confident", `{"name":"Lan","phone":"0901234567","name_confidence":0.95,"phone_confidence":0.9}`, "Lan", "0901234567", "", false},
		{"fenced", "```json\n{\"name\":\"Lan\",\"name_confidence\":0.9}\n```", "Lan", "", "", false},
		{"low confidence", `{"name":"Lan","phone":"0901234567","name_confidence":0.3,"phone_confidence":0.9}`, "", "0901234567", SlotName, false},
		{"name not verbatim", `{"name":"Nguyễn Lan","name_confidence":0.9}`, "", "", SlotName, false},
		{"invalid phone", `{"name":"Lan","phone":"12345","name_confidence":0.9,"phone_confidence":0.9}`, "Lan", "", SlotPhone, false},
		{"nothing", `{"name":"","phone":""}`, "", "", "", false},
		{"not json", `Tên khách là Lan`, "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{out: tt.out}
			slots, err := NewLLMExtractor(llm, 0.7).Extract(context.Background(), turns)

			if !llm.lastReq.JSON {
				t.Error("expected JSON mode")
			}
			if slots.Name != tt.wantName || slots.Phone != tt.wantPhone {
				t.Errorf("slots = %+v, want name=%q phone=%q", slots, tt.wantName, tt.wantPhone)
			}
			var amb *domain.ExtractionAmbiguousError
			switch {
			case tt.wantErr:
				if err == nil || errors.Is(err, domain.ErrExtractionAmbiguous) {
					t.Errorf("expected decode error, got %v", err)
				}
			case tt.wantAmb != "":
				if !errors.As(err, &amb) || amb.Slot != tt.wantAmb {
					t.Errorf("expected ambiguous %s, got %v", tt.wantAmb, err)
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLLMExtractor_ProviderErrorFallsBack(t *testing.T) {
	llm := &fakeCompleter{err: &domain.ProviderError{Provider: "test", StatusCode: 500, Transient: true}}
	x := &FallbackExtractor{
		Primary:   NewLLMExtractor(llm, 0.7),
		Secondary: NewPatternExtractor(),
	}

	slots, err := x.Extract(context.Background(), conversation.History{user("tên tôi là Lan, 0901234567")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots.Name != "Lan" || slots.Phone != "0901234567" {
		t.Errorf("unexpected slots %+v", slots)
	}
}

func TestFallbackExtractor_AmbiguityIsNotFailure(t *testing.T) {
	llm := &fakeCompleter{out: `{"name":"Lan","name_confidence":0.1}`}
	secondary := &failingExtractor{}
	x := &FallbackExtractor{Primary: NewLLMExtractor(llm, 0.7), Secondary: secondary}

	_, err := x.Extract(context.Background(), conversation.History{user("Lan")})
	if !errors.Is(err, domain.ErrExtractionAmbiguous) {
		t.Fatalf("expected ambiguity, got %v", err)
	}
	if secondary.calls != 0 {
		t.Error("secondary must not run on ambiguity")
	}
}
