package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
)

const extractInstruction = `Bạn trích xuất thông tin liên hệ của khách hàng từ đoạn hội thoại.
Chỉ trả về một đối tượng JSON: {"name": "", "phone": "", "name_confidence": 0, "phone_confidence": 0}.
- name, phone: giữ nguyên đúng cách khách đã viết; để chuỗi rỗng nếu khách chưa cung cấp.
- *_confidence: từ 0 đến 1, mức chắc chắn rằng khách thực sự đã cung cấp giá trị đó.
Không suy đoán, không tự thêm thông tin.`

// Completer runs one chat completion. generation.Responder satisfies it.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// LLMExtractor asks the generation provider to extract slots in JSON mode.
// Values must occur verbatim in user turns; low-confidence values are ambiguous.
type LLMExtractor struct {
	llm           Completer
	minConfidence float64
}

// NewLLMExtractor creates an LLM-backed extractor.
func NewLLMExtractor(llm Completer, minConfidence float64) *LLMExtractor {
	return &LLMExtractor{llm: llm, minConfidence: minConfidence}
}

type extraction struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	NameConfidence  float64 `json:"name_confidence"`
	PhoneConfidence float64 `json:"phone_confidence"`
}

// Extract implements SlotExtractor.
func (x *LLMExtractor) Extract(ctx context.Context, turns conversation.History) (conversation.SlotSet, error) {
	var transcript, userText strings.Builder
	for _, t := range turns {
		who := "trợ lý"
		if t.Sender == conversation.SenderUser {
			who = "khách"
			userText.WriteString(t.Text)
			userText.WriteByte('\n')
		}
		fmt.Fprintf(&transcript, "%s: %s\n", who, t.Text)
	}

	raw, err := x.llm.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: extractInstruction},
			{Role: domain.RoleUser, Content: transcript.String()},
		},
		JSON: true,
	})
	if err != nil {
		return conversation.SlotSet{}, fmt.Errorf("llm extract: %w", err)
	}

	var ex extraction
	if err := json.Unmarshal([]byte(stripFence(raw)), &ex); err != nil {
		return conversation.SlotSet{}, fmt.Errorf("llm extract: decode: %w", err)
	}

	said := userText.String()
	var slots conversation.SlotSet
	var ambiguous string

	if name := strings.TrimSpace(ex.Name); name != "" {
		if ex.NameConfidence >= x.minConfidence && strings.Contains(said, name) {
			slots.Name = name
		} else {
			ambiguous = SlotName
		}
	}
	if phone := strings.TrimSpace(ex.Phone); phone != "" {
		if ex.PhoneConfidence >= x.minConfidence && conversation.ValidPhone(phone) && strings.Contains(said, phone) {
			slots.Phone = phone
		} else if ambiguous == "" {
			ambiguous = SlotPhone
		}
	}

	if ambiguous != "" {
		return slots, domain.NewExtractionAmbiguous(ambiguous)
	}
	return slots, nil
}

// stripFence removes a ```json fence some models add even in JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
