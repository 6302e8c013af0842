// Package prompt assembles the generation payload from retrieved tours.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/search/result"
)

// DefaultBudgetChars caps the context block, counted in runes.
const DefaultBudgetChars = 4000

// DefaultSystemTemplate is the system instruction. {{language}} is replaced by the default language.
const DefaultSystemTemplate = `Bạn là trợ lý tư vấn tour du lịch của cửa hàng.
Chỉ trả lời dựa trên thông tin trong phần "Thông tin tour". Nếu thông tin không có ở đó, hãy nói thật là bạn chưa có thông tin và gợi ý khách để lại số điện thoại để nhân viên liên hệ.
Trả lời bằng cùng ngôn ngữ với câu hỏi của khách (mặc định: {{language}}), giọng văn thân thiện, tự nhiên, ngắn gọn.
Answer in the same language as the customer's question (default: {{language}}) in a friendly, natural tone.`

// Payload is what the responder sends to the generation provider.
type Payload struct {
	System   string
	Context  string
	Question string
	// Sources lists the entry IDs that made it into Context, in rank order.
	Sources []string
}

// Raw wraps free text as a context-free payload.
func Raw(text string) Payload {
	return Payload{Question: text}
}

// Messages converts the payload into chat messages.
func (p Payload) Messages() []domain.Message {
	msgs := make([]domain.Message, 0, 2)
	if p.System != "" {
		msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: p.System})
	}
	user := p.Question
	if p.Context != "" {
		user = "Thông tin tour:\n" + p.Context + "\n\nCâu hỏi: " + p.Question
	}
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: user})
}

// Builder renders retrieval results into a bounded context block.
type Builder struct {
	budget   int
	system   string
	language string
}

// Option configures a Builder.
type Option func(*Builder)

// WithBudget sets the context budget in characters.
func WithBudget(chars int) Option {
	return func(b *Builder) {
		if chars > 0 {
			b.budget = chars
		}
	}
}

// WithSystemTemplate overrides the system instruction template.
func WithSystemTemplate(tmpl string) Option {
	return func(b *Builder) {
		if strings.TrimSpace(tmpl) != "" {
			b.system = tmpl
		}
	}
}

// WithDefaultLanguage sets the fallback answer language.
func WithDefaultLanguage(lang string) Option {
	return func(b *Builder) {
		if lang != "" {
			b.language = lang
		}
	}
}

// NewBuilder creates a Builder with defaults: 4000 chars, Vietnamese.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{budget: DefaultBudgetChars, system: DefaultSystemTemplate, language: "tiếng Việt"}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build renders results in rank order. Lowest-ranked blocks are dropped first when the
// budget is exceeded; a top block that alone exceeds the budget is truncated.
func (b *Builder) Build(question string, results []result.Result) Payload {
	p := Payload{
		System:   strings.ReplaceAll(b.system, "{{language}}", b.language),
		Question: question,
	}

	const sep = "\n\n"
	var sb strings.Builder
	used := 0
	for i, r := range results {
		block := fmt.Sprintf("[%d] %s\n%s", i+1, r.Title(), strings.TrimSpace(r.Description()))
		n := runeLen(block)
		if i > 0 {
			n += runeLen(sep)
		}
		if used+n > b.budget {
			if i == 0 {
				sb.WriteString(truncate(block, b.budget))
				p.Sources = append(p.Sources, r.ID())
			}
			break
		}
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(block)
		used += n
		p.Sources = append(p.Sources, r.ID())
	}
	p.Context = sb.String()
	return p
}

func runeLen(s string) int { return len([]rune(s)) }

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
