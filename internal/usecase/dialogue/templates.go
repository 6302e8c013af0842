package dialogue

import "strings"

// Templates are the texts the dialogue emits. Name and phone are echoed verbatim
// into Confirmation through the {name} and {phone} placeholders.
type Templates struct {
	AskName       string
	AskNameAgain  string
	AskPhone      string
	AskPhoneAgain string
	Confirmation  string
	// Openers are assistant texts that invite the caller to leave contacts
	// (e.g. the private tour reply). A reply right after one continues the exchange.
	Openers []string
}

// DefaultTemplates returns the built-in Vietnamese texts.
func DefaultTemplates() Templates {
	return Templates{
		AskName:       "Dạ, anh/chị vui lòng cho em biết tên để nhân viên tiện liên hệ ạ?",
		AskNameAgain:  "Xin lỗi, em chưa rõ tên của anh/chị. Anh/chị nhắc lại giúp em tên của mình được không ạ?",
		AskPhone:      "Cảm ơn anh/chị! Anh/chị cho em xin số điện thoại để nhân viên tư vấn liên hệ ạ.",
		AskPhoneAgain: "Số điện thoại này có vẻ chưa đúng. Anh/chị kiểm tra và gửi lại giúp em (ví dụ: 0901234567) ạ.",
		Confirmation:  "Cảm ơn {name}! Em đã ghi nhận số điện thoại {phone}. Nhân viên tư vấn sẽ liên hệ với anh/chị trong thời gian sớm nhất ạ.",
	}
}

// merge fills empty fields of t from d.
func (t Templates) merge(d Templates) Templates {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	t.AskName = pick(t.AskName, d.AskName)
	t.AskNameAgain = pick(t.AskNameAgain, d.AskNameAgain)
	t.AskPhone = pick(t.AskPhone, d.AskPhone)
	t.AskPhoneAgain = pick(t.AskPhoneAgain, d.AskPhoneAgain)
	t.Confirmation = pick(t.Confirmation, d.Confirmation)
	return t
}

// Confirm renders the confirmation for the collected slots.
func (t Templates) Confirm(name, phone string) string {
	return strings.NewReplacer("{name}", name, "{phone}", phone).Replace(t.Confirmation)
}

// isConfirmation reports whether text was rendered from the confirmation template:
// every literal segment of the template must appear in order.
func (t Templates) isConfirmation(text string) bool {
	tmpl := strings.NewReplacer("{name}", "\x00", "{phone}", "\x00").Replace(t.Confirmation)
	seen := false
	for _, part := range strings.Split(tmpl, "\x00") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.Index(text, part)
		if i < 0 {
			return false
		}
		text = text[i+len(part):]
		seen = true
	}
	return seen
}

func (t Templates) namePrompts() []string {
	return []string{t.AskName, t.AskNameAgain}
}
