package dialogue

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/domain/intent"
)

// Slot names used in ambiguity errors.
const (
	SlotName  = "name"
	SlotPhone = "phone"
)

const (
	maxNameWords = 4
	maxNameRunes = 40
	// minPhoneAttempt is the digit run length that counts as an attempt to give a phone.
	minPhoneAttempt = 6
)

// nameTrigger captures whatever follows an explicit self-introduction.
// "call me" is left out: "call me back at ..." asks for a callback, not a name.
var nameTrigger = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{M}])(?:tên\s+(?:của\s+)?(?:tôi|mình|em|anh|chị|tớ)\s+là|` +
	`(?:tôi|mình|em|anh|chị|tớ)\s+tên(?:\s+là)?|tên\s+là|tên\s*:|` +
	`my\s+name\s+is)\s*([^\n]*)`)

// bareLead strips courtesy words before a bare name reply ("dạ, em là Lan").
var bareLead = regexp.MustCompile(`(?i)^\s*(?:(?:dạ|vâng|ok|ừ)[,\s]+)?(?:(?:tôi|mình|em|anh|chị|tớ)\s+(?:tên\s+(?:là\s+)?|là\s+))?`)

// nameStop ends a captured name (normalized forms).
var nameStop = map[string]struct{}{
	"so": {}, "sdt": {}, "dien": {}, "thoai": {}, "va": {}, "phone": {}, "and": {},
	"a": {}, "nha": {}, "nhe": {}, "day": {}, "do": {}, "oi": {},
	"gi": {}, "nhi": {}, "sao": {}, "nao": {}, "khong": {},
	"back": {}, "at": {}, "on": {}, "later": {}, "tomorrow": {}, "please": {},
}

// bareReject marks replies that are sentences rather than names.
var bareReject = map[string]struct{}{
	"tour": {}, "gia": {}, "bao": {}, "nhieu": {}, "khong": {}, "sao": {}, "nao": {},
	"gi": {}, "dau": {}, "ngay": {}, "dem": {}, "muon": {}, "hoi": {}, "can": {},
	"cho": {}, "duoc": {}, "co": {}, "chua": {}, "roi": {}, "vang": {}, "ok": {},
	"yes": {}, "no": {}, "how": {}, "what": {}, "price": {}, "thanks": {}, "cam": {}, "on": {},
	"xin": {}, "chao": {}, "hello": {}, "hi": {}, "hey": {},
}

// PatternExtractor recovers slots with regular expressions over user turns. Latest value wins.
type PatternExtractor struct {
	namePrompts map[string]struct{}
}

// NewPatternExtractor creates a pattern extractor. namePrompts are the assistant texts after
// which a bare reply ("Lan") is taken as the name.
func NewPatternExtractor(namePrompts ...string) *PatternExtractor {
	p := &PatternExtractor{namePrompts: make(map[string]struct{}, len(namePrompts))}
	for _, s := range namePrompts {
		if s = strings.TrimSpace(s); s != "" {
			p.namePrompts[s] = struct{}{}
		}
	}
	return p
}

// Extract implements SlotExtractor. Ambiguity is judged on the last user turn only.
func (p *PatternExtractor) Extract(_ context.Context, turns conversation.History) (conversation.SlotSet, error) {
	var slots conversation.SlotSet
	var nameAmbiguous, phoneAmbiguous bool

	lastUser := -1
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Sender == conversation.SenderUser {
			lastUser = i
			break
		}
	}

	prev := ""
	for i, t := range turns {
		if t.Sender == conversation.SenderAssistant {
			prev = t.Text
			continue
		}
		current := i == lastUser

		name, tried := p.name(t.Text, prev)
		switch {
		case name != "":
			slots.Name = name
		case tried && current:
			nameAmbiguous = true
		}

		if phones := conversation.FindPhones(t.Text); len(phones) > 0 {
			slots.Phone = phones[len(phones)-1]
		} else if current && conversation.HasDigitRun(t.Text, minPhoneAttempt) {
			phoneAmbiguous = true
		}
	}

	switch {
	case nameAmbiguous && !slots.HasName():
		return slots, domain.NewExtractionAmbiguous(SlotName)
	case phoneAmbiguous && !slots.HasPhone():
		return slots, domain.NewExtractionAmbiguous(SlotPhone)
	}
	return slots, nil
}

// engages reports whether text looks like an answer to a slot prompt.
func (p *PatternExtractor) engages(text, prev string) bool {
	if conversation.HasDigitRun(text, minPhoneAttempt) || nameTrigger.MatchString(text) {
		return true
	}
	if _, ok := p.namePrompts[strings.TrimSpace(prev)]; ok {
		return bareName(withoutPhones(text)) != ""
	}
	return false
}

// name returns the name in text and whether text tried to give one.
func (p *PatternExtractor) name(text, prev string) (string, bool) {
	if m := nameTrigger.FindStringSubmatch(text); m != nil {
		return cleanName(m[1]), true
	}
	if _, ok := p.namePrompts[strings.TrimSpace(prev)]; !ok {
		return "", false
	}
	rest := strings.TrimSpace(withoutPhones(text))
	if rest == "" {
		return "", false
	}
	return bareName(rest), true
}

// cleanName keeps the leading name words of a captured tail.
func cleanName(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsSpace(r) && !unicode.IsMark(r) && r != '\'' && r != '-'
	}); i >= 0 {
		s = s[:i]
	}
	var words []string
	for _, w := range strings.Fields(s) {
		if _, stop := nameStop[intent.Normalize(w)]; stop {
			break
		}
		words = append(words, w)
	}
	if len(words) == 0 || len(words) > maxNameWords {
		return ""
	}
	name := strings.Join(words, " ")
	if len([]rune(name)) > maxNameRunes {
		return ""
	}
	return name
}

// bareName accepts a short reply made only of name-like words.
func bareName(s string) string {
	s = bareLead.ReplaceAllString(s, "")
	s = strings.TrimRight(strings.TrimSpace(s), ".!… ")
	if s == "" || strings.ContainsAny(s, "?0123456789") {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > maxNameWords {
		return ""
	}
	for _, w := range words {
		if _, bad := bareReject[intent.Normalize(w)]; bad {
			return ""
		}
	}
	name := cleanName(s)
	if len(strings.Fields(name)) != len(words) {
		return ""
	}
	return name
}

func withoutPhones(text string) string {
	for _, ph := range conversation.FindPhones(text) {
		text = strings.Replace(text, ph, " ", 1)
	}
	return text
}
