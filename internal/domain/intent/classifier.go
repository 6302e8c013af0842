package intent

// Classifier matches questions against an ordered rule table.
// Keywords match on whole-token boundaries after Normalize, so "hi" does not fire
// inside "chi phí" and "xin chao" equals "xin chào".
type Classifier struct {
	rules []compiledRule
}

type compiledRule struct {
	intent  Intent
	phrases [][]string
}

// NewClassifier compiles the table. Empty keywords are skipped.
func NewClassifier(table []Rule) *Classifier {
	c := &Classifier{rules: make([]compiledRule, 0, len(table))}
	for _, r := range table {
		cr := compiledRule{intent: r.Intent}
		for _, kw := range r.Keywords {
			if toks := Tokens(kw); len(toks) > 0 {
				cr.phrases = append(cr.phrases, toks)
			}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Classify returns the first matching intent or None.
func (c *Classifier) Classify(question string) Intent {
	toks := Tokens(question)
	if len(toks) == 0 {
		return None
	}
	for _, r := range c.rules {
		for _, p := range r.phrases {
			if containsPhrase(toks, p) {
				return r.intent
			}
		}
	}
	return None
}

func containsPhrase(toks, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(toks); i++ {
		match := true
		for j := range phrase {
			if toks[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
