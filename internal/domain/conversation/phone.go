package conversation

import (
	"regexp"
	"strings"
)

// phoneCandidate matches a digit run with optional separators and an optional leading "+".
var phoneCandidate = regexp.MustCompile(`\+?\d[\d\s.\-]{7,16}\d`)

// FindPhones returns the valid Vietnamese phone numbers in text, verbatim, in order of appearance.
func FindPhones(text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		loc := phoneCandidate.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if n := validPrefix(text[start:end]); n > 0 {
			out = append(out, strings.TrimSpace(text[start:start+n]))
			pos = start + n
			continue
		}
		pos = end
	}
	return out
}

// validPrefix returns the length of the longest valid phone at the start of a candidate, or 0.
// The separator class also swallows trailing numbers ("0901234567 2 người"), so an invalid
// candidate is cut where a digit meets a separator.
func validPrefix(m string) int {
	if ValidPhone(m) {
		return len(m)
	}
	for i := len(m) - 1; i > 0; i-- {
		if isDigit(m[i-1]) && !isDigit(m[i]) && ValidPhone(m[:i]) {
			return i
		}
	}
	return 0
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ValidPhone reports whether s is a Vietnamese mobile (10 digits, 03/05/07/08/09)
// or landline (11 digits, 02x) number, with or without the +84 prefix.
func ValidPhone(s string) bool {
	d := digits(s)
	if strings.HasPrefix(strings.TrimSpace(s), "+") && !strings.HasPrefix(d, "84") {
		return false
	}
	if strings.HasPrefix(d, "84") && len(d) >= 11 {
		d = "0" + d[2:]
	}
	switch len(d) {
	case 10:
		switch d[:2] {
		case "03", "05", "07", "08", "09":
			return true
		}
	case 11:
		return d[:2] == "02"
	}
	return false
}

// HasDigitRun reports whether text contains at least n consecutive digits (ignoring separators).
// Used to spot a phone attempt that did not validate.
func HasDigitRun(text string, n int) bool {
	for _, m := range phoneCandidate.FindAllString(text, -1) {
		if len(digits(m)) >= n {
			return true
		}
	}
	run := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
