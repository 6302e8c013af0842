// Package intent implements the keyword intent gate that runs before retrieval.
//
// Classification is a pure function of the question text. Rules are evaluated in
// table order and the first match wins, so the order of DefaultTable is part of
// the routing contract:
//
//	ContactCollection > PrivateTourHandoff > CompanyInfo > Greeting
//
// Most specific first: "chào bạn, cho mình gặp nhân viên" must reach the contact
// flow, not the greeting template.
package intent

import "fmt"

// Intent is the closed set of routing intents.
type Intent int

const (
	None Intent = iota
	Greeting
	CompanyInfo
	PrivateTourHandoff
	ContactCollection
)

var names = map[Intent]string{
	None:               "none",
	Greeting:           "greeting",
	CompanyInfo:        "company_info",
	PrivateTourHandoff: "private_tour_handoff",
	ContactCollection:  "contact_collection",
}

func (i Intent) String() string {
	if s, ok := names[i]; ok {
		return s
	}
	return fmt.Sprintf("intent(%d)", int(i))
}

// Canned reports whether the intent is answered by a fixed template.
func (i Intent) Canned() bool {
	return i == Greeting || i == CompanyInfo || i == PrivateTourHandoff
}

// Parse resolves a config name into an Intent.
func Parse(s string) (Intent, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return None, fmt.Errorf("unknown intent %q", s)
}

// Rule maps an intent to its trigger phrases.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// DefaultTable returns the built-in rule table in priority order.
func DefaultTable() []Rule {
	return []Rule{
		// вопрос о телефоне компании, а не запрос на обратный звонок
		{CompanyInfo, []string{
			"số điện thoại công ty", "số điện thoại của công ty", "sđt công ty", "sđt của công ty",
			"số hotline", "hotline", "company phone",
		}},
		{ContactCollection, []string{
			"gặp nhân viên", "nhân viên hỗ trợ", "tư vấn viên", "nói chuyện với người",
			"gọi lại cho tôi", "gọi lại cho mình", "gọi cho tôi", "gọi cho mình",
			"để lại số", "để lại thông tin", "liên hệ lại", "số điện thoại", "sđt",
			"tên tôi là", "tên mình là", "tôi tên là", "mình tên là",
			"call me", "call back", "talk to a human", "contact support", "my name is", "my phone",
		}},
		{PrivateTourHandoff, []string{
			"tour riêng", "tour private", "private tour", "tour theo yêu cầu", "thiết kế tour",
			"tour gia đình riêng", "đoàn riêng", "custom tour",
		}},
		{CompanyInfo, []string{
			"công ty", "địa chỉ văn phòng", "văn phòng ở đâu", "giấy phép lữ hành", "giờ làm việc",
			"hotline", "about your company", "company",
		}},
		{Greeting, []string{
			"xin chào", "chào bạn", "chào shop", "chào ad", "chào", "hello", "hi", "hey",
			"good morning",
		}},
	}
}
