package assistant

import (
	"strings"

	"github.com/kailas-cloud/tourassist/internal/domain/intent"
)

// Templates are the fixed replies of the assistant.
type Templates struct {
	Greeting           string
	CompanyInfo        string
	PrivateTourHandoff string
	CorpusUnavailable  string
	ProviderFallback   string
	HandoffFailed      string
}

// DefaultTemplates returns the built-in Vietnamese replies.
func DefaultTemplates() Templates {
	return Templates{
		Greeting: "Xin chào! Em là trợ lý tư vấn tour. Anh/chị đang quan tâm đến điểm đến nào để em giới thiệu tour phù hợp ạ?",
		CompanyInfo: "Bên em là đơn vị lữ hành chuyên tour trong nước và quốc tế, có giấy phép lữ hành quốc tế. " +
			"Văn phòng làm việc từ 8h00 đến 17h30, thứ Hai đến thứ Bảy. Anh/chị cần tư vấn tour nào cứ nhắn em nhé!",
		PrivateTourHandoff: "Dạ, bên em nhận thiết kế tour riêng theo yêu cầu cho gia đình và nhóm bạn. " +
			"Anh/chị để lại tên và số điện thoại, nhân viên tư vấn sẽ liên hệ để lên lịch trình phù hợp ạ.",
		CorpusUnavailable: "Xin lỗi, hệ thống tra cứu tour đang được cập nhật. Anh/chị vui lòng thử lại sau ít phút ạ.",
		ProviderFallback:  "Dịch vụ tạm thời không khả dụng, vui lòng thử lại sau hoặc để lại số điện thoại để nhân viên liên hệ với bạn.",
		HandoffFailed:     "Xin lỗi, em chưa gửi được thông tin cho nhân viên. Anh/chị vui lòng thử lại sau hoặc gọi hotline giúp em ạ.",
	}
}

// Merge fills empty fields of t from d.
func (t Templates) Merge(d Templates) Templates {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	t.Greeting = pick(t.Greeting, d.Greeting)
	t.CompanyInfo = pick(t.CompanyInfo, d.CompanyInfo)
	t.PrivateTourHandoff = pick(t.PrivateTourHandoff, d.PrivateTourHandoff)
	t.CorpusUnavailable = pick(t.CorpusUnavailable, d.CorpusUnavailable)
	t.ProviderFallback = pick(t.ProviderFallback, d.ProviderFallback)
	t.HandoffFailed = pick(t.HandoffFailed, d.HandoffFailed)
	return t
}

// Canned returns the fixed reply for a canned intent.
func (t Templates) Canned(in intent.Intent) (string, bool) {
	switch in {
	case intent.Greeting:
		return t.Greeting, true
	case intent.CompanyInfo:
		return t.CompanyInfo, true
	case intent.PrivateTourHandoff:
		return t.PrivateTourHandoff, true
	}
	return "", false
}
