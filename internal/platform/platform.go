package platform

import "strings"

// Canonical platform labels as they appear in reports. Taobao and Tmall are
// one marketplace family for billing purposes and share one canonical label.
const (
	Taobao      = "taobao"
	Douyin      = "douyin"
	Pinduoduo   = "pinduoduo"
	Xiaohongshu = "xiaohongshu"
)

// Canonical is the report sheet order for per-platform breakdowns.
var Canonical = []string{Taobao, Douyin, Pinduoduo, Xiaohongshu}

// Normalize maps a raw platform label from any data source to its canonical
// form. It must be applied identically to every dataset before joining on
// (platform, agent), and is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "taobao", "tmall":
		return Taobao
	case "douyin":
		return Douyin
	case "pinduoduo":
		return Pinduoduo
	case "xiaohongshu":
		return Xiaohongshu
	default:
		return strings.TrimSpace(raw)
	}
}
