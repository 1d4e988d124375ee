package platform

import "testing"

func TestNormalizeMergesMarketplaceFamily(t *testing.T) {
	if got := Normalize("tmall"); got != Taobao {
		t.Fatalf("expected tmall to normalize to %s, got %s", Taobao, got)
	}
	if got := Normalize("taobao"); got != Taobao {
		t.Fatalf("expected taobao to normalize to %s, got %s", Taobao, got)
	}
}

func TestNormalizePassesUnknownThrough(t *testing.T) {
	if got := Normalize("wechat-shop"); got != "wechat-shop" {
		t.Fatalf("expected pass-through, got %s", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	labels := []string{"tmall", "taobao", "douyin", "pinduoduo", "xiaohongshu", "wechat-shop", " Tmall "}
	for _, label := range labels {
		once := Normalize(label)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", label, once, twice)
		}
	}
	for _, canonical := range Canonical {
		if Normalize(canonical) != canonical {
			t.Fatalf("canonical label %q should normalize to itself", canonical)
		}
	}
}
