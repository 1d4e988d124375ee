package settlement

import (
	"math"
	"testing"

	"github.com/settlement_center/backend/internal/models"
	"github.com/settlement_center/backend/internal/platform"
)

func TestApplyRowMetricsKnownScenario(t *testing.T) {
	rows := []models.MergedAgentRow{{
		Platform:                 platform.Taobao,
		AgentID:                  101,
		TotalQuestions:           100,
		QuestionsIdentifiedByBot: 80,
		QuestionsAnsweredByBot:   60,
		ScriptedReplyCount:       20,
	}}
	out := ApplyRowMetrics(rows, DefaultConfig(), 5)

	row := out[0]
	if row.RecognitionRate != 0.80 {
		t.Fatalf("recognition rate: expected 0.80, got %v", row.RecognitionRate)
	}
	if row.ReplyRate != 0.60 {
		t.Fatalf("reply rate: expected 0.60, got %v", row.ReplyRate)
	}
	if row.CoverageRate != 0.75 {
		t.Fatalf("coverage rate: expected 0.75, got %v", row.CoverageRate)
	}
	if row.BotEquivalentReceptions != 17.5 {
		t.Fatalf("bot equivalent receptions: expected 17.5, got %v", row.BotEquivalentReceptions)
	}
	if row.EstimatedLaborCost != 2.35 {
		t.Fatalf("estimated labor cost: expected 2.35, got %v", row.EstimatedLaborCost)
	}
	if row.TotalReplies != 80 {
		t.Fatalf("total replies: expected 80, got %v", row.TotalReplies)
	}
	if math.Abs(row.TrafficRevenue-0.8) > 1e-9 {
		t.Fatalf("traffic revenue: expected 0.8, got %v", row.TrafficRevenue)
	}
	if math.Abs(row.DiscountedTrafficRevenue-0.4) > 1e-9 {
		t.Fatalf("discounted traffic revenue: expected 0.4, got %v", row.DiscountedTrafficRevenue)
	}
	if row.DiscountLabel != "5/10" {
		t.Fatalf("discount label: expected 5/10, got %s", row.DiscountLabel)
	}
}

func TestApplyRowMetricsReceptionRatioOverrides(t *testing.T) {
	cfg := DefaultConfig()
	mk := func(platform string) models.MergedAgentRow {
		return models.MergedAgentRow{Platform: platform, QuestionsAnsweredByBot: 70}
	}
	cases := []struct {
		platform string
		expected float64
	}{
		{platform.Taobao, 17.5},      // ratio 4
		{platform.Douyin, 14},        // ratio 5
		{platform.Pinduoduo, 20},     // ratio 3.5
		{platform.Xiaohongshu, 17.5}, // no override, default 4
		{"wechat-shop", 17.5},        // unknown platform, default 4
	}
	for _, tc := range cases {
		out := ApplyRowMetrics([]models.MergedAgentRow{mk(tc.platform)}, cfg, 10)
		if out[0].BotEquivalentReceptions != tc.expected {
			t.Fatalf("%s: expected %v bot receptions, got %v", tc.platform, tc.expected, out[0].BotEquivalentReceptions)
		}
	}
}

func TestApplyRowMetricsZeroQuestionsYieldsNaN(t *testing.T) {
	rows := []models.MergedAgentRow{{
		Platform:               platform.Douyin,
		AgentID:                7,
		TotalQuestions:         0,
		QuestionsAnsweredByBot: 5,
	}}
	out := ApplyRowMetrics(rows, DefaultConfig(), 10)

	if !math.IsNaN(out[0].RecognitionRate) || !math.IsNaN(out[0].ReplyRate) || !math.IsNaN(out[0].CoverageRate) {
		t.Fatalf("expected NaN rates for zero questions, got %v %v %v",
			out[0].RecognitionRate, out[0].ReplyRate, out[0].CoverageRate)
	}
	// the batch itself keeps going: downstream money columns stay defined
	if out[0].TotalReplies != 5 {
		t.Fatalf("expected total replies 5, got %d", out[0].TotalReplies)
	}
}

func TestApplyRowMetricsZeroRecognitionYieldsNaNCoverage(t *testing.T) {
	rows := []models.MergedAgentRow{{
		Platform:               platform.Douyin,
		TotalQuestions:         10,
		QuestionsAnsweredByBot: 4,
	}}
	out := ApplyRowMetrics(rows, DefaultConfig(), 10)
	if out[0].RecognitionRate != 0 {
		t.Fatalf("expected recognition rate 0, got %v", out[0].RecognitionRate)
	}
	if !math.IsNaN(out[0].CoverageRate) {
		t.Fatalf("expected NaN coverage for zero recognition, got %v", out[0].CoverageRate)
	}
}

func TestDropSystemRows(t *testing.T) {
	rows := []models.MergedAgentRow{
		{AgentID: 1, Department: "Acme/Support/System Department"},
		{AgentID: 2, Department: "Acme/Support/Night Shift"},
		{AgentID: 3, Department: "System Department"},
		{AgentID: 4, Department: models.Unknown},
	}
	out := DropSystemRows(rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows after drop, got %d", len(out))
	}
	for _, row := range out {
		if row.AgentID == 1 || row.AgentID == 3 {
			t.Fatalf("system department row %d survived", row.AgentID)
		}
	}
}

func TestRoundHalfAwayAndNaN(t *testing.T) {
	if got := Round(17.5*0.134, 2); got != 2.35 {
		t.Fatalf("expected 2.35, got %v", got)
	}
	if got := Round(0.12345, 4); got != 0.1235 {
		t.Fatalf("expected 0.1235, got %v", got)
	}
	if !math.IsNaN(Round(math.NaN(), 2)) {
		t.Fatalf("expected NaN to pass through Round")
	}
}

func TestValidDiscount(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 5}, {0.5, 5}, {11, 5}, {-3, 5},
		{1, 1}, {10, 10}, {7.5, 7.5},
	}
	for _, tc := range cases {
		if got := cfg.ValidDiscount(tc.in); got != tc.want {
			t.Fatalf("ValidDiscount(%v): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}
