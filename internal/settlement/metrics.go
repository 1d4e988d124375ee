package settlement

import (
	"fmt"
	"math"
	"strings"

	"github.com/settlement_center/backend/internal/models"
)

// systemDepartment marks internal, non-billable accounts. Agents whose
// department path ends in this segment never appear in agent-level output.
const systemDepartment = "System Department"

// Round rounds half away from zero to the given number of decimal places.
// NaN passes through unchanged.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// ratio divides with the documented zero-denominator policy: any division
// with a zero denominator yields NaN, which propagates through dependent
// metrics instead of failing the batch.
func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// DiscountLabel renders a discount tier on the 1-10 tenths scale.
func DiscountLabel(discount float64) string {
	return fmt.Sprintf("%g/10", discount)
}

// ApplyRowMetrics fills the derived columns of each merged row, in order:
// efficiency rates, bot-equivalent receptions, estimated labor cost, reply
// totals and traffic revenue.
func ApplyRowMetrics(rows []models.MergedAgentRow, cfg Config, discount float64) []models.MergedAgentRow {
	label := DiscountLabel(discount)
	out := make([]models.MergedAgentRow, 0, len(rows))
	for _, row := range rows {
		questions := float64(row.TotalQuestions)
		row.RecognitionRate = Round(ratio(float64(row.QuestionsIdentifiedByBot), questions), 4)
		row.ReplyRate = Round(ratio(float64(row.QuestionsAnsweredByBot), questions), 4)
		row.CoverageRate = Round(ratio(row.ReplyRate, row.RecognitionRate), 4)

		row.BotEquivalentReceptions = Round(
			(float64(row.QuestionsAnsweredByBot)+float64(row.ScriptedReplyCount)/2)/cfg.ReceptionRatio(row.Platform), 2)
		row.EstimatedLaborCost = Round(row.BotEquivalentReceptions*cfg.LaborCostPerReception, 2)

		row.TotalReplies = row.QuestionsAnsweredByBot + row.ScriptedReplyCount
		row.TrafficRevenue = float64(row.TotalReplies) * cfg.UnitPricePerReply
		row.DiscountLabel = label
		row.DiscountedTrafficRevenue = float64(row.TotalReplies) * cfg.UnitPricePerReply * discount * 0.1

		out = append(out, row)
	}
	return out
}

// DropSystemRows removes rows belonging to the reserved internal department
// before any aggregation.
func DropSystemRows(rows []models.MergedAgentRow) []models.MergedAgentRow {
	out := make([]models.MergedAgentRow, 0, len(rows))
	for _, row := range rows {
		if lastSegment(row.Department) == systemDepartment {
			continue
		}
		out = append(out, row)
	}
	return out
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
