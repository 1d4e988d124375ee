package settlement

import (
	"math"
	"sort"

	"github.com/settlement_center/backend/internal/models"
)

type agentKey struct {
	agentID     int64
	displayName string
	maskedPhone string
	department  string
}

// AggregateAgents sums the numeric columns of merged rows across platforms
// into one settlement row per agent, then applies the seat-based billing
// policy and the promotional override. Efficiency rates and traffic revenue
// are recomputed on the aggregated sums, not averaged over per-platform rows.
func AggregateAgents(rows []models.MergedAgentRow, onlineHours map[int64]float64, cfg Config, discount float64) []models.AgentSettlement {
	grouped := make(map[agentKey]*models.AgentSettlement)
	order := make([]agentKey, 0)
	for _, row := range rows {
		key := agentKey{row.AgentID, row.DisplayName, row.MaskedPhone, row.Department}
		agg, ok := grouped[key]
		if !ok {
			agg = &models.AgentSettlement{
				AgentID:     row.AgentID,
				DisplayName: row.DisplayName,
				MaskedPhone: row.MaskedPhone,
				Department:  row.Department,
			}
			grouped[key] = agg
			order = append(order, key)
		}
		agg.TotalReceptions += row.TotalReceptions
		agg.TotalQuestions += row.TotalQuestions
		agg.QuestionsExpectedFromBot += row.QuestionsExpectedFromBot
		agg.QuestionsIdentifiedByBot += row.QuestionsIdentifiedByBot
		agg.QuestionsAnsweredByBot += row.QuestionsAnsweredByBot
		agg.DistinctShopCount += row.DistinctShopCount
		agg.ScriptedReplyCount += row.ScriptedReplyCount
		agg.BotEquivalentReceptions += row.BotEquivalentReceptions
		agg.EstimatedLaborCost += row.EstimatedLaborCost
		agg.TotalReplies += row.TotalReplies
	}

	sort.Slice(order, func(i, j int) bool { return order[i].agentID < order[j].agentID })

	label := DiscountLabel(discount)
	out := make([]models.AgentSettlement, 0, len(order))
	for _, key := range order {
		agg := grouped[key]

		agg.OnlineHours = onlineHours[agg.AgentID]
		agg.EstimatedSeatCount = EstimateSeats(agg.OnlineHours, cfg)
		agg.EstimatedSettlement = cfg.SeatUnitPrice * float64(agg.EstimatedSeatCount)

		// Promotional override: no billing while the bot-driven labor cost
		// stays under the threshold.
		if agg.EstimatedLaborCost >= cfg.PromoThreshold {
			agg.PromoSeatCount = agg.EstimatedSeatCount
		} else {
			agg.PromoSeatCount = 0
		}
		agg.ActualSettlement = cfg.SeatUnitPrice * float64(agg.PromoSeatCount)
		agg.SettlementRate = Round(ratio(agg.ActualSettlement*100, agg.EstimatedLaborCost), 2)

		questions := float64(agg.TotalQuestions)
		agg.RecognitionRate = Round(ratio(float64(agg.QuestionsIdentifiedByBot), questions), 4)
		agg.ReplyRate = Round(ratio(float64(agg.QuestionsAnsweredByBot), questions), 4)
		agg.CoverageRate = Round(ratio(agg.ReplyRate, agg.RecognitionRate), 4)

		agg.TrafficRevenue = float64(agg.TotalReplies) * cfg.UnitPricePerReply
		agg.DiscountLabel = label
		agg.DiscountedTrafficRevenue = float64(agg.TotalReplies) * cfg.UnitPricePerReply * discount * 0.1

		out = append(out, *agg)
	}
	return out
}

// EstimateSeats converts aggregate online hours into a billable seat count.
// Every agent carries at least one seat; hours beyond the exempt allowance
// accrue one additional seat per HoursPerSeat, floored.
func EstimateSeats(onlineHours float64, cfg Config) int64 {
	excess := math.Max(0, onlineHours-cfg.ExemptHours)
	return int64(math.Floor(excess/cfg.HoursPerSeat)) + 1
}
