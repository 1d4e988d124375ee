package settlement

import (
	"fmt"
	"time"

	"github.com/settlement_center/backend/internal/models"
)

const settlementMethod = "actual seats (promo)"

// BuildTenantSummary folds per-agent settlements into the one-row tenant
// aggregate. Monetary figures are truncated to integers here, after the
// per-agent rounding, and derived differences are taken over the truncated
// values; reordering the rounding and truncation shifts totals.
func BuildTenantSummary(tenant string, agents []models.AgentSettlement, start, end time.Time, discount float64, cfg Config, now time.Time) models.TenantSummary {
	var (
		estSeats     int64
		actualSeats  int64
		laborSum     float64
		estSum       float64
		actualSum    float64
		totalReplies int64
	)
	for _, a := range agents {
		estSeats += a.EstimatedSeatCount
		actualSeats += a.PromoSeatCount
		laborSum += a.EstimatedLaborCost
		estSum += a.EstimatedSettlement
		actualSum += a.ActualSettlement
		totalReplies += a.TotalReplies
	}

	labor := int64(laborSum)
	estimated := int64(estSum)
	actual := int64(actualSum)

	rate := "0%"
	if labor != 0 {
		rate = fmt.Sprintf("%g%%", Round(float64(actual)*100/float64(labor), 2))
	}

	return models.TenantSummary{
		Tenant:           tenant,
		Period:           fmt.Sprintf("%s to %s", start.Format(dateLayout), end.Format(dateLayout)),
		SettledAt:        now.Format(dateLayout),
		SettlementMethod: settlementMethod,
		SeatUnitPrice:    int64(cfg.SeatUnitPrice),

		EstimatedSeatCount: estSeats,
		ActualSeatCount:    actualSeats,

		EstimatedLaborCost:  labor,
		EstimatedSettlement: estimated,
		ActualSettlement:    actual,
		EstimatedSavings:    labor - actual,
		PromoWaivedCost:     estimated - actual,
		SettlementRate:      rate,

		TotalReplies:             totalReplies,
		TrafficRevenue:           int64(float64(totalReplies) * cfg.UnitPricePerReply),
		DiscountLabel:            DiscountLabel(discount),
		DiscountedTrafficRevenue: int64(float64(totalReplies) * cfg.UnitPricePerReply * discount * 0.1),
	}
}
