package artifact

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/settlement_center/backend/internal/models"
	"github.com/settlement_center/backend/internal/utils"
)

const (
	summarySheet = "summary"
	detailSheet  = "detail"

	lockStripes = 32
)

// XLSXStore keeps settlement workbooks as xlsx files under a single
// directory. Concurrent writers for the same identifier are serialized by a
// striped in-process lock; cross-process races are accepted, matching the
// single-writer-per-identifier contract.
type XLSXStore struct {
	Dir   string
	locks [lockStripes]sync.Mutex
}

func NewXLSXStore(dir string) (*XLSXStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &XLSXStore{Dir: dir}, nil
}

func (s *XLSXStore) Path(id string) string {
	return filepath.Join(s.Dir, id)
}

func (s *XLSXStore) Exists(id string) bool {
	info, err := os.Stat(s.Path(id))
	return err == nil && !info.IsDir()
}

func (s *XLSXStore) lock(id string) *sync.Mutex {
	return &s.locks[utils.HashStringToUint64(id)%lockStripes]
}

var summaryHeader = []any{
	"tenant", "period", "settled_at", "settlement_method", "seat_unit_price",
	"estimated_seat_count", "actual_seat_count", "estimated_labor_cost",
	"estimated_settlement", "actual_settlement", "estimated_savings",
	"promo_waived_cost", "settlement_rate", "total_replies", "traffic_revenue",
	"discount", "discounted_traffic_revenue",
}

var detailHeader = []any{
	"agent_id", "display_name", "masked_phone", "department",
	"total_receptions", "total_questions", "questions_expected_from_bot",
	"questions_identified_by_bot", "questions_answered_by_bot",
	"recognition_rate", "reply_rate", "coverage_rate", "distinct_shop_count",
	"scripted_reply_count", "bot_equivalent_receptions", "estimated_labor_cost",
	"online_hours", "estimated_seat_count", "estimated_settlement",
	"promo_seat_count", "actual_settlement", "settlement_rate", "total_replies",
	"traffic_revenue", "discount", "discounted_traffic_revenue",
}

var platformHeader = []any{
	"platform", "agent_id", "display_name", "masked_phone", "department",
	"total_receptions", "total_questions", "questions_expected_from_bot",
	"questions_identified_by_bot", "questions_answered_by_bot",
	"recognition_rate", "reply_rate", "coverage_rate", "distinct_shop_count",
	"scripted_reply_count", "bot_equivalent_receptions", "estimated_labor_cost",
	"total_replies", "traffic_revenue", "discount", "discounted_traffic_revenue",
}

func (s *XLSXStore) Write(id string, report Report) (string, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", err
	}
	if err := writeSheet(f, summarySheet, summaryHeader, len(report.Summary), func(i int) []any {
		return summaryRow(report.Summary[i])
	}); err != nil {
		return "", err
	}

	if report.Detail != nil {
		if _, err := f.NewSheet(detailSheet); err != nil {
			return "", err
		}
		if err := writeSheet(f, detailSheet, detailHeader, len(report.Detail), func(i int) []any {
			return detailRow(report.Detail[i])
		}); err != nil {
			return "", err
		}
		for _, sheet := range report.Sheets {
			if _, err := f.NewSheet(sheet.Platform); err != nil {
				return "", err
			}
			rows := sheet.Rows
			if err := writeSheet(f, sheet.Platform, platformHeader, len(rows), func(i int) []any {
				return platformRow(rows[i])
			}); err != nil {
				return "", err
			}
		}
	}

	path := s.Path(id)
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSummary loads the summary sheet of an existing artifact. Any parse or
// shape problem comes back as ErrNotCached so callers fall through to a
// fresh computation instead of failing the invocation.
func (s *XLSXStore) ReadSummary(id string) ([]models.TenantSummary, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	f, err := excelize.OpenFile(s.Path(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCached, err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCached, err)
	}
	if len(rows) == 0 || len(rows[0]) < len(summaryHeader) {
		return nil, fmt.Errorf("%w: malformed summary sheet", ErrNotCached)
	}

	out := make([]models.TenantSummary, 0, len(rows)-1)
	for _, row := range rows[1:] {
		summary, err := parseSummaryRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotCached, err)
		}
		out = append(out, summary)
	}
	return out, nil
}

func writeSheet(f *excelize.File, sheet string, header []any, n int, rowAt func(int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := rowAt(i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// numCell renders NaN metrics as blank cells instead of an unreadable token.
func numCell(v float64) any {
	if math.IsNaN(v) {
		return ""
	}
	return v
}

func summaryRow(t models.TenantSummary) []any {
	return []any{
		t.Tenant, t.Period, t.SettledAt, t.SettlementMethod, t.SeatUnitPrice,
		t.EstimatedSeatCount, t.ActualSeatCount, t.EstimatedLaborCost,
		t.EstimatedSettlement, t.ActualSettlement, t.EstimatedSavings,
		t.PromoWaivedCost, t.SettlementRate, t.TotalReplies, t.TrafficRevenue,
		t.DiscountLabel, t.DiscountedTrafficRevenue,
	}
}

func detailRow(a models.AgentSettlement) []any {
	return []any{
		a.AgentID, a.DisplayName, a.MaskedPhone, a.Department,
		a.TotalReceptions, a.TotalQuestions, a.QuestionsExpectedFromBot,
		a.QuestionsIdentifiedByBot, a.QuestionsAnsweredByBot,
		numCell(a.RecognitionRate), numCell(a.ReplyRate), numCell(a.CoverageRate),
		a.DistinctShopCount, a.ScriptedReplyCount, a.BotEquivalentReceptions,
		a.EstimatedLaborCost, a.OnlineHours, a.EstimatedSeatCount,
		a.EstimatedSettlement, a.PromoSeatCount, a.ActualSettlement,
		numCell(a.SettlementRate), a.TotalReplies, a.TrafficRevenue,
		a.DiscountLabel, a.DiscountedTrafficRevenue,
	}
}

func platformRow(r models.MergedAgentRow) []any {
	return []any{
		r.Platform, r.AgentID, r.DisplayName, r.MaskedPhone, r.Department,
		r.TotalReceptions, r.TotalQuestions, r.QuestionsExpectedFromBot,
		r.QuestionsIdentifiedByBot, r.QuestionsAnsweredByBot,
		numCell(r.RecognitionRate), numCell(r.ReplyRate), numCell(r.CoverageRate),
		r.DistinctShopCount, r.ScriptedReplyCount, r.BotEquivalentReceptions,
		r.EstimatedLaborCost, r.TotalReplies, r.TrafficRevenue,
		r.DiscountLabel, r.DiscountedTrafficRevenue,
	}
}

func parseSummaryRow(row []string) (models.TenantSummary, error) {
	if len(row) < len(summaryHeader) {
		// excelize trims trailing empty cells
		padded := make([]string, len(summaryHeader))
		copy(padded, row)
		row = padded
	}
	ints := make([]int64, len(summaryHeader))
	for _, idx := range []int{4, 5, 6, 7, 8, 9, 10, 11, 13, 14, 16} {
		v, err := parseInt(row[idx])
		if err != nil {
			return models.TenantSummary{}, err
		}
		ints[idx] = v
	}
	return models.TenantSummary{
		Tenant:                   row[0],
		Period:                   row[1],
		SettledAt:                row[2],
		SettlementMethod:         row[3],
		SeatUnitPrice:            ints[4],
		EstimatedSeatCount:       ints[5],
		ActualSeatCount:          ints[6],
		EstimatedLaborCost:       ints[7],
		EstimatedSettlement:      ints[8],
		ActualSettlement:         ints[9],
		EstimatedSavings:         ints[10],
		PromoWaivedCost:          ints[11],
		SettlementRate:           row[12],
		TotalReplies:             ints[13],
		TrafficRevenue:           ints[14],
		DiscountLabel:            row[15],
		DiscountedTrafficRevenue: ints[16],
	}, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
