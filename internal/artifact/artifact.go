package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/settlement_center/backend/internal/models"
)

// ErrNotCached reports an artifact that exists but cannot be read back as a
// summary table. Callers treat it as a cache miss and recompute.
var ErrNotCached = errors.New("artifact not readable as cache")

// PlatformSheet is one per-platform slice of the merged row set.
type PlatformSheet struct {
	Platform string
	Rows     []models.MergedAgentRow
}

// Report is everything one settlement invocation persists. Detail and Sheets
// are nil in multi-tenant mode, where only the summary table is kept.
type Report struct {
	Summary []models.TenantSummary
	Detail  []models.AgentSettlement
	Sheets  []PlatformSheet
}

// Store persists settlement workbooks keyed by a deterministic identifier
// and serves cached summary tables back verbatim.
type Store interface {
	Exists(id string) bool
	ReadSummary(id string) ([]models.TenantSummary, error)
	Write(id string, report Report) (string, error)
	Path(id string) string
}

const dateLayout = "2006-01-02"

// ID derives the deterministic artifact identifier for one invocation. Equal
// (selector, discount, date range) inputs always map to the same workbook.
func ID(selector string, discount float64, start, end time.Time) string {
	return fmt.Sprintf("%s_%g_%s_%s_settlement.xlsx",
		selector, discount, start.Format(dateLayout), end.Format(dateLayout))
}
