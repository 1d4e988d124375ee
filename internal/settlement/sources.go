package settlement

import (
	"context"
	"time"

	"github.com/settlement_center/backend/internal/models"
)

// Sources is the set of external datasets one settlement run reads. All
// fetches are scoped to a tenant and, where dated, an inclusive date range;
// platform labels in returned rows are already canonical. Implemented by
// db.Store and by fakes in tests.
type Sources interface {
	FetchScriptedReplies(ctx context.Context, tenant string, start, end time.Time) ([]models.InteractionRecord, error)
	FetchStats(ctx context.Context, tenant string, start, end time.Time) ([]models.StatRecord, error)
	FetchShopCoverage(ctx context.Context, tenant string, start, end time.Time) ([]models.ShopCoverageRecord, error)
	FetchAgentProfiles(ctx context.Context, tenant string) (map[int64]models.AgentProfile, error)
	FetchDepartmentAssignments(ctx context.Context, tenant string) (map[int64]string, error)
	FetchOnlineHours(ctx context.Context, tenant string, start, end time.Time) (map[int64]float64, error)
	ListTenants(ctx context.Context) (map[string]int64, error)
}
