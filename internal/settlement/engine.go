package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/settlement_center/backend/internal/artifact"
	"github.com/settlement_center/backend/internal/models"
	"github.com/settlement_center/backend/internal/platform"
)

const dateLayout = "2006-01-02"

// tenantParallelism bounds concurrent per-tenant pipelines in wildcard runs.
const tenantParallelism = 4

var ErrInvalidRange = errors.New("start date is after end date")

// Request selects what one settlement invocation computes.
type Request struct {
	// Tenant is one tenant domain label, or Config.WildcardTenant for all.
	Tenant    string
	StartDate time.Time
	EndDate   time.Time
	// Discount is the tenths-scale tier in [1,10]; 10 means no discount.
	Discount float64
	UseCache bool
}

// Result is the summary table plus the location of the persisted workbook.
type Result struct {
	Summary      []models.TenantSummary `json:"summary"`
	ArtifactPath string                 `json:"artifact"`
	FromCache    bool                   `json:"from_cache"`
}

// Engine runs the settlement pipeline: fuse the three datasets, derive
// metrics, bill per agent, aggregate per tenant, and persist or reuse the
// workbook artifact. It holds no mutable state between invocations.
type Engine struct {
	Sources   Sources
	Artifacts artifact.Store
	Config    Config
	Logger    zerolog.Logger

	// Notify, when set, receives a caller-visible warning before a
	// long-running wildcard computation starts.
	Notify func(msg string)

	// Now overrides the settlement timestamp in tests.
	Now func() time.Time
}

func (e *Engine) Compute(ctx context.Context, req Request) (Result, error) {
	if req.EndDate.Before(req.StartDate) {
		return Result{}, ErrInvalidRange
	}
	discount := e.Config.ValidDiscount(req.Discount)
	id := artifact.ID(req.Tenant, discount, req.StartDate, req.EndDate)

	if req.UseCache && e.Artifacts.Exists(id) {
		summary, err := e.Artifacts.ReadSummary(id)
		if err == nil {
			e.Logger.Info().Str("artifact", id).Msg("serving settlement from cache")
			return Result{Summary: summary, ArtifactPath: e.Artifacts.Path(id), FromCache: true}, nil
		}
		e.Logger.Warn().Err(err).Str("artifact", id).Msg("cached artifact unreadable, recomputing")
	}

	if req.Tenant == e.Config.WildcardTenant {
		return e.computeAllTenants(ctx, req, discount, id)
	}
	return e.computeSingleTenant(ctx, req, discount, id)
}

func (e *Engine) computeSingleTenant(ctx context.Context, req Request, discount float64, id string) (Result, error) {
	rows, agents, summary, err := e.runTenant(ctx, req.Tenant, req.StartDate, req.EndDate, discount)
	if err != nil {
		return Result{}, err
	}

	report := artifact.Report{
		Summary: []models.TenantSummary{summary},
		Detail:  agents,
		Sheets:  partitionByPlatform(rows),
	}
	path, err := e.Artifacts.Write(id, report)
	if err != nil {
		return Result{}, fmt.Errorf("persist artifact: %w", err)
	}
	e.Logger.Info().Str("tenant", req.Tenant).Str("artifact", path).Int("agents", len(agents)).Msg("settlement computed")
	return Result{Summary: report.Summary, ArtifactPath: path}, nil
}

func (e *Engine) computeAllTenants(ctx context.Context, req Request, discount float64, id string) (Result, error) {
	if e.Notify != nil {
		e.Notify("computing settlement for every tenant, this can take a while")
	}

	registry, err := e.Sources.ListTenants(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list tenants: %w", err)
	}
	tenants := make([]string, 0, len(registry))
	for label := range registry {
		tenants = append(tenants, label)
	}
	sort.Strings(tenants)

	// Per-tenant runs share no state, so fan out; summaries keep registry
	// enumeration order regardless of completion order.
	summaries := make([]models.TenantSummary, len(tenants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tenantParallelism)
	for i, tenant := range tenants {
		i, tenant := i, tenant
		g.Go(func() error {
			_, _, summary, err := e.runTenant(gctx, tenant, req.StartDate, req.EndDate, discount)
			if err != nil {
				return fmt.Errorf("tenant %s: %w", tenant, err)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	path, err := e.Artifacts.Write(id, artifact.Report{Summary: summaries})
	if err != nil {
		return Result{}, fmt.Errorf("persist artifact: %w", err)
	}
	e.Logger.Info().Int("tenants", len(tenants)).Str("artifact", path).Msg("wildcard settlement computed")
	return Result{Summary: summaries, ArtifactPath: path}, nil
}

// runTenant executes the full per-tenant pipeline: fetch, fuse, derive,
// filter, aggregate, summarize. A failure in any source aborts the run with
// no partial result.
func (e *Engine) runTenant(ctx context.Context, tenant string, start, end time.Time, discount float64) ([]models.MergedAgentRow, []models.AgentSettlement, models.TenantSummary, error) {
	fail := func(stage string, err error) ([]models.MergedAgentRow, []models.AgentSettlement, models.TenantSummary, error) {
		return nil, nil, models.TenantSummary{}, fmt.Errorf("%s: %w", stage, err)
	}

	stats, err := e.Sources.FetchStats(ctx, tenant, start, end)
	if err != nil {
		return fail("fetch stats", err)
	}
	interactions, err := e.Sources.FetchScriptedReplies(ctx, tenant, start, end)
	if err != nil {
		return fail("fetch scripted replies", err)
	}
	coverage, err := e.Sources.FetchShopCoverage(ctx, tenant, start, end)
	if err != nil {
		return fail("fetch shop coverage", err)
	}
	profiles, err := e.Sources.FetchAgentProfiles(ctx, tenant)
	if err != nil {
		return fail("fetch agent profiles", err)
	}
	departments, err := e.Sources.FetchDepartmentAssignments(ctx, tenant)
	if err != nil {
		return fail("fetch departments", err)
	}
	onlineHours, err := e.Sources.FetchOnlineHours(ctx, tenant, start, end)
	if err != nil {
		return fail("fetch online hours", err)
	}

	rows := MergeRows(stats, interactions, coverage, profiles, departments)
	rows = ApplyRowMetrics(rows, e.Config, discount)
	rows = DropSystemRows(rows)

	agents := AggregateAgents(rows, onlineHours, e.Config, discount)
	summary := BuildTenantSummary(tenant, agents, start, end, discount, e.Config, e.now())

	e.Logger.Debug().Str("tenant", tenant).Int("rows", len(rows)).Int("agents", len(agents)).Msg("tenant pipeline done")
	return rows, agents, summary, nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// partitionByPlatform splits merged rows into one sheet per platform, every
// row landing in exactly one sheet. Canonical platforms come first in their
// report order; any leftover label gets its own trailing sheet.
func partitionByPlatform(rows []models.MergedAgentRow) []artifact.PlatformSheet {
	byPlatform := make(map[string][]models.MergedAgentRow)
	for _, row := range rows {
		byPlatform[row.Platform] = append(byPlatform[row.Platform], row)
	}

	sheets := make([]artifact.PlatformSheet, 0, len(platform.Canonical))
	for _, name := range platform.Canonical {
		sheets = append(sheets, artifact.PlatformSheet{Platform: name, Rows: byPlatform[name]})
		delete(byPlatform, name)
	}

	extras := make([]string, 0, len(byPlatform))
	for name := range byPlatform {
		extras = append(extras, name)
	}
	sort.Strings(extras)
	for _, name := range extras {
		sheets = append(sheets, artifact.PlatformSheet{Platform: name, Rows: byPlatform[name]})
	}
	return sheets
}
