package db

import (
	"context"
	"math"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/settlement_center/backend/internal/models"
	"github.com/settlement_center/backend/internal/platform"
)

// scriptedIntentTypes are the canned-reply intent buckets counted as
// scripted replies in the reply distribution feed.
var scriptedIntentTypes = []int32{9991, 9992, 9993, 9994, 9995, 9996, 9997, 9998}

const scriptedReplySource = "GroupReplyByService"

// reservedDomains are internal registry labels never billed as tenants.
var reservedDomains = map[string]struct{}{
	"":      {},
	"total": {},
	"demo":  {},
}

var controlChars = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}\x{202A}-\x{202E}]`)

// Store wraps the settlement database. Every fetch normalizes platform
// labels before rows leave this package, so all join keys agree.
type Store struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func New(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool, Logger: logger}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

type platformAgentKey struct {
	platform string
	agentID  int64
}

// FetchScriptedReplies returns scripted-reply counts per (platform, agent).
// Rows whose raw platforms collapse to one canonical label are re-summed
// after normalization.
func (s *Store) FetchScriptedReplies(ctx context.Context, tenant string, start, end time.Time) ([]models.InteractionRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT platform, agent_id, SUM(total)
		FROM reply_distribution
		WHERE tenant = $1 AND stat_date >= $2 AND stat_date <= $3
			AND source = $4 AND intent_type = ANY($5)
		GROUP BY platform, agent_id
	`, tenant, start, end, scriptedReplySource, scriptedIntentTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	merged := map[platformAgentKey]int64{}
	order := []platformAgentKey{}
	for rows.Next() {
		var (
			rawPlatform string
			agentID     int64
			total       int64
		)
		if err := rows.Scan(&rawPlatform, &agentID, &total); err != nil {
			return nil, err
		}
		key := platformAgentKey{platform.Normalize(rawPlatform), agentID}
		if _, ok := merged[key]; !ok {
			order = append(order, key)
		}
		merged[key] += total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.InteractionRecord, 0, len(order))
	for _, key := range order {
		out = append(out, models.InteractionRecord{
			Platform:           key.platform,
			AgentID:            key.agentID,
			ScriptedReplyCount: merged[key],
		})
	}
	return out, nil
}

// FetchStats returns the anchor counter rows per (platform, agent).
func (s *Store) FetchStats(ctx context.Context, tenant string, start, end time.Time) ([]models.StatRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT platform, agent_id, SUM(num_reception), SUM(num_question),
			SUM(num_question_expected), SUM(num_question_identified), SUM(num_question_answered)
		FROM agent_stats
		WHERE tenant = $1 AND stat_date >= $2 AND stat_date <= $3
		GROUP BY platform, agent_id
	`, tenant, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	merged := map[platformAgentKey]*models.StatRecord{}
	order := []platformAgentKey{}
	for rows.Next() {
		var (
			rawPlatform string
			rec         models.StatRecord
		)
		if err := rows.Scan(&rawPlatform, &rec.AgentID, &rec.TotalReceptions, &rec.TotalQuestions,
			&rec.QuestionsExpectedFromBot, &rec.QuestionsIdentifiedByBot, &rec.QuestionsAnsweredByBot); err != nil {
			return nil, err
		}
		key := platformAgentKey{platform.Normalize(rawPlatform), rec.AgentID}
		agg, ok := merged[key]
		if !ok {
			rec.Platform = key.platform
			merged[key] = &rec
			order = append(order, key)
			continue
		}
		agg.TotalReceptions += rec.TotalReceptions
		agg.TotalQuestions += rec.TotalQuestions
		agg.QuestionsExpectedFromBot += rec.QuestionsExpectedFromBot
		agg.QuestionsIdentifiedByBot += rec.QuestionsIdentifiedByBot
		agg.QuestionsAnsweredByBot += rec.QuestionsAnsweredByBot
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.StatRecord, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out, nil
}

// FetchShopCoverage counts distinct shops per (platform, agent). Distinctness
// is taken after normalization so one shop listed under both halves of a
// merged marketplace family counts once.
func (s *Store) FetchShopCoverage(ctx context.Context, tenant string, start, end time.Time) ([]models.ShopCoverageRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT platform, agent_id, shop_id
		FROM agent_shops
		WHERE tenant = $1 AND stat_date >= $2 AND stat_date <= $3
	`, tenant, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type shopKey struct {
		platformAgentKey
		shopID string
	}
	seen := map[shopKey]struct{}{}
	counts := map[platformAgentKey]int64{}
	order := []platformAgentKey{}
	for rows.Next() {
		var (
			rawPlatform string
			agentID     int64
			shopID      string
		)
		if err := rows.Scan(&rawPlatform, &agentID, &shopID); err != nil {
			return nil, err
		}
		key := platformAgentKey{platform.Normalize(rawPlatform), agentID}
		sk := shopKey{key, shopID}
		if _, dup := seen[sk]; dup {
			continue
		}
		seen[sk] = struct{}{}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.ShopCoverageRecord, 0, len(order))
	for _, key := range order {
		out = append(out, models.ShopCoverageRecord{
			Platform:          key.platform,
			AgentID:           key.agentID,
			DistinctShopCount: counts[key],
		})
	}
	return out, nil
}

// FetchAgentProfiles loads the agent directory: display names with control
// characters stripped and phone numbers masked to prefix3 + **** + last4.
func (s *Store) FetchAgentProfiles(ctx context.Context, tenant string) (map[int64]models.AgentProfile, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, external_id, name, mobile FROM agents WHERE tenant = $1
	`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]models.AgentProfile{}
	for rows.Next() {
		var (
			id         int64
			externalID string
			name       string
			mobile     string
		)
		if err := rows.Scan(&id, &externalID, &name, &mobile); err != nil {
			return nil, err
		}
		out[id] = models.AgentProfile{
			AgentID:     id,
			ExternalID:  externalID,
			DisplayName: controlChars.ReplaceAllString(name, ""),
			MaskedPhone: maskPhone(mobile),
		}
	}
	return out, rows.Err()
}

// FetchDepartmentAssignments resolves each agent to the deepest "/"-joined
// department path. The department tree is keyed by external user ids, which
// are mapped back to agent ids through the directory; unmatched external ids
// are logged and assigned the sentinel agent id 0.
func (s *Store) FetchDepartmentAssignments(ctx context.Context, tenant string) (map[int64]string, error) {
	profiles, err := s.FetchAgentProfiles(ctx, tenant)
	if err != nil {
		return nil, err
	}
	externalToAgent := make(map[string]int64, len(profiles))
	for id, profile := range profiles {
		externalToAgent[profile.ExternalID] = id
	}

	rows, err := s.Pool.Query(ctx, `
		WITH RECURSIVE dept_paths AS (
			SELECT ext_department_id, parent_ext_department_id, 1 AS depth, name::text AS path
			FROM departments
			WHERE tenant = $1
			UNION ALL
			SELECT d.ext_department_id, d.parent_ext_department_id, p.depth + 1, p.path || '/' || d.name
			FROM departments d
			JOIN dept_paths p
				ON d.parent_ext_department_id = p.ext_department_id
				AND d.parent_ext_department_id <> 0
			WHERE d.tenant = $1
		),
		deepest AS (
			SELECT DISTINCT ON (ext_department_id) ext_department_id, path
			FROM dept_paths
			ORDER BY ext_department_id, depth DESC
		)
		SELECT ad.ext_user_id, dp.path
		FROM agent_departments ad
		LEFT JOIN deepest dp ON dp.ext_department_id = ad.ext_department_id
		WHERE ad.tenant = $1
	`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]string{}
	for rows.Next() {
		var (
			extUserID string
			path      *string
		)
		if err := rows.Scan(&extUserID, &path); err != nil {
			return nil, err
		}
		agentID, ok := externalToAgent[extUserID]
		if !ok {
			s.Logger.Warn().Str("tenant", tenant).Str("ext_user_id", extUserID).Msg("department external user id not in directory")
			agentID = models.UnknownAgentID
		}
		if path == nil {
			out[agentID] = models.Unknown
		} else {
			out[agentID] = *path
		}
	}
	return out, rows.Err()
}

// FetchOnlineHours sums per-agent online seconds over the range, as hours
// rounded to 2dp.
func (s *Store) FetchOnlineHours(ctx context.Context, tenant string, start, end time.Time) (map[int64]float64, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT agent_id, SUM(online_seconds)
		FROM agent_online_time
		WHERE tenant = $1 AND stat_date >= $2 AND stat_date <= $3
		GROUP BY agent_id
	`, tenant, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]float64{}
	for rows.Next() {
		var (
			agentID int64
			seconds int64
		)
		if err := rows.Scan(&agentID, &seconds); err != nil {
			return nil, err
		}
		out[agentID] = math.Round(float64(seconds)/3600*100) / 100
	}
	return out, rows.Err()
}

// ListTenants maps registered tenant domains to organization ids, excluding
// reserved internal labels.
func (s *Store) ListTenants(ctx context.Context) (map[string]int64, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, domain FROM organizations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			id     int64
			domain string
		)
		if err := rows.Scan(&id, &domain); err != nil {
			return nil, err
		}
		if _, reserved := reservedDomains[domain]; reserved {
			continue
		}
		out[domain] = id
	}
	return out, rows.Err()
}

func maskPhone(mobile string) string {
	if len(mobile) < 7 {
		return mobile
	}
	return mobile[:3] + "****" + mobile[len(mobile)-4:]
}
