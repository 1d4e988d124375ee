package settlement

import (
	"github.com/settlement_center/backend/internal/models"
)

type joinKey struct {
	platform string
	agentID  int64
}

// MergeRows left-joins scripted replies and shop coverage onto the stat
// anchor by (platform, agent). Unmatched joins fill as zero so downstream
// arithmetic is always defined. Directory and department lookups attach by
// agent id alone; missing entries resolve to the Unknown sentinel.
func MergeRows(
	stats []models.StatRecord,
	interactions []models.InteractionRecord,
	coverage []models.ShopCoverageRecord,
	profiles map[int64]models.AgentProfile,
	departments map[int64]string,
) []models.MergedAgentRow {
	scripted := make(map[joinKey]int64, len(interactions))
	for _, rec := range interactions {
		scripted[joinKey{rec.Platform, rec.AgentID}] += rec.ScriptedReplyCount
	}
	shops := make(map[joinKey]int64, len(coverage))
	for _, rec := range coverage {
		shops[joinKey{rec.Platform, rec.AgentID}] = rec.DistinctShopCount
	}

	rows := make([]models.MergedAgentRow, 0, len(stats))
	for _, stat := range stats {
		key := joinKey{stat.Platform, stat.AgentID}
		row := models.MergedAgentRow{
			Platform:                 stat.Platform,
			AgentID:                  stat.AgentID,
			TotalReceptions:          stat.TotalReceptions,
			TotalQuestions:           stat.TotalQuestions,
			QuestionsExpectedFromBot: stat.QuestionsExpectedFromBot,
			QuestionsIdentifiedByBot: stat.QuestionsIdentifiedByBot,
			QuestionsAnsweredByBot:   stat.QuestionsAnsweredByBot,
			DistinctShopCount:        shops[key],
			ScriptedReplyCount:       scripted[key],
		}

		if profile, ok := profiles[stat.AgentID]; ok {
			row.DisplayName = profile.DisplayName
			row.MaskedPhone = profile.MaskedPhone
		} else {
			row.DisplayName = models.Unknown
			row.MaskedPhone = models.Unknown
		}
		if dept, ok := departments[stat.AgentID]; ok {
			row.Department = dept
		} else {
			row.Department = models.Unknown
		}

		rows = append(rows, row)
	}
	return rows
}
