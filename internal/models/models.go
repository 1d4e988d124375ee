package models

// UnknownAgentID is the sentinel assigned to department rows whose external
// user id has no match in the agent directory.
const UnknownAgentID int64 = 0

// Unknown is the sentinel value for missing directory and department lookups.
const Unknown = "UNKNOWN"

// InteractionRecord is one pre-aggregated scripted-reply count per
// (platform, agent) over the requested date range.
type InteractionRecord struct {
	Platform           string `json:"platform"`
	AgentID            int64  `json:"agent_id"`
	ScriptedReplyCount int64  `json:"scripted_reply_count"`
}

// StatRecord is the join anchor: one row of service counters per
// (platform, agent) over the requested date range.
type StatRecord struct {
	Platform                 string `json:"platform"`
	AgentID                  int64  `json:"agent_id"`
	TotalReceptions          int64  `json:"total_receptions"`
	TotalQuestions           int64  `json:"total_questions"`
	QuestionsExpectedFromBot int64  `json:"questions_expected_from_bot"`
	QuestionsIdentifiedByBot int64  `json:"questions_identified_by_bot"`
	QuestionsAnsweredByBot   int64  `json:"questions_answered_by_bot"`
}

// ShopCoverageRecord counts the distinct shops an agent served on one platform.
type ShopCoverageRecord struct {
	Platform          string `json:"platform"`
	AgentID           int64  `json:"agent_id"`
	DistinctShopCount int64  `json:"distinct_shop_count"`
}

// AgentProfile is a directory entry. Missing lookups resolve to an Unknown
// profile rather than failing the row.
type AgentProfile struct {
	AgentID     int64  `json:"agent_id"`
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
	MaskedPhone string `json:"masked_phone"`
}

// MergedAgentRow is a StatRecord with scripted replies and shop coverage
// left-joined on, directory/department attached, and row-level derived
// metrics filled in. Rate fields are NaN when their denominator is zero.
type MergedAgentRow struct {
	Platform    string `json:"platform"`
	AgentID     int64  `json:"agent_id"`
	DisplayName string `json:"display_name"`
	MaskedPhone string `json:"masked_phone"`
	Department  string `json:"department"`

	TotalReceptions          int64 `json:"total_receptions"`
	TotalQuestions           int64 `json:"total_questions"`
	QuestionsExpectedFromBot int64 `json:"questions_expected_from_bot"`
	QuestionsIdentifiedByBot int64 `json:"questions_identified_by_bot"`
	QuestionsAnsweredByBot   int64 `json:"questions_answered_by_bot"`
	DistinctShopCount        int64 `json:"distinct_shop_count"`
	ScriptedReplyCount       int64 `json:"scripted_reply_count"`

	RecognitionRate float64 `json:"recognition_rate"`
	ReplyRate       float64 `json:"reply_rate"`
	CoverageRate    float64 `json:"coverage_rate"`

	BotEquivalentReceptions  float64 `json:"bot_equivalent_receptions"`
	EstimatedLaborCost       float64 `json:"estimated_labor_cost"`
	TotalReplies             int64   `json:"total_replies"`
	TrafficRevenue           float64 `json:"traffic_revenue"`
	DiscountLabel            string  `json:"discount_label"`
	DiscountedTrafficRevenue float64 `json:"discounted_traffic_revenue"`
}

// AgentSettlement is one agent's cross-platform aggregate with the seat-based
// billing figures applied.
type AgentSettlement struct {
	AgentID     int64  `json:"agent_id"`
	DisplayName string `json:"display_name"`
	MaskedPhone string `json:"masked_phone"`
	Department  string `json:"department"`

	TotalReceptions          int64 `json:"total_receptions"`
	TotalQuestions           int64 `json:"total_questions"`
	QuestionsExpectedFromBot int64 `json:"questions_expected_from_bot"`
	QuestionsIdentifiedByBot int64 `json:"questions_identified_by_bot"`
	QuestionsAnsweredByBot   int64 `json:"questions_answered_by_bot"`
	DistinctShopCount        int64 `json:"distinct_shop_count"`
	ScriptedReplyCount       int64 `json:"scripted_reply_count"`

	RecognitionRate float64 `json:"recognition_rate"`
	ReplyRate       float64 `json:"reply_rate"`
	CoverageRate    float64 `json:"coverage_rate"`

	BotEquivalentReceptions float64 `json:"bot_equivalent_receptions"`
	EstimatedLaborCost      float64 `json:"estimated_labor_cost"`

	OnlineHours         float64 `json:"online_hours"`
	EstimatedSeatCount  int64   `json:"estimated_seat_count"`
	EstimatedSettlement float64 `json:"estimated_settlement"`
	PromoSeatCount      int64   `json:"promo_seat_count"`
	ActualSettlement    float64 `json:"actual_settlement"`
	SettlementRate      float64 `json:"settlement_rate"`

	TotalReplies             int64   `json:"total_replies"`
	TrafficRevenue           float64 `json:"traffic_revenue"`
	DiscountLabel            string  `json:"discount_label"`
	DiscountedTrafficRevenue float64 `json:"discounted_traffic_revenue"`
}

// TenantSummary is the one-row per-tenant settlement aggregate. Monetary
// aggregates are truncated to whole units at this level, never per agent.
type TenantSummary struct {
	Tenant           string `json:"tenant"`
	Period           string `json:"period"`
	SettledAt        string `json:"settled_at"`
	SettlementMethod string `json:"settlement_method"`
	SeatUnitPrice    int64  `json:"seat_unit_price"`

	EstimatedSeatCount int64 `json:"estimated_seat_count"`
	ActualSeatCount    int64 `json:"actual_seat_count"`

	EstimatedLaborCost  int64  `json:"estimated_labor_cost"`
	EstimatedSettlement int64  `json:"estimated_settlement"`
	ActualSettlement    int64  `json:"actual_settlement"`
	EstimatedSavings    int64  `json:"estimated_savings"`
	PromoWaivedCost     int64  `json:"promo_waived_cost"`
	SettlementRate      string `json:"settlement_rate"`

	TotalReplies             int64  `json:"total_replies"`
	TrafficRevenue           int64  `json:"traffic_revenue"`
	DiscountLabel            string `json:"discount_label"`
	DiscountedTrafficRevenue int64  `json:"discounted_traffic_revenue"`
}
