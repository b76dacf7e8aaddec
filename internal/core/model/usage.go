package model

import "time"

// TokenCounts holds the four billed token categories.
type TokenCounts struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// Total returns the sum of all categories.
func (t TokenCounts) Total() int {
	return t.InputTokens + t.OutputTokens + t.CacheCreationTokens + t.CacheReadTokens
}

// IsZero reports whether every category is zero.
func (t TokenCounts) IsZero() bool {
	return t.InputTokens == 0 && t.OutputTokens == 0 && t.CacheCreationTokens == 0 && t.CacheReadTokens == 0
}

// Add accumulates other into t.
func (t *TokenCounts) Add(other TokenCounts) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
}

// UsageEntry is one billed assistant response extracted from a session log.
type UsageEntry struct {
	Timestamp time.Time `json:"timestamp"`
	TokenCounts
	CostUSD     *float64 `json:"cost_usd,omitempty"`
	Model       string   `json:"model"`
	SessionID   string   `json:"session_id"`
	Version     string   `json:"version,omitempty"`
	ProjectPath string   `json:"project_path"`
}

// ModelBreakdown is the per-model subtotal inside an aggregate row.
type ModelBreakdown struct {
	Model string `json:"model"`
	TokenCounts
	Cost float64 `json:"cost"`
}

type DailyUsage struct {
	Date string `json:"date"`
	TokenCounts
	TotalCost       float64          `json:"total_cost"`
	ModelsUsed      []string         `json:"models_used"`
	ModelBreakdowns []ModelBreakdown `json:"model_breakdowns"`
}

type MonthlyUsage struct {
	Month string `json:"month"`
	TokenCounts
	TotalCost       float64          `json:"total_cost"`
	ModelsUsed      []string         `json:"models_used"`
	ModelBreakdowns []ModelBreakdown `json:"model_breakdowns"`
}

type SessionUsage struct {
	SessionID   string `json:"session_id"`
	ProjectPath string `json:"project_path"`
	TokenCounts
	TotalCost       float64          `json:"total_cost"`
	LastActivity    time.Time        `json:"last_activity"`
	Versions        []string         `json:"versions"`
	ModelsUsed      []string         `json:"models_used"`
	ModelBreakdowns []ModelBreakdown `json:"model_breakdowns"`
}

// SessionBlock is a 5-hour billing window, or a gap placeholder between two
// windows separated by more than the window length.
type SessionBlock struct {
	ID            string     `json:"id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	ActualEndTime *time.Time `json:"actual_end_time,omitempty"`
	IsActive      bool       `json:"is_active"`
	IsGap         bool       `json:"is_gap"`
	TokenCounts
	CostUSD float64  `json:"cost_usd"`
	Models  []string `json:"models"`

	// Set only for active blocks with a measurable burn window.
	BurnRateTokensPerMinute *float64 `json:"burn_rate_tokens_per_minute,omitempty"`
	BurnRateCostPerHour     *float64 `json:"burn_rate_cost_per_hour,omitempty"`
	ProjectedTotalTokens    *int     `json:"projected_total_tokens,omitempty"`
	ProjectedTotalCost      *float64 `json:"projected_total_cost,omitempty"`
	RemainingMinutes        *int     `json:"remaining_minutes,omitempty"`
}

// HasProjection reports whether burn rate and projections were computed.
func (b *SessionBlock) HasProjection() bool {
	return b.BurnRateTokensPerMinute != nil
}

type UsageSummary struct {
	TotalCost                float64  `json:"total_cost"`
	TotalInputTokens         int      `json:"total_input_tokens"`
	TotalOutputTokens        int      `json:"total_output_tokens"`
	TotalCacheCreationTokens int      `json:"total_cache_creation_tokens"`
	TotalCacheReadTokens     int      `json:"total_cache_read_tokens"`
	TotalTokens              int      `json:"total_tokens"`
	ProjectCount             int      `json:"project_count"`
	SessionCount             int      `json:"session_count"`
	ModelsUsed               []string `json:"models_used"`
	DateRangeStart           string   `json:"date_range_start,omitempty"`
	DateRangeEnd             string   `json:"date_range_end,omitempty"`
}

type DailyUsageList struct {
	Data      []DailyUsage `json:"data"`
	Totals    TokenCounts  `json:"totals"`
	TotalCost float64      `json:"total_cost"`
}

type MonthlyUsageList struct {
	Data      []MonthlyUsage `json:"data"`
	Totals    TokenCounts    `json:"totals"`
	TotalCost float64        `json:"total_cost"`
}

type SessionUsageList struct {
	Data      []SessionUsage `json:"data"`
	Totals    TokenCounts    `json:"totals"`
	TotalCost float64        `json:"total_cost"`
	Total     int            `json:"total"`
}

type BlockUsageList struct {
	Data        []SessionBlock `json:"data"`
	ActiveBlock *SessionBlock  `json:"active_block,omitempty"`
	Totals      TokenCounts    `json:"totals"`
	TotalCost   float64        `json:"total_cost"`
}
