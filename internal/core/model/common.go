package model

// Model identifiers
const (
	ModelUnknown  = "unknown"
	ModelHaiku3   = "claude-3-haiku-20240307"
	ModelHaiku35  = "claude-3-5-haiku-20241022"
	ModelSonnet35 = "claude-3-5-sonnet-20241022"
	ModelSonnet4  = "claude-sonnet-4-20250514"
	ModelOpus4    = "claude-opus-4-20250514"
	ModelOpus45   = "claude-opus-4-5-20251101"
)

// Log record types
const (
	EntryAssistant = "assistant"
	EntryUser      = "user"
	EntrySummary   = "summary"
)

// Content item types
const (
	ContentText    = "text"
	ContentToolUse = "tool_use"
)

// Query kinds used as cache key prefixes and cache_type values
const (
	KindSummary = "summary"
	KindDaily   = "daily"
	KindMonthly = "monthly"
	KindSession = "session"
	KindBlock   = "block"
)
