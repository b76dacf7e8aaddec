package constants

import "time"

const (
	// Session block window
	SessionDuration        = 5 * time.Hour
	SessionDurationSeconds = int64(5 * 3600)

	// Aggregate and session summary cache lifetime
	CacheTTL = 5 * time.Minute

	// Blocks starting within this many days are considered recent
	DefaultRecentDays = 3
)
