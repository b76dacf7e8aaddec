package constants

const (
	// Tokens per category billed at the base rate before tiered pricing applies
	TieredThreshold = 200000

	DefaultSessionLimit = 50
	PromptsPerPage      = 5

	SummaryMaxLength  = 200
	PromptPreviewSize = 100

	NoSummary = "(no summary)"
)
