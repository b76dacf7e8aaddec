package pricing

import (
	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"github.com/penwyp/go-claude-usage/internal/core/model"
)

const tokensPerMillion = 1000000.0

// TieredCost prices tokens for one category. Tokens up to threshold use the
// base rate and, when the rate has a tier, the remainder uses the tiered rate.
func TieredCost(tokens int, rate Rate, threshold int) float64 {
	if tokens <= 0 {
		return 0
	}

	if tokens > threshold && rate.HasTier() {
		below := threshold
		above := tokens - threshold
		return (float64(below)*rate.Base + float64(above)*rate.Tiered) / tokensPerMillion
	}

	return float64(tokens) * rate.Base / tokensPerMillion
}

// CostCalculator prices token usage with a Resolver.
type CostCalculator struct {
	resolver  *Resolver
	threshold int
}

// NewCostCalculator creates a calculator using the default tiered threshold.
func NewCostCalculator(resolver *Resolver) *CostCalculator {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &CostCalculator{
		resolver:  resolver,
		threshold: constants.TieredThreshold,
	}
}

// Calculate prices each token category independently. Unknown or empty model
// names cost nothing.
func (c *CostCalculator) Calculate(tokens model.TokenCounts, modelName string) float64 {
	pricing, ok := c.resolver.Resolve(modelName)
	if !ok {
		return 0
	}

	return TieredCost(tokens.InputTokens, pricing.Input, c.threshold) +
		TieredCost(tokens.OutputTokens, pricing.Output, c.threshold) +
		TieredCost(tokens.CacheCreationTokens, pricing.CacheCreation, c.threshold) +
		TieredCost(tokens.CacheReadTokens, pricing.CacheRead, c.threshold)
}

// EntryCost returns the recorded cost of an entry when present, otherwise the
// cost computed from its tokens.
func (c *CostCalculator) EntryCost(entry *model.UsageEntry) float64 {
	if entry.CostUSD != nil {
		return *entry.CostUSD
	}
	return c.Calculate(entry.TokenCounts, entry.Model)
}

// Resolver exposes the underlying resolver.
func (c *CostCalculator) Resolver() *Resolver {
	return c.resolver
}
