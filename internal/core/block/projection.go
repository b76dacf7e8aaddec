package block

import (
	"math"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
)

// project fills burn rate and end-of-block projections. Nothing is set when
// the first and last entries share a timestamp.
func (s *Segmenter) project(block *model.SessionBlock, first, last, now time.Time) {
	durationMinutes := last.Sub(first).Minutes()
	if durationMinutes <= 0 {
		return
	}

	totalTokens := block.Total()
	tokensPerMinute := float64(totalTokens) / durationMinutes
	costPerHour := block.CostUSD / durationMinutes * 60

	remaining := int(block.EndTime.Sub(now).Minutes())
	if remaining < 0 {
		remaining = 0
	}

	projectedTokens := int(float64(totalTokens) + tokensPerMinute*float64(remaining))
	projectedCost := roundCents(block.CostUSD + costPerHour/60*float64(remaining))

	block.BurnRateTokensPerMinute = &tokensPerMinute
	block.BurnRateCostPerHour = &costPerHour
	block.RemainingMinutes = &remaining
	block.ProjectedTotalTokens = &projectedTokens
	block.ProjectedTotalCost = &projectedCost
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
