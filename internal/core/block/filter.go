package block

import (
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
)

// FilterRecent keeps blocks that started within the last days days, plus any
// active block regardless of age.
func FilterRecent(blocks []model.SessionBlock, days int, now time.Time) []model.SessionBlock {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]model.SessionBlock, 0, len(blocks))
	for _, b := range blocks {
		if !b.StartTime.Before(cutoff) || b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

// FilterActive keeps only active blocks.
func FilterActive(blocks []model.SessionBlock) []model.SessionBlock {
	out := make([]model.SessionBlock, 0, 1)
	for _, b := range blocks {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

// FindActive returns the first active block, if any.
func FindActive(blocks []model.SessionBlock) *model.SessionBlock {
	for i := range blocks {
		if blocks[i].IsActive {
			b := blocks[i]
			return &b
		}
	}
	return nil
}

// Totals sums tokens and cost over non-gap blocks.
func Totals(blocks []model.SessionBlock) (model.TokenCounts, float64) {
	var tokens model.TokenCounts
	var cost float64
	for _, b := range blocks {
		if b.IsGap {
			continue
		}
		tokens.Add(b.TokenCounts)
		cost += b.CostUSD
	}
	return tokens, cost
}
