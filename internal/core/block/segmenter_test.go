package block

import (
	"testing"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// thousandthCost prices an entry at one dollar per thousand input tokens.
func thousandthCost(e *model.UsageEntry) float64 {
	return float64(e.InputTokens) / 1000
}

func at(offset time.Duration, input int) model.UsageEntry {
	return model.UsageEntry{
		Timestamp:   base.Add(offset),
		TokenCounts: model.TokenCounts{InputTokens: input},
		Model:       model.ModelHaiku3,
		SessionID:   "s",
		ProjectPath: "p",
	}
}

func newSegmenter(now time.Time) *Segmenter {
	return NewSegmenter(thousandthCost, util.FixedClock(now))
}

func TestIdentifyEmpty(t *testing.T) {
	assert.Empty(t, newSegmenter(base).Identify(nil))
}

func TestIdentifyGapBetweenBlocks(t *testing.T) {
	entries := []model.UsageEntry{
		at(0, 1000),
		at(4*time.Hour, 1000),
		at(10*time.Hour, 1000),
	}

	blocks := newSegmenter(base.Add(30 * 24 * time.Hour)).Identify(entries)
	require.Len(t, blocks, 3)

	first := blocks[0]
	assert.False(t, first.IsGap)
	assert.Equal(t, base, first.StartTime)
	assert.Equal(t, base.Add(5*time.Hour), first.EndTime)
	require.NotNil(t, first.ActualEndTime)
	assert.Equal(t, base.Add(4*time.Hour), *first.ActualEndTime)
	assert.Equal(t, "2025-06-01T00:00:00Z", first.ID)
	assert.Equal(t, 2000, first.InputTokens)
	assert.InDelta(t, 2.0, first.CostUSD, 1e-12)

	gap := blocks[1]
	assert.True(t, gap.IsGap)
	assert.False(t, gap.IsActive)
	assert.Equal(t, base.Add(9*time.Hour), gap.StartTime)
	assert.Equal(t, base.Add(10*time.Hour), gap.EndTime)
	assert.Equal(t, "gap-2025-06-01T09:00:00Z", gap.ID)
	assert.Nil(t, gap.ActualEndTime)
	assert.True(t, gap.TokenCounts.IsZero())
	assert.Zero(t, gap.CostUSD)
	assert.Empty(t, gap.Models)

	second := blocks[2]
	assert.False(t, second.IsGap)
	assert.Equal(t, base.Add(10*time.Hour), second.StartTime)
	assert.Equal(t, 1000, second.InputTokens)
}

func TestIdentifyClosesOnElapsedSinceStart(t *testing.T) {
	entries := []model.UsageEntry{
		at(30*time.Minute, 1),
		at(3*time.Hour, 1),
		at(5*time.Hour+10*time.Minute, 1),
	}

	blocks := newSegmenter(base.Add(30 * 24 * time.Hour)).Identify(entries)
	require.Len(t, blocks, 2, "no gap block when only the block length is exceeded")
	assert.Equal(t, base, blocks[0].StartTime, "start is floored to the hour")
	assert.Equal(t, base.Add(5*time.Hour), blocks[1].StartTime)
	assert.False(t, blocks[1].IsGap)
}

func TestIdentifyBoundaryIsInclusive(t *testing.T) {
	entries := []model.UsageEntry{
		at(0, 1),
		at(5*time.Hour, 1),
	}

	blocks := newSegmenter(base.Add(30 * 24 * time.Hour)).Identify(entries)
	require.Len(t, blocks, 1, "exactly one block length after the start stays in the block")
	assert.Equal(t, 2, blocks[0].InputTokens)
}

func TestIdentifySortsUnorderedInput(t *testing.T) {
	entries := []model.UsageEntry{
		at(10*time.Hour, 1),
		at(0, 1),
	}

	blocks := newSegmenter(base.Add(30 * 24 * time.Hour)).Identify(entries)
	require.Len(t, blocks, 3)
	assert.Equal(t, base, blocks[0].StartTime)
	assert.Equal(t, base.Add(10*time.Hour), entries[0].Timestamp, "input is left untouched")
}

func TestIdentifyFloorsToUTCHour(t *testing.T) {
	zone := time.FixedZone("IST", 5*3600+30*60)
	e := at(0, 1)
	e.Timestamp = time.Date(2025, 6, 1, 10, 45, 0, 0, zone)

	blocks := newSegmenter(base).Identify([]model.UsageEntry{e})
	require.Len(t, blocks, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC), blocks[0].StartTime)
}

func TestIdentifyDistinctModels(t *testing.T) {
	a := at(0, 1)
	b := at(time.Minute, 1)
	b.Model = model.ModelOpus4
	c := at(2*time.Minute, 1)

	blocks := newSegmenter(base).Identify([]model.UsageEntry{a, b, c})
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{model.ModelHaiku3, model.ModelOpus4}, blocks[0].Models)
}

func TestActiveBlockDetection(t *testing.T) {
	entries := []model.UsageEntry{at(10*time.Hour, 1000), at(11*time.Hour, 2000)}

	t.Run("last entry three hours ago", func(t *testing.T) {
		blocks := newSegmenter(base.Add(14 * time.Hour)).Identify(entries)
		require.Len(t, blocks, 1)
		assert.True(t, blocks[0].IsActive)
	})

	t.Run("last entry six hours ago", func(t *testing.T) {
		blocks := newSegmenter(base.Add(17 * time.Hour)).Identify(entries)
		require.Len(t, blocks, 1)
		assert.False(t, blocks[0].IsActive)
		assert.False(t, blocks[0].HasProjection())
	})

	t.Run("nominal end reached", func(t *testing.T) {
		blocks := newSegmenter(base.Add(15 * time.Hour)).Identify(entries)
		assert.False(t, blocks[0].IsActive)
	})
}

func TestBurnRateProjection(t *testing.T) {
	entries := []model.UsageEntry{at(10*time.Hour, 1000), at(11*time.Hour, 2000)}
	blocks := newSegmenter(base.Add(14 * time.Hour)).Identify(entries)
	require.Len(t, blocks, 1)
	b := blocks[0]
	require.True(t, b.HasProjection())

	assert.InDelta(t, 50.0, *b.BurnRateTokensPerMinute, 1e-9)
	assert.InDelta(t, 3.0, *b.BurnRateCostPerHour, 1e-9)
	assert.Equal(t, 60, *b.RemainingMinutes)
	assert.Equal(t, 6000, *b.ProjectedTotalTokens)
	assert.Equal(t, 6.0, *b.ProjectedTotalCost)
}

func TestProjectionRoundsCostAndTruncatesMinutes(t *testing.T) {
	entries := []model.UsageEntry{at(10*time.Hour, 1000), at(10*time.Hour+7*time.Minute, 1)}
	now := base.Add(10*time.Hour + 30*time.Minute + 30*time.Second)

	blocks := newSegmenter(now).Identify(entries)
	b := blocks[0]
	require.True(t, b.HasProjection())

	assert.Equal(t, 269, *b.RemainingMinutes)
	expectedCost := 1.001 + (1.001/7)*269
	assert.InDelta(t, expectedCost, *b.ProjectedTotalCost, 0.005)
	assert.Equal(t, *b.ProjectedTotalCost, roundCents(*b.ProjectedTotalCost))
}

func TestNoProjectionWithoutBurnWindow(t *testing.T) {
	now := base.Add(11 * time.Hour)

	t.Run("single entry", func(t *testing.T) {
		blocks := newSegmenter(now).Identify([]model.UsageEntry{at(10*time.Hour, 1)})
		require.True(t, blocks[0].IsActive)
		assert.False(t, blocks[0].HasProjection())
	})

	t.Run("zero duration", func(t *testing.T) {
		blocks := newSegmenter(now).Identify([]model.UsageEntry{at(10*time.Hour, 1), at(10*time.Hour, 2)})
		require.True(t, blocks[0].IsActive)
		assert.False(t, blocks[0].HasProjection())
		assert.Nil(t, blocks[0].ProjectedTotalCost)
		assert.Nil(t, blocks[0].RemainingMinutes)
	})
}
