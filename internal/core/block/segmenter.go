package block

import (
	"sort"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// CostFunc prices a single usage entry.
type CostFunc func(entry *model.UsageEntry) float64

// Segmenter splits a usage timeline into fixed-length billing blocks. A block
// opens at the hour of its first entry and closes when an entry falls more than
// one block length after the block start or after the previous entry.
type Segmenter struct {
	cost     CostFunc
	clock    util.Clock
	duration time.Duration
}

func NewSegmenter(cost CostFunc, clock util.Clock) *Segmenter {
	if clock == nil {
		clock = util.SystemClock
	}
	return &Segmenter{
		cost:     cost,
		clock:    clock,
		duration: constants.SessionDuration,
	}
}

// Identify returns the blocks covering entries in chronological order, with a
// gap block between two blocks separated by more than one block length of
// inactivity. The input slice is not modified.
func (s *Segmenter) Identify(entries []model.UsageEntry) []model.SessionBlock {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]model.UsageEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	now := s.clock.Now()
	var (
		blocks  []model.SessionBlock
		start   time.Time
		current []model.UsageEntry
	)

	for _, entry := range sorted {
		if current == nil {
			start = FloorToHour(entry.Timestamp)
			current = []model.UsageEntry{entry}
			continue
		}

		last := current[len(current)-1]
		sinceStart := entry.Timestamp.Sub(start)
		sinceLast := entry.Timestamp.Sub(last.Timestamp)

		if sinceStart > s.duration || sinceLast > s.duration {
			blocks = append(blocks, s.newBlock(start, current, now))
			if sinceLast > s.duration {
				blocks = append(blocks, s.newGap(last.Timestamp, entry.Timestamp))
			}
			start = FloorToHour(entry.Timestamp)
			current = []model.UsageEntry{entry}
			continue
		}

		current = append(current, entry)
	}

	if current != nil {
		blocks = append(blocks, s.newBlock(start, current, now))
	}

	util.LogDebug("Identified session blocks", util.F("entries", len(entries)), util.F("blocks", len(blocks)))
	return blocks
}

func (s *Segmenter) newBlock(start time.Time, entries []model.UsageEntry, now time.Time) model.SessionBlock {
	end := start.Add(s.duration)
	actualEnd := entries[len(entries)-1].Timestamp.UTC()

	block := model.SessionBlock{
		ID:            start.Format(time.RFC3339),
		StartTime:     start,
		EndTime:       end,
		ActualEndTime: &actualEnd,
		IsActive:      now.Sub(actualEnd) < s.duration && now.Before(end),
		Models:        []string{},
	}

	models := make(map[string]struct{})
	for i := range entries {
		block.TokenCounts.Add(entries[i].TokenCounts)
		block.CostUSD += s.cost(&entries[i])
		if _, seen := models[entries[i].Model]; !seen {
			models[entries[i].Model] = struct{}{}
			block.Models = append(block.Models, entries[i].Model)
		}
	}
	sort.Strings(block.Models)

	if block.IsActive && len(entries) > 1 {
		s.project(&block, entries[0].Timestamp, actualEnd, now)
	}
	return block
}

func (s *Segmenter) newGap(lastActivity, nextActivity time.Time) model.SessionBlock {
	gapStart := lastActivity.Add(s.duration).UTC()
	return model.SessionBlock{
		ID:        "gap-" + gapStart.Format(time.RFC3339),
		StartTime: gapStart,
		EndTime:   nextActivity.UTC(),
		IsGap:     true,
		Models:    []string{},
	}
}

// FloorToHour truncates t to the start of its UTC hour.
func FloorToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
