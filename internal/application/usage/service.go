package usage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/block"
	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/data/aggregator"
	"github.com/penwyp/go-claude-usage/internal/data/cache"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// ErrInvalidDateFilter reports a malformed date or month bound.
var ErrInvalidDateFilter = errors.New("invalid date filter")

// EntrySource supplies usage entries for one project, or for every project
// when project is empty.
type EntrySource interface {
	Load(ctx context.Context, project string) ([]model.UsageEntry, error)
}

// Options tunes a Service; zero values take the defaults.
type Options struct {
	// RecentDays bounds the "recent" block filter; defaults to 3.
	RecentDays int
	Clock      util.Clock
}

// Service answers usage queries. Results are recomputed from the logs and
// kept in the query cache until they go stale or are invalidated.
type Service struct {
	source     EntrySource
	aggregator *aggregator.Aggregator
	segmenter  *block.Segmenter
	cache      *cache.QueryCache
	clock      util.Clock
	recentDays int
}

// NewService builds a Service over source. A nil qc runs uncached.
func NewService(source EntrySource, agg *aggregator.Aggregator, qc *cache.QueryCache, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock
	}
	if opts.RecentDays <= 0 {
		opts.RecentDays = constants.DefaultRecentDays
	}
	return &Service{
		source:     source,
		aggregator: agg,
		segmenter:  block.NewSegmenter(agg.EntryCost, opts.Clock),
		cache:      qc,
		clock:      opts.Clock,
		recentDays: opts.RecentDays,
	}
}

// DailyQuery selects days for GetDailyUsage.
type DailyQuery struct {
	Project string
	// Start and End are inclusive YYYY-MM-DD bounds; empty means open.
	Start string
	End   string
}

// MonthlyQuery selects months for GetMonthlyUsage.
type MonthlyQuery struct {
	Project string
	// Start and End are inclusive YYYY-MM bounds; empty means open.
	Start string
	End   string
}

// SessionQuery selects sessions for GetSessionUsage; Limit <= 0 means the default.
type SessionQuery struct {
	Project string
	Limit   int
}

// BlockQuery selects blocks for GetBlockUsage.
type BlockQuery struct {
	Project string
	Recent  bool
	Active  bool
	// Fresh skips the cached result. Activity, burn rate and projections are
	// recomputed against the current time and the result is cached again.
	Fresh bool
}

// GetUsageSummary returns totals across all entries of project.
func (s *Service) GetUsageSummary(ctx context.Context, project string) (*model.UsageSummary, error) {
	key := cache.BuildKey(model.KindSummary, project, nil)

	var summary model.UsageSummary
	if s.cache.Get(ctx, model.KindSummary, key, &summary) {
		return &summary, nil
	}

	entries, err := s.source.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	summary = s.aggregator.Summary(entries)
	if len(entries) == 0 {
		return &summary, nil
	}

	s.cache.Put(ctx, model.KindSummary, key, project, summary)
	return &summary, nil
}

func (s *Service) GetDailyUsage(ctx context.Context, q DailyQuery) (*model.DailyUsageList, error) {
	from, to, err := dayRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}

	key := cache.BuildKey(model.KindDaily, q.Project, map[string]string{"start": q.Start, "end": q.End})
	var result model.DailyUsageList
	if s.cache.Get(ctx, model.KindDaily, key, &result) {
		return &result, nil
	}

	entries, err := s.source.Load(ctx, q.Project)
	if err != nil {
		return nil, err
	}

	result.Data = s.aggregator.Daily(filterRange(entries, from, to))
	for i := range result.Data {
		result.Totals.Add(result.Data[i].TokenCounts)
		result.TotalCost += result.Data[i].TotalCost
	}

	s.cache.Put(ctx, model.KindDaily, key, q.Project, result)
	return &result, nil
}

func (s *Service) GetMonthlyUsage(ctx context.Context, q MonthlyQuery) (*model.MonthlyUsageList, error) {
	from, to, err := monthRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}

	key := cache.BuildKey(model.KindMonthly, q.Project, map[string]string{"start": q.Start, "end": q.End})
	var result model.MonthlyUsageList
	if s.cache.Get(ctx, model.KindMonthly, key, &result) {
		return &result, nil
	}

	entries, err := s.source.Load(ctx, q.Project)
	if err != nil {
		return nil, err
	}

	result.Data = s.aggregator.Monthly(filterRange(entries, from, to))
	for i := range result.Data {
		result.Totals.Add(result.Data[i].TokenCounts)
		result.TotalCost += result.Data[i].TotalCost
	}

	s.cache.Put(ctx, model.KindMonthly, key, q.Project, result)
	return &result, nil
}

// GetSessionUsage returns the most recently active sessions. Total counts
// every session; Totals and TotalCost cover only the returned page.
func (s *Service) GetSessionUsage(ctx context.Context, q SessionQuery) (*model.SessionUsageList, error) {
	if q.Limit <= 0 {
		q.Limit = constants.DefaultSessionLimit
	}

	key := cache.BuildKey(model.KindSession, q.Project, map[string]string{"limit": strconv.Itoa(q.Limit)})
	var result model.SessionUsageList
	if s.cache.Get(ctx, model.KindSession, key, &result) {
		return &result, nil
	}

	entries, err := s.source.Load(ctx, q.Project)
	if err != nil {
		return nil, err
	}

	sessions := s.aggregator.Sessions(entries)
	result.Total = len(sessions)
	if len(sessions) > q.Limit {
		sessions = sessions[:q.Limit]
	}
	result.Data = sessions
	for i := range result.Data {
		result.Totals.Add(result.Data[i].TokenCounts)
		result.TotalCost += result.Data[i].TotalCost
	}

	s.cache.Put(ctx, model.KindSession, key, q.Project, result)
	return &result, nil
}

// GetBlockUsage segments the timeline into billing blocks, newest first.
// ActiveBlock is the earliest active block; totals skip gap blocks.
func (s *Service) GetBlockUsage(ctx context.Context, q BlockQuery) (*model.BlockUsageList, error) {
	key := cache.BuildKey(model.KindBlock, q.Project, map[string]string{
		"recent": strconv.FormatBool(q.Recent),
		"active": strconv.FormatBool(q.Active),
	})
	var result model.BlockUsageList
	if !q.Fresh && s.cache.Get(ctx, model.KindBlock, key, &result) {
		return &result, nil
	}

	entries, err := s.source.Load(ctx, q.Project)
	if err != nil {
		return nil, err
	}

	blocks := s.segmenter.Identify(entries)
	if q.Recent {
		blocks = block.FilterRecent(blocks, s.recentDays, s.clock.Now())
	}
	if q.Active {
		blocks = block.FilterActive(blocks)
	}

	result.ActiveBlock = block.FindActive(blocks)
	result.Totals, result.TotalCost = block.Totals(blocks)

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartTime.After(blocks[j].StartTime)
	})
	if blocks == nil {
		blocks = []model.SessionBlock{}
	}
	result.Data = blocks

	s.cache.Put(ctx, model.KindBlock, key, q.Project, result)
	return &result, nil
}

// InvalidateCache drops cached results by kind and project; empty values
// match everything.
func (s *Service) InvalidateCache(ctx context.Context, kind, project string) (int64, error) {
	n, err := s.cache.Invalidate(ctx, kind, project)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return n, nil
}

func filterRange(entries []model.UsageEntry, from, to time.Time) []model.UsageEntry {
	if from.IsZero() && to.IsZero() {
		return entries
	}
	out := make([]model.UsageEntry, 0, len(entries))
	for _, e := range entries {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Timestamp.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// dayRange parses inclusive YYYY-MM-DD bounds into a UTC half-open range.
func dayRange(start, end string) (from, to time.Time, err error) {
	if start != "" {
		if from, err = time.Parse(time.DateOnly, start); err != nil {
			return from, to, fmt.Errorf("%w: start date %q: want YYYY-MM-DD", ErrInvalidDateFilter, start)
		}
	}
	if end != "" {
		if to, err = time.Parse(time.DateOnly, end); err != nil {
			return from, to, fmt.Errorf("%w: end date %q: want YYYY-MM-DD", ErrInvalidDateFilter, end)
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// monthRange parses inclusive YYYY-MM bounds into a UTC half-open range.
func monthRange(start, end string) (from, to time.Time, err error) {
	const layout = "2006-01"
	if start != "" {
		if from, err = time.Parse(layout, start); err != nil {
			return from, to, fmt.Errorf("%w: start month %q: want YYYY-MM", ErrInvalidDateFilter, start)
		}
	}
	if end != "" {
		if to, err = time.Parse(layout, end); err != nil {
			return from, to, fmt.Errorf("%w: end month %q: want YYYY-MM", ErrInvalidDateFilter, end)
		}
		to = to.AddDate(0, 1, 0)
	}
	return from, to, nil
}
