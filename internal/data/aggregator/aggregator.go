package aggregator

import (
	"sort"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/core/pricing"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Aggregator reduces usage entries into daily, monthly and per-session rows.
// Every entry is priced on its own before summing, since tiered pricing is
// not linear in the token count.
type Aggregator struct {
	calc *pricing.CostCalculator
}

func NewAggregator(calc *pricing.CostCalculator) *Aggregator {
	if calc == nil {
		calc = pricing.NewCostCalculator(nil)
	}
	return &Aggregator{calc: calc}
}

// EntryCost returns the recorded or computed cost of one entry.
func (a *Aggregator) EntryCost(entry *model.UsageEntry) float64 {
	return a.calc.EntryCost(entry)
}

// bucket accumulates one partition.
type bucket struct {
	tokens     model.TokenCounts
	cost       float64
	byModel    map[string]*model.ModelBreakdown
	versions   map[string]struct{}
	lastActive time.Time
}

func newBucket() *bucket {
	return &bucket{
		byModel:  make(map[string]*model.ModelBreakdown),
		versions: make(map[string]struct{}),
	}
}

func (b *bucket) add(entry *model.UsageEntry, cost float64) {
	b.tokens.Add(entry.TokenCounts)
	b.cost += cost

	mb, ok := b.byModel[entry.Model]
	if !ok {
		mb = &model.ModelBreakdown{Model: entry.Model}
		b.byModel[entry.Model] = mb
	}
	mb.TokenCounts.Add(entry.TokenCounts)
	mb.Cost += cost

	if entry.Version != "" {
		b.versions[entry.Version] = struct{}{}
	}
	if entry.Timestamp.After(b.lastActive) {
		b.lastActive = entry.Timestamp
	}
}

func (b *bucket) models() []string {
	return sortedKeys(b.byModel)
}

func (b *bucket) breakdowns() []model.ModelBreakdown {
	out := make([]model.ModelBreakdown, 0, len(b.byModel))
	for _, name := range b.models() {
		out = append(out, *b.byModel[name])
	}
	return out
}

func (a *Aggregator) group(entries []model.UsageEntry, key func(*model.UsageEntry) string) map[string]*bucket {
	buckets := make(map[string]*bucket)
	for i := range entries {
		entry := &entries[i]
		k := key(entry)
		b, ok := buckets[k]
		if !ok {
			b = newBucket()
			buckets[k] = b
		}
		b.add(entry, a.EntryCost(entry))
	}
	return buckets
}

// Daily groups entries by calendar date in each timestamp's own offset,
// newest first.
func (a *Aggregator) Daily(entries []model.UsageEntry) []model.DailyUsage {
	buckets := a.group(entries, func(e *model.UsageEntry) string {
		return e.Timestamp.Format(dayLayout)
	})

	keys := sortedKeys(buckets)
	rows := make([]model.DailyUsage, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		b := buckets[keys[i]]
		rows = append(rows, model.DailyUsage{
			Date:            keys[i],
			TokenCounts:     b.tokens,
			TotalCost:       b.cost,
			ModelsUsed:      b.models(),
			ModelBreakdowns: b.breakdowns(),
		})
	}
	return rows
}

// Monthly groups entries by calendar month, newest first.
func (a *Aggregator) Monthly(entries []model.UsageEntry) []model.MonthlyUsage {
	buckets := a.group(entries, func(e *model.UsageEntry) string {
		return e.Timestamp.Format(monthLayout)
	})

	keys := sortedKeys(buckets)
	rows := make([]model.MonthlyUsage, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		b := buckets[keys[i]]
		rows = append(rows, model.MonthlyUsage{
			Month:           keys[i],
			TokenCounts:     b.tokens,
			TotalCost:       b.cost,
			ModelsUsed:      b.models(),
			ModelBreakdowns: b.breakdowns(),
		})
	}
	return rows
}

type sessionKey struct {
	project string
	session string
}

// Sessions groups entries by project and session id, most recently active
// first. Sessions with the same last activity are ordered by project, then id.
func (a *Aggregator) Sessions(entries []model.UsageEntry) []model.SessionUsage {
	buckets := make(map[sessionKey]*bucket)
	for i := range entries {
		entry := &entries[i]
		k := sessionKey{project: entry.ProjectPath, session: entry.SessionID}
		b, ok := buckets[k]
		if !ok {
			b = newBucket()
			buckets[k] = b
		}
		b.add(entry, a.EntryCost(entry))
	}

	rows := make([]model.SessionUsage, 0, len(buckets))
	for k, b := range buckets {
		rows = append(rows, model.SessionUsage{
			SessionID:       k.session,
			ProjectPath:     k.project,
			TokenCounts:     b.tokens,
			TotalCost:       b.cost,
			LastActivity:    b.lastActive,
			Versions:        sortedKeys(b.versions),
			ModelsUsed:      b.models(),
			ModelBreakdowns: b.breakdowns(),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].LastActivity.Equal(rows[j].LastActivity) {
			return rows[i].LastActivity.After(rows[j].LastActivity)
		}
		if rows[i].ProjectPath != rows[j].ProjectPath {
			return rows[i].ProjectPath < rows[j].ProjectPath
		}
		return rows[i].SessionID < rows[j].SessionID
	})
	return rows
}

// ModelBreakdowns returns per-model subtotals sorted by model name.
func (a *Aggregator) ModelBreakdowns(entries []model.UsageEntry) []model.ModelBreakdown {
	b := newBucket()
	for i := range entries {
		b.add(&entries[i], a.EntryCost(&entries[i]))
	}
	return b.breakdowns()
}

// Summary computes overall totals. The date range is omitted when there are
// no entries.
func (a *Aggregator) Summary(entries []model.UsageEntry) model.UsageSummary {
	summary := model.UsageSummary{ModelsUsed: []string{}}
	if len(entries) == 0 {
		return summary
	}

	var tokens model.TokenCounts
	projects := make(map[string]struct{})
	sessions := make(map[sessionKey]struct{})
	models := make(map[string]struct{})
	first, last := entries[0].Timestamp, entries[0].Timestamp

	for i := range entries {
		entry := &entries[i]
		tokens.Add(entry.TokenCounts)
		summary.TotalCost += a.EntryCost(entry)
		projects[entry.ProjectPath] = struct{}{}
		sessions[sessionKey{project: entry.ProjectPath, session: entry.SessionID}] = struct{}{}
		models[entry.Model] = struct{}{}
		if entry.Timestamp.Before(first) {
			first = entry.Timestamp
		}
		if entry.Timestamp.After(last) {
			last = entry.Timestamp
		}
	}

	summary.TotalInputTokens = tokens.InputTokens
	summary.TotalOutputTokens = tokens.OutputTokens
	summary.TotalCacheCreationTokens = tokens.CacheCreationTokens
	summary.TotalCacheReadTokens = tokens.CacheReadTokens
	summary.TotalTokens = tokens.Total()
	summary.ProjectCount = len(projects)
	summary.SessionCount = len(sessions)
	summary.ModelsUsed = sortedKeys(models)
	summary.DateRangeStart = first.Format(dayLayout)
	summary.DateRangeEnd = last.Format(dayLayout)
	return summary
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
