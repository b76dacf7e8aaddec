package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/core/pricing"
	"github.com/penwyp/go-claude-usage/internal/data/aggregator"
	"github.com/penwyp/go-claude-usage/internal/data/cache"
	"github.com/penwyp/go-claude-usage/internal/data/loader"
	"github.com/penwyp/go-claude-usage/internal/data/parser"
	"github.com/penwyp/go-claude-usage/internal/data/scanner"
	"github.com/penwyp/go-claude-usage/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = "-home-me-app"

var (
	day1 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	gen     *fixtures.Generator
	store   *cache.MemoryStore
	clock   *stepClock
	service *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	clock := &stepClock{now: day2.Add(13 * time.Hour)}
	store := cache.NewMemoryStore()

	l := loader.NewLoader(scanner.NewFileScanner(root), parser.NewParser(4), nil)
	agg := aggregator.NewAggregator(pricing.NewCostCalculator(nil))
	qc := cache.NewQueryCache(store, 5*time.Minute, clock, nil)

	return &harness{
		gen:     fixtures.NewGenerator(root),
		store:   store,
		clock:   clock,
		service: NewService(l, agg, qc, Options{Clock: clock}),
	}
}

// writeFixture lays out three sessions over two days: small haiku usage and
// large opus usage, one opus call crossing the tiered threshold.
func writeFixture(t *testing.T, gen *fixtures.Generator) {
	t.Helper()

	_, err := gen.WriteSession(project, "s1",
		fixtures.User(day1.Add(9*time.Hour+55*time.Minute), "summarize the repo"),
		fixtures.Assistant(day1.Add(10*time.Hour), model.ModelHaiku3, fixtures.Usage{InputTokens: 100, OutputTokens: 50}),
		fixtures.Assistant(day1.Add(11*time.Hour), model.ModelOpus4, fixtures.Usage{InputTokens: 250000, OutputTokens: 1000}),
	)
	require.NoError(t, err)

	_, err = gen.WriteSession(project, "s2",
		fixtures.Assistant(day2.Add(9*time.Hour), model.ModelOpus4, fixtures.Usage{InputTokens: 1000, OutputTokens: 500},
			fixtures.ToolUse("Read")),
	)
	require.NoError(t, err)

	_, err = gen.WriteRaw(project, "s3",
		`{"type":"assistant","timestamp":"2025-03-02T12:00:00Z","sessionId":"s3","message":{"model":"claude-3-haiku-20240307","usage":{"input_tokens":200,"output_tokens":100}}}`,
		`{"type":"assistant","timestamp":"2025-03-02T12:30:00Z","message":{"model":"claude-3-haiku-20240307","usage":{"input_tokens":0,"output_tokens":0}}}`,
		`{"type":"assistant","timestamp":"not a time","message":{"usage":{"input_tokens":5}}}`,
		`{broken json`,
	)
	require.NoError(t, err)
}

const (
	tieredOpusCost = (200000*15.0+50000*30.0)/1e6 + 1000*75.0/1e6
	smallOpusCost  = 1000*15.0/1e6 + 500*75.0/1e6
	haikuDay1Cost  = 100*0.25/1e6 + 50*1.25/1e6
	haikuDay2Cost  = 200*0.25/1e6 + 100*1.25/1e6
)

func TestDailyUsageEndToEnd(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)

	daily, err := h.service.GetDailyUsage(context.Background(), DailyQuery{})
	require.NoError(t, err)
	require.Len(t, daily.Data, 2)

	assert.Equal(t, "2025-03-02", daily.Data[0].Date)
	assert.Equal(t, "2025-03-01", daily.Data[1].Date)

	first := daily.Data[1]
	assert.InDelta(t, 4.575, tieredOpusCost, 1e-9)
	assert.InDelta(t, tieredOpusCost+haikuDay1Cost, first.TotalCost, 1e-9)
	assert.Equal(t, 250100, first.InputTokens)
	require.Len(t, first.ModelBreakdowns, 2)
	assert.Equal(t, model.ModelHaiku3, first.ModelBreakdowns[0].Model)
	assert.Equal(t, model.ModelOpus4, first.ModelBreakdowns[1].Model)
	assert.InDelta(t, tieredOpusCost, first.ModelBreakdowns[1].Cost, 1e-9)

	assert.InDelta(t, smallOpusCost+haikuDay2Cost, daily.Data[0].TotalCost, 1e-9)
	assert.Equal(t, 251300, daily.Totals.InputTokens)
	assert.InDelta(t, tieredOpusCost+haikuDay1Cost+smallOpusCost+haikuDay2Cost, daily.TotalCost, 1e-9)
}

func TestDailyUsageDateFilters(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	ctx := context.Background()

	onlyDay2, err := h.service.GetDailyUsage(ctx, DailyQuery{Start: "2025-03-02"})
	require.NoError(t, err)
	require.Len(t, onlyDay2.Data, 1)
	assert.Equal(t, "2025-03-02", onlyDay2.Data[0].Date)

	onlyDay1, err := h.service.GetDailyUsage(ctx, DailyQuery{End: "2025-03-01"})
	require.NoError(t, err)
	require.Len(t, onlyDay1.Data, 1)
	assert.Equal(t, "2025-03-01", onlyDay1.Data[0].Date)

	none, err := h.service.GetDailyUsage(ctx, DailyQuery{Start: "2025-04-01", Project: project})
	require.NoError(t, err)
	assert.Empty(t, none.Data)
	assert.Zero(t, none.TotalCost)

	for _, q := range []DailyQuery{{Start: "2025/03/01"}, {End: "yesterday"}, {Start: "2025-02-30"}} {
		_, err := h.service.GetDailyUsage(ctx, q)
		assert.ErrorIs(t, err, ErrInvalidDateFilter, "%+v", q)
	}
}

func TestMonthlyUsage(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	ctx := context.Background()

	monthly, err := h.service.GetMonthlyUsage(ctx, MonthlyQuery{Start: "2025-03", End: "2025-03"})
	require.NoError(t, err)
	require.Len(t, monthly.Data, 1)
	assert.Equal(t, "2025-03", monthly.Data[0].Month)
	assert.Equal(t, []string{model.ModelHaiku3, model.ModelOpus4}, monthly.Data[0].ModelsUsed)
	assert.InDelta(t, tieredOpusCost+haikuDay1Cost+smallOpusCost+haikuDay2Cost, monthly.TotalCost, 1e-9)

	later, err := h.service.GetMonthlyUsage(ctx, MonthlyQuery{Start: "2025-04"})
	require.NoError(t, err)
	assert.Empty(t, later.Data)

	earlier, err := h.service.GetMonthlyUsage(ctx, MonthlyQuery{End: "2025-02"})
	require.NoError(t, err)
	assert.Empty(t, earlier.Data)

	_, err = h.service.GetMonthlyUsage(ctx, MonthlyQuery{End: "2025-13"})
	assert.ErrorIs(t, err, ErrInvalidDateFilter)
}

func TestSessionUsageLimit(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)

	sessions, err := h.service.GetSessionUsage(context.Background(), SessionQuery{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, sessions.Total)
	require.Len(t, sessions.Data, 2)
	assert.Equal(t, "s3", sessions.Data[0].SessionID)
	assert.Equal(t, "s2", sessions.Data[1].SessionID)
	assert.Equal(t, project, sessions.Data[0].ProjectPath)
	assert.Equal(t, 1200, sessions.Totals.InputTokens)
	assert.InDelta(t, smallOpusCost+haikuDay2Cost, sessions.TotalCost, 1e-9)

	all, err := h.service.GetSessionUsage(context.Background(), SessionQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Data, 3)
	assert.Equal(t, []string{"1.0.30"}, all.Data[2].Versions)
}

func TestBlockUsage(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	ctx := context.Background()

	blocks, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true})
	require.NoError(t, err)
	require.Len(t, blocks.Data, 3)

	current, gap, earlier := blocks.Data[0], blocks.Data[1], blocks.Data[2]
	assert.True(t, current.StartTime.Equal(day2.Add(9*time.Hour)))
	assert.True(t, current.IsActive)
	assert.True(t, gap.IsGap)
	assert.True(t, gap.StartTime.Equal(day1.Add(16*time.Hour)))
	assert.True(t, gap.EndTime.Equal(day2.Add(9*time.Hour)))
	assert.True(t, earlier.StartTime.Equal(day1.Add(10*time.Hour)))
	assert.False(t, earlier.IsActive)

	require.NotNil(t, blocks.ActiveBlock)
	assert.Equal(t, current.ID, blocks.ActiveBlock.ID)
	require.True(t, blocks.ActiveBlock.HasProjection())
	assert.InDelta(t, 10.0, *blocks.ActiveBlock.BurnRateTokensPerMinute, 1e-9)
	assert.Equal(t, 60, *blocks.ActiveBlock.RemainingMinutes)
	assert.Equal(t, 2400, *blocks.ActiveBlock.ProjectedTotalTokens)

	assert.Equal(t, 251300, blocks.Totals.InputTokens)

	active, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true, Active: true})
	require.NoError(t, err)
	require.Len(t, active.Data, 1)
	assert.True(t, active.Data[0].IsActive)
	assert.Equal(t, 1200, active.Totals.InputTokens)
}

func TestBlockUsageRecentWindow(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	h.clock.Advance(10 * 24 * time.Hour)

	recent, err := h.service.GetBlockUsage(context.Background(), BlockQuery{Recent: true})
	require.NoError(t, err)
	assert.Empty(t, recent.Data)
	assert.Nil(t, recent.ActiveBlock)

	all, err := h.service.GetBlockUsage(context.Background(), BlockQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Data, 3)
	assert.Nil(t, all.ActiveBlock)
}

func TestBlockUsageFreshRecomputesProjection(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	ctx := context.Background()

	first, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true})
	require.NoError(t, err)
	require.NotNil(t, first.ActiveBlock)
	assert.Equal(t, 60, *first.ActiveBlock.RemainingMinutes)

	h.clock.Advance(4 * time.Minute)

	cached, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true})
	require.NoError(t, err)
	assert.Equal(t, 60, *cached.ActiveBlock.RemainingMinutes)

	fresh, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true, Fresh: true})
	require.NoError(t, err)
	require.NotNil(t, fresh.ActiveBlock)
	assert.Equal(t, 56, *fresh.ActiveBlock.RemainingMinutes)
	assert.Equal(t, 1800+56*10, *fresh.ActiveBlock.ProjectedTotalTokens)

	// The fresh result replaces the cached one.
	again, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true})
	require.NoError(t, err)
	assert.Equal(t, 56, *again.ActiveBlock.RemainingMinutes)

	// Past the block end nothing is active any more.
	h.clock.Advance(time.Hour)
	ended, err := h.service.GetBlockUsage(ctx, BlockQuery{Recent: true, Fresh: true})
	require.NoError(t, err)
	assert.Nil(t, ended.ActiveBlock)
	assert.False(t, ended.Data[0].IsActive)
}

func TestUsageSummary(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)

	summary, err := h.service.GetUsageSummary(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ProjectCount)
	assert.Equal(t, 3, summary.SessionCount)
	assert.Equal(t, 251300, summary.TotalInputTokens)
	assert.Equal(t, 251300+1650, summary.TotalTokens)
	assert.Equal(t, []string{model.ModelHaiku3, model.ModelOpus4}, summary.ModelsUsed)
	assert.Equal(t, "2025-03-01", summary.DateRangeStart)
	assert.Equal(t, "2025-03-02", summary.DateRangeEnd)
}

func TestUsageSummaryEmptyIsNotCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	summary, err := h.service.GetUsageSummary(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalCost)
	assert.Empty(t, summary.ModelsUsed)
	assert.Empty(t, summary.DateRangeStart)

	_, err = h.store.GetQuery(ctx, cache.BuildKey(model.KindSummary, "", nil))
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestResultsServedFromCacheUntilStale(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	ctx := context.Background()

	first, err := h.service.GetDailyUsage(ctx, DailyQuery{})
	require.NoError(t, err)

	_, err = h.gen.WriteSession(project, "s4",
		fixtures.Assistant(day2.Add(12*time.Hour), model.ModelOpus4, fixtures.Usage{InputTokens: 10}))
	require.NoError(t, err)

	cached, err := h.service.GetDailyUsage(ctx, DailyQuery{})
	require.NoError(t, err)
	assert.Equal(t, first.Totals, cached.Totals)

	h.clock.Advance(5*time.Minute + time.Second)
	fresh, err := h.service.GetDailyUsage(ctx, DailyQuery{})
	require.NoError(t, err)
	assert.Equal(t, first.Totals.InputTokens+10, fresh.Totals.InputTokens)
}

func TestInvalidateCache(t *testing.T) {
	h := newHarness(t)
	writeFixture(t, h.gen)
	ctx := context.Background()

	before, err := h.service.GetSessionUsage(ctx, SessionQuery{Project: project})
	require.NoError(t, err)
	_, err = h.service.GetUsageSummary(ctx, project)
	require.NoError(t, err)

	_, err = h.gen.WriteSession(project, "s4",
		fixtures.Assistant(day2.Add(12*time.Hour), model.ModelOpus4, fixtures.Usage{InputTokens: 10}))
	require.NoError(t, err)

	n, err := h.service.InvalidateCache(ctx, model.KindSession, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after, err := h.service.GetSessionUsage(ctx, SessionQuery{Project: project})
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, after.Total)

	// the summary was untouched by a session-only invalidation
	summary, err := h.service.GetUsageSummary(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.SessionCount)

	n, err = h.service.InvalidateCache(ctx, "", project)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

type failingSource struct{ err error }

func (f failingSource) Load(context.Context, string) ([]model.UsageEntry, error) {
	return nil, f.err
}

func TestLoadErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	agg := aggregator.NewAggregator(pricing.NewCostCalculator(nil))
	svc := NewService(failingSource{err: boom}, agg, nil, Options{})
	ctx := context.Background()

	_, err := svc.GetUsageSummary(ctx, "")
	assert.ErrorIs(t, err, boom)
	_, err = svc.GetDailyUsage(ctx, DailyQuery{})
	assert.ErrorIs(t, err, boom)
	_, err = svc.GetMonthlyUsage(ctx, MonthlyQuery{})
	assert.ErrorIs(t, err, boom)
	_, err = svc.GetSessionUsage(ctx, SessionQuery{})
	assert.ErrorIs(t, err, boom)
	_, err = svc.GetBlockUsage(ctx, BlockQuery{})
	assert.ErrorIs(t, err, boom)
}

func TestUncachedServiceStillAnswers(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, fixtures.NewGenerator(root))

	l := loader.NewLoader(scanner.NewFileScanner(root), parser.NewParser(2), nil)
	agg := aggregator.NewAggregator(pricing.NewCostCalculator(nil))
	svc := NewService(l, agg, nil, Options{})

	daily, err := svc.GetDailyUsage(context.Background(), DailyQuery{})
	require.NoError(t, err)
	assert.Len(t, daily.Data, 2)

	n, err := svc.InvalidateCache(context.Background(), "", "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
