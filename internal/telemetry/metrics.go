package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "go-claude-usage"

// Metrics records cache and loader instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	entriesLoaded metric.Int64Counter
	filesParsed   metric.Int64Counter
	loadDuration  metric.Float64Histogram
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	cacheHits, err := meter.Int64Counter(
		"usage_cache_hits_total",
		metric.WithDescription("Aggregate queries served from cache"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter(
		"usage_cache_misses_total",
		metric.WithDescription("Aggregate queries recomputed from source logs"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache misses counter: %w", err)
	}

	entriesLoaded, err := meter.Int64Counter(
		"usage_entries_loaded_total",
		metric.WithDescription("Usage entries extracted from session logs"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating entries counter: %w", err)
	}

	filesParsed, err := meter.Int64Counter(
		"usage_files_parsed_total",
		metric.WithDescription("Session log files parsed"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating files counter: %w", err)
	}

	loadDuration, err := meter.Float64Histogram(
		"usage_load_duration_seconds",
		metric.WithDescription("Time spent loading usage entries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating load duration histogram: %w", err)
	}

	return &Metrics{
		cacheHits:     cacheHits,
		cacheMisses:   cacheMisses,
		entriesLoaded: entriesLoaded,
		filesParsed:   filesParsed,
		loadDuration:  loadDuration,
	}, nil
}

// Default registers the instruments on the global meter provider, which is a
// no-op until Setup installs an exporter.
func Default() *Metrics {
	m, err := NewMetrics(otel.Meter(meterName))
	if err != nil {
		return nil
	}
	return m
}

func (m *Metrics) CacheHit(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) CacheMiss(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) EntriesLoaded(ctx context.Context, project string, n int) {
	if m == nil {
		return
	}
	m.entriesLoaded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("project", project)))
}

func (m *Metrics) FilesParsed(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.filesParsed.Add(ctx, int64(n))
}

func (m *Metrics) LoadDuration(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.Record(ctx, d.Seconds())
}
