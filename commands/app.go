package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/penwyp/go-claude-usage/internal/application/sessions"
	"github.com/penwyp/go-claude-usage/internal/application/usage"
	"github.com/penwyp/go-claude-usage/internal/config"
	"github.com/penwyp/go-claude-usage/internal/core/pricing"
	"github.com/penwyp/go-claude-usage/internal/core/project"
	"github.com/penwyp/go-claude-usage/internal/data/aggregator"
	"github.com/penwyp/go-claude-usage/internal/data/cache"
	"github.com/penwyp/go-claude-usage/internal/data/loader"
	"github.com/penwyp/go-claude-usage/internal/data/parser"
	"github.com/penwyp/go-claude-usage/internal/data/scanner"
	"github.com/penwyp/go-claude-usage/internal/presentation/formatter"
	"github.com/penwyp/go-claude-usage/internal/telemetry"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// App holds the services shared by every command.
type App struct {
	Config       *config.Config
	Usage        *usage.Service
	Sessions     *sessions.Service
	SessionCache *cache.SessionCache
	Location     *time.Location
	Clock        util.Clock

	store    cache.Store
	shutdown telemetry.ShutdownFunc
}

// appClock is the time source handed to the services and caches.
var appClock = util.SystemClock

// loadConfig reads the config file and applies the persistent flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = config.ExpandPath(dataDir)
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newApp loads configuration and wires logging, telemetry, the cache store
// and both services. Callers must Close the result.
func newApp(ctx context.Context) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := util.InitLogger(cfg.Log.Level, cfg.Log.File, debug); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tp, err := util.NewTimeProvider(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Insecure: cfg.Telemetry.Insecure,
		Version:  Version,
	})
	if err != nil {
		util.LogWarn("Telemetry disabled", util.F("error", err))
	}
	metrics := telemetry.Default()

	var store cache.Store
	if cfg.Cache.Enabled {
		s, err := cache.OpenSQLite(cfg.Cache.Path)
		if err != nil {
			// Run uncached when the store cannot be opened.
			util.LogWarn("Cache unavailable", util.F("path", cfg.Cache.Path), util.F("error", err))
		} else {
			store = s
		}
	}

	fileScanner := scanner.NewFileScanner(cfg.DataDir)
	p := parser.NewParser(cfg.Concurrency)
	agg := aggregator.NewAggregator(pricing.NewCostCalculator(nil))

	var (
		qc *cache.QueryCache
		sc *cache.SessionCache
	)
	if store != nil {
		qc = cache.NewQueryCache(store, cfg.Cache.TTL, appClock, metrics)
		sc = cache.NewSessionCache(store, cfg.Cache.TTL, appClock, metrics)
	}

	util.LogDebug("Application ready",
		util.F("data_dir", cfg.DataDir),
		util.F("cache", store != nil),
		util.F("timezone", tp.Location().String()))

	return &App{
		Config: cfg,
		Usage: usage.NewService(loader.NewLoader(fileScanner, p, metrics), agg, qc, usage.Options{
			RecentDays: cfg.RecentDays,
			Clock:      appClock,
		}),
		Sessions:     sessions.NewService(fileScanner, p, sc, project.NewNameResolver(), appClock),
		SessionCache: sc,
		Location:     tp.Location(),
		Clock:        appClock,
		store:        store,
		shutdown:     shutdown,
	}, nil
}

// Renderer returns a renderer for the --output format.
func (a *App) Renderer(out io.Writer, opts ...formatter.Option) (*formatter.Renderer, error) {
	format, err := formatter.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	opts = append([]formatter.Option{
		formatter.WithLocation(a.Location),
		formatter.WithBreakdown(breakdown),
	}, opts...)
	return formatter.NewRenderer(out, format, opts...), nil
}

// Close flushes telemetry and releases the cache store and log outputs.
func (a *App) Close() error {
	var errs []error
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.shutdown(ctx))
		cancel()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if logger := util.GetLogger(); logger != nil {
		errs = append(errs, logger.Close())
		util.SetLogger(nil)
	}
	return errors.Join(errs...)
}

// withApp runs fn with a fresh App, closing it afterwards.
func withApp(ctx context.Context, fn func(*App) error) error {
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
