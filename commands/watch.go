package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/penwyp/go-claude-usage/internal/data/watcher"
	"github.com/penwyp/go-claude-usage/internal/presentation/display"
	"github.com/penwyp/go-claude-usage/internal/presentation/formatter"
	"github.com/penwyp/go-claude-usage/internal/util"
	"github.com/spf13/cobra"
)

var (
	watchRefresh  time.Duration
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live 5-hour block view",
	Long: `Redraw the block view whenever a session log changes, and on a fixed
interval so the active block's burn rate and projection stay current.

Changed projects have their cached results dropped before the redraw.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", 30*time.Second,
		"Redraw interval when nothing changes")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond,
		"Wait this long for more writes before redrawing")
	watchCmd.Flags().BoolVar(&blocksAll, "all", false, "Include blocks older than the recent window")
	watchCmd.Flags().BoolVar(&blocksActive, "active", false, "Only show the active block")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchRefresh <= 0 {
		return fmt.Errorf("refresh must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return withApp(ctx, func(app *App) error {
		w, err := watcher.New(app.Config.DataDir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", app.Config.DataDir, err)
		}
		defer w.Close()

		ticker := time.NewTicker(watchRefresh)
		defer ticker.Stop()

		return watchLoop(ctx, app, cmd.OutOrStdout(), watcher.Coalesce(ctx, w.Events(), watchDebounce), ticker.C)
	})
}

// watchLoop redraws on every batch of changed projects and on each refresh
// tick until ctx ends or either channel closes. Ticks recompute blocks against
// the current time instead of reading cached results.
func watchLoop(ctx context.Context, app *App, out io.Writer, changes <-chan []string, ticks <-chan time.Time) error {
	screen := display.NewScreen(out)
	screen.Enter()
	defer screen.Exit()

	width := formatter.TerminalWidth(out)
	draw := func(fresh bool) error {
		return screen.Draw(app.Clock.Now().In(app.Location), func(buf io.Writer) error {
			return renderBlocks(ctx, app, buf, fresh, formatter.WithMaxWidth(width))
		})
	}
	if err := draw(false); err != nil {
		return err
	}

	for {
		fresh := false
		select {
		case <-ctx.Done():
			return nil
		case projects, ok := <-changes:
			if !ok {
				return nil
			}
			invalidateChanged(ctx, app, projects)
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			fresh = true
		}
		if err := draw(fresh); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			util.LogWarn("Redraw failed", util.F("error", err))
		}
	}
}

// invalidateChanged drops cached results that may include the changed
// projects. Unfiltered views span every project, so they are dropped whole.
func invalidateChanged(ctx context.Context, app *App, projects []string) {
	util.LogDebug("Projects changed", util.F("projects", projects))
	if projectFilter != "" && !slices.Contains(projects, projectFilter) {
		return
	}
	if _, err := app.Usage.InvalidateCache(ctx, "", projectFilter); err != nil {
		util.LogWarn("Cache invalidation failed", util.F("project", projectFilter), util.F("error", err))
	}
}
