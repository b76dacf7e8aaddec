package commands

import (
	"context"
	"io"

	"github.com/penwyp/go-claude-usage/internal/application/usage"
	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"github.com/penwyp/go-claude-usage/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var (
	// Date filters
	since string
	until string

	// Session view
	sessionLimit int

	// Block view
	blocksAll    bool
	blocksActive bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show total usage and cost",
	RunE:  runSummary,
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show usage per day",
	Long: `Show token usage and cost per calendar day (UTC), newest first.

Examples:
  go-claude-usage daily
  go-claude-usage daily --since 2025-06-01 --until 2025-06-30
  go-claude-usage daily --breakdown --output csv`,
	Args: cobra.NoArgs,
	RunE: runDaily,
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Show usage per month",
	Long: `Show token usage and cost per calendar month (UTC), newest first.

Examples:
  go-claude-usage monthly
  go-claude-usage monthly --since 2025-01 --until 2025-06`,
	Args: cobra.NoArgs,
	RunE: runMonthly,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show usage per session",
	Long:  `Show token usage and cost per session, most recently active first.`,
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Show 5-hour billing blocks",
	Long: `Group activity into 5-hour billing blocks, with idle gaps between them.

The active block reports its burn rate and a projection to the end of the block.
By default only blocks from the last few days are shown.

Examples:
  go-claude-usage blocks
  go-claude-usage blocks --all
  go-claude-usage blocks --active --output json`,
	Args: cobra.NoArgs,
	RunE: runBlocks,
}

func init() {
	rootCmd.AddCommand(summaryCmd, dailyCmd, monthlyCmd, sessionCmd, blocksCmd)

	dailyCmd.Flags().StringVar(&since, "since", "", "First day to include (YYYY-MM-DD)")
	dailyCmd.Flags().StringVar(&until, "until", "", "Last day to include (YYYY-MM-DD)")

	monthlyCmd.Flags().StringVar(&since, "since", "", "First month to include (YYYY-MM)")
	monthlyCmd.Flags().StringVar(&until, "until", "", "Last month to include (YYYY-MM)")

	sessionCmd.Flags().IntVarP(&sessionLimit, "limit", "n", constants.DefaultSessionLimit,
		"Maximum number of sessions")

	blocksCmd.Flags().BoolVar(&blocksAll, "all", false, "Include blocks older than the recent window")
	blocksCmd.Flags().BoolVar(&blocksActive, "active", false, "Only show the active block")
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		summary, err := app.Usage.GetUsageSummary(cmd.Context(), projectFilter)
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.Summary(summary)
	})
}

func runDaily(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		list, err := app.Usage.GetDailyUsage(cmd.Context(), usage.DailyQuery{
			Project: projectFilter,
			Start:   since,
			End:     until,
		})
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.Daily(list)
	})
}

func runMonthly(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		list, err := app.Usage.GetMonthlyUsage(cmd.Context(), usage.MonthlyQuery{
			Project: projectFilter,
			Start:   since,
			End:     until,
		})
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.Monthly(list)
	})
}

func runSession(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		list, err := app.Usage.GetSessionUsage(cmd.Context(), usage.SessionQuery{
			Project: projectFilter,
			Limit:   sessionLimit,
		})
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.Sessions(list)
	})
}

func runBlocks(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		return renderBlocks(cmd.Context(), app, cmd.OutOrStdout(), false)
	})
}

// renderBlocks draws the block view. fresh bypasses cached results so
// activity and projections reflect the current time.
func renderBlocks(ctx context.Context, app *App, out io.Writer, fresh bool, opts ...formatter.Option) error {
	list, err := app.Usage.GetBlockUsage(ctx, usage.BlockQuery{
		Project: projectFilter,
		Recent:  !blocksAll,
		Active:  blocksActive,
		Fresh:   fresh,
	})
	if err != nil {
		return err
	}
	r, err := app.Renderer(out, opts...)
	if err != nil {
		return err
	}
	return r.Blocks(list)
}
