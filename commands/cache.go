package commands

import (
	"fmt"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/spf13/cobra"
)

var cacheKind string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached results",
	Long: `Delete cached query results and session summaries.

--kind limits the deletion to one view (summary, daily, monthly, session, block,
or sessions for transcript summaries); --project limits it to one project.

Examples:
  go-claude-usage cache clear
  go-claude-usage cache clear --kind daily
  go-claude-usage cache clear --project -home-me-app`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

// cacheKindSessions selects the transcript summary cache in --kind.
const cacheKindSessions = "sessions"

var validCacheKinds = map[string]bool{
	"":                 true,
	model.KindSummary:  true,
	model.KindDaily:    true,
	model.KindMonthly:  true,
	model.KindSession:  true,
	model.KindBlock:    true,
	cacheKindSessions: true,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().StringVar(&cacheKind, "kind", "",
		"Only clear one kind (summary, daily, monthly, session, block, sessions)")
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if !validCacheKinds[cacheKind] {
		return fmt.Errorf("unknown cache kind %q", cacheKind)
	}

	return withApp(cmd.Context(), func(app *App) error {
		var queries, summaries int64
		var err error

		if cacheKind != cacheKindSessions {
			if queries, err = app.Usage.InvalidateCache(cmd.Context(), cacheKind, projectFilter); err != nil {
				return err
			}
		}
		if cacheKind == "" || cacheKind == cacheKindSessions {
			if summaries, err = app.SessionCache.Invalidate(cmd.Context(), projectFilter); err != nil {
				return fmt.Errorf("failed to invalidate session cache: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached results and %d session summaries\n", queries, summaries)
		return nil
	})
}
