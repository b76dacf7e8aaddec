package commands

import (
	"fmt"

	"github.com/penwyp/go-claude-usage/internal/application/sessions"
	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"github.com/spf13/cobra"
)

var (
	sessionsLimit int
	sessionsSort  string
	sessionsOrder string
	sessionsPage  int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse session transcripts",
	Long:  `List projects and sessions, and read a session's conversations page by page.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List session transcripts with their summary, size and message counts.

Examples:
  go-claude-usage sessions list                       # 50 most recent sessions
  go-claude-usage sessions list --sort size -n 10     # 10 largest sessions
  go-claude-usage sessions list --project <folder>    # Sessions of one project`,
	Args: cobra.NoArgs,
	RunE: runSessionsList,
}

var sessionsProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with session counts",
	Args:  cobra.NoArgs,
	RunE:  runSessionsProjects,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's conversations",
	Long: `Show the conversations of one session, five prompts per page.

Examples:
  go-claude-usage sessions show 0a1b2c3d --project -home-me-app
  go-claude-usage sessions show 0a1b2c3d --project -home-me-app --page 2`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsShow,
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session activity statistics",
	Args:  cobra.NoArgs,
	RunE:  runSessionsStats,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsProjectsCmd, sessionsShowCmd, sessionsStatsCmd)

	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", constants.DefaultSessionLimit,
		"Maximum number of sessions")
	sessionsListCmd.Flags().StringVar(&sessionsSort, "sort", sessions.SortByDate,
		"Sort by date or size")
	sessionsListCmd.Flags().StringVar(&sessionsOrder, "order", sessions.OrderDesc,
		"Sort order (desc, asc)")

	sessionsShowCmd.Flags().IntVar(&sessionsPage, "page", 1, "Page of conversations")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		list, err := app.Sessions.ListSessions(cmd.Context(), sessions.ListQuery{
			Project: projectFilter,
			Limit:   sessionsLimit,
			SortBy:  sessionsSort,
			Order:   sessionsOrder,
		})
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.SessionList(list)
	})
}

func runSessionsProjects(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		list, err := app.Sessions.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.Projects(list)
	})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	if projectFilter == "" {
		return fmt.Errorf("--project is required to locate session %s", args[0])
	}
	return withApp(cmd.Context(), func(app *App) error {
		page, err := app.Sessions.GetSessionDetail(cmd.Context(), args[0], projectFilter, sessionsPage)
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.SessionDetail(page)
	})
}

func runSessionsStats(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *App) error {
		stats, err := app.Sessions.GetDashboardStats(cmd.Context())
		if err != nil {
			return err
		}
		r, err := app.Renderer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.Stats(stats)
	})
}
