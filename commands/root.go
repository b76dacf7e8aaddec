package commands

import (
	"github.com/penwyp/go-claude-usage/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	// Configuration
	configPath string
	dataDir    string
	noCache    bool

	// Logging related
	debug bool

	// Output related
	outputFormat string
	timezone     string
	breakdown    bool

	// Filtering
	projectFilter string

	rootCmd = &cobra.Command{
		Use:   "go-claude-usage [command]",
		Short: "Claude Code usage and cost analytics",
		Long: `go-claude-usage reads the JSONL session logs Claude Code writes under
~/.claude/projects and reports token usage and cost.

Costs use tiered model pricing, activity is grouped into 5-hour billing blocks,
and computed views are cached for a few minutes in a local SQLite database.

Examples:
  go-claude-usage                                  # Overall summary
  go-claude-usage daily --since 2025-06-01         # Daily usage since June 1st
  go-claude-usage monthly --output json            # Monthly usage as JSON
  go-claude-usage blocks --active                  # Current 5-hour block with projection
  go-claude-usage session --project <folder>       # Sessions of one project
  go-claude-usage sessions list --sort size        # Largest transcripts first
  go-claude-usage watch                            # Live block view`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSummary,
	}
)

func init() {
	// Input and cache configuration
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile,
		"Config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", "",
		"Claude project directory path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false,
		"Bypass the result cache")

	// Filtering
	rootCmd.PersistentFlags().StringVarP(&projectFilter, "project", "p", "",
		"Restrict to one project folder")

	// Output configuration
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format (table, json, csv)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"Alias for --output")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone for displayed times (e.g., Asia/Shanghai, UTC; overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&breakdown, "breakdown", "b", false,
		"Show per-model rows")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
}

func Execute() error {
	return rootCmd.Execute()
}
