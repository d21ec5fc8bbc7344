package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jibecompany/worklog/internal/config"
	"github.com/jibecompany/worklog/internal/model"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "Reconcile Jira worklogs against git commit history",
	Long: `worklog compares the hours booked in Jira with the commit history of
your repositories and synthesizes the missing worklog entries needed to
reach the daily target. The plan is always previewed; nothing is
written to Jira unless --publish is given.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the TOML configuration file")
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(resolvedCmd)
}

// parseDayFlag parses a --today style YYYY-MM-DD value, defaulting to
// the current date when empty. Days are normalized to UTC midnight so
// they compare cleanly with dates parsed from git and Jira.
func parseDayFlag(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(model.DayFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return day, nil
}
