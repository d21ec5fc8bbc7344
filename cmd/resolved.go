package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jibecompany/worklog/internal/config"
	"github.com/jibecompany/worklog/internal/jira"
)

var (
	resolvedProject string
	resolvedSince   string
)

var resolvedCmd = &cobra.Command{
	Use:   "resolved",
	Short: "Export a project's resolved issues as CSV",
	Args:  cobra.NoArgs,
	RunE:  runResolved,
}

func init() {
	resolvedCmd.Flags().StringVarP(&resolvedProject, "project", "p", "", "Jira project key")
	resolvedCmd.Flags().StringVarP(&resolvedSince, "since", "s", "", "Include issues resolved on or after this date (YYYY-MM-DD)")
	_ = resolvedCmd.MarkFlagRequired("project")
	_ = resolvedCmd.MarkFlagRequired("since")
}

// jiraResolvedLayout is the timestamp format of Jira's resolutiondate.
const jiraResolvedLayout = "2006-01-02T15:04:05.000-0700"

func runResolved(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if _, err := parseDayFlag(resolvedSince); err != nil {
		return err
	}

	client, _, err := jira.Connect(ctx, cfg.Jira)
	if err != nil {
		return err
	}

	jql := fmt.Sprintf("project = '%s' AND resolved >= '%s' AND status = Done "+
		"AND resolution in (Done, Fixed) ORDER BY resolved DESC", resolvedProject, resolvedSince)
	issues, err := client.SearchIssues(ctx, jql)
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"type", "key", "summary", "status", "fix_version", "story_points", "resolved", "biweekly"}); err != nil {
		return err
	}
	for _, issue := range issues {
		resolved, err := time.Parse(jiraResolvedLayout, issue.Fields.ResolutionDate)
		if err != nil {
			return fmt.Errorf("issue %s has unexpected resolution date %q: %w", issue.Key, issue.Fields.ResolutionDate, err)
		}

		fixVersion := "N/A"
		if len(issue.Fields.FixVersions) > 0 {
			fixVersion = issue.Fields.FixVersions[0].Name
		}
		// Unestimated issues count as a default two points.
		points := 2.0
		if issue.Fields.StoryPoints != nil && *issue.Fields.StoryPoints > 0 {
			points = *issue.Fields.StoryPoints
		}

		year, week := resolved.ISOWeek()
		biweekly := fmt.Sprintf("%d-%d-%s", year, week/2, resolved.Format("Jan"))

		record := []string{
			issue.Fields.IssueType.Name,
			issue.Key,
			issue.Fields.Summary,
			issue.Fields.Status.Name,
			fixVersion,
			strconv.FormatFloat(points, 'f', -1, 64),
			resolved.Format("2006-01-02"),
			biweekly,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported %d resolved issues of %s\n", len(issues), resolvedProject)
	return nil
}
