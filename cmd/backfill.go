package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jibecompany/worklog/internal/backfill"
	"github.com/jibecompany/worklog/internal/calendar"
	"github.com/jibecompany/worklog/internal/config"
	"github.com/jibecompany/worklog/internal/gitlog"
	"github.com/jibecompany/worklog/internal/jira"
	"github.com/jibecompany/worklog/internal/model"
	"github.com/jibecompany/worklog/internal/tickets"
)

var (
	backfillToday       string
	backfillCurrentTask string
	backfillPublish     bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill missing worklog entries from commit evidence",
	Long: `backfill walks the workdays of the month (newest first), compares the
hours already booked in Jira against the daily target and plans the
entries needed to close the gap, attributing them to the tickets
referenced by that day's commits. A ticket left over from a later day
carries into earlier days without commit evidence of their own.

Without --publish the plan is only printed. Publishing is not
idempotent: run it again only after the previous publish is visible in
Jira, or the same hours are booked twice.`,
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillToday, "today", "", "Target end date (YYYY-MM-DD); defaults to the current date")
	backfillCmd.Flags().StringVar(&backfillCurrentTask, "current-task", "", "Ticket currently in progress, seeds the carry-over")
	backfillCmd.Flags().BoolVar(&backfillPublish, "publish", false, "Write the planned entries to Jira")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	today, err := parseDayFlag(backfillToday)
	if err != nil {
		return err
	}
	first := calendar.MonthStart(today)

	skip, err := calendar.ParseSkipDays(cfg.SkipDays)
	if err != nil {
		return err
	}
	extractor, err := tickets.New(cfg.TicketPattern, cfg.Tickets.Aliases)
	if err != nil {
		return err
	}

	client, me, err := jira.Connect(ctx, cfg.Jira)
	if err != nil {
		return err
	}
	ledger, err := client.UserWorklogs(ctx, me.AccountID, first, today)
	if err != nil {
		return err
	}

	messages, err := commitMessagesByDay(cmd, cfg, first, today)
	if err != nil {
		return err
	}

	var meeting *backfill.MeetingSpec
	if cfg.DailyMeeting != nil {
		meeting = &backfill.MeetingSpec{Issue: cfg.DailyMeeting.Issue, Hours: cfg.DailyMeeting.Hours}
	}

	plans, err := backfill.Plan(backfill.Params{
		Start:       first,
		End:         today,
		Skip:        skip,
		TargetHours: cfg.DailyTarget,
		Meeting:     meeting,
		Existing:    ledger,
		Messages:    messages,
		Extractor:   extractor,
		CurrentTask: backfillCurrentTask,
		Author:      me.DisplayName,
	})
	if err != nil {
		return err
	}

	printPlans(plans)

	if !backfillPublish {
		fmt.Println("\nPreview only; re-run with --publish to write these entries.")
		return nil
	}
	return publishPlans(cmd, client, plans)
}

// commitMessagesByDay merges the commit history of all configured
// repositories into a day-keyed map of subjects, newest first within
// each day.
func commitMessagesByDay(cmd *cobra.Command, cfg config.Config, first, last time.Time) (map[string][]string, error) {
	var refs []model.CommitRef
	for _, repo := range cfg.Repositories {
		entries, err := gitlog.Entries(cmd.Context(), repo, first, last, cfg.GitAuthor)
		if err != nil {
			return nil, err
		}
		refs = append(refs, entries...)
	}

	// Newest first across repositories; the extractor relies on this
	// order to rank tickets by most recent mention.
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].Date.Equal(refs[j].Date) {
			return refs[i].Date.After(refs[j].Date)
		}
		return refs[i].Clock > refs[j].Clock
	})

	messages := map[string][]string{}
	for _, ref := range refs {
		key := model.DayKey(ref.Date)
		messages[key] = append(messages[key], ref.Message)
	}
	return messages, nil
}

// printPlans writes the per-day preview. The output is identical with
// and without --publish.
func printPlans(plans []backfill.DayPlan) {
	fmt.Println("\n* Backfill plan *")
	for _, plan := range plans {
		day := model.DayKey(plan.Day)
		if len(plan.Entries) == 0 {
			fmt.Printf("  -  %s: no action needed (%.1fh booked)\n", day, plan.Booked)
			continue
		}
		fmt.Printf("  -  %s: %.1fh booked, adding %d entries\n", day, plan.Booked, len(plan.Entries))
		for _, e := range plan.Entries {
			fmt.Printf("         %-10s %5.2fh\n", e.Issue, e.Hours)
		}
	}
}

// publishPlans writes every planned entry to Jira. Entries are
// independent, so a failed entry is reported and the rest are still
// attempted; the summary counts both.
func publishPlans(cmd *cobra.Command, client *jira.Client, plans []backfill.DayPlan) error {
	var published, failed int
	for _, plan := range plans {
		for _, e := range plan.Entries {
			if err := client.AddWorklog(cmd.Context(), e.Issue, e.Date, e.Hours); err != nil {
				fmt.Fprintf(os.Stderr, "publish %s %.2fh on %s: %v\n", e.Issue, e.Hours, e.Day(), err)
				failed++
				continue
			}
			fmt.Printf("Published %.2fh on %s for %s\n", e.Hours, e.Day(), e.Issue)
			published++
		}
	}

	fmt.Printf("\nPublished %d entries", published)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d of %d entries failed to publish", failed, published+failed)
	}
	return nil
}
