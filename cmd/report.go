package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jibecompany/worklog/internal/calendar"
	"github.com/jibecompany/worklog/internal/config"
	"github.com/jibecompany/worklog/internal/jira"
	"github.com/jibecompany/worklog/internal/model"
	"github.com/jibecompany/worklog/internal/slack"
)

var (
	reportUser  string
	reportToday string
	reportSlack bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the month's booked hours per day and per ticket",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportUser, "user", "u", "", "Email of the user to report on (default: the configured API user)")
	reportCmd.Flags().StringVar(&reportToday, "today", "", "Target end date (YYYY-MM-DD); defaults to the current date")
	reportCmd.Flags().BoolVar(&reportSlack, "slack", false, "Post the summary to the configured Slack channel")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	today, err := parseDayFlag(reportToday)
	if err != nil {
		return err
	}
	first := calendar.MonthStart(today)

	skip, err := calendar.ParseSkipDays(cfg.SkipDays)
	if err != nil {
		return err
	}

	client, _, err := jira.Connect(ctx, cfg.Jira)
	if err != nil {
		return err
	}

	email := reportUser
	if email == "" {
		email = cfg.Jira.APIUser
	}
	users, err := client.SearchUsers(ctx, email)
	if err != nil {
		return err
	}
	if len(users) != 1 {
		for _, u := range users {
			fmt.Printf("  %s :: %s\n", u.DisplayName, u.AccountID)
		}
		return fmt.Errorf("expected exactly one user matching %q, found %d", email, len(users))
	}
	user := users[0]

	worklogs, err := client.UserWorklogs(ctx, user.AccountID, first, today)
	if err != nil {
		return err
	}
	fmt.Println("Found worklogs of", user.DisplayName)

	text := renderReport(worklogs, calendar.ReverseWorkdays(first, today, skip))
	fmt.Print(text)

	if reportSlack {
		poster := slack.New(cfg.Slack.BotToken, cfg.Slack.Channel)
		if err := poster.PostMessage(ctx, text); err != nil {
			return err
		}
		fmt.Println("Summary was posted to slack channel.")
	}
	return nil
}

// renderReport builds the daily and per-ticket summary text for the
// given workdays (newest first).
func renderReport(worklogs map[string][]model.WorklogEntry, days []time.Time) string {
	var b strings.Builder

	ticketHours := map[string]float64{}
	var ticketOrder []string
	var total float64

	b.WriteString("* Daily summary *\n")
	for _, day := range days {
		entries := worklogs[model.DayKey(day)]
		if len(entries) == 0 {
			continue
		}

		distinct := map[string]struct{}{}
		var hours float64
		for _, e := range entries {
			distinct[e.Issue] = struct{}{}
			hours += e.Hours
			if _, seen := ticketHours[e.Issue]; !seen {
				ticketOrder = append(ticketOrder, e.Issue)
			}
			ticketHours[e.Issue] += e.Hours
		}
		total += hours

		names := make([]string, 0, len(distinct))
		for issue := range distinct {
			names = append(names, issue)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "  -  %s: %5.1f (%s)\n", model.DayKey(day), hours, strings.Join(names, ", "))
	}

	b.WriteString("\n* Ticket summary *\n")
	for _, issue := range ticketOrder {
		fmt.Fprintf(&b, "  -  %-10s: %6.1f h\n", issue, ticketHours[issue])
	}
	b.WriteString("               -----------\n")
	fmt.Fprintf(&b, "       (total)   %6.1f h\n", total)
	return b.String()
}
