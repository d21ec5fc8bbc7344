package cmd

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jibecompany/worklog/internal/calendar"
	"github.com/jibecompany/worklog/internal/config"
	"github.com/jibecompany/worklog/internal/gitlog"
	"github.com/jibecompany/worklog/internal/model"
	"github.com/jibecompany/worklog/internal/slack"
)

var (
	activityToday string
	activityWeeks int
	activitySlack bool
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show weekly commit activity per author across the repositories",
	Args:  cobra.NoArgs,
	RunE:  runActivity,
}

func init() {
	activityCmd.Flags().StringVar(&activityToday, "today", "", "Target end date (YYYY-MM-DD); defaults to the current date")
	activityCmd.Flags().IntVar(&activityWeeks, "weeks", 0, "Weeks of history to include (default: weeks_behind from config)")
	activityCmd.Flags().BoolVar(&activitySlack, "slack", false, "Post the table to the configured Slack channel")
}

// commitStats is one commit's contribution to its author's week.
type commitStats struct {
	author     string
	insertions int
	deletions  int
	tickets    []string
}

// weekStats accumulates an author's activity within one ISO week.
type weekStats struct {
	insertions int
	deletions  int
	tickets    map[string]struct{}
}

// score is the weekly coding score: insertions weighted double,
// averaged down so a pure-deletion week still counts.
func (w *weekStats) score() float64 {
	if w == nil {
		return 0
	}
	return float64(w.insertions*2+w.deletions) / 3
}

func runActivity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	last, err := parseDayFlag(activityToday)
	if err != nil {
		return err
	}
	weeks := activityWeeks
	if weeks <= 0 {
		weeks = cfg.WeeksBehind
	}
	// Back up the requested number of weeks, then snap to that week's
	// Monday so every included week is complete.
	behind := last.AddDate(0, 0, -7*weeks)
	first := behind.AddDate(0, 0, -mondayOffset(behind))

	var ignore *regexp.Regexp
	if cfg.IgnoreFilePattern != "" {
		ignore = regexp.MustCompile(cfg.IgnoreFilePattern)
	}
	ticketRe, err := regexp.Compile(cfg.TicketPattern)
	if err != nil {
		return err
	}

	commitsByDay := map[string][]commitStats{}
	authors := map[string]struct{}{}
	for _, repo := range cfg.Repositories {
		history, actions, err := gitlog.Actions(ctx, repo, first, last, ignore)
		if err != nil {
			return err
		}
		for _, c := range history {
			var ins, del int
			for _, a := range actions[c.Hash] {
				if a.Insertions > 0 {
					ins += a.Insertions
				}
				if a.Deletions > 0 {
					del += a.Deletions
				}
			}
			authors[c.Author] = struct{}{}
			commitsByDay[model.DayKey(c.Date)] = append(commitsByDay[model.DayKey(c.Date)], commitStats{
				author:     c.Author,
				insertions: ins,
				deletions:  del,
				tickets:    ticketRe.FindAllString(c.Message, -1),
			})
		}
	}

	weekly := map[string]map[int]*weekStats{}
	for author := range authors {
		weekly[author] = map[int]*weekStats{}
	}

	fridayByWeek := map[int]time.Time{}
	var weekOrder []int
	for _, day := range calendar.ReverseWorkdays(first, last, nil) {
		week := calendar.ISOWeek(day)
		if _, seen := fridayByWeek[week]; !seen {
			fridayByWeek[week] = calendar.FridayOf(day)
			weekOrder = append(weekOrder, week)
		}
		for _, cs := range commitsByDay[model.DayKey(day)] {
			ws := weekly[cs.author][week]
			if ws == nil {
				ws = &weekStats{tickets: map[string]struct{}{}}
				weekly[cs.author][week] = ws
			}
			ws.insertions += cs.insertions
			ws.deletions += cs.deletions
			for _, t := range cs.tickets {
				ws.tickets[t] = struct{}{}
			}
		}
	}
	// The walk ran newest first; present weeks oldest first.
	sort.Ints(weekOrder)

	text := renderActivity(weekly, weekOrder, fridayByWeek, last)
	fmt.Print(text)

	if activitySlack {
		poster := slack.New(cfg.Slack.BotToken, cfg.Slack.Channel)
		if err := poster.PostMessage(ctx, text); err != nil {
			return err
		}
		fmt.Println("Activity table was posted to slack channel.")
	}
	return nil
}

// mondayOffset returns how many days t lies after its week's Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// renderActivity formats the per-author weekly coding scores as a
// table, one column per week labelled by that week's Friday.
func renderActivity(weekly map[string]map[int]*weekStats, weekOrder []int, fridayByWeek map[int]time.Time, upTo time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly coding score up-to %s\n\n", model.DayKey(upTo))

	fmt.Fprintf(&b, "%-24s", "")
	for _, week := range weekOrder {
		fmt.Fprintf(&b, "%12s", model.DayKey(fridayByWeek[week]))
	}
	b.WriteString("\n")

	var names []string
	for author := range weekly {
		names = append(names, author)
	}
	sort.Strings(names)

	for _, author := range names {
		fmt.Fprintf(&b, "%-24s", author)
		for _, week := range weekOrder {
			fmt.Fprintf(&b, "%12.1f", weekly[author][week].score())
		}
		b.WriteString("\n")
	}
	return b.String()
}
