// Package backfill implements the reconciliation engine: the day-by-day
// walk that compares booked hours against the daily target and
// synthesizes the worklog entries needed to close the gap, using the
// tickets referenced by that day's commits as evidence of what was
// worked on.
//
// The engine performs no I/O. Existing worklogs and commit messages are
// resolved up front and passed in; the only state is the current task
// carried from a later day to an earlier one, threaded explicitly
// through the per-day step.
package backfill

import (
	"fmt"
	"math"
	"time"

	"github.com/jibecompany/worklog/internal/calendar"
	"github.com/jibecompany/worklog/internal/model"
	"github.com/jibecompany/worklog/internal/tickets"
)

// meetingTolerance is the hour delta under which an existing entry
// counts as the daily meeting. Jira stores seconds, hours arrive as
// floats, so equality must not be exact.
const meetingTolerance = 0.01

// MeetingSpec is the recurring fixed booking (e.g. a daily standup)
// synthesized on any day that lacks it.
type MeetingSpec struct {
	Issue string
	Hours float64
}

// Params are the fully resolved inputs of one reconciliation run.
type Params struct {
	Start, End  time.Time
	Skip        calendar.SkipSet
	TargetHours float64
	Meeting     *MeetingSpec

	// Existing maps day keys to the worklogs already recorded in Jira.
	Existing map[string][]model.WorklogEntry
	// Messages maps day keys to that day's commit subjects, newest first.
	Messages  map[string][]string
	Extractor *tickets.Extractor

	// CurrentTask seeds the carry-over state, usually from --current-task.
	CurrentTask string
	// Author is stamped on every synthesized entry.
	Author string
}

// DayPlan is the outcome for one workday: the hours already booked and
// the entries the engine wants to add. An empty Entries slice means the
// day needs no action.
type DayPlan struct {
	Day     time.Time
	Booked  float64
	Entries []model.WorklogEntry
}

// Plan walks the workdays between Start and End from newest to oldest
// and returns one DayPlan per day, in walk order. Skip days and
// weekends are never processed. An existing entry with non-positive
// hours indicates corrupted ledger data and aborts the run.
func Plan(p Params) ([]DayPlan, error) {
	for key, entries := range p.Existing {
		for _, e := range entries {
			if e.Hours <= 0 {
				return nil, fmt.Errorf("ledger invariant violated: %s on %s has %.2fh", e.Issue, key, e.Hours)
			}
		}
	}

	task := p.CurrentTask
	var plans []DayPlan
	for _, day := range calendar.ReverseWorkdays(p.Start, p.End, p.Skip) {
		var plan DayPlan
		plan, task = planDay(p, day, task)
		plans = append(plans, plan)
	}
	return plans, nil
}

// planDay applies the backfill policy to a single day and returns the
// plan together with the task carried over to the next (earlier) day.
func planDay(p Params, day time.Time, task string) (DayPlan, string) {
	key := model.DayKey(day)
	existing := p.Existing[key]

	var booked float64
	for _, e := range existing {
		booked += e.Hours
	}
	remaining := p.TargetHours - booked

	dayTickets := p.Extractor.Extract(p.Messages[key])
	candidates := dayTickets
	if task != "" && !containsTicket(dayTickets, task) {
		// Carry-over: an unfinished ticket from a later day is assumed
		// to continue here unless the commits already re-mention it.
		candidates = append([]string{task}, dayTickets...)
	}

	// The least recently referenced ticket becomes the carry-over
	// candidate for the next day, even when this day emits nothing.
	if len(candidates) > 0 {
		task = candidates[len(candidates)-1]
	}

	plan := DayPlan{Day: day, Booked: booked}
	if p.TargetHours <= 0 || remaining <= 0 || len(candidates) == 0 {
		return plan, task
	}

	if p.Meeting != nil && !hasMeeting(existing, *p.Meeting) {
		plan.Entries = append(plan.Entries, model.WorklogEntry{
			Date:   day,
			Issue:  p.Meeting.Issue,
			Hours:  p.Meeting.Hours,
			Author: p.Author,
		})
		remaining -= p.Meeting.Hours
	}

	// Equal-effort assumption: no signal weights one ticket over
	// another, so the remaining hours are split evenly.
	if remaining > 0 {
		share := remaining / float64(len(candidates))
		for _, id := range candidates {
			plan.Entries = append(plan.Entries, model.WorklogEntry{
				Date:   day,
				Issue:  id,
				Hours:  share,
				Author: p.Author,
			})
		}
	}
	return plan, task
}

// hasMeeting reports whether the meeting is already booked: an entry
// for the meeting issue whose hours match the configured duration
// within tolerance.
func hasMeeting(existing []model.WorklogEntry, m MeetingSpec) bool {
	for _, e := range existing {
		if e.Issue == m.Issue && math.Abs(e.Hours-m.Hours) < meetingTolerance {
			return true
		}
	}
	return false
}

func containsTicket(ids []string, id string) bool {
	for _, t := range ids {
		if t == id {
			return true
		}
	}
	return false
}
