// Package calendar implements the workday arithmetic shared by the
// backfill engine and the reporting commands: skip-day parsing, the
// reverse workday walk and a few month/week helpers.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/jibecompany/worklog/internal/model"
)

// SkipSet is a membership-only set of excluded workdays, keyed by day.
type SkipSet map[string]struct{}

// Contains reports whether the day of t is in the set.
func (s SkipSet) Contains(t time.Time) bool {
	_, ok := s[model.DayKey(t)]
	return ok
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseSkipDays builds the exclusion set from a list of specs, each
// either a single ISO date ("2024-01-01") or an inclusive range
// ("2024-07-29..2024-08-09"). Weekends are excluded from processing
// anyway, so only weekday dates are added to the set; a weekend
// end-point in a range contributes nothing. A malformed date is a
// configuration error.
func ParseSkipDays(specs []string) (SkipSet, error) {
	skip := SkipSet{}
	for _, spec := range specs {
		left, right, isRange := strings.Cut(spec, "..")

		first, err := time.Parse(model.DayFormat, left)
		if err != nil {
			return nil, fmt.Errorf("invalid skip day %q: %w", spec, err)
		}
		last := first
		if isRange {
			last, err = time.Parse(model.DayFormat, right)
			if err != nil {
				return nil, fmt.Errorf("invalid skip day %q: %w", spec, err)
			}
		}

		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if !IsWeekend(d) {
				skip[model.DayKey(d)] = struct{}{}
			}
		}
	}
	return skip, nil
}

// ReverseWorkdays returns every workday in [start, end] from end down
// to start, excluding weekends and members of skip.
func ReverseWorkdays(start, end time.Time, skip SkipSet) []time.Time {
	var days []time.Time
	for d := end; !d.Before(start); d = d.AddDate(0, 0, -1) {
		if !IsWeekend(d) && !skip.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// FridayOf returns the Friday of the ISO week containing t.
func FridayOf(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // ISO: Sunday is day 7
	}
	return t.AddDate(0, 0, 5-wd)
}

// ISOWeek returns the ISO week number of t.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}
