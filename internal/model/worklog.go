package model

import "time"

// DayFormat is the canonical day key layout used throughout the tool.
const DayFormat = "2006-01-02"

// DayKey returns the map key for the calendar day of t.
func DayKey(t time.Time) string {
	return t.Format(DayFormat)
}

// WorklogEntry is a single (date, issue, hours) booking against a ticket.
// Entries read from Jira and entries synthesized by the backfill engine
// share this shape; Hours is always positive.
type WorklogEntry struct {
	Date   time.Time
	Issue  string
	Hours  float64
	Author string
}

// Day returns the day key of the entry's date.
func (e WorklogEntry) Day() string {
	return DayKey(e.Date)
}

// CommitRef is one commit authored by the user: the calendar day, the
// wall-clock time within that day, and the subject line carrying ticket
// references. Within a day refs are ordered newest first.
type CommitRef struct {
	Date    time.Time
	Clock   string
	Message string
}

// GitCommit is a full commit record as produced by the numstat log used
// for activity reporting.
type GitCommit struct {
	Hash    string
	Date    time.Time
	Author  string
	Message string
	Tags    string
}

// CommitAction is one file touched by a commit, with its line counts.
// Insertions/Deletions are -1 for binary files (git prints "-").
type CommitAction struct {
	Insertions int
	Deletions  int
	Path       string
}
