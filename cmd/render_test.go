package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jibecompany/worklog/internal/model"
)

func testDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDayFlag(t *testing.T) {
	got, err := parseDayFlag("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, testDay(2024, 1, 10), got)

	_, err = parseDayFlag("10.01.2024")
	require.Error(t, err)

	today, err := parseDayFlag("")
	require.NoError(t, err)
	assert.Equal(t, 0, today.Hour())
}

func TestRenderReport(t *testing.T) {
	wed := testDay(2024, 1, 10)
	thu := testDay(2024, 1, 11)

	worklogs := map[string][]model.WorklogEntry{
		"2024-01-11": {
			{Date: thu, Issue: "ABC-2", Hours: 6.0},
			{Date: thu, Issue: "ABC-1", Hours: 2.0},
		},
		"2024-01-10": {
			{Date: wed, Issue: "ABC-1", Hours: 8.0},
		},
	}

	text := renderReport(worklogs, []time.Time{thu, wed})

	lines := strings.Split(text, "\n")
	assert.Equal(t, "* Daily summary *", lines[0])
	assert.Contains(t, lines[1], "2024-01-11")
	assert.Contains(t, lines[1], "8.0")
	assert.Contains(t, lines[1], "ABC-1, ABC-2")
	assert.Contains(t, lines[2], "2024-01-10")

	// Ticket totals in first-seen order, then the grand total.
	assert.Contains(t, text, "ABC-2")
	assert.Contains(t, text, "10.0 h")
	assert.Contains(t, text, "(total)     16.0 h")
}

func TestRenderReportSkipsEmptyDays(t *testing.T) {
	text := renderReport(map[string][]model.WorklogEntry{}, []time.Time{testDay(2024, 1, 10)})
	assert.NotContains(t, text, "2024-01-10")
	assert.Contains(t, text, "(total)      0.0 h")
}

func TestRenderActivity(t *testing.T) {
	weekly := map[string]map[int]*weekStats{
		"Jane Doe": {
			2: {insertions: 30, deletions: 15},
		},
		"John Roe": {},
	}
	fridays := map[int]time.Time{2: testDay(2024, 1, 12)}

	text := renderActivity(weekly, []int{2}, fridays, testDay(2024, 1, 12))

	assert.Contains(t, text, "up-to 2024-01-12")
	assert.Contains(t, text, "2024-01-12")
	// (30*2 + 15) / 3 = 25.0 for Jane; John has no activity that week.
	janeLine := ""
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Jane Doe") {
			janeLine = line
		}
	}
	require.NotEmpty(t, janeLine)
	assert.Contains(t, janeLine, "25.0")
	assert.Contains(t, text, "John Roe")
}

func TestWeekStatsScore(t *testing.T) {
	tests := []struct {
		stats *weekStats
		want  float64
	}{
		{nil, 0},
		{&weekStats{}, 0},
		{&weekStats{insertions: 3}, 2},
		{&weekStats{deletions: 3}, 1},
		{&weekStats{insertions: 30, deletions: 15}, 25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.stats.score(), 1e-9)
	}
}
