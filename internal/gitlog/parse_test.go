package gitlog

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jibecompany/worklog/internal/model"
)

func TestParseEntries(t *testing.T) {
	out := "2024-01-11?&?16:02:11?&?ABC-11 add retry\n" +
		"2024-01-11?&?09:15:00?&?ABC-10 fix the flaky test\n" +
		"2024-01-10?&?18:30:45?&?Merge branch 'main'"

	refs, err := parseEntries(out)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, "2024-01-11", model.DayKey(refs[0].Date))
	assert.Equal(t, "16:02:11", refs[0].Clock)
	assert.Equal(t, "ABC-11 add retry", refs[0].Message)
	assert.Equal(t, "Merge branch 'main'", refs[2].Message)
}

func TestParseEntriesEmpty(t *testing.T) {
	refs, err := parseEntries("")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestParseEntriesMalformed(t *testing.T) {
	_, err := parseEntries("not a log line")
	require.Error(t, err)
}

func TestParseActions(t *testing.T) {
	out := "$abc1234$2024-01-11$Jane Doe$ABC-11 add retry$ (tag: v1.2)\n" +
		"10\t2\tinternal/retry/retry.go\n" +
		"-\t-\tdocs/diagram.png\n" +
		"3\t0\tvendor/github.com/x/y/z.go\n" +
		"1\t1\tmigrations/0042_add_index.sql\n" +
		"5\t5\tweb/app.min.js\n" +
		"\n" +
		"$def5678$2024-01-10$John Roe$chore: tidy$\n" +
		"0\t7\tinternal/server/server.go"

	ignore := regexp.MustCompile(`\.min\.js$`)
	history, actions, err := parseActions(out, ignore)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, "abc1234", history[0].Hash)
	assert.Equal(t, "Jane Doe", history[0].Author)
	assert.Equal(t, "ABC-11 add retry", history[0].Message)
	assert.Equal(t, "(tag: v1.2)", history[0].Tags)
	assert.Equal(t, "2024-01-10", model.DayKey(history[1].Date))

	// vendor, migrations and ignored paths are filtered out; the
	// binary file stays with -1 counts.
	first := actions["abc1234"]
	require.Len(t, first, 2)
	assert.Equal(t, model.CommitAction{Insertions: 10, Deletions: 2, Path: "internal/retry/retry.go"}, first[0])
	assert.Equal(t, model.CommitAction{Insertions: -1, Deletions: -1, Path: "docs/diagram.png"}, first[1])

	second := actions["def5678"]
	require.Len(t, second, 1)
	assert.Equal(t, 7, second[0].Deletions)
}

func TestParseActionsNumstatBeforeHeader(t *testing.T) {
	_, _, err := parseActions("10\t2\tmain.go", nil)
	require.Error(t, err)
}

func TestParseNumstat(t *testing.T) {
	assert.Equal(t, 42, parseNumstat("42"))
	assert.Equal(t, -1, parseNumstat("-"))
	assert.Equal(t, 0, parseNumstat("weird"))
}

func TestCommandErrorMessage(t *testing.T) {
	err := &CommandError{
		Args:   []string{"-C", "/repo", "pull"},
		Stderr: "fatal: could not read from remote",
		Err:    assert.AnError,
	}
	assert.Contains(t, err.Error(), "git -C /repo pull")
	assert.Contains(t, err.Error(), "could not read from remote")
}
