// Package gitlog retrieves commit history by driving the git binary.
// Each repository is pulled before reading its log so the history
// reflects the remote state; failures carry the captured stderr so the
// caller can show the actual git diagnostic.
package gitlog

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jibecompany/worklog/internal/model"
)

// fieldSep separates the fields of one log line. Chosen (by the
// original scripts this replaces) to never occur in commit subjects.
const fieldSep = "?&?"

// CommandError is a failed git invocation with its captured stderr.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// run executes git with the given args in repo and returns its trimmed
// stdout.
func run(ctx context.Context, repo string, args ...string) (string, error) {
	full := append([]string{"-C", repo}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   full,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// update pulls the repository, announcing which repo and branch is
// being refreshed.
func update(ctx context.Context, root string) error {
	branch, err := run(ctx, root, "branch", "--show-current")
	if err != nil {
		return err
	}
	fmt.Printf("Updating repository %s on branch %s\n", filepath.Base(root), branch)
	_, err = run(ctx, root, "pull")
	return err
}

// Entries returns the commits authored between start and end (matching
// the author pattern) as (day, clock, subject) records, newest first.
func Entries(ctx context.Context, repo string, start, end time.Time, author string) ([]model.CommitRef, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving repository path %s: %w", repo, err)
	}
	if err := update(ctx, root); err != nil {
		return nil, err
	}

	out, err := run(ctx, root, "log",
		"--since="+start.Format(model.DayFormat),
		"--until="+end.Format(model.DayFormat),
		"--date=format:%Y-%m-%d"+fieldSep+"%H:%M:%S",
		"--pretty=format:%cd"+fieldSep+"%s",
		"--author="+author,
	)
	if err != nil {
		return nil, err
	}
	return parseEntries(out)
}

// parseEntries decodes the fieldSep-delimited log output into commit
// refs, preserving git's newest-first order.
func parseEntries(out string) ([]model.CommitRef, error) {
	var refs []model.CommitRef
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, fieldSep, 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected git log line %q", line)
		}
		day, err := time.Parse(model.DayFormat, parts[0])
		if err != nil {
			return nil, fmt.Errorf("unexpected commit date in %q: %w", line, err)
		}
		refs = append(refs, model.CommitRef{Date: day, Clock: parts[1], Message: parts[2]})
	}
	return refs, nil
}

// Actions returns the full commit history between start and end along
// with the per-commit file actions from git log --numstat, keyed by
// commit hash. Paths matching ignore, vendored code and migrations are
// left out of the action lists.
func Actions(ctx context.Context, repo string, start, end time.Time, ignore *regexp.Regexp) ([]model.GitCommit, map[string][]model.CommitAction, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving repository path %s: %w", repo, err)
	}
	if err := update(ctx, root); err != nil {
		return nil, nil, err
	}

	out, err := run(ctx, root, "log", "--numstat",
		"--since="+start.Format(model.DayFormat),
		"--until="+end.Format(model.DayFormat),
		"--date=format:%Y-%m-%d",
		"--pretty=format:$%h$%ad$%an$%s$%d",
	)
	if err != nil {
		return nil, nil, err
	}
	return parseActions(out, ignore)
}

// parseActions decodes --numstat log output: commit header lines start
// with "$", the numstat lines that follow belong to that commit.
func parseActions(out string, ignore *regexp.Regexp) ([]model.GitCommit, map[string][]model.CommitAction, error) {
	var history []model.GitCommit
	actions := map[string][]model.CommitAction{}
	var last string // hash of the commit the numstat lines belong to
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "$") {
			parts := strings.SplitN(line[1:], "$", 5)
			if len(parts) != 5 {
				return nil, nil, fmt.Errorf("unexpected git log line %q", line)
			}
			day, err := time.Parse(model.DayFormat, parts[1])
			if err != nil {
				return nil, nil, fmt.Errorf("unexpected commit date in %q: %w", line, err)
			}
			commit := model.GitCommit{
				Hash:    parts[0],
				Date:    day,
				Author:  parts[2],
				Message: parts[3],
				Tags:    strings.TrimSpace(parts[4]),
			}
			history = append(history, commit)
			last = commit.Hash
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 3 || last == "" {
			return nil, nil, fmt.Errorf("unexpected numstat line %q", line)
		}
		path := fields[2]
		if ignore != nil && ignore.MatchString(path) {
			continue
		}
		if strings.Contains(path, "vendor") || strings.Contains(path, "migrations") {
			continue
		}
		actions[last] = append(actions[last], model.CommitAction{
			Insertions: parseNumstat(fields[0]),
			Deletions:  parseNumstat(fields[1]),
			Path:       path,
		})
	}
	return history, actions, nil
}

// parseNumstat converts one numstat count; git prints "-" for binary
// files, mapped to -1.
func parseNumstat(s string) int {
	if s == "-" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
