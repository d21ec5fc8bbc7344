// Package config loads and validates the project.toml configuration.
// The file is decoded into a typed struct once per run; unknown keys
// and malformed values are rejected at load time, before any I/O.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jibecompany/worklog/internal/calendar"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "project.toml"

// Error is a configuration problem: unreadable or malformed file,
// unknown key, missing required field, or an invalid value. It is
// always fatal.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "config: " + e.Reason + ": " + e.Err.Error()
	}
	return "config: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Config is the full configuration recognized by the tool.
type Config struct {
	// Repositories are the working copies whose commit history feeds
	// the ticket extractor.
	Repositories []string `toml:"repositories"`
	// TicketPattern is the regexp that finds ticket ids in commit
	// subjects, e.g. `[A-Z][A-Z0-9]+-\d+`.
	TicketPattern string `toml:"ticket_pattern"`
	// SkipDays lists single dates or "start..end" ranges excluded from
	// processing in addition to weekends.
	SkipDays []string `toml:"skip_days"`
	// DailyTarget is the hours each workday should have booked.
	DailyTarget float64 `toml:"daily_target"`
	// GitAuthor filters git history to the current user's commits
	// (passed to git log --author).
	GitAuthor string `toml:"git_author"`
	// IgnoreFilePattern excludes matching paths from activity stats.
	IgnoreFilePattern string `toml:"ignore_file_pattern"`
	// WeeksBehind is how far back the activity report looks.
	WeeksBehind int `toml:"weeks_behind"`

	DailyMeeting *Meeting `toml:"daily_meeting"`
	Tickets      Tickets  `toml:"tickets"`
	Jira         Jira     `toml:"jira"`
	Slack        Slack    `toml:"slack"`
}

// Meeting is the recurring fixed booking added to days that miss it.
type Meeting struct {
	Issue string  `toml:"issue"`
	Hours float64 `toml:"hours"`
}

// Tickets holds ticket canonicalization settings.
type Tickets struct {
	// Aliases rewrites legacy project keys, e.g. FOOD = "DATAU".
	Aliases map[string]string `toml:"aliases"`
}

// Jira holds the tracker connection settings. APIUser/APIKey select
// basic auth; BearerToken selects token auth instead.
type Jira struct {
	Server      string `toml:"server"`
	APIUser     string `toml:"api_user"`
	APIKey      string `toml:"api_key"`
	BearerToken string `toml:"bearer_token"`
}

// Slack holds the report-delivery credentials.
type Slack struct {
	BotToken string `toml:"bot_token"`
	Channel  string `toml:"channel"`
}

// Load reads and validates the TOML config at path. Credentials may be
// overridden by the API_USER, API_TOKEN and SLACK_BOT_TOKEN environment
// variables. Any unknown key in the file is an error so typos surface
// at load time instead of as silently missing settings.
func Load(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, &Error{Reason: fmt.Sprintf("file %s not found", path)}
		}
		return Config{}, &Error{Reason: fmt.Sprintf("parsing %s", path), Err: err}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, &Error{Reason: fmt.Sprintf("unknown key(s) in %s: %s", path, strings.Join(keys, ", "))}
	}

	if user := os.Getenv("API_USER"); user != "" {
		cfg.Jira.APIUser = user
	}
	if key := os.Getenv("API_TOKEN"); key != "" {
		cfg.Jira.APIKey = key
	}
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		cfg.Slack.BotToken = token
	}

	if cfg.WeeksBehind == 0 {
		cfg.WeeksBehind = 4
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Jira.Server == "" {
		return &Error{Reason: "jira.server is required"}
	}
	if c.TicketPattern == "" {
		return &Error{Reason: "ticket_pattern is required"}
	}
	if _, err := regexp.Compile(c.TicketPattern); err != nil {
		return &Error{Reason: "invalid ticket_pattern", Err: err}
	}
	if c.IgnoreFilePattern != "" {
		if _, err := regexp.Compile(c.IgnoreFilePattern); err != nil {
			return &Error{Reason: "invalid ignore_file_pattern", Err: err}
		}
	}
	if c.DailyTarget < 0 {
		return &Error{Reason: fmt.Sprintf("daily_target must not be negative, got %.2f", c.DailyTarget)}
	}
	if m := c.DailyMeeting; m != nil {
		if m.Issue == "" || m.Hours <= 0 {
			return &Error{Reason: "daily_meeting needs a non-empty issue and positive hours"}
		}
	}
	if _, err := calendar.ParseSkipDays(c.SkipDays); err != nil {
		return &Error{Reason: "invalid skip_days", Err: err}
	}
	return nil
}
