package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jibecompany/worklog/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
repositories = ["../backend", "../frontend"]
ticket_pattern = '[A-Z][A-Z0-9]+-\d+'
skip_days = ["2024-01-01", "2024-07-29..2024-08-09"]
daily_target = 8.0
git_author = "jane@example.com"

[daily_meeting]
issue = "MEET-1"
hours = 0.5

[tickets.aliases]
FOOD = "DATAU"

[jira]
server = "https://example.atlassian.net"
api_user = "jane@example.com"
api_key = "secret"

[slack]
bot_token = "xoxb-1"
channel = "#eng-reports"
`

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"../backend", "../frontend"}, cfg.Repositories)
	assert.Equal(t, 8.0, cfg.DailyTarget)
	assert.Equal(t, 4, cfg.WeeksBehind, "weeks_behind defaults to 4")
	require.NotNil(t, cfg.DailyMeeting)
	assert.Equal(t, "MEET-1", cfg.DailyMeeting.Issue)
	assert.Equal(t, map[string]string{"FOOD": "DATAU"}, cfg.Tickets.Aliases)
	assert.Equal(t, "https://example.atlassian.net", cfg.Jira.Server)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, validConfig)

	t.Setenv("API_USER", "env-user@example.com")
	t.Setenv("API_TOKEN", "env-token")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-user@example.com", cfg.Jira.APIUser)
	assert.Equal(t, "env-token", cfg.Jira.APIKey)
	assert.Equal(t, "xoxb-env", cfg.Slack.BotToken)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, validConfig+"\nticket_patern = 'typo'\n")

	_, err := config.Load(path)
	require.Error(t, err)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "ticket_patern")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "missing server",
			content: "ticket_pattern = 'X-1'\n[jira]\napi_user = 'a'\n",
			wantIn:  "jira.server",
		},
		{
			name:    "missing ticket pattern",
			content: "[jira]\nserver = 'https://x'\n",
			wantIn:  "ticket_pattern",
		},
		{
			name:    "bad ticket pattern",
			content: "ticket_pattern = '['\n[jira]\nserver = 'https://x'\n",
			wantIn:  "ticket_pattern",
		},
		{
			name:    "negative target",
			content: "ticket_pattern = 'X-1'\ndaily_target = -1.0\n[jira]\nserver = 'https://x'\n",
			wantIn:  "daily_target",
		},
		{
			name:    "bad skip day",
			content: "ticket_pattern = 'X-1'\nskip_days = ['not-a-date']\n[jira]\nserver = 'https://x'\n",
			wantIn:  "skip_days",
		},
		{
			name:    "meeting without issue",
			content: "ticket_pattern = 'X-1'\n[daily_meeting]\nhours = 0.5\n[jira]\nserver = 'https://x'\n",
			wantIn:  "daily_meeting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}
