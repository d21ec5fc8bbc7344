// Package jira is a minimal Jira Cloud REST client covering what the
// tool needs: identifying the caller, searching issues, reading
// worklogs and adding new ones.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/jibecompany/worklog/internal/config"
	"github.com/jibecompany/worklog/internal/model"
)

// searchPageSize is the page size for paginated search requests.
const searchPageSize = 50

// APIError is a non-2xx response from the Jira API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API error %d: %s", e.Status, e.Body)
}

// Client is an authenticated Jira REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	// basic auth credentials; empty when token auth is in use.
	user, key string
}

// NewClient builds a client for cfg. A configured bearer token selects
// token auth through an oauth2 static token source; otherwise requests
// use basic auth with the API user and key.
func NewClient(ctx context.Context, cfg config.Jira) *Client {
	c := &Client{baseURL: cfg.Server}
	if cfg.BearerToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken})
		c.httpClient = oauth2.NewClient(ctx, ts)
	} else {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
		c.user = cfg.APIUser
		c.key = cfg.APIKey
	}
	return c
}

// User identifies a Jira account.
type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// Issue is an issue as returned by the search endpoint.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the issue fields the reporting commands read.
type IssueFields struct {
	Summary   string `json:"summary"`
	IssueType struct {
		Name string `json:"name"`
	} `json:"issuetype"`
	Status struct {
		Name string `json:"name"`
	} `json:"status"`
	FixVersions []struct {
		Name string `json:"name"`
	} `json:"fixVersions"`
	ResolutionDate string `json:"resolutiondate"`
	// StoryPoints is the customary estimation field; absent on many
	// issue types.
	StoryPoints *float64 `json:"customfield_10004"`
}

// Worklog is one recorded worklog on an issue.
type Worklog struct {
	Started          string `json:"started"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	Author           User   `json:"author"`
}

// do sends a request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira API request failed: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding jira response: %w", err)
		}
	}
	return nil
}

// Connect builds a client and verifies the credentials against the
// myself endpoint, announcing the connected account.
func Connect(ctx context.Context, cfg config.Jira) (*Client, User, error) {
	client := NewClient(ctx, cfg)
	var me User
	if err := client.do(ctx, http.MethodGet, "/rest/api/2/myself", nil, nil, &me); err != nil {
		return nil, User{}, fmt.Errorf("connecting to %s: %w", cfg.Server, err)
	}
	fmt.Println("Connected as", me.DisplayName, "::", me.AccountID)
	return client, me, nil
}

// searchResponse is the paged envelope of the search endpoint.
type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// SearchIssues returns all issues matching the JQL query, following
// pagination to the end.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var all []Issue
	for {
		query := url.Values{
			"jql":        {jql},
			"startAt":    {strconv.Itoa(len(all))},
			"maxResults": {strconv.Itoa(searchPageSize)},
		}
		var page searchResponse
		if err := c.do(ctx, http.MethodGet, "/rest/api/2/search", query, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Issues...)
		if len(page.Issues) == 0 || len(all) >= page.Total {
			return all, nil
		}
	}
}

// worklogResponse is the paged envelope of the issue worklog endpoint.
type worklogResponse struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []Worklog `json:"worklogs"`
}

// Worklogs returns every worklog recorded on the issue.
func (c *Client) Worklogs(ctx context.Context, issueID string) ([]Worklog, error) {
	var all []Worklog
	for {
		query := url.Values{"startAt": {strconv.Itoa(len(all))}}
		var page worklogResponse
		if err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+issueID+"/worklog", query, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Worklogs...)
		if len(page.Worklogs) == 0 || len(all) >= page.Total {
			return all, nil
		}
	}
}

// SearchUsers looks up Jira users matching the query string (typically
// an email address).
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	var users []User
	q := url.Values{"query": {query}}
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/user/search", q, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserWorklogs fetches the existing worklogs of the given account
// between first and last (inclusive), keyed by day. This is the ledger
// the backfill engine reconciles against.
func (c *Client) UserWorklogs(ctx context.Context, accountID string, first, last time.Time) (map[string][]model.WorklogEntry, error) {
	fmt.Println("Looking up JIRA worklogs between", model.DayKey(first), "and", model.DayKey(last))
	jql := fmt.Sprintf("worklogAuthor = %s AND worklogDate >= %s AND worklogDate <= %s",
		accountID, model.DayKey(first), model.DayKey(last))
	issues, err := c.SearchIssues(ctx, jql)
	if err != nil {
		return nil, err
	}

	ledger := map[string][]model.WorklogEntry{}
	for _, issue := range issues {
		logs, err := c.Worklogs(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		for _, log := range logs {
			if log.Author.AccountID != accountID || len(log.Started) < len(model.DayFormat) {
				continue
			}
			logged, err := time.Parse(model.DayFormat, log.Started[:len(model.DayFormat)])
			if err != nil {
				continue
			}
			if logged.Before(first) || logged.After(last) {
				continue
			}
			entry := model.WorklogEntry{
				Date:   logged,
				Issue:  issue.Key,
				Hours:  float64(log.TimeSpentSeconds) / 3600,
				Author: log.Author.DisplayName,
			}
			ledger[entry.Day()] = append(ledger[entry.Day()], entry)
		}
	}
	return ledger, nil
}

// AddWorklog records hours against an issue on the given day. Synthetic
// entries are stamped at 09:00 local time since Jira requires a full
// datetime. The operation is not idempotent; re-running without the
// previous publish visible in the ledger will book the hours again.
func (c *Client) AddWorklog(ctx context.Context, issueKey string, day time.Time, hours float64) error {
	started := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.Local)
	body := map[string]any{
		"started":          started.Format("2006-01-02T15:04:05.000-0700"),
		"timeSpentSeconds": int(hours*3600 + 0.5),
	}
	return c.do(ctx, http.MethodPost, "/rest/api/2/issue/"+issueKey+"/worklog", nil, body, nil)
}
