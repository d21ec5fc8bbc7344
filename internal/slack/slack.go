// Package slack posts report summaries to a Slack channel via
// chat.postMessage.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultURL is the chat.postMessage endpoint; variable so tests can
// point a client at a local server.
const DefaultURL = "https://slack.com/api/chat.postMessage"

// Client posts messages as a bot to one channel.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	channel    string
}

// New returns a client posting to channel with the given bot token.
func New(token, channel string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        DefaultURL,
		token:      token,
		channel:    channel,
	}
}

// NewWithURL is New with an explicit endpoint, for tests.
func NewWithURL(token, channel, url string) *Client {
	c := New(token, channel)
	c.url = url
	return c
}

// apiResponse is the Slack Web API envelope.
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage sends text to the configured channel. Slack reports
// application errors inside a 200 response, so both the HTTP status
// and the ok flag are checked.
func (c *Client) PostMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": c.channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encoding slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading slack response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API error %d: %s", resp.StatusCode, string(body))
	}
	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return fmt.Errorf("decoding slack response: %w", err)
	}
	if !api.OK {
		return fmt.Errorf("slack API error: %s", api.Error)
	}
	return nil
}
