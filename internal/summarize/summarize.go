// Package summarize calls an external service that condenses a beneficiary
// story into a short summary. Failures are reported as external service
// errors; callers treat them as non-blocking.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"monthlyaid/internal/core"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type request struct {
	Story string `json:"story"`
}

type response struct {
	Summary string `json:"summary"`
}

// Summarize posts the story and returns the summary. An empty story yields
// an empty summary without a network call.
func (c *Client) Summarize(ctx context.Context, story string) (string, error) {
	if strings.TrimSpace(story) == "" {
		return "", nil
	}
	if c.endpoint == "" {
		return "", core.ExternalServicef(nil, "summarizer endpoint not configured")
	}

	body, err := json.Marshal(request{Story: story})
	if err != nil {
		return "", core.ExternalServicef(err, "encode summarize request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", core.ExternalServicef(err, "build summarize request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", core.ExternalServicef(err, "call summarizer")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", core.ExternalServicef(nil, "summarizer returned status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.ExternalServicef(err, "decode summarize response")
	}
	return out.Summary, nil
}
