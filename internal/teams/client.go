// Package teams talks to the external equipment service that owns team data.
package teams

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches the teams a user belongs to.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for baseURL (e.g. http://localhost:4000/equipos).
// Every call is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// UserTeams returns the raw JSON document the service answers for GET <base>/user/<id>.
func (c *Client) UserTeams(ctx context.Context, userID uint) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/user/%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build teams request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("teams request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("teams service returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read teams response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("teams service returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
