package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client talks to the activity service over HTTP/JSON. All methods take a
// context so the sync engine can bound or cancel transport calls; failures
// are reported as typed errors, never swallowed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
}

// APIError is a non-2xx response from the remote service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

func NewClient(baseURL, authToken string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   baseURL,
		authToken: authToken,
	}
}

// ListActivities retrieves the remote activity list in summary form.
func (c *Client) ListActivities(ctx context.Context) ([]ActivitySummary, error) {
	var summaries []ActivitySummary
	if err := c.do(ctx, http.MethodGet, "/activities", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetActivity retrieves one activity including its route points.
func (c *Client) GetActivity(ctx context.Context, remoteID int64) (*ActivityDetail, error) {
	var detail ActivityDetail
	path := fmt.Sprintf("/activities/%d", remoteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateActivity uploads a new activity with its points and returns the
// server-assigned identifier.
func (c *Client) CreateActivity(ctx context.Context, detail *ActivityDetail) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/activities", detail, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// UpdateActivity replaces the remote copy of an activity.
func (c *Client) UpdateActivity(ctx context.Context, remoteID int64, detail *ActivityDetail) error {
	path := fmt.Sprintf("/activities/%d", remoteID)
	return c.do(ctx, http.MethodPut, path, detail, nil)
}

// DeleteActivity removes the remote copy of an activity.
func (c *Client) DeleteActivity(ctx context.Context, remoteID int64) error {
	path := fmt.Sprintf("/activities/%d", remoteID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
