package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/me/dfjss/pkg/model"
)

// Client talks to the /api/v1 endpoints of a dfjss server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a dfjss API client. The timeout covers simulations of
// large instances, which answer only once the run is finished.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     logger,
	}
}

// envelope is model.Response with the payload left raw for the caller.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// do sends one request and unwraps the envelope. API errors are returned as
// *model.APIError so callers can inspect the code.
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	url := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.Logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode,
		"bytes", len(respBody), "duration", time.Since(start))

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil || env.Status == "" {
		return nil, fmt.Errorf("%s %s: unexpected %s response: %s",
			method, path, resp.Status, strings.TrimSpace(string(respBody)))
	}
	if env.Error != nil {
		c.Logger.Debug("api error", "request_id", env.RequestID, "code", env.Error.Code)
		return &env, env.Error
	}
	return &env, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*envelope, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*envelope, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}
