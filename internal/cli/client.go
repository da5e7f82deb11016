package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/me/nada/internal/resolver"
	"github.com/me/nada/pkg/model"
)

// Client calls a nada server's /trigger and /status endpoints. It
// satisfies poller.Launcher and poller.Resolver, so the CLI polls exactly
// the way a web shell would.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a nada API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// do performs an HTTP request and decodes the JSON reply into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	u := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("HTTP request", "method", method, "url", u)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(respBody))

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("parse response (status %d): %w\nbody: %s", resp.StatusCode, err, string(respBody))
	}
	return resp.StatusCode, nil
}

// Launch posts the question to /trigger and returns the execution id.
func (c *Client) Launch(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", model.ErrInvalidInput
	}

	var resp model.TriggerResponse
	code, err := c.do(ctx, http.MethodPost, "/trigger", model.TriggerRequest{Question: question}, &resp)
	if err != nil {
		return "", fmt.Errorf("trigger: %w", err)
	}
	if resp.Error != "" {
		if code == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", model.ErrInvalidInput, resp.Error)
		}
		return "", fmt.Errorf("trigger: %s", resp.Error)
	}
	if resp.ExecutionID == "" {
		return "", fmt.Errorf("trigger: response carries no executionId")
	}
	return resp.ExecutionID, nil
}

// Resolve polls /status once. An unreachable server is treated like an
// unreachable engine: the status-error policy reports Pending.
func (c *Client) Resolve(ctx context.Context, executionID string) (model.Outcome, error) {
	var resp model.StatusResponse
	_, err := c.do(ctx, http.MethodGet, "/status?id="+url.QueryEscape(executionID), nil, &resp)
	if err != nil {
		if ctx.Err() != nil {
			return model.Outcome{}, ctx.Err()
		}
		c.Logger.Warn("status poll failed, applying fallback", "execution_id", executionID, "error", err)
		return resolver.PendingOnStatusError(executionID, err), nil
	}
	if resp.Error != "" {
		return model.Outcome{}, fmt.Errorf("status %s: %s", executionID, resp.Error)
	}
	return resp.Outcome(), nil
}
