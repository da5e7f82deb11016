package kestra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// FallbackState is reported by GetExecutionState when the engine answers a
// status query with a non-success HTTP status. A poll cycle treats it like
// any other running execution instead of aborting.
const FallbackState = StateRunning

// Client talks to the Kestra REST API. It holds no per-execution state.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a Kestra API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.FlowID == "" {
		config.FlowID = DefaultFlowID
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "kestra-client"),
	}
}

// StartExecution triggers a new execution of the configured flow with the
// question as its user_question input and returns the execution id.
func (c *Client) StartExecution(ctx context.Context, question string) (string, error) {
	const op = "start execution"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField(QuestionInput, question); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("encoding form: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("encoding form: %w", err)}
	}

	path := fmt.Sprintf("/api/v1/executions/%s/%s",
		url.PathEscape(c.config.Namespace), url.PathEscape(c.config.FlowID))

	resp, respBody, err := c.do(ctx, op, http.MethodPost, path, &body, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("engine rejected execution", "status", resp.StatusCode, "flow", c.config.FlowID)
		return "", &EngineRejectedError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var exec execution
	if err := json.Unmarshal(respBody, &exec); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if exec.ID == "" {
		return "", &TransportError{Op: op, Err: fmt.Errorf("response carries no execution id")}
	}

	c.logger.Info("execution started", "execution_id", exec.ID, "namespace", c.config.Namespace, "flow", c.config.FlowID)
	return exec.ID, nil
}

// GetExecutionState returns the engine's current state for an execution.
// A non-success HTTP status is not an error: FallbackState is returned.
func (c *Client) GetExecutionState(ctx context.Context, executionID string) (State, error) {
	const op = "get execution state"

	resp, respBody, err := c.do(ctx, op, http.MethodGet, "/api/v1/executions/"+url.PathEscape(executionID), nil, "")
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("status query not ok, assuming running",
			"execution_id", executionID, "status", resp.StatusCode)
		return FallbackState, nil
	}

	var exec execution
	if err := json.Unmarshal(respBody, &exec); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return exec.State.Current, nil
}

// GetExecutionLogs returns the log records of an execution in engine order.
func (c *Client) GetExecutionLogs(ctx context.Context, executionID string) ([]LogRecord, error) {
	const op = "get execution logs"

	resp, respBody, err := c.do(ctx, op, http.MethodGet, "/api/v1/logs/"+url.PathEscape(executionID), nil, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &EngineRejectedError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var logs []LogRecord
	if err := json.Unmarshal(respBody, &logs); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	c.logger.Debug("fetched logs", "execution_id", executionID, "records", len(logs))
	return logs, nil
}

// do performs a single HTTP request and reads the full response body.
// Only connectivity and read failures are returned as errors.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, []byte, error) {
	u := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: fmt.Errorf("creating HTTP request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Cache-Control", "no-store")
	if c.config.Authorization != "" {
		req.Header.Set("Authorization", c.config.Authorization)
	}

	c.logger.Debug("HTTP request", "method", method, "url", u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("engine unreachable", "op", op, "error", err)
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("HTTP response", "status", resp.StatusCode, "bytes", len(respBody))
	return resp, respBody, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// statusText returns the reason phrase of the response, e.g. "Not Found".
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
