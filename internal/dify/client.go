// Package dify calls a Dify workflow endpoint that pages through the
// history of a Slack channel.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Blocking workflow runs can take a while to page through Slack.
	requestTimeout = 120 * time.Second

	responseModeBlocking = "blocking"

	// Cap on how much of an error body gets carried in a TransportError.
	maxErrorBody = 2048
)

// Config represents the workflow endpoint settings the client needs
type Config struct {
	Endpoint string
	APIKey   string
	User     string
	Channel  string
	OldestTS string
	LatestTS string
	Limit    int
}

// Client performs blocking workflow runs against one Dify endpoint
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a workflow client
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// BatchResult is the normalized outcome of one workflow run
type BatchResult struct {
	// MessageSize is the number of messages in this page; nil when the
	// workflow did not report one.
	MessageSize *int

	// OldestDT is the timestamp of the oldest message in the page,
	// formatted "2006-01-02 15:04:05". Empty when absent.
	OldestDT string

	// NextCursor is the pagination token for the next page. Empty means
	// there are no more pages.
	NextCursor string
}

// Empty reports whether all result fields are absent, which the workflow
// produces when it failed internally despite a 200 response.
func (r *BatchResult) Empty() bool {
	return r.MessageSize == nil && r.OldestDT == "" && r.NextCursor == ""
}

// TransportError represents a failed workflow call: a non-200 response or
// a network-level failure.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow call failed: %v", e.Err)
	}
	return fmt.Sprintf("workflow returned status %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type workflowRequest struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type outputs struct {
	MessageSize *int   `json:"message_size"`
	OldestDT    string `json:"oldest_dt"`
	NextCursor  string `json:"next_cursor"`
}

// workflowResponse accepts the result fields either nested under
// data.outputs or flat at the top level.
type workflowResponse struct {
	Data struct {
		Outputs outputs `json:"outputs"`
	} `json:"data"`
	outputs
}

func (r *workflowResponse) result() *BatchResult {
	out := r.Data.Outputs
	if out == (outputs{}) {
		out = r.outputs
	}
	return &BatchResult{
		MessageSize: out.MessageSize,
		OldestDT:    out.OldestDT,
		NextCursor:  out.NextCursor,
	}
}

// buildInputs assembles the workflow input map. Cursor and the optional
// timestamp bounds are only sent when set.
func (c *Client) buildInputs(cursor string) map[string]any {
	inputs := map[string]any{
		"channel": c.cfg.Channel,
		"limit":   c.cfg.Limit,
	}
	if cursor != "" {
		inputs["cursor"] = cursor
	}
	if c.cfg.OldestTS != "" {
		inputs["oldest_ts"] = c.cfg.OldestTS
	}
	if c.cfg.LatestTS != "" {
		inputs["latest_ts"] = c.cfg.LatestTS
	}
	return inputs
}

// FetchBatch runs the workflow once for the page identified by cursor and
// returns the normalized result. It performs no retries of its own.
func (c *Client) FetchBatch(ctx context.Context, cursor string) (*BatchResult, error) {
	payload := workflowRequest{
		Inputs:       c.buildInputs(cursor),
		ResponseMode: responseModeBlocking,
		User:         c.cfg.User,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{Status: resp.StatusCode, Body: string(errBody)}
	}

	var wr workflowResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return wr.result(), nil
}
