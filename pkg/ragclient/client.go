// Package ragclient is the HTTP client for the ComAI answer backend. Its
// center is the streaming response assembler (StreamQuery) that turns the
// backend's newline-delimited JSON event stream into accumulator snapshots
// and a single terminal Outcome; Query, Health and SendFeedback cover the
// backend's non-streaming surface.
package ragclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	streamEndpoint   = "/query-stream"
	queryEndpoint    = "/query"
	feedbackEndpoint = "/feedback"
	healthEndpoint   = "/health"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a client for the answer backend. The underlying HTTP
// client carries no global timeout: streamed answers stay open for as long as
// the backend keeps talking, so callers bound every call through ctx instead.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// --- Request/Response structs ---

// QueryRequest describes one question. Context is the prior transcript joined
// as "<role>: <content>" lines; empty when the conversation has no history.
type QueryRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

// QueryResponse is the blocking /query result.
type QueryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	FollowUps []string `json:"follow_ups"`
}

// FeedbackRequest mirrors the backend's /feedback body. Question is the
// user's question that produced the answer, not the answer text repeated.
type FeedbackRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Positive bool   `json:"positive"`
}

// --- Non-streaming operations ---

// Query sends the question over the blocking endpoint and returns the full
// assembled response in one shot.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+queryEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &queryResp, nil
}

// SendFeedback forwards one thumbs-up/down rating to the backend.
func (c *Client) SendFeedback(ctx context.Context, fb FeedbackRequest) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+feedbackEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("feedback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("feedback error: status %d, body: %s", resp.StatusCode, string(snippet))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// Health pings the backend's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health error: status %d", resp.StatusCode)
	}
	return nil
}
