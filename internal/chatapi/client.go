// Package chatapi speaks the JSON wire format of the employee chat endpoint,
// both as a client and as a local placeholder server.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/strrl/coach-dashboard/internal/chat"
)

// ChatPath is the path prefix of the employee chat endpoint
const ChatPath = "/employee-chat/"

type wireRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

type wireResponse struct {
	Status    string          `json:"status"`
	SessionID string          `json:"session_id,omitempty"`
	Message   string          `json:"message,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	End       bool            `json:"end"`
}

// TransportError describes a failed exchange with the chat endpoint
type TransportError struct {
	StatusCode int // Zero when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chat endpoint returned HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("chat endpoint unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{chat.ErrTransport, e.Err}
}

// Client is an HTTP implementation of chat.Client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the endpoint rooted at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts one chat turn and decodes the answer
func (c *Client) Send(ctx context.Context, req chat.Request) (chat.Response, error) {
	body, err := json.Marshal(wireRequest{Message: req.Message, SessionID: req.SessionID})
	if err != nil {
		return chat.Response{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	endpoint := c.baseURL + ChatPath + url.PathEscape(req.CounterpartID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return chat.Response{}, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return chat.Response{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return chat.Response{}, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chat.Response{}, &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(payload))),
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(payload, &wire); err != nil {
		return chat.Response{}, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid JSON body: %w", err)}
	}

	return decodeResponse(wire)
}

// decodeResponse maps the wire answer. "response" is a reply string on normal
// turns and a mood analysis object when the conversation ends.
func decodeResponse(wire wireResponse) (chat.Response, error) {
	out := chat.Response{
		Status:    wire.Status,
		SessionID: wire.SessionID,
		End:       wire.End,
	}

	raw := bytes.TrimSpace(wire.Response)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}

	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &out.Reply); err != nil {
			return chat.Response{}, &TransportError{Err: fmt.Errorf("invalid reply text: %w", err)}
		}
	case '{':
		var mood chat.MoodAnalysis
		if err := json.Unmarshal(raw, &mood); err != nil {
			return chat.Response{}, &TransportError{Err: fmt.Errorf("invalid mood analysis: %w", err)}
		}
		out.Mood = &mood
	default:
		// Unknown shapes are shown verbatim rather than dropped
		out.Reply = string(raw)
	}
	return out, nil
}
