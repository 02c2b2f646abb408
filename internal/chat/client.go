//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=../../mocks/mock_chat.go -package=mocks

package chat

import (
	"context"
	"errors"
)

// StatusSuccess is the application status the chat endpoint reports for a handled message
const StatusSuccess = "success"

var (
	// ErrTransport marks failures to get a usable answer from the chat endpoint:
	// network errors, timeouts, non-2xx statuses and undecodable bodies
	ErrTransport = errors.New("chat transport failure")

	// ErrSendInFlight is returned when a message is sent while the previous one is still pending
	ErrSendInFlight = errors.New("a message is already being sent")
)

// Request is one outbound chat turn
type Request struct {
	CounterpartID string
	Message       string
	SessionID     string // Continuation token, empty on the first turn
}

// MoodAnalysis is the end-of-conversation analysis some endpoints return
type MoodAnalysis struct {
	Mood   string `json:"mood"`
	Reason string `json:"reason"`
}

// Response is the decoded answer of the chat endpoint
type Response struct {
	Status    string
	SessionID string
	Reply     string
	End       bool
	Mood      *MoodAnalysis
}

// Client sends chat turns to the remote endpoint
type Client interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Notifier surfaces transient notifications to the user
type Notifier interface {
	Notify(n Notification)
}
