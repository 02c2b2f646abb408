package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/strrl/coach-dashboard/pkg/models"
)

// DefaultTimeout bounds a single chat request when no timeout is configured
const DefaultTimeout = 10 * time.Second

const (
	textUndelivered  = "Could not reach the chat service. Your message was not delivered."
	textCompleteBase = "Conversation complete."
)

// Outcome describes how a turn was reconciled with the endpoint's answer
type Outcome struct {
	Reply string
	Ended bool
	Stale bool // The session changed while the request was in flight; the answer was dropped
	Err   error
}

// Dispatcher sends user messages to the chat endpoint, one at a time
type Dispatcher struct {
	store    *Store
	client   Client
	notifier Notifier
	log      *slog.Logger
	timeout  time.Duration

	mu       sync.Mutex
	inFlight bool
}

// NewDispatcher creates a dispatcher writing into store
func NewDispatcher(store *Store, client Client, notifier Notifier, log *slog.Logger, timeout time.Duration) *Dispatcher {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		store:    store,
		client:   client,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
	}
}

// Turn is a provisionally appended user message awaiting the endpoint's answer
type Turn struct {
	d       *Dispatcher
	epoch   uint64
	req     Request
	message models.Message
	done    bool
}

// Message returns the provisional user message
func (t *Turn) Message() models.Message {
	return t.message
}

// Request returns the request the turn will issue
func (t *Turn) Request() Request {
	return t.req
}

// InFlight reports whether a turn is pending
func (d *Dispatcher) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Begin appends the user's message right away and prepares the request.
// Blank text is ignored and yields a nil turn.
func (d *Dispatcher) Begin(text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	d.mu.Lock()
	if d.inFlight {
		d.mu.Unlock()
		return nil, ErrSendInFlight
	}
	d.inFlight = true
	d.mu.Unlock()

	msg, route := d.store.BeginTurn(text)

	return &Turn{
		d:     d,
		epoch: route.Epoch,
		req: Request{
			CounterpartID: route.CounterpartID,
			Message:       text,
			SessionID:     route.Token,
		},
		message: msg,
	}, nil
}

// Complete issues the request and reconciles the answer with the transcript.
// The loading flag is always cleared before Complete returns.
func (t *Turn) Complete(ctx context.Context) (out Outcome) {
	d := t.d
	if t.done {
		return Outcome{Err: errors.New("turn already completed")}
	}
	t.done = true

	defer func() {
		d.store.SetLoading(false)
		d.mu.Lock()
		d.inFlight = false
		d.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.client.Send(ctx, t.req)
	if err != nil {
		out.Err = err
		if !t.fail(textUndelivered) {
			out.Stale = true
			return out
		}
		d.log.Warn("chat request failed", "counterpart", t.req.CounterpartID, "error", err)
		kind, title := KindConnectionError, "Connection error"
		if !errors.Is(err, ErrTransport) && !errors.Is(err, context.DeadlineExceeded) {
			kind, title = KindGenericError, "Error"
		}
		d.notifier.Notify(Notification{
			Kind:   kind,
			Title:  title,
			Detail: "Unable to reach the chat service",
		})
		return out
	}

	if resp.Status != StatusSuccess {
		out.Err = fmt.Errorf("chat endpoint returned status %q", resp.Status)
		if !t.fail(fmt.Sprintf("The chat service could not process your message (status %q).", resp.Status)) {
			out.Stale = true
			return out
		}
		d.log.Warn("chat endpoint rejected message", "counterpart", t.req.CounterpartID, "status", resp.Status)
		d.notifier.Notify(Notification{
			Kind:   KindGenericError,
			Title:  "Error",
			Detail: "Failed to get a response from the chat service",
		})
		return out
	}

	if d.store.Epoch() != t.epoch {
		d.log.Debug("discarding stale chat response", "counterpart", t.req.CounterpartID)
		out.Stale = true
		return out
	}

	if d.store.SetTokenIf(t.epoch, resp.SessionID) {
		d.log.Debug("chat session assigned", "session_id", resp.SessionID)
	}
	if resp.Reply != "" {
		if _, ok := d.store.AppendIf(t.epoch, models.SenderCoach, resp.Reply); !ok {
			out.Stale = true
			return out
		}
		out.Reply = resp.Reply
	}
	if resp.End {
		out.Ended = true
		d.store.AppendIf(t.epoch, models.SenderSystem, completionText(resp.Mood))
	}
	return out
}

// fail appends the compensating system message. It reports false when the
// session has moved on and nothing was appended.
func (t *Turn) fail(text string) bool {
	_, ok := t.d.store.AppendIf(t.epoch, models.SenderSystem, text)
	return ok
}

// Send runs a whole turn. Blank text is a no-op returning a zero Outcome.
func (d *Dispatcher) Send(ctx context.Context, text string) (Outcome, error) {
	turn, err := d.Begin(text)
	if err != nil || turn == nil {
		return Outcome{}, err
	}
	return turn.Complete(ctx), nil
}

func completionText(mood *MoodAnalysis) string {
	if mood == nil || mood.Mood == "" {
		return textCompleteBase
	}
	if mood.Reason == "" {
		return fmt.Sprintf("%s Detected mood: %s.", textCompleteBase, mood.Mood)
	}
	return fmt.Sprintf("%s Detected mood: %s (%s).", textCompleteBase, mood.Mood, mood.Reason)
}
