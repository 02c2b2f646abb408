// Package sessions owns the lifecycle of the active meetup conversation:
// opening and closing it, speech capture, sending and archiving.
package sessions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/events"
	"github.com/strrl/coach-dashboard/internal/speech"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// DefaultArchiveDelay is how long a finished meetup stays visible before it closes
const DefaultArchiveDelay = 1500 * time.Millisecond

// ErrNoActiveMeetup is returned by operations that need an open meetup
var ErrNoActiveMeetup = errors.New("no active meetup")

// Controller is the session context handed to the presentation layer
type Controller struct {
	store      *chat.Store
	dispatcher *chat.Dispatcher
	listener   *speech.Listener
	bus        *events.Bus
	log        *slog.Logger

	mu           sync.Mutex
	archiveTimer *time.Timer
}

// NewController wires the conversation components together
func NewController(store *chat.Store, dispatcher *chat.Dispatcher, listener *speech.Listener, bus *events.Bus, log *slog.Logger) *Controller {
	if bus == nil {
		bus = events.NewBus()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		store:      store,
		dispatcher: dispatcher,
		listener:   listener,
		bus:        bus,
		log:        log,
	}
}

// Store returns the session state store
func (c *Controller) Store() *chat.Store {
	return c.store
}

// SpeechSupported reports whether voice capture is available
func (c *Controller) SpeechSupported() bool {
	return c.listener.Supported()
}

// Open shows the conversation for meetup, continuing it if it is already the active one
func (c *Controller) Open(meetup models.Meetup) {
	c.store.Open(meetup.ID, meetup.EmployeeName)
	if meetup.EmployeeID != "" {
		c.store.SetCounterpartID(meetup.EmployeeID)
	}
	c.log.Info("meetup opened", "meetup_id", meetup.ID, "employee_id", meetup.EmployeeID)
}

// Close stops listening and hides the conversation
func (c *Controller) Close() {
	if c.store.Listening() {
		if err := c.listener.StopListening(); err != nil {
			c.log.Warn("failed to stop listening on close", "error", err)
		}
	}
	c.store.Close()
	c.log.Debug("meetup closed", "meetup_id", c.store.MeetupID())
}

// ToggleMute flips the system voice preference
func (c *Controller) ToggleMute() bool {
	return c.store.ToggleMute()
}

// ToggleListening starts or stops speech capture
func (c *Controller) ToggleListening() error {
	return c.listener.Toggle()
}

// Begin appends text as the user's message and returns the pending turn
func (c *Controller) Begin(text string) (*chat.Turn, error) {
	return c.dispatcher.Begin(text)
}

// Send delivers text and waits for the reply
func (c *Controller) Send(ctx context.Context, text string) (chat.Outcome, error) {
	return c.dispatcher.Send(ctx, text)
}

// Archive marks the active meetup as done. The conversation closes after
// delay unless another meetup is opened first.
func (c *Controller) Archive(delay time.Duration) error {
	snap := c.store.Snapshot()
	if !snap.Open || snap.MeetupID == "" {
		return ErrNoActiveMeetup
	}
	if delay <= 0 {
		delay = DefaultArchiveDelay
	}

	meetupID := snap.MeetupID
	c.store.Append(models.SenderSystem, "Meetup marked as done.")
	c.bus.Publish(events.MeetupCompleted{MeetupID: meetupID})
	c.log.Info("meetup archived", "meetup_id", meetupID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.archiveTimer != nil {
		c.archiveTimer.Stop()
	}
	c.archiveTimer = time.AfterFunc(delay, func() {
		if c.store.MeetupID() != meetupID {
			c.log.Debug("skipping archive close, another meetup is active", "meetup_id", meetupID)
			return
		}
		c.Close()
	})
	return nil
}

// Shutdown cancels pending work and releases speech capture
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	if c.archiveTimer != nil {
		c.archiveTimer.Stop()
	}
	c.mu.Unlock()
	return c.listener.Close()
}
