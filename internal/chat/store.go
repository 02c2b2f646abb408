// Package chat holds the state of the active meetup conversation and turns
// user input into requests against the remote chat endpoint.
package chat

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// Snapshot is a point-in-time copy of the session state
type Snapshot struct {
	Open            bool
	Loading         bool
	Muted           bool
	Listening       bool
	MeetupID        string
	CounterpartName string
	CounterpartID   string
	Token           string
	Interim         string
	Epoch           uint64
	Messages        []models.Message
}

// Store is the single source of truth for the active conversation.
// It performs no I/O and is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	open            bool
	loading         bool
	muted           bool
	listening       bool
	meetupID        string
	counterpartName string
	counterpartID   string
	token           string
	interim         string
	epoch           uint64
	seq             uint64
	messages        []models.Message

	changes chan struct{}
	now     func() time.Time
}

// NewStore creates an empty, closed session store
func NewStore() *Store {
	return &Store{
		changes: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Open activates the conversation for meetupID. A different meetup than the
// active one starts a fresh session.
func (s *Store) Open(meetupID, counterpartName string) {
	s.mu.Lock()
	if s.meetupID != meetupID {
		s.clearLocked()
	}
	s.meetupID = meetupID
	s.counterpartName = counterpartName
	if s.counterpartID == "" {
		s.counterpartID = meetupID
	}
	s.open = true
	s.appendLocked(models.SenderSystem,
		fmt.Sprintf("Meetup with %s started. You can use voice or text to communicate.", counterpartName))
	s.mu.Unlock()
	s.signal()
}

// Close hides the conversation. Messages and the token are kept so the same
// meetup can be continued.
func (s *Store) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	s.signal()
}

// ToggleMute flips the system voice preference and records the new state
func (s *Store) ToggleMute() bool {
	s.mu.Lock()
	s.muted = !s.muted
	muted := s.muted
	if muted {
		s.appendLocked(models.SenderSystem, "System voice muted.")
	} else {
		s.appendLocked(models.SenderSystem, "System voice unmuted.")
	}
	s.mu.Unlock()
	s.signal()
	return muted
}

// Clear empties the transcript and drops the continuation token.
// Open and mute flags are left untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	s.signal()
}

func (s *Store) clearLocked() {
	s.messages = nil
	s.token = ""
	s.interim = ""
	s.counterpartID = ""
	s.epoch++
}

// Append adds a message to the transcript
func (s *Store) Append(sender models.Sender, text string) models.Message {
	s.mu.Lock()
	msg := s.appendLocked(sender, text)
	s.mu.Unlock()
	s.signal()
	return msg
}

// Routing is what a request needs to reach the right conversation
type Routing struct {
	Epoch         uint64
	Token         string
	CounterpartID string
}

// BeginTurn appends a user message, raises the loading flag and returns the
// routing state the message was appended under, all in one step
func (s *Store) BeginTurn(text string) (models.Message, Routing) {
	s.mu.Lock()
	msg := s.appendLocked(models.SenderUser, text)
	s.loading = true
	r := Routing{Epoch: s.epoch, Token: s.token, CounterpartID: s.counterpartID}
	s.mu.Unlock()
	s.signal()
	return msg, r
}

// AppendIf adds a message only while the store is still in epoch
func (s *Store) AppendIf(epoch uint64, sender models.Sender, text string) (models.Message, bool) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return models.Message{}, false
	}
	msg := s.appendLocked(sender, text)
	s.mu.Unlock()
	s.signal()
	return msg, true
}

func (s *Store) appendLocked(sender models.Sender, text string) models.Message {
	s.seq++
	msg := models.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Seq:       s.seq,
		Text:      text,
		Sender:    sender,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// SetCounterpartID sets the routing key used when talking to the chat endpoint
func (s *Store) SetCounterpartID(id string) {
	s.mu.Lock()
	s.counterpartID = id
	s.mu.Unlock()
}

// SetTokenIf stores the continuation token when none is stored yet and the
// store is still in epoch. It reports whether the token was stored.
func (s *Store) SetTokenIf(epoch uint64, token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.token != "" {
		return false
	}
	s.token = token
	return true
}

// Token returns the continuation token, empty when none is assigned
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Epoch returns the current session generation. It changes on every Clear.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// SetLoading updates the loading flag
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.signal()
}

// SetListening updates the listening flag
func (s *Store) SetListening(listening bool) {
	s.mu.Lock()
	s.listening = listening
	if !listening {
		s.interim = ""
	}
	s.mu.Unlock()
	s.signal()
}

// SetInterim records the in-progress transcript shown below the messages
func (s *Store) SetInterim(text string) {
	s.mu.Lock()
	s.interim = text
	s.mu.Unlock()
	s.signal()
}

// MeetupID returns the active meetup identifier
func (s *Store) MeetupID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meetupID
}

// IsOpen reports whether a conversation is shown
func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Listening reports the listening flag
func (s *Store) Listening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listening
}

// Messages returns a copy of the transcript
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Snapshot returns a copy of the whole session state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Open:            s.open,
		Loading:         s.loading,
		Muted:           s.muted,
		Listening:       s.listening,
		MeetupID:        s.meetupID,
		CounterpartName: s.counterpartName,
		CounterpartID:   s.counterpartID,
		Token:           s.token,
		Interim:         s.interim,
		Epoch:           s.epoch,
		Messages:        slices.Clone(s.messages),
	}
}

// Changes signals state changes. Signals coalesce: one pending signal stands
// for any number of changes since the last receive.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
