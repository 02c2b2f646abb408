package dashboard

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/strrl/coach-dashboard/internal/events"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// Board holds the upcoming and past meetup lists shown beside the chat
type Board struct {
	mu       sync.RWMutex
	upcoming []models.Meetup
	history  []models.Meetup
	version  uint64
}

// NewBoard splits meetups by status, keeping their order
func NewBoard(meetups []models.Meetup) *Board {
	b := &Board{}
	b.Reset(meetups)
	return b
}

// Reset replaces the board contents
func (b *Board) Reset(meetups []models.Meetup) {
	upcoming, history := lo.FilterReject(meetups, func(m models.Meetup, _ int) bool {
		return m.Status != models.MeetupPast
	})

	b.mu.Lock()
	b.upcoming = upcoming
	b.history = history
	b.version++
	b.mu.Unlock()
}

// Upcoming returns a copy of the upcoming meetups
func (b *Board) Upcoming() []models.Meetup {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.upcoming)
}

// History returns a copy of the past meetups, most recently completed first
func (b *Board) History() []models.Meetup {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.history)
}

// Version changes whenever the lists change
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Find looks a meetup up in both lists
func (b *Board) Find(meetupID string) (models.Meetup, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if m, ok := lo.Find(b.upcoming, func(m models.Meetup) bool { return m.ID == meetupID }); ok {
		return m, true
	}
	return lo.Find(b.history, func(m models.Meetup) bool { return m.ID == meetupID })
}

// Complete moves an upcoming meetup to the front of the history.
// It reports whether the meetup was moved.
func (b *Board) Complete(meetupID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.upcoming, func(m models.Meetup) bool { return m.ID == meetupID })
	if idx < 0 {
		return false
	}
	m := b.upcoming[idx]
	m.Status = models.MeetupPast
	m.IsPending = false

	b.upcoming = slices.Delete(slices.Clone(b.upcoming), idx, idx+1)
	b.history = append([]models.Meetup{m}, b.history...)
	b.version++
	return true
}

// Schedule inserts a new meetup into the upcoming list, keeping schedule order
func (b *Board) Schedule(meetup models.Meetup) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	byID := func(m models.Meetup) bool { return m.ID == meetup.ID }
	if slices.ContainsFunc(b.upcoming, byID) || slices.ContainsFunc(b.history, byID) {
		return fmt.Errorf("%w: %s", ErrDuplicateMeetup, meetup.ID)
	}

	idx := slices.IndexFunc(b.upcoming, func(m models.Meetup) bool { return m.ScheduledFor > meetup.ScheduledFor })
	if idx < 0 {
		idx = len(b.upcoming)
	}
	b.upcoming = slices.Insert(slices.Clone(b.upcoming), idx, meetup)
	b.version++
	return nil
}

// Remove drops an upcoming meetup. It reports whether the meetup was found.
func (b *Board) Remove(meetupID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.upcoming, func(m models.Meetup) bool { return m.ID == meetupID })
	if idx < 0 {
		return false
	}
	b.upcoming = slices.Delete(slices.Clone(b.upcoming), idx, idx+1)
	b.version++
	return true
}

// Attach subscribes the board to meetup completions on bus
func (b *Board) Attach(bus *events.Bus) func() {
	return bus.Subscribe(func(ev events.MeetupCompleted) {
		b.Complete(ev.MeetupID)
	})
}
