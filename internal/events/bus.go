// Package events carries notifications between dashboard components that
// do not know about each other.
package events

import "sync"

// MeetupCompleted is published when a meetup is marked as done
type MeetupCompleted struct {
	MeetupID string
}

// Bus fans MeetupCompleted out to subscribers in subscription order
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func(MeetupCompleted)
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function removing it again
func (b *Bus) Subscribe(fn func(MeetupCompleted)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers ev to every subscriber synchronously
func (b *Bus) Publish(ev MeetupCompleted) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
