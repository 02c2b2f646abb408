package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LoadKind tells the shell which part of the dashboard a load belongs to
type LoadKind int

const (
	LoadMeetups LoadKind = iota
	LoadMoodSummary
	LoadEmployees
)

// LoadResult is delivered once per load
type LoadResult struct {
	RequestID string
	Kind      LoadKind
	Data      any
	Err       error
}

// Loader runs dashboard loads in the background and keeps them cancellable
type Loader struct {
	mu       sync.Mutex
	contexts map[string]context.CancelFunc
	closed   bool
}

// NewLoader creates an idle loader
func NewLoader() *Loader {
	return &Loader{contexts: make(map[string]context.CancelFunc)}
}

// Load starts fn and returns its request id with a channel receiving the result
func (l *Loader) Load(ctx context.Context, kind LoadKind, fn func(context.Context) (any, error)) (string, <-chan LoadResult) {
	requestID := uuid.New().String()
	results := make(chan LoadResult, 1)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		results <- LoadResult{RequestID: requestID, Kind: kind, Err: context.Canceled}
		close(results)
		return requestID, results
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.contexts[requestID] = cancel
	l.mu.Unlock()

	go func() {
		defer close(results)
		defer func() {
			l.mu.Lock()
			delete(l.contexts, requestID)
			l.mu.Unlock()
			cancel()
		}()

		data, err := fn(loadCtx)
		if err == nil {
			err = loadCtx.Err()
		}
		results <- LoadResult{RequestID: requestID, Kind: kind, Data: data, Err: err}
	}()

	return requestID, results
}

// Pending returns the number of loads still running
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.contexts)
}

// Cancel cancels a specific load
func (l *Loader) Cancel(requestID string) {
	l.mu.Lock()
	cancel, ok := l.contexts[requestID]
	l.mu.Unlock()

	if ok {
		cancel()
	}
}

// CancelAll cancels all running loads
func (l *Loader) CancelAll() {
	l.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(l.contexts))
	for _, cancel := range l.contexts {
		cancels = append(cancels, cancel)
	}
	l.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Close cancels running loads and rejects new ones
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.CancelAll()
}
