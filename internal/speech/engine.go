// Package speech turns a continuously running recognition engine into
// transcript messages for the active meetup.
package speech

import (
	"context"
	"errors"
)

// ErrUnsupported is reported when no recognition engine is available
var ErrUnsupported = errors.New("speech recognition is not supported")

// EventKind distinguishes engine notifications
type EventKind int

const (
	// EventResult carries a transcript, interim or final
	EventResult EventKind = iota
	// EventEnd reports that the engine stopped on its own, e.g. after silence
	EventEnd
	// EventError reports a capture failure
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification delivered by an Engine
type Event struct {
	Kind       EventKind
	Transcript string
	Final      bool
	Err        error
}

// Engine is a continuous speech recognizer for a single locale.
// EventEnd is only delivered for terminations that were not requested via Stop.
type Engine interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}
