package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// State is the externally observed capture state
type State int

const (
	Stopped State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "stopped"
}

// Transition names a state machine edge
type Transition string

const (
	TransitionStart   Transition = "start"
	TransitionStop    Transition = "stop"
	TransitionRestart Transition = "restart"
	TransitionFail    Transition = "fail"
)

const (
	textStarted = "Voice transcription started."
	textStopped = "Voice transcription stopped."
)

// Listener drives an Engine and writes recognized speech into the chat store.
//
//	Stopped --start--> Listening --stop--> Stopped
//	Listening --restart (benign end)--> Listening
//	Listening --fail (engine error)--> Stopped
type Listener struct {
	store    *chat.Store
	engine   Engine
	notifier chat.Notifier
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	ctx     context.Context
	cancel  context.CancelFunc
	pumping bool
	pumpWG  sync.WaitGroup

	// OnTransition, when set, is called after every transition with the lock released
	OnTransition func(Transition, State)
}

// NewListener creates a listener. A nil engine means the capability is absent.
func NewListener(store *chat.Store, engine Engine, notifier chat.Notifier, log *slog.Logger) *Listener {
	if notifier == nil {
		notifier = chat.NopNotifier{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		store:    store,
		engine:   engine,
		notifier: notifier,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Supported reports whether speech capture is available
func (l *Listener) Supported() bool {
	return l.engine != nil
}

// State returns the current capture state
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// StartListening begins capture. It is a no-op when already listening or
// when no engine is available.
func (l *Listener) StartListening() error {
	if !l.Supported() {
		l.notifier.Notify(chat.Notification{
			Kind:   chat.KindCapabilityAbsent,
			Title:  "Voice not available",
			Detail: "Speech recognition is not supported in this environment",
		})
		return ErrUnsupported
	}

	l.mu.Lock()
	if l.state == Listening {
		l.mu.Unlock()
		return nil
	}
	if err := l.engine.Start(l.ctx); err != nil {
		l.mu.Unlock()
		l.log.Warn("speech engine failed to start", "error", err)
		l.fail(err)
		return fmt.Errorf("failed to start speech engine: %w", err)
	}
	l.state = Listening
	l.ensurePumpLocked()
	l.mu.Unlock()

	l.store.SetListening(true)
	l.store.Append(models.SenderSystem, textStarted)
	l.log.Debug("speech capture started")
	l.transitioned(TransitionStart, Listening)
	return nil
}

// StopListening ends capture. It is a no-op when already stopped.
func (l *Listener) StopListening() error {
	l.mu.Lock()
	if l.state == Stopped {
		l.mu.Unlock()
		return nil
	}
	l.state = Stopped
	err := l.engine.Stop()
	l.mu.Unlock()

	l.store.SetListening(false)
	l.store.Append(models.SenderSystem, textStopped)
	l.log.Debug("speech capture stopped")
	l.transitioned(TransitionStop, Stopped)
	if err != nil {
		return fmt.Errorf("failed to stop speech engine: %w", err)
	}
	return nil
}

// Toggle starts or stops capture depending on the current state
func (l *Listener) Toggle() error {
	if l.State() == Listening {
		return l.StopListening()
	}
	return l.StartListening()
}

// HandleEvent applies one engine notification to the state machine
func (l *Listener) HandleEvent(ev Event) {
	l.mu.Lock()
	if l.state != Listening {
		l.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventResult:
		// Held across the append so a concurrent stop is announced after the transcript
		text := strings.TrimSpace(ev.Transcript)
		if ev.Final {
			l.store.SetInterim("")
			if text != "" {
				l.store.Append(models.SenderCoach, text)
			}
		} else {
			l.store.SetInterim(text)
		}
		l.mu.Unlock()

	case EventEnd:
		err := l.engine.Start(l.ctx)
		if err == nil {
			l.mu.Unlock()
			l.log.Debug("speech engine ended on its own, restarted")
			l.transitioned(TransitionRestart, Listening)
			return
		}
		l.state = Stopped
		l.mu.Unlock()
		l.log.Warn("speech engine failed to restart", "error", err)
		l.fail(err)

	case EventError:
		l.state = Stopped
		_ = l.engine.Stop()
		l.mu.Unlock()
		l.log.Warn("speech capture error", "error", ev.Err)
		l.fail(ev.Err)

	default:
		l.mu.Unlock()
	}
}

func (l *Listener) fail(err error) {
	if err == nil {
		err = fmt.Errorf("unknown capture error")
	}
	l.store.SetListening(false)
	l.store.Append(models.SenderSystem, fmt.Sprintf("Voice transcription stopped: %v.", err))
	l.notifyCaptureError(err)
	l.transitioned(TransitionFail, Stopped)
}

func (l *Listener) notifyCaptureError(err error) {
	l.notifier.Notify(chat.Notification{
		Kind:   chat.KindCaptureError,
		Title:  "Speech recognition error",
		Detail: err.Error(),
	})
}

func (l *Listener) transitioned(t Transition, s State) {
	if l.OnTransition != nil {
		l.OnTransition(t, s)
	}
}

// ensurePumpLocked starts the goroutine forwarding engine events, once
func (l *Listener) ensurePumpLocked() {
	if l.pumping {
		return
	}
	l.pumping = true
	events := l.engine.Events()
	l.pumpWG.Add(1)
	go func() {
		defer l.pumpWG.Done()
		for {
			select {
			case <-l.ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				l.HandleEvent(ev)
			}
		}
	}()
}

// Close stops capture and the event pump
func (l *Listener) Close() error {
	var err error
	if l.Supported() {
		err = l.StopListening()
	}
	l.cancel()
	l.pumpWG.Wait()
	return err
}
