package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// InterimPrefix marks a stdout line as an interim transcript
const InterimPrefix = "~"

// CommandEngine runs an external recognizer process. Each stdout line is one
// result; lines starting with InterimPrefix are interim.
type CommandEngine struct {
	name   string
	args   []string
	locale string
	log    *slog.Logger

	events chan Event

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
	done    chan struct{}
}

// NewCommandEngine creates an engine for the given command line, e.g. "vosk-stream --continuous"
func NewCommandEngine(commandLine, locale string, log *slog.Logger) (*CommandEngine, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, ErrUnsupported
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CommandEngine{
		name:   fields[0],
		args:   fields[1:],
		locale: locale,
		log:    log,
		events: make(chan Event, 32),
	}, nil
}

// Events returns the engine's notification channel
func (e *CommandEngine) Events() <-chan Event {
	return e.events
}

// Start launches the recognizer process
func (e *CommandEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, e.name, e.args...)
	cmd.Env = append(os.Environ(), "SPEECH_LOCALE="+e.locale)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open recognizer output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start recognizer %q: %w", e.name, err)
	}

	e.cmd = cmd
	e.stopped = false
	e.done = make(chan struct{})
	e.log.Debug("recognizer started", "command", e.name, "pid", cmd.Process.Pid, "locale", e.locale)

	go e.run(cmd, stdout, e.done)
	return nil
}

func (e *CommandEngine) run(cmd *exec.Cmd, stdout io.Reader, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		final := true
		if strings.HasPrefix(line, InterimPrefix) {
			final = false
			line = strings.TrimSpace(strings.TrimPrefix(line, InterimPrefix))
		}
		e.emit(Event{Kind: EventResult, Transcript: line, Final: final})
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	e.mu.Lock()
	requested := e.stopped
	if e.cmd == cmd {
		e.cmd = nil
	}
	e.mu.Unlock()

	if requested {
		return
	}

	switch {
	case scanErr != nil:
		e.emit(Event{Kind: EventError, Err: fmt.Errorf("failed to read recognizer output: %w", scanErr)})
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			e.emit(Event{Kind: EventError, Err: fmt.Errorf("recognizer exited with status %d", exitErr.ExitCode())})
			return
		}
		e.emit(Event{Kind: EventError, Err: waitErr})
	default:
		e.emit(Event{Kind: EventEnd})
	}
}

func (e *CommandEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.Warn("dropping recognizer event, consumer is behind", "kind", ev.Kind.String())
	}
}

// Stop terminates the recognizer process and waits for it to exit
func (e *CommandEngine) Stop() error {
	e.mu.Lock()
	cmd := e.cmd
	done := e.done
	if cmd == nil {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop recognizer: %w", err)
	}
	<-done
	return nil
}
