package speech

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for recognizer event")
		return Event{}
	}
}

func TestNewCommandEngine_Empty(t *testing.T) {
	_, err := NewCommandEngine("   ", "en-US", nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCommandEngine_ResultsThenEnd(t *testing.T) {
	requireShell(t)

	e, err := NewCommandEngine("sh", "de-DE", nil)
	require.NoError(t, err)
	e.args = []string{"-c", `echo "~hel"; echo; echo "$SPEECH_LOCALE"`}

	require.NoError(t, e.Start(context.Background()))

	ev := nextEvent(t, e.Events())
	assert.Equal(t, Event{Kind: EventResult, Transcript: "hel", Final: false}, ev)

	ev = nextEvent(t, e.Events())
	assert.Equal(t, Event{Kind: EventResult, Transcript: "de-DE", Final: true}, ev)

	ev = nextEvent(t, e.Events())
	assert.Equal(t, EventEnd, ev.Kind)
}

func TestCommandEngine_NonZeroExitIsError(t *testing.T) {
	requireShell(t)

	e, err := NewCommandEngine("sh", "en-US", nil)
	require.NoError(t, err)
	e.args = []string{"-c", "exit 3"}

	require.NoError(t, e.Start(context.Background()))
	ev := nextEvent(t, e.Events())
	require.Equal(t, EventError, ev.Kind)
	assert.Contains(t, ev.Err.Error(), "status 3")
}

func TestCommandEngine_StopDoesNotReportEnd(t *testing.T) {
	requireShell(t)

	e, err := NewCommandEngine("sh", "en-US", nil)
	require.NoError(t, err)
	e.args = []string{"-c", "exec sleep 30"}

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Stop())

	select {
	case ev := <-e.Events():
		t.Fatalf("unexpected event after Stop: %v", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}

	// the engine can be started again after Stop
	e.args = []string{"-c", "echo again"}
	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, "again", nextEvent(t, e.Events()).Transcript)
}

func TestCommandEngine_MissingBinary(t *testing.T) {
	e, err := NewCommandEngine("definitely-not-a-recognizer-binary", "en-US", nil)
	require.NoError(t, err)
	assert.Error(t, e.Start(context.Background()))
}
