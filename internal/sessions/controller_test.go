package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/events"
	"github.com/strrl/coach-dashboard/internal/sessions"
	"github.com/strrl/coach-dashboard/internal/speech"
	"github.com/strrl/coach-dashboard/mocks"
	"github.com/strrl/coach-dashboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type quietEngine struct{ events chan speech.Event }

func (quietEngine) Start(context.Context) error { return nil }
func (quietEngine) Stop() error { return nil }
func (e quietEngine) Events() <-chan speech.Event { return e.events }

var alexMeetup = models.Meetup{ID: "meet-1", EmployeeID: "emp-1", EmployeeName: "Alex Johnson"}

func newController(t *testing.T, engine speech.Engine) (*sessions.Controller, *mocks.MockClient, *events.Bus) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	store := chat.NewStore()
	d := chat.NewDispatcher(store, client, nil, nil, time.Second)
	l := speech.NewListener(store, engine, nil, nil)
	bus := events.NewBus()
	c := sessions.NewController(store, d, l, bus, nil)
	t.Cleanup(func() { _ = c.Shutdown() })
	return c, client, bus
}

func messageTexts(s *chat.Store) []string {
	var out []string
	for _, m := range s.Messages() {
		out = append(out, m.Text)
	}
	return out
}

func TestController_OpenRoutesByEmployee(t *testing.T) {
	c, client, _ := newController(t, nil)
	c.Open(alexMeetup)

	client.EXPECT().
		Send(gomock.Any(), chat.Request{CounterpartID: "emp-1", Message: "hello"}).
		Return(chat.Response{Status: chat.StatusSuccess, SessionID: "s1", Reply: "hi"}, nil)

	out, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Reply)
	assert.Equal(t, []string{
		"Meetup with Alex Johnson started. You can use voice or text to communicate.",
		"hello",
		"hi",
	}, messageTexts(c.Store()))
}

func TestController_CloseWhileListening(t *testing.T) {
	c, _, _ := newController(t, quietEngine{events: make(chan speech.Event)})
	c.Open(alexMeetup)
	require.NoError(t, c.ToggleListening())
	require.True(t, c.Store().Listening())

	c.Close()

	snap := c.Store().Snapshot()
	assert.False(t, snap.Open)
	assert.False(t, snap.Listening)
	assert.Equal(t, []string{
		"Meetup with Alex Johnson started. You can use voice or text to communicate.",
		"Voice transcription started.",
		"Voice transcription stopped.",
	}, messageTexts(c.Store()))
}

func TestController_ReopenSameMeetupContinues(t *testing.T) {
	c, _, _ := newController(t, nil)
	c.Open(alexMeetup)
	c.ToggleMute()
	c.Close()
	c.Open(alexMeetup)

	assert.Len(t, c.Store().Messages(), 3)
	assert.Equal(t, "emp-1", c.Store().Snapshot().CounterpartID)
}

func TestController_Archive(t *testing.T) {
	c, _, bus := newController(t, nil)
	var completed []string
	bus.Subscribe(func(ev events.MeetupCompleted) { completed = append(completed, ev.MeetupID) })

	assert.ErrorIs(t, c.Archive(time.Millisecond), sessions.ErrNoActiveMeetup)

	c.Open(alexMeetup)
	require.NoError(t, c.Archive(20*time.Millisecond))

	assert.Equal(t, []string{"meet-1"}, completed)
	msgs := c.Store().Messages()
	assert.Equal(t, "Meetup marked as done.", msgs[len(msgs)-1].Text)
	assert.True(t, c.Store().IsOpen(), "closing is deferred")

	assert.Eventually(t, func() bool { return !c.Store().IsOpen() }, time.Second, 5*time.Millisecond)
}

func TestController_ArchiveKeepsNewerMeetupOpen(t *testing.T) {
	c, _, _ := newController(t, nil)
	c.Open(alexMeetup)
	require.NoError(t, c.Archive(20*time.Millisecond))

	c.Open(models.Meetup{ID: "meet-2", EmployeeID: "emp-2", EmployeeName: "Jamie Smith"})

	time.Sleep(60 * time.Millisecond)
	snap := c.Store().Snapshot()
	assert.True(t, snap.Open)
	assert.Equal(t, "meet-2", snap.MeetupID)
}

func TestController_ListeningUnsupported(t *testing.T) {
	c, _, _ := newController(t, nil)
	c.Open(alexMeetup)

	assert.False(t, c.SpeechSupported())
	assert.ErrorIs(t, c.ToggleListening(), speech.ErrUnsupported)
	assert.Len(t, c.Store().Messages(), 1)
}

func TestController_OpenWithoutEmployeeRoutesByMeetup(t *testing.T) {
	c, client, _ := newController(t, nil)
	c.Open(models.Meetup{ID: "meet-9", EmployeeName: "Walk-in"})
	assert.Equal(t, "meet-9", c.Store().Snapshot().CounterpartID)

	client.EXPECT().
		Send(gomock.Any(), chat.Request{CounterpartID: "meet-9", Message: "hello"}).
		Return(chat.Response{Status: chat.StatusSuccess, SessionID: "s9", Reply: "hi"}, nil)

	out, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Reply)
}
