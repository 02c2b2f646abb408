package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/strrl/coach-dashboard/internal/events"
	"github.com/strrl/coach-dashboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMeetups() []models.Meetup {
	return []models.Meetup{
		{ID: "meet-1", EmployeeName: "Alex Johnson", IsPending: true, Status: models.MeetupUpcoming},
		{ID: "meet-2", EmployeeName: "Jamie Smith", Status: models.MeetupUpcoming},
		{ID: "meet-0", EmployeeName: "Alex Johnson", Status: models.MeetupPast},
	}
}

func ids(meetups []models.Meetup) []string {
	out := make([]string, len(meetups))
	for i, m := range meetups {
		out[i] = m.ID
	}
	return out
}

func TestBoard_Complete(t *testing.T) {
	b := NewBoard(sampleMeetups())
	assert.Equal(t, []string{"meet-1", "meet-2"}, ids(b.Upcoming()))
	assert.Equal(t, []string{"meet-0"}, ids(b.History()))

	v := b.Version()
	require.True(t, b.Complete("meet-1"))
	assert.Greater(t, b.Version(), v)

	assert.Equal(t, []string{"meet-2"}, ids(b.Upcoming()))
	assert.Equal(t, []string{"meet-1", "meet-0"}, ids(b.History()))

	m, ok := b.Find("meet-1")
	require.True(t, ok)
	assert.Equal(t, models.MeetupPast, m.Status)
	assert.False(t, m.IsPending)

	assert.False(t, b.Complete("meet-1"), "already completed")
	assert.False(t, b.Complete("meet-404"))
}

func TestBoard_CopiesAreIndependent(t *testing.T) {
	b := NewBoard(sampleMeetups())
	upcoming := b.Upcoming()
	b.Complete("meet-1")
	assert.Equal(t, []string{"meet-1", "meet-2"}, ids(upcoming))
}

func TestBoard_Attach(t *testing.T) {
	b := NewBoard(sampleMeetups())
	bus := events.NewBus()
	detach := b.Attach(bus)

	bus.Publish(events.MeetupCompleted{MeetupID: "meet-2"})
	assert.Equal(t, []string{"meet-1"}, ids(b.Upcoming()))

	detach()
	bus.Publish(events.MeetupCompleted{MeetupID: "meet-1"})
	assert.Equal(t, []string{"meet-1"}, ids(b.Upcoming()))
}

func TestLoader_DeliversResult(t *testing.T) {
	l := NewLoader()
	id, results := l.Load(context.Background(), LoadMeetups, func(context.Context) (any, error) {
		return sampleMeetups(), nil
	})

	res := <-results
	assert.Equal(t, id, res.RequestID)
	assert.Equal(t, LoadMeetups, res.Kind)
	require.NoError(t, res.Err)
	assert.Len(t, res.Data, 3)
	assert.Eventually(t, func() bool { return l.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestLoader_Cancel(t *testing.T) {
	l := NewLoader()
	started := make(chan struct{})
	id, results := l.Load(context.Background(), LoadMoodSummary, func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	<-started
	l.Cancel(id)
	res := <-results
	assert.True(t, errors.Is(res.Err, context.Canceled))
}

func TestLoader_CloseRejectsNewLoads(t *testing.T) {
	l := NewLoader()
	started := make(chan struct{})
	_, running := l.Load(context.Background(), LoadEmployees, func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started
	l.Close()
	assert.ErrorIs(t, (<-running).Err, context.Canceled)

	_, results := l.Load(context.Background(), LoadEmployees, func(context.Context) (any, error) {
		t.Fatal("must not run after Close")
		return nil, nil
	})
	assert.ErrorIs(t, (<-results).Err, context.Canceled)
}
