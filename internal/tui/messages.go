package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/dashboard"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// Message types for async operations
type (
	// StoreChangedMsg is sent whenever the session store signals a change
	StoreChangedMsg struct{}

	// TurnCompletedMsg carries the reconciled outcome of a sent message
	TurnCompletedMsg struct {
		Outcome chat.Outcome
	}

	// NotificationMsg carries a transient notification to show as a toast
	NotificationMsg struct {
		Notification chat.Notification
	}

	// ToastExpiredMsg removes a toast once its TTL has passed
	ToastExpiredMsg struct {
		ID int
	}

	// MeetupsLoadedMsg contains loaded meetups
	MeetupsLoadedMsg struct {
		RequestID string
		Meetups   []models.Meetup
		Error     error
	}

	// MoodLoadedMsg contains the mood summary of one employee
	MoodLoadedMsg struct {
		RequestID  string
		EmployeeID string
		Counts     []models.MoodCount
		Error      error
	}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// DataSource is the read side the shell needs from the dashboard repository
type DataSource interface {
	Meetups(ctx context.Context) ([]models.Meetup, error)
	MoodSummary(ctx context.Context, employeeID string) ([]models.MoodCount, error)
}

// waitForStoreChange blocks until the store signals a change
func waitForStoreChange(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		<-store.Changes()
		return StoreChangedMsg{}
	}
}

// waitForNotification blocks until a notification arrives
func waitForNotification(ch <-chan chat.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return NotificationMsg{Notification: n}
	}
}

// completeTurnCmd performs the network half of a send
func completeTurnCmd(ctx context.Context, turn *chat.Turn) tea.Cmd {
	return func() tea.Msg {
		return TurnCompletedMsg{Outcome: turn.Complete(ctx)}
	}
}

// loadMeetupsCmd loads meetups through the loader
func loadMeetupsCmd(ctx context.Context, loader *dashboard.Loader, src DataSource) (string, tea.Cmd) {
	id, results := loader.Load(ctx, dashboard.LoadMeetups, func(ctx context.Context) (any, error) {
		return src.Meetups(ctx)
	})
	return id, func() tea.Msg {
		res := <-results
		meetups, _ := res.Data.([]models.Meetup)
		return MeetupsLoadedMsg{RequestID: res.RequestID, Meetups: meetups, Error: res.Err}
	}
}

// loadMoodCmd loads the mood summary of employeeID through the loader
func loadMoodCmd(ctx context.Context, loader *dashboard.Loader, src DataSource, employeeID string) (string, tea.Cmd) {
	id, results := loader.Load(ctx, dashboard.LoadMoodSummary, func(ctx context.Context) (any, error) {
		return src.MoodSummary(ctx, employeeID)
	})
	return id, func() tea.Msg {
		res := <-results
		counts, _ := res.Data.([]models.MoodCount)
		return MoodLoadedMsg{RequestID: res.RequestID, EmployeeID: employeeID, Counts: counts, Error: res.Err}
	}
}

// expireToastCmd schedules removal of toast id
func expireToastCmd(id int, ttl time.Duration) tea.Cmd {
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
