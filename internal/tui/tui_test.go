package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/dashboard"
	"github.com/strrl/coach-dashboard/internal/events"
	"github.com/strrl/coach-dashboard/internal/sessions"
	"github.com/strrl/coach-dashboard/internal/speech"
	"github.com/strrl/coach-dashboard/pkg/models"
)

type stubClient struct {
	reply chat.Response
	err   error
	reqs  []chat.Request
}

func (c *stubClient) Send(_ context.Context, req chat.Request) (chat.Response, error) {
	c.reqs = append(c.reqs, req)
	return c.reply, c.err
}

type stubSource struct {
	meetups []models.Meetup
	moods   map[string][]models.MoodCount
}

func (s stubSource) Meetups(context.Context) ([]models.Meetup, error) {
	return s.meetups, nil
}

func (s stubSource) MoodSummary(_ context.Context, employeeID string) ([]models.MoodCount, error) {
	return s.moods[employeeID], nil
}

type stubRoster map[string]models.Employee

func (r stubRoster) Employee(_ context.Context, id string) (models.Employee, error) {
	e, ok := r[id]
	if !ok {
		return models.Employee{}, dashboard.ErrEmployeeNotFound
	}
	return e, nil
}

var testRoster = stubRoster{
	"emp-1": {ID: "emp-1", Name: "Alex Johnson"},
	"emp-3": {ID: "emp-3", Name: "Taylor Wilson"},
}

var testMeetups = []models.Meetup{
	{ID: "meet-1", EmployeeID: "emp-1", EmployeeName: "Alex Johnson", ScheduledFor: "2024-03-18 10:00", IsPending: true, Status: models.MeetupUpcoming},
	{ID: "meet-2", EmployeeID: "emp-2", EmployeeName: "Jamie Smith", ScheduledFor: "2024-03-19 14:00", Status: models.MeetupUpcoming},
	{ID: "meet-0", EmployeeID: "emp-1", EmployeeName: "Alex Johnson", ScheduledFor: "2024-02-01 10:00", Status: models.MeetupPast},
}

func newTestModel(t *testing.T, client chat.Client) model {
	t.Helper()
	store := chat.NewStore()
	bus := events.NewBus()
	board := dashboard.NewBoard(testMeetups)
	board.Attach(bus)
	ctrl := sessions.NewController(
		store,
		chat.NewDispatcher(store, client, nil, nil, time.Second),
		speech.NewListener(store, nil, nil, nil),
		bus,
		nil,
	)
	t.Cleanup(func() { _ = ctrl.Shutdown() })

	m := initialModel(Options{
		Controller:   ctrl,
		Board:        board,
		Scheduler:    dashboard.NewScheduler(testRoster, nil, board, nil),
		ArchiveDelay: time.Hour,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(model)
}

func press(m model, key string) (model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+t":
		msg = tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+l":
		msg = tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+f":
		msg = tea.KeyMsg{Type: tea.KeyCtrlF}
	case "ctrl+d":
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(model), cmd
}

func typeText(m model, text string) model {
	for _, r := range text {
		m, _ = press(m, string(r))
	}
	return m
}

// TestModelInitialization tests the initial model setup
func TestModelInitialization(t *testing.T) {
	m := newTestModel(t, &stubClient{})

	if !m.ready {
		t.Error("Model should be ready after window size is set")
	}
	if len(m.upcoming) != 2 || len(m.history) != 1 {
		t.Errorf("Board not split correctly: %d upcoming, %d past", len(m.upcoming), len(m.history))
	}
	if m.focus != focusList {
		t.Error("Initial focus should be the meetup list")
	}
	if m.snapshot.Open {
		t.Error("No chat should be open initially")
	}
}

// TestOpenMeetup tests starting a meetup from the list
func TestOpenMeetup(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "enter")

	if !m.snapshot.Open || m.snapshot.MeetupID != "meet-1" {
		t.Fatalf("Expected meet-1 to be open, got %+v", m.snapshot)
	}
	if m.focus != focusChat {
		t.Error("Opening a meetup should focus the chat")
	}
	if len(m.snapshot.Messages) != 1 {
		t.Errorf("Expected the welcome message, got %d messages", len(m.snapshot.Messages))
	}
	if !strings.Contains(m.View(), "Meetup with Alex Johnson") {
		t.Error("Header should name the counterpart")
	}
}

// TestSendMessage tests the two phases of a send
func TestSendMessage(t *testing.T) {
	client := &stubClient{reply: chat.Response{Status: chat.StatusSuccess, SessionID: "s1", Reply: "hi there"}}
	m := newTestModel(t, client)
	m, _ = press(m, "enter")
	m = typeText(m, "hello")

	m, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("Sending should return a command completing the turn")
	}
	if m.input.Value() != "" {
		t.Error("Input should be cleared after sending")
	}
	if !m.snapshot.Loading {
		t.Error("Loading flag should be set while the turn is pending")
	}
	if got := m.snapshot.Messages[len(m.snapshot.Messages)-1]; got.Sender != models.SenderUser || got.Text != "hello" {
		t.Errorf("User message should be appended immediately, got %+v", got)
	}

	// typing is ignored while loading
	m = typeText(m, "x")
	if m.input.Value() != "" {
		t.Error("Input should be disabled while loading")
	}

	updated, _ := m.Update(cmd())
	m = updated.(model)
	if m.snapshot.Loading {
		t.Error("Loading flag should be cleared after the reply")
	}
	last := m.snapshot.Messages[len(m.snapshot.Messages)-1]
	if last.Sender != models.SenderCoach || last.Text != "hi there" {
		t.Errorf("Expected coach reply, got %+v", last)
	}
	if len(client.reqs) != 1 || client.reqs[0].CounterpartID != "emp-1" {
		t.Errorf("Request should route by employee id, got %+v", client.reqs)
	}
}

// TestBlankSendIsIgnored tests that whitespace-only input sends nothing
func TestBlankSendIsIgnored(t *testing.T) {
	client := &stubClient{}
	m := newTestModel(t, client)
	m, _ = press(m, "enter")
	m = typeText(m, "   ")

	m, cmd := press(m, "enter")
	if cmd != nil {
		t.Error("Blank input should not start a turn")
	}
	if len(m.snapshot.Messages) != 1 {
		t.Error("Blank input should not append a message")
	}
}

// TestMuteAndMaximize tests the chat toggles
func TestMuteAndMaximize(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "enter")

	m, _ = press(m, "ctrl+t")
	if !m.snapshot.Muted {
		t.Error("ctrl+t should mute")
	}
	if !strings.Contains(m.View(), "[muted]") {
		t.Error("Header should show the muted flag")
	}

	m, _ = press(m, "ctrl+f")
	if !m.maximized || m.chatViewport.Width != m.width {
		t.Error("ctrl+f should give the chat the full width")
	}
	m, _ = press(m, "ctrl+f")
	if m.maximized {
		t.Error("ctrl+f should restore the split view")
	}
}

// TestListenUnsupported tests the voice toggle without a recognizer
func TestListenUnsupported(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "enter")

	if !strings.Contains(m.renderFooter(), "voice unavailable") {
		t.Error("Footer should mark voice as unavailable")
	}
	m, _ = press(m, "ctrl+l")
	if m.snapshot.Listening {
		t.Error("Listening must not start without a recognizer")
	}
}

// TestCloseChat tests esc returning to the list
func TestCloseChat(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "enter")
	m, _ = press(m, "esc")

	if m.snapshot.Open {
		t.Error("esc should close the chat")
	}
	if m.focus != focusList {
		t.Error("Closing should return focus to the list")
	}
}

// TestMarkDone tests moving a meetup to the history
func TestMarkDone(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "enter")
	m, _ = press(m, "ctrl+d")

	if len(m.upcoming) != 1 || m.upcoming[0].ID != "meet-2" {
		t.Errorf("meet-1 should leave the upcoming list, got %+v", m.upcoming)
	}
	if len(m.history) != 2 || m.history[0].ID != "meet-1" {
		t.Errorf("meet-1 should lead the history, got %+v", m.history)
	}
	last := m.snapshot.Messages[len(m.snapshot.Messages)-1]
	if last.Text != "Meetup marked as done." {
		t.Errorf("Expected done message, got %q", last.Text)
	}
}

// TestNavigation tests cursor movement across both lists
func TestNavigation(t *testing.T) {
	m := newTestModel(t, &stubClient{})

	m, _ = press(m, "k")
	if m.cursor != 0 {
		t.Error("Cursor should not move above the first entry")
	}
	for i := 0; i < 5; i++ {
		m, _ = press(m, "j")
	}
	if m.cursor != 2 {
		t.Errorf("Cursor should stop at the last entry, got %d", m.cursor)
	}

	m, _ = press(m, "enter")
	if m.snapshot.Open {
		t.Error("Past meetups should not open a chat")
	}
}

// TestToastLifecycle tests that notifications expire
func TestToastLifecycle(t *testing.T) {
	m := newTestModel(t, &stubClient{})

	updated, _ := m.Update(NotificationMsg{Notification: chat.Notification{Kind: chat.KindConnectionError, Title: "Connection error"}})
	m = updated.(model)
	if len(m.toasts) != 1 {
		t.Fatal("Notification should add a toast")
	}
	if !strings.Contains(m.View(), "Connection error") {
		t.Error("Toast should be rendered")
	}

	updated, _ = m.Update(ToastExpiredMsg{ID: m.toasts[0].id})
	m = updated.(model)
	if len(m.toasts) != 0 {
		t.Error("Expired toast should be removed")
	}
}

// TestAutoScroll tests that the transcript follows new messages
func TestAutoScroll(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "enter")

	for i := 0; i < 40; i++ {
		m.ctrl.Store().Append(models.SenderSystem, "line")
	}
	updated, _ := m.Update(StoreChangedMsg{})
	m = updated.(model)

	if !m.chatViewport.AtBottom() {
		t.Error("Transcript should scroll to the newest message")
	}
}

// TestMoodSummary tests loading and ignoring stale mood results
func TestMoodSummary(t *testing.T) {
	src := stubSource{
		meetups: testMeetups,
		moods: map[string][]models.MoodCount{
			"emp-1": {{Emotion: "happy", Count: 3}, {Emotion: "stressed", Count: 1}},
		},
	}
	m := newTestModel(t, &stubClient{})
	m.source = src

	updated, cmd := m.Update(MeetupsLoadedMsg{Meetups: testMeetups})
	m = updated.(model)
	if cmd == nil {
		t.Fatal("Loading meetups should trigger a mood load")
	}

	updated, _ = m.Update(MoodLoadedMsg{RequestID: "stale", Counts: []models.MoodCount{{Emotion: "sad", Count: 9}}})
	m = updated.(model)
	if len(m.moodCounts) != 0 {
		t.Error("Stale mood results should be ignored")
	}

	updated, _ = m.Update(cmd())
	m = updated.(model)
	if len(m.moodCounts) != 2 {
		t.Fatalf("Expected 2 mood counts, got %d", len(m.moodCounts))
	}
	if !strings.Contains(m.renderMood(), "happy") {
		t.Error("Mood summary should list emotions")
	}
}

// TestSpinnerAnimation tests spinner tick updates
func TestSpinnerAnimation(t *testing.T) {
	var spinner Spinner
	initialFrame := spinner.View()

	spinner.Next()
	if spinner.View() == initialFrame {
		t.Error("Spinner frame should change after Next()")
	}

	for i := 0; i < len(spinnerFrames)-1; i++ {
		spinner.Next()
	}
	if spinner.View() != initialFrame {
		t.Error("Spinner should return to initial frame after full rotation")
	}
}

// TestRenderBar tests bar rendering bounds
func TestRenderBar(t *testing.T) {
	for _, share := range []float64{-1, 0, 0.5, 1, 2} {
		bar := renderBar(share, 10, "42")
		if bar == "" {
			t.Errorf("Bar should not be empty for share %.1f", share)
		}
	}
}

// TestWrapText tests text wrapping functionality
func TestWrapText(t *testing.T) {
	text := "This is a long text that should be wrapped at the specified width"

	for _, line := range wrapText(text, 20) {
		if len(line) > 20 {
			t.Errorf("Line exceeds max width: %s", line)
		}
	}

	if wrapped := wrapText(text, 0); len(wrapped) != 1 {
		t.Error("Width 0 should return single line")
	}

	if wrapped := wrapText("", 20); len(wrapped) != 1 || wrapped[0] != "" {
		t.Error("Empty text should return single empty line")
	}

	if wrapped := wrapText("one\ntwo", 20); len(wrapped) != 2 {
		t.Error("Newlines should start new lines")
	}
}

func TestWrapTextMeasuresCells(t *testing.T) {
	wrapped := wrapText("Grüße für Jürgen", 16)
	if len(wrapped) != 1 {
		t.Errorf("Expected accented text of 16 cells on one line, got %q", wrapped)
	}

	wrapped = wrapText("Grüße für Jürgen", 15)
	if len(wrapped) != 2 || wrapped[1] != "Jürgen" {
		t.Errorf("Expected a break before the last word, got %q", wrapped)
	}
}

// BenchmarkRenderTranscript benchmarks transcript rendering
func BenchmarkRenderTranscript(b *testing.B) {
	store := chat.NewStore()
	store.Open("meet-1", "Alex Johnson")
	for i := 0; i < 200; i++ {
		store.Append(models.SenderUser, "How was your week? Anything on your mind?")
	}
	m := model{snapshot: store.Snapshot()}
	m.chatViewport.Width = 80

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.renderTranscript()
	}
}

// TestScheduleMeetup tests the new meetup form end to end
func TestScheduleMeetup(t *testing.T) {
	m := newTestModel(t, &stubClient{})

	m, _ = press(m, "n")
	if !m.scheduling {
		t.Fatal("n should open the schedule form")
	}
	if got := m.form.inputs[fieldEmployee].Value(); got != "emp-1" {
		t.Errorf("Form should preselect the employee under the cursor, got %q", got)
	}
	if !strings.Contains(m.View(), "Schedule a new meetup") {
		t.Error("View should show the schedule form")
	}

	m.form.inputs[fieldEmployee].SetValue("emp-3")
	m.form.inputs[fieldDate].SetValue("2024-03-18")
	m.form.inputs[fieldTime].SetValue("12:00")
	m, _ = press(m, "tab")
	m, _ = press(m, "tab")
	m, _ = press(m, "tab")
	m, _ = press(m, "tab")
	if m.form.focused != fieldTopics {
		t.Fatalf("Expected focus on topics, got field %d", m.form.focused)
	}
	m = typeText(m, "Workload, Stress")

	m, cmd := press(m, "enter")
	if cmd == nil || !m.form.submitting {
		t.Fatal("enter should submit the form")
	}
	updated, _ := m.Update(cmd())
	m = updated.(model)

	if m.scheduling {
		t.Errorf("Form should close after scheduling, error: %v", m.form.err)
	}
	if len(m.upcoming) != 3 || m.upcoming[1].EmployeeName != "Taylor Wilson" {
		t.Fatalf("New meetup should be inserted in schedule order, got %+v", m.upcoming)
	}
	if m.cursor != 1 {
		t.Errorf("Cursor should move to the new meetup, got %d", m.cursor)
	}
	if got := m.upcoming[1].Topics; len(got) != 2 || got[1] != "Stress" {
		t.Errorf("Topics not parsed: %v", got)
	}
	if len(m.toasts) != 1 || m.toasts[0].notification.Title != "Meetup scheduled" {
		t.Errorf("Expected a confirmation toast, got %+v", m.toasts)
	}
}

// TestScheduleMeetupInvalid tests that validation errors keep the form open
func TestScheduleMeetupInvalid(t *testing.T) {
	m := newTestModel(t, &stubClient{})
	m, _ = press(m, "n")
	m.form.inputs[fieldDuration].SetValue("20")

	m, cmd := press(m, "enter")
	updated, _ := m.Update(cmd())
	m = updated.(model)

	if !m.scheduling {
		t.Fatal("Form should stay open on invalid input")
	}
	if m.form.err == nil || !strings.Contains(m.View(), "please select a duration") {
		t.Errorf("Expected the duration error to be shown, got %v", m.form.err)
	}
	if len(m.upcoming) != 2 {
		t.Error("Board should be unchanged")
	}

	m, _ = press(m, "esc")
	if m.scheduling {
		t.Error("esc should close the form")
	}
}
