// Package tui is the terminal shell of the coaching dashboard: the meetup
// board on the left, the mood summary or the active chat on the right.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/dashboard"
	"github.com/strrl/coach-dashboard/internal/sessions"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// DefaultNotifyTTL is how long a toast stays visible
const DefaultNotifyTTL = 4 * time.Second

type focus int

const (
	focusList focus = iota
	focusChat
)

// Options wires the shell to the dashboard components
type Options struct {
	Controller    *sessions.Controller
	Board         *dashboard.Board
	Source        DataSource
	Loader        *dashboard.Loader
	Scheduler     *dashboard.Scheduler
	Notifications <-chan chat.Notification
	NotifyTTL     time.Duration
	ArchiveDelay  time.Duration
	Log           *slog.Logger
}

type toast struct {
	id           int
	notification chat.Notification
}

type model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl          *sessions.Controller
	board         *dashboard.Board
	source        DataSource
	loader        *dashboard.Loader
	scheduler     *dashboard.Scheduler
	notifications <-chan chat.Notification
	notifyTTL     time.Duration
	archiveDelay  time.Duration
	log           *slog.Logger

	upcoming     []models.Meetup
	history      []models.Meetup
	boardVersion uint64
	cursor       int
	loadingBoard bool
	boardErr     error

	moodEmployee  string
	moodRequestID string
	moodCounts    []models.MoodCount
	moodErr       error

	snapshot  chat.Snapshot
	lastCount int
	focus     focus
	maximized bool

	toasts    []toast
	nextToast int

	form       scheduleForm
	scheduling bool

	input        textinput.Model
	leftViewport viewport.Model
	chatViewport viewport.Model
	indicator    LoadingIndicator
	ready        bool
	width        int
	height       int
}

func initialModel(opts Options) model {
	if opts.NotifyTTL <= 0 {
		opts.NotifyTTL = DefaultNotifyTTL
	}
	if opts.ArchiveDelay <= 0 {
		opts.ArchiveDelay = sessions.DefaultArchiveDelay
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Loader == nil {
		opts.Loader = dashboard.NewLoader()
	}
	if opts.Board == nil {
		opts.Board = dashboard.NewBoard(nil)
	}

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 2000

	ctx, cancel := context.WithCancel(context.Background())
	m := model{
		ctx:           ctx,
		cancel:        cancel,
		ctrl:          opts.Controller,
		board:         opts.Board,
		source:        opts.Source,
		loader:        opts.Loader,
		scheduler:     opts.Scheduler,
		notifications: opts.Notifications,
		notifyTTL:     opts.NotifyTTL,
		archiveDelay:  opts.ArchiveDelay,
		log:           opts.Log,
		snapshot:      opts.Controller.Store().Snapshot(),
		input:         input,
		indicator:     LoadingIndicator{Message: "Loading meetups..."},
		loadingBoard:  opts.Source != nil,
	}
	m.syncBoard()
	m.lastCount = len(m.snapshot.Messages)
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForStoreChange(m.ctrl.Store()),
		waitForNotification(m.notifications),
		tickCmd(),
	}
	if m.source != nil {
		_, load := loadMeetupsCmd(m.ctx, m.loader, m.source)
		cmds = append(cmds, load)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.leftViewport = viewport.New(0, 0)
			m.chatViewport = viewport.New(0, 0)
			m.ready = true
		}
		m.layout()
		m.updateViewports()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.scheduling {
			return m.updateFormKeys(msg)
		}
		if m.focus == focusChat && m.snapshot.Open {
			return m.updateChatKeys(msg)
		}
		return m.updateListKeys(msg)

	case StoreChangedMsg:
		m.refreshSnapshot()
		cmds = append(cmds, waitForStoreChange(m.ctrl.Store()))

	case TurnCompletedMsg:
		if msg.Outcome.Err != nil {
			m.log.Debug("turn failed", "error", msg.Outcome.Err, "stale", msg.Outcome.Stale)
		}
		m.refreshSnapshot()

	case NotificationMsg:
		cmds = append(cmds, m.pushToast(msg.Notification), waitForNotification(m.notifications))

	case MeetupScheduledMsg:
		m.form.submitting = false
		if msg.Error != nil {
			m.form.err = msg.Error
			m.updateViewports()
			break
		}
		m.scheduling = false
		m.syncBoard()
		if idx := slices.IndexFunc(m.upcoming, func(x models.Meetup) bool { return x.ID == msg.Meetup.ID }); idx >= 0 {
			m.cursor = idx
		}
		cmds = append(cmds, m.pushToast(chat.Notification{
			Kind:   chat.KindInfo,
			Title:  "Meetup scheduled",
			Detail: fmt.Sprintf("Meetup with %s scheduled for %s (%s)", msg.Meetup.EmployeeName, msg.Meetup.ScheduledFor, msg.Meetup.Duration),
			At:     time.Now(),
		}), m.selectionChanged())
		m.updateViewports()

	case ToastExpiredMsg:
		m.toasts = lo.Reject(m.toasts, func(t toast, _ int) bool { return t.id == msg.ID })
		m.layout()

	case MeetupsLoadedMsg:
		m.loadingBoard = false
		if msg.Error != nil {
			if !errors.Is(msg.Error, context.Canceled) {
				m.boardErr = msg.Error
				m.log.Error("failed to load meetups", "error", msg.Error)
			}
			break
		}
		m.boardErr = nil
		m.board.Reset(msg.Meetups)
		m.syncBoard()
		cmds = append(cmds, m.selectionChanged())
		m.updateViewports()

	case MoodLoadedMsg:
		if msg.RequestID != m.moodRequestID {
			break
		}
		m.moodCounts, m.moodErr = msg.Counts, msg.Error
		m.updateViewports()

	case TickMsg:
		if m.loadingBoard || m.snapshot.Loading {
			m.indicator.Next()
			m.updateViewports()
		}
		cmds = append(cmds, tickCmd())
	}

	return m, tea.Batch(cmds...)
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.loader.CancelAll()
	m.cancel()
	return m, tea.Quit
}

func (m model) updateListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.entries()
	switch msg.String() {
	case "q":
		return m.quit()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			cmd := m.selectionChanged()
			m.updateViewports()
			return m, cmd
		}

	case "down", "j":
		if m.cursor < len(entries)-1 {
			m.cursor++
			cmd := m.selectionChanged()
			m.updateViewports()
			return m, cmd
		}

	case "enter":
		// past meetups are read-only
		if m.cursor < len(m.upcoming) {
			m.ctrl.Open(m.upcoming[m.cursor])
			m.focusChat()
			m.refreshSnapshot()
		}

	case "tab":
		if m.snapshot.Open {
			m.focusChat()
			m.updateViewports()
		}

	case "n":
		if m.scheduler != nil {
			employeeID := ""
			if m.cursor < len(entries) {
				employeeID = entries[m.cursor].EmployeeID
			}
			m.form = newScheduleForm(employeeID, time.Now())
			m.scheduling = true
			m.updateViewports()
		}

	default:
		var cmd tea.Cmd
		m.leftViewport, cmd = m.leftViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.send()

	case "ctrl+t":
		m.ctrl.ToggleMute()
		m.refreshSnapshot()

	case "ctrl+l":
		if err := m.ctrl.ToggleListening(); err != nil {
			m.log.Debug("toggle listening failed", "error", err)
		}
		m.refreshSnapshot()

	case "ctrl+f":
		m.maximized = !m.maximized
		m.layout()
		m.updateViewports()

	case "ctrl+d":
		if err := m.ctrl.Archive(m.archiveDelay); err != nil {
			m.log.Warn("failed to archive meetup", "error", err)
		}
		m.refreshSnapshot()

	case "esc":
		m.ctrl.Close()
		m.focusList()
		m.refreshSnapshot()

	case "tab":
		m.focusList()
		m.updateViewports()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd

	default:
		if m.snapshot.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.submitting {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.scheduling = false
	case "tab", "down":
		m.form.move(1)
	case "shift+tab", "up":
		m.form.move(-1)
	case "enter":
		m.form.submitting = true
		m.form.err = nil
		return m, scheduleCmd(m.ctx, m.scheduler, m.form.request())
	default:
		return m, m.form.update(msg)
	}
	return m, nil
}

func (m *model) pushToast(n chat.Notification) tea.Cmd {
	m.nextToast++
	m.toasts = append(m.toasts, toast{id: m.nextToast, notification: n})
	m.layout()
	return expireToastCmd(m.nextToast, m.notifyTTL)
}

// send appends the typed message right away and completes the turn in the background
func (m model) send() (tea.Model, tea.Cmd) {
	if m.snapshot.Loading {
		return m, nil
	}
	turn, err := m.ctrl.Begin(m.input.Value())
	if err != nil {
		m.log.Debug("send rejected", "error", err)
		return m, nil
	}
	if turn == nil {
		return m, nil
	}
	m.input.SetValue("")
	m.refreshSnapshot()
	return m, completeTurnCmd(m.ctx, turn)
}

func (m *model) focusChat() {
	m.focus = focusChat
	m.input.Focus()
}

func (m *model) focusList() {
	m.focus = focusList
	m.input.Blur()
}

// refreshSnapshot pulls the store and board state and scrolls to the newest message
func (m *model) refreshSnapshot() {
	m.snapshot = m.ctrl.Store().Snapshot()
	if !m.snapshot.Open {
		if m.focus == focusChat {
			m.focusList()
		}
		m.maximized = false
	}
	if m.board.Version() != m.boardVersion {
		m.syncBoard()
	}
	if m.snapshot.Loading {
		m.input.Blur()
	} else if m.focus == focusChat {
		m.input.Focus()
	}
	m.layout()
	m.updateViewports()
	if n := len(m.snapshot.Messages); n != m.lastCount {
		if n > m.lastCount {
			m.chatViewport.GotoBottom()
		}
		m.lastCount = n
	}
}

func (m *model) syncBoard() {
	m.upcoming = m.board.Upcoming()
	m.history = m.board.History()
	m.boardVersion = m.board.Version()
	if total := len(m.upcoming) + len(m.history); m.cursor >= total {
		m.cursor = max(total-1, 0)
	}
}

// entries lists upcoming meetups followed by the history, in cursor order
func (m model) entries() []models.Meetup {
	return append(append([]models.Meetup(nil), m.upcoming...), m.history...)
}

// selectionChanged loads the mood summary of the employee under the cursor
func (m *model) selectionChanged() tea.Cmd {
	entries := m.entries()
	if m.source == nil || m.cursor >= len(entries) {
		return nil
	}
	employeeID := entries[m.cursor].EmployeeID
	if employeeID == m.moodEmployee {
		return nil
	}
	if m.moodRequestID != "" {
		m.loader.Cancel(m.moodRequestID)
	}
	m.moodEmployee = employeeID
	m.moodCounts, m.moodErr = nil, nil
	id, cmd := loadMoodCmd(m.ctx, m.loader, m.source, employeeID)
	m.moodRequestID = id
	return cmd
}

func (m *model) layout() {
	if !m.ready {
		return
	}
	bodyHeight := max(m.height-2-len(m.toasts), 3)

	leftWidth := m.width/3 - 1
	rightWidth := m.width - leftWidth - 1
	if m.maximized && m.snapshot.Open {
		leftWidth = 0
		rightWidth = m.width
	}

	m.leftViewport.Width = max(leftWidth, 0)
	m.leftViewport.Height = bodyHeight
	m.chatViewport.Width = rightWidth
	m.chatViewport.Height = max(bodyHeight-3, 1)
	m.input.Width = max(rightWidth-4, 10)
}

func (m *model) updateViewports() {
	if !m.ready {
		return
	}
	m.leftViewport.SetContent(m.renderBoard())
	m.chatViewport.SetContent(m.renderTranscript())
}

func (m model) renderBoard() string {
	var s strings.Builder

	s.WriteString(sectionStyle.Render("Upcoming meetups") + "\n")
	s.WriteString(divider(m.leftViewport.Width) + "\n")
	if m.boardErr != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error loading meetups: %v", m.boardErr)) + "\n")
	}
	if len(m.upcoming) == 0 {
		s.WriteString(dimStyle.Render("  No upcoming meetups") + "\n")
	}
	for i, meetup := range m.upcoming {
		s.WriteString(m.renderEntry(i, meetup))
	}

	s.WriteString("\n" + sectionStyle.Render("History") + "\n")
	s.WriteString(divider(m.leftViewport.Width) + "\n")
	if len(m.history) == 0 {
		s.WriteString(dimStyle.Render("  No past meetups") + "\n")
	}
	for i, meetup := range m.history {
		s.WriteString(m.renderEntry(len(m.upcoming)+i, meetup))
	}
	return s.String()
}

func (m model) renderEntry(idx int, meetup models.Meetup) string {
	cursor := "  "
	style := lipgloss.NewStyle()
	if idx == m.cursor {
		cursor = "> "
		style = selectedStyle
	}

	action := "Continue"
	if meetup.IsPending {
		action = "Start"
	}
	if meetup.Status == models.MeetupPast {
		action = "Done"
	}
	if m.snapshot.Open && m.snapshot.MeetupID == meetup.ID {
		action = "Active"
	}

	line := fmt.Sprintf("%s%s [%s]", cursor, meetup.EmployeeName, action)
	detail := fmt.Sprintf("    %s", meetup.ScheduledFor)
	if meetup.Duration != "" {
		detail += " · " + meetup.Duration
	}
	out := style.Render(line) + "\n" + mutedStyle.Render(detail) + "\n"
	if len(meetup.Topics) > 0 {
		out += dimStyle.Render("    "+strings.Join(meetup.Topics, ", ")) + "\n"
	}
	return out
}

func (m model) renderTranscript() string {
	var s strings.Builder
	width := max(m.chatViewport.Width-2, 20)

	for _, msg := range m.snapshot.Messages {
		label := senderStyle(msg.Sender).Render(msg.Sender.Label())
		stamp := dimStyle.Render(msg.CreatedAt.Format("15:04"))
		s.WriteString(fmt.Sprintf("%s %s\n", label, stamp))
		for _, line := range wrapText(msg.Text, width) {
			s.WriteString(line + "\n")
		}
		s.WriteString("\n")
	}
	if m.snapshot.Interim != "" {
		s.WriteString(interimStyle.Render("… "+m.snapshot.Interim) + "\n")
	}
	return s.String()
}

func (m model) renderMood() string {
	var s strings.Builder
	width := m.width - m.leftViewport.Width - 1

	s.WriteString(sectionStyle.Render("Mood summary") + "\n")
	s.WriteString(divider(width) + "\n\n")

	entries := m.entries()
	switch {
	case len(entries) == 0:
		s.WriteString(dimStyle.Render("Select a meetup to see the employee's mood history"))
	case m.moodErr != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error loading moods: %v", m.moodErr)))
	case len(m.moodCounts) == 0:
		s.WriteString(dimStyle.Render("No emotion records yet"))
	default:
		total := lo.SumBy(m.moodCounts, func(c models.MoodCount) int { return c.Count })
		nameWidth := lo.Max(lo.Map(m.moodCounts, func(c models.MoodCount, _ int) int { return lipgloss.Width(c.Emotion) }))
		for _, c := range m.moodCounts {
			share := float64(c.Count) / float64(total)
			s.WriteString(fmt.Sprintf("%-*s %s %d (last %s)\n",
				nameWidth, c.Emotion,
				renderBar(share, 20, moodColor(c.Emotion)),
				c.Count, c.LastSeen.Format("2006-01-02")))
		}
	}
	return s.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	body := m.renderBody()
	parts := []string{m.renderHeader(), body}
	for _, t := range m.toasts {
		parts = append(parts, m.renderToast(t))
	}
	parts = append(parts, m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m model) renderBody() string {
	height := m.leftViewport.Height
	if m.loadingBoard && len(m.upcoming)+len(m.history) == 0 {
		return LoadingOverlay(m.width, height, m.indicator)
	}

	right := m.renderRight()
	if m.maximized && m.snapshot.Open {
		return right
	}

	left := lipgloss.NewStyle().
		Width(m.leftViewport.Width).
		Height(height).
		Render(m.leftViewport.View())

	sep := dimStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func (m model) renderRight() string {
	width := m.chatViewport.Width
	height := m.leftViewport.Height
	style := lipgloss.NewStyle().Width(width).Height(height)

	if m.scheduling {
		return style.Render(m.form.view(width))
	}
	if !m.snapshot.Open {
		return style.Render(m.renderMood())
	}

	status := ""
	if m.snapshot.Loading {
		status = LoadingIndicator{Spinner: m.indicator.Spinner, Message: "Waiting for a reply..."}.View()
	}
	return style.Render(strings.Join([]string{
		m.chatViewport.View(),
		status,
		m.input.View(),
	}, "\n"))
}

func (m model) renderHeader() string {
	title := "Coach Dashboard"
	if m.snapshot.Open {
		title = fmt.Sprintf("Coach Dashboard - Meetup with %s", m.snapshot.CounterpartName)
		if m.snapshot.Muted {
			title += " [muted]"
		}
		if m.snapshot.Listening {
			title += " [listening]"
		}
	}
	return headerStyle.Render(title)
}

func (m model) renderToast(t toast) string {
	style := toastStyle
	if t.notification.IsError() {
		style = errorToastStyle
	}
	text := t.notification.Title
	if t.notification.Detail != "" {
		text += ": " + t.notification.Detail
	}
	return style.Render(text)
}

func (m model) renderFooter() string {
	var info string
	if m.scheduling {
		return footerStyle.Render("tab/↓: next field • shift+tab/↑: previous • enter: schedule • esc: cancel")
	}
	if m.focus == focusChat && m.snapshot.Open {
		listen := "ctrl+l: listen"
		if m.snapshot.Listening {
			listen = "ctrl+l: stop listening"
		}
		if !m.ctrl.SpeechSupported() {
			listen = "voice unavailable"
		}
		mute := "ctrl+t: mute"
		if m.snapshot.Muted {
			mute = "ctrl+t: unmute"
		}
		maximize := "ctrl+f: maximize"
		if m.maximized {
			maximize = "ctrl+f: restore"
		}
		info = strings.Join([]string{"enter: send", mute, listen, maximize, "ctrl+d: done", "esc: close", "tab: list"}, " • ")
	} else {
		info = "↑/↓: navigate • enter: start/continue"
		if m.scheduler != nil {
			info += " • n: new meetup"
		}
		if m.snapshot.Open {
			info += " • tab: chat"
		}
		info += " • q: quit"
	}
	return footerStyle.Render(info)
}

func divider(width int) string {
	return strings.Repeat("─", max(width-2, 10))
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if lipgloss.Width(current)+1+lipgloss.Width(word) > width {
				lines = append(lines, current)
				current = word
			} else {
				current += " " + word
			}
		}
		lines = append(lines, current)
	}
	return lines
}

// Run shows the dashboard until the user quits
func Run(opts Options) error {
	p := tea.NewProgram(initialModel(opts), tea.WithAltScreen())
	finalModel, err := p.Run()
	if m, ok := finalModel.(model); ok {
		m.loader.CancelAll()
		m.cancel()
	}
	if err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}
