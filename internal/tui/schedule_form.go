package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/strrl/coach-dashboard/internal/dashboard"
	"github.com/strrl/coach-dashboard/pkg/models"
)

const (
	fieldEmployee = iota
	fieldDate
	fieldTime
	fieldDuration
	fieldTopics
	fieldCount
)

var fieldLabels = [fieldCount]string{"Employee ID", "Date", "Time", "Duration (min)", "Topics"}

// MeetupScheduledMsg reports the result of a schedule request
type MeetupScheduledMsg struct {
	Meetup models.Meetup
	Error  error
}

// scheduleForm collects a new meetup, one text input per field
type scheduleForm struct {
	inputs     [fieldCount]textinput.Model
	focused    int
	err        error
	submitting bool
}

func newScheduleForm(employeeID string, today time.Time) scheduleForm {
	var f scheduleForm
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 200
		f.inputs[i] = in
	}
	f.inputs[fieldEmployee].SetValue(employeeID)
	f.inputs[fieldDate].SetValue(today.Format(time.DateOnly))
	f.inputs[fieldDate].Placeholder = "YYYY-MM-DD"
	f.inputs[fieldTime].SetValue(dashboard.DefaultScheduleTime)
	f.inputs[fieldTime].Placeholder = "HH:MM"
	f.inputs[fieldDuration].SetValue(strconv.Itoa(dashboard.DefaultScheduleDuration))
	f.inputs[fieldDuration].Placeholder = joinDurations()
	f.inputs[fieldTopics].Placeholder = "comma separated"
	f.inputs[fieldEmployee].Focus()
	return f
}

// move shifts focus by delta fields, wrapping around
func (f *scheduleForm) move(delta int) {
	f.inputs[f.focused].Blur()
	f.focused = (f.focused + delta + fieldCount) % fieldCount
	f.inputs[f.focused].Focus()
}

func (f *scheduleForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return cmd
}

// request reads the inputs. An unparsable duration is left at zero so
// validation reports it.
func (f scheduleForm) request() dashboard.ScheduleRequest {
	duration, _ := strconv.Atoi(strings.TrimSpace(f.inputs[fieldDuration].Value()))

	var topics []string
	for _, topic := range strings.Split(f.inputs[fieldTopics].Value(), ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	return dashboard.ScheduleRequest{
		EmployeeID: f.inputs[fieldEmployee].Value(),
		Date:       f.inputs[fieldDate].Value(),
		Time:       f.inputs[fieldTime].Value(),
		Duration:   duration,
		Topics:     topics,
	}
}

func (f scheduleForm) view(width int) string {
	var s strings.Builder
	s.WriteString(sectionStyle.Render("Schedule a new meetup") + "\n")
	s.WriteString(divider(width) + "\n\n")

	for i, in := range f.inputs {
		label := mutedStyle.Render(fmt.Sprintf("%-15s", fieldLabels[i]))
		if i == f.focused {
			label = selectedStyle.Render(fmt.Sprintf("%-15s", fieldLabels[i]))
		}
		s.WriteString(label + " " + in.View() + "\n")
	}
	s.WriteString("\n")

	switch {
	case f.submitting:
		s.WriteString(dimStyle.Render("Scheduling..."))
	case f.err != nil:
		s.WriteString(errorStyle.Render(f.err.Error()))
	}
	return s.String()
}

func joinDurations() string {
	parts := make([]string, len(dashboard.DurationOptions))
	for i, d := range dashboard.DurationOptions {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "/")
}

// scheduleCmd submits req in the background
func scheduleCmd(ctx context.Context, s *dashboard.Scheduler, req dashboard.ScheduleRequest) tea.Cmd {
	return func() tea.Msg {
		m, err := s.Schedule(ctx, req)
		return MeetupScheduledMsg{Meetup: m, Error: err}
	}
}
