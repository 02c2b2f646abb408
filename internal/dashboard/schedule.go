package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/strrl/coach-dashboard/pkg/models"
)

var (
	// ErrInvalidSchedule wraps every validation failure of a ScheduleRequest
	ErrInvalidSchedule = errors.New("invalid meetup")
	// ErrDuplicateMeetup is returned when a meetup id is already on the board
	ErrDuplicateMeetup = errors.New("meetup already exists")
)

// DurationOptions lists the meetup lengths a coach can pick, in minutes
var DurationOptions = []int{15, 30, 45, 60, 90}

// Defaults offered when scheduling a new meetup
const (
	DefaultScheduleTime     = "09:00"
	DefaultScheduleDuration = 30
)

// ScheduleRequest describes a meetup a coach wants to add
type ScheduleRequest struct {
	EmployeeID string   `validate:"required"`
	Date       string   `validate:"required,datetime=2006-01-02"`
	Time       string   `validate:"required,datetime=15:04"`
	Duration   int      `validate:"oneof=15 30 45 60 90"`
	Topics     []string `validate:"dive,required"`
}

var scheduleMessages = map[string]string{
	"EmployeeID": "please select an employee",
	"Date":       "please select a date (YYYY-MM-DD)",
	"Time":       "please select a time (HH:MM)",
	"Duration":   "please select a duration of 15, 30, 45, 60 or 90 minutes",
	"Topics":     "topics must not be blank",
}

var validate = validator.New()

// Validate trims the request fields and checks them
func (r *ScheduleRequest) Validate() error {
	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	for i, topic := range r.Topics {
		r.Topics[i] = strings.TrimSpace(topic)
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate meetup: %w", err)
	}

	var msgs []string
	seen := make(map[string]bool)
	for _, fe := range verrs {
		field, _, _ := strings.Cut(fe.StructField(), "[")
		if seen[field] {
			continue
		}
		seen[field] = true
		msgs = append(msgs, scheduleMessages[field])
	}
	return fmt.Errorf("%w: %s", ErrInvalidSchedule, strings.Join(msgs, "; "))
}

// DurationLabel renders minutes the way the data set stores durations
func DurationLabel(minutes int) string {
	return fmt.Sprintf("%d min", minutes)
}

// EmployeeLookup resolves the employee a meetup is scheduled with
type EmployeeLookup interface {
	Employee(ctx context.Context, id string) (models.Employee, error)
}

// MeetupWriter stores a newly scheduled meetup
type MeetupWriter interface {
	AddMeetup(ctx context.Context, meetup models.Meetup) error
}

// Scheduler turns schedule requests into upcoming meetups
type Scheduler struct {
	employees EmployeeLookup
	writer    MeetupWriter
	board     *Board
	log       *slog.Logger
	newID     func() string
}

// NewScheduler creates a scheduler. writer and board are optional.
func NewScheduler(employees EmployeeLookup, writer MeetupWriter, board *Board, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		employees: employees,
		writer:    writer,
		board:     board,
		log:       log,
		newID: func() string {
			return "meet-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		},
	}
}

// Schedule validates req, resolves the employee and adds the meetup to the
// data set and the board
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (models.Meetup, error) {
	if err := req.Validate(); err != nil {
		return models.Meetup{}, err
	}

	employee, err := s.employees.Employee(ctx, req.EmployeeID)
	if err != nil {
		return models.Meetup{}, err
	}

	meetup := models.Meetup{
		ID:           s.newID(),
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		ScheduledFor: req.Date + " " + req.Time,
		Duration:     DurationLabel(req.Duration),
		Topics:       req.Topics,
		IsPending:    true,
		Status:       models.MeetupUpcoming,
	}

	if s.board != nil {
		if err := s.board.Schedule(meetup); err != nil {
			return models.Meetup{}, err
		}
	}
	if s.writer != nil {
		if err := s.writer.AddMeetup(ctx, meetup); err != nil {
			if s.board != nil {
				s.board.Remove(meetup.ID)
			}
			return models.Meetup{}, fmt.Errorf("failed to save meetup: %w", err)
		}
	}

	s.log.Info("meetup scheduled", "meetup_id", meetup.ID, "employee_id", employee.ID, "scheduled_for", meetup.ScheduledFor)
	return meetup, nil
}
