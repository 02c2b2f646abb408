package models

import "time"

// Sender identifies who authored a chat message
type Sender string

const (
	// SenderUser is the coach operating the dashboard
	SenderUser Sender = "user"
	// SenderCoach is the remote counterpart: chat endpoint replies and transcribed speech
	SenderCoach Sender = "coach"
	// SenderSystem is the application itself announcing state changes
	SenderSystem Sender = "system"
)

// Label returns the display name used by the shell
func (s Sender) Label() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderCoach:
		return "Coach"
	default:
		return "System"
	}
}

// Message is a single immutable turn in a meetup conversation
type Message struct {
	ID        string
	Seq       uint64 // Generation order within the owning store
	Text      string
	Sender    Sender
	CreatedAt time.Time
}

// MeetupStatus tells whether a meetup is still ahead or already in the history
type MeetupStatus string

const (
	MeetupUpcoming MeetupStatus = "upcoming"
	MeetupPast     MeetupStatus = "past"
)

// Meetup represents a scheduled or ad-hoc coaching conversation
type Meetup struct {
	ID           string
	EmployeeID   string
	EmployeeName string
	ScheduledFor string
	Duration     string
	Topics       []string
	IsPending    bool // Not started yet: the shell offers "Start" instead of "Continue"
	Status       MeetupStatus
}

// Employee represents a coached employee
type Employee struct {
	ID            string
	Name          string
	Role          string
	Department    string
	Disability    string
	CoachingSince string
}

// EmotionRecord is one mood observation for an employee
type EmotionRecord struct {
	EmployeeID string    `json:"employee_id"`
	Emotion    string    `json:"emotion"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_date"`
}

// MoodCount aggregates emotion records of one kind
type MoodCount struct {
	Emotion  string
	Count    int
	LastSeen time.Time
}
