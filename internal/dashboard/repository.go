// Package dashboard reads employees, meetups and emotion history from the
// JSONL mock data set and keeps the board of upcoming and past meetups.
package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/strrl/coach-dashboard/internal/db"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// ErrEmployeeNotFound is returned when an employee id is not in the data set
var ErrEmployeeNotFound = errors.New("employee not found")

// DefaultQueryTimeout bounds every query issued by the repository
const DefaultQueryTimeout = 15 * time.Second

const (
	EmployeesFile = "employees.jsonl"
	MeetupsFile   = "meetups.jsonl"
	EmotionsFile  = "emotions.jsonl"
)

var (
	employeeColumns = [][2]string{
		{"id", "VARCHAR"},
		{"name", "VARCHAR"},
		{"role", "VARCHAR"},
		{"department", "VARCHAR"},
		{"disability", "VARCHAR"},
		{"coaching_since", "VARCHAR"},
	}
	meetupColumns = [][2]string{
		{"id", "VARCHAR"},
		{"employee_id", "VARCHAR"},
		{"scheduled_for", "VARCHAR"},
		{"duration", "VARCHAR"},
		{"topics", "VARCHAR[]"},
		{"is_pending", "BOOLEAN"},
		{"status", "VARCHAR"},
	}
	emotionColumns = [][2]string{
		{"employee_id", "VARCHAR"},
		{"emotion", "VARCHAR"},
		{"reason", "VARCHAR"},
		{"created_date", "VARCHAR"},
	}
)

// Repository queries the mock data directory through DuckDB
type Repository struct {
	db      *sql.DB
	dir     string
	timeout time.Duration
	log     *slog.Logger

	writeMu sync.Mutex
}

// NewRepository creates a repository reading files from dir
func NewRepository(database *sql.DB, dir string, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{
		db:      database,
		dir:     dir,
		timeout: DefaultQueryTimeout,
		log:     log,
	}
}

func (r *Repository) table(file string, columns [][2]string) string {
	return db.ReadJSONL(filepath.Join(r.dir, file), columns)
}

// Employees returns all employees ordered by name
func (r *Repository) Employees(ctx context.Context) ([]models.Employee, error) {
	query := fmt.Sprintf(`
		SELECT id, name, COALESCE(role, ''), COALESCE(department, ''),
			COALESCE(disability, ''), COALESCE(coaching_since, '')
		FROM %s
		ORDER BY name
	`, r.table(EmployeesFile, employeeColumns))

	employees, err := await(ctx, queryAsync(ctx, r.db, r.timeout, query, scanEmployee))
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	r.log.Debug("employees loaded", "count", len(employees), "dir", r.dir)
	return employees, nil
}

// Employee returns the employee with the given id
func (r *Repository) Employee(ctx context.Context, id string) (models.Employee, error) {
	query := fmt.Sprintf(`
		SELECT id, name, COALESCE(role, ''), COALESCE(department, ''),
			COALESCE(disability, ''), COALESCE(coaching_since, '')
		FROM %s
		WHERE id = ?
		LIMIT 1
	`, r.table(EmployeesFile, employeeColumns))

	employees, err := await(ctx, queryAsync(ctx, r.db, r.timeout, query, scanEmployee, id))
	if err != nil {
		return models.Employee{}, fmt.Errorf("failed to query employee %s: %w", id, err)
	}
	if len(employees) == 0 {
		return models.Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	return employees[0], nil
}

// Meetups returns all meetups joined with the employee name, upcoming
// ones first in schedule order, then past ones newest first
func (r *Repository) Meetups(ctx context.Context) ([]models.Meetup, error) {
	query := fmt.Sprintf(`
		SELECT
			m.id,
			m.employee_id,
			COALESCE(e.name, m.employee_id) AS employee_name,
			COALESCE(m.scheduled_for, ''),
			COALESCE(m.duration, ''),
			CAST(to_json(COALESCE(m.topics, []::VARCHAR[])) AS VARCHAR) AS topics,
			COALESCE(m.is_pending, false),
			COALESCE(m.status, 'upcoming')
		FROM %s m
		LEFT JOIN %s e ON e.id = m.employee_id
		ORDER BY
			CASE WHEN COALESCE(m.status, 'upcoming') = 'upcoming' THEN 0 ELSE 1 END,
			CASE WHEN COALESCE(m.status, 'upcoming') = 'upcoming' THEN m.scheduled_for END ASC,
			m.scheduled_for DESC
	`, r.table(MeetupsFile, meetupColumns), r.table(EmployeesFile, employeeColumns))

	meetups, err := await(ctx, queryAsync(ctx, r.db, r.timeout, query, scanMeetup))
	if err != nil {
		return nil, fmt.Errorf("failed to query meetups: %w", err)
	}
	r.log.Debug("meetups loaded", "count", len(meetups), "dir", r.dir)
	return meetups, nil
}

// MoodSummary counts emotion records per emotion for an employee, most frequent first
func (r *Repository) MoodSummary(ctx context.Context, employeeID string) ([]models.MoodCount, error) {
	query := fmt.Sprintf(`
		SELECT emotion, COUNT(*) AS n, MAX(created_date) AS last_seen
		FROM %s
		WHERE employee_id = ? AND emotion IS NOT NULL
		GROUP BY emotion
		ORDER BY n DESC, last_seen DESC, emotion
	`, r.table(EmotionsFile, emotionColumns))

	counts, err := await(ctx, queryAsync(ctx, r.db, r.timeout, query, scanMoodCount, employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to query mood summary for %s: %w", employeeID, err)
	}
	return counts, nil
}

// RecentEmotions returns up to limit emotion records for an employee, newest first
func (r *Repository) RecentEmotions(ctx context.Context, employeeID string, limit int) ([]models.EmotionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`
		SELECT employee_id, COALESCE(emotion, ''), COALESCE(reason, ''), created_date
		FROM %s
		WHERE employee_id = ?
		ORDER BY created_date DESC
		LIMIT %d
	`, r.table(EmotionsFile, emotionColumns), limit)

	records, err := await(ctx, queryAsync(ctx, r.db, r.timeout, query, scanEmotion, employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to query emotions for %s: %w", employeeID, err)
	}
	return records, nil
}

// meetupRecord is the JSONL shape of a meetup
type meetupRecord struct {
	ID           string   `json:"id"`
	EmployeeID   string   `json:"employee_id"`
	ScheduledFor string   `json:"scheduled_for"`
	Duration     string   `json:"duration"`
	Topics       []string `json:"topics"`
	IsPending    bool     `json:"is_pending"`
	Status       string   `json:"status"`
}

// AddMeetup appends meetup to the meetups file
func (r *Repository) AddMeetup(ctx context.Context, meetup models.Meetup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topics := meetup.Topics
	if topics == nil {
		topics = []string{}
	}
	line, err := json.Marshal(meetupRecord{
		ID:           meetup.ID,
		EmployeeID:   meetup.EmployeeID,
		ScheduledFor: meetup.ScheduledFor,
		Duration:     meetup.Duration,
		Topics:       topics,
		IsPending:    meetup.IsPending,
		Status:       string(meetup.Status),
	})
	if err != nil {
		return fmt.Errorf("failed to encode meetup %s: %w", meetup.ID, err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	f, err := os.OpenFile(filepath.Join(r.dir, MeetupsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open meetups file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append meetup %s: %w", meetup.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close meetups file: %w", err)
	}
	r.log.Debug("meetup appended", "meetup_id", meetup.ID, "dir", r.dir)
	return nil
}

func scanEmployee(rows *sql.Rows) (models.Employee, error) {
	var e models.Employee
	err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Department, &e.Disability, &e.CoachingSince)
	return e, err
}

func scanMeetup(rows *sql.Rows) (models.Meetup, error) {
	var m models.Meetup
	var topics, status string
	if err := rows.Scan(&m.ID, &m.EmployeeID, &m.EmployeeName, &m.ScheduledFor, &m.Duration, &topics, &m.IsPending, &status); err != nil {
		return m, err
	}
	if err := json.Unmarshal([]byte(topics), &m.Topics); err != nil {
		return m, fmt.Errorf("failed to decode topics of meetup %s: %w", m.ID, err)
	}
	m.Status = models.MeetupStatus(status)
	return m, nil
}

func scanMoodCount(rows *sql.Rows) (models.MoodCount, error) {
	var c models.MoodCount
	var lastSeen sql.NullString
	if err := rows.Scan(&c.Emotion, &c.Count, &lastSeen); err != nil {
		return c, err
	}
	c.LastSeen = parseTimestamp(lastSeen)
	return c, nil
}

func scanEmotion(rows *sql.Rows) (models.EmotionRecord, error) {
	var rec models.EmotionRecord
	var created sql.NullString
	if err := rows.Scan(&rec.EmployeeID, &rec.Emotion, &rec.Reason, &created); err != nil {
		return rec, err
	}
	rec.CreatedAt = parseTimestamp(created)
	return rec, nil
}

// parseTimestamp accepts RFC 3339 and the plain "2006-01-02 15:04:05" form
func parseTimestamp(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t.Local()
		}
	}
	return time.Time{}
}
