package chatapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/strrl/coach-dashboard/pkg/models"
)

var validate = validator.New()

// Responder produces the counterpart's reply for one turn
type Responder interface {
	Reply(ctx context.Context, counterpartID string, history []string, message string) (string, error)
}

// Analyzer summarizes a finished conversation into a mood
type Analyzer interface {
	Analyze(ctx context.Context, counterpartID string, history []string) (models.EmotionRecord, error)
}

// EchoResponder answers every message with a canned acknowledgement
type EchoResponder struct{}

func (EchoResponder) Reply(_ context.Context, _ string, _ []string, message string) (string, error) {
	return fmt.Sprintf("Response to your message: %q", message), nil
}

// NeutralAnalyzer reports every conversation as neutral
type NeutralAnalyzer struct{}

func (NeutralAnalyzer) Analyze(_ context.Context, counterpartID string, history []string) (models.EmotionRecord, error) {
	return models.EmotionRecord{
		EmployeeID: counterpartID,
		Emotion:    "neutral",
		Reason:     fmt.Sprintf("Conversation of %d messages without notable events", len(history)),
		CreatedAt:  time.Now(),
	}, nil
}

type serverSession struct {
	id            string
	counterpartID string
	history       []string
	active        bool
	lastActivity  time.Time
}

// ServerOptions configures a placeholder Server
type ServerOptions struct {
	Responder   Responder
	Analyzer    Analyzer
	IdleTimeout time.Duration
	Log         *slog.Logger
}

// Server is a placeholder employee chat backend
type Server struct {
	responder   Responder
	analyzer    Analyzer
	idleTimeout time.Duration
	log         *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*serverSession
	emotions []models.EmotionRecord
}

// NewServer creates a placeholder backend
func NewServer(opts ServerOptions) *Server {
	if opts.Responder == nil {
		opts.Responder = EchoResponder{}
	}
	if opts.Analyzer == nil {
		opts.Analyzer = NeutralAnalyzer{}
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Minute
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		responder:   opts.Responder,
		analyzer:    opts.Analyzer,
		idleTimeout: opts.IdleTimeout,
		log:         opts.Log,
		now:         time.Now,
		sessions:    make(map[string]*serverSession),
	}
}

// Handler returns the HTTP routes of the backend
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ChatPath, s.handleChat)
	mux.HandleFunc("/emotions", s.handleEmotions)
	return mux
}

// RunReaper marks idle sessions inactive until ctx is done
func (s *Server) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}

// Reap marks sessions idle for longer than the idle timeout as inactive and
// returns how many were marked
func (s *Server) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	marked := 0
	for _, sess := range s.sessions {
		if sess.active && now.Sub(sess.lastActivity) > s.idleTimeout {
			sess.active = false
			marked++
			s.log.Info("chat session ended due to inactivity", "session_id", sess.id)
		}
	}
	return marked
}

// Emotions returns the recorded end-of-conversation moods
func (s *Server) Emotions() []models.EmotionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EmotionRecord(nil), s.emotions...)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	counterpartID := strings.Trim(strings.TrimPrefix(r.URL.Path, ChatPath), "/")
	if counterpartID == "" || strings.Contains(counterpartID, "/") {
		http.NotFound(w, r)
		return
	}

	var req wireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, view, found := s.lookup(counterpartID, req.SessionID)
	if !found {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}

	if !view.active {
		s.finish(r.Context(), w, sess, view.history)
		return
	}

	reply, err := s.responder.Reply(r.Context(), counterpartID, view.history, req.Message)
	if err != nil {
		s.log.Error("responder failed", "session_id", sess.id, "error", err)
		writeJSON(w, http.StatusOK, wireResponse{Status: "error", SessionID: sess.id, Message: "Responder failed"})
		return
	}

	s.mu.Lock()
	sess.history = append(sess.history, req.Message, reply)
	sess.lastActivity = s.now()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, wireResponse{
		Status:    "success",
		SessionID: sess.id,
		Message:   "Received employee message",
		Response:  lo.Must(json.Marshal(reply)),
	})
}

type sessionView struct {
	active  bool
	history []string
}

// lookup returns the session for sessionID, creating one when sessionID is
// empty, together with a copy of its state
func (s *Server) lookup(counterpartID, sessionID string) (*serverSession, sessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sess := &serverSession{
			id:            uuid.NewString(),
			counterpartID: counterpartID,
			active:        true,
			lastActivity:  s.now(),
		}
		s.sessions[sess.id] = sess
		s.log.Debug("chat session created", "session_id", sess.id, "counterpart", counterpartID)
		return sess, sessionView{active: true}, true
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sessionView{}, false
	}
	return sess, sessionView{active: sess.active, history: append([]string(nil), sess.history...)}, true
}

func (s *Server) finish(ctx context.Context, w http.ResponseWriter, sess *serverSession, history []string) {
	record, err := s.analyzer.Analyze(ctx, sess.counterpartID, history)
	if err != nil {
		s.log.Error("mood analysis failed", "session_id", sess.id, "error", err)
		writeJSON(w, http.StatusOK, wireResponse{Status: "error", End: true, Message: "Analysis failed"})
		return
	}

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.emotions = append(s.emotions, record)
	s.mu.Unlock()

	analysis := struct {
		Mood   string `json:"mood"`
		Reason string `json:"reason"`
	}{record.Emotion, record.Reason}

	writeJSON(w, http.StatusOK, wireResponse{
		Status:   "success",
		End:      true,
		Message:  "Received employee message",
		Response: lo.Must(json.Marshal(analysis)),
	})
}

func (s *Server) handleEmotions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   s.Emotions(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
