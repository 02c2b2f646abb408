package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/chatapi"
	"github.com/strrl/coach-dashboard/internal/config"
	"github.com/strrl/coach-dashboard/internal/dashboard"
	"github.com/strrl/coach-dashboard/internal/db"
	"github.com/strrl/coach-dashboard/internal/events"
	"github.com/strrl/coach-dashboard/internal/observability"
	"github.com/strrl/coach-dashboard/internal/sessions"
	"github.com/strrl/coach-dashboard/internal/speech"
)

// app bundles the components shared by the commands
type app struct {
	cfg       config.Config
	log       *slog.Logger
	logCloser io.Closer

	repo       *dashboard.Repository
	store      *chat.Store
	controller *sessions.Controller
	bus        *events.Bus
	board      *dashboard.Board
	loader     *dashboard.Loader
	scheduler  *dashboard.Scheduler
}

// loadConfig reads the configuration and builds the logger. Interactive mode
// never logs to the terminal.
func loadConfig(interactive bool) (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	var fallback io.Writer = os.Stderr
	if interactive {
		fallback = nil
	}
	log, closer, err := observability.NewLogger(cfg.LogLevel, cfg.LogFile, fallback)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, log, closer, nil
}

// newApp wires the dashboard. notifier receives user-facing notifications.
func newApp(interactive bool, notifier chat.Notifier) (*app, error) {
	cfg, log, closer, err := loadConfig(interactive)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = chat.NewLogNotifier(log)
	}

	database, err := db.GetDB()
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var engine speech.Engine
	if cfg.SpeechCommand != "" {
		e, err := speech.NewCommandEngine(cfg.SpeechCommand, cfg.SpeechLocale, log.With("component", "speech"))
		if err != nil {
			closer.Close()
			return nil, fmt.Errorf("failed to configure speech recognizer: %w", err)
		}
		engine = e
	}

	store := chat.NewStore()
	client := chatapi.NewClient(cfg.ChatURL, cfg.ChatTimeout)
	dispatcher := chat.NewDispatcher(store, client, notifier, log.With("component", "dispatcher"), cfg.ChatTimeout)
	listener := speech.NewListener(store, engine, notifier, log.With("component", "speech"))
	bus := events.NewBus()
	board := dashboard.NewBoard(nil)
	board.Attach(bus)
	repo := dashboard.NewRepository(database, cfg.DataDir, log.With("component", "repository"))

	return &app{
		cfg:        cfg,
		log:        log,
		logCloser:  closer,
		repo:       repo,
		store:      store,
		controller: sessions.NewController(store, dispatcher, listener, bus, log.With("component", "sessions")),
		bus:        bus,
		board:      board,
		loader:     dashboard.NewLoader(),
		scheduler:  dashboard.NewScheduler(repo, repo, board, log.With("component", "scheduler")),
	}, nil
}

// Close releases speech capture, pending loads and the log file
func (a *app) Close() {
	a.loader.Close()
	if err := a.controller.Shutdown(); err != nil {
		a.log.Warn("failed to shut down session", "error", err)
	}
	a.logCloser.Close()
}
