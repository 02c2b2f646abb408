// Package config loads the dashboard settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting of the dashboard, the backend and the CLI
type Config struct {
	ChatURL       string        `env:"COACH_CHAT_URL,default=http://127.0.0.1:8000" validate:"required,url"`
	ChatTimeout   time.Duration `env:"COACH_CHAT_TIMEOUT,default=10s" validate:"gt=0"`
	DataDir       string        `env:"COACH_DATA_DIR,default=data" validate:"required"`
	LogLevel      string        `env:"COACH_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogFile       string        `env:"COACH_LOG_FILE"`
	SpeechCommand string        `env:"COACH_SPEECH_COMMAND"`
	SpeechLocale  string        `env:"COACH_SPEECH_LOCALE,default=en-US" validate:"required"`
	ArchiveDelay  time.Duration `env:"COACH_ARCHIVE_DELAY,default=1.5s" validate:"gt=0"`
	NotifyTTL     time.Duration `env:"COACH_NOTIFY_TTL,default=4s" validate:"gt=0"`
	ListenAddr    string        `env:"COACH_LISTEN_ADDR,default=:8000" validate:"required"`
	IdleTimeout   time.Duration `env:"COACH_IDLE_TIMEOUT,default=60s" validate:"gt=0"`
}

var validate = validator.New()

// Load reads envFiles (missing ones are skipped), then the process environment
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports the offending variables
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
}
