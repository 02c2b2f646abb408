package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.ChatURL)
	assert.Equal(t, 10*time.Second, cfg.ChatTimeout)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "en-US", cfg.SpeechLocale)
	assert.Equal(t, 1500*time.Millisecond, cfg.ArchiveDelay)
	assert.Equal(t, 4*time.Second, cfg.NotifyTTL)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)
	assert.Empty(t, cfg.SpeechCommand)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COACH_CHAT_URL", "https://chat.example.com")
	t.Setenv("COACH_CHAT_TIMEOUT", "3s")
	t.Setenv("COACH_LOG_LEVEL", "DEBUG")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.ChatURL)
	assert.Equal(t, 3*time.Second, cfg.ChatTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COACH_SPEECH_COMMAND=vosk-stream\nCOACH_SPEECH_LOCALE=de-DE\n"), 0o644))
	// godotenv sets variables for the whole process; register cleanups for them
	t.Setenv("COACH_SPEECH_COMMAND", "")
	t.Setenv("COACH_SPEECH_LOCALE", "")
	os.Unsetenv("COACH_SPEECH_COMMAND")
	os.Unsetenv("COACH_SPEECH_LOCALE")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vosk-stream", cfg.SpeechCommand)
	assert.Equal(t, "de-DE", cfg.SpeechLocale)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad url", "COACH_CHAT_URL", "not a url", "ChatURL"},
		{"bad level", "COACH_LOG_LEVEL", "verbose", "LogLevel"},
		{"zero timeout", "COACH_CHAT_TIMEOUT", "0s", "ChatTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
