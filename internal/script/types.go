package script

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a script exceeds Config.Timeout.
	ErrTimeout = errors.New("script: execution timeout exceeded")
	// ErrClosed is returned by a closed runtime.
	ErrClosed = errors.New("script: runtime closed")
)

// Config defines runtime limits.
type Config struct {
	Timeout          time.Duration // Per-run execution limit; zero disables it
	MaxCallStackSize int           // VM call stack depth
	EnableConsole    bool          // Install console
	MaxConsole       int           // Console entries kept by Console
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		MaxConsole:       1000,
	}
}

// Result holds the outcome of one run.
type Result struct {
	RunID    string        `json:"run_id"`
	Value    any           `json:"value"`
	Console  []LogEntry    `json:"console"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// LogEntry is one console call.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id,omitempty"`
}
