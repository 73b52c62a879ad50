// Package logger wraps zerolog behind the component-scoped interface the
// rest of the runtime logs through.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
)

// Init configures the process-wide logger. Level accepts the usual zerolog
// names; unknown values fall back to warn.
func Init(level string, out io.Writer) {
	if out == nil {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.WarnLevel
	}

	mu.Lock()
	defer mu.Unlock()
	root = zerolog.New(out).Level(parsed).With().Timestamp().Logger()
}

// WithComponent returns a logger scoped to a named component.
func WithComponent(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", name).Logger()
}
