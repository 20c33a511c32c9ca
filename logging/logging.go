package logging

import (
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ParseLevel maps a configured level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handler(level slog.Leveler, format string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// New builds a logger writing text, or JSON when format is "json".
func New(level, format string, w io.Writer) *slog.Logger {
	return slog.New(handler(ParseLevel(level), format, w))
}

func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Manager owns the root logger and hands out one child per namespace.
// Its level can be changed at runtime.
type Manager struct {
	level *slog.LevelVar
	root  *slog.Logger

	mu    sync.Mutex
	named map[string]*slog.Logger
}

func NewManager(level, format string, w io.Writer) *Manager {
	lv := &slog.LevelVar{}
	lv.Set(ParseLevel(level))
	return &Manager{
		level: lv,
		root:  slog.New(handler(lv, format, w)),
		named: make(map[string]*slog.Logger),
	}
}

func (m *Manager) Root() *slog.Logger { return m.root }

// Logger returns the logger for namespace, tagged with a "namespace" attribute.
func (m *Manager) Logger(namespace string) *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.named[namespace]; ok {
		return l
	}
	l := m.root.With(slog.String("namespace", namespace))
	m.named[namespace] = l
	return l
}

func (m *Manager) SetLevel(level string) { m.level.Set(ParseLevel(level)) }

func (m *Manager) Level() slog.Level { return m.level.Level() }
