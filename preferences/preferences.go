// Package preferences serves the confirm-exit preference and keeps it in sync
// with configuration reloads.
package preferences

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
)

// Parse maps a configured value to a core.ConfirmExit. The empty string is ifRequired.
func Parse(v string) (core.ConfirmExit, error) {
	switch core.ConfirmExit(v) {
	case "", core.ConfirmExitIfRequired:
		return core.ConfirmExitIfRequired, nil
	case core.ConfirmExitNever, core.ConfirmExitAlways:
		return core.ConfirmExit(v), nil
	}
	return "", fmt.Errorf("unknown confirmExit value %q", v)
}

// Service implements core.PreferenceReader.
type Service struct {
	logger *slog.Logger

	mu          sync.RWMutex
	confirmExit core.ConfirmExit
}

func New(logger *slog.Logger, confirmExit string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{logger: logger, confirmExit: core.ConfirmExitIfRequired}
	s.Set(confirmExit)
	return s
}

func (s *Service) ConfirmExit() core.ConfirmExit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmExit
}

// Set updates the preference. Unknown values are logged and ignored.
func (s *Service) Set(v string) {
	ce, err := Parse(v)
	if err != nil {
		s.logger.Warn("ignoring preference", "error", err)
		return
	}
	s.mu.Lock()
	old := s.confirmExit
	s.confirmExit = ce
	s.mu.Unlock()
	if old != ce {
		s.logger.Info("confirmExit changed", "from", old, "to", ce)
	}
}

// Follow applies preference changes published by m until stop is called.
// The subscription is in place when Follow returns.
func (s *Service) Follow(m *config.Manager) (stop func()) {
	events := make(chan config.Event, 8)
	m.Subscribe(events)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case ev := <-events:
				s.apply(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unsubscribe(events)
			close(done)
			wg.Wait()
		})
	}
}

func (s *Service) apply(ev config.Event) {
	if !ev.Changed("preferences") {
		return
	}
	if root, ok := ev.NewConfig.(*config.Root); ok {
		s.Set(root.Preferences.ConfirmExit)
	}
}
