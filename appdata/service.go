// Package appdata loads the data the client needs before any contribution runs.
package appdata

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
)

// Service merges its sources into one read-only view. It is the application
// service the lifecycle awaits before the initialize phase.
type Service struct {
	sources []Source
	logger  *slog.Logger

	mu     sync.RWMutex
	data   map[string]string
	loaded bool
}

func NewService(logger *slog.Logger, sources ...Source) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sources: sources, logger: logger, data: map[string]string{}}
}

// InitializeData loads every source in order. Nothing is published unless all succeed.
func (s *Service) InitializeData(ctx context.Context) error {
	merged := map[string]string{}
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		vals, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("load application data from %s: %w", src.Name(), err)
		}
		maps.Copy(merged, vals)
		s.logger.Debug("application data loaded", "source", src.Name(), "keys", len(vals))
	}

	s.mu.Lock()
	s.data = merged
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Service) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// All returns a copy of the loaded data.
func (s *Service) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
