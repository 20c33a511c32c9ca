package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Manager loads configuration from ordered sources, validates it and notifies
// subscribers of changes.
//
// Later sources override earlier ones. A reload that fails to load, decode or
// validate leaves the current configuration untouched. All methods are safe
// for concurrent use; read the bound struct through View while reloads may run.
type Manager struct {
	sources   []ConfigSource
	config    any
	binder    *Binder
	logger    *slog.Logger
	mu        sync.RWMutex
	subs      []chan Event
	autoWatch bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures the behavior of a Manager.
type Options struct {
	// AutoReload starts a watcher per source and reloads on every change it reports.
	AutoReload bool

	Logger *slog.Logger
}

// NewManager is NewManagerContext with a background context.
func NewManager(cfg any, opts Options, sources ...ConfigSource) (*Manager, error) {
	return NewManagerContext(context.Background(), cfg, opts, sources...)
}

// NewManagerContext creates a Manager bound to cfg, which must be a pointer to
// a struct using `config` and `validate` tags, and performs the initial load.
// Watchers started for AutoReload live until ctx is done or Close is called.
//
//	var cfg AppConfig
//	mgr, err := config.NewManagerContext(ctx, &cfg, config.Options{AutoReload: true},
//	    &source.FileSource{BasePath: "configs"},
//	    &source.EnvSource{},
//	    &source.CLISource{},
//	)
func NewManagerContext(ctx context.Context, cfg any, opts Options, sources ...ConfigSource) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{
		sources:   sources,
		config:    cfg,
		binder:    NewBinder(),
		logger:    logger,
		autoWatch: opts.AutoReload,
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.Reload(ctx); err != nil {
		m.cancel()
		return nil, err
	}

	if m.autoWatch {
		m.startWatchers()
	}

	return m, nil
}

// Reload loads every source, merges, binds and validates into a fresh value and
// only then swaps it into the bound struct. Subscribers are notified when at
// least one top-level field changed.
func (m *Manager) Reload(ctx context.Context) error {
	merged := map[string]any{}
	for _, src := range m.sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vals, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", src.Name(), err)
		}
		mergeMaps(merged, vals)
	}

	newCfg := reflect.New(reflect.TypeOf(m.config).Elem()).Interface()
	if err := m.binder.Bind(merged, newCfg); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	m.mu.Lock()
	oldCfg := reflect.New(reflect.TypeOf(m.config).Elem()).Interface()
	reflect.ValueOf(oldCfg).Elem().Set(reflect.ValueOf(m.config).Elem())
	reflect.ValueOf(m.config).Elem().Set(reflect.ValueOf(newCfg).Elem())
	m.mu.Unlock()

	if !reflect.DeepEqual(oldCfg, newCfg) {
		evt := diffEvent(oldCfg, newCfg)
		m.logger.Debug("configuration changed", "keys", evt.ChangedKeys)
		m.notify(evt)
	}
	return nil
}

// View calls fn with the bound configuration under the read lock.
// fn must not retain the pointer nor call back into the Manager.
func (m *Manager) View(fn func(cfg any)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.config)
}

// Subscribe registers a channel for change events. Sends never block: a full
// channel misses the event, so buffer it. The Manager never closes it.
func (m *Manager) Subscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

func (m *Manager) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = slices.DeleteFunc(m.subs, func(c chan Event) bool { return c == ch })
}

func (m *Manager) notify(evt Event) {
	m.mu.RLock()
	subs := append([]chan Event(nil), m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			m.logger.Warn("dropping config event for slow subscriber", "keys", evt.ChangedKeys)
		}
	}
}

// Close stops the watchers and waits for them to return.
func (m *Manager) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

func (m *Manager) startWatchers() {
	for _, src := range m.sources {
		ch := make(chan Event, 1)
		if err := src.Watch(m.ctx, ch); err != nil {
			m.logger.Warn("config watch unavailable", "source", src.Name(), "error", err)
			continue
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-m.ctx.Done():
					return
				case <-ch:
					if err := m.Reload(m.ctx); err != nil {
						m.logger.Error("config reload failed", "source", src.Name(), "error", err)
					}
				}
			}
		}()
	}
}
