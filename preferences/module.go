package preferences

import (
	"context"
	"log/slog"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
)

const Name = "preferences"

// Module registers the Service as the core.PreferenceReader. With a
// *config.Manager in the container the preference follows reloads while the
// app runs.
func Module() core.Module { return &module{} }

type module struct{}

func (m *module) Name() string             { return Name }
func (m *module) DependsOn() []core.Module { return nil }

func (m *module) Configure(c core.Container) error {
	logger := core.Get[*slog.Logger](c).With("module", Name)

	initial := ""
	if cfg, ok := core.Lookup[config.Root](c); ok {
		initial = cfg.Preferences.ConfirmExit
	}
	svc := New(logger, initial)
	core.Put(c, svc)
	core.Put[core.PreferenceReader](c, svc)

	if mgr, ok := core.Lookup[*config.Manager](c); ok {
		core.Contribute[core.Contribution](c, &watcher{svc: svc, mgr: mgr})
	}
	return nil
}

type watcher struct {
	svc  *Service
	mgr  *config.Manager
	stop func()
}

func (w *watcher) Name() string { return "PreferenceWatcher" }

func (w *watcher) Initialize(context.Context, *core.App) error {
	w.mgr.View(func(cfg any) {
		if root, ok := cfg.(*config.Root); ok {
			w.svc.Set(root.Preferences.ConfirmExit)
		}
	})
	w.stop = w.svc.Follow(w.mgr)
	return nil
}

func (w *watcher) OnStop(context.Context, *core.App) error {
	if w.stop != nil {
		w.stop()
	}
	return nil
}
