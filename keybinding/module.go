package keybinding

import (
	"context"
	"log/slog"

	"github.com/skekre98/workbench/command"
	"github.com/skekre98/workbench/core"
)

const Name = "keybinding"

// Module registers the Registry as the app's core.KeybindingDispatcher.
func Module() core.Module { return &module{} }

type module struct{}

func (m *module) Name() string             { return Name }
func (m *module) DependsOn() []core.Module { return []core.Module{command.Module()} }

func (m *module) Configure(c core.Container) error {
	logger := core.Get[*slog.Logger](c).With("module", Name)
	reg := NewRegistry(logger, core.CreateContributionProvider[Contribution](c), commands{c})
	core.Put(c, reg)
	core.Put[core.KeybindingDispatcher](c, reg)
	core.Contribute[core.RegistryStarter](c, reg)
	return nil
}

// commands resolves the command registry per call; the command module may
// configure after this one.
type commands struct{ c core.Container }

func (x commands) Execute(ctx context.Context, id string, args ...any) error {
	reg, err := core.Resolve[*command.Registry](x.c)
	if err != nil {
		return err
	}
	return reg.Execute(ctx, id, args...)
}
