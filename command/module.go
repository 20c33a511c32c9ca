package command

import (
	"log/slog"

	"github.com/skekre98/workbench/core"
)

const Name = "command"

// Module puts a *Registry in the container and starts it with the other registries.
func Module() core.Module { return &module{} }

type module struct{}

func (m *module) Name() string             { return Name }
func (m *module) DependsOn() []core.Module { return nil }

func (m *module) Configure(c core.Container) error {
	logger := core.Get[*slog.Logger](c).With("module", Name)
	reg := NewRegistry(logger, core.CreateContributionProvider[Contribution](c))
	core.Put(c, reg)
	core.Contribute[core.RegistryStarter](c, reg)
	return nil
}
