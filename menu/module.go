package menu

import (
	"log/slog"

	"github.com/skekre98/workbench/command"
	"github.com/skekre98/workbench/core"
)

const Name = "menu"

func Module() core.Module { return &module{} }

type module struct{}

func (m *module) Name() string             { return Name }
func (m *module) DependsOn() []core.Module { return []core.Module{command.Module()} }

func (m *module) Configure(c core.Container) error {
	logger := core.Get[*slog.Logger](c).With("module", Name)
	reg := NewRegistry(logger, core.CreateContributionProvider[Contribution](c))
	core.Put(c, reg)
	core.Contribute[core.RegistryStarter](c, reg)
	return nil
}
