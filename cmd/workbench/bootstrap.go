package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/config/source"
	"github.com/skekre98/workbench/core"
)

// setArgs turns --set key=value pairs into the dotted flags CLISource reads.
func setArgs(pairs []string) ([]string, error) {
	args := make([]string, 0, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", p)
		}
		args = append(args, "--"+strings.TrimSpace(k)+"="+v)
	}
	return args, nil
}

func sources(cmd *cobra.Command) ([]config.ConfigSource, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	profile, _ := cmd.Flags().GetString("profile")
	sets, _ := cmd.Flags().GetStringArray("set")

	args, err := setArgs(sets)
	if err != nil {
		return nil, err
	}
	return []config.ConfigSource{
		&source.FileSource{BasePath: dir, Profile: profile, Optional: true},
		&source.EnvSource{},
		&source.CLISource{Args: args},
	}, nil
}

// snapshot copies the current configuration out of m.
func snapshot(m *config.Manager) config.Root {
	var root config.Root
	m.View(func(cfg any) { root = *cfg.(*config.Root) })
	return root
}

func appConfig(root config.Root) core.AppConfig {
	candidates := make([]core.ExtensionCandidate, 0, len(root.Workspace.ExtensionCandidates))
	for _, p := range root.Workspace.ExtensionCandidates {
		candidates = append(candidates, core.ExtensionCandidate{Path: p})
	}
	return core.AppConfig{
		ApplicationName:             root.App.Name,
		URIScheme:                   root.App.URIScheme,
		Version:                     root.App.Version,
		WorkspaceDir:                root.Workspace.Dir,
		ExtensionDir:                root.Workspace.ExtensionDir,
		ExtensionCandidates:         candidates,
		ExtensionDevelopmentPaths:   root.Workspace.ExtensionDevelopment,
		WSPath:                      root.Connection.WSPath,
		ConnectionPath:              root.Connection.Path,
		ConnectionProtocols:         root.Connection.Protocols,
		UseExperimentalMultiChannel: root.Connection.Multiplex,
		ClientID:                    root.Connection.ClientID,
		Host:                        core.HostKind(root.Host.Kind),
		WindowID:                    root.Host.WindowID,
	}
}

// effective renders root keyed by its config tags, durations as strings.
func effective(root config.Root) (map[string]any, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "config",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(root); err != nil {
		return nil, err
	}
	humanize(out)
	return out, nil
}

func humanize(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case time.Duration:
			m[k] = val.String()
		case map[string]any:
			humanize(val)
		}
	}
}

func loadConfig(ctx context.Context, cmd *cobra.Command, opts config.Options) (*config.Manager, config.Root, error) {
	srcs, err := sources(cmd)
	if err != nil {
		return nil, config.Root{}, err
	}
	mgr, _, err := config.Load(ctx, opts, srcs...)
	if err != nil {
		return nil, config.Root{}, err
	}
	return mgr, snapshot(mgr), nil
}
