package config

import (
	"context"
	"maps"
)

// Defaults are the lowest-precedence values, overridden by every other source.
func Defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":    "workbench",
			"version": "dev",
		},
		"connection": map[string]any{
			"kind":           "web",
			"wsPath":         "ws://127.0.0.1:8000",
			"connectTimeout": "15s",
		},
		"host": map[string]any{
			"kind": "web",
		},
		"preferences": map[string]any{
			"confirmExit": "ifRequired",
		},
		"server": map[string]any{
			"addr":         ":8080",
			"readTimeout":  "10s",
			"writeTimeout": "10s",
			"idleTimeout":  "60s",
		},
		"actuator": map[string]any{
			"basePath": "/actuator",
		},
		"observability": map[string]any{
			"metrics": map[string]any{
				"enabled": true,
				"path":    "/actuator/metrics",
			},
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"appdata": map[string]any{
			"redis": map[string]any{
				"prefix": "workbench:appdata:",
			},
		},
	}
}

// StaticSource serves a fixed map. It never changes.
type StaticSource struct {
	ID   string
	Data map[string]any
}

func (s *StaticSource) Name() string {
	if s.ID == "" {
		return "static"
	}
	return s.ID
}

func (s *StaticSource) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(s.Data))
	mergeMaps(out, deepCopy(s.Data))
	return out, nil
}

func (s *StaticSource) Watch(ctx context.Context, ch chan<- Event) error { return nil }

func deepCopy(m map[string]any) map[string]any {
	out := maps.Clone(m)
	for k, v := range out {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
		}
	}
	return out
}

// Load builds a Manager over the defaults followed by sources and returns it
// with the bound Root. The Root is kept current on reload; read it through View.
func Load(ctx context.Context, opts Options, sources ...ConfigSource) (*Manager, *Root, error) {
	all := append([]ConfigSource{&StaticSource{ID: "defaults", Data: Defaults()}}, sources...)
	root := &Root{}
	m, err := NewManagerContext(ctx, root, opts, all...)
	if err != nil {
		return nil, nil, err
	}
	return m, root, nil
}
