package appdata

import (
	"context"
	"maps"
)

// Source is one layer of application data. Later sources override earlier ones.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)
	Name() string
}

// StaticSource serves a fixed set of values, typically from configuration.
type StaticSource map[string]string

func (StaticSource) Name() string { return "static" }

func (s StaticSource) Load(context.Context) (map[string]string, error) {
	return maps.Clone(s), nil
}
