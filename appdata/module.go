package appdata

import (
	"context"
	"log/slog"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
)

const Name = "appdata"

type Option func(*module)

// WithSource adds a source after the configured ones.
func WithSource(src Source) Option {
	return func(m *module) { m.extra = append(m.extra, src) }
}

// Module registers the Service as the core.ApplicationService. Sources come
// from config.Root: the inline values, then redis when an address is set.
func Module(opts ...Option) core.Module {
	m := &module{}
	for _, o := range opts {
		o(m)
	}
	return m
}

type module struct {
	extra []Source
}

func (m *module) Name() string             { return Name }
func (m *module) DependsOn() []core.Module { return nil }

func (m *module) Configure(c core.Container) error {
	logger := core.Get[*slog.Logger](c).With("module", Name)

	var sources []Source
	if cfg, ok := core.Lookup[config.Root](c); ok {
		if len(cfg.AppData.Values) > 0 {
			sources = append(sources, StaticSource(cfg.AppData.Values))
		}
		if r := cfg.AppData.Redis; r.Addr != "" {
			rs := NewRedisSource(r.Addr, r.DB, WithPrefix(r.Prefix))
			sources = append(sources, rs)
			core.Contribute[core.Contribution](c, &redisCloser{src: rs, logger: logger})
		}
	}
	sources = append(sources, m.extra...)

	svc := NewService(logger, sources...)
	core.Put(c, svc)
	core.Put[core.ApplicationService](c, svc)
	return nil
}

// redisCloser releases the redis client when the window goes away.
type redisCloser struct {
	src    *RedisSource
	logger *slog.Logger
}

func (r *redisCloser) Name() string { return "AppDataRedis" }

func (r *redisCloser) OnStop(context.Context, *core.App) error {
	if err := r.src.Close(); err != nil {
		r.logger.Warn("redis close failed", "error", err)
		return err
	}
	return nil
}
