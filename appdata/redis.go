package appdata

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys used by RedisSource.
const DefaultPrefix = "workbench:appdata:"

// RedisSource reads application data from a redis hash stored at
// <prefix>values. Save replaces the hash and stamps <prefix>updated.
type RedisSource struct {
	client *backend.Client
	prefix string
}

type RedisOption func(*RedisSource)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisSource) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisSource connects lazily to the redis server at address.
func NewRedisSource(address string, db int, opts ...RedisOption) *RedisSource {
	rdb := backend.NewClient(&backend.Options{
		Addr: address,
		DB:   db,
	})
	return NewRedisSourceFromClient(rdb, opts...)
}

// NewRedisSourceFromClient wraps an existing client.
func NewRedisSourceFromClient(client *backend.Client, opts ...RedisOption) *RedisSource {
	s := &RedisSource{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisSource) valuesKey() string  { return s.prefix + "values" }
func (s *RedisSource) updatedKey() string { return s.prefix + "updated" }

func (s *RedisSource) Name() string { return "redis" }

// Load returns every field of the values hash. A missing hash yields no values.
func (s *RedisSource) Load(ctx context.Context) (map[string]string, error) {
	vals, err := s.client.HGetAll(ctx, s.valuesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.valuesKey(), err)
	}
	return vals, nil
}

// Save replaces the stored values atomically.
func (s *RedisSource) Save(ctx context.Context, values map[string]string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.valuesKey())
	if len(values) > 0 {
		fields := make([]any, 0, len(values)*2)
		for k, v := range values {
			fields = append(fields, k, v)
		}
		pipe.HSet(ctx, s.valuesKey(), fields...)
	}
	pipe.Set(ctx, s.updatedKey(), time.Now().UTC().Format(time.RFC3339), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Updated returns when the values were last saved, or the zero time if never.
func (s *RedisSource) Updated(ctx context.Context) (time.Time, error) {
	raw, err := s.client.Get(ctx, s.updatedKey()).Result()
	if err == backend.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
