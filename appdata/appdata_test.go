package appdata_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/workbench/appdata"
	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
	"github.com/skekre98/workbench/logging"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSource_LoadAndSave(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	src := appdata.NewRedisSourceFromClient(client, appdata.WithPrefix("test:"))

	vals, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, vals)

	updated, err := src.Updated(ctx)
	require.NoError(t, err)
	assert.True(t, updated.IsZero())

	mr.HSet("test:values", "theme", "dark")
	vals, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark"}, vals)

	require.NoError(t, src.Save(ctx, map[string]string{"locale": "en", "zoom": "2"}))
	vals, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"locale": "en", "zoom": "2"}, vals, "save replaces the hash")
	assert.True(t, mr.Exists("test:updated"))

	updated, err = src.Updated(ctx)
	require.NoError(t, err)
	assert.False(t, updated.IsZero())

	require.NoError(t, src.Save(ctx, nil))
	assert.False(t, mr.Exists("test:values"))
}

func TestRedisSource_DefaultPrefix(t *testing.T) {
	mr, client := newRedis(t)
	src := appdata.NewRedisSourceFromClient(client, appdata.WithPrefix(""))

	require.NoError(t, src.Save(context.Background(), map[string]string{"a": "1"}))
	assert.Equal(t, "1", mr.HGet(appdata.DefaultPrefix+"values", "a"))
}

func TestRedisSource_LoadError(t *testing.T) {
	mr, client := newRedis(t)
	mr.SetError("ERR boom")

	_, err := appdata.NewRedisSourceFromClient(client).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workbench:appdata:values")
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Load(context.Context) (map[string]string, error) {
	return nil, errors.New("unreachable")
}

func TestService_InitializeData(t *testing.T) {
	tests := []struct {
		name    string
		sources []appdata.Source
		want    map[string]string
		wantErr string
	}{
		{
			name: "no sources",
			want: map[string]string{},
		},
		{
			name: "later sources win",
			sources: []appdata.Source{
				appdata.StaticSource{"theme": "light", "locale": "en"},
				appdata.StaticSource{"theme": "dark"},
			},
			want: map[string]string{"theme": "dark", "locale": "en"},
		},
		{
			name: "failing source",
			sources: []appdata.Source{
				appdata.StaticSource{"theme": "light"},
				failingSource{},
			},
			wantErr: "load application data from broken: unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := appdata.NewService(logging.NewNop(), tt.sources...)
			err := svc.InitializeData(context.Background())
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				assert.False(t, svc.Loaded())
				assert.Empty(t, svc.All())
				return
			}
			require.NoError(t, err)
			assert.True(t, svc.Loaded())
			assert.Equal(t, tt.want, svc.All())
		})
	}
}

func TestService_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := appdata.NewService(nil, appdata.StaticSource{"a": "1"})
	assert.ErrorIs(t, svc.InitializeData(ctx), context.Canceled)
}

func TestService_AllIsACopy(t *testing.T) {
	svc := appdata.NewService(nil, appdata.StaticSource{"a": "1"})
	require.NoError(t, svc.InitializeData(context.Background()))

	all := svc.All()
	all["a"] = "changed"
	v, ok := svc.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestModule_ConfiguresFromRoot(t *testing.T) {
	mr, _ := newRedis(t)
	mr.HSet("wb:values", "theme", "dark")

	c := core.NewContainer()
	core.Put(c, logging.NewNop())
	core.Put(c, config.Root{AppData: config.AppDataConfig{
		Redis:  config.RedisConfig{Addr: mr.Addr(), Prefix: "wb:"},
		Values: map[string]string{"theme": "light", "locale": "en"},
	}})

	require.NoError(t, appdata.Module(appdata.WithSource(appdata.StaticSource{"zoom": "1"})).Configure(c))

	svc, err := core.Resolve[core.ApplicationService](c)
	require.NoError(t, err)
	require.NoError(t, svc.InitializeData(context.Background()))

	data := core.Get[*appdata.Service](c).All()
	assert.Equal(t, map[string]string{"theme": "dark", "locale": "en", "zoom": "1"}, data)

	contributions := core.Contributions[core.Contribution](c)
	require.Len(t, contributions, 1)
	stopper, ok := contributions[0].(core.Stopper)
	require.True(t, ok)
	assert.NoError(t, stopper.OnStop(context.Background(), nil))
}

func TestModule_WithoutConfig(t *testing.T) {
	c := core.NewContainer()
	core.Put(c, logging.NewNop())
	require.NoError(t, appdata.Module().Configure(c))

	svc := core.Get[*appdata.Service](c)
	require.NoError(t, svc.InitializeData(context.Background()))
	assert.Empty(t, svc.All())
	assert.Empty(t, core.Contributions[core.Contribution](c))
}
