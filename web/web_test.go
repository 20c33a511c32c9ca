package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/connection"
	"github.com/skekre98/workbench/core"
	"github.com/skekre98/workbench/logging"
)

type extras struct {
	items []core.Contribution
	setup func(c core.Container)
}

func (e *extras) Name() string             { return "extras" }
func (e *extras) DependsOn() []core.Module { return nil }
func (e *extras) Configure(c core.Container) error {
	core.Contribute(c, e.items...)
	if e.setup != nil {
		e.setup(c)
	}
	return nil
}

func startApp(t *testing.T, ex *extras, opts ...Option) (*core.App, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if ex == nil {
		ex = &extras{}
	}
	app := core.NewApp(logging.NewNop(), core.AppConfig{}, ex, Module(opts...))
	core.Put(app.Container, config.Root{Server: config.ServerConfig{Addr: "127.0.0.1:0"}})

	local, _ := connection.Pipe()
	require.NoError(t, app.Start(context.Background(), nil, connection.KindDirect, local))

	s := core.Get[*Server](app.Container)
	t.Cleanup(func() { _ = s.OnStop(context.Background(), app) })
	return app, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestServer_RoutesAndListener(t *testing.T) {
	app, s := startApp(t, &extras{setup: func(c core.Container) {
		core.Contribute(c, RouteContribution(func(r Router) {
			r.GET("/contributed", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		}))
	}}, WithRoutes(func(r Router) {
		r.GET("/hello", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "world"}) })
	}))
	engine := Engine(app.Container)

	assert.Equal(t, http.StatusOK, do(t, engine, http.MethodGet, "/hello", "").Code)
	assert.Equal(t, "ok", do(t, engine, http.MethodGet, "/contributed", "").Body.String())

	w := do(t, engine, http.MethodGet, "/host/state", "")
	assert.Equal(t, "ready", decode(t, w)["state"])

	require.NotEmpty(t, s.Addr())
	resp, err := http.Get("http://" + s.Addr() + "/hello")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.OnStop(context.Background(), app))
	require.NoError(t, s.OnStop(context.Background(), app))
	_, err = http.Get("http://" + s.Addr() + "/hello")
	assert.Error(t, err)
}

func TestServer_ListenError(t *testing.T) {
	s := &Server{srv: &http.Server{Addr: "127.0.0.1:99999"}, logger: logging.NewNop()}
	assert.Error(t, s.OnStart(context.Background(), nil))
	assert.Empty(t, s.Addr())
	assert.NoError(t, s.OnStop(context.Background(), nil))
}

func TestModule_RequiresConfig(t *testing.T) {
	c := core.NewContainer()
	core.Put(c, logging.NewNop())
	err := Module().Configure(c)
	assert.ErrorIs(t, err, core.ErrNotRegistered)
}

type veto struct{}

func (veto) OnWillStop(context.Context, *core.App) (bool, error) { return true, nil }

func TestHost_BeforeUnloadAndUnload(t *testing.T) {
	app, _ := startApp(t, &extras{items: []core.Contribution{veto{}}})
	engine := Engine(app.Container)

	w := do(t, engine, http.MethodPost, "/host/beforeunload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["prevent"])

	w = do(t, engine, http.MethodPost, "/host/unload", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool { return app.State() == core.StateClosingWindow }, time.Second, 5*time.Millisecond)
}

type dispatcher struct{ events []core.KeyEvent }

func (d *dispatcher) Run(_ context.Context, ev core.KeyEvent) bool {
	d.events = append(d.events, ev)
	return true
}

func TestHost_KeyDownAndComposition(t *testing.T) {
	d := &dispatcher{}
	app, _ := startApp(t, &extras{setup: func(c core.Container) {
		core.Put[core.KeybindingDispatcher](c, d)
	}})
	engine := Engine(app.Container)

	tests := []struct {
		name    string
		before  string
		body    string
		status  int
		handled bool
	}{
		{name: "dispatched", body: `{"key":"p","modifiers":["ctrl"]}`, status: http.StatusOK, handled: true},
		{name: "no keybinding target", body: `{"key":"p","targetName":"no-keybinding"}`, status: http.StatusOK},
		{name: "composing", before: "/host/composition/start", body: `{"key":"a"}`, status: http.StatusOK},
		{name: "composition ended", before: "/host/composition/end", body: `{"key":"b"}`, status: http.StatusOK, handled: true},
		{name: "missing key", body: `{"code":"KeyP"}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.before != "" {
				require.Equal(t, http.StatusNoContent, do(t, engine, http.MethodPost, tt.before, "").Code)
			}
			w := do(t, engine, http.MethodPost, "/host/keydown", tt.body)
			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.handled, decode(t, w)["handled"])
			} else {
				assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			}
		})
	}
	require.Len(t, d.events, 2)
	assert.Equal(t, []string{"ctrl"}, d.events[0].Modifiers)
}

func TestHost_Resize(t *testing.T) {
	app, _ := startApp(t, nil)
	var got core.ResizeEvent
	core.OnEvent(app.Events(), func(e core.ResizeEvent) { got = e })
	engine := Engine(app.Container)

	assert.Equal(t, http.StatusNoContent, do(t, engine, http.MethodPost, "/host/resize", `{"width":800,"height":600}`).Code)
	assert.Equal(t, core.ResizeEvent{Width: 800, Height: 600}, got)
	assert.Equal(t, http.StatusBadRequest, do(t, engine, http.MethodPost, "/host/resize", `{"width":-1}`).Code)
}

type reloader struct{ forced []bool }

func (r *reloader) Reload(forced bool) error {
	r.forced = append(r.forced, forced)
	return nil
}

func TestHost_Reload(t *testing.T) {
	app, _ := startApp(t, nil)
	engine := Engine(app.Container)
	assert.Equal(t, http.StatusNotImplemented, do(t, engine, http.MethodPost, "/host/reload", "").Code)

	r := &reloader{}
	core.Put[core.Reloader](app.Container, r)
	assert.Equal(t, http.StatusAccepted, do(t, engine, http.MethodPost, "/host/reload", `{"forced":true}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, engine, http.MethodPost, "/host/reload", "").Code)
	assert.Equal(t, []bool{true, false}, r.forced)
}

func TestMiddleware_RequestIDAndRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RecoveryProblem(logging.NewNop()), AccessLog(logging.NewNop(), "/boom"))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := do(t, r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, float64(500), decode(t, w)["status"])
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
