// Package web serves the host bridge: the HTTP surface through which a host
// window reports close intents, unloads, resizes and key presses.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
)

const Name = "web"

// RouteContribution registers routes on the server engine. Contributions are
// applied in the initialize phase, so the contributing module may configure
// before or after this one.
type RouteContribution func(r Router)

func Engine(c core.Container) *gin.Engine {
	return core.Get[*gin.Engine](c)
}

func Module(opts ...Option) core.Module {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &webModule{opts: options}
}

type webModule struct {
	opts Options
}

func (m *webModule) Name() string             { return Name }
func (m *webModule) DependsOn() []core.Module { return nil }

func (m *webModule) Configure(c core.Container) error {
	cfg, err := core.Resolve[config.Root](c)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}
	l := core.Get[*slog.Logger](c).With("module", Name)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(RecoveryProblem(l))
	r.Use(AccessLog(l, m.opts.QuietPaths...))
	r.Use(m.opts.Middlewares...)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	routes := core.CreateContributionProvider[RouteContribution](c)
	routes.Register(m.opts.Routes...)

	s := &Server{engine: r, srv: srv, routes: routes, logger: l}
	core.Put(c, r)
	core.Put(c, srv)
	core.Put(c, s)
	core.Contribute[core.Contribution](c, s)
	return nil
}

// Server is the contribution owning the HTTP listener.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	routes core.ContributionSource[RouteContribution]
	logger *slog.Logger

	mu   sync.Mutex
	addr net.Addr
	done chan struct{}
}

func (s *Server) Name() string { return "HostServer" }

func (s *Server) Initialize(_ context.Context, app *core.App) error {
	registerHostRoutes(s.engine.Group("/host"), app)
	for _, register := range s.routes.Contributions() {
		register(s.engine)
	}
	return nil
}

// OnStart binds the listener before returning so bind errors surface in the phase.
func (s *Server) OnStart(context.Context, *core.App) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	done := make(chan struct{})
	s.mu.Lock()
	s.addr = ln.Addr()
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.logger.Info("http server starting", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) OnStop(ctx context.Context, _ *core.App) error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-done
	return nil
}

// Addr is the bound listen address, or "" before OnStart.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}
