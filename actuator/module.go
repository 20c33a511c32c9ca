// Package actuator exposes health, info and metrics endpoints on the web server.
package actuator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
	"github.com/skekre98/workbench/web"
)

const Name = "actuator"

// HealthCheck is contributed by modules that want a say in /health.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

type module struct{}

func Module() core.Module { return &module{} }

func (m *module) Name() string             { return Name }
func (m *module) DependsOn() []core.Module { return []core.Module{web.Module()} }

func (m *module) Configure(c core.Container) error {
	cfg, err := core.Resolve[config.Root](c)
	if err != nil {
		return fmt.Errorf("actuator: %w", err)
	}
	a := &endpoints{
		app:    core.Get[*core.App](c),
		cfg:    cfg,
		checks: core.CreateContributionProvider[HealthCheck](c),
		c:      c,
	}
	core.Contribute(c, web.RouteContribution(a.register))
	return nil
}

type endpoints struct {
	app    *core.App
	cfg    config.Root
	checks core.ContributionSource[HealthCheck]
	c      core.Container
}

func (a *endpoints) register(r web.Router) {
	base := a.cfg.Actuator.BasePath
	if base == "" {
		base = "/"
	}
	group := r.Group(base)
	group.GET("/health", a.health)
	group.GET("/info", a.info)
	group.GET("/contributions", a.contributions)

	if a.cfg.Observability.Metrics.Enabled {
		p := a.cfg.Observability.Metrics.Path
		if p == "" {
			p = path.Join(base, "metrics")
		}
		r.GET(p, gin.WrapH(a.metricsHandler()))
	}
}

func (a *endpoints) metricsHandler() http.Handler {
	if g, ok := core.Lookup[prometheus.Gatherer](a.c); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// health is UP only once the app is ready and every check passes.
func (a *endpoints) health(ctx *gin.Context) {
	state := a.app.State()
	up := state == core.StateReady

	checks := []gin.H{}
	for _, hc := range a.checks.Contributions() {
		status := "UP"
		check := gin.H{"name": hc.Name()}
		if err := hc.Check(ctx.Request.Context()); err != nil {
			status = "DOWN"
			check["error"] = err.Error()
			up = false
		}
		check["status"] = status
		checks = append(checks, check)
	}

	code, status := http.StatusOK, "UP"
	if !up {
		code, status = http.StatusServiceUnavailable, "DOWN"
	}
	ctx.JSON(code, gin.H{
		"status": status,
		"state":  state,
		"checks": checks,
	})
}

func (a *endpoints) info(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"app": gin.H{
			"name":      a.cfg.App.Name,
			"version":   a.cfg.App.Version,
			"uriScheme": a.app.Config.URIScheme,
		},
		"connection": gin.H{
			"kind": a.cfg.Connection.Kind,
			"path": a.app.Config.ConnectionPath,
		},
		"host": gin.H{
			"kind":     a.app.Config.Host,
			"windowId": a.app.Config.WindowID,
		},
		"runtime": gin.H{
			"go":           runtime.Version(),
			"numGoroutine": runtime.NumGoroutine(),
			"time":         time.Now().UTC().Format(time.RFC3339),
			"pid":          os.Getpid(),
		},
	})
}

func (a *endpoints) contributions(ctx *gin.Context) {
	names := []string{}
	for _, c := range a.app.Contributions() {
		names = append(names, core.ContributionName(c))
	}
	ctx.JSON(http.StatusOK, gin.H{"contributions": names})
}
