package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/skekre98/workbench/connection"
	"github.com/skekre98/workbench/reporter"
)

// NoKeybindingName marks input targets whose key presses bypass keybinding dispatch.
const NoKeybindingName = "no-keybinding"

// BrowserNamespace is the logger namespace used by the app once connected.
const BrowserNamespace = "browser"

// Renderer draws the application shell. Only its completion matters here.
type Renderer interface {
	Render(ctx context.Context, app *App) error
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, app *App) error

func (f RenderFunc) Render(ctx context.Context, app *App) error { return f(ctx, app) }

// ApplicationService populates domain data that contributions rely on.
type ApplicationService interface {
	InitializeData(ctx context.Context) error
}

// RegistryStarter is a registry started between the initialize and onStart phases.
// Registries contribute themselves under this marker, in module order.
type RegistryStarter interface {
	OnStart(ctx context.Context) error
}

// KeyEvent is a key press forwarded by the host.
type KeyEvent struct {
	Key        string   `json:"key"`
	Code       string   `json:"code,omitempty"`
	Modifiers  []string `json:"modifiers,omitempty"`
	TargetName string   `json:"targetName,omitempty"`
}

// KeybindingDispatcher runs the binding matching a key press, if any.
type KeybindingDispatcher interface {
	Run(ctx context.Context, ev KeyEvent) bool
}

// Reloader is the host hook behind App.Reload.
type Reloader interface {
	Reload(forced bool) error
}

// LoggerProvider hands out namespaced loggers.
type LoggerProvider interface {
	Logger(namespace string) *slog.Logger
}

// ResizeEvent is fired on the event bus when the host window is resized.
type ResizeEvent struct {
	Width  int
	Height int
}

// App drives the client from cold start to ready and back down.
type App struct {
	Modules   []Module
	Container Container
	Logger    *slog.Logger
	Config    AppConfig

	state      *StateService
	bus        *EventBus
	negotiator ShutdownNegotiator
	logger     atomic.Pointer[slog.Logger]

	configureOnce sync.Once
	stopOnce      sync.Once
	configureErr  error

	chMu    sync.Mutex
	channel connection.Channel

	listening     atomic.Bool
	inComposition atomic.Bool
}

// NewApp resolves the module closure and seeds the container with the app's own
// services. Modules are configured on Configure or at the latest on Start, so
// callers can seed further values first.
func NewApp(logger *slog.Logger, cfg AppConfig, mods ...Module) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &App{
		Modules:   ResolveModuleDeps(mods),
		Container: NewContainer(),
		Logger:    logger,
		Config:    cfg.normalize(),
		state:     NewStateService(),
		bus:       NewEventBus(),
	}
	a.logger.Store(logger)
	a.negotiator = newNegotiator(a)

	Put[*App](a.Container, a)
	Put[AppConfig](a.Container, a.Config)
	Put[*StateService](a.Container, a.state)
	Put[*EventBus](a.Container, a.bus)
	Put[*slog.Logger](a.Container, logger)
	CreateContributionProvider[Contribution](a.Container)
	CreateContributionProvider[RegistryStarter](a.Container)
	return a
}

// Configure runs every module's Configure once, in resolved order.
func (a *App) Configure() error {
	a.configureOnce.Do(func() {
		a.Logger.Debug("configuring modules", "modules", ModuleNames(a.Modules))
		for _, m := range a.Modules {
			if err := m.Configure(a.Container); err != nil {
				a.configureErr = fmt.Errorf("configure module %s: %w", m.Name(), err)
				return
			}
		}
	})
	return a.configureErr
}

// State returns the current lifecycle state.
func (a *App) State() State { return a.state.State() }

// States exposes the state service for observers.
func (a *App) States() *StateService { return a.state }

// Events is the in-process event bus.
func (a *App) Events() *EventBus { return a.bus }

// Contributions is the current ordered view of client contributions.
func (a *App) Contributions() []Contribution {
	return Contributions[Contribution](a.Container)
}

func (a *App) log() *slog.Logger { return a.logger.Load() }

func (a *App) reporter() reporter.Service {
	if r, ok := Lookup[reporter.Service](a.Container); ok {
		return r
	}
	return reporter.Nop{}
}

// Start connects the client and brings every contribution up.
//
// Start runs these steps in order, moving the lifecycle state as it goes:
//  1. Configure the modules if that has not happened yet
//  2. Establish the channel of the given kind (or adopt existing) -> client_connected
//  3. Swap the app logger for the browser namespace logger, if one is registered
//  4. Load application data through the registered ApplicationService
//  5. Run initialize, start the registries, then run onStart -> started_contributions
//  6. Register the unload, key and resize listeners
//  7. Render through r, then run onDidStart -> ready
//
// A failure to establish the channel, load application data or render is
// returned and leaves the state where it stopped. Contribution failures are
// logged and never stop the sequence.
//
// Example:
//
//	app := core.NewApp(logger, core.AppConfig{Host: core.HostWeb}, web.Module(), command.Module())
//	if err := app.Start(ctx, renderer, connection.KindWeb, nil); err != nil {
//	    return err
//	}
//	defer app.Unload(context.Background())
func (a *App) Start(ctx context.Context, r Renderer, kind connection.Kind, existing connection.Channel) error {
	if err := a.Configure(); err != nil {
		return err
	}

	ch, err := a.establisher().Establish(ctx, kind, existing, func() {
		if err := a.reconnectContributions(context.Background()); err != nil {
			a.log().Warn("reconnect notifications aborted", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("establish %s connection: %w", kind, err)
	}
	a.chMu.Lock()
	a.channel = ch
	a.chMu.Unlock()

	if lp, ok := Lookup[LoggerProvider](a.Container); ok {
		a.logger.Store(lp.Logger(BrowserNamespace))
	}
	if existing == nil {
		if lr, ok := ch.(connection.LoggerReplacer); ok {
			lr.ReplaceLogger(a.log())
		}
	}
	a.state.Set(StateClientConnected)

	if err := a.initializeData(ctx); err != nil {
		return err
	}

	a.startContributions(ctx)
	a.state.Set(StateStartedContributions)

	a.registerEventListeners()

	if err := a.renderApp(ctx, r); err != nil {
		return err
	}
	a.state.Set(StateReady)
	return nil
}

func (a *App) establisher() *connection.Establisher {
	if e, ok := Lookup[*connection.Establisher](a.Container); ok {
		return e
	}
	e := &connection.Establisher{
		Socket: connection.SocketOptions{
			URL:       a.Config.ConnectionPath,
			Protocols: a.Config.ConnectionProtocols,
			Multiplex: a.Config.UseExperimentalMultiChannel,
			ClientID:  a.Config.ClientID,
		},
		Logger: a.Logger,
	}
	if nb, ok := Lookup[connection.NativeBridge](a.Container); ok {
		e.Native = nb
	}
	return e
}

func (a *App) initializeData(ctx context.Context) error {
	svc, ok := Lookup[ApplicationService](a.Container)
	if !ok {
		a.log().Debug("no application service registered")
		return nil
	}
	if err := svc.InitializeData(ctx); err != nil {
		return fmt.Errorf("initialize application data: %w", err)
	}
	return nil
}

func (a *App) startContributions(ctx context.Context) {
	contributions := a.Contributions()
	names := make([]string, 0, len(contributions))
	for _, c := range contributions {
		names = append(names, ContributionName(c))
	}
	a.log().Debug("startContributions clientAppContributions", "contributions", names)

	a.RunPhase(ctx, contributions, PhaseInitialize)
	a.log().Debug("contributions.initialize done")

	for _, rs := range Contributions[RegistryStarter](a.Container) {
		if err := rs.OnStart(ctx); err != nil {
			a.log().Error("registry start failed", "registry", ContributionName(rs), "error", err)
		}
	}

	a.RunPhase(ctx, a.Contributions(), PhaseOnStart)
	a.log().Debug("contributions.onStart done")
}

func (a *App) renderApp(ctx context.Context, r Renderer) error {
	if r != nil {
		if err := r.Render(ctx, a); err != nil {
			return fmt.Errorf("render application: %w", err)
		}
	}
	a.bus.Fire(RenderedEvent{})
	a.RunPhase(ctx, a.Contributions(), PhaseOnDidStart)
	return nil
}

// reconnectContributions notifies contributions in registration order.
// The first failure stops the remaining notifications for this event.
func (a *App) reconnectContributions(ctx context.Context) error {
	for _, c := range a.Contributions() {
		r, ok := c.(Reconnector)
		if !ok {
			continue
		}
		name := ContributionName(c)
		if err := call(ctx, a, r.OnReconnect); err != nil {
			a.log().Error("Could not run contribution#"+string(PhaseOnReconnect), "contribution", name, "error", err)
			return &PhaseError{Phase: PhaseOnReconnect, Contribution: name, Err: err}
		}
	}
	return nil
}

func (a *App) registerEventListeners() {
	a.listening.Store(true)
}

// BeforeUnload handles a close intent and reports whether it must be blocked.
func (a *App) BeforeUnload(ctx context.Context) bool {
	if !a.listening.Load() {
		return false
	}
	return a.negotiator.BeforeUnload(ctx)
}

// Unload handles the window going away.
func (a *App) Unload(ctx context.Context) {
	if !a.listening.Load() {
		return
	}
	a.negotiator.Unload(ctx)
}

// Resize publishes the new window size on the event bus.
func (a *App) Resize(width, height int) {
	if !a.listening.Load() {
		return
	}
	a.bus.Fire(ResizeEvent{Width: width, Height: height})
}

// CompositionStart suspends keybinding dispatch until CompositionEnd.
func (a *App) CompositionStart() { a.inComposition.Store(true) }

func (a *App) CompositionEnd() { a.inComposition.Store(false) }

// KeyDown forwards ev to the keybinding dispatcher and reports whether a binding ran.
func (a *App) KeyDown(ctx context.Context, ev KeyEvent) bool {
	if !a.listening.Load() || ev.TargetName == NoKeybindingName || a.inComposition.Load() {
		return false
	}
	d, ok := Lookup[KeybindingDispatcher](a.Container)
	if !ok {
		return false
	}
	return d.Run(ctx, ev)
}

// Reload asks the host to reload the client. forced bypasses any cache.
func (a *App) Reload(forced bool) error {
	r, ok := Lookup[Reloader](a.Container)
	if !ok {
		return fmt.Errorf("reload: %w", ErrNotRegistered)
	}
	a.log().Info("reload requested", "forced", forced)
	return r.Reload(forced)
}

// Run starts the app and then waits for ctx or SIGINT/SIGTERM. A signal is a
// close intent: if it is blocked, a second signal closes anyway.
func (a *App) Run(ctx context.Context, r Renderer, kind connection.Kind, existing connection.Channel) error {
	if err := a.Start(ctx, r, kind, existing); err != nil {
		return err
	}
	a.log().Info("workbench ready", "host", a.Config.Host, "connection", kind)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	return a.serve(ctx, stop)
}

// serve blocks until ctx ends or a close intent on stop goes through, then shuts
// the app down.
func (a *App) serve(ctx context.Context, stop <-chan os.Signal) error {
	blocked := false
	for {
		select {
		case <-ctx.Done():
			return a.shutdown()
		case sig := <-stop:
			a.log().Info("close requested", "signal", sig.String())
			if blocked || a.requestClose(ctx) {
				return a.shutdown()
			}
			blocked = true
			a.log().Warn("close blocked; signal again to quit anyway")
		}
	}
}

// requestClose runs one close negotiation and reports whether the window may go.
func (a *App) requestClose(ctx context.Context) bool {
	if a.Config.Host != HostNative {
		return !a.BeforeUnload(ctx)
	}

	events := make(chan StateEvent, 8)
	a.state.Subscribe(events)
	defer a.state.Unsubscribe(events)

	if !a.BeforeUnload(ctx) {
		return true
	}
	for {
		select {
		case ev := <-events:
			switch ev.New {
			case StateConfirmedClose:
				return true
			case StateReady:
				return false
			}
		case <-ctx.Done():
			return true
		}
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a.Unload(ctx)

	a.chMu.Lock()
	ch := a.channel
	a.channel = nil
	a.chMu.Unlock()
	if ch == nil {
		return nil
	}
	if err := ch.Close(); err != nil && !errors.Is(err, connection.ErrClosed) {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}
