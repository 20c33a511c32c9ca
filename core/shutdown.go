package core

import (
	"context"
	"sync"
	"time"
)

// ShutdownNegotiator decides whether a close intent may proceed and tears the
// contributions down once it does.
type ShutdownNegotiator interface {
	// BeforeUnload reports whether the close must be blocked for now.
	BeforeUnload(ctx context.Context) bool
	// Unload is the final teardown once the window is going away.
	Unload(ctx context.Context)
}

// PreferenceReader gives access to the confirm-exit preference.
type PreferenceReader interface {
	ConfirmExit() ConfirmExit
}

// WindowCloser asks a native host to close a window.
type WindowCloser interface {
	CloseWindow(ctx context.Context, windowID string) error
}

func newNegotiator(a *App) ShutdownNegotiator {
	if a.Config.Host == HostNative {
		return &nativeNegotiator{app: a, after: time.AfterFunc}
	}
	return &webNegotiator{app: a}
}

type webNegotiator struct {
	app *App
}

func (n *webNegotiator) BeforeUnload(ctx context.Context) bool {
	return n.app.PreventStop(ctx)
}

func (n *webNegotiator) Unload(ctx context.Context) {
	n.app.state.Set(StateClosingWindow)
	n.app.teardown(ctx, n.app.stopContributions)
}

type nativeNegotiator struct {
	app   *App
	after func(d time.Duration, f func()) *time.Timer
	// cycles counts negotiation cycles that were actually started.
	mu     sync.Mutex
	cycles int
}

// BeforeUnload always blocks the first request and negotiates in the
// background; the host closes the window itself once everybody agreed.
func (n *nativeNegotiator) BeforeUnload(ctx context.Context) bool {
	if n.app.state.Enter(StateAskingClose, StateAskingClose, StateConfirmedClose, StateClosingWindow) {
		n.mu.Lock()
		n.cycles++
		n.mu.Unlock()
		go n.negotiate(context.WithoutCancel(ctx))
		return true
	}
	return n.app.state.State() != StateConfirmedClose
}

func (n *nativeNegotiator) negotiate(ctx context.Context) {
	a := n.app
	if a.preventStopNative(ctx) {
		a.log().Info("close vetoed by a contribution")
		a.state.Enter(StateReady, StateClosingWindow)
		return
	}

	a.teardown(ctx, a.stopContributionsConcurrently)
	if !a.state.Enter(StateConfirmedClose, StateClosingWindow) {
		return
	}

	closer, ok := Lookup[WindowCloser](a.Container)
	if !ok {
		a.log().Warn("no window closer registered; window stays open")
		return
	}
	windowID := a.Config.WindowID
	n.after(0, func() {
		if err := closer.CloseWindow(ctx, windowID); err != nil {
			a.log().Error("Could not close window", "window_id", windowID, "error", err)
		}
	})
}

// Unload stops the contributions itself when the window goes away without a
// confirmed negotiation, e.g. a forced close or a cancelled run.
func (n *nativeNegotiator) Unload(ctx context.Context) {
	n.app.state.Set(StateClosingWindow)
	n.app.teardown(ctx, n.app.stopContributionsConcurrently)
}

func (n *nativeNegotiator) negotiations() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cycles
}

func (a *App) confirmExit() ConfirmExit {
	if p, ok := Lookup[PreferenceReader](a.Container); ok {
		return p.ConfirmExit()
	}
	return ConfirmExitIfRequired
}

// PreventStop reports whether a close must be confirmed by the user.
// "never" wins over any vote and "always" confirms even without one.
func (a *App) PreventStop(ctx context.Context) bool {
	confirm := a.confirmExit()
	if confirm == ConfirmExitNever {
		return false
	}
	if a.anyObjects(ctx) {
		return true
	}
	return confirm == ConfirmExitAlways
}

// preventStopNative only counts contribution votes; the native host never asks on its own.
func (a *App) preventStopNative(ctx context.Context) bool {
	if a.confirmExit() == ConfirmExitNever {
		return false
	}
	return a.anyObjects(ctx)
}

// anyObjects polls onWillStop in registration order and stops at the first veto.
func (a *App) anyObjects(ctx context.Context) bool {
	for _, c := range a.Contributions() {
		if a.willStop(ctx, c) {
			return true
		}
	}
	return false
}

// willStop treats a failing vote as no objection.
func (a *App) willStop(ctx context.Context, c Contribution) (veto bool) {
	ws, ok := c.(WillStopper)
	if !ok {
		return false
	}
	name := ContributionName(c)
	defer func() {
		if r := recover(); r != nil {
			a.log().Error("Could not run contribution#"+string(PhaseOnWillStop), "contribution", name, "panic", r)
			veto = false
		}
	}()
	v, err := ws.OnWillStop(ctx, a)
	if err != nil {
		a.log().Error("Could not run contribution#"+string(PhaseOnWillStop), "contribution", name, "error", err)
		return false
	}
	return v
}

// teardown runs stop at most once per app. Later callers wait for the first
// teardown to finish and then return without stopping anything again.
func (a *App) teardown(ctx context.Context, stop func(context.Context)) {
	a.stopOnce.Do(func() { stop(ctx) })
}

// stopContributions runs onStop one contribution at a time, in registration order.
func (a *App) stopContributions(ctx context.Context) {
	for _, c := range a.Contributions() {
		s, ok := c.(Stopper)
		if !ok {
			continue
		}
		name := ContributionName(c)
		if err := call(ctx, a, s.OnStop); err != nil {
			a.log().Error("Could not stop contribution", "contribution", name, "error", err)
		}
	}
}

// stopContributionsConcurrently runs every onStop at once and waits for all of them.
func (a *App) stopContributionsConcurrently(ctx context.Context) {
	var wg sync.WaitGroup
	for _, c := range a.Contributions() {
		s, ok := c.(Stopper)
		if !ok {
			continue
		}
		name := ContributionName(c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := call(ctx, a, s.OnStop); err != nil {
				a.log().Error("Could not stop contribution", "contribution", name, "error", err)
			}
		}()
	}
	wg.Wait()
}
