package core

import (
	"context"
	"reflect"
	"sync"
)

// Contribution is any value registered under the client contribution marker.
// It takes part in a lifecycle phase by implementing the matching interface
// below; a contribution without the method is skipped for that phase.
type Contribution any

// Initializer runs in the initialize phase, after application data is loaded.
type Initializer interface {
	Initialize(ctx context.Context, app *App) error
}

// Starter runs in the onStart phase, after the registries have started.
type Starter interface {
	OnStart(ctx context.Context, app *App) error
}

// DidStarter runs in the onDidStart phase, after the shell has been rendered.
type DidStarter interface {
	OnDidStart(ctx context.Context, app *App) error
}

// WillStopper votes on a close attempt. Returning true objects to the close.
type WillStopper interface {
	OnWillStop(ctx context.Context, app *App) (bool, error)
}

// Stopper releases resources when the window goes away.
type Stopper interface {
	OnStop(ctx context.Context, app *App) error
}

// Reconnector is notified when the transport re-establishes the channel.
type Reconnector interface {
	OnReconnect(ctx context.Context, app *App) error
}

// Named lets a contribution pick the name used in logs and timing keys.
type Named interface {
	Name() string
}

// ContributionName returns the name used for c in logs and measurements.
func ContributionName(c any) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(c)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// ContributionSource exposes the current ordered contributions of one marker.
type ContributionSource[T any] interface {
	Contributions() []T
}

// ContributionProvider is an append-only, ordered registry for one marker type.
type ContributionProvider[T any] struct {
	mu    sync.RWMutex
	items []T
}

// Register appends contributions in registration order.
func (p *ContributionProvider[T]) Register(items ...T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, items...)
}

// Contributions returns a snapshot; later registrations do not affect it.
func (p *ContributionProvider[T]) Contributions() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]T(nil), p.items...)
}

var providerMu sync.Mutex

// CreateContributionProvider makes sure a provider for marker T exists in c and returns it.
func CreateContributionProvider[T any](c Container) *ContributionProvider[T] {
	providerMu.Lock()
	defer providerMu.Unlock()
	if p, ok := Lookup[*ContributionProvider[T]](c); ok {
		return p
	}
	p := &ContributionProvider[T]{}
	Put[*ContributionProvider[T]](c, p)
	return p
}

// Contribute registers items under marker T, creating the provider if needed.
func Contribute[T any](c Container, items ...T) {
	CreateContributionProvider[T](c).Register(items...)
}

// Contributions returns the registered contributions for marker T, or nil.
func Contributions[T any](c Container) []T {
	p, ok := Lookup[*ContributionProvider[T]](c)
	if !ok {
		return nil
	}
	return p.Contributions()
}
