package core

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotRegistered is returned when a key has neither a value nor a factory.
	ErrNotRegistered = errors.New("container: not registered")
	// ErrWrongType is returned when a resolved value does not match the requested type.
	ErrWrongType = errors.New("container: wrong type")
)

// Factory builds a value on first resolution. The result is cached.
type Factory func(c Container) (any, error)

// Container is the capability registry shared by modules and the app.
// Values are singletons; factories are resolved lazily and cached.
type Container interface {
	Set(key any, val any)
	Provide(key any, f Factory)
	Get(key any) (any, bool)
	Resolve(key any) (any, error)
	MustGet(key any) any
}

type container struct {
	mu        sync.RWMutex
	reg       map[any]any
	factories map[any]Factory
	// resolving guards each factory so concurrent Resolve calls build it once.
	resolving map[any]*sync.Once
}

func NewContainer() Container {
	return &container{
		reg:       make(map[any]any),
		factories: make(map[any]Factory),
		resolving: make(map[any]*sync.Once),
	}
}

func (c *container) Set(key, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg[key] = val
	delete(c.factories, key)
}

func (c *container) Provide(key any, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reg, key)
	c.factories[key] = f
	c.resolving[key] = &sync.Once{}
}

func (c *container) Get(key any) (any, bool) {
	v, err := c.Resolve(key)
	return v, err == nil
}

func (c *container) Resolve(key any) (any, error) {
	c.mu.RLock()
	v, ok := c.reg[key]
	f, hasFactory := c.factories[key]
	once := c.resolving[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	if !hasFactory {
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, key)
	}

	var buildErr error
	once.Do(func() {
		val, err := f(c)
		if err != nil {
			buildErr = err
			return
		}
		c.mu.Lock()
		c.reg[key] = val
		c.mu.Unlock()
	})
	if buildErr != nil {
		// allow a later attempt once the cause is fixed
		c.mu.Lock()
		c.resolving[key] = &sync.Once{}
		c.mu.Unlock()
		return nil, fmt.Errorf("container: build %v: %w", key, buildErr)
	}

	c.mu.RLock()
	v, ok = c.reg[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, key)
	}
	return v, nil
}

func (c *container) MustGet(key any) any {
	v, err := c.Resolve(key)
	if err != nil {
		panic(err)
	}
	return v
}

// TypeKey is the token for a value registered by its type.
type TypeKey[T any] struct{}

func Put[T any](c Container, v T) { c.Set(TypeKey[T]{}, v) }

// ProvideFunc registers a typed lazy singleton.
func ProvideFunc[T any](c Container, f func(c Container) (T, error)) {
	c.Provide(TypeKey[T]{}, func(c Container) (any, error) {
		return f(c)
	})
}

// Resolve returns the typed value for T or an error if it is missing or mistyped.
func Resolve[T any](c Container) (T, error) {
	var zero T
	raw, err := c.Resolve(TypeKey[T]{})
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have=%T want=%v", ErrWrongType, raw, reflect.TypeFor[T]())
	}
	return v, nil
}

// Lookup is Resolve with a presence flag instead of an error.
func Lookup[T any](c Container) (T, bool) {
	v, err := Resolve[T](c)
	return v, err == nil
}

func Get[T any](c Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}
