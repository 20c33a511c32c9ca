package core

import "sync"

// RenderedEvent is fired once the application shell has been rendered.
type RenderedEvent struct{}

// EventBus is a small synchronous in-process bus.
type EventBus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(any)
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[int]func(any))}
}

// On registers fn for every fired event and returns a function that removes it.
func (b *EventBus) On(fn func(evt any)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Fire calls every handler in the caller's goroutine.
func (b *EventBus) Fire(evt any) {
	b.mu.RLock()
	hs := make([]func(any), 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(evt)
	}
}

// OnEvent subscribes fn to events of type E only.
func OnEvent[E any](b *EventBus, fn func(E)) func() {
	return b.On(func(evt any) {
		if e, ok := evt.(E); ok {
			fn(e)
		}
	})
}
