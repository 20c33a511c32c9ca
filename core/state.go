package core

import (
	"context"
	"slices"
	"sync"
)

// State is the application lifecycle state.
type State string

const (
	StateInit                 State = "init"
	StateClientConnected      State = "client_connected"
	StateStartedContributions State = "started_contributions"
	StateReady                State = "ready"
	StateClosingWindow        State = "closing_window"
	StateAskingClose          State = "electron_asking_close"
	StateConfirmedClose       State = "electron_confirmed_close"
)

// StateEvent is delivered to subscribers on every transition.
type StateEvent struct {
	Old State
	New State
}

// StateService holds the single active state and notifies observers.
type StateService struct {
	mu      sync.Mutex
	state   State
	subs    []chan StateEvent
	reached map[State]chan struct{}
}

func NewStateService() *StateService {
	s := &StateService{
		state:   StateInit,
		reached: make(map[State]chan struct{}),
	}
	s.markReached(StateInit)
	return s
}

// State returns the active state.
func (s *StateService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set moves to next unconditionally.
func (s *StateService) Set(next State) {
	s.mu.Lock()
	old := s.state
	s.state = next
	s.markReached(next)
	subs := append([]chan StateEvent(nil), s.subs...)
	s.mu.Unlock()

	if old != next {
		s.notify(subs, StateEvent{Old: old, New: next})
	}
}

// Enter moves to next unless the current state is one of unless.
// It reports whether the transition happened; check and set are atomic.
func (s *StateService) Enter(next State, unless ...State) bool {
	s.mu.Lock()
	old := s.state
	if slices.Contains(unless, old) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.markReached(next)
	subs := append([]chan StateEvent(nil), s.subs...)
	s.mu.Unlock()

	if old != next {
		s.notify(subs, StateEvent{Old: old, New: next})
	}
	return true
}

// Subscribe registers a channel for transition events. Sends never block;
// a full channel drops the event, so buffer it.
func (s *StateService) Subscribe(ch chan StateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
}

func (s *StateService) Unsubscribe(ch chan StateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = slices.DeleteFunc(s.subs, func(c chan StateEvent) bool { return c == ch })
}

// Wait blocks until target has been reached at least once or ctx is done.
func (s *StateService) Wait(ctx context.Context, target State) error {
	s.mu.Lock()
	ch, ok := s.reached[target]
	if !ok {
		ch = make(chan struct{})
		s.reached[target] = ch
	}
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// markReached must be called with mu held.
func (s *StateService) markReached(st State) {
	ch, ok := s.reached[st]
	if !ok {
		ch = make(chan struct{})
		s.reached[st] = ch
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (s *StateService) notify(subs []chan StateEvent, evt StateEvent) {
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
