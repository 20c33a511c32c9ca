// Package command holds the command registry that menus and keybindings execute against.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/skekre98/workbench/core"
)

var (
	ErrNotFound  = errors.New("command not found")
	ErrDuplicate = errors.New("command already registered")
)

type Command struct {
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
	Category string `json:"category,omitempty"`
}

type Handler func(ctx context.Context, args ...any) error

// Contribution registers commands when the registry starts.
type Contribution interface {
	RegisterCommands(r *Registry) error
}

type entry struct {
	cmd     Command
	handler Handler
}

// Registry maps command ids to handlers. It is safe for concurrent use.
type Registry struct {
	source core.ContributionSource[Contribution]
	logger *slog.Logger

	mu       sync.RWMutex
	commands map[string]entry
	order    []string
}

func NewRegistry(logger *slog.Logger, source core.ContributionSource[Contribution]) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{source: source, logger: logger, commands: map[string]entry{}}
}

func (r *Registry) Name() string { return "CommandRegistry" }

// OnStart lets every contribution register its commands. A failing
// contribution does not prevent the others from registering.
func (r *Registry) OnStart(context.Context) error {
	if r.source == nil {
		return nil
	}
	var errs []error
	for _, c := range r.source.Contributions() {
		if err := c.RegisterCommands(r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", core.ContributionName(c), err))
		}
	}
	r.logger.Debug("commands registered", "count", len(r.Commands()))
	return errors.Join(errs...)
}

func (r *Registry) Register(cmd Command, h Handler) error {
	if cmd.ID == "" {
		return errors.New("command id is required")
	}
	if h == nil {
		return fmt.Errorf("command %s: nil handler", cmd.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[cmd.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, cmd.ID)
	}
	r.commands[cmd.ID] = entry{cmd: cmd, handler: h}
	r.order = append(r.order, cmd.ID)
	return nil
}

// Unregister removes id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[id]; !ok {
		return false
	}
	delete(r.commands, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[id]
	return ok
}

// Execute runs the handler of id outside the registry lock.
func (r *Registry) Execute(ctx context.Context, id string, args ...any) error {
	r.mu.RLock()
	e, ok := r.commands[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := e.handler(ctx, args...); err != nil {
		return fmt.Errorf("execute %s: %w", id, err)
	}
	return nil
}

// Commands lists registered commands in registration order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.commands[id].cmd)
	}
	return out
}
