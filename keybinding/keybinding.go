// Package keybinding maps key chords to commands and dispatches host key presses.
package keybinding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/skekre98/workbench/core"
)

// Keybinding binds a chord such as "ctrl+shift+p" to a command id.
type Keybinding struct {
	Keys    string `json:"keys"`
	Command string `json:"command"`
	Args    []any  `json:"args,omitempty"`
}

type Contribution interface {
	RegisterKeybindings(r *Registry) error
}

// Executor runs commands by id.
type Executor interface {
	Execute(ctx context.Context, id string, args ...any) error
}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"meta":    "meta",
	"cmd":     "meta",
	"super":   "meta",
}

var modifierOrder = []string{"ctrl", "alt", "shift", "meta"}

// Normalize returns the canonical form of chord: lower case, modifiers in a
// fixed order, exactly one non-modifier key last.
func Normalize(chord string) (string, error) {
	mods := map[string]bool{}
	key := ""
	for _, part := range strings.Split(chord, "+") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		if m, ok := modifierAliases[p]; ok {
			mods[m] = true
			continue
		}
		if key != "" {
			return "", fmt.Errorf("chord %q has more than one key", chord)
		}
		key = p
	}
	if key == "" {
		return "", fmt.Errorf("chord %q has no key", chord)
	}

	parts := make([]string, 0, len(modifierOrder)+1)
	for _, m := range modifierOrder {
		if mods[m] {
			parts = append(parts, m)
		}
	}
	return strings.Join(append(parts, key), "+"), nil
}

func chordOf(ev core.KeyEvent) (string, error) {
	return Normalize(strings.Join(append(append([]string(nil), ev.Modifiers...), ev.Key), "+"))
}

// Registry implements core.KeybindingDispatcher. When several bindings share
// a chord the one registered last wins.
type Registry struct {
	source core.ContributionSource[Contribution]
	exec   Executor
	logger *slog.Logger

	mu       sync.RWMutex
	bindings map[string][]Keybinding
	count    int
}

func NewRegistry(logger *slog.Logger, source core.ContributionSource[Contribution], exec Executor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{source: source, exec: exec, logger: logger, bindings: map[string][]Keybinding{}}
}

func (r *Registry) Name() string { return "KeybindingRegistry" }

func (r *Registry) OnStart(context.Context) error {
	if r.source == nil {
		return nil
	}
	var errs []error
	for _, c := range r.source.Contributions() {
		if err := c.RegisterKeybindings(r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", core.ContributionName(c), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) Register(kb Keybinding) error {
	if kb.Command == "" {
		return fmt.Errorf("keybinding %q: command is required", kb.Keys)
	}
	chord, err := Normalize(kb.Keys)
	if err != nil {
		return err
	}
	kb.Keys = chord

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[chord] = append(r.bindings[chord], kb)
	r.count++
	return nil
}

// Lookup returns the binding that a press of chord would run.
func (r *Registry) Lookup(chord string) (Keybinding, bool) {
	normalized, err := Normalize(chord)
	if err != nil {
		return Keybinding{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.bindings[normalized]
	if len(list) == 0 {
		return Keybinding{}, false
	}
	return list[len(list)-1], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Run executes the command bound to ev and reports whether it ran.
func (r *Registry) Run(ctx context.Context, ev core.KeyEvent) bool {
	chord, err := chordOf(ev)
	if err != nil {
		return false
	}
	kb, ok := r.Lookup(chord)
	if !ok {
		return false
	}
	if err := r.exec.Execute(ctx, kb.Command, kb.Args...); err != nil {
		r.logger.Warn("keybinding command failed", "keys", chord, "command", kb.Command, "error", err)
		return false
	}
	return true
}
