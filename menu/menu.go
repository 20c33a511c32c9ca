// Package menu collects menu items contributed against menu ids.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/skekre98/workbench/core"
)

// Well-known menu ids.
const (
	MainMenu    = "main"
	ContextMenu = "context"
)

// Item is an entry executing Command. Items sort by Group, then Order, then Label.
type Item struct {
	Command string `json:"command"`
	Label   string `json:"label"`
	Group   string `json:"group,omitempty"`
	Order   int    `json:"order,omitempty"`
}

type Contribution interface {
	RegisterMenus(r *Registry) error
}

type Registry struct {
	source core.ContributionSource[Contribution]
	logger *slog.Logger

	mu    sync.RWMutex
	menus map[string][]Item
}

func NewRegistry(logger *slog.Logger, source core.ContributionSource[Contribution]) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{source: source, logger: logger, menus: map[string][]Item{}}
}

func (r *Registry) Name() string { return "MenuRegistry" }

func (r *Registry) OnStart(context.Context) error {
	if r.source == nil {
		return nil
	}
	var errs []error
	for _, c := range r.source.Contributions() {
		if err := c.RegisterMenus(r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", core.ContributionName(c), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) RegisterItem(menuID string, item Item) error {
	if menuID == "" {
		return errors.New("menu id is required")
	}
	if item.Command == "" {
		return fmt.Errorf("menu %s: item %q has no command", menuID, item.Label)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus[menuID] = append(r.menus[menuID], item)
	return nil
}

// Items returns the sorted items of menuID.
func (r *Registry) Items(menuID string) []Item {
	r.mu.RLock()
	items := slices.Clone(r.menus[menuID])
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Label < b.Label
	})
	return items
}

// Menus lists the ids that have at least one item.
func (r *Registry) Menus() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.menus))
	for id := range r.menus {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
