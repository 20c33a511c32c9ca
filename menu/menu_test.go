package menu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/workbench/core"
	"github.com/skekre98/workbench/logging"
)

func TestRegistry_ItemsSorted(t *testing.T) {
	r := NewRegistry(nil, nil)
	for _, it := range []Item{
		{Command: "file.close", Label: "Close", Group: "2_close", Order: 1},
		{Command: "file.saveAs", Label: "Save As", Group: "1_save", Order: 2},
		{Command: "file.save", Label: "Save", Group: "1_save", Order: 1},
		{Command: "file.revert", Label: "Revert", Group: "1_save", Order: 2},
	} {
		require.NoError(t, r.RegisterItem(MainMenu, it))
	}

	var got []string
	for _, it := range r.Items(MainMenu) {
		got = append(got, it.Command)
	}
	assert.Equal(t, []string{"file.save", "file.revert", "file.saveAs", "file.close"}, got)
	assert.Empty(t, r.Items(ContextMenu))
	assert.Equal(t, []string{MainMenu}, r.Menus())
}

func TestRegistry_RegisterItemErrors(t *testing.T) {
	r := NewRegistry(nil, nil)
	assert.Error(t, r.RegisterItem("", Item{Command: "x"}))
	assert.Error(t, r.RegisterItem(MainMenu, Item{Label: "No command"}))
	assert.Empty(t, r.Menus())
}

type menus map[string]Item

func (m menus) RegisterMenus(r *Registry) error {
	for id, it := range m {
		if err := r.RegisterItem(id, it); err != nil {
			return err
		}
	}
	return nil
}

func TestModule_OnStart(t *testing.T) {
	c := core.NewContainer()
	core.Put(c, logging.NewNop())
	require.NoError(t, Module().Configure(c))
	core.Contribute[Contribution](c,
		menus{ContextMenu: {Command: "edit.copy", Label: "Copy"}},
		menus{MainMenu: {Label: "broken"}},
	)

	starters := core.Contributions[core.RegistryStarter](c)
	require.Len(t, starters, 1)
	assert.Error(t, starters[0].OnStart(context.Background()))

	reg := core.Get[*Registry](c)
	assert.Equal(t, []Item{{Command: "edit.copy", Label: "Copy"}}, reg.Items(ContextMenu))
}
