package groups

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirehome/core/pkg/bus"
	"github.com/wirehome/core/pkg/diagnostics"
	"github.com/wirehome/core/pkg/storage"
	"github.com/wirehome/core/pkg/system"
	"github.com/wirehome/core/pkg/types"
)

type eventRecorder struct {
	mu       sync.Mutex
	messages []types.BusMessage
}

func (r *eventRecorder) record(m types.BusMessage) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

func (r *eventRecorder) ofType(eventType string) []types.BusMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.BusMessage
	for _, m := range r.messages {
		if m.Type() == eventType {
			out = append(out, m)
		}
	}
	return out
}

func newTestRegistry(t *testing.T) (*Registry, storage.Store, *eventRecorder) {
	t.Helper()

	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	cancellation := system.NewCancellation()
	t.Cleanup(cancellation.Cancel)

	messageBus := bus.NewMessageBus(bus.Config{}, diagnostics.NewService(cancellation), cancellation)

	recorder := &eventRecorder{}
	_, err = messageBus.Subscribe(types.BusMessageFilter{}, recorder.record)
	require.NoError(t, err)

	return NewRegistry(store, messageBus), store, recorder
}

func TestRegisterComponentGroup(t *testing.T) {
	r, store, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))

	g, err := r.GetComponentGroup("room.kitchen")
	require.NoError(t, err)
	assert.Equal(t, "room.kitchen", g.Uid)
	assert.Empty(t, g.Components)
	assert.Empty(t, g.Macros)

	require.Len(t, recorder.ofType(EventGroupRegistered), 1)

	found, err := store.TryRead(&map[string]any{}, CategoryComponentGroups, "room.kitchen", FilenameConfiguration)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAssignComponent_Idempotent(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))

	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.1"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.1"))

	events := recorder.ofType(EventComponentAssigned)
	require.Len(t, events, 1)
	assert.Equal(t, "room.kitchen", events[0][KeyComponentGroupUid])
	assert.Equal(t, "lamp.1", events[0][KeyComponentUid])

	g, err := r.GetComponentGroup("room.kitchen")
	require.NoError(t, err)
	assert.Contains(t, g.Components, "lamp.1")
}

func TestUnassignComponent_Idempotent(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.1"))

	require.NoError(t, r.UnassignComponent("room.kitchen", "lamp.1"))
	require.NoError(t, r.UnassignComponent("room.kitchen", "lamp.1"))

	require.Len(t, recorder.ofType(EventComponentUnassigned), 1)

	g, err := r.GetComponentGroup("room.kitchen")
	require.NoError(t, err)
	assert.NotContains(t, g.Components, "lamp.1")
}

func TestAssign_MissingGroup(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	assert.ErrorIs(t, r.AssignComponent("missing", "lamp.1"), types.ErrNotFound)
}

func TestMacroAssignment(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.AssignMacro("room.kitchen", "macro.movie_night"))

	events := recorder.ofType(EventMacroAssigned)
	require.Len(t, events, 1)
	assert.Equal(t, "macro.movie_night", events[0][KeyMacroUid])

	require.NoError(t, r.UnassignMacro("room.kitchen", "macro.movie_night"))
	require.Len(t, recorder.ofType(EventMacroUnassigned), 1)
}

func TestSetComponentGroupSetting_EventCarriesNewValue(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.SetComponentGroupSetting("room.kitchen", "scene", "dinner"))
	require.NoError(t, r.SetComponentGroupSetting("room.kitchen", "scene", "movie"))

	events := recorder.ofType(EventSettingChanged)
	require.Len(t, events, 2)

	// The event reports the value that was stored, not the one replaced.
	assert.Equal(t, "dinner", events[1][KeyOldValue])
	assert.Equal(t, "movie", events[1][KeyNewValue])
}

func TestRemoveComponentGroupSetting(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))

	// Absent key: silent no-op.
	require.NoError(t, r.RemoveComponentGroupSetting("room.kitchen", "scene"))
	assert.Empty(t, recorder.ofType(EventSettingChanged))

	require.NoError(t, r.SetComponentGroupSetting("room.kitchen", "scene", "dinner"))
	require.NoError(t, r.RemoveComponentGroupSetting("room.kitchen", "scene"))

	events := recorder.ofType(EventSettingChanged)
	require.Len(t, events, 2)
	assert.Equal(t, "dinner", events[1][KeyOldValue])
	assert.Nil(t, events[1][KeyNewValue])

	v, err := r.GetComponentGroupSetting("room.kitchen", "scene")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestAssociationSettings(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.1"))

	require.NoError(t, r.SetComponentAssociationSetting("room.kitchen", "lamp.1", "role", "accent"))

	v, err := r.GetComponentAssociationSetting("room.kitchen", "lamp.1", "role")
	require.NoError(t, err)
	assert.Equal(t, "accent", v)

	events := recorder.ofType(EventComponentAssociationSettingChanged)
	require.Len(t, events, 1)
	assert.Equal(t, "accent", events[0][KeyNewValue])

	// Coalesced.
	require.NoError(t, r.SetComponentAssociationSetting("room.kitchen", "lamp.1", "role", "accent"))
	assert.Len(t, recorder.ofType(EventComponentAssociationSettingChanged), 1)

	require.NoError(t, r.RemoveComponentAssociationSetting("room.kitchen", "lamp.1", "role"))
	events = recorder.ofType(EventComponentAssociationSettingChanged)
	require.Len(t, events, 2)
	assert.Nil(t, events[1][KeyNewValue])
}

func TestAssociationSettings_MissingAssociationIsNoOp(t *testing.T) {
	r, _, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))

	// Mutations on an absent association are silent no-ops.
	require.NoError(t, r.SetComponentAssociationSetting("room.kitchen", "ghost", "role", "accent"))
	require.NoError(t, r.RemoveComponentAssociationSetting("room.kitchen", "ghost", "role"))
	assert.Empty(t, recorder.ofType(EventComponentAssociationSettingChanged))

	// Reads on an absent association yield null.
	v, err := r.GetComponentAssociationSetting("room.kitchen", "ghost", "role")
	require.NoError(t, err)
	assert.Nil(t, v)

	// A missing group stays a hard error.
	_, err = r.GetComponentAssociationSetting("missing", "lamp.1", "role")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPersistence_RoundTrip(t *testing.T) {
	r, store, _ := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.SetComponentGroupSetting("room.kitchen", "scene", "dinner"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.1"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.2"))
	require.NoError(t, r.SetComponentAssociationSetting("room.kitchen", "lamp.1", "role", "accent"))
	require.NoError(t, r.AssignMacro("room.kitchen", "macro.movie_night"))
	require.NoError(t, r.SetMacroAssociationSetting("room.kitchen", "macro.movie_night", "order", 2))

	// A fresh registry over the same store models a process restart.
	cancellation := system.NewCancellation()
	t.Cleanup(cancellation.Cancel)
	freshBus := bus.NewMessageBus(bus.Config{}, diagnostics.NewService(cancellation), cancellation)
	fresh := NewRegistry(store, freshBus)
	require.NoError(t, fresh.Initialize())

	g, err := fresh.GetComponentGroup("room.kitchen")
	require.NoError(t, err)
	assert.Equal(t, "dinner", g.Settings["scene"])
	require.Contains(t, g.Components, "lamp.1")
	require.Contains(t, g.Components, "lamp.2")
	assert.Equal(t, "accent", g.Components["lamp.1"].Settings["role"])
	require.Contains(t, g.Macros, "macro.movie_night")
	assert.Equal(t, float64(2), g.Macros["macro.movie_night"].Settings["order"])
}

func TestSave_PrunesStaleAssociationDirectories(t *testing.T) {
	r, store, _ := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.1"))
	require.NoError(t, r.AssignComponent("room.kitchen", "lamp.2"))

	require.NoError(t, r.UnassignComponent("room.kitchen", "lamp.1"))

	dirs, err := store.EnumerateDirectories("*", CategoryComponentGroups, "room.kitchen", SubCategoryComponents)
	require.NoError(t, err)
	assert.Equal(t, []string{"lamp.2"}, dirs)
}

func TestDeleteComponentGroup(t *testing.T) {
	r, store, recorder := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("room.kitchen"))
	require.NoError(t, r.DeleteComponentGroup("room.kitchen"))

	_, err := r.GetComponentGroup("room.kitchen")
	assert.ErrorIs(t, err, types.ErrNotFound)
	require.Len(t, recorder.ofType(EventGroupDeleted), 1)

	dirs, err := store.EnumerateDirectories("*", CategoryComponentGroups)
	require.NoError(t, err)
	assert.Empty(t, dirs)

	assert.ErrorIs(t, r.DeleteComponentGroup("room.kitchen"), types.ErrNotFound)
}

func TestGetComponentGroupUids_Sorted(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	require.NoError(t, r.RegisterComponentGroup("b"))
	require.NoError(t, r.RegisterComponentGroup("a"))

	assert.Equal(t, []string{"a", "b"}, r.GetComponentGroupUids())
	assert.Equal(t, 2, r.Count())
}
