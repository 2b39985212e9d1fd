package groups

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wirehome/core/pkg/bus"
	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/metrics"
	"github.com/wirehome/core/pkg/storage"
	"github.com/wirehome/core/pkg/types"
)

// Storage layout constants.
const (
	CategoryComponentGroups = "ComponentGroups"
	SubCategoryComponents   = "Components"
	SubCategoryMacros       = "Macros"
	FilenameConfiguration   = "configuration.json"
	FilenameSettings        = "settings.json"
)

// Registry is the canonical table of component groups.
type Registry struct {
	mu     sync.Mutex
	groups map[string]*types.ComponentGroup

	store  storage.Store
	bus    *bus.MessageBus
	logger zerolog.Logger
}

// NewRegistry creates an empty component group registry.
func NewRegistry(store storage.Store, messageBus *bus.MessageBus) *Registry {
	return &Registry{
		groups: make(map[string]*types.ComponentGroup),
		store:  store,
		bus:    messageBus,
		logger: log.WithComponent("component_group_registry"),
	}
}

// Initialize loads every group found on disk. Load failures are logged and
// leave the affected group absent; the boot continues.
func (r *Registry) Initialize() error {
	uids, err := r.store.EnumerateDirectories("*", CategoryComponentGroups)
	if err != nil {
		return err
	}

	for _, uid := range uids {
		if err := r.InitializeComponentGroup(uid); err != nil {
			r.logger.Error().Err(err).Str("component_group_uid", uid).Msg("failed to initialize component group")
		}
	}
	return nil
}

// InitializeComponentGroup reads the group's settings and association
// settings from storage and creates the in-memory entity. Publishes the
// initialized event on success.
func (r *Registry) InitializeComponentGroup(uid string) error {
	if uid == "" {
		return types.InvalidUidError("component group uid")
	}

	group, err := r.loadGroup(uid)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.groups[uid] = group
	count := len(r.groups)
	r.mu.Unlock()

	metrics.ComponentGroupsTotal.Set(float64(count))
	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventGroupInitialized,
		KeyComponentGroupUid: uid,
	})
	return nil
}

// GetComponentGroupUids returns all registered uids, sorted.
func (r *Registry) GetComponentGroupUids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	uids := make([]string, 0, len(r.groups))
	for uid := range r.groups {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// GetComponentGroups returns snapshots of all groups, sorted by uid.
func (r *Registry) GetComponentGroups() []*types.ComponentGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*types.ComponentGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, snapshotGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Uid < out[j].Uid })
	return out
}

// TryGetComponentGroup returns a snapshot of the group, or false when
// absent.
func (r *Registry) TryGetComponentGroup(uid string) (*types.ComponentGroup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[uid]
	if !ok {
		return nil, false
	}
	return snapshotGroup(g), true
}

// GetComponentGroup returns a snapshot of the group or a not-found error.
func (r *Registry) GetComponentGroup(uid string) (*types.ComponentGroup, error) {
	if uid == "" {
		return nil, types.InvalidUidError("component group uid")
	}
	g, ok := r.TryGetComponentGroup(uid)
	if !ok {
		return nil, types.NotFoundError("component group", uid)
	}
	return g, nil
}

// RegisterComponentGroup creates or overwrites the group, persists it and
// publishes the registered event.
func (r *Registry) RegisterComponentGroup(uid string) error {
	if uid == "" {
		return types.InvalidUidError("component group uid")
	}

	group := types.NewComponentGroup(uid)

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.groups[uid]
	r.groups[uid] = group

	if err := r.saveLocked(group); err != nil {
		r.rollbackLocked(uid, previous)
		return err
	}

	metrics.ComponentGroupsTotal.Set(float64(len(r.groups)))
	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventGroupRegistered,
		KeyComponentGroupUid: uid,
	})
	return nil
}

// DeleteComponentGroup removes the group and its directory and publishes
// the deleted event.
func (r *Registry) DeleteComponentGroup(uid string) error {
	if uid == "" {
		return types.InvalidUidError("component group uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.groups[uid]
	if !ok {
		return types.NotFoundError("component group", uid)
	}
	delete(r.groups, uid)

	if err := r.store.DeleteDirectory(CategoryComponentGroups, uid); err != nil {
		r.groups[uid] = previous
		return err
	}

	metrics.ComponentGroupsTotal.Set(float64(len(r.groups)))
	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventGroupDeleted,
		KeyComponentGroupUid: uid,
	})
	return nil
}

// GetComponentGroupSetting returns the group setting value, or nil when the
// key is absent.
func (r *Registry) GetComponentGroupSetting(groupUid, settingUid string) (any, error) {
	if groupUid == "" {
		return nil, types.InvalidUidError("component group uid")
	}
	if settingUid == "" {
		return nil, types.InvalidUidError("setting uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUid]
	if !ok {
		return nil, types.NotFoundError("component group", groupUid)
	}
	return g.Settings[settingUid], nil
}

// SetComponentGroupSetting stores the group setting value. Equal-value
// writes are coalesced.
func (r *Registry) SetComponentGroupSetting(groupUid, settingUid string, value any) error {
	if groupUid == "" {
		return types.InvalidUidError("component group uid")
	}
	if settingUid == "" {
		return types.InvalidUidError("setting uid")
	}

	value = types.NormalizeValue(value)

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUid]
	if !ok {
		return types.NotFoundError("component group", groupUid)
	}

	oldValue, hadValue := g.Settings[settingUid]
	if types.ValuesEqual(oldValue, value) {
		return nil
	}
	g.Settings[settingUid] = value

	if err := r.saveLocked(g); err != nil {
		if hadValue {
			g.Settings[settingUid] = oldValue
		} else {
			delete(g.Settings, settingUid)
		}
		return err
	}

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventSettingChanged,
		KeyComponentGroupUid: groupUid,
		KeySettingUid:        settingUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          value,
	})
	return nil
}

// RemoveComponentGroupSetting deletes the group setting. Removing an absent
// key is a no-op; an actual removal persists and publishes setting_changed
// with a null new value.
func (r *Registry) RemoveComponentGroupSetting(groupUid, settingUid string) error {
	if groupUid == "" {
		return types.InvalidUidError("component group uid")
	}
	if settingUid == "" {
		return types.InvalidUidError("setting uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUid]
	if !ok {
		return types.NotFoundError("component group", groupUid)
	}

	oldValue, hadValue := g.Settings[settingUid]
	if !hadValue {
		return nil
	}
	delete(g.Settings, settingUid)

	if err := r.saveLocked(g); err != nil {
		g.Settings[settingUid] = oldValue
		return err
	}

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventSettingChanged,
		KeyComponentGroupUid: groupUid,
		KeySettingUid:        settingUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          nil,
	})
	return nil
}

// Count returns the number of registered groups.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

func (r *Registry) rollbackLocked(uid string, previous *types.ComponentGroup) {
	if previous == nil {
		delete(r.groups, uid)
	} else {
		r.groups[uid] = previous
	}
}

// snapshotGroup copies the group with fresh maps so callers can read it
// without holding the registry lock. Association settings maps are copied
// one level deep; nested values are shared and treated as immutable.
func snapshotGroup(g *types.ComponentGroup) *types.ComponentGroup {
	out := types.NewComponentGroup(g.Uid)
	for k, v := range g.Settings {
		out.Settings[k] = v
	}
	for uid, a := range g.Components {
		out.Components[uid] = snapshotAssociation(a)
	}
	for uid, a := range g.Macros {
		out.Macros[uid] = snapshotAssociation(a)
	}
	return out
}

func snapshotAssociation(a *types.ComponentGroupAssociation) *types.ComponentGroupAssociation {
	out := types.NewComponentGroupAssociation()
	for k, v := range a.Settings {
		out.Settings[k] = v
	}
	return out
}
