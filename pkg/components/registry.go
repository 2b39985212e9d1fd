package components

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
	CategoryComponents    = "Components"
	FilenameConfiguration = "configuration.json"
	FilenameSettings      = "settings.json"
)

// Registry is the canonical table of components.
type Registry struct {
	mu         sync.Mutex
	components map[string]*types.Component

	store  storage.Store
	bus    *bus.MessageBus
	logger zerolog.Logger
}

// NewRegistry creates an empty component registry.
func NewRegistry(store storage.Store, messageBus *bus.MessageBus) *Registry {
	return &Registry{
		components: make(map[string]*types.Component),
		store:      store,
		bus:        messageBus,
		logger:     log.WithComponent("component_registry"),
	}
}

// Initialize loads every component found on disk. Load failures are logged
// and leave the affected component absent; the boot continues.
func (r *Registry) Initialize() error {
	uids, err := r.store.EnumerateDirectories("*", CategoryComponents)
	if err != nil {
		return err
	}

	for _, uid := range uids {
		if err := r.InitializeComponent(uid); err != nil {
			r.logger.Error().Err(err).Str("component_uid", uid).Msg("failed to initialize component")
		}
	}
	return nil
}

// InitializeComponent reads the component's configuration and persisted
// settings from storage and creates the in-memory entity. Publishes the
// initialized event on success.
func (r *Registry) InitializeComponent(uid string) error {
	if uid == "" {
		return types.InvalidUidError("component uid")
	}

	component := types.NewComponent(uid)

	configuration := make(map[string]any)
	if _, err := r.store.TryRead(&configuration, CategoryComponents, uid, FilenameConfiguration); err != nil {
		return err
	}
	component.Configuration = configuration

	settings := make(map[string]any)
	if _, err := r.store.TryRead(&settings, CategoryComponents, uid, FilenameSettings); err != nil {
		return err
	}
	for key, value := range settings {
		component.Settings[key] = types.NormalizeValue(value)
	}

	r.mu.Lock()
	r.components[uid] = component
	count := len(r.components)
	r.mu.Unlock()

	metrics.ComponentsTotal.Set(float64(count))
	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventComponentInitialized,
		KeyComponentUid:      uid,
	})
	return nil
}

// GetComponentUids returns all registered uids, sorted.
func (r *Registry) GetComponentUids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	uids := make([]string, 0, len(r.components))
	for uid := range r.components {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// GetComponents returns snapshots of all components, sorted by uid.
func (r *Registry) GetComponents() []*types.Component {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*types.Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, snapshotComponent(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Uid < out[j].Uid })
	return out
}

// TryGetComponent returns a snapshot of the component, or false when absent.
func (r *Registry) TryGetComponent(uid string) (*types.Component, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return nil, false
	}
	return snapshotComponent(c), true
}

// GetComponent returns a snapshot of the component or a not-found error.
func (r *Registry) GetComponent(uid string) (*types.Component, error) {
	if uid == "" {
		return nil, types.InvalidUidError("component uid")
	}
	c, ok := r.TryGetComponent(uid)
	if !ok {
		return nil, types.NotFoundError("component", uid)
	}
	return c, nil
}

// RegisterComponent creates or overwrites the component, persists its
// configuration and publishes the registered event.
func (r *Registry) RegisterComponent(uid string, configuration map[string]any) error {
	if uid == "" {
		return types.InvalidUidError("component uid")
	}

	component := types.NewComponent(uid)
	component.Configuration = types.NormalizeValueMap(configuration)

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.components[uid]
	r.components[uid] = component

	if err := r.store.Write(component.Configuration, CategoryComponents, uid, FilenameConfiguration); err != nil {
		r.rollbackLocked(uid, previous)
		return err
	}
	if err := r.store.Write(component.Settings, CategoryComponents, uid, FilenameSettings); err != nil {
		r.rollbackLocked(uid, previous)
		return err
	}

	metrics.ComponentsTotal.Set(float64(len(r.components)))
	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventComponentRegistered,
		KeyComponentUid:      uid,
	})
	return nil
}

// DeleteComponent removes the component and its directory and publishes the
// deleted event.
func (r *Registry) DeleteComponent(uid string) error {
	if uid == "" {
		return types.InvalidUidError("component uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.components[uid]
	if !ok {
		return types.NotFoundError("component", uid)
	}
	delete(r.components, uid)

	if err := r.store.DeleteDirectory(CategoryComponents, uid); err != nil {
		r.components[uid] = previous
		return err
	}

	metrics.ComponentsTotal.Set(float64(len(r.components)))
	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventComponentDeleted,
		KeyComponentUid:      uid,
	})
	return nil
}

// GetSetting returns the setting value, or nil when the key is absent.
func (r *Registry) GetSetting(componentUid, settingUid string) (any, error) {
	if componentUid == "" {
		return nil, types.InvalidUidError("component uid")
	}
	if settingUid == "" {
		return nil, types.InvalidUidError("setting uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[componentUid]
	if !ok {
		return nil, types.NotFoundError("component", componentUid)
	}
	return c.Settings[settingUid], nil
}

// SetSetting stores the setting value. Writes of a value deep-equal to the
// current one are coalesced: no persist, no event.
func (r *Registry) SetSetting(componentUid, settingUid string, value any) error {
	if componentUid == "" {
		return types.InvalidUidError("component uid")
	}
	if settingUid == "" {
		return types.InvalidUidError("setting uid")
	}

	value = types.NormalizeValue(value)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[componentUid]
	if !ok {
		return types.NotFoundError("component", componentUid)
	}

	// An absent setting reads as null, so equality against the old value
	// also coalesces writing null to a key that was never set.
	oldValue, hadValue := c.Settings[settingUid]
	if types.ValuesEqual(oldValue, value) {
		return nil
	}

	c.Settings[settingUid] = value

	if err := r.store.Write(c.Settings, CategoryComponents, componentUid, FilenameSettings); err != nil {
		if hadValue {
			c.Settings[settingUid] = oldValue
		} else {
			delete(c.Settings, settingUid)
		}
		return err
	}

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventSettingChanged,
		KeyComponentUid:      componentUid,
		KeySettingUid:        settingUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          value,
	})
	return nil
}

// RemoveSetting deletes the setting. Removing an absent key is a no-op; an
// actual removal persists and publishes setting_changed with a null new
// value.
func (r *Registry) RemoveSetting(componentUid, settingUid string) error {
	if componentUid == "" {
		return types.InvalidUidError("component uid")
	}
	if settingUid == "" {
		return types.InvalidUidError("setting uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[componentUid]
	if !ok {
		return types.NotFoundError("component", componentUid)
	}

	oldValue, hadValue := c.Settings[settingUid]
	if !hadValue {
		return nil
	}
	delete(c.Settings, settingUid)

	if err := r.store.Write(c.Settings, CategoryComponents, componentUid, FilenameSettings); err != nil {
		c.Settings[settingUid] = oldValue
		return err
	}

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventSettingChanged,
		KeyComponentUid:      componentUid,
		KeySettingUid:        settingUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          nil,
	})
	return nil
}

// GetStatus returns the status value, or nil when the key is absent.
func (r *Registry) GetStatus(componentUid, statusUid string) (any, error) {
	if componentUid == "" {
		return nil, types.InvalidUidError("component uid")
	}
	if statusUid == "" {
		return nil, types.InvalidUidError("status uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[componentUid]
	if !ok {
		return nil, types.NotFoundError("component", componentUid)
	}
	return c.Status[statusUid], nil
}

// SetStatus stores a live status value. Status is volatile: it is never
// persisted. Equal-value writes are coalesced.
func (r *Registry) SetStatus(componentUid, statusUid string, value any) error {
	if componentUid == "" {
		return types.InvalidUidError("component uid")
	}
	if statusUid == "" {
		return types.InvalidUidError("status uid")
	}

	value = types.NormalizeValue(value)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[componentUid]
	if !ok {
		return types.NotFoundError("component", componentUid)
	}

	oldValue := c.Status[statusUid]
	if types.ValuesEqual(oldValue, value) {
		return nil
	}
	c.Status[statusUid] = value

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventStatusChanged,
		KeyComponentUid:      componentUid,
		KeyStatusUid:         statusUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          value,
	})
	return nil
}

// RemoveStatus deletes the status value; a no-op when absent.
func (r *Registry) RemoveStatus(componentUid, statusUid string) error {
	if componentUid == "" {
		return types.InvalidUidError("component uid")
	}
	if statusUid == "" {
		return types.InvalidUidError("status uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[componentUid]
	if !ok {
		return types.NotFoundError("component", componentUid)
	}

	oldValue, hadValue := c.Status[statusUid]
	if !hadValue {
		return nil
	}
	delete(c.Status, statusUid)

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventStatusChanged,
		KeyComponentUid:      componentUid,
		KeyStatusUid:         statusUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          nil,
	})
	return nil
}

// EnableComponent sets the logical enabled flag and publishes the enabled
// event. Enabling an enabled component is a no-op.
func (r *Registry) EnableComponent(uid string) error {
	return r.setEnabled(uid, true, EventComponentEnabled)
}

// DisableComponent clears the logical enabled flag and publishes the
// disabled event. Disabling a disabled component is a no-op.
func (r *Registry) DisableComponent(uid string) error {
	return r.setEnabled(uid, false, EventComponentDisabled)
}

func (r *Registry) setEnabled(uid string, enabled bool, eventType string) error {
	if uid == "" {
		return types.InvalidUidError("component uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return types.NotFoundError("component", uid)
	}
	if c.Enabled == enabled {
		return nil
	}
	c.Enabled = enabled

	r.bus.Publish(types.BusMessage{
		types.MessageKeyType: eventType,
		KeyComponentUid:      uid,
	})
	return nil
}

// Count returns the number of registered components.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.components)
}

// rollbackLocked restores the previous table entry after a failed persist.
func (r *Registry) rollbackLocked(uid string, previous *types.Component) {
	if previous == nil {
		delete(r.components, uid)
	} else {
		r.components[uid] = previous
	}
}

// snapshotComponent copies the component with fresh top-level maps so
// callers can read it without holding the registry lock. Nested values are
// shared and treated as immutable.
func snapshotComponent(c *types.Component) *types.Component {
	out := &types.Component{
		Uid:           c.Uid,
		Settings:      make(map[string]any, len(c.Settings)),
		Status:        make(map[string]any, len(c.Status)),
		Configuration: make(map[string]any, len(c.Configuration)),
		Enabled:       c.Enabled,
	}
	for k, v := range c.Settings {
		out.Settings[k] = v
	}
	for k, v := range c.Status {
		out.Status[k] = v
	}
	for k, v := range c.Configuration {
		out.Configuration[k] = v
	}
	return out
}
