package components

// Bus event types published by the component registry.
const (
	EventComponentRegistered  = "component_registry.event.component_registered"
	EventComponentDeleted     = "component_registry.event.component_deleted"
	EventComponentInitialized = "component_registry.event.initialized"
	EventSettingChanged       = "component_registry.event.setting_changed"
	EventStatusChanged        = "component_registry.event.status_changed"
	EventComponentEnabled     = "component_registry.event.enabled"
	EventComponentDisabled    = "component_registry.event.disabled"
)

// Payload keys shared by the registry's events.
const (
	KeyComponentUid = "component_uid"
	KeySettingUid   = "setting_uid"
	KeyStatusUid    = "status_uid"
	KeyOldValue     = "old_value"
	KeyNewValue     = "new_value"
)
