package groups

// Bus event types published by the component group registry.
const (
	EventGroupRegistered  = "component_group_registry.event.component_group_registered"
	EventGroupDeleted     = "component_group_registry.event.component_group_deleted"
	EventGroupInitialized = "component_group_registry.event.initialized"
	EventSettingChanged   = "component_group_registry.event.setting_changed"

	EventComponentAssigned   = "component_group_registry.event.component_assigned"
	EventComponentUnassigned = "component_group_registry.event.component_unassigned"
	EventMacroAssigned       = "component_group_registry.event.macro_assigned"
	EventMacroUnassigned     = "component_group_registry.event.macro_unassigned"

	EventComponentAssociationSettingChanged = "component_group_registry.event.component_association_setting_changed"
	EventMacroAssociationSettingChanged     = "component_group_registry.event.macro_association_setting_changed"
)

// Payload keys shared by the registry's events.
const (
	KeyComponentGroupUid = "component_group_uid"
	KeyComponentUid      = "component_uid"
	KeyMacroUid          = "macro_uid"
	KeySettingUid        = "setting_uid"
	KeyOldValue          = "old_value"
	KeyNewValue          = "new_value"
)
