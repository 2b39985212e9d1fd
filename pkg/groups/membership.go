package groups

import (
	"github.com/wirehome/core/pkg/types"
)

// AssignComponent adds the component to the group. Assigning an already
// assigned component is a no-op; a fresh assignment persists the group and
// publishes component_assigned.
func (r *Registry) AssignComponent(groupUid, componentUid string) error {
	return r.assign(groupUid, componentUid, SubCategoryComponents)
}

// UnassignComponent removes the component from the group. Unassigning an
// absent component is a no-op; an actual removal persists the group and
// publishes component_unassigned.
func (r *Registry) UnassignComponent(groupUid, componentUid string) error {
	return r.unassign(groupUid, componentUid, SubCategoryComponents)
}

// AssignMacro adds the macro to the group, mirroring AssignComponent.
func (r *Registry) AssignMacro(groupUid, macroUid string) error {
	return r.assign(groupUid, macroUid, SubCategoryMacros)
}

// UnassignMacro removes the macro from the group, mirroring
// UnassignComponent.
func (r *Registry) UnassignMacro(groupUid, macroUid string) error {
	return r.unassign(groupUid, macroUid, SubCategoryMacros)
}

func (r *Registry) assign(groupUid, memberUid, subCategory string) error {
	if groupUid == "" {
		return types.InvalidUidError("component group uid")
	}
	if memberUid == "" {
		return types.InvalidUidError("member uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUid]
	if !ok {
		return types.NotFoundError("component group", groupUid)
	}

	members := g.Components
	if subCategory == SubCategoryMacros {
		members = g.Macros
	}

	if _, assigned := members[memberUid]; assigned {
		return nil
	}
	members[memberUid] = types.NewComponentGroupAssociation()

	if err := r.saveLocked(g); err != nil {
		delete(members, memberUid)
		return err
	}

	r.bus.Publish(r.membershipEvent(groupUid, memberUid, subCategory, true))
	return nil
}

func (r *Registry) unassign(groupUid, memberUid, subCategory string) error {
	if groupUid == "" {
		return types.InvalidUidError("component group uid")
	}
	if memberUid == "" {
		return types.InvalidUidError("member uid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUid]
	if !ok {
		return types.NotFoundError("component group", groupUid)
	}

	members := g.Components
	if subCategory == SubCategoryMacros {
		members = g.Macros
	}

	previous, assigned := members[memberUid]
	if !assigned {
		return nil
	}
	delete(members, memberUid)

	if err := r.saveLocked(g); err != nil {
		members[memberUid] = previous
		return err
	}

	r.bus.Publish(r.membershipEvent(groupUid, memberUid, subCategory, false))
	return nil
}

func (r *Registry) membershipEvent(groupUid, memberUid, subCategory string, assigned bool) types.BusMessage {
	m := types.BusMessage{KeyComponentGroupUid: groupUid}
	switch {
	case subCategory == SubCategoryMacros && assigned:
		m[types.MessageKeyType] = EventMacroAssigned
		m[KeyMacroUid] = memberUid
	case subCategory == SubCategoryMacros:
		m[types.MessageKeyType] = EventMacroUnassigned
		m[KeyMacroUid] = memberUid
	case assigned:
		m[types.MessageKeyType] = EventComponentAssigned
		m[KeyComponentUid] = memberUid
	default:
		m[types.MessageKeyType] = EventComponentUnassigned
		m[KeyComponentUid] = memberUid
	}
	return m
}

// GetComponentAssociationSetting returns the setting of the component
// association, or nil when the association or the key is absent. A missing
// group is a not-found error.
func (r *Registry) GetComponentAssociationSetting(groupUid, componentUid, settingUid string) (any, error) {
	return r.getAssociationSetting(groupUid, componentUid, settingUid, SubCategoryComponents)
}

// SetComponentAssociationSetting stores the setting on the component
// association. A missing association is a silent no-op; equal-value writes
// are coalesced.
func (r *Registry) SetComponentAssociationSetting(groupUid, componentUid, settingUid string, value any) error {
	return r.setAssociationSetting(groupUid, componentUid, settingUid, SubCategoryComponents, value)
}

// RemoveComponentAssociationSetting deletes the setting from the component
// association. A missing association or key is a silent no-op; an actual
// removal persists the group and publishes the association setting event
// with a null new value.
func (r *Registry) RemoveComponentAssociationSetting(groupUid, componentUid, settingUid string) error {
	return r.removeAssociationSetting(groupUid, componentUid, settingUid, SubCategoryComponents)
}

// GetMacroAssociationSetting mirrors GetComponentAssociationSetting for
// macro associations.
func (r *Registry) GetMacroAssociationSetting(groupUid, macroUid, settingUid string) (any, error) {
	return r.getAssociationSetting(groupUid, macroUid, settingUid, SubCategoryMacros)
}

// SetMacroAssociationSetting mirrors SetComponentAssociationSetting for
// macro associations.
func (r *Registry) SetMacroAssociationSetting(groupUid, macroUid, settingUid string, value any) error {
	return r.setAssociationSetting(groupUid, macroUid, settingUid, SubCategoryMacros, value)
}

// RemoveMacroAssociationSetting mirrors RemoveComponentAssociationSetting
// for macro associations.
func (r *Registry) RemoveMacroAssociationSetting(groupUid, macroUid, settingUid string) error {
	return r.removeAssociationSetting(groupUid, macroUid, settingUid, SubCategoryMacros)
}

func (r *Registry) getAssociationSetting(groupUid, memberUid, settingUid, subCategory string) (any, error) {
	if groupUid == "" {
		return nil, types.InvalidUidError("component group uid")
	}
	if memberUid == "" {
		return nil, types.InvalidUidError("member uid")
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

	a := r.associationLocked(g, memberUid, subCategory)
	if a == nil {
		return nil, nil
	}
	return a.Settings[settingUid], nil
}

func (r *Registry) setAssociationSetting(groupUid, memberUid, settingUid, subCategory string, value any) error {
	if groupUid == "" {
		return types.InvalidUidError("component group uid")
	}
	if memberUid == "" {
		return types.InvalidUidError("member uid")
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

	a := r.associationLocked(g, memberUid, subCategory)
	if a == nil {
		return nil
	}

	oldValue, hadValue := a.Settings[settingUid]
	if types.ValuesEqual(oldValue, value) {
		return nil
	}
	a.Settings[settingUid] = value

	if err := r.saveLocked(g); err != nil {
		if hadValue {
			a.Settings[settingUid] = oldValue
		} else {
			delete(a.Settings, settingUid)
		}
		return err
	}

	r.bus.Publish(r.associationSettingEvent(groupUid, memberUid, settingUid, subCategory, oldValue, value))
	return nil
}

func (r *Registry) removeAssociationSetting(groupUid, memberUid, settingUid, subCategory string) error {
	if groupUid == "" {
		return types.InvalidUidError("component group uid")
	}
	if memberUid == "" {
		return types.InvalidUidError("member uid")
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

	a := r.associationLocked(g, memberUid, subCategory)
	if a == nil {
		return nil
	}

	oldValue, hadValue := a.Settings[settingUid]
	if !hadValue {
		return nil
	}
	delete(a.Settings, settingUid)

	if err := r.saveLocked(g); err != nil {
		a.Settings[settingUid] = oldValue
		return err
	}

	r.bus.Publish(r.associationSettingEvent(groupUid, memberUid, settingUid, subCategory, oldValue, nil))
	return nil
}

func (r *Registry) associationLocked(g *types.ComponentGroup, memberUid, subCategory string) *types.ComponentGroupAssociation {
	if subCategory == SubCategoryMacros {
		return g.Macros[memberUid]
	}
	return g.Components[memberUid]
}

func (r *Registry) associationSettingEvent(groupUid, memberUid, settingUid, subCategory string, oldValue, newValue any) types.BusMessage {
	m := types.BusMessage{
		KeyComponentGroupUid: groupUid,
		KeySettingUid:        settingUid,
		KeyOldValue:          oldValue,
		KeyNewValue:          newValue,
	}
	if subCategory == SubCategoryMacros {
		m[types.MessageKeyType] = EventMacroAssociationSettingChanged
		m[KeyMacroUid] = memberUid
	} else {
		m[types.MessageKeyType] = EventComponentAssociationSettingChanged
		m[KeyComponentUid] = memberUid
	}
	return m
}
