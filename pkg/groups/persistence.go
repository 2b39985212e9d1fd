package groups

import (
	"github.com/wirehome/core/pkg/types"
)

// saveLocked persists the group fully: configuration document, settings
// document, one settings document per association, and removal of stale
// on-disk association directories. The registry lock must be held.
func (r *Registry) saveLocked(g *types.ComponentGroup) error {
	if err := r.store.Write(map[string]any{}, CategoryComponentGroups, g.Uid, FilenameConfiguration); err != nil {
		return err
	}
	if err := r.store.Write(g.Settings, CategoryComponentGroups, g.Uid, FilenameSettings); err != nil {
		return err
	}

	if err := r.saveAssociationsLocked(g.Uid, SubCategoryComponents, g.Components); err != nil {
		return err
	}
	return r.saveAssociationsLocked(g.Uid, SubCategoryMacros, g.Macros)
}

func (r *Registry) saveAssociationsLocked(groupUid, subCategory string, members map[string]*types.ComponentGroupAssociation) error {
	for memberUid, a := range members {
		err := r.store.Write(a.Settings, CategoryComponentGroups, groupUid, subCategory, memberUid, FilenameSettings)
		if err != nil {
			return err
		}
	}

	// Reconcile: directories without an in-memory association are stale
	// leftovers from earlier memberships and are removed.
	existing, err := r.store.EnumerateDirectories("*", CategoryComponentGroups, groupUid, subCategory)
	if err != nil {
		return err
	}
	for _, memberUid := range existing {
		if _, ok := members[memberUid]; ok {
			continue
		}
		if err := r.store.DeleteDirectory(CategoryComponentGroups, groupUid, subCategory, memberUid); err != nil {
			return err
		}
	}
	return nil
}

// loadGroup rebuilds a group from its on-disk tree: settings document plus
// one association per sub-directory under Components and Macros.
func (r *Registry) loadGroup(uid string) (*types.ComponentGroup, error) {
	group := types.NewComponentGroup(uid)

	settings := make(map[string]any)
	if _, err := r.store.TryRead(&settings, CategoryComponentGroups, uid, FilenameSettings); err != nil {
		return nil, err
	}
	for key, value := range settings {
		group.Settings[key] = types.NormalizeValue(value)
	}

	if err := r.loadAssociations(uid, SubCategoryComponents, group.Components); err != nil {
		return nil, err
	}
	if err := r.loadAssociations(uid, SubCategoryMacros, group.Macros); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *Registry) loadAssociations(groupUid, subCategory string, members map[string]*types.ComponentGroupAssociation) error {
	memberUids, err := r.store.EnumerateDirectories("*", CategoryComponentGroups, groupUid, subCategory)
	if err != nil {
		return err
	}

	for _, memberUid := range memberUids {
		a := types.NewComponentGroupAssociation()

		settings := make(map[string]any)
		if _, err := r.store.TryRead(&settings, CategoryComponentGroups, groupUid, subCategory, memberUid, FilenameSettings); err != nil {
			return err
		}
		for key, value := range settings {
			a.Settings[key] = types.NormalizeValue(value)
		}
		members[memberUid] = a
	}
	return nil
}
