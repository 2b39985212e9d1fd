/*
Package groups implements the component group registry.

A component group is a named collection of components and macros. Each
membership is an association edge carrying its own settings map; the edge
holds only the member uid and does not own the member. Deleting a
component does not cascade into groups: an association to a deleted
component stays in the group until it is unassigned. Saving a group prunes
only on-disk association directories that have no in-memory association.

The registry mirrors the component registry's concurrency discipline: one
mutex over the table and the per-group maps, held across state update,
storage write and bus publish, with rollback of the in-memory change when
the write fails.

# Save Protocol

Any committed mutation persists the group fully:

	ComponentGroups/<uid>/configuration.json
	ComponentGroups/<uid>/settings.json
	ComponentGroups/<uid>/Components/<componentUid>/settings.json
	ComponentGroups/<uid>/Macros/<macroUid>/settings.json

Association directories on disk that no longer have an in-memory
counterpart are removed during the save, so the tree always reflects the
current membership.
*/
package groups
