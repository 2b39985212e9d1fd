/*
Package components implements the component registry, the authoritative
in-memory table of device and logical-unit state.

Every component carries three maps: configuration (loaded from disk),
settings (persisted key/values) and status (volatile live readings). The
registry owns one mutex covering the table and the per-component maps.
Write paths hold it across state update, storage write and bus publish so
an observer never sees events out of order with state; if the storage
write fails the in-memory mutation is rolled back and no event is
published.

Setting and status writes coalesce: storing a value deep-equal to the
current one is a no-op that neither persists nor publishes.

# Persistence

	Components/<uid>/configuration.json
	Components/<uid>/settings.json

Status is never persisted. At boot Initialize enumerates the Components
directory and loads every component; a component that fails to load is
logged and left absent.
*/
package components
