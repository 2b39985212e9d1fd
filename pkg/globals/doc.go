/*
Package globals implements the global variables service.

Global variables are a single persisted key/value document shared by
automations and scripts. Mutations coalesce equal values, persist the
document and publish bus events, mirroring the registries' discipline.

A filesystem watcher picks up external edits to the document (an operator
editing the JSON by hand) and reloads it, publishing a reloaded event so
subscribers can refresh. Self-inflicted writes reload to an identical map
and are ignored.
*/
package globals
