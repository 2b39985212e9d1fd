/*
Package hub wires the Wirehome core together.

Hub builds the storage layer, message bus, diagnostics, registries and
services in dependency order, boots the persisted state and runs the
background loops until the process-wide cancellation fires. It is the only
package that knows the whole object graph; every subsystem below it
depends on interfaces and the bus alone.

Startup order matters: storage and the bus come first, the registries load
their on-disk trees next (publishing initialized events into the already
running bus), and the background loops start last. Shutdown reverses it:
the cancellation stops the loops, then the stores close.
*/
package hub
