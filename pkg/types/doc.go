/*
Package types defines the core data structures used throughout Wirehome.

This package contains the fundamental types that represent the hub's domain
model: components, component groups, group associations, bus messages, and
the dynamic JSON value helpers shared by the registries and the message bus.
These types are used by all other packages for state management, API
communication, and event publication.

# Core Types

  - Component: a controllable device or logical unit with settings, status
    and configuration maps
  - ComponentGroup: a named collection of components and macros with its
    own settings
  - ComponentGroupAssociation: a membership edge carrying per-edge settings
  - BusMessage: an immutable JSON-shaped record routed by the message bus

All entity types are serializable to JSON and are persisted as JSON
documents by the registries. Setting, status and configuration values are
dynamically typed: any JSON value (null, bool, number, string, array,
object) is legal. NormalizeValue and ValuesEqual define the canonical form
and the deep-equality relation used to coalesce writes.

# Error Kinds

The package also defines the error sentinels shared across the hub
(ErrNotFound, ErrInvalidArgument). Callers classify failures with
errors.Is; the HTTP facade maps them onto status codes.
*/
package types
