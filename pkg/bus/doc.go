/*
Package bus provides Wirehome's in-process message bus.

The bus routes JSON-shaped messages between subsystems. Registries publish
an event for every committed mutation; subscribers select messages with
filters (maps of required key/value equalities) and receive them either by
synchronous callback or through a bounded long-poll queue.

# Architecture

	┌──────────────────── MESSAGE BUS ─────────────────────────┐
	│                                                          │
	│  Publish(message)                                        │
	│     │  assign timestamp (strictly non-decreasing)        │
	│     ▼                                                    │
	│  History ring (bounded, RAM only)                        │
	│     │                                                    │
	│     ├─► push subscription ── callback after unlock       │
	│     │                                                    │
	│     └─► long-poll subscription ── bounded queue          │
	│              │   drop-oldest on overflow                 │
	│              ▼                                           │
	│         WaitAsync(filters, timeout) drains the queue     │
	│                                                          │
	└──────────────────────────────────────────────────────────┘

# Ordering

Timestamps are assigned under the bus lock and never decrease. Queue
enqueues happen under the same lock, so every subscriber matching two
messages observes them in publish order; within a subscription FIFO is
strict. Push callbacks are invoked after the lock is released, in the
order recorded while it was held.

# Failure Semantics

A full long-poll queue drops its oldest message and counts the overflow;
publishers never block. A panicking push callback is caught and logged and
never prevents dispatch to other subscribers. Long-poll subscriptions that
are not drained for the idle timeout are expired by a janitor loop.
*/
package bus
