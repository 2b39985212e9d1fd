/*
Package system provides the hub-wide status service and the shutdown signal.

StatusService holds named values or value providers describing the running
hub (version, uptime, bus statistics). Snapshot materializes providers into
a plain map for the API.

Cancellation is the single process-wide shutdown source. Background loops
observe its context between units of work; no loop is killed mid-write.
*/
package system
