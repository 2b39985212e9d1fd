/*
Package metrics defines Wirehome's Prometheus collectors.

All collectors are package-level and registered in init, so any subsystem
can update them without plumbing a registry handle. Handler exposes the
standard promhttp endpoint mounted by the API server at /metrics.

The diagnostics service mirrors its per-second rates into the
OperationsPerSecond gauge vec each tick, so the same counters that drive
the hub's internal system status are scrapeable.
*/
package metrics
