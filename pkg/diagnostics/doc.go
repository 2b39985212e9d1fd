/*
Package diagnostics provides per-metric operations-per-second accounting.

Subsystems create named counters and increment them on the hot path with a
single atomic add. One background ticker fires every second, snapshots each
counter's current count into its last-observed rate, resets the count and
mirrors the rate into the Prometheus gauge vec.

	counter := service.CreateOperationsPerSecondCounter("message_bus.messages_published")
	counter.Increment()

The ticker observes the hub-wide cancellation and exits cleanly at
shutdown; transient errors are logged and the loop continues.
*/
package diagnostics
