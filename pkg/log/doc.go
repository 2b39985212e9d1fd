/*
Package log provides structured logging for Wirehome using zerolog.

The package owns a single global logger configured once at process start.
Subsystems derive child loggers carrying identifying fields:

	logger := log.WithComponent("message_bus")
	logger.Info().Int("subscriptions", n).Msg("subscription expired")

Console output (human-readable, RFC3339 timestamps) is the default; JSON
output is selected via Config for machine-ingested deployments.
*/
package log
