/*
Package api exposes the hub over HTTP.

The server is a thin facade: every handler validates its input, calls one
registry or service operation and serializes the result. No domain logic
lives here. Routing uses chi; responses are JSON throughout.

# Error Mapping

	not found          → 404
	invalid argument   → 400
	shutdown observed  → 503
	anything else      → 500

The long-poll endpoint POST /api/v1/message_bus/wait_for holds the request
open until a matching bus message arrives or the timeout elapses, and
returns an empty array on timeout so polling clients can loop without
special-casing.
*/
package api
