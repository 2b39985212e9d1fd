/*
Package storage persists JSON documents under a typed directory tree.

Every document is addressed by a path of segments relative to a configured
root directory, with the final segment naming the file:

	Components/lamp.1/settings.json
	ComponentGroups/room.kitchen/Components/lamp.1/settings.json

The Store interface is deliberately small: read a document without treating
absence as an error, write a document atomically (temp file + rename),
enumerate immediate sub-directories by glob pattern, and delete a directory
recursively. The registries own the layout; the store only moves documents.

# Failure Semantics

I/O errors are surfaced to the caller wrapped with path context; callers
decide whether to log, roll back or propagate. A missing document on
TryRead is reported as (false, nil), never as an error.
*/
package storage
