package storage

// Store defines the interface for the hub's JSON document storage.
// Implemented by DiskStore; tests may substitute an in-memory fake.
type Store interface {
	// TryRead deserializes the document at path into v. A missing document
	// returns (false, nil); malformed documents and I/O failures return an
	// error.
	TryRead(v any, path ...string) (bool, error)

	// Write serializes v as JSON to the document at path, creating parent
	// directories as needed. The write is atomic: a temp file in the target
	// directory is renamed over the destination.
	Write(v any, path ...string) error

	// EnumerateDirectories lists the names of immediate sub-directories of
	// path matching the glob pattern. A missing path yields an empty list.
	EnumerateDirectories(pattern string, path ...string) ([]string, error)

	// DeleteDirectory removes the directory at path recursively. Deleting a
	// missing directory is not an error.
	DeleteDirectory(path ...string) error

	// Root returns the absolute root directory of the store.
	Root() string
}
