package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestDiskStore_WriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	in := map[string]any{"brightness": 50, "color": "warm"}
	require.NoError(t, store.Write(in, "Components", "lamp.1", "settings.json"))

	out := make(map[string]any)
	found, err := store.TryRead(&out, "Components", "lamp.1", "settings.json")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, float64(50), out["brightness"])
	assert.Equal(t, "warm", out["color"])
}

func TestDiskStore_TryReadMissing(t *testing.T) {
	store := newTestStore(t)

	out := make(map[string]any)
	found, err := store.TryRead(&out, "Components", "nope", "settings.json")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDiskStore_TryReadMalformed(t *testing.T) {
	store := newTestStore(t)

	dir := filepath.Join(store.Root(), "Components", "bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{not json"), 0o644))

	out := make(map[string]any)
	_, err := store.TryRead(&out, "Components", "bad", "settings.json")
	assert.Error(t, err)
}

func TestDiskStore_WriteLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(map[string]any{"a": 1}, "Components", "lamp.1", "settings.json"))

	entries, err := os.ReadDir(filepath.Join(store.Root(), "Components", "lamp.1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.json", entries[0].Name())
}

func TestDiskStore_EnumerateDirectories(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(map[string]any{}, "Components", "lamp.1", "configuration.json"))
	require.NoError(t, store.Write(map[string]any{}, "Components", "lamp.2", "configuration.json"))
	require.NoError(t, store.Write(map[string]any{}, "Components", "sensor.1", "configuration.json"))

	all, err := store.EnumerateDirectories("*", "Components")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lamp.1", "lamp.2", "sensor.1"}, all)

	lamps, err := store.EnumerateDirectories("lamp.*", "Components")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lamp.1", "lamp.2"}, lamps)

	// Files are never reported.
	none, err := store.EnumerateDirectories("*", "Components", "lamp.1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDiskStore_EnumerateMissingDirectory(t *testing.T) {
	store := newTestStore(t)

	names, err := store.EnumerateDirectories("*", "DoesNotExist")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDiskStore_DeleteDirectory(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(map[string]any{}, "Components", "lamp.1", "configuration.json"))
	require.NoError(t, store.DeleteDirectory("Components", "lamp.1"))

	found, err := store.TryRead(&map[string]any{}, "Components", "lamp.1", "configuration.json")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteDirectory("Components", "lamp.1"))
}
