package notifications

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirehome/core/pkg/bus"
	"github.com/wirehome/core/pkg/diagnostics"
	"github.com/wirehome/core/pkg/system"
	"github.com/wirehome/core/pkg/types"
)

type eventRecorder struct {
	mu       sync.Mutex
	messages []types.BusMessage
}

func (r *eventRecorder) record(m types.BusMessage) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

func (r *eventRecorder) ofType(eventType string) []types.BusMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.BusMessage
	for _, m := range r.messages {
		if m.Type() == eventType {
			out = append(out, m)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *eventRecorder) {
	t.Helper()

	cancellation := system.NewCancellation()
	t.Cleanup(cancellation.Cancel)

	messageBus := bus.NewMessageBus(bus.Config{}, diagnostics.NewService(cancellation), cancellation)

	recorder := &eventRecorder{}
	_, err := messageBus.Subscribe(types.BusMessageFilter{}, recorder.record)
	require.NoError(t, err)

	s, err := NewService(t.TempDir(), messageBus, cancellation, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, recorder
}

func TestPublish_StoresAndEmits(t *testing.T) {
	s, recorder := newTestService(t)

	n, err := s.Publish(TypeWarning, "sensor offline", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, n.Uid)
	assert.Equal(t, TypeWarning, n.Type)

	list, err := s.GetNotifications()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sensor offline", list[0].Message)

	events := recorder.ofType(EventPublished)
	require.Len(t, events, 1)
	assert.Equal(t, n.Uid, events[0][KeyNotificationUid])
}

func TestPublish_DefaultTimeToLive(t *testing.T) {
	s, _ := newTestService(t)

	n, err := s.Publish(TypeInformation, "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeToLive, n.TimeToLive)
}

func TestPublish_ConfiguredDefaultTimeToLive(t *testing.T) {
	cancellation := system.NewCancellation()
	t.Cleanup(cancellation.Cancel)
	messageBus := bus.NewMessageBus(bus.Config{}, diagnostics.NewService(cancellation), cancellation)

	s, err := NewService(t.TempDir(), messageBus, cancellation, 30*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	n, err := s.Publish(TypeInformation, "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, n.TimeToLive)

	// An explicit ttl still wins over the configured default.
	n, err = s.Publish(TypeInformation, "hello", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, n.TimeToLive)
}

func TestGetNotifications_NewestFirst(t *testing.T) {
	s, _ := newTestService(t)

	first, err := s.Publish(TypeInformation, "first", time.Hour)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.Publish(TypeInformation, "second", time.Hour)
	require.NoError(t, err)

	list, err := s.GetNotifications()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Uid, list[0].Uid)
	assert.Equal(t, first.Uid, list[1].Uid)
}

func TestDeleteNotification(t *testing.T) {
	s, recorder := newTestService(t)

	n, err := s.Publish(TypeError, "automation failed", time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNotification(n.Uid))

	list, err := s.GetNotifications()
	require.NoError(t, err)
	assert.Empty(t, list)
	require.Len(t, recorder.ofType(EventDeleted), 1)

	assert.ErrorIs(t, s.DeleteNotification(n.Uid), types.ErrNotFound)
	assert.ErrorIs(t, s.DeleteNotification(""), types.ErrInvalidArgument)
}

func TestPurgeExpired(t *testing.T) {
	s, recorder := newTestService(t)

	expired, err := s.Publish(TypeInformation, "old", time.Millisecond)
	require.NoError(t, err)
	alive, err := s.Publish(TypeInformation, "fresh", time.Hour)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	s.purgeExpired()

	list, err := s.GetNotifications()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alive.Uid, list[0].Uid)

	events := recorder.ofType(EventExpired)
	require.Len(t, events, 1)
	assert.Equal(t, expired.Uid, events[0][KeyNotificationUid])
}

func TestClear(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Publish(TypeInformation, "a", time.Hour)
	require.NoError(t, err)
	_, err = s.Publish(TypeInformation, "b", time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.Clear())

	list, err := s.GetNotifications()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotificationsSurviveReopen(t *testing.T) {
	cancellation := system.NewCancellation()
	t.Cleanup(cancellation.Cancel)
	messageBus := bus.NewMessageBus(bus.Config{}, diagnostics.NewService(cancellation), cancellation)

	dir := t.TempDir()

	s, err := NewService(dir, messageBus, cancellation, 0)
	require.NoError(t, err)
	n, err := s.Publish(TypeWarning, "persists", time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewService(dir, messageBus, cancellation, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	list, err := reopened.GetNotifications()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.Uid, list[0].Uid)
}
