package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirehome/core/pkg/system"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cancellation := system.NewCancellation()
	t.Cleanup(cancellation.Cancel)
	return NewService(cancellation)
}

func TestCreateOperationsPerSecondCounter_Deduplicates(t *testing.T) {
	s := newTestService(t)

	c1 := s.CreateOperationsPerSecondCounter("message_bus.messages_published")
	c2 := s.CreateOperationsPerSecondCounter("message_bus.messages_published")
	assert.Same(t, c1, c2)
	assert.Len(t, s.Counters(), 1)
}

func TestCounter_TickSnapshotsRate(t *testing.T) {
	s := newTestService(t)
	c := s.CreateOperationsPerSecondCounter("test.ops")

	for i := 0; i < 42; i++ {
		c.Increment()
	}
	assert.Equal(t, int64(42), c.Count())
	assert.Equal(t, int64(0), c.Rate())

	s.tick()

	assert.Equal(t, int64(0), c.Count())
	assert.Equal(t, int64(42), c.Rate())

	// An idle second resets the rate to zero.
	s.tick()
	assert.Equal(t, int64(0), c.Rate())
}

func TestRates_SnapshotsAllCounters(t *testing.T) {
	s := newTestService(t)

	a := s.CreateOperationsPerSecondCounter("a")
	s.CreateOperationsPerSecondCounter("b")

	a.Increment()
	a.Increment()
	s.tick()

	rates := s.Rates()
	require.Len(t, rates, 2)
	assert.Equal(t, int64(2), rates["a"])
	assert.Equal(t, int64(0), rates["b"])
}
