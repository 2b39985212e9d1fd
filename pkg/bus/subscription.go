package bus

import (
	"sync"
	"time"

	"github.com/wirehome/core/pkg/types"
)

// PushCallback is invoked synchronously on the publisher's goroutine for
// every matching message of a push subscription.
type PushCallback func(message types.BusMessage)

// subscription is an entry in the bus subscription table. Exactly one of
// callback and queue is set.
type subscription struct {
	uid     string
	filters []types.BusMessageFilter

	callback PushCallback
	queue    *messageQueue

	mu         sync.Mutex
	lastAccess time.Time
}

func (s *subscription) matches(m types.BusMessage) bool {
	return matchesAny(m, s.filters)
}

func (s *subscription) isLongPoll() bool {
	return s.queue != nil
}

func (s *subscription) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *subscription) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// SubscriptionInfo is a diagnostic snapshot of one subscription.
type SubscriptionInfo struct {
	Uid           string                   `json:"uid"`
	Filters       []types.BusMessageFilter `json:"filters"`
	LongPoll      bool                     `json:"long_poll"`
	QueuedCount   int                      `json:"queued_count,omitempty"`
	OverflowCount int64                    `json:"overflow_count,omitempty"`
}
