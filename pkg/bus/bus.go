package bus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wirehome/core/pkg/diagnostics"
	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/metrics"
	"github.com/wirehome/core/pkg/system"
	"github.com/wirehome/core/pkg/types"
)

// Defaults for the bus tunables. History size, queue capacity and idle
// timeout are overridable through Config; DefaultWaitTimeout applies to
// WaitAsync calls made with a non-positive timeout.
const (
	DefaultHistorySize   = 2048
	DefaultQueueCapacity = 256
	DefaultWaitTimeout   = 5 * time.Second
	DefaultIdleTimeout   = 5 * time.Minute

	defaultJanitorInterval = 1 * time.Minute

	counterMessagesPublished = "message_bus.messages_published"
	counterMessagesDropped   = "message_bus.messages_dropped"
)

// Config holds the bus tunables.
type Config struct {
	HistorySize   int
	QueueCapacity int

	// IdleTimeout expires long-poll subscriptions that no waiter has
	// drained recently. Ephemeral WaitAsync subscriptions are deleted on
	// return; the janitor expires one only if its wait outlasts the idle
	// timeout, which ends the wait early with whatever was queued.
	IdleTimeout time.Duration
}

// MessageBus routes messages between the hub's subsystems.
type MessageBus struct {
	mu            sync.Mutex
	history       *historyRing
	subscriptions map[string]*subscription
	lastTimestamp int64

	queueCapacity int
	idleTimeout   time.Duration

	cancellation *system.Cancellation
	logger       zerolog.Logger

	publishedCounter *diagnostics.OperationsPerSecondCounter
	droppedCounter   *diagnostics.OperationsPerSecondCounter
}

// NewMessageBus creates a bus with the given tunables. Zero config fields
// fall back to the package defaults.
func NewMessageBus(cfg Config, diag *diagnostics.Service, cancellation *system.Cancellation) *MessageBus {
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	queueCapacity := cfg.QueueCapacity
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	return &MessageBus{
		history:          newHistoryRing(historySize),
		subscriptions:    make(map[string]*subscription),
		queueCapacity:    queueCapacity,
		idleTimeout:      idleTimeout,
		cancellation:     cancellation,
		logger:           log.WithComponent("message_bus"),
		publishedCounter: diag.CreateOperationsPerSecondCounter(counterMessagesPublished),
		droppedCounter:   diag.CreateOperationsPerSecondCounter(counterMessagesDropped),
	}
}

// Start launches the subscription janitor.
func (b *MessageBus) Start() {
	go b.runJanitor()
}

// Publish routes message to every matching subscription. The message is
// stamped with a strictly non-decreasing timestamp, appended to the history
// ring and enqueued into long-poll queues under the bus lock; push
// callbacks run after the lock is released, in the order recorded while it
// was held.
func (b *MessageBus) Publish(message types.BusMessage) {
	m := message.Clone()

	b.mu.Lock()

	ts := time.Now().UnixMilli()
	if ts <= b.lastTimestamp {
		ts = b.lastTimestamp + 1
	}
	b.lastTimestamp = ts
	if _, ok := m[types.MessageKeyTimestamp]; !ok {
		m[types.MessageKeyTimestamp] = ts
	}

	b.history.append(m)

	var callbacks []PushCallback
	for _, sub := range b.subscriptions {
		if !sub.matches(m) {
			continue
		}
		if sub.isLongPoll() {
			before := sub.queue.overflowCount()
			sub.queue.enqueue(m)
			if dropped := sub.queue.overflowCount() - before; dropped > 0 {
				for i := int64(0); i < dropped; i++ {
					b.droppedCounter.Increment()
				}
			}
		} else {
			callbacks = append(callbacks, sub.callback)
		}
	}

	b.mu.Unlock()

	b.publishedCounter.Increment()
	metrics.BusMessagesPublished.Inc()

	for _, cb := range callbacks {
		b.invoke(cb, m)
	}
}

// invoke runs one push callback, isolating the bus from subscriber panics.
func (b *MessageBus) invoke(cb PushCallback, m types.BusMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("message_type", m.Type()).
				Any("panic", r).
				Msg("subscriber callback panicked")
		}
	}()
	cb(m)
}

// Subscribe registers a push subscription. The callback runs synchronously
// on the publisher's goroutine for every message matching the filter.
func (b *MessageBus) Subscribe(filter types.BusMessageFilter, callback PushCallback) (string, error) {
	if callback == nil {
		return "", types.InvalidUidError("callback")
	}

	sub := &subscription{
		uid:      uuid.NewString(),
		filters:  []types.BusMessageFilter{filter},
		callback: callback,
	}
	sub.touch(time.Now())

	b.mu.Lock()
	b.subscriptions[sub.uid] = sub
	count := len(b.subscriptions)
	b.mu.Unlock()

	metrics.BusSubscriptions.Set(float64(count))
	return sub.uid, nil
}

// SubscribeQueue registers a long-poll subscription with a fresh bounded
// queue. Messages published before this call are never delivered to it.
func (b *MessageBus) SubscribeQueue(filters []types.BusMessageFilter, capacity int) (string, error) {
	if capacity <= 0 {
		capacity = b.queueCapacity
	}

	sub := &subscription{
		uid:     uuid.NewString(),
		filters: filters,
		queue:   newMessageQueue(capacity),
	}
	sub.touch(time.Now())

	b.mu.Lock()
	b.subscriptions[sub.uid] = sub
	count := len(b.subscriptions)
	b.mu.Unlock()

	metrics.BusSubscriptions.Set(float64(count))
	return sub.uid, nil
}

// Unsubscribe removes the subscription. A waiter pending on a long-poll
// subscription is woken and returns whatever is queued, possibly nothing.
func (b *MessageBus) Unsubscribe(uid string) {
	b.mu.Lock()
	sub, ok := b.subscriptions[uid]
	if ok {
		delete(b.subscriptions, uid)
	}
	count := len(b.subscriptions)
	b.mu.Unlock()

	metrics.BusSubscriptions.Set(float64(count))

	if ok && sub.isLongPoll() {
		sub.queue.close()
	}
}

// DrainQueue removes and returns the pending messages of a long-poll
// subscription.
func (b *MessageBus) DrainQueue(uid string) ([]types.BusMessage, error) {
	b.mu.Lock()
	sub, ok := b.subscriptions[uid]
	b.mu.Unlock()

	if !ok || !sub.isLongPoll() {
		return nil, types.NotFoundError("subscription", uid)
	}
	sub.touch(time.Now())
	return sub.queue.drain(), nil
}

// WaitAsync blocks until a message matching any of filters arrives, the
// timeout elapses, or ctx or the hub shutdown fires. It creates an
// ephemeral long-poll subscription, optionally seeded from the history ring
// with messages newer than since (pass 0 to skip seeding), and deletes it
// on return. The returned slice is empty, never nil, on timeout.
func (b *MessageBus) WaitAsync(ctx context.Context, filters []types.BusMessageFilter, since int64, timeout time.Duration) ([]types.BusMessage, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	sub := &subscription{
		uid:     uuid.NewString(),
		filters: filters,
		queue:   newMessageQueue(b.queueCapacity),
	}
	sub.touch(time.Now())

	// Seeding and registration happen under one critical section so no
	// message can slip between the history scan and the live dispatch.
	b.mu.Lock()
	if since > 0 {
		for _, m := range b.history.collect(since, filters) {
			sub.queue.enqueue(m)
		}
	}
	b.subscriptions[sub.uid] = sub
	b.mu.Unlock()

	defer b.Unsubscribe(sub.uid)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if msgs := sub.queue.drain(); len(msgs) > 0 {
			return msgs, nil
		}
		if sub.queue.isClosed() {
			return []types.BusMessage{}, nil
		}

		select {
		case <-sub.queue.signal:
		case <-timer.C:
			return append([]types.BusMessage{}, sub.queue.drain()...), nil
		case <-ctx.Done():
			return append([]types.BusMessage{}, sub.queue.drain()...), nil
		case <-b.cancellation.Done():
			return append([]types.BusMessage{}, sub.queue.drain()...), nil
		}
	}
}

// History returns, oldest first, the retained messages newer than since
// matching any of filters.
func (b *MessageBus) History(since int64, filters []types.BusMessageFilter) []types.BusMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.collect(since, filters)
}

// Subscriptions returns a diagnostic snapshot of the subscription table,
// sorted by uid.
func (b *MessageBus) Subscriptions() []SubscriptionInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]SubscriptionInfo, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		info := SubscriptionInfo{
			Uid:      sub.uid,
			Filters:  sub.filters,
			LongPoll: sub.isLongPoll(),
		}
		if sub.isLongPoll() {
			info.QueuedCount = sub.queue.size()
			info.OverflowCount = sub.queue.overflowCount()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Uid < out[j].Uid })
	return out
}

// SubscriptionCount returns the number of active subscriptions.
func (b *MessageBus) SubscriptionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// HistorySize returns the number of retained messages.
func (b *MessageBus) HistorySize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.size()
}

// OverflowCount returns the dropped-message count of one long-poll
// subscription.
func (b *MessageBus) OverflowCount(uid string) (int64, error) {
	b.mu.Lock()
	sub, ok := b.subscriptions[uid]
	b.mu.Unlock()

	if !ok || !sub.isLongPoll() {
		return 0, types.NotFoundError("subscription", uid)
	}
	return sub.queue.overflowCount(), nil
}

// runJanitor expires long-poll subscriptions nobody drained within the idle
// timeout. Push subscriptions live until unsubscribed.
func (b *MessageBus) runJanitor() {
	ticker := time.NewTicker(defaultJanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.expireIdleSubscriptions(time.Now())
		case <-b.cancellation.Done():
			return
		}
	}
}

func (b *MessageBus) expireIdleSubscriptions(now time.Time) {
	var expired []*subscription

	b.mu.Lock()
	for uid, sub := range b.subscriptions {
		if !sub.isLongPoll() {
			continue
		}
		if now.Sub(sub.idleSince()) > b.idleTimeout {
			delete(b.subscriptions, uid)
			expired = append(expired, sub)
		}
	}
	count := len(b.subscriptions)
	b.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	metrics.BusSubscriptions.Set(float64(count))
	for _, sub := range expired {
		sub.queue.close()
		b.logger.Debug().Str("subscription_uid", sub.uid).Msg("expired idle long-poll subscription")
	}
}
