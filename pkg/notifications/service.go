package notifications

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/wirehome/core/pkg/bus"
	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/metrics"
	"github.com/wirehome/core/pkg/system"
	"github.com/wirehome/core/pkg/types"
)

// Notification types.
const (
	TypeInformation = "information"
	TypeWarning     = "warning"
	TypeError       = "error"
)

// Bus event types published by the notification manager.
const (
	EventPublished = "notification_manager.event.published"
	EventDeleted   = "notification_manager.event.deleted"
	EventExpired   = "notification_manager.event.expired"
)

// Payload keys.
const (
	KeyNotificationUid = "notification_uid"
)

// DefaultTimeToLive applies when a notification is published without one
// and no default was configured.
const DefaultTimeToLive = 24 * time.Hour

var bucketNotifications = []byte("notifications")

// Notification is one entry in the queue.
type Notification struct {
	Uid        string        `json:"uid"`
	Type       string        `json:"type"`
	Message    string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
	TimeToLive time.Duration `json:"time_to_live"`
}

// IsExpired reports whether the notification's time-to-live has elapsed at
// now.
func (n *Notification) IsExpired(now time.Time) bool {
	return now.After(n.Timestamp.Add(n.TimeToLive))
}

// Service owns the notification queue.
type Service struct {
	db           *bolt.DB
	bus          *bus.MessageBus
	cancellation *system.Cancellation
	cron         *cron.Cron
	defaultTTL   time.Duration
	logger       zerolog.Logger
}

// NewService opens the notification database in dataDir. defaultTTL applies
// to notifications published without one; a zero value falls back to
// DefaultTimeToLive.
func NewService(dataDir string, messageBus *bus.MessageBus, cancellation *system.Cancellation, defaultTTL time.Duration) (*Service, error) {
	dbPath := filepath.Join(dataDir, "notifications.db")

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open notification database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNotifications)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create notification bucket: %w", err)
	}

	if defaultTTL <= 0 {
		defaultTTL = DefaultTimeToLive
	}

	s := &Service{
		db:           db,
		bus:          messageBus,
		cancellation: cancellation,
		cron:         cron.New(),
		defaultTTL:   defaultTTL,
		logger:       log.WithComponent("notification_manager"),
	}
	s.updateGauge()
	return s, nil
}

// Start schedules the expiry purge and watches the shutdown signal.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.purgeExpired); err != nil {
		return err
	}
	s.cron.Start()

	go func() {
		<-s.cancellation.Done()
		s.cron.Stop()
	}()
	return nil
}

// Close stops the purge job and closes the database.
func (s *Service) Close() error {
	s.cron.Stop()
	return s.db.Close()
}

// Publish stores a new notification and emits the published event. A zero
// ttl falls back to the service's configured default.
func (s *Service) Publish(notificationType, message string, ttl time.Duration) (*Notification, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	n := &Notification{
		Uid:        uuid.NewString(),
		Type:       notificationType,
		Message:    message,
		Timestamp:  time.Now(),
		TimeToLive: ttl,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketNotifications).Put([]byte(n.Uid), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	s.updateGauge()
	s.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventPublished,
		KeyNotificationUid:   n.Uid,
		"notification_type":  n.Type,
		"message":            n.Message,
	})
	return n, nil
}

// GetNotifications returns all notifications, newest first.
func (s *Service) GetNotifications() ([]*Notification, error) {
	var out []*Notification

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotifications).ForEach(func(k, v []byte) error {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, &n)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// DeleteNotification removes the notification and emits the deleted event.
// Deleting an unknown uid is a not-found error.
func (s *Service) DeleteNotification(uid string) error {
	if uid == "" {
		return types.InvalidUidError("notification uid")
	}

	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		if b.Get([]byte(uid)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(uid))
	})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !found {
		return types.NotFoundError("notification", uid)
	}

	s.updateGauge()
	s.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventDeleted,
		KeyNotificationUid:   uid,
	})
	return nil
}

// Clear removes all notifications without emitting per-entry events.
func (s *Service) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketNotifications); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketNotifications)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	s.updateGauge()
	return nil
}

// purgeExpired removes every notification whose time-to-live elapsed and
// emits an expired event per removal.
func (s *Service) purgeExpired() {
	now := time.Now()
	var expired []string

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				// A corrupt entry can never expire on its own; drop it.
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if n.IsExpired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			expired = append(expired, string(k))
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to purge expired notifications")
		return
	}

	if len(expired) == 0 {
		return
	}

	s.updateGauge()
	for _, uid := range expired {
		s.bus.Publish(types.BusMessage{
			types.MessageKeyType: EventExpired,
			KeyNotificationUid:   uid,
		})
	}
	s.logger.Debug().Int("count", len(expired)).Msg("purged expired notifications")
}

func (s *Service) updateGauge() {
	count := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketNotifications).Stats().KeyN
		return nil
	})
	metrics.NotificationsTotal.Set(float64(count))
}
