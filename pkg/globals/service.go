package globals

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/wirehome/core/pkg/bus"
	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/storage"
	"github.com/wirehome/core/pkg/system"
	"github.com/wirehome/core/pkg/types"
)

// Storage layout constants.
const (
	CategoryGlobalVariables = "GlobalVariables"
	FilenameGlobalVariables = "global_variables.json"
)

// Bus event types published by the global variables service.
const (
	EventValueSet     = "global_variables_service.event.value_set"
	EventValueDeleted = "global_variables_service.event.value_deleted"
	EventReloaded     = "global_variables_service.event.reloaded"
)

// Payload keys.
const (
	KeyUid      = "uid"
	KeyOldValue = "old_value"
	KeyNewValue = "new_value"
)

// Service owns the persisted global variables document.
type Service struct {
	mu     sync.Mutex
	values map[string]any

	store        storage.Store
	bus          *bus.MessageBus
	cancellation *system.Cancellation
	logger       zerolog.Logger
}

// NewService creates the global variables service.
func NewService(store storage.Store, messageBus *bus.MessageBus, cancellation *system.Cancellation) *Service {
	return &Service{
		values:       make(map[string]any),
		store:        store,
		bus:          messageBus,
		cancellation: cancellation,
		logger:       log.WithComponent("global_variables_service"),
	}
}

// Initialize loads the persisted document.
func (s *Service) Initialize() error {
	values := make(map[string]any)
	if _, err := s.store.TryRead(&values, CategoryGlobalVariables, FilenameGlobalVariables); err != nil {
		return err
	}

	s.mu.Lock()
	s.values = types.NormalizeValueMap(values)
	s.mu.Unlock()
	return nil
}

// GetValues returns a snapshot of all variables.
func (s *Service) GetValues() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// GetValue returns the variable value, or defaultValue when absent.
func (s *Service) GetValue(uid string, defaultValue any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[uid]
	if !ok {
		return defaultValue
	}
	return v
}

// SetValue stores the variable. Equal-value writes are coalesced; a change
// persists the document and publishes value_set.
func (s *Service) SetValue(uid string, value any) error {
	if uid == "" {
		return types.InvalidUidError("variable uid")
	}

	value = types.NormalizeValue(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	oldValue, hadValue := s.values[uid]
	if types.ValuesEqual(oldValue, value) {
		return nil
	}
	s.values[uid] = value

	if err := s.store.Write(s.values, CategoryGlobalVariables, FilenameGlobalVariables); err != nil {
		if hadValue {
			s.values[uid] = oldValue
		} else {
			delete(s.values, uid)
		}
		return err
	}

	s.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventValueSet,
		KeyUid:               uid,
		KeyOldValue:          oldValue,
		KeyNewValue:          value,
	})
	return nil
}

// DeleteValue removes the variable; a no-op when absent.
func (s *Service) DeleteValue(uid string) error {
	if uid == "" {
		return types.InvalidUidError("variable uid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldValue, hadValue := s.values[uid]
	if !hadValue {
		return nil
	}
	delete(s.values, uid)

	if err := s.store.Write(s.values, CategoryGlobalVariables, FilenameGlobalVariables); err != nil {
		s.values[uid] = oldValue
		return err
	}

	s.bus.Publish(types.BusMessage{
		types.MessageKeyType: EventValueDeleted,
		KeyUid:               uid,
		KeyOldValue:          oldValue,
	})
	return nil
}

// StartWatcher watches the persisted document for external edits and
// reloads on change. Watcher failures disable hot reload but never take
// the hub down.
func (s *Service) StartWatcher() error {
	dir := filepath.Join(s.store.Root(), CategoryGlobalVariables)

	// The directory must exist before it can be watched; persist the
	// current (possibly empty) document to create it.
	s.mu.Lock()
	err := s.store.Write(s.values, CategoryGlobalVariables, FilenameGlobalVariables)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go s.watch(watcher)
	return nil
}

func (s *Service) watch(watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != FilenameGlobalVariables {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("global variables watcher error")
		case <-s.cancellation.Done():
			return
		}
	}
}

// reload re-reads the document and swaps it in when it differs from the
// in-memory state. Writes performed by this service reload to an identical
// map and are ignored.
func (s *Service) reload() {
	values := make(map[string]any)
	found, err := s.store.TryRead(&values, CategoryGlobalVariables, FilenameGlobalVariables)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to reload global variables")
		return
	}
	if !found {
		return
	}
	values = types.NormalizeValueMap(values)

	s.mu.Lock()
	changed := !types.ValuesEqual(s.values, values)
	if changed {
		s.values = values
	}
	s.mu.Unlock()

	if changed {
		s.logger.Info().Msg("global variables reloaded from disk")
		s.bus.Publish(types.BusMessage{types.MessageKeyType: EventReloaded})
	}
}
