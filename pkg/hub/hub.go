package hub

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wirehome/core/pkg/bus"
	"github.com/wirehome/core/pkg/components"
	"github.com/wirehome/core/pkg/config"
	"github.com/wirehome/core/pkg/diagnostics"
	"github.com/wirehome/core/pkg/globals"
	"github.com/wirehome/core/pkg/groups"
	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/notifications"
	"github.com/wirehome/core/pkg/storage"
	"github.com/wirehome/core/pkg/system"
)

// Hub is the assembled Wirehome core.
type Hub struct {
	Version string

	Store         storage.Store
	Cancellation  *system.Cancellation
	Status        *system.StatusService
	Diagnostics   *diagnostics.Service
	Bus           *bus.MessageBus
	Components    *components.Registry
	Groups        *groups.Registry
	Globals       *globals.Service
	Notifications *notifications.Service

	startedAt time.Time
	logger    zerolog.Logger
}

// New builds the hub's object graph from cfg. Nothing runs yet; call Start.
func New(cfg *config.Config, version string) (*Hub, error) {
	store, err := storage.NewDiskStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	cancellation := system.NewCancellation()
	status := system.NewStatusService()
	diag := diagnostics.NewService(cancellation)

	messageBus := bus.NewMessageBus(bus.Config{
		HistorySize:   cfg.Bus.HistorySize,
		QueueCapacity: cfg.Bus.QueueCapacity,
		IdleTimeout:   cfg.Bus.SubscriptionIdleTimeout,
	}, diag, cancellation)

	componentRegistry := components.NewRegistry(store, messageBus)
	groupRegistry := groups.NewRegistry(store, messageBus)
	globalVariables := globals.NewService(store, messageBus, cancellation)

	notificationService, err := notifications.NewService(store.Root(), messageBus, cancellation, cfg.Notifications.DefaultTimeToLive)
	if err != nil {
		return nil, err
	}

	return &Hub{
		Version:       version,
		Store:         store,
		Cancellation:  cancellation,
		Status:        status,
		Diagnostics:   diag,
		Bus:           messageBus,
		Components:    componentRegistry,
		Groups:        groupRegistry,
		Globals:       globalVariables,
		Notifications: notificationService,
		logger:        log.WithComponent("hub"),
	}, nil
}

// Start boots the persisted state and launches the background loops.
func (h *Hub) Start() error {
	h.startedAt = time.Now()

	if err := h.Globals.Initialize(); err != nil {
		return fmt.Errorf("failed to load global variables: %w", err)
	}
	if err := h.Components.Initialize(); err != nil {
		return fmt.Errorf("failed to load components: %w", err)
	}
	if err := h.Groups.Initialize(); err != nil {
		return fmt.Errorf("failed to load component groups: %w", err)
	}

	h.Diagnostics.Start()
	h.Bus.Start()
	if err := h.Notifications.Start(); err != nil {
		return fmt.Errorf("failed to start notification purge: %w", err)
	}
	if err := h.Globals.StartWatcher(); err != nil {
		h.logger.Warn().Err(err).Msg("global variables hot reload disabled")
	}

	h.registerStatusValues()

	h.logger.Info().
		Str("version", h.Version).
		Str("data_dir", h.Store.Root()).
		Int("components", h.Components.Count()).
		Int("component_groups", h.Groups.Count()).
		Msg("hub started")
	return nil
}

// Stop signals shutdown and closes the stores.
func (h *Hub) Stop() error {
	h.Cancellation.Cancel()
	err := h.Notifications.Close()
	h.logger.Info().Msg("hub stopped")
	return err
}

// Uptime returns the time since Start.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.startedAt)
}

func (h *Hub) registerStatusValues() {
	h.Status.Set("wirehome.version", h.Version)
	h.Status.Set("startup_timestamp", h.startedAt.Format(time.RFC3339))
	h.Status.SetProvider("up_time", func() any {
		return h.Uptime().String()
	})
	h.Status.SetProvider("message_bus.subscriptions_count", func() any {
		return h.Bus.SubscriptionCount()
	})
	h.Status.SetProvider("message_bus.history_count", func() any {
		return h.Bus.HistorySize()
	})
	h.Status.SetProvider("component_registry.count", func() any {
		return h.Components.Count()
	})
	h.Status.SetProvider("component_group_registry.count", func() any {
		return h.Groups.Count()
	})
	h.Status.SetProvider("diagnostics.operations_per_second", func() any {
		return h.Diagnostics.Rates()
	})
}
