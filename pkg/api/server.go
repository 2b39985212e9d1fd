package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wirehome/core/pkg/hub"
	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/metrics"
)

// Server serves the hub's HTTP API.
type Server struct {
	hub    *hub.Hub
	http   *http.Server
	logger zerolog.Logger

	// defaultWaitTimeout applies to wait_for requests without an explicit
	// timeout query parameter.
	defaultWaitTimeout time.Duration
}

// NewServer creates the API server for h.
func NewServer(h *hub.Hub, defaultWaitTimeout time.Duration) *Server {
	if defaultWaitTimeout <= 0 {
		defaultWaitTimeout = 5 * time.Second
	}

	s := &Server{
		hub:                h,
		logger:             log.WithComponent("http_api"),
		defaultWaitTimeout: defaultWaitTimeout,
	}

	r := chi.NewRouter()
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/areas", s.handleGetAreas)

		r.Route("/components", func(r chi.Router) {
			r.Get("/", s.handleGetComponents)
			r.Route("/{componentUid}", func(r chi.Router) {
				r.Get("/", s.handleGetComponent)
				r.Post("/", s.handleRegisterComponent)
				r.Delete("/", s.handleDeleteComponent)
				r.Get("/settings/{settingUid}", s.handleGetComponentSetting)
				r.Post("/settings/{settingUid}", s.handleSetComponentSetting)
				r.Delete("/settings/{settingUid}", s.handleRemoveComponentSetting)
				r.Get("/status/{statusUid}", s.handleGetComponentStatus)
				r.Post("/status/{statusUid}", s.handleSetComponentStatus)
				r.Delete("/status/{statusUid}", s.handleRemoveComponentStatus)
			})
		})

		r.Route("/component_groups", func(r chi.Router) {
			r.Get("/", s.handleGetComponentGroups)
			r.Route("/{groupUid}", func(r chi.Router) {
				r.Get("/", s.handleGetComponentGroup)
				r.Post("/", s.handleRegisterComponentGroup)
				r.Delete("/", s.handleDeleteComponentGroup)
				r.Get("/settings/{settingUid}", s.handleGetGroupSetting)
				r.Post("/settings/{settingUid}", s.handleSetGroupSetting)
				r.Delete("/settings/{settingUid}", s.handleRemoveGroupSetting)

				r.Post("/components/{componentUid}", s.handleAssignComponent)
				r.Delete("/components/{componentUid}", s.handleUnassignComponent)
				r.Get("/components/{componentUid}/settings/{settingUid}", s.handleGetAssociationSetting)
				r.Post("/components/{componentUid}/settings/{settingUid}", s.handleSetAssociationSetting)
				r.Delete("/components/{componentUid}/settings/{settingUid}", s.handleRemoveAssociationSetting)

				r.Post("/macros/{macroUid}", s.handleAssignMacro)
				r.Delete("/macros/{macroUid}", s.handleUnassignMacro)
			})
		})

		r.Route("/global_variables", func(r chi.Router) {
			r.Get("/", s.handleGetGlobalVariables)
			r.Get("/{variableUid}", s.handleGetGlobalVariable)
			r.Post("/{variableUid}", s.handleSetGlobalVariable)
			r.Delete("/{variableUid}", s.handleDeleteGlobalVariable)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleGetNotifications)
			r.Post("/", s.handlePublishNotification)
			r.Delete("/{notificationUid}", s.handleDeleteNotification)
		})

		r.Route("/message_bus", func(r chi.Router) {
			r.Post("/wait_for", s.handleWaitFor)
			r.Get("/history", s.handleGetHistory)
			r.Get("/subscriptions", s.handleGetSubscriptions)
		})

		r.Get("/system/status", s.handleGetSystemStatus)
	})

	s.http = &http.Server{Handler: r}
	return s
}

// Start serves on addr and blocks until Stop or a listener error.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	s.logger.Info().Str("addr", addr).Msg("http api listening")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
