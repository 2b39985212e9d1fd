package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wirehome/core/pkg/notifications"
	"github.com/wirehome/core/pkg/types"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"version": s.hub.Version,
		"up_time": s.hub.Uptime().String(),
	})
}

// Areas are modeled by component groups; the endpoint exists for polling
// clients that render rooms.
func (s *Server) handleGetAreas(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Groups.GetComponentGroups())
}

func (s *Server) handleGetComponents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Components.GetComponents())
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	c, err := s.hub.Components.GetComponent(chi.URLParam(r, "componentUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, c)
}

func (s *Server) handleRegisterComponent(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "componentUid")

	var configuration map[string]any
	if err := json.NewDecoder(r.Body).Decode(&configuration); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, fmt.Errorf("%w: malformed configuration", types.ErrInvalidArgument))
		return
	}

	if err := s.hub.Components.RegisterComponent(uid, configuration); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.hub.Components.GetComponent(uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, c)
}

func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Components.DeleteComponent(chi.URLParam(r, "componentUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetComponentSetting(w http.ResponseWriter, r *http.Request) {
	value, err := s.hub.Components.GetSetting(chi.URLParam(r, "componentUid"), chi.URLParam(r, "settingUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, value)
}

func (s *Server) handleSetComponentSetting(w http.ResponseWriter, r *http.Request) {
	value, err := readJSONValue(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.hub.Components.SetSetting(chi.URLParam(r, "componentUid"), chi.URLParam(r, "settingUid"), value); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveComponentSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Components.RemoveSetting(chi.URLParam(r, "componentUid"), chi.URLParam(r, "settingUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetComponentStatus(w http.ResponseWriter, r *http.Request) {
	value, err := s.hub.Components.GetStatus(chi.URLParam(r, "componentUid"), chi.URLParam(r, "statusUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, value)
}

func (s *Server) handleSetComponentStatus(w http.ResponseWriter, r *http.Request) {
	value, err := readJSONValue(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.hub.Components.SetStatus(chi.URLParam(r, "componentUid"), chi.URLParam(r, "statusUid"), value); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveComponentStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Components.RemoveStatus(chi.URLParam(r, "componentUid"), chi.URLParam(r, "statusUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetComponentGroups(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Groups.GetComponentGroups())
}

func (s *Server) handleGetComponentGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.hub.Groups.GetComponentGroup(chi.URLParam(r, "groupUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, g)
}

func (s *Server) handleRegisterComponentGroup(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "groupUid")
	if err := s.hub.Groups.RegisterComponentGroup(uid); err != nil {
		s.writeError(w, err)
		return
	}
	g, err := s.hub.Groups.GetComponentGroup(uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, g)
}

func (s *Server) handleDeleteComponentGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Groups.DeleteComponentGroup(chi.URLParam(r, "groupUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGroupSetting(w http.ResponseWriter, r *http.Request) {
	value, err := s.hub.Groups.GetComponentGroupSetting(chi.URLParam(r, "groupUid"), chi.URLParam(r, "settingUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, value)
}

func (s *Server) handleSetGroupSetting(w http.ResponseWriter, r *http.Request) {
	value, err := readJSONValue(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.hub.Groups.SetComponentGroupSetting(chi.URLParam(r, "groupUid"), chi.URLParam(r, "settingUid"), value); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveGroupSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Groups.RemoveComponentGroupSetting(chi.URLParam(r, "groupUid"), chi.URLParam(r, "settingUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Groups.AssignComponent(chi.URLParam(r, "groupUid"), chi.URLParam(r, "componentUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Groups.UnassignComponent(chi.URLParam(r, "groupUid"), chi.URLParam(r, "componentUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Groups.AssignMacro(chi.URLParam(r, "groupUid"), chi.URLParam(r, "macroUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Groups.UnassignMacro(chi.URLParam(r, "groupUid"), chi.URLParam(r, "macroUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetAssociationSetting(w http.ResponseWriter, r *http.Request) {
	value, err := s.hub.Groups.GetComponentAssociationSetting(
		chi.URLParam(r, "groupUid"), chi.URLParam(r, "componentUid"), chi.URLParam(r, "settingUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, value)
}

func (s *Server) handleSetAssociationSetting(w http.ResponseWriter, r *http.Request) {
	value, err := readJSONValue(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.hub.Groups.SetComponentAssociationSetting(
		chi.URLParam(r, "groupUid"), chi.URLParam(r, "componentUid"), chi.URLParam(r, "settingUid"), value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveAssociationSetting(w http.ResponseWriter, r *http.Request) {
	err := s.hub.Groups.RemoveComponentAssociationSetting(
		chi.URLParam(r, "groupUid"), chi.URLParam(r, "componentUid"), chi.URLParam(r, "settingUid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGlobalVariables(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Globals.GetValues())
}

func (s *Server) handleGetGlobalVariable(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Globals.GetValue(chi.URLParam(r, "variableUid"), nil))
}

func (s *Server) handleSetGlobalVariable(w http.ResponseWriter, r *http.Request) {
	value, err := readJSONValue(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.hub.Globals.SetValue(chi.URLParam(r, "variableUid"), value); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGlobalVariable(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Globals.DeleteValue(chi.URLParam(r, "variableUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.hub.Notifications.GetNotifications()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*notifications.Notification{}
	}
	s.writeJSON(w, list)
}

type publishNotificationRequest struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	TimeToLive string `json:"time_to_live,omitempty"`
}

func (s *Server) handlePublishNotification(w http.ResponseWriter, r *http.Request) {
	var req publishNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed notification", types.ErrInvalidArgument))
		return
	}

	var ttl time.Duration
	if req.TimeToLive != "" {
		var err error
		ttl, err = time.ParseDuration(req.TimeToLive)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: malformed time_to_live", types.ErrInvalidArgument))
			return
		}
	}

	n, err := s.hub.Notifications.Publish(req.Type, req.Message, ttl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Notifications.DeleteNotification(chi.URLParam(r, "notificationUid")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWaitFor(w http.ResponseWriter, r *http.Request) {
	var filters []types.BusMessageFilter
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		s.writeError(w, fmt.Errorf("%w: body must be an array of filter objects", types.ErrInvalidArgument))
		return
	}

	timeout := s.defaultWaitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds <= 0 {
			s.writeError(w, fmt.Errorf("%w: malformed timeout", types.ErrInvalidArgument))
			return
		}
		timeout = time.Duration(seconds * float64(time.Second))
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: malformed since", types.ErrInvalidArgument))
			return
		}
		since = v
	}

	messages, err := s.hub.Bus.WaitAsync(r.Context(), filters, since, timeout)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []types.BusMessage{}
	}
	s.writeJSON(w, messages)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: malformed since", types.ErrInvalidArgument))
			return
		}
		since = v
	}

	messages := s.hub.Bus.History(since, nil)
	if messages == nil {
		messages = []types.BusMessage{}
	}
	s.writeJSON(w, messages)
}

func (s *Server) handleGetSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Bus.Subscriptions())
}

func (s *Server) handleGetSystemStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Status.Snapshot())
}
