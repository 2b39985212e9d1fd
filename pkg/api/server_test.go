package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirehome/core/pkg/config"
	"github.com/wirehome/core/pkg/hub"
	"github.com/wirehome/core/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *hub.Hub) {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	h, err := hub.New(cfg, "test")
	require.NoError(t, err)
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Stop() })

	return NewServer(h, cfg.Bus.DefaultWaitTimeout), h
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestComponentLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/components/lamp.1", `{"driver":"hue"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/components", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "lamp.1", list[0]["uid"])

	rec = doRequest(t, s, http.MethodPost, "/api/v1/components/lamp.1/settings/brightness", `50`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/components/lamp.1/settings/brightness", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50\n", rec.Body.String())

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/components/lamp.1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/components/lamp.1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)

	// Unknown component → 404.
	rec := doRequest(t, s, http.MethodGet, "/api/v1/components/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed wait_for body → 400.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/message_bus/wait_for", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed timeout → 400.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/message_bus/wait_for?timeout=never", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupMembershipEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/component_groups/room.kitchen", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/component_groups/room.kitchen/components/lamp.1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/component_groups/room.kitchen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var group map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &group))
	members := group["components"].(map[string]any)
	assert.Contains(t, members, "lamp.1")

	// Areas mirror component groups.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/areas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var areas []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &areas))
	require.Len(t, areas, 1)
	assert.Equal(t, "room.kitchen", areas[0]["uid"])
}

func TestGlobalVariablesEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/global_variables/house.mode", `"night"`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/global_variables", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var vars map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vars))
	assert.Equal(t, "night", vars["house.mode"])

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/global_variables/house.mode", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s, h := newTestServer(t)

	n, err := h.Notifications.Publish("warning", "sensor offline", time.Hour)
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/notifications/"+n.Uid, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/notifications/"+n.Uid, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWaitFor_TimeoutReturnsEmptyArray(t *testing.T) {
	s, _ := newTestServer(t)

	start := time.Now()
	rec := doRequest(t, s, http.MethodPost, "/api/v1/message_bus/wait_for?timeout=0.2", `[{"type":"nothing.ever"}]`)
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestWaitFor_ReceivesMatchingEvent(t *testing.T) {
	s, h := newTestServer(t)

	require.NoError(t, h.Components.RegisterComponent("lamp.1", nil))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doRequest(t, s, http.MethodPost,
			"/api/v1/message_bus/wait_for?timeout=5",
			`[{"type":"component_registry.event.setting_changed"}]`)
	}()

	// Wait until the long-poll subscription is registered before mutating.
	deadline := time.Now().Add(2 * time.Second)
	for h.Bus.SubscriptionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("wait_for subscription never appeared")
		}
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, h.Components.SetSetting("lamp.1", "brightness", 75))

	select {
	case rec := <-done:
		require.Equal(t, http.StatusOK, rec.Code)
		var messages []types.BusMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
		require.Len(t, messages, 1)
		assert.Equal(t, "lamp.1", messages[0]["component_uid"])
		assert.Equal(t, float64(75), messages[0]["new_value"])
	case <-time.After(3 * time.Second):
		t.Fatal("wait_for did not return after a matching publish")
	}
}

func TestSystemStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "test", status["wirehome.version"])
	assert.Contains(t, status, "up_time")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wirehome_bus_messages_published_total")
}
