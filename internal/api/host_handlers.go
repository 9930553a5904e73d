package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glance/internal/bridge"
	"github.com/starford/glance/internal/deeplink"
	"github.com/starford/glance/internal/models"
)

// HostHandler holds the surface host and lifecycle notifier callbacks.
type HostHandler struct {
	cb *bridge.Callbacks
}

// NewHostHandler creates a new HostHandler.
func NewHostHandler(cb *bridge.Callbacks) *HostHandler {
	return &HostHandler{cb: cb}
}

// Render handles GET /api/host/surfaces/{kind}/{surfaceID}/render. It always
// answers 200; a noop descriptor means "keep the last content".
func (h *HostHandler) Render(w http.ResponseWriter, r *http.Request) {
	kind := models.SurfaceKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown surface kind"))
		return
	}
	id, ok := surfaceIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.cb.Render(r.Context(), kind, id))
}

// Teardown handles POST /api/host/surfaces/teardown.
func (h *HostHandler) Teardown(w http.ResponseWriter, r *http.Request) {
	var req SurfaceIDsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.cb.Teardown(r.Context(), req.SurfaceIDs)
	w.WriteHeader(http.StatusNoContent)
}

// Configure handles POST /api/host/surfaces/{surfaceID}/configure.
func (h *HostHandler) Configure(w http.ResponseWriter, r *http.Request) {
	id, ok := surfaceIDParam(w, r)
	if !ok {
		return
	}
	if err := h.cb.Configure(id); err != nil {
		writeError(w, "configure surface", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Launch handles POST /api/host/launch.
func (h *HostHandler) Launch(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	accepted := h.cb.Launch(&deeplink.InboundSignal{Instance: req.Instance, URI: req.URI})
	writeJSON(w, http.StatusOK, AcceptedResponse{Accepted: accepted})
}

// BootCompleted handles POST /api/host/lifecycle/boot-completed.
func (h *HostHandler) BootCompleted(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Accepted: h.cb.BootCompleted()})
}

// TaskRemoved handles POST /api/host/lifecycle/task-removed.
func (h *HostHandler) TaskRemoved(w http.ResponseWriter, r *http.Request) {
	h.cb.TaskRemoved(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Foreground handles POST /api/host/lifecycle/foreground.
func (h *HostHandler) Foreground(w http.ResponseWriter, r *http.Request) {
	var req ForegroundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.cb.SetForeground(req.Foreground)
	w.WriteHeader(http.StatusNoContent)
}
