package api

import (
	"net/http"

	"github.com/starford/glance/internal/bridge"
)

// Handler holds the runtime bridge route handlers.
type Handler struct {
	rt *bridge.Runtime
}

// NewHandler creates a new Handler.
func NewHandler(rt *bridge.Runtime) *Handler {
	return &Handler{rt: rt}
}

// SetNotePreview handles PUT /api/bridge/previews/notes/{surfaceID}.
//
//	@Summary		Bind a note preview to a surface
//	@Tags			previews
//	@Accept			json
//	@Param			surfaceID	path	int			true	"Surface instance id"
//	@Param			body		body	NotePreview	true	"Preview snapshot"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bridge/previews/notes/{surfaceID} [put]
func (h *Handler) SetNotePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := surfaceIDParam(w, r)
	if !ok {
		return
	}
	var p NotePreview
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.rt.SetNotePreview(r.Context(), id, p); err != nil {
		writeError(w, "set note preview", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPreviews handles POST /api/bridge/previews/notes/clear.
//
//	@Summary		Drop the previews of removed surfaces
//	@Tags			previews
//	@Accept			json
//	@Param			body	body	SurfaceIDsRequest	true	"Surface ids"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/bridge/previews/notes/clear [post]
func (h *Handler) ClearPreviews(w http.ResponseWriter, r *http.Request) {
	var req SurfaceIDsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.rt.ClearAllPreviewsForSurfaces(r.Context(), req.SurfaceIDs)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateByContentID handles PUT /api/bridge/previews/content/{contentID}.
//
//	@Summary		Rewrite every surface showing a note
//	@Tags			previews
//	@Accept			json
//	@Produce		json
//	@Param			contentID	path		string		true	"Note content id"
//	@Param			body		body		NotePreview	true	"New snapshot"
//	@Success		200			{object}	AffectedResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bridge/previews/content/{contentID} [put]
func (h *Handler) UpdateByContentID(w http.ResponseWriter, r *http.Request) {
	var p NotePreview
	if !decodeBody(w, r, &p) {
		return
	}
	affected, err := h.rt.UpdateByContentID(r.Context(), pathParam(r, "contentID"), p)
	if err != nil {
		writeError(w, "update by content id", err)
		return
	}
	writeJSON(w, http.StatusOK, AffectedResponse{Affected: affected})
}

// ListContentIDs handles GET /api/bridge/previews/content.
//
//	@Summary		List content ids shown on surfaces
//	@Tags			previews
//	@Produce		json
//	@Success		200	{object}	ContentIDsResponse
//	@Security		BearerAuth
//	@Router			/bridge/previews/content [get]
func (h *Handler) ListContentIDs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ContentIDsResponse{ContentIDs: h.rt.ListPreviewedContentIDs(r.Context())})
}

// HasPreview handles GET /api/bridge/previews/content/{contentID}.
func (h *Handler) HasPreview(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "contentID")
	writeJSON(w, http.StatusOK, HasPreviewResponse{ContentID: id, HasPreview: h.rt.HasPreview(r.Context(), id)})
}

// ReplaceReminders handles PUT /api/bridge/previews/reminders.
//
//	@Summary		Replace the shared reminder list
//	@Tags			previews
//	@Accept			json
//	@Param			body	body	ReminderListRequest	true	"Ordered entries"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bridge/previews/reminders [put]
func (h *Handler) ReplaceReminders(w http.ResponseWriter, r *http.Request) {
	var req ReminderListRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.rt.ReplaceReminderList(r.Context(), req.Entries); err != nil {
		writeError(w, "replace reminder list", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PullDeepLink handles GET /api/bridge/deeplink/pending. It answers 204 when
// nothing is pending; a returned message is not returned again.
//
//	@Summary		Take the pending navigation message
//	@Tags			deeplink
//	@Produce		json
//	@Success		200	{object}	models.DeepLinkMessage
//	@Success		204
//	@Security		BearerAuth
//	@Router			/bridge/deeplink/pending [get]
func (h *Handler) PullDeepLink(w http.ResponseWriter, _ *http.Request) {
	msg, ok := h.rt.PullDeepLink()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// GetState handles GET /api/bridge/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	v, ok, err := h.rt.GetState(r.Context())
	if err != nil {
		writeError(w, "get state", err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Value: v, Set: ok})
}

// SetState handles PUT /api/bridge/state.
func (h *Handler) SetState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.rt.SetState(r.Context(), req.Value); err != nil {
		writeError(w, "set state", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfiguringSurface handles GET /api/bridge/surface/configuring.
func (h *Handler) ConfiguringSurface(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SurfaceIDResponse{SurfaceID: h.rt.SurfaceID()})
}

// PinSurface handles POST /api/bridge/surfaces/pin.
//
//	@Summary		Ask the host to pin a new surface
//	@Tags			surfaces
//	@Accept			json
//	@Param			body	body	PinRequest	true	"Surface kind"
//	@Success		202
//	@Failure		400	{object}	errResponse
//	@Failure		422	{object}	errResponse	"Rejected with a stable reason code"
//	@Security		BearerAuth
//	@Router			/bridge/surfaces/pin [post]
func (h *Handler) PinSurface(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.rt.PinSurface(r.Context(), req.Kind); err != nil {
		writeError(w, "pin surface", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RunBootSync handles POST /api/bridge/boot-sync. The request blocks until
// the run finishes or times out.
//
//	@Summary		Run the boot sync job now
//	@Tags			boot
//	@Produce		json
//	@Success		200	{object}	BootSyncResponse
//	@Failure		409	{object}	errResponse	"A run is already active"
//	@Failure		504	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bridge/boot-sync [post]
func (h *Handler) RunBootSync(w http.ResponseWriter, r *http.Request) {
	runID, err := h.rt.RunBootSync(r.Context())
	if err != nil {
		writeError(w, "boot sync", err)
		return
	}
	writeJSON(w, http.StatusOK, BootSyncResponse{RunID: runID})
}
