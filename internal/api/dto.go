package api

import (
	"github.com/starford/glance/internal/models"
	"github.com/starford/glance/internal/preview"
)

// NotePreview is the request body for note preview writes (aliased from the domain layer).
type NotePreview = models.NotePreview

// ReminderEntry is one reminder row (aliased from the domain layer).
type ReminderEntry = models.ReminderEntry

// Descriptor is the render callback response (aliased from the domain layer).
type Descriptor = preview.Descriptor

// SurfaceIDsRequest names surfaces to clear or tear down.
type SurfaceIDsRequest struct {
	SurfaceIDs []int `json:"surface_ids" example:"3,4" validate:"required"`
}

// ReminderListRequest replaces the shared reminder list.
type ReminderListRequest struct {
	Entries []ReminderEntry `json:"entries" validate:"required"`
}

// AffectedResponse lists surfaces rewritten by a content update.
type AffectedResponse struct {
	Affected []int `json:"affected" validate:"required"`
}

// ContentIDsResponse lists content ids currently on a surface.
type ContentIDsResponse struct {
	ContentIDs []string `json:"content_ids" validate:"required"`
}

// HasPreviewResponse answers whether a content id is on any surface.
type HasPreviewResponse struct {
	ContentID  string `json:"content_id" example:"n1" validate:"required"`
	HasPreview bool   `json:"has_preview"`
}

// StateRequest sets the app-state flag.
type StateRequest struct {
	Value string `json:"value" example:"background" validate:"required"`
}

// StateResponse returns the app-state flag.
type StateResponse struct {
	Value string `json:"value,omitempty" example:"background"`
	Set   bool   `json:"set"`
}

// SurfaceIDResponse returns the surface being configured; 0 when none.
type SurfaceIDResponse struct {
	SurfaceID int `json:"surface_id" example:"12"`
}

// PinRequest asks the host to pin a new surface.
type PinRequest struct {
	Kind models.SurfaceKind `json:"kind" example:"note" validate:"required"`
}

// BootSyncResponse reports a finished on-demand boot sync run.
type BootSyncResponse struct {
	RunID string `json:"run_id" example:"01HZX3J5Q6YQ3N2K8C9V0W1E2R"`
}

// LaunchRequest is an inbound launch signal. An empty instance is assigned
// a fresh token, so every request counts as a distinct signal.
type LaunchRequest struct {
	Instance string `json:"instance,omitempty" example:"9b2f0c1e"`
	URI      string `json:"uri" example:"glance://open_note?id=n1" validate:"required"`
}

// AcceptedResponse reports whether a callback took effect.
type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// ForegroundRequest reports process importance.
type ForegroundRequest struct {
	Foreground bool `json:"foreground"`
}
