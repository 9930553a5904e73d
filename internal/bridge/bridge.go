// Package bridge wires the core components into the two call surfaces the
// transports expose: Runtime for the embedded application runtime and
// Callbacks for the surface host and lifecycle notifier.
package bridge

import (
	"context"
	"log/slog"

	"github.com/starford/glance/internal/bootsync"
	"github.com/starford/glance/internal/deeplink"
	"github.com/starford/glance/internal/host"
	"github.com/starford/glance/internal/lifecycle"
	"github.com/starford/glance/internal/models"
	"github.com/starford/glance/internal/preview"
	"github.com/starford/glance/internal/surfaceservice"
)

// Components are the core pieces shared by Runtime and Callbacks.
type Components struct {
	Surfaces   *surfaceservice.Service
	Router     *deeplink.Router
	State      *lifecycle.StateFlag
	Foreground *lifecycle.ForegroundTracker
	Host       *host.Host
	Boot       *bootsync.Task
	Logger     *slog.Logger
}

// Runtime is the synchronous request/response API of the embedded runtime.
type Runtime struct {
	c Components
}

// NewRuntime creates the runtime-facing facade.
func NewRuntime(c Components) *Runtime {
	return &Runtime{c: c}
}

// SetNotePreview binds a note preview to one surface and redraws it.
func (r *Runtime) SetNotePreview(ctx context.Context, surfaceID int, p models.NotePreview) error {
	return r.c.Surfaces.SetNotePreview(ctx, surfaceID, p)
}

// ClearAllPreviewsForSurfaces drops the preview bindings of ids.
func (r *Runtime) ClearAllPreviewsForSurfaces(ctx context.Context, ids []int) {
	r.c.Surfaces.ClearAllPreviewsForSurfaces(ctx, ids)
}

// UpdateByContentID rewrites every surface showing contentID and returns
// the ids that were updated.
func (r *Runtime) UpdateByContentID(ctx context.Context, contentID string, p models.NotePreview) ([]int, error) {
	return r.c.Surfaces.UpdateByContentID(ctx, contentID, p)
}

// ListPreviewedContentIDs returns the distinct content ids on screen.
func (r *Runtime) ListPreviewedContentIDs(ctx context.Context) []string {
	return r.c.Surfaces.ListPreviewedContentIDs(ctx)
}

// HasPreview reports whether any surface shows contentID.
func (r *Runtime) HasPreview(ctx context.Context, contentID string) bool {
	return r.c.Surfaces.HasPreview(ctx, contentID)
}

// ReplaceReminderList stores the reminder list and redraws every reminders surface.
func (r *Runtime) ReplaceReminderList(ctx context.Context, entries []models.ReminderEntry) error {
	return r.c.Surfaces.ReplaceReminderList(ctx, entries)
}

// PullDeepLink returns the pending navigation message once. It never blocks.
func (r *Runtime) PullDeepLink() (models.DeepLinkMessage, bool) {
	return r.c.Router.Pull()
}

// SetState persists the app state flag.
func (r *Runtime) SetState(ctx context.Context, value string) error {
	return r.c.State.Set(ctx, value)
}

// GetState reads the app state flag. The bool is false when it is unset.
func (r *Runtime) GetState(ctx context.Context) (string, bool, error) {
	return r.c.State.Get(ctx)
}

// SurfaceID returns the surface currently being configured, or
// host.InvalidSurfaceID.
func (r *Runtime) SurfaceID() int {
	return r.c.Host.ConfiguringSurface()
}

// PinSurface asks the host to pin a new surface of kind.
func (r *Runtime) PinSurface(ctx context.Context, kind models.SurfaceKind) error {
	return r.c.Host.PinSurface(ctx, kind)
}

// RunBootSync runs the boot job on demand and reports its outcome.
func (r *Runtime) RunBootSync(ctx context.Context) (string, error) {
	return r.c.Boot.Run(ctx)
}

// Callbacks are invoked by the surface host and the lifecycle notifier.
// None of them return store failures.
type Callbacks struct {
	c Components
}

// NewCallbacks creates the host-facing facade.
func NewCallbacks(c Components) *Callbacks {
	return &Callbacks{c: c}
}

// Render is the redraw callback.
func (cb *Callbacks) Render(ctx context.Context, kind models.SurfaceKind, surfaceID int) preview.Descriptor {
	return cb.c.Host.Render(ctx, kind, surfaceID)
}

// Teardown drops the bindings and registry entries of removed surfaces.
func (cb *Callbacks) Teardown(ctx context.Context, ids []int) {
	cb.c.Surfaces.ClearAllPreviewsForSurfaces(ctx, ids)
	cb.c.Host.Forget(ctx, ids)
}

// Configure records the surface whose configuration UI opened.
func (cb *Callbacks) Configure(surfaceID int) error {
	return cb.c.Host.Configure(surfaceID)
}

// Launch hands an inbound launch signal to the deep-link router.
func (cb *Callbacks) Launch(sig *deeplink.InboundSignal) bool {
	return cb.c.Router.Deliver(sig)
}

// BootCompleted starts the boot job unless a foreground instance runs.
func (cb *Callbacks) BootCompleted() bool {
	return cb.c.Boot.OnBootCompleted()
}

// TaskRemoved is the only caller of the state flag's clear.
func (cb *Callbacks) TaskRemoved(ctx context.Context) {
	cb.c.State.OnTaskRemoved(ctx)
}

// SetForeground records process importance reported by the host.
func (cb *Callbacks) SetForeground(on bool) {
	cb.c.Foreground.SetForeground(on)
}
