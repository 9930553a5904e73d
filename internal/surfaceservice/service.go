// Package surfaceservice implements the calls the embedded runtime uses to
// publish and query surface preview snapshots.
package surfaceservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/starford/glance/internal/apperr"
	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/models"
	"github.com/starford/glance/internal/preview"
	"github.com/starford/glance/internal/storage"
)

// Redrawer asks the surface host to re-render surfaces after a write.
type Redrawer interface {
	RedrawSurfaces(ctx context.Context, kind models.SurfaceKind, ids []int)
	RedrawAll(ctx context.Context, kind models.SurfaceKind)
}

// Service coordinates snapshot writes and redraws.
//
// Store failures on this path are logged and counted but never returned:
// a broken store degrades surfaces to stale content. Invalid payloads are
// returned as apperr.ErrInvalid.
type Service struct {
	store   storage.Provider
	redraw  Redrawer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a new surface service. redraw may be nil.
func NewService(store storage.Provider, redraw Redrawer, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, redraw: redraw, logger: logger, metrics: m}
}

// SetNotePreview binds p to a surface and redraws it.
func (s *Service) SetNotePreview(ctx context.Context, surfaceID int, p models.NotePreview) error {
	if surfaceID <= 0 {
		return fmt.Errorf("%w: surface id must be positive", apperr.ErrInvalid)
	}
	raw, err := encodeNote(p)
	if err != nil {
		return err
	}
	if s.put(ctx, strconv.Itoa(surfaceID), raw) {
		s.redrawSurfaces(ctx, models.SurfaceNote, []int{surfaceID})
	}
	return nil
}

// ClearAllPreviewsForSurfaces drops the bindings of removed surfaces. Each
// delete is independent; a failure does not stop the rest.
func (s *Service) ClearAllPreviewsForSurfaces(ctx context.Context, ids []int) {
	for _, id := range ids {
		if err := s.store.Delete(ctx, preview.Namespace, strconv.Itoa(id)); err != nil {
			s.storeFailed("delete", err, slog.Int("surface_id", id))
		}
	}
}

// UpdateByContentID overwrites every note binding whose content id equals
// contentID and returns the affected surface ids in ascending order.
func (s *Service) UpdateByContentID(ctx context.Context, contentID string, p models.NotePreview) ([]int, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", apperr.ErrInvalid)
	}
	raw, err := encodeNote(p)
	if err != nil {
		return nil, err
	}

	var matched []int
	for id, prev := range s.noteBindings(ctx) {
		if prev.ContentID == contentID {
			matched = append(matched, id)
		}
	}
	sort.Ints(matched)

	// Surfaces are written in id order; one that fails keeps its old
	// preview and is left out of the result.
	affected := make([]int, 0, len(matched))
	for _, id := range matched {
		if s.put(ctx, strconv.Itoa(id), raw) {
			affected = append(affected, id)
		}
	}

	if len(affected) > 0 {
		s.redrawSurfaces(ctx, models.SurfaceNote, affected)
	}
	return affected, nil
}

// ListPreviewedContentIDs returns the distinct content ids currently shown
// on at least one surface, sorted.
func (s *Service) ListPreviewedContentIDs(ctx context.Context) []string {
	seen := make(map[string]struct{})
	for _, p := range s.noteBindings(ctx) {
		seen[p.ContentID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasPreview reports whether any surface shows contentID.
func (s *Service) HasPreview(ctx context.Context, contentID string) bool {
	if contentID == "" {
		return false
	}
	for _, p := range s.noteBindings(ctx) {
		if p.ContentID == contentID {
			return true
		}
	}
	return false
}

// ReplaceReminderList stores the shared reminder list and redraws every
// reminders surface.
func (s *Service) ReplaceReminderList(ctx context.Context, entries []models.ReminderEntry) error {
	list := models.ReminderList{Entries: entries}
	if err := list.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	raw, err := models.EncodeReminderList(list)
	if err != nil {
		return err
	}
	if s.put(ctx, models.RemindersKey, raw) && s.redraw != nil {
		s.redraw.RedrawAll(ctx, models.SurfaceReminders)
	}
	return nil
}

// noteBindings decodes every note binding in the namespace. The reserved
// reminders key, non-numeric keys and malformed values are skipped.
func (s *Service) noteBindings(ctx context.Context) map[int]models.NotePreview {
	entries, err := s.store.List(ctx, preview.Namespace)
	if err != nil {
		s.storeFailed("list", err)
		return nil
	}
	out := make(map[int]models.NotePreview, len(entries))
	for key, raw := range entries {
		if key == models.RemindersKey {
			continue
		}
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		p, err := models.DecodeNotePreview(raw)
		if err != nil {
			s.logger.Debug("surfaceservice: skipping malformed binding",
				slog.Int("surface_id", id),
				slog.String("error", err.Error()))
			continue
		}
		out[id] = p
	}
	return out
}

func (s *Service) put(ctx context.Context, key, raw string) bool {
	if err := s.store.Put(ctx, preview.Namespace, key, raw); err != nil {
		s.storeFailed("put", err, slog.String("key", key))
		return false
	}
	return true
}

func (s *Service) redrawSurfaces(ctx context.Context, kind models.SurfaceKind, ids []int) {
	if s.redraw != nil {
		s.redraw.RedrawSurfaces(ctx, kind, ids)
	}
}

func (s *Service) storeFailed(op string, err error, attrs ...any) {
	s.metrics.StoreError(op)
	attrs = append(attrs, slog.String("op", op), slog.String("error", err.Error()))
	s.logger.Warn("surfaceservice: store operation failed", attrs...)
}

func encodeNote(p models.NotePreview) (string, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return models.EncodeNotePreview(p)
}
