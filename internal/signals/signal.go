// Package signals turns OS lifecycle and launch signals dropped as JSON files
// into a spool directory into host callbacks.
//
// A signal file looks like:
//
//	{"signal": "launch", "uri": "glance://open_note?id=n1"}
//	{"signal": "surfaces_removed", "surface_ids": [3, 4]}
//
// Writers should create the file under a dot-prefixed name and rename it into
// place. The file name is the signal's instance token; a consumed file is
// removed.
package signals

import (
	"context"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glance/internal/deeplink"
)

// Kind names a signal.
type Kind string

const (
	KindLaunch          Kind = "launch"
	KindBootCompleted   Kind = "boot_completed"
	KindTaskRemoved     Kind = "task_removed"
	KindSurfacesRemoved Kind = "surfaces_removed"
	KindForeground      Kind = "foreground"
	KindBackground      Kind = "background"
)

// Signal is the decoded content of one spool file.
type Signal struct {
	Kind       Kind   `json:"signal"`
	URI        string `json:"uri,omitempty"`
	SurfaceIDs []int  `json:"surface_ids,omitempty"`
}

// Validate validates the signal.
func (s Signal) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Kind, validation.Required, validation.In(
			KindLaunch, KindBootCompleted, KindTaskRemoved,
			KindSurfacesRemoved, KindForeground, KindBackground,
		)),
		validation.Field(&s.URI, validation.When(s.Kind == KindLaunch, validation.Required)),
		validation.Field(&s.SurfaceIDs, validation.When(s.Kind == KindSurfacesRemoved, validation.Required)),
	)
}

// Parse decodes and validates a spool file.
func Parse(data []byte) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(data, &s); err != nil {
		return Signal{}, fmt.Errorf("signals: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Signal{}, fmt.Errorf("signals: invalid: %w", err)
	}
	return s, nil
}

// Handler receives decoded signals.
type Handler interface {
	Launch(sig *deeplink.InboundSignal) bool
	BootCompleted() bool
	TaskRemoved(ctx context.Context)
	Teardown(ctx context.Context, ids []int)
	SetForeground(on bool)
}

// Dispatch routes s to h. instance identifies the signal for launch dedup.
func Dispatch(ctx context.Context, h Handler, instance string, s Signal) {
	switch s.Kind {
	case KindLaunch:
		h.Launch(&deeplink.InboundSignal{Instance: instance, URI: s.URI})
	case KindBootCompleted:
		h.BootCompleted()
	case KindTaskRemoved:
		h.TaskRemoved(ctx)
	case KindSurfacesRemoved:
		h.Teardown(ctx, s.SurfaceIDs)
	case KindForeground:
		h.SetForeground(true)
	case KindBackground:
		h.SetForeground(false)
	}
}
