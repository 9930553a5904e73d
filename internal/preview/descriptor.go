// Package preview renders stored snapshots into surface render descriptors.
package preview

import (
	"github.com/starford/glance/internal/checksum"
	"github.com/starford/glance/internal/models"
)

// ItemLayout selects one of the two reminder row variants.
type ItemLayout string

const (
	LayoutCompact  ItemLayout = "compact"
	LayoutDetailed ItemLayout = "detailed"
)

// ClickTarget is a deep-link URI tagged with the message it decodes to.
type ClickTarget struct {
	Tag models.MessageKind `json:"tag"`
	URI string             `json:"uri"`
}

// Item is one reminder row.
type Item struct {
	ID          string      `json:"id"`
	Position    int         `json:"position"`
	Layout      ItemLayout  `json:"layout"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	DueAt       int64       `json:"due_at"`
	DueText     string      `json:"due_text"`
	Click       ClickTarget `json:"click"`
}

// Descriptor is what the surface host draws. A NoOp descriptor tells the
// host to keep whatever it rendered last.
type Descriptor struct {
	SurfaceID   int                `json:"surface_id"`
	Kind        models.SurfaceKind `json:"kind"`
	NoOp        bool               `json:"noop,omitempty"`
	Title       string             `json:"title,omitempty"`
	Headline    string             `json:"headline,omitempty"`
	Click       *ClickTarget       `json:"click,omitempty"`
	Items       []Item             `json:"items,omitempty"`
	ItemCount   int                `json:"item_count"`
	EmptyState  bool               `json:"empty_state,omitempty"`
	Add         *ClickTarget       `json:"add,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty"`
}

// NoOpDescriptor returns the keep-last-content descriptor for a surface.
func NoOpDescriptor(kind models.SurfaceKind, surfaceID int) Descriptor {
	return Descriptor{SurfaceID: surfaceID, Kind: kind, NoOp: true}
}

// withFingerprint stamps d with the SHA-256 of its JSON form (fingerprint
// excluded), so identical content always yields the same value.
func withFingerprint(d Descriptor) Descriptor {
	d.Fingerprint = ""
	sum, err := checksum.JSON(d)
	if err != nil {
		return d
	}
	d.Fingerprint = sum
	return d
}
