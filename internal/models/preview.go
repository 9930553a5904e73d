// Package models defines the domain types for glance.
package models

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RemindersKey is the reserved snapshot key holding the ReminderList.
// Every other key in the preview namespace is a surface instance id.
const RemindersKey = "remindersList"

// NotePreview is the cached snapshot of a single note shown on a surface.
type NotePreview struct {
	ContentID string `json:"id"`
	Title     string `json:"title"`
	Headline  string `json:"headline"`
}

// Validate validates the preview.
func (p NotePreview) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ContentID, validation.Required),
	)
}

// ReminderEntry is one row of the reminders surface.
type ReminderEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueAt       int64  `json:"date"` // epoch millis
}

// HasDescription reports whether the detailed item layout applies.
func (e ReminderEntry) HasDescription() bool {
	return e.Description != ""
}

// Validate validates the entry.
func (e ReminderEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.DueAt, validation.Min(int64(0))),
	)
}

// ReminderList is the ordered snapshot stored under RemindersKey.
type ReminderList struct {
	Entries []ReminderEntry
}

// Validate validates every entry.
func (l ReminderList) Validate() error {
	for i, e := range l.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// EncodeNotePreview serializes p for the snapshot store.
func EncodeNotePreview(p NotePreview) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("models: encode note preview: %w", err)
	}
	return string(b), nil
}

// DecodeNotePreview parses a stored value. A value that is not a JSON object
// with a non-empty id is reported as an error and callers treat it as absent.
func DecodeNotePreview(raw string) (NotePreview, error) {
	var p NotePreview
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return NotePreview{}, fmt.Errorf("models: decode note preview: %w", err)
	}
	if p.ContentID == "" {
		return NotePreview{}, fmt.Errorf("models: decode note preview: missing id")
	}
	return p, nil
}

// EncodeReminderList serializes l as a JSON array.
func EncodeReminderList(l ReminderList) (string, error) {
	entries := l.Entries
	if entries == nil {
		entries = []ReminderEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("models: encode reminder list: %w", err)
	}
	return string(b), nil
}

// DecodeReminderList parses a stored reminders array.
func DecodeReminderList(raw string) (ReminderList, error) {
	var entries []ReminderEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return ReminderList{}, fmt.Errorf("models: decode reminder list: %w", err)
	}
	return ReminderList{Entries: entries}, nil
}
