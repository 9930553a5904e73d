// Package deeplink encodes surface click targets as URIs and turns inbound
// launch signals back into navigation messages for the runtime.
package deeplink

import (
	"net/url"
	"strings"

	"github.com/starford/glance/internal/models"
)

// DefaultBase is the URI prefix used when none is configured.
const DefaultBase = "glance://"

// Links builds and parses the three deep-link forms under a fixed base:
//
//	<base>open_note?id=<contentId>
//	<base>open_reminder?id=<reminderId>
//	<base>new_reminder
type Links struct {
	base string
}

// NewLinks returns a Links for base, falling back to DefaultBase.
func NewLinks(base string) Links {
	if base == "" {
		base = DefaultBase
	}
	return Links{base: base}
}

// Base returns the configured prefix.
func (l Links) Base() string { return l.base }

func (l Links) withID(action, id string) string {
	return l.base + action + "?" + url.Values{"id": {id}}.Encode()
}

// OpenNote returns the click target URI for a note surface.
func (l Links) OpenNote(contentID string) string {
	return l.withID(string(models.OpenNote), contentID)
}

// OpenReminder returns the click target URI for a reminder row.
func (l Links) OpenReminder(reminderID string) string {
	return l.withID(string(models.OpenReminder), reminderID)
}

// NewReminder returns the click target URI for the add control.
func (l Links) NewReminder() string {
	return l.base + string(models.NewReminder)
}

// Decode parses uri. It reports false for foreign URIs, unknown actions and
// open_* links without an id.
func (l Links) Decode(uri string) (models.DeepLinkMessage, bool) {
	rest, ok := strings.CutPrefix(uri, l.base)
	if !ok {
		return models.DeepLinkMessage{}, false
	}
	action, rawQuery, _ := strings.Cut(rest, "?")
	action = strings.TrimSuffix(action, "/")

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return models.DeepLinkMessage{}, false
	}

	switch models.MessageKind(action) {
	case models.OpenNote:
		if id := query.Get("id"); id != "" {
			return models.OpenNoteMessage(id), true
		}
	case models.OpenReminder:
		if id := query.Get("id"); id != "" {
			return models.OpenReminderMessage(id), true
		}
	case models.NewReminder:
		return models.NewReminderMessage(), true
	}
	return models.DeepLinkMessage{}, false
}
