package models

// MessageKind tags a DeepLinkMessage.
type MessageKind string

const (
	OpenNote     MessageKind = "open_note"
	OpenReminder MessageKind = "open_reminder"
	NewReminder  MessageKind = "new_reminder"
)

// DeepLinkMessage is a decoded navigation request handed to the runtime.
// Only the field matching Kind is set.
type DeepLinkMessage struct {
	Kind       MessageKind `json:"type"`
	ContentID  string      `json:"content_id,omitempty"`
	ReminderID string      `json:"reminder_id,omitempty"`
}

// OpenNoteMessage returns an OpenNote message.
func OpenNoteMessage(contentID string) DeepLinkMessage {
	return DeepLinkMessage{Kind: OpenNote, ContentID: contentID}
}

// OpenReminderMessage returns an OpenReminder message.
func OpenReminderMessage(reminderID string) DeepLinkMessage {
	return DeepLinkMessage{Kind: OpenReminder, ReminderID: reminderID}
}

// NewReminderMessage returns a NewReminder message.
func NewReminderMessage() DeepLinkMessage {
	return DeepLinkMessage{Kind: NewReminder}
}

// SurfaceKind identifies which provider a surface instance belongs to.
type SurfaceKind string

const (
	SurfaceNote      SurfaceKind = "note"
	SurfaceReminders SurfaceKind = "reminders"
)

// Valid reports whether k is a known surface kind.
func (k SurfaceKind) Valid() bool {
	return k == SurfaceNote || k == SurfaceReminders
}
