package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/glance/internal/models"
)

func TestLinks_RoundTrip(t *testing.T) {
	links := NewLinks("")
	assert.Equal(t, "glance://open_note?id=n1", links.OpenNote("n1"))
	assert.Equal(t, "glance://open_reminder?id=r%2F1", links.OpenReminder("r/1"))
	assert.Equal(t, "glance://new_reminder", links.NewReminder())

	msg, ok := links.Decode(links.OpenNote("a b&c"))
	require.True(t, ok)
	assert.Equal(t, models.OpenNoteMessage("a b&c"), msg)

	msg, ok = links.Decode(links.OpenReminder("r/1"))
	require.True(t, ok)
	assert.Equal(t, models.OpenReminderMessage("r/1"), msg)

	msg, ok = links.Decode(links.NewReminder())
	require.True(t, ok)
	assert.Equal(t, models.NewReminderMessage(), msg)
}

func TestLinks_HTTPSBase(t *testing.T) {
	links := NewLinks("https://notes.example.com/")
	msg, ok := links.Decode("https://notes.example.com/open_note?id=n9")
	require.True(t, ok)
	assert.Equal(t, "n9", msg.ContentID)
}

func TestLinks_DecodeRejects(t *testing.T) {
	links := NewLinks("glance://")
	for _, uri := range []string{
		"",
		"other://open_note?id=n1",
		"glance://open_note",
		"glance://open_note?id=",
		"glance://open_reminder?ref=r1",
		"glance://delete_note?id=n1",
		"glance://open_note?id=%zz",
	} {
		_, ok := links.Decode(uri)
		assert.False(t, ok, "uri=%q", uri)
	}
}

func TestLinks_TrailingSlashAction(t *testing.T) {
	msg, ok := NewLinks("").Decode("glance://new_reminder/")
	require.True(t, ok)
	assert.Equal(t, models.NewReminder, msg.Kind)
}
