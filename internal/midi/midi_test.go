package midi

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNoteOn(t *testing.T) {
	raw := gomidi.NoteOn(2, 60, 100)
	msg, ok := Decode(raw)
	require.True(t, ok)
	assert.Equal(t, byte(0x90), msg.Status)
	assert.Equal(t, byte(60), msg.Note)
	assert.Equal(t, byte(100), msg.Velocity)
}

func TestChannelExtraction(t *testing.T) {
	raw := gomidi.NoteOn(5, 60, 100)
	assert.Equal(t, 5, Channel(raw))
}

func TestPatternMatchesChannelAndNote(t *testing.T) {
	p := NewPattern(5, 0x90, 60)
	assert.True(t, p.Matches(gomidi.NoteOn(5, 60, 1)))
	assert.False(t, p.Matches(gomidi.NoteOn(6, 60, 1)), "different channel must not match")
	assert.False(t, p.Matches(gomidi.NoteOn(5, 61, 1)), "different note must not match")
}

func TestPatternAnyChannel(t *testing.T) {
	p := NewPattern(-1, 0x90, 60)
	assert.True(t, p.Matches(gomidi.NoteOn(0, 60, 1)))
	assert.True(t, p.Matches(gomidi.NoteOn(15, 60, 1)))
}
