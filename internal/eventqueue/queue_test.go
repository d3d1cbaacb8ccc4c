package eventqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushPopPreservesOrder(t *testing.T) {
	q := New("test")
	for i := 0; i < capacity; i++ {
		assert.True(t, q.Push(Event{Type: Press, LocalFrame: i}))
	}
	// Capacity+1th push is dropped, prior N are intact.
	assert.False(t, q.Push(Event{Type: Press, LocalFrame: -1}))

	for i := 0; i < capacity; i++ {
		ev, ok := q.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, ev.LocalFrame)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestDrainInto(t *testing.T) {
	q := New("test")
	q.Push(Event{Type: Press, ChannelID: "chan-1"})
	q.Push(Event{Type: Release, ChannelID: "chan-1"})

	events := q.DrainInto(nil)
	assert.Len(t, events, 2)
	assert.Equal(t, Press, events[0].Type)
	assert.Equal(t, Release, events[1].Type)
}

func TestDropCounterIncrements(t *testing.T) {
	q := New("test")
	for i := 0; i < capacity; i++ {
		q.Push(Event{})
	}
	assert.Equal(t, uint64(0), q.Dropped())
	q.Push(Event{})
	assert.Equal(t, uint64(1), q.Dropped())
}
