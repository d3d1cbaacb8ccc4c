package rcu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id    string
	value int
}

func (i item) ID() string { return i.id }

func TestPushGetPop(t *testing.T) {
	l := New[item]()
	l.Push(item{id: "a", value: 1})
	l.Push(item{id: "b", value: 2})
	assert.Equal(t, 2, l.Len())

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got.value)

	removed, ok := l.Pop("a")
	require.True(t, ok)
	assert.Equal(t, 1, removed.value)
	assert.Equal(t, 1, l.Len())

	_, ok = l.Get("a")
	assert.False(t, ok)
}

func TestSnapshotIsolationFromLaterWrites(t *testing.T) {
	l := New[item]()
	l.Push(item{id: "a", value: 1})

	snap := l.Snapshot()
	l.Push(item{id: "b", value: 2})

	assert.Len(t, snap, 1, "earlier snapshot must not observe later writes")
	assert.Equal(t, 2, l.Len())
}

func TestReplace(t *testing.T) {
	l := New[item]()
	l.Push(item{id: "a", value: 1})
	ok := l.Replace(item{id: "a", value: 42})
	require.True(t, ok)
	got, _ := l.Get("a")
	assert.Equal(t, 42, got.value)
}
