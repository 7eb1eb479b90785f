package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDPoolAcquireRelease(t *testing.T) {
	p := NewIDPool(3)

	ids := make(map[int]bool)
	for i := 0; i < 3; i++ {
		id, err := p.Acquire()
		require.NoError(t, err)
		require.False(t, ids[id], "id %d acquired twice", id)
		ids[id] = true
		require.False(t, p.IsFree(id))
	}

	_, err := p.Acquire()
	require.Error(t, err)

	var gameErr *Error
	require.ErrorAs(t, err, &gameErr)
	require.Equal(t, KindCapacity, gameErr.Kind)

	for id := range ids {
		p.Release(id)
		require.True(t, p.IsFree(id))
	}

	id, err := p.Acquire()
	require.NoError(t, err)
	require.True(t, ids[id])
}

func TestIDPoolSnapshotConsistentSize(t *testing.T) {
	p := NewIDPool(4)
	_, err := p.Acquire()
	require.NoError(t, err)

	freeMap, queued := p.Snapshot()
	require.Len(t, freeMap, 4)
	require.Len(t, queued, 3)

	freeCount := 0
	for _, f := range freeMap {
		if f {
			freeCount++
		}
	}
	require.Equal(t, 3, freeCount)
}
