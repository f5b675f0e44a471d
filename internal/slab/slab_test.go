package slab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertRemove(t *testing.T) {
	s := New[string](2)
	id, err := s.Insert("alpha")
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	v, ok := s.Remove(id)
	require.True(t, ok)
	require.Equal(t, "alpha", v)
	require.Equal(t, 0, s.Len())

	_, ok = s.Remove(id)
	require.False(t, ok)
}

func TestCapacity(t *testing.T) {
	s := New[int](1)
	_, err := s.Insert(1)
	require.NoError(t, err)
	_, err = s.Insert(2)
	require.ErrorIs(t, err, ErrFull)
}

func TestIDsUniqueWhileLive(t *testing.T) {
	s := New[int](4)
	seen := map[uint32]bool{}
	for i := 0; i < 4; i++ {
		id, err := s.Insert(i)
		require.NoError(t, err)
		require.False(t, seen[id], "task id reused while live")
		seen[id] = true
	}
}

func TestDrain(t *testing.T) {
	s := New[int](4)
	_, _ = s.Insert(1)
	_, _ = s.Insert(2)
	var drained []int
	s.Drain(func(v int) { drained = append(drained, v) })
	require.Len(t, drained, 2)
	require.Equal(t, 0, s.Len())
}
