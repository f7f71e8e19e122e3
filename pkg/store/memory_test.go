package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveAssignsSequence(t *testing.T) {
	s := NewMemoryStore()

	for i := 1; i <= 3; i++ {
		snap := NewSnapshot("shop", []byte(fmt.Sprintf("state-%d", i)))
		require.NoError(t, s.SaveSnapshot(snap))
		assert.Equal(t, int64(i), snap.Seq)
	}

	// Sequences are tracked per world.
	other := NewSnapshot("inventory", []byte("state"))
	require.NoError(t, s.SaveSnapshot(other))
	assert.Equal(t, int64(1), other.Seq)
}

func TestMemoryStore_LatestAndGet(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.LatestSnapshot("shop")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	first := NewSnapshot("shop", []byte("old"))
	second := NewSnapshot("shop", []byte("new"))
	require.NoError(t, s.SaveSnapshot(first))
	require.NoError(t, s.SaveSnapshot(second))

	latest, err := s.LatestSnapshot("shop")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, []byte("new"), latest.Payload)

	got, err := s.GetSnapshot(first.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got.Payload)

	_, err = s.GetSnapshot("no-such-id")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveSnapshot(NewSnapshot("shop", []byte{byte(i)})))
	}

	all, err := s.ListSnapshots("shop", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(5), all[0].Seq)
	assert.Equal(t, int64(1), all[4].Seq)

	limited, err := s.ListSnapshots("shop", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, int64(5), limited[0].Seq)
	assert.Equal(t, int64(4), limited[1].Seq)
}

func TestMemoryStore_Prune(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveSnapshot(NewSnapshot("shop", nil)))
	}

	pruned, err := s.PruneSnapshots("shop", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, pruned)

	remaining, err := s.ListSnapshots("shop", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(5), remaining[0].Seq)

	// Pruning below the current count is a no-op.
	pruned, err = s.PruneSnapshots("shop", 10)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	// New saves continue the old sequence.
	snap := NewSnapshot("shop", nil)
	require.NoError(t, s.SaveSnapshot(snap))
	assert.Equal(t, int64(6), snap.Seq)
}

func TestNewStore_UnsupportedType(t *testing.T) {
	_, err := NewStore(Config{Type: "etcd"})
	assert.ErrorIs(t, err, ErrUnsupportedDatabase)
}

func TestNewStore_Memory(t *testing.T) {
	s, err := NewStore(Config{Type: "memory"})
	require.NoError(t, err)
	assert.NoError(t, s.HealthCheck())
	assert.NoError(t, s.Close())
}
