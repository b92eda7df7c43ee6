package memory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/docqa"
	"docqa/src/storage/sessionstore/memory"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(time.Hour, time.Minute)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, docqa.ErrSessionNotFound)

	s := docqa.NewSession("s1")
	s.Asked = []string{"What is it?"}
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, 1, store.Len())

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, docqa.ErrSessionNotFound)
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(10*time.Millisecond, time.Hour)

	require.NoError(t, store.Save(ctx, docqa.NewSession("s1")))
	time.Sleep(30 * time.Millisecond)

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, docqa.ErrSessionNotFound)
}

type releasableIndex struct {
	docqa.Index
	releases atomic.Int32
	err      error
}

func (x *releasableIndex) Release(context.Context) error {
	x.releases.Add(1)
	return x.err
}

func TestStoreReleasesEvictedIndexes(t *testing.T) {
	tests := []struct {
		name  string
		index *releasableIndex
		evict func(t *testing.T, store *memory.Store)
	}{
		{
			name:  "expired by ttl",
			index: &releasableIndex{},
			evict: func(t *testing.T, _ *memory.Store) {},
		},
		{
			name:  "release error is logged",
			index: &releasableIndex{err: errors.New("weaviate unreachable")},
			evict: func(t *testing.T, _ *memory.Store) {},
		},
		{
			name:  "deleted",
			index: &releasableIndex{},
			evict: func(t *testing.T, store *memory.Store) {
				require.NoError(t, store.Delete(context.Background(), "s1"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore(20*time.Millisecond, 5*time.Millisecond)
			s := docqa.NewSession("s1")
			s.Phase = docqa.PhaseReady
			s.Index = tt.index
			require.NoError(t, store.Save(context.Background(), s))

			tt.evict(t, store)

			require.Eventually(t, func() bool { return tt.index.releases.Load() == 1 }, time.Second, 5*time.Millisecond)
			assert.Zero(t, store.Len())
		})
	}
}

func TestStoreEvictionSkipsSessionsWithoutIndex(t *testing.T) {
	store := memory.NewStore(time.Hour, time.Minute)
	require.NoError(t, store.Save(context.Background(), docqa.NewSession("s1")))
	assert.NotPanics(t, func() {
		require.NoError(t, store.Delete(context.Background(), "s1"))
	})
}
