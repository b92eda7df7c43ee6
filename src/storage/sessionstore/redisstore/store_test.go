package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/docqa"
	"docqa/src/storage/sessionstore/redisstore"
	"docqa/src/testutil"
)

// Runs against a live server when DOCQA_TEST_REDIS_URL is set.
func TestStoreRoundTrip(t *testing.T) {
	url := os.Getenv("DOCQA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("DOCQA_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	emb, err := docqa.NewEmbedding(testutil.NewEmbedder(16), "test-embed")
	require.NoError(t, err)
	builder := docqa.NewMemoryIndexBuilder(emb, docqa.SimilarityFloor{})

	rdb := redisstore.NewClient(url, "", 0)
	defer rdb.Close()
	store := redisstore.NewStore(rdb, builder, time.Minute)
	require.NoError(t, store.Ping(ctx))

	idx, err := builder.Build(ctx, "s1", []docqa.Chunk{{ID: "c0", Text: "Paris is the capital of France."}})
	require.NoError(t, err)

	s := docqa.NewSession("redis-round-trip")
	s.Phase = docqa.PhaseReady
	s.Index = idx
	s.Asked = []string{"What is the capital of France?"}
	s.History = []docqa.Turn{{Role: docqa.RoleUser, Text: "What is the capital of France?"}}
	require.NoError(t, store.Save(ctx, s))
	defer store.Delete(ctx, s.ID)

	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Asked, got.Asked)
	assert.Equal(t, s.History, got.History)
	require.NotNil(t, got.Index)
	assert.Equal(t, 1, got.Index.Len())

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, docqa.ErrSessionNotFound)
}
