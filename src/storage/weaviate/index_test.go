package weaviate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/docqa"
	"docqa/src/storage/weaviate"
	"docqa/src/testutil"
)

func TestClassName(t *testing.T) {
	tests := []struct {
		session string
		want    string
	}{
		{"6f1c2a9e-3b7d-4c11-9a0e-1b2c3d4e5f60", "DocQA_6f1c2a9e3b7d4c119a0e1b2c3d4e5f60"},
		{"cli", "DocQA_cli"},
		{"a b/c", "DocQA_abc"},
	}

	for _, tt := range tests {
		t.Run(tt.session, func(t *testing.T) {
			assert.Equal(t, tt.want, weaviate.ClassName(tt.session))
		})
	}
}

func TestToScoredChunks(t *testing.T) {
	results := []weaviate.QueryResult{
		{Distance: 0.4, Properties: map[string]interface{}{"content": "later tie", "chunk_id": "p1-20", "ordinal": float64(3), "page": float64(1), "char_offset": float64(20)}},
		{Distance: 0.1, Properties: map[string]interface{}{"content": "best", "chunk_id": "p2-0", "ordinal": float64(5), "page": float64(2)}},
		{Distance: 0.4, Properties: map[string]interface{}{"content": "earlier tie", "chunk_id": "p1-0", "ordinal": float64(1), "page": float64(1)}},
		{Distance: 0.9, Properties: map[string]interface{}{"content": "weak", "ordinal": float64(0)}},
	}

	got := weaviate.ToScoredChunks(results, docqa.SimilarityFloor{})
	assert.Equal(t, []string{"best", "earlier tie", "later tie", "weak"}, texts(got))
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.Equal(t, 2, got[0].Page)
	assert.Equal(t, 20, got[2].Offset)

	floored := weaviate.ToScoredChunks(results, docqa.SimilarityFloor{Enabled: true, Min: 0.5})
	assert.Equal(t, []string{"best", "earlier tie", "later tie"}, texts(floored))
}

func texts(scored []docqa.ScoredChunk) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Text
	}
	return out
}

func TestIndexReleaseDropsClassOnce(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		wantErrs []bool
		requests int
	}{
		{"dropped on first call", []int{http.StatusOK}, []bool{false, false, false}, 1},
		{"retried after failed drop", []int{http.StatusInternalServerError, http.StatusOK}, []bool{true, false, false}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deletes atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/v1/schema/DocQA_s1" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				n := int(deletes.Add(1))
				w.WriteHeader(tt.statuses[min(n, len(tt.statuses))-1])
			}))
			defer srv.Close()

			client, err := weaviate.NewClient("http", strings.TrimPrefix(srv.URL, "http://"))
			require.NoError(t, err)
			emb, err := docqa.NewEmbedding(testutil.NewEmbedder(8), "test-embed")
			require.NoError(t, err)

			builder := weaviate.NewIndexBuilder(weaviate.NewSDK(client), emb, docqa.SimilarityFloor{})
			index, err := builder.Restore(context.Background(), docqa.IndexSnapshot{
				Backend: weaviate.Backend, Model: "test-embed", Dimension: 8, Ref: weaviate.ClassName("s1"), Count: 1,
			})
			require.NoError(t, err)
			releaser, ok := index.(docqa.Releaser)
			require.True(t, ok)

			for i, wantErr := range tt.wantErrs {
				err := releaser.Release(context.Background())
				if wantErr {
					assert.Error(t, err, "call %d", i)
				} else {
					assert.NoError(t, err, "call %d", i)
				}
			}
			assert.Equal(t, int32(tt.requests), deletes.Load())
		})
	}
}
