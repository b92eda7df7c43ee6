package weaviate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/weaviate/weaviate/entities/models"

	"docqa/src/core/docqa"
	"docqa/src/log"
)

const (
	Backend   = "weaviate"
	batchSize = 100
)

var chunkFields = []string{"content", "chunk_id", "ordinal", "page", "char_offset"}

func chunkProperties() []*models.Property {
	return []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "chunk_id", DataType: []string{"text"}},
		{Name: "ordinal", DataType: []string{"int"}},
		{Name: "page", DataType: []string{"int"}},
		{Name: "char_offset", DataType: []string{"int"}},
	}
}

// ClassName maps a session id to its class. Each session owns one class.
func ClassName(sessionID string) string {
	var sb strings.Builder
	sb.WriteString("DocQA_")
	for _, r := range sessionID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// IndexBuilder stores session indexes in Weaviate. Vectors are computed
// locally with the shared Embedding and uploaded with the chunks.
type IndexBuilder struct {
	sdk   *SDK
	emb   *docqa.Embedding
	floor docqa.SimilarityFloor
	opts  []docqa.BuildOption
}

var _ docqa.IndexBuilder = (*IndexBuilder)(nil)

func NewIndexBuilder(sdk *SDK, emb *docqa.Embedding, floor docqa.SimilarityFloor, opts ...docqa.BuildOption) *IndexBuilder {
	return &IndexBuilder{sdk: sdk, emb: emb, floor: floor, opts: opts}
}

func (b *IndexBuilder) Build(ctx context.Context, sessionID string, chunks []docqa.Chunk) (docqa.Index, error) {
	class := ClassName(sessionID)
	entries, dim, err := docqa.EmbedChunks(ctx, chunks, b.emb, b.opts...)
	if err != nil {
		return nil, err
	}

	exists, err := b.sdk.ClassExists(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", docqa.ErrBackendUnavailable, err)
	}
	if exists {
		if err := b.sdk.DeleteSchema(ctx, class); err != nil {
			return nil, fmt.Errorf("%w: %w", docqa.ErrBackendUnavailable, err)
		}
	}
	if err := b.sdk.CreateSchema(ctx, class, chunkProperties(), "none"); err != nil {
		return nil, fmt.Errorf("%w: %w", docqa.ErrBackendUnavailable, err)
	}

	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		objects := make([]VectorObject, 0, end-start)
		for _, e := range entries[start:end] {
			objects = append(objects, VectorObject{
				Vector: e.Vector,
				Properties: map[string]interface{}{
					"content":     e.Chunk.Text,
					"chunk_id":    e.Chunk.ID,
					"ordinal":     e.Chunk.Ordinal,
					"page":        e.Chunk.Page,
					"char_offset": e.Chunk.Offset,
				},
			})
		}
		if err := b.sdk.BatchAddVectors(ctx, class, objects); err != nil {
			if delErr := b.sdk.DeleteSchema(ctx, class); delErr != nil {
				log.Error(delErr, "failed to drop partial class", "class", class)
			}
			return nil, fmt.Errorf("%w: %w", docqa.ErrBackendUnavailable, err)
		}
	}

	log.Info("weaviate index built", "class", class, "chunks", len(entries))
	return &Index{
		sdk:   b.sdk,
		emb:   b.emb,
		floor: b.floor,
		class: class,
		dim:   dim,
		count: len(entries),
	}, nil
}

func (b *IndexBuilder) Restore(_ context.Context, snap docqa.IndexSnapshot) (docqa.Index, error) {
	if snap.Backend != Backend {
		return nil, fmt.Errorf("cannot restore %q snapshot into weaviate index", snap.Backend)
	}
	if snap.Model != b.emb.Model() {
		return nil, fmt.Errorf("%w: index built with %s, embedder uses %s", docqa.ErrEmbeddingMismatch, snap.Model, b.emb.Model())
	}
	return &Index{
		sdk:   b.sdk,
		emb:   b.emb,
		floor: b.floor,
		class: snap.Ref,
		dim:   snap.Dimension,
		count: snap.Count,
	}, nil
}

// Index is one session's class in Weaviate.
type Index struct {
	sdk   *SDK
	emb   *docqa.Embedding
	floor docqa.SimilarityFloor
	class string
	dim   int
	count int

	released atomic.Bool
}

func (x *Index) Search(ctx context.Context, query string, k int) ([]docqa.ScoredChunk, error) {
	if k <= 0 || x.count == 0 {
		return nil, nil
	}

	q, err := x.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(q) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", docqa.ErrEmbeddingMismatch, len(q), x.dim)
	}

	results, err := x.sdk.QueryVectors(ctx, x.class, q, QueryConfig{Fields: chunkFields, Limit: k})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", docqa.ErrBackendUnavailable, err)
	}
	scored := ToScoredChunks(results, x.floor)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (x *Index) Len() int {
	return x.count
}

func (x *Index) Snapshot() docqa.IndexSnapshot {
	return docqa.IndexSnapshot{
		Backend:   Backend,
		Model:     x.emb.Model(),
		Dimension: x.dim,
		Ref:       x.class,
		Count:     x.count,
	}
}

// Release drops the session's class. Only the first call reaches Weaviate;
// a failed drop may be retried.
func (x *Index) Release(ctx context.Context) error {
	if !x.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := x.sdk.DeleteSchema(ctx, x.class); err != nil {
		x.released.Store(false)
		return err
	}
	return nil
}

// ToScoredChunks converts cosine distances to similarities, applies the
// floor and orders hits best first, breaking ties by chunk ordinal.
func ToScoredChunks(results []QueryResult, floor docqa.SimilarityFloor) []docqa.ScoredChunk {
	scored := make([]docqa.ScoredChunk, 0, len(results))
	for _, r := range results {
		s := 1 - r.Distance
		if floor.Enabled && s < floor.Min {
			continue
		}
		scored = append(scored, docqa.ScoredChunk{
			Chunk: docqa.Chunk{
				ID:      stringProp(r.Properties, "chunk_id"),
				Ordinal: intProp(r.Properties, "ordinal"),
				Page:    intProp(r.Properties, "page"),
				Offset:  intProp(r.Properties, "char_offset"),
				Text:    stringProp(r.Properties, "content"),
			},
			Score: s,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Ordinal < scored[j].Ordinal
	})
	return scored
}

func stringProp(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

// Numbers come back from GraphQL as float64.
func intProp(props map[string]interface{}, key string) int {
	switch v := props[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
