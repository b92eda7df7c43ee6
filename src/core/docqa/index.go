package docqa

import (
	"context"
	"fmt"
	"math"
	"sort"
)

const MemoryBackend = "memory"

// MemoryIndex is a brute-force cosine index held in process memory.
type MemoryIndex struct {
	entries []IndexEntry
	emb     *Embedding
	floor   SimilarityFloor
	dim     int
}

type buildOptions struct {
	progress ProgressFunc
}

type BuildOption func(*buildOptions)

// WithBuildProgress reports every embedded chunk to fn.
func WithBuildProgress(fn ProgressFunc) BuildOption {
	return func(o *buildOptions) {
		o.progress = fn
	}
}

// EmbedChunks embeds chunks one at a time in document order. All vectors
// must share a dimension.
func EmbedChunks(ctx context.Context, chunks []Chunk, emb *Embedding, opts ...BuildOption) ([]IndexEntry, int, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]IndexEntry, 0, len(chunks))
	dim := 0
	for i, c := range chunks {
		v, err := emb.Embed(ctx, c.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to embed chunk %s: %w", c.ID, err)
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, 0, fmt.Errorf("%w: chunk %s has dimension %d, want %d", ErrEmbeddingMismatch, c.ID, len(v), dim)
		}
		entries = append(entries, IndexEntry{Chunk: c, Vector: v})
		if o.progress != nil {
			o.progress(i+1, len(chunks))
		}
	}
	return entries, dim, nil
}

func BuildMemoryIndex(ctx context.Context, chunks []Chunk, emb *Embedding, floor SimilarityFloor, opts ...BuildOption) (*MemoryIndex, error) {
	entries, dim, err := EmbedChunks(ctx, chunks, emb, opts...)
	if err != nil {
		return nil, err
	}
	return &MemoryIndex{entries: entries, emb: emb, floor: floor, dim: dim}, nil
}

// RestoreMemoryIndex rebuilds an index from a snapshot without calling the
// embedding backend. The snapshot must have been built with emb's model.
func RestoreMemoryIndex(snap IndexSnapshot, emb *Embedding, floor SimilarityFloor) (*MemoryIndex, error) {
	if snap.Backend != MemoryBackend {
		return nil, fmt.Errorf("cannot restore %q snapshot into memory index", snap.Backend)
	}
	if snap.Model != emb.Model() {
		return nil, fmt.Errorf("%w: index built with %s, embedder uses %s", ErrEmbeddingMismatch, snap.Model, emb.Model())
	}
	for _, e := range snap.Entries {
		if len(e.Vector) != snap.Dimension {
			return nil, fmt.Errorf("%w: entry %s has dimension %d, want %d", ErrEmbeddingMismatch, e.Chunk.ID, len(e.Vector), snap.Dimension)
		}
	}
	entries := make([]IndexEntry, len(snap.Entries))
	copy(entries, snap.Entries)
	return &MemoryIndex{entries: entries, emb: emb, floor: floor, dim: snap.Dimension}, nil
}

// Search returns the k chunks most similar to query, best first. Equal
// scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}

	q, err := m.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(q) != m.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrEmbeddingMismatch, len(q), m.dim)
	}

	scored := make([]ScoredChunk, 0, len(m.entries))
	for _, e := range m.entries {
		s := Cosine(q, e.Vector)
		if m.floor.Enabled && s < m.floor.Min {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: e.Chunk, Score: s})
	}
	RankScored(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryIndex) Len() int {
	return len(m.entries)
}

func (m *MemoryIndex) Snapshot() IndexSnapshot {
	entries := make([]IndexEntry, len(m.entries))
	copy(entries, m.entries)
	return IndexSnapshot{
		Backend:   MemoryBackend,
		Model:     m.emb.Model(),
		Dimension: m.dim,
		Count:     len(entries),
		Entries:   entries,
	}
}

// RankScored orders hits by descending score, keeping the existing order
// for ties.
func RankScored(scored []ScoredChunk) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MemoryIndexBuilder builds a MemoryIndex per session.
type MemoryIndexBuilder struct {
	emb   *Embedding
	floor SimilarityFloor
	opts  []BuildOption
}

func NewMemoryIndexBuilder(emb *Embedding, floor SimilarityFloor, opts ...BuildOption) *MemoryIndexBuilder {
	return &MemoryIndexBuilder{emb: emb, floor: floor, opts: opts}
}

func (b *MemoryIndexBuilder) Build(ctx context.Context, _ string, chunks []Chunk) (Index, error) {
	return BuildMemoryIndex(ctx, chunks, b.emb, b.floor, b.opts...)
}

func (b *MemoryIndexBuilder) Restore(_ context.Context, snap IndexSnapshot) (Index, error) {
	return RestoreMemoryIndex(snap, b.emb, b.floor)
}
