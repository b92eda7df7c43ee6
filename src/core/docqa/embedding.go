package docqa

import (
	"context"
	"fmt"
	"time"
)

// Embedding binds an embedding backend to one model. Every index built or
// queried through the same Embedding uses the same model, so documents and
// questions always live in the same vector space.
type Embedding struct {
	backend EmbeddingBackend
	model   string
	timeout time.Duration
}

type EmbeddingOption func(*Embedding)

func WithEmbeddingTimeout(d time.Duration) EmbeddingOption {
	return func(e *Embedding) {
		e.timeout = d
	}
}

func NewEmbedding(backend EmbeddingBackend, model string, opts ...EmbeddingOption) (*Embedding, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: embedding backend is required", ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", ErrInvalidConfig)
	}

	e := &Embedding{backend: backend, model: model}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Embedding) Model() string {
	return e.model
}

func (e *Embedding) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withCallTimeout(ctx, e.timeout)
	defer cancel()

	v, err := e.backend.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding with %s: %w", ErrBackendUnavailable, e.model, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty embedding", ErrBackendUnavailable, e.model)
	}
	return v, nil
}
