package docqa

import "context"

// Purpose tags a generation request with the pipeline step issuing it.
type Purpose string

const (
	PurposeAnswer  Purpose = "answer"
	PurposeVerify  Purpose = "verify"
	PurposeSuggest Purpose = "suggest"
)

type GenerationRequest struct {
	Purpose     Purpose
	Model       string
	Prompt      string
	Temperature float64
}

// TextGenerator is a language model backend.
type TextGenerator interface {
	Complete(ctx context.Context, req GenerationRequest) (string, error)
}

// EmbeddingBackend turns text into a vector with the named model.
type EmbeddingBackend interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// Decoder extracts page text from an uploaded document.
type Decoder interface {
	Decode(ctx context.Context, name string, data []byte) ([]Page, error)
}

// Index answers similarity queries over the chunks of one document.
type Index interface {
	Search(ctx context.Context, query string, k int) ([]ScoredChunk, error)
	Len() int
	Snapshot() IndexSnapshot
}

// Releaser is implemented by indexes holding external resources.
type Releaser interface {
	Release(ctx context.Context) error
}

// IndexBuilder creates an index for a session and restores persisted ones.
type IndexBuilder interface {
	Build(ctx context.Context, sessionID string, chunks []Chunk) (Index, error)
	Restore(ctx context.Context, snap IndexSnapshot) (Index, error)
}

// IndexSnapshot is the persisted form of an index. Ref names backend-side
// storage for remote indexes; in-memory indexes carry their entries.
type IndexSnapshot struct {
	Backend   string       `json:"backend"`
	Model     string       `json:"model"`
	Dimension int          `json:"dimension"`
	Ref       string       `json:"ref,omitempty"`
	Count     int          `json:"count"`
	Entries   []IndexEntry `json:"entries,omitempty"`
}

type IndexEntry struct {
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// ProgressFunc reports index build progress.
type ProgressFunc func(done, total int)

// SessionStore keeps session state between turns. Load returns
// ErrSessionNotFound for unknown ids.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type TurnRecorder interface {
	RecordTurn(ctx context.Context, rec TurnRecord) error
}
