package docqa

import "time"

// Page is the decoded text of one document page. Numbers start at 1.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk is a contiguous span of one page. Offset counts runes from the start
// of the page.
type Chunk struct {
	ID      string `json:"id"`
	Ordinal int    `json:"ordinal"`
	Page    int    `json:"page"`
	Offset  int    `json:"offset"`
	Text    string `json:"text"`
}

// ScoredChunk is a retrieval hit. Higher scores are more similar.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one chat message.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Upload is a document handed over by a chat surface.
type Upload struct {
	Name string
	Data []byte
}

// TurnResult describes one answered question.
type TurnResult struct {
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	Corrected   bool          `json:"corrected"`
	Verdict     Verdict       `json:"verdict"`
	Sources     []ScoredChunk `json:"sources"`
	Suggestions []string      `json:"suggestions"`
}

// TurnRecord is what a TurnRecorder receives after each committed turn.
type TurnRecord struct {
	SessionID string
	Document  string
	Question  string
	Answer    string
	Corrected bool
	Verdict   Verdict
	Sources   int
	At        time.Time
}

func chunksOf(scored []ScoredChunk) []Chunk {
	out := make([]Chunk, len(scored))
	for i, s := range scored {
		out[i] = s.Chunk
	}
	return out
}
