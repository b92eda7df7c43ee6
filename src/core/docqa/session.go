package docqa

import (
	"time"
)

// Phase is the indexing state of a session.
type Phase string

const (
	PhaseEmpty          Phase = "empty"
	PhaseIndexing       Phase = "indexing"
	PhaseReady          Phase = "ready"
	PhaseIndexingFailed Phase = "indexing_failed"
)

// Session is the state of one user's conversation about one document.
// History is kept most recent first.
type Session struct {
	ID              string    `json:"id"`
	Phase           Phase     `json:"phase"`
	Status          string    `json:"status"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	Index           Index     `json:"-"`
	DocumentName    string    `json:"document_name,omitempty"`
	ChunkCount      int       `json:"chunk_count"`
	History         []Turn    `json:"history"`
	Suggestions     []string  `json:"suggestions"`
	Asked           []string  `json:"asked"`
	PendingQuestion string    `json:"pending_question,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	s := &Session{ID: id}
	s.Reset()
	s.UpdatedAt = time.Now()
	return s
}

// Reset returns the session to the empty phase. The index reference is
// dropped; releasing backend resources is the caller's job.
func (s *Session) Reset() {
	s.Phase = PhaseEmpty
	s.Status = StatusAwaiting
	s.FailureReason = ""
	s.Index = nil
	s.DocumentName = ""
	s.ChunkCount = 0
	s.History = nil
	s.Suggestions = nil
	s.Asked = nil
	s.PendingQuestion = ""
}

func (s *Session) Indexed() bool {
	return s.Phase == PhaseReady && s.Index != nil
}

// HasAsked reports whether q was already asked in this session.
func (s *Session) HasAsked(q string) bool {
	for _, a := range s.Asked {
		if a == q {
			return true
		}
	}
	return false
}

// RecentHistory returns the messages of the last turns exchanges, most
// recent first.
func (s *Session) RecentHistory(turns int) []Turn {
	n := turns * 2
	if n > len(s.History) {
		n = len(s.History)
	}
	out := make([]Turn, n)
	copy(out, s.History[:n])
	return out
}

// View is the read model handed to chat surfaces.
type View struct {
	ID              string   `json:"id"`
	Phase           Phase    `json:"phase"`
	Status          string   `json:"status"`
	FailureReason   string   `json:"failure_reason,omitempty"`
	DocumentName    string   `json:"document_name,omitempty"`
	ChunkCount      int      `json:"chunk_count"`
	History         []Turn   `json:"history"`
	Suggestions     []string `json:"suggestions"`
	PendingQuestion string   `json:"pending_question,omitempty"`
}

func (s *Session) View(historyTurns int) View {
	suggestions := make([]string, len(s.Suggestions))
	copy(suggestions, s.Suggestions)
	return View{
		ID:              s.ID,
		Phase:           s.Phase,
		Status:          s.Status,
		FailureReason:   s.FailureReason,
		DocumentName:    s.DocumentName,
		ChunkCount:      s.ChunkCount,
		History:         s.RecentHistory(historyTurns),
		Suggestions:     suggestions,
		PendingQuestion: s.PendingQuestion,
	}
}
