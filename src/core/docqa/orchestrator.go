package docqa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"docqa/src/log"
)

// Orchestrator drives the upload, question and reset transitions of a
// Session. It does not store sessions or serialize access to them.
type Orchestrator struct {
	cfg       Config
	decoder   Decoder
	chunker   *Chunker
	builder   IndexBuilder
	answerer  *AnswerGenerator
	verifier  *Verifier
	suggester *Suggester
	recorder  TurnRecorder
	logger    logr.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

// WithTurnRecorder sends every committed turn to r. Recording failures are
// logged and do not fail the turn.
func WithTurnRecorder(r TurnRecorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func NewOrchestrator(cfg Config, decoder Decoder, llm TextGenerator, builder IndexBuilder, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if decoder == nil || llm == nil || builder == nil {
		return nil, fmt.Errorf("%w: decoder, generator and index builder are required", ErrInvalidConfig)
	}

	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:       cfg,
		decoder:   decoder,
		chunker:   chunker,
		builder:   builder,
		answerer:  NewAnswerGenerator(llm, cfg.AnswerModel, cfg.AnswerTemperature, cfg.CallTimeout),
		verifier:  NewVerifier(llm, cfg.AnswerModel, cfg.AnswerTemperature, cfg.Verification, cfg.CallTimeout),
		suggester: NewSuggester(llm, cfg.SuggestionModel, cfg.SuggestionTemperature, cfg.SuggestionCharBudget, cfg.CallTimeout),
		logger:    log.WithName("orchestrator"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Upload decodes, chunks and indexes doc, then seeds the suggestions.
// A session that already holds an index is left untouched and
// ErrAlreadyIndexed is returned. Decode failures put the session back to
// empty; build failures leave it in PhaseIndexingFailed.
func (o *Orchestrator) Upload(ctx context.Context, s *Session, doc Upload) error {
	if s.Phase == PhaseReady {
		return ErrAlreadyIndexed
	}
	if o.cfg.MaxUploadBytes > 0 && int64(len(doc.Data)) > o.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrUploadTooLarge, len(doc.Data), o.cfg.MaxUploadBytes)
	}

	logger := o.logger.WithValues("session", s.ID, "document", doc.Name)
	begin := o.now()
	s.Phase = PhaseIndexing
	s.Status = fmt.Sprintf("Indexing %s...", doc.Name)
	s.FailureReason = ""
	s.UpdatedAt = begin

	pages, err := o.decoder.Decode(ctx, doc.Name, doc.Data)
	if err != nil {
		if !errors.Is(err, ErrBackendUnavailable) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		if errors.Is(err, ErrBackendUnavailable) {
			o.indexingFailed(s, err)
			return fmt.Errorf("failed to decode %s: %w", doc.Name, err)
		}
		if !errors.Is(err, ErrDecode) {
			err = fmt.Errorf("%w: %w", ErrDecode, err)
		}
		o.decodeFailed(s, doc.Name, err)
		logger.Error(err, "failed to decode document")
		return err
	}

	chunks := o.chunker.Split(pages)
	if len(chunks) == 0 {
		err := fmt.Errorf("%w: no extractable text in %s", ErrDecode, doc.Name)
		o.decodeFailed(s, doc.Name, err)
		logger.Error(err, "document is empty", "pages", len(pages))
		return err
	}
	logger.Info("document chunked", "pages", len(pages), "chunks", len(chunks))

	index, err := o.builder.Build(ctx, s.ID, chunks)
	if err != nil {
		o.indexingFailed(s, err)
		logger.Error(err, "failed to build index")
		return fmt.Errorf("failed to build index: %w", err)
	}

	seed := chunks
	if len(seed) > o.cfg.SeedChunks {
		seed = seed[:o.cfg.SeedChunks]
	}
	suggestions, err := o.suggester.Suggest(ctx, seed, nil, o.cfg.MaxSuggestions)
	if err != nil {
		o.release(ctx, index)
		o.indexingFailed(s, err)
		logger.Error(err, "failed to seed suggestions")
		return fmt.Errorf("failed to seed suggestions: %w", err)
	}

	s.Phase = PhaseReady
	s.Status = StatusReady
	s.Index = index
	s.DocumentName = doc.Name
	s.ChunkCount = len(chunks)
	s.Suggestions = suggestions
	s.UpdatedAt = o.now()
	logger.Info("document indexed", "chunks", len(chunks), "suggestions", len(suggestions), "elapsed", s.UpdatedAt.Sub(begin))
	return nil
}

func (o *Orchestrator) decodeFailed(s *Session, name string, err error) {
	s.Phase = PhaseEmpty
	s.Status = fmt.Sprintf("Could not read %s. %s", name, UserMessage(err))
	s.FailureReason = err.Error()
	s.UpdatedAt = o.now()
}

func (o *Orchestrator) indexingFailed(s *Session, err error) {
	s.Phase = PhaseIndexingFailed
	s.Status = "Indexing failed. " + UserMessage(err)
	s.FailureReason = err.Error()
	s.UpdatedAt = o.now()
}

// Ask answers text against the session's document. An empty text consumes
// the pending suggestion. On any error the session is left as it was.
func (o *Orchestrator) Ask(ctx context.Context, s *Session, text string) (*TurnResult, error) {
	if !s.Indexed() {
		return nil, ErrNotReady
	}
	question := strings.TrimSpace(text)
	if question == "" {
		question = strings.TrimSpace(s.PendingQuestion)
	}
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	logger := o.logger.WithValues("session", s.ID)
	hits, err := s.Index.Search(ctx, question, o.cfg.TopK)
	if err != nil {
		logger.Error(err, "retrieval failed")
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	result := &TurnResult{Question: question, Sources: hits}
	suggestions := s.Suggestions
	if len(hits) == 0 {
		result.Answer = NoAnswerText
		result.Verdict = VerdictNoEvidence
	} else {
		chunks := chunksOf(hits)
		draft, err := o.answerer.Generate(ctx, question, chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to generate answer: %w", err)
		}

		v := Verification{Answer: draft, Verdict: VerdictNoEvidence}
		if draft != NoAnswerText {
			v, err = o.verifier.Verify(ctx, question, chunks, draft)
			if err != nil {
				return nil, fmt.Errorf("failed to verify answer: %w", err)
			}
		}
		result.Answer = v.Answer
		result.Corrected = v.Corrected
		result.Verdict = v.Verdict

		asked := s.Asked
		if !s.HasAsked(question) {
			asked = append(append([]string(nil), s.Asked...), question)
		}
		suggestions, err = o.suggester.Suggest(ctx, chunks, asked, o.cfg.MaxSuggestions)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest questions: %w", err)
		}
	}

	if !s.HasAsked(question) {
		s.Asked = append(s.Asked, question)
	}
	s.History = append([]Turn{
		{Role: RoleUser, Text: question},
		{Role: RoleAssistant, Text: result.Answer},
	}, s.History...)
	s.Suggestions = suggestions
	s.PendingQuestion = ""
	s.UpdatedAt = o.now()
	result.Suggestions = suggestions

	logger.Info("turn answered", "verdict", result.Verdict, "corrected", result.Corrected, "sources", len(hits))
	o.record(ctx, s, result)
	return result, nil
}

// SelectSuggestion stores suggestion i as the pending question.
func (o *Orchestrator) SelectSuggestion(s *Session, i int) (string, error) {
	if i < 0 || i >= len(s.Suggestions) {
		return "", fmt.Errorf("%w: index %d of %d", ErrInvalidSuggestion, i, len(s.Suggestions))
	}
	s.PendingQuestion = s.Suggestions[i]
	s.UpdatedAt = o.now()
	return s.PendingQuestion, nil
}

// Reset releases the session's index and empties it.
func (o *Orchestrator) Reset(ctx context.Context, s *Session) {
	o.release(ctx, s.Index)
	s.Reset()
	s.UpdatedAt = o.now()
	o.logger.Info("session reset", "session", s.ID)
}

func (o *Orchestrator) release(ctx context.Context, index Index) {
	r, ok := index.(Releaser)
	if !ok {
		return
	}
	if err := r.Release(ctx); err != nil {
		o.logger.Error(err, "failed to release index")
	}
}

func (o *Orchestrator) record(ctx context.Context, s *Session, res *TurnResult) {
	if o.recorder == nil {
		return
	}
	ctx, cancel := withCallTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	err := o.recorder.RecordTurn(ctx, TurnRecord{
		SessionID: s.ID,
		Document:  s.DocumentName,
		Question:  res.Question,
		Answer:    res.Answer,
		Corrected: res.Corrected,
		Verdict:   res.Verdict,
		Sources:   len(res.Sources),
		At:        s.UpdatedAt,
	})
	if err != nil {
		o.logger.Error(err, "failed to record turn", "session", s.ID)
	}
}
