package docqa_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/docqa"
	"docqa/src/testutil"
)

type fixture struct {
	llm      *testutil.Generator
	embedder *testutil.Embedder
	recorder *testutil.Recorder
	orch     *docqa.Orchestrator
}

func newFixture(t *testing.T, decoder docqa.Decoder, mutate ...func(*docqa.Config)) *fixture {
	t.Helper()
	cfg := docqa.DefaultConfig()
	cfg.CallTimeout = 0
	for _, m := range mutate {
		m(&cfg)
	}

	f := &fixture{
		llm:      testutil.NewGenerator(),
		embedder: testutil.NewEmbedder(64),
		recorder: &testutil.Recorder{},
	}
	emb, err := docqa.NewEmbedding(f.embedder, "test-embed")
	require.NoError(t, err)

	f.orch, err = docqa.NewOrchestrator(cfg, decoder, f.llm, docqa.NewMemoryIndexBuilder(emb, cfg.Floor), docqa.WithTurnRecorder(f.recorder))
	require.NoError(t, err)
	return f
}

func parisDecoder() docqa.Decoder {
	return testutil.Decoder{Pages: testutil.Pages("Paris is the capital of France.")}
}

func (f *fixture) ready(t *testing.T) *docqa.Session {
	t.Helper()
	f.llm.Reply(docqa.PurposeSuggest, "1. Which river flows through Paris?\n2. What is the capital of France?")
	s := docqa.NewSession("s1")
	require.NoError(t, f.orch.Upload(context.Background(), s, docqa.Upload{Name: "paris.pdf", Data: []byte("%PDF")}))
	return s
}

func TestUploadIndexesAndSeedsSuggestions(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)

	assert.Equal(t, docqa.PhaseReady, s.Phase)
	assert.Equal(t, docqa.StatusReady, s.Status)
	assert.True(t, s.Indexed())
	assert.Equal(t, "paris.pdf", s.DocumentName)
	assert.Equal(t, 1, s.ChunkCount)
	assert.Equal(t, []string{"Which river flows through Paris?", "What is the capital of France?"}, s.Suggestions)
	assert.Equal(t, 1, f.llm.Calls(docqa.PurposeSuggest))
	assert.Equal(t, 1, f.embedder.Calls())
}

func TestUploadSeedUsesFirstChunks(t *testing.T) {
	pages := make([]string, 8)
	for i := range pages {
		pages[i] = "page marker " + string(rune('A'+i))
	}
	f := newFixture(t, testutil.Decoder{Pages: testutil.Pages(pages...)})
	f.llm.Reply(docqa.PurposeSuggest, "What?")

	s := docqa.NewSession("s1")
	require.NoError(t, f.orch.Upload(context.Background(), s, docqa.Upload{Name: "doc.pdf"}))

	req, ok := f.llm.Last(docqa.PurposeSuggest)
	require.True(t, ok)
	assert.Contains(t, req.Prompt, "page marker F")
	assert.NotContains(t, req.Prompt, "page marker G")
}

func TestUploadIgnoredWhenIndexed(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	before := *s
	calls := f.embedder.Calls()

	err := f.orch.Upload(context.Background(), s, docqa.Upload{Name: "other.pdf"})
	assert.ErrorIs(t, err, docqa.ErrAlreadyIndexed)
	assert.Equal(t, before, *s)
	assert.Equal(t, calls, f.embedder.Calls())
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name      string
		decoder   docqa.Decoder
		embedErr  error
		suggest   error
		wantErr   error
		wantPhase docqa.Phase
	}{
		{
			name:      "decode error",
			decoder:   testutil.Decoder{Err: errors.New("not a pdf")},
			wantErr:   docqa.ErrDecode,
			wantPhase: docqa.PhaseEmpty,
		},
		{
			name:      "no text",
			decoder:   testutil.Decoder{Pages: testutil.Pages("   ", "\n")},
			wantErr:   docqa.ErrDecode,
			wantPhase: docqa.PhaseEmpty,
		},
		{
			name:      "embedding backend down",
			decoder:   parisDecoder(),
			embedErr:  errors.New("connection refused"),
			wantErr:   docqa.ErrBackendUnavailable,
			wantPhase: docqa.PhaseIndexingFailed,
		},
		{
			name:      "suggestion backend down",
			decoder:   parisDecoder(),
			suggest:   errors.New("timeout"),
			wantErr:   docqa.ErrBackendUnavailable,
			wantPhase: docqa.PhaseIndexingFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.decoder)
			if tt.embedErr != nil {
				f.embedder.FailWith(tt.embedErr)
			}
			if tt.suggest != nil {
				f.llm.Fail(docqa.PurposeSuggest, tt.suggest)
			}

			s := docqa.NewSession("s1")
			err := f.orch.Upload(context.Background(), s, docqa.Upload{Name: "bad.pdf"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantPhase, s.Phase)
			assert.NotEmpty(t, s.FailureReason)
			assert.NotEqual(t, docqa.StatusAwaiting, s.Status)
			assert.Nil(t, s.Index)
			assert.False(t, s.Indexed())
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t, parisDecoder(), func(c *docqa.Config) { c.MaxUploadBytes = 4 })

	s := docqa.NewSession("s1")
	err := f.orch.Upload(context.Background(), s, docqa.Upload{Name: "big.pdf", Data: []byte("12345")})
	assert.ErrorIs(t, err, docqa.ErrUploadTooLarge)
	assert.Equal(t, docqa.PhaseEmpty, s.Phase)
	assert.Equal(t, docqa.StatusAwaiting, s.Status)
}

func TestAskDefinitionQuestion(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	f.llm.Reply(docqa.PurposeAnswer, "Paris is the capital of France.")
	f.llm.Reply(docqa.PurposeSuggest, "What is the capital of France?\nWhich country has Paris as its capital?")

	res, err := f.orch.Ask(context.Background(), s, "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "Paris is the capital of France.", res.Answer)
	assert.False(t, res.Corrected)
	assert.Equal(t, docqa.VerdictExempt, res.Verdict)
	assert.Zero(t, f.llm.Calls(docqa.PurposeVerify))
	require.Len(t, res.Sources, 1)

	assert.Equal(t, []docqa.Turn{
		{Role: docqa.RoleUser, Text: "What is the capital of France?"},
		{Role: docqa.RoleAssistant, Text: "Paris is the capital of France."},
	}, s.History)
	assert.Equal(t, []string{"What is the capital of France?"}, s.Asked)
	assert.Equal(t, []string{"Which country has Paris as its capital?"}, s.Suggestions)
	assert.Equal(t, res.Suggestions, s.Suggestions)

	require.Len(t, f.recorder.Records, 1)
	assert.Equal(t, "s1", f.recorder.Records[0].SessionID)
	assert.Equal(t, "paris.pdf", f.recorder.Records[0].Document)
}

func TestAskCorrectsUnsupportedAnswer(t *testing.T) {
	for _, mode := range []docqa.VerificationMode{docqa.VerifyStrict, docqa.VerifySubstring} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, parisDecoder(), func(c *docqa.Config) { c.Verification = mode })
			s := f.ready(t)
			f.llm.Reply(docqa.PurposeAnswer, "The main risk is flooding.")
			f.llm.Reply(docqa.PurposeVerify, "NO — not supported")

			res, err := f.orch.Ask(context.Background(), s, "Explain the main risk.")
			require.NoError(t, err)
			assert.Equal(t, docqa.UnsupportedText, res.Answer)
			assert.True(t, res.Corrected)
			assert.Equal(t, docqa.VerdictUnsupported, res.Verdict)
			assert.Equal(t, 1, f.llm.Calls(docqa.PurposeVerify))
			assert.Equal(t, docqa.UnsupportedText, s.History[1].Text)
		})
	}
}

func TestAskWithoutEvidence(t *testing.T) {
	f := newFixture(t, parisDecoder(), func(c *docqa.Config) {
		c.Floor = docqa.SimilarityFloor{Enabled: true, Min: 0.99}
	})
	s := f.ready(t)
	suggestions := s.Suggestions
	total := f.llm.Total()

	res, err := f.orch.Ask(context.Background(), s, "Describe the bread recipe.")
	require.NoError(t, err)
	assert.Equal(t, docqa.NoAnswerText, res.Answer)
	assert.Equal(t, docqa.VerdictNoEvidence, res.Verdict)
	assert.Empty(t, res.Sources)
	assert.Equal(t, total, f.llm.Total(), "no generation call without evidence")
	assert.Equal(t, suggestions, s.Suggestions)
	assert.Equal(t, docqa.NoAnswerText, s.History[1].Text)
}

func TestAskBackendFailureLeavesSessionUntouched(t *testing.T) {
	for _, p := range []docqa.Purpose{docqa.PurposeAnswer, docqa.PurposeVerify, docqa.PurposeSuggest} {
		t.Run(string(p), func(t *testing.T) {
			f := newFixture(t, parisDecoder())
			s := f.ready(t)
			s.PendingQuestion = s.Suggestions[0]
			f.llm.Reply(docqa.PurposeAnswer, "Some answer.")
			f.llm.Reply(docqa.PurposeVerify, "SUPPORTED")
			f.llm.Fail(p, errors.New("503 service unavailable"))

			before := *s
			_, err := f.orch.Ask(context.Background(), s, "Explain the city.")
			assert.ErrorIs(t, err, docqa.ErrBackendUnavailable)
			assert.Equal(t, docqa.UnavailableText, docqa.UserMessage(err))
			assert.Equal(t, before, *s)
			assert.Empty(t, f.recorder.Records)
		})
	}
}

func TestAskRetrievalFailure(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	f.embedder.FailWith(errors.New("connection reset"))

	before := *s
	_, err := f.orch.Ask(context.Background(), s, "Explain the city.")
	assert.ErrorIs(t, err, docqa.ErrBackendUnavailable)
	assert.Equal(t, before, *s)
}

func TestAskGuards(t *testing.T) {
	f := newFixture(t, parisDecoder())

	_, err := f.orch.Ask(context.Background(), docqa.NewSession("empty"), "What?")
	assert.ErrorIs(t, err, docqa.ErrNotReady)

	s := f.ready(t)
	_, err = f.orch.Ask(context.Background(), s, "   ")
	assert.ErrorIs(t, err, docqa.ErrEmptyQuestion)
}

func TestPendingSuggestionConsumedByNextTurn(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	f.llm.Reply(docqa.PurposeAnswer, "The Seine.")
	f.llm.Reply(docqa.PurposeVerify, "SUPPORTED")

	q, err := f.orch.SelectSuggestion(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "Which river flows through Paris?", q)
	assert.Equal(t, q, s.PendingQuestion)

	res, err := f.orch.Ask(context.Background(), s, "")
	require.NoError(t, err)
	assert.Equal(t, q, res.Question)
	assert.Equal(t, docqa.VerdictSupported, res.Verdict)
	assert.Empty(t, s.PendingQuestion)
	assert.Equal(t, []string{q}, s.Asked)

	_, err = f.orch.SelectSuggestion(s, 42)
	assert.ErrorIs(t, err, docqa.ErrInvalidSuggestion)
}

func TestTypedQuestionWinsOverPending(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	f.llm.Reply(docqa.PurposeAnswer, "Paris.")
	s.PendingQuestion = "Which river flows through Paris?"

	res, err := f.orch.Ask(context.Background(), s, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", res.Question)
	assert.Empty(t, s.PendingQuestion)
}

func TestHistoryMostRecentFirst(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	f.llm.Reply(docqa.PurposeAnswer, "Paris.")

	for _, q := range []string{"What is first?", "What is second?", "What is second?"} {
		_, err := f.orch.Ask(context.Background(), s, q)
		require.NoError(t, err)
	}

	require.Len(t, s.History, 6)
	assert.Equal(t, "What is second?", s.History[0].Text)
	assert.Equal(t, "What is first?", s.History[4].Text)
	assert.Equal(t, []string{"What is first?", "What is second?"}, s.Asked)
}

func TestResetAfterConversation(t *testing.T) {
	f := newFixture(t, parisDecoder())
	s := f.ready(t)
	f.llm.Reply(docqa.PurposeAnswer, "Paris.")
	_, err := f.orch.Ask(context.Background(), s, "What is the capital?")
	require.NoError(t, err)

	f.orch.Reset(context.Background(), s)
	assert.Equal(t, docqa.PhaseEmpty, s.Phase)
	assert.Equal(t, docqa.StatusAwaiting, s.Status)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Asked)
	assert.Empty(t, s.Suggestions)

	f.llm.Reply(docqa.PurposeSuggest, "What?")
	require.NoError(t, f.orch.Upload(context.Background(), s, docqa.Upload{Name: "again.pdf"}))
	assert.Equal(t, docqa.PhaseReady, s.Phase)
}

func TestNewOrchestratorValidatesConfig(t *testing.T) {
	cfg := docqa.DefaultConfig()
	cfg.ChunkOverlap = cfg.ChunkSize

	emb, err := docqa.NewEmbedding(testutil.NewEmbedder(8), "m")
	require.NoError(t, err)
	_, err = docqa.NewOrchestrator(cfg, parisDecoder(), testutil.NewGenerator(), docqa.NewMemoryIndexBuilder(emb, cfg.Floor))
	assert.ErrorIs(t, err, docqa.ErrInvalidConfig)
}
