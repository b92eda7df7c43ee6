package docqa_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/docqa"
	"docqa/src/testutil"
)

func TestAnswerGeneratorEmptyContext(t *testing.T) {
	llm := testutil.NewGenerator().Reply(docqa.PurposeAnswer, "should not be used")
	g := docqa.NewAnswerGenerator(llm, "answer-model", 0, 0)

	answer, err := g.Generate(context.Background(), "Anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, docqa.NoAnswerText, answer)
	assert.Zero(t, llm.Total())
}

func TestAnswerGeneratorPrompt(t *testing.T) {
	llm := testutil.NewGenerator().Reply(docqa.PurposeAnswer, "  Paris is the capital of France.\n")
	g := docqa.NewAnswerGenerator(llm, "answer-model", 0, 0)

	chunks := []docqa.Chunk{chunk(0, "first chunk"), chunk(1, "second chunk")}
	answer, err := g.Generate(context.Background(), "What is the capital of France?", chunks)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", answer)

	req, ok := llm.Last(docqa.PurposeAnswer)
	require.True(t, ok)
	assert.Equal(t, "answer-model", req.Model)
	assert.Zero(t, req.Temperature)
	assert.Contains(t, req.Prompt, "first chunk\n\nsecond chunk")
	assert.Contains(t, req.Prompt, "What is the capital of France?")
	assert.True(t, strings.HasPrefix(req.Prompt, "Answer in ONE sentence."))
}

func TestAnswerGeneratorBackendFailure(t *testing.T) {
	llm := testutil.NewGenerator().Fail(docqa.PurposeAnswer, errors.New("timeout"))
	g := docqa.NewAnswerGenerator(llm, "answer-model", 0, 0)

	_, err := g.Generate(context.Background(), "Why?", []docqa.Chunk{chunk(0, "text")})
	assert.ErrorIs(t, err, docqa.ErrBackendUnavailable)
	assert.Equal(t, docqa.UnavailableText, docqa.UserMessage(err))
}
