package docqa

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"docqa/src/log"
)

// AnswerGenerator produces a one-sentence answer grounded in retrieved
// chunks.
type AnswerGenerator struct {
	llm         TextGenerator
	model       string
	temperature float64
	timeout     time.Duration
	logger      logr.Logger
}

func NewAnswerGenerator(llm TextGenerator, model string, temperature float64, timeout time.Duration) *AnswerGenerator {
	return &AnswerGenerator{
		llm:         llm,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      log.WithName("answer"),
	}
}

// Generate answers question from chunks. With no chunks it returns
// NoAnswerText without calling the backend.
func (g *AnswerGenerator) Generate(ctx context.Context, question string, chunks []Chunk) (string, error) {
	if len(chunks) == 0 {
		return NoAnswerText, nil
	}

	prompt, err := render(answerPrompt, answerData{
		Context:  joinChunks(chunks),
		Question: question,
	})
	if err != nil {
		return "", err
	}

	out, err := complete(ctx, g.llm, g.timeout, g.logger, GenerationRequest{
		Purpose:     PurposeAnswer,
		Model:       g.model,
		Prompt:      prompt,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(out)
	if answer == "" {
		return NoAnswerText, nil
	}
	return answer, nil
}
