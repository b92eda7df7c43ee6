package docqa

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"docqa/src/log"
)

var listMarker = regexp.MustCompile(`^[\d\.\-•\*]+\s*`)

// Suggester proposes follow-up questions answerable from a set of chunks.
type Suggester struct {
	llm         TextGenerator
	model       string
	temperature float64
	budget      int
	timeout     time.Duration
	logger      logr.Logger
}

func NewSuggester(llm TextGenerator, model string, temperature float64, budget int, timeout time.Duration) *Suggester {
	return &Suggester{
		llm:         llm,
		model:       model,
		temperature: temperature,
		budget:      budget,
		timeout:     timeout,
		logger:      log.WithName("suggester"),
	}
}

// Suggest returns at most n new questions. None of them is in asked and
// none repeats. Fewer than n is normal.
func (s *Suggester) Suggest(ctx context.Context, chunks []Chunk, asked []string, n int) ([]string, error) {
	if n <= 0 || len(chunks) == 0 {
		return nil, nil
	}

	prompt, err := render(suggestPrompt, suggestData{
		Count: n,
		Asked: asked,
		Text:  truncateRunes(joinChunks(chunks), s.budget),
	})
	if err != nil {
		return nil, err
	}

	out, err := complete(ctx, s.llm, s.timeout, s.logger, GenerationRequest{
		Purpose:     PurposeSuggest,
		Model:       s.model,
		Prompt:      prompt,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, err
	}
	return parseSuggestions(out, asked, n), nil
}

func parseSuggestions(raw string, asked []string, n int) []string {
	seen := make(map[string]struct{}, len(asked))
	for _, q := range asked {
		seen[q] = struct{}{}
	}

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		q := strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if !strings.HasSuffix(q, "?") {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}
