package docqa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// complete runs one generation call under the per-call timeout. Failures
// are reported as ErrBackendUnavailable.
func complete(ctx context.Context, llm TextGenerator, timeout time.Duration, logger logr.Logger, req GenerationRequest) (string, error) {
	ctx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()

	begin := time.Now()
	out, err := llm.Complete(ctx, req)
	if err != nil {
		logger.Error(err, "generation failed", "purpose", req.Purpose, "model", req.Model, "elapsed", time.Since(begin))
		return "", fmt.Errorf("%w: %s generation: %w", ErrBackendUnavailable, req.Purpose, err)
	}
	logger.V(1).Info("generation done", "purpose", req.Purpose, "model", req.Model, "elapsed", time.Since(begin), "chars", len(out))
	return out, nil
}

func joinChunks(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
