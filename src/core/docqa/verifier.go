package docqa

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"docqa/src/log"
)

type Verdict string

const (
	VerdictSupported   Verdict = "supported"
	VerdictUnsupported Verdict = "unsupported"
	// VerdictExempt marks definition questions, which are not checked.
	VerdictExempt Verdict = "exempt"
	// VerdictNoEvidence marks turns where retrieval found nothing.
	VerdictNoEvidence Verdict = "no_evidence"
)

var definitionPrefixes = []string{"who", "what", "where", "when"}

// IsDefinitionQuestion reports whether q starts with who, what, where or
// when, ignoring case and surrounding whitespace. The check is a plain
// prefix match, so "whatever" counts as well.
func IsDefinitionQuestion(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	for _, p := range definitionPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// ParseVerdict interprets a verification judgment.
func ParseVerdict(mode VerificationMode, judgment string) Verdict {
	if mode == VerifySubstring {
		if strings.Contains(strings.ToLower(judgment), "no") {
			return VerdictUnsupported
		}
		return VerdictSupported
	}

	token := strings.ToUpper(strings.Trim(strings.TrimSpace(judgment), ".!*\"'` "))
	if token == "SUPPORTED" {
		return VerdictSupported
	}
	return VerdictUnsupported
}

type Verification struct {
	Answer    string
	Corrected bool
	Verdict   Verdict
	Judgment  string
}

// Verifier checks a draft answer against the evidence it was drawn from.
type Verifier struct {
	llm         TextGenerator
	model       string
	temperature float64
	mode        VerificationMode
	timeout     time.Duration
	logger      logr.Logger
}

func NewVerifier(llm TextGenerator, model string, temperature float64, mode VerificationMode, timeout time.Duration) *Verifier {
	if mode == "" {
		mode = VerifyStrict
	}
	return &Verifier{
		llm:         llm,
		model:       model,
		temperature: temperature,
		mode:        mode,
		timeout:     timeout,
		logger:      log.WithName("verifier"),
	}
}

// Verify returns the answer unchanged when the evidence supports it and
// UnsupportedText otherwise. Definition questions skip the check.
func (v *Verifier) Verify(ctx context.Context, question string, chunks []Chunk, answer string) (Verification, error) {
	if IsDefinitionQuestion(question) {
		return Verification{Answer: answer, Verdict: VerdictExempt}, nil
	}

	prompt, err := render(verifyPrompt, verifyData{
		Context:  joinChunks(chunks),
		Question: question,
		Answer:   answer,
		Strict:   v.mode == VerifyStrict,
	})
	if err != nil {
		return Verification{}, err
	}

	judgment, err := complete(ctx, v.llm, v.timeout, v.logger, GenerationRequest{
		Purpose:     PurposeVerify,
		Model:       v.model,
		Prompt:      prompt,
		Temperature: v.temperature,
	})
	if err != nil {
		return Verification{}, err
	}

	verdict := ParseVerdict(v.mode, judgment)
	v.logger.V(1).Info("verified answer", "verdict", verdict, "mode", v.mode, "judgment", strings.TrimSpace(judgment))
	if verdict == VerdictUnsupported {
		return Verification{Answer: UnsupportedText, Corrected: true, Verdict: verdict, Judgment: judgment}, nil
	}
	return Verification{Answer: answer, Verdict: verdict, Judgment: judgment}, nil
}
