package docqa

import (
	"fmt"
	"time"
)

type VerificationMode string

const (
	// VerifyStrict expects a single SUPPORTED or UNSUPPORTED token. Anything
	// else counts as unsupported.
	VerifyStrict VerificationMode = "strict"
	// VerifySubstring treats any judgment containing "no" as unsupported.
	VerifySubstring VerificationMode = "substring"
)

// SimilarityFloor drops retrieval hits scoring below Min when Enabled.
type SimilarityFloor struct {
	Enabled bool
	Min     float64
}

// Config holds the tunables of the answer pipeline.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Floor        SimilarityFloor

	MaxSuggestions       int
	SuggestionCharBudget int
	SeedChunks           int
	HistoryTurns         int

	AnswerModel           string
	AnswerTemperature     float64
	SuggestionModel       string
	SuggestionTemperature float64

	Verification   VerificationMode
	CallTimeout    time.Duration
	MaxUploadBytes int64
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:             1000,
		ChunkOverlap:          150,
		TopK:                  6,
		MaxSuggestions:        5,
		SuggestionCharBudget:  3000,
		SeedChunks:            6,
		HistoryTurns:          5,
		AnswerModel:           "llama3.1",
		AnswerTemperature:     0,
		SuggestionModel:       "llama3.1",
		SuggestionTemperature: 0.7,
		Verification:          VerifyStrict,
		CallTimeout:           60 * time.Second,
		MaxUploadBytes:        32 << 20,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top k must be positive, got %d", ErrInvalidConfig, c.TopK)
	case c.MaxSuggestions < 0:
		return fmt.Errorf("%w: max suggestions must not be negative", ErrInvalidConfig)
	case c.SuggestionCharBudget <= 0:
		return fmt.Errorf("%w: suggestion budget must be positive", ErrInvalidConfig)
	case c.SeedChunks <= 0:
		return fmt.Errorf("%w: seed chunks must be positive", ErrInvalidConfig)
	case c.HistoryTurns <= 0:
		return fmt.Errorf("%w: history turns must be positive", ErrInvalidConfig)
	case c.AnswerModel == "" || c.SuggestionModel == "":
		return fmt.Errorf("%w: answer and suggestion models are required", ErrInvalidConfig)
	case c.Verification != VerifyStrict && c.Verification != VerifySubstring:
		return fmt.Errorf("%w: unknown verification mode %q", ErrInvalidConfig, c.Verification)
	}
	return nil
}
