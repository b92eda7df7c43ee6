package langchain

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/src/core/docqa"
)

// Client adapts an OpenAI-compatible endpoint through langchaingo.
type Client struct {
	llm  *openai.LLM
	opts []openai.Option

	mu        sync.Mutex
	embedders map[string]*embeddings.EmbedderImpl
}

var (
	_ docqa.TextGenerator    = (*Client)(nil)
	_ docqa.EmbeddingBackend = (*Client)(nil)
)

// NewOpenAI creates a client. An empty token falls back to OPENAI_API_KEY,
// an empty baseURL to the public API.
func NewOpenAI(token, baseURL, defaultModel string) (*Client, error) {
	var opts []openai.Option
	if token != "" {
		opts = append(opts, openai.WithToken(token))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(append([]openai.Option{openai.WithModel(defaultModel)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &Client{
		llm:       llm,
		opts:      opts,
		embedders: make(map[string]*embeddings.EmbedderImpl),
	}, nil
}

func (c *Client) Complete(ctx context.Context, req docqa.GenerationRequest) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, req.Prompt,
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	return out, nil
}

func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	e, err := c.embedder(model)
	if err != nil {
		return nil, err
	}
	v, err := e.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	return v, nil
}

func (c *Client) embedder(model string) (*embeddings.EmbedderImpl, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.embedders[model]; ok {
		return e, nil
	}

	opts := make([]openai.Option, 0, len(c.opts)+1)
	opts = append(opts, c.opts...)
	opts = append(opts, openai.WithEmbeddingModel(model))
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai embedding client: %w", err)
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	c.embedders[model] = e
	return e, nil
}
