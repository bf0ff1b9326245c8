package rag

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"docvault/internal/ai"
)

// ModelClient is the capability the pipeline and query engine need from a model provider.
type ModelClient interface {
	Summarize(ctx context.Context, unit PageUnit) (string, error)
	Embed(ctx context.Context, text string) ([][]float32, error)
}

// Embedder is the query-side subset of ModelClient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([][]float32, error)
}

type ClientConfig struct {
	Chat              ai.ChatConfig
	Vision            ai.ChatConfig
	Embedding         ai.EmbeddingConfig
	Prompt            string
	MaxTokensPerChunk int
	Dimension         int
	BatchSize         int
	Timeout           time.Duration
}

// Client implements ModelClient on top of an OpenAI-compatible provider.
type Client struct {
	llm *ai.OpenAICompatibleClient
	cfg ClientConfig
}

func NewClient(llm *ai.OpenAICompatibleClient, cfg ClientConfig) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxTokensPerChunk <= 0 {
		cfg.MaxTokensPerChunk = 256
	}
	return &Client{llm: llm, cfg: cfg}
}

func (c *Client) Summarize(ctx context.Context, unit PageUnit) (string, error) {
	var (
		chatCfg  ai.ChatConfig
		messages []ai.ChatMessage
	)
	switch unit.Kind {
	case UnitText:
		chatCfg = c.cfg.Chat
		messages = []ai.ChatMessage{{Role: "user", Content: c.cfg.Prompt + "\n\n" + unit.Text}}
	case UnitImage:
		if len(unit.Image) == 0 {
			return "", fmt.Errorf("%w: empty page image", ErrSummarization)
		}
		mime := unit.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		chatCfg = c.cfg.Vision
		messages = []ai.ChatMessage{{
			Role: "user",
			Content: []ai.ContentPart{
				{Type: "text", Text: c.cfg.Prompt},
				{Type: "image_url", ImageURL: &ai.ImageURL{
					URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(unit.Image),
				}},
			},
		}}
	default:
		return "", fmt.Errorf("%w: unknown page unit kind %d", ErrSummarization, unit.Kind)
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.llm.Complete(callCtx, chatCfg, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummarization, err)
	}
	summary := strings.TrimSpace(out)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", ErrSummarization)
	}
	return summary, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([][]float32, error) {
	chunks := SplitTokens(text, c.cfg.MaxTokensPerChunk)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no tokens to embed", ErrEmbedding)
	}

	vectors := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += c.cfg.BatchSize {
		end := i + c.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := c.embedBatch(ctx, chunks[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}
	for i, v := range vectors {
		if c.cfg.Dimension > 0 && len(v) != c.cfg.Dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrEmbedding, i, len(v), c.cfg.Dimension)
		}
	}
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, chunks []string) ([][]float32, error) {
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	vectors, err := c.llm.EmbedBatch(callCtx, c.cfg.Embedding, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	return vectors, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
