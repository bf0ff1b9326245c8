package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/ai"
)

type fakeProvider struct {
	mu         sync.Mutex
	prompts    []any
	models     []string
	batchSizes []int
	summary    string
	dimension  int
	delay      time.Duration
}

func (p *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if p.delay > 0 {
			select {
			case <-time.After(p.delay):
			case <-r.Context().Done():
				return
			}
		}
		var body struct {
			Model    string           `json:"model"`
			Messages []map[string]any `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.mu.Lock()
		p.models = append(p.models, body.Model)
		p.prompts = append(p.prompts, body.Messages[0]["content"])
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": p.summary}}},
		})
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.mu.Lock()
		p.batchSizes = append(p.batchSizes, len(body.Input))
		p.mu.Unlock()
		data := make([]any, len(body.Input))
		for i := range body.Input {
			vec := make([]float32, p.dimension)
			vec[0] = float32(i + 1)
			data[i] = map[string]any{"index": i, "embedding": vec}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	return mux
}

func newTestClient(t *testing.T, p *fakeProvider, cfg ClientConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(p.handler(t))
	t.Cleanup(srv.Close)

	cfg.Chat = ai.ChatConfig{BaseURL: srv.URL, Model: "text-model"}
	cfg.Vision = ai.ChatConfig{BaseURL: srv.URL, Model: "vision-model"}
	cfg.Embedding = ai.EmbeddingConfig{BaseURL: srv.URL, Model: "embed-model"}
	return NewClient(ai.NewOpenAICompatibleClientWithHTTP(srv.Client()), cfg)
}

func TestClientSummarizeText(t *testing.T) {
	p := &fakeProvider{summary: "  the summary \n"}
	c := newTestClient(t, p, ClientConfig{Prompt: "Summarize."})

	out, err := c.Summarize(context.Background(), PageUnit{Kind: UnitText, Text: "page body"})
	require.NoError(t, err)
	assert.Equal(t, "the summary", out)
	assert.Equal(t, []string{"text-model"}, p.models)
	assert.Equal(t, "Summarize.\n\npage body", p.prompts[0])
}

func TestClientSummarizeImage(t *testing.T) {
	p := &fakeProvider{summary: "a chart"}
	c := newTestClient(t, p, ClientConfig{Prompt: "Summarize."})

	_, err := c.Summarize(context.Background(), PageUnit{Kind: UnitImage, Image: []byte{1, 2, 3}, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vision-model"}, p.models)

	parts := p.prompts[0].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "Summarize.", parts[0].(map[string]any)["text"])
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,AQID", url)
}

func TestClientSummarizeEmptyResponse(t *testing.T) {
	p := &fakeProvider{summary: "   "}
	c := newTestClient(t, p, ClientConfig{Prompt: "Summarize."})

	_, err := c.Summarize(context.Background(), PageUnit{Kind: UnitText, Text: "x"})
	assert.ErrorIs(t, err, ErrSummarization)
}

func TestClientSummarizeTimeout(t *testing.T) {
	p := &fakeProvider{summary: "late", delay: time.Second}
	c := newTestClient(t, p, ClientConfig{Prompt: "Summarize.", Timeout: 20 * time.Millisecond})

	_, err := c.Summarize(context.Background(), PageUnit{Kind: UnitText, Text: "x"})
	assert.ErrorIs(t, err, ErrSummarization)
}

func TestClientEmbedChunksAndBatches(t *testing.T) {
	p := &fakeProvider{dimension: 4}
	c := newTestClient(t, p, ClientConfig{MaxTokensPerChunk: 3, BatchSize: 2, Dimension: 4})

	text := strings.Repeat("tok ", 13)
	vectors, err := c.Embed(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, p.batchSizes)
	for _, v := range vectors {
		assert.Len(t, v, 4)
	}
}

func TestClientEmbedDimensionMismatch(t *testing.T) {
	p := &fakeProvider{dimension: 3}
	c := newTestClient(t, p, ClientConfig{Dimension: 768})

	_, err := c.Embed(context.Background(), "short text")
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestClientEmbedEmptyText(t *testing.T) {
	c := newTestClient(t, &fakeProvider{dimension: 3}, ClientConfig{})
	_, err := c.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmbedding)
}
