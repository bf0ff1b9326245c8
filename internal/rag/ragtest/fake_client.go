// Package ragtest provides in-memory stand-ins for the model provider and the page store.
package ragtest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"docvault/internal/rag"
)

var ErrInjected = errors.New("injected failure")

// FakeClient is a deterministic rag.ModelClient. Text units summarize to their own text and
// image units to a digest of their bytes; chunks embed to a hash-derived vector unless Vectors
// has an entry for the chunk text.
type FakeClient struct {
	Dimension         int
	MaxTokensPerChunk int
	Summaries         map[string]string
	Vectors           map[string][]float32

	// FailSummarizeCall makes the n-th Summarize call (1-based) fail. Zero disables it.
	FailSummarizeCall int
	FailEmbed         bool

	mu             sync.Mutex
	summarizeCalls int
	embedCalls     int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Dimension:         8,
		MaxTokensPerChunk: 256,
		Summaries:         map[string]string{},
		Vectors:           map[string][]float32{},
	}
}

func (f *FakeClient) Summarize(ctx context.Context, unit rag.PageUnit) (string, error) {
	f.mu.Lock()
	f.summarizeCalls++
	call := f.summarizeCalls
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", rag.ErrSummarization, err)
	}
	if f.FailSummarizeCall > 0 && call == f.FailSummarizeCall {
		return "", fmt.Errorf("%w: %w", rag.ErrSummarization, ErrInjected)
	}

	switch unit.Kind {
	case rag.UnitText:
		if s, ok := f.Summaries[unit.Text]; ok {
			return s, nil
		}
		return unit.Text, nil
	default:
		h := fnv.New64a()
		_, _ = h.Write(unit.Image)
		return fmt.Sprintf("image page %x", h.Sum64()), nil
	}
}

func (f *FakeClient) Embed(ctx context.Context, text string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrEmbedding, err)
	}
	if f.FailEmbed {
		return nil, fmt.Errorf("%w: %w", rag.ErrEmbedding, ErrInjected)
	}

	chunks := rag.SplitTokens(text, f.MaxTokensPerChunk)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no tokens to embed", rag.ErrEmbedding)
	}
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		if v, ok := f.Vectors[chunk]; ok {
			vectors[i] = v
			continue
		}
		vectors[i] = HashVector(chunk, f.Dimension)
	}
	return vectors, nil
}

func (f *FakeClient) SummarizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summarizeCalls
}

func (f *FakeClient) EmbedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls
}

// HashVector derives a non-zero vector of the given dimension from text.
func HashVector(text string, dim int) []float32 {
	if dim <= 0 {
		dim = 8
	}
	v := make([]float32, dim)
	for i := range v {
		h := fnv.New32a()
		_, _ = fmt.Fprintf(h, "%d:%s", i, text)
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}
