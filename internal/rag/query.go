package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTopK = 5

// Result is one ranked page.
type Result struct {
	PageID     uuid.UUID `json:"rag_page_id"`
	Score      float64   `json:"similarity_score"`
	PageNumber int       `json:"page"`
	Name       string    `json:"name"`
}

// QueryEmbeddingCache stores query embeddings keyed by the query text.
type QueryEmbeddingCache interface {
	Get(ctx context.Context, text string) ([][]float32, bool, error)
	Set(ctx context.Context, text string, vectors [][]float32) error
}

type Engine struct {
	store    Store
	embedder Embedder
	cache    QueryEmbeddingCache
	topK     int
	logger   *zap.Logger
}

// NewEngine builds a query engine. cache may be nil.
func NewEngine(store Store, embedder Embedder, cache QueryEmbeddingCache, topK int, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		cache:    cache,
		topK:     topK,
		logger:   logger,
	}
}

// Query ranks the pages of an organization against text. topK <= 0 uses the engine default.
func (e *Engine) Query(ctx context.Context, text string, organizationID uuid.UUID, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = e.topK
	}

	ok, err := e.store.HasProfiles(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoContent
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrEmbedding)
	}
	queries, err := e.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	pages, err := e.store.ListPages(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return Rank(queries, pages, topK), nil
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([][]float32, error) {
	if e.cache != nil {
		vectors, hit, err := e.cache.Get(ctx, text)
		if err != nil {
			e.logger.Warn("query embedding cache read failed", zap.Error(err))
		} else if hit {
			return vectors, nil
		}
	}

	vectors, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, text, vectors); err != nil {
			e.logger.Warn("query embedding cache write failed", zap.Error(err))
		}
	}
	return vectors, nil
}

// Rank scores every embedding row of every page against the query vectors. A row scores the
// sum of its cosine similarities to all query vectors; a page keeps its best row. Pages are
// sorted by score descending, ties keep their input order, and at most topK are returned.
func Rank(queries [][]float32, pages []PageRecord, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := make([]Result, 0, len(pages))
	index := make(map[uuid.UUID]int, len(pages))
	for _, page := range pages {
		for _, row := range page.Embeddings {
			var score float64
			for _, q := range queries {
				score += Cosine(q, row)
			}

			pos, seen := index[page.PageID]
			if !seen {
				index[page.PageID] = len(results)
				results = append(results, Result{
					PageID:     page.PageID,
					Score:      score,
					PageNumber: page.PageNumber,
					Name:       page.FileName,
				})
				continue
			}
			if score > results[pos].Score {
				results[pos].Score = score
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
