package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// EmbeddingCache keeps query embeddings in redis so repeated queries skip the provider.
// Entries are keyed by model and chunk size, since both change the vectors returned for a text.
type EmbeddingCache struct {
	client    *redisv9.Client
	model     string
	maxTokens int
	ttl       time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, model string, maxTokens int, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EmbeddingCache{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		ttl:       ttl,
	}
}

func (c *EmbeddingCache) Get(ctx context.Context, text string) ([][]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	return vectors, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, text string, vectors [][]float32) error {
	payload, err := json.Marshal(vectors)
	if err != nil {
		return fmt.Errorf("marshal embedding cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(text), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("rag:query-embedding:%s:%d:%s", c.model, c.maxTokens, hex.EncodeToString(sum[:]))
}
