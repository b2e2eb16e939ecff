package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"jobmatch/internal/logger"
	"jobmatch/internal/metrics"

	"go.uber.org/zap"
)

// JSONCache is the subset of the Redis cache the embedder needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts from the cache. Cache failures fall through
// to the wrapped embedder.
type CachedEmbedder struct {
	next  Embedder
	cache JSONCache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedEmbedder(next Embedder, cache JSONCache, ttl time.Duration, log *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   logger.OrNop(log).Named("embedding_cache"),
	}
}

func (c *CachedEmbedder) Dimension() int { return c.next.Dimension() }

func (c *CachedEmbedder) Model() string { return c.next.Model() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache == nil {
		return c.next.Embed(ctx, text)
	}

	key := CacheKey(c.next.Model(), text)

	var cached []float32
	ok, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log.Debug("embedding cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok && len(cached) == c.next.Dimension() {
		metrics.EmbeddingCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.EmbeddingCache.WithLabelValues("miss").Inc()

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, vec, c.ttl); err != nil {
		c.log.Debug("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
	return vec, nil
}

// CacheKeyPattern matches every cached embedding.
const CacheKeyPattern = "emb:*"

// CacheKey is emb:<model>:<sha256(text)>.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}
