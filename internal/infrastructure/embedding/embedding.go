// Package embedding holds the embedding backends behind similarity.Embedder.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"jobmatch/internal/config"
	"jobmatch/internal/similarity"

	"go.uber.org/zap"
)

// New builds the configured provider.
func New(ctx context.Context, cfg config.EmbeddingConfig, log *zap.Logger) (similarity.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "hashing":
		return NewHashingEmbedder(cfg.Dimension, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimension, cfg.Timeout, log)
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
