// Package similarity turns texts into embeddings and compares or indexes them.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/logger"

	"go.uber.org/zap"
)

// Embedder produces a fixed-dimension vector for a text. Implementations must be
// deterministic for a given model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// Filter is an equality filter on payload keys.
type Filter map[string]any

type Match struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Query(ctx context.Context, vector []float32, filter Filter, k int) ([]Match, error)
}

var errDimensionMismatch = errors.New("embedding dimensions differ")

type Engine struct {
	embedder Embedder
	index    VectorIndex
	timeout  time.Duration
	log      *zap.Logger
}

// NewEngine wires an embedder and an optional vector index. timeout bounds every
// call; zero disables the bound.
func NewEngine(embedder Embedder, index VectorIndex, timeout time.Duration, log *zap.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		index:    index,
		timeout:  timeout,
		log:      logger.OrNop(log).Named("similarity"),
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Input("similarity.embed", "text is empty")
	}
	if e.embedder == nil {
		return nil, apperr.EmbeddingUnavailable("similarity.embed", errors.New("no embedder configured"))
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.log.Warn("embedding failed", zap.String("model", e.embedder.Model()), zap.Error(err))
		return nil, asKind(apperr.KindEmbeddingUnavailable, "similarity.embed", err)
	}
	if len(vec) == 0 {
		return nil, apperr.EmbeddingUnavailable("similarity.embed", errors.New("empty embedding"))
	}
	return vec, nil
}

// Similarity is the raw cosine of the two texts' embeddings, in [-1, 1].
func (e *Engine) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := e.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := e.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	score, err := Cosine(va, vb)
	if err != nil {
		return 0, apperr.EmbeddingUnavailable("similarity.compare", err)
	}
	return score, nil
}

func (e *Engine) Store(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Input("similarity.store", "id is empty")
	}
	if len(vector) == 0 {
		return apperr.Input("similarity.store", "vector is empty")
	}
	if e.index == nil {
		return apperr.IndexUnavailable("similarity.store", errors.New("no vector index configured"))
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.index.Upsert(ctx, id, vector, payload); err != nil {
		e.log.Warn("vector upsert failed", zap.String("id", id), zap.Error(err))
		return asKind(apperr.KindIndexUnavailable, "similarity.store", err)
	}
	return nil
}

// Query returns up to k matches, best first.
func (e *Engine) Query(ctx context.Context, vector []float32, filter Filter, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, apperr.Input("similarity.query", "vector is empty")
	}
	if k <= 0 {
		return nil, apperr.Input("similarity.query", "k must be positive, got %d", k)
	}
	if e.index == nil {
		return nil, apperr.IndexUnavailable("similarity.query", errors.New("no vector index configured"))
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	matches, err := e.index.Query(ctx, vector, filter, k)
	if err != nil {
		e.log.Warn("vector query failed", zap.Error(err))
		return nil, asKind(apperr.KindIndexUnavailable, "similarity.query", err)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// asKind keeps errors that are already classified and wraps everything else.
func asKind(kind apperr.Kind, op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(kind, op, err)
}

// Cosine of a and b. A zero vector yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", errDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
