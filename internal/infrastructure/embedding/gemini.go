package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobmatch/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

// contentEmbedder is the part of genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type GeminiEmbedder struct {
	models contentEmbedder
	model  string
	dim    int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dim int) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini embedder: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEmbedder{models: client.Models, model: model, dim: dim}, nil
}

func (g *GeminiEmbedder) Dimension() int { return g.dim }

func (g *GeminiEmbedder) Model() string { return g.model }

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "GeminiEmbedder.Embed", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.model", g.model),
		attribute.Int("embedding.dimensions", g.dim),
	)

	var cfg *genai.EmbedContentConfig
	if g.dim > 0 {
		d := int32(g.dim)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &d}
	}

	resp, err := g.models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err == nil && (resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0) {
		err = errors.New("gemini returned no embedding")
	}
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("gemini", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.EmbeddingRequests.WithLabelValues("gemini", "ok").Inc()
	span.SetStatus(codes.Ok, "")
	return resp.Embeddings[0].Values, nil
}
