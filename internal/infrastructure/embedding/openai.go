package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobmatch/internal/logger"
	"jobmatch/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("jobmatch/embedding")

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIEmbedder calls an OpenAI compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dim        int
	httpClient *http.Client
	log        *zap.Logger
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, dim int, timeout time.Duration, log *zap.Logger) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai embedder: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("openai embedder: model is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dim:        dim,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(log).Named("openai_embedder"),
	}, nil
}

func (o *OpenAIEmbedder) Dimension() int { return o.dim }

func (o *OpenAIEmbedder) Model() string { return o.model }

type openAIRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "OpenAIEmbedder.Embed", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.model", o.model),
		attribute.Int("embedding.dimensions", o.dim),
		attribute.Int("embedding.input_length", len(text)),
	)

	vec, err := o.embed(ctx, text)
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("openai", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.EmbeddingRequests.WithLabelValues("openai", "ok").Inc()
	span.SetStatus(codes.Ok, "")
	return vec, nil
}

func (o *OpenAIEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(openAIRequest{Model: o.model, Input: text, Dimensions: o.dim})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embeddings response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.log.Warn("embeddings api error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Truncate(string(raw), 300)),
		)
		return nil, fmt.Errorf("embeddings api status %d", resp.StatusCode)
	}

	var out openAIResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("embeddings api error: %s", out.Error.Message)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("embeddings response has no data")
	}
	vec := out.Data[0].Embedding
	if o.dim > 0 && len(vec) != o.dim {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), o.dim)
	}
	return vec, nil
}
