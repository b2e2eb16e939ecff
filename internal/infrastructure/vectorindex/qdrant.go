// Package vectorindex stores embeddings in Qdrant over its REST API.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"jobmatch/internal/logger"
	"jobmatch/internal/similarity"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("jobmatch/vectorindex/qdrant")

// pointNamespace derives stable point ids from our string ids; Qdrant only accepts
// unsigned integers or UUIDs.
var pointNamespace = uuid.MustParse("6f1d4a8e-2c3b-4e5f-9a7b-1c2d3e4f5a6b")

// RefIDKey is the payload key holding the caller's id.
const RefIDKey = "ref_id"

var errStatus = errors.New("qdrant api error")

type Qdrant struct {
	endpoint   string
	collection string
	vectorSize int
	distance   string
	httpClient *http.Client
	log        *zap.Logger
}

type Option func(*Qdrant)

// WithDistance sets the metric used when the collection is created (Cosine, Dot, Euclid).
func WithDistance(metric string) Option {
	return func(q *Qdrant) {
		if metric != "" {
			q.distance = metric
		}
	}
}

func NewQdrant(endpoint, collection string, vectorSize int, timeout time.Duration, log *zap.Logger, opts ...Option) (*Qdrant, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("qdrant endpoint is required")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("qdrant collection is required")
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("qdrant vector size must be positive, got %d", vectorSize)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	q := &Qdrant{
		endpoint:   endpoint,
		collection: collection,
		vectorSize: vectorSize,
		distance:   "Cosine",
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(log).Named("qdrant"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// PointID maps a caller id onto the deterministic UUID stored in Qdrant.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// EnsureCollection creates the collection when it does not exist yet.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Qdrant.EnsureCollection", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, err := q.doRequest(ctx, http.MethodGet, q.collectionPath(""), nil, nil)
	if err == nil {
		span.SetStatus(codes.Ok, "exists")
		return nil
	}
	if status != http.StatusNotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.vectorSize,
			"distance": q.distance,
		},
	}
	if _, err := q.doRequest(ctx, http.MethodPut, q.collectionPath(""), body, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}

	q.log.Info("qdrant collection created",
		zap.String("collection", q.collection),
		zap.Int("size", q.vectorSize),
		zap.String("distance", q.distance),
	)
	span.SetStatus(codes.Ok, "created")
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (q *Qdrant) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	ctx, span := tracer.Start(ctx, "Qdrant.Upsert", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.collection", q.collection),
		attribute.String("point.ref_id", id),
	)

	if len(vector) != q.vectorSize {
		err := fmt.Errorf("vector has %d dimensions, collection expects %d", len(vector), q.vectorSize)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	p := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		p[k] = v
	}
	p[RefIDKey] = id

	body := map[string]any{"points": []point{{ID: PointID(id), Vector: vector, Payload: p}}}
	if _, err := q.doRequest(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), body, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
	Status string  `json:"status"`
	Time   float64 `json:"time"`
}

func (q *Qdrant) Query(ctx context.Context, vector []float32, filter similarity.Filter, k int) ([]similarity.Match, error) {
	ctx, span := tracer.Start(ctx, "Qdrant.Query", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.collection", q.collection),
		attribute.Int("search.limit", k),
	)

	if len(vector) != q.vectorSize {
		err := fmt.Errorf("query vector has %d dimensions, collection expects %d", len(vector), q.vectorSize)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if k <= 0 {
		k = 10
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	var out searchResponse
	if _, err := q.doRequest(ctx, http.MethodPost, q.collectionPath("/points/search"), body, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	matches := make([]similarity.Match, 0, len(out.Result))
	for _, r := range out.Result {
		id := fmt.Sprint(r.ID)
		if ref, ok := r.Payload[RefIDKey].(string); ok && ref != "" {
			id = ref
		}
		matches = append(matches, similarity.Match{ID: id, Score: r.Score, Payload: r.Payload})
	}

	span.SetAttributes(attribute.Int("search.results.count", len(matches)))
	span.SetStatus(codes.Ok, "")
	return matches, nil
}

// buildFilter turns equality pairs into a Qdrant "must" filter. Keys are sorted so
// the request body is stable.
func buildFilter(f similarity.Filter) map[string]any {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": f[k]},
		})
	}
	return map[string]any{"must": must}
}

func (q *Qdrant) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(q.collection) + suffix
}

func (q *Qdrant) doRequest(ctx context.Context, method, path string, body, result any) (int, error) {
	ctx, span := tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("net.peer.name", q.endpoint),
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", path),
	)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
		span.SetAttributes(attribute.Int("http.request.body.size", len(b)))
	}

	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := q.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: status=%d body=%s", errStatus, resp.StatusCode, logger.Truncate(string(raw), 200))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp.StatusCode, err
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	span.SetStatus(codes.Ok, "")
	return resp.StatusCode, nil
}
