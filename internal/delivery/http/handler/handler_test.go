package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/delivery/http/middleware"
	"jobmatch/internal/discovery"
	"jobmatch/internal/domain/match"
	"jobmatch/internal/repository"
	"jobmatch/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMatching struct {
	match    match.Result
	err      error
	gotMin   float64
	gotLimit int
	similar  []usecase.SimilarJob
	indexed  uuid.UUID
}

func (s *stubMatching) CalculateMatch(_ context.Context, resumeID, jobID uuid.UUID) (match.Result, error) {
	if s.err != nil {
		return match.Result{}, s.err
	}
	m := s.match
	m.ResumeID, m.JobID = resumeID, jobID
	return m, nil
}

func (s *stubMatching) ListMatches(_ context.Context, resumeID uuid.UUID, minScore float64, limit int) ([]match.Result, error) {
	s.gotMin, s.gotLimit = minScore, limit
	if s.err != nil {
		return nil, s.err
	}
	return []match.Result{s.match}, nil
}

func (s *stubMatching) IndexJob(_ context.Context, jobID uuid.UUID) error {
	s.indexed = jobID
	return s.err
}

func (s *stubMatching) SimilarJobs(_ context.Context, _ uuid.UUID, limit int) ([]usecase.SimilarJob, error) {
	s.gotLimit = limit
	return s.similar, s.err
}

type stubDiscovery struct {
	got discovery.Request
	res usecase.DiscoveryResult
	err error
}

func (s *stubDiscovery) Discover(_ context.Context, req discovery.Request) (usecase.DiscoveryResult, error) {
	s.got = req
	if s.err != nil {
		return usecase.DiscoveryResult{}, s.err
	}
	if err := req.Validate(); err != nil {
		return usecase.DiscoveryResult{}, err
	}
	return s.res, nil
}

func (s *stubDiscovery) Persist(context.Context, discovery.Batch) error { return nil }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(register func(fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	register(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func TestMatchHandler_CalculateMatch(t *testing.T) {
	uc := &stubMatching{match: match.Result{
		OverallScore:  81.5,
		KeywordScore:  66.7,
		MatchedSkills: []string{"go"},
		CalculatedAt:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}}
	app := newTestApp(NewMatchHandler(uc).RegisterRoutes)
	resumeID, jobID := uuid.New(), uuid.New()

	status, env := do(t, app, http.MethodPost, "/matches/"+resumeID.String()+"/"+jobID.String(), "")
	require.Equal(t, http.StatusOK, status)

	var out struct {
		ResumeID      uuid.UUID          `json:"resume_id"`
		JobID         uuid.UUID          `json:"job_id"`
		OverallScore  float64            `json:"overall_score"`
		Scores        map[string]float64 `json:"scores"`
		MissingSkills []string           `json:"missing_skills"`
		CalculatedAt  string             `json:"calculated_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, resumeID, out.ResumeID)
	assert.Equal(t, jobID, out.JobID)
	assert.Equal(t, 81.5, out.OverallScore)
	assert.Equal(t, 66.7, out.Scores["keyword"])
	assert.NotNil(t, out.MissingSkills)
	assert.Equal(t, "2026-03-15T00:00:00Z", out.CalculatedAt)
}

func TestMatchHandler_StatusMapping(t *testing.T) {
	ok := uuid.New().String()
	cases := []struct {
		name   string
		err    error
		path   string
		status int
	}{
		{name: "bad resume id", path: "/matches/nope/" + ok, status: http.StatusBadRequest},
		{name: "not found", err: repository.ErrResumeNotFound, path: "/matches/" + ok + "/" + ok, status: http.StatusNotFound},
		{name: "input", err: apperr.Input("test", "bad"), path: "/matches/" + ok + "/" + ok, status: http.StatusBadRequest},
		{name: "embedding down", err: apperr.EmbeddingUnavailable("test", errors.New("timeout")), path: "/matches/" + ok + "/" + ok, status: http.StatusServiceUnavailable},
		{name: "index down", err: apperr.IndexUnavailable("test", errors.New("refused")), path: "/matches/" + ok + "/" + ok, status: http.StatusServiceUnavailable},
		{name: "unclassified", err: errors.New("db gone"), path: "/matches/" + ok + "/" + ok, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(NewMatchHandler(&stubMatching{err: tc.err}).RegisterRoutes)
			status, env := do(t, app, http.MethodPost, tc.path, "")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.status, env.Status)
		})
	}
}

func TestMatchHandler_ServiceUnavailableCarriesKind(t *testing.T) {
	uc := &stubMatching{err: apperr.IndexUnavailable("test", errors.New("refused"))}
	app := newTestApp(NewMatchHandler(uc).RegisterRoutes)

	_, env := do(t, app, http.MethodGet, "/resumes/"+uuid.NewString()+"/similar-jobs", "")
	var data struct {
		Kind      string `json:"kind"`
		Retryable bool   `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, string(apperr.KindIndexUnavailable), data.Kind)
	assert.True(t, data.Retryable)
}

func TestMatchHandler_ListMatchesQuery(t *testing.T) {
	uc := &stubMatching{}
	app := newTestApp(NewMatchHandler(uc).RegisterRoutes)
	id := uuid.NewString()

	status, _ := do(t, app, http.MethodGet, "/matches/"+id+"?min_score=72.5&limit=3", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 72.5, uc.gotMin)
	assert.Equal(t, 3, uc.gotLimit)

	status, _ = do(t, app, http.MethodGet, "/matches/"+id+"?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMatchHandler_IndexAndSimilar(t *testing.T) {
	jobID := uuid.New()
	uc := &stubMatching{similar: []usecase.SimilarJob{{JobID: jobID, Score: 0.9}}}
	app := newTestApp(NewMatchHandler(uc).RegisterRoutes)

	status, _ := do(t, app, http.MethodPost, "/jobs/"+jobID.String()+"/index", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, jobID, uc.indexed)

	status, env := do(t, app, http.MethodGet, "/resumes/"+uuid.NewString()+"/similar-jobs?limit=4", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4, uc.gotLimit)
	assert.JSONEq(t, `[{"job_id":"`+jobID.String()+`","score":0.9}]`, string(env.Data))
}

func TestDiscoveryHandler(t *testing.T) {
	uc := &stubDiscovery{res: usecase.DiscoveryResult{
		Batch: discovery.Batch{
			Request: discovery.Request{SearchTerm: "go", Location: "Remote", MaxResults: 50, MaxAgeDays: 14},
			Sources: []discovery.SourceReport{{Source: "adzuna", Error: "status 500"}, {Source: "remoteok", Fetched: 3}},
			Fetched: 3,
		},
		Stored: repository.UpsertStats{Inserted: 2},
	}}
	app := newTestApp(NewDiscoveryHandler(uc).RegisterRoutes)

	status, env := do(t, app, http.MethodPost, "/discovery", `{"search_term":"go","max_results":10}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "go", uc.got.SearchTerm)
	assert.Equal(t, 10, uc.got.MaxResults)

	var out struct {
		Jobs          []json.RawMessage `json:"jobs"`
		FailedSources []string          `json:"failed_sources"`
		Stored        map[string]int    `json:"stored"`
		Rejected      map[string]int    `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.NotNil(t, out.Jobs)
	assert.Equal(t, []string{"adzuna"}, out.FailedSources)
	assert.Equal(t, 2, out.Stored["inserted"])
	assert.NotNil(t, out.Rejected)

	status, _ = do(t, app, http.MethodPost, "/discovery", `{"search_term":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/discovery", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("refused") })

	app := newTestApp(NewHealthHandler().WithCritical("postgres", up).WithOptional("redis", down).RegisterRoutes)
	status, env := do(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"postgres":"ok","redis":"degraded: refused"}`, string(env.Data))

	app = newTestApp(NewHealthHandler().WithCritical("postgres", down).RegisterRoutes)
	status, _ = do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
