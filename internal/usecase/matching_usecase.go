package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/domain/match"
	"jobmatch/internal/domain/matching"
	"jobmatch/internal/domain/resume"
	"jobmatch/internal/logger"
	"jobmatch/internal/metrics"
	"jobmatch/internal/repository"
	"jobmatch/internal/similarity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrResumeNotFound = repository.ErrResumeNotFound
	ErrJobNotFound    = repository.ErrJobNotFound
	ErrMatchNotFound  = repository.ErrMatchNotFound
)

const (
	// Payload keys written next to every job vector.
	PayloadType    = "type"
	PayloadJobID   = "job_id"
	PayloadTypeJob = "job"

	defaultSimilar  = 10
	maxSimilar      = 50
	maxIndexedChars = 8000
)

type MatchingUsecase interface {
	CalculateMatch(ctx context.Context, resumeID, jobID uuid.UUID) (match.Result, error)
	ListMatches(ctx context.Context, resumeID uuid.UUID, minScore float64, limit int) ([]match.Result, error)
	IndexJob(ctx context.Context, jobID uuid.UUID) error
	SimilarJobs(ctx context.Context, resumeID uuid.UUID, limit int) ([]SimilarJob, error)
}

// Matcher scores one résumé against one job.
type Matcher interface {
	Match(ctx context.Context, r resume.Resume, j job.Job) (matching.Result, error)
}

// VectorStore embeds texts and keeps them searchable.
type VectorStore interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Store(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Query(ctx context.Context, vector []float32, filter similarity.Filter, k int) ([]similarity.Match, error)
}

type SimilarJob struct {
	JobID uuid.UUID `json:"job_id"`
	Score float64   `json:"score"`
}

type Matching struct {
	resumes repository.ResumeRepository
	jobs    repository.JobRepository
	matches repository.MatchResultRepository
	engine  Matcher
	vectors VectorStore
	now     func() time.Time
	log     *zap.Logger
}

func NewMatchingUsecase(
	resumes repository.ResumeRepository,
	jobs repository.JobRepository,
	matches repository.MatchResultRepository,
	engine Matcher,
	vectors VectorStore,
	log *zap.Logger,
) *Matching {
	return &Matching{
		resumes: resumes,
		jobs:    jobs,
		matches: matches,
		engine:  engine,
		vectors: vectors,
		now:     time.Now,
		log:     logger.OrNop(log).Named("usecase.matching"),
	}
}

// CalculateMatch scores the pair and replaces the stored result for it.
func (u *Matching) CalculateMatch(ctx context.Context, resumeID, jobID uuid.UUID) (match.Result, error) {
	if resumeID == uuid.Nil {
		return match.Result{}, apperr.Input("usecase.match", "resume id is required")
	}
	if jobID == uuid.Nil {
		return match.Result{}, apperr.Input("usecase.match", "job id is required")
	}

	start := u.now()
	res, err := u.resumes.GetByID(ctx, resumeID)
	if err != nil {
		return match.Result{}, err
	}
	j, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return match.Result{}, err
	}

	out, err := u.engine.Match(ctx, res, j)
	if err != nil {
		metrics.MatchesCalculated.WithLabelValues(outcomeLabel(err)).Inc()
		u.log.Warn("match failed",
			zap.String("resume_id", resumeID.String()),
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
		return match.Result{}, err
	}

	m := out.ToMatch(res, j, u.now())
	if err := u.matches.Upsert(ctx, m); err != nil {
		metrics.MatchesCalculated.WithLabelValues("store_error").Inc()
		return match.Result{}, fmt.Errorf("store match: %w", err)
	}

	metrics.MatchesCalculated.WithLabelValues("ok").Inc()
	metrics.MatchDuration.Observe(u.now().Sub(start).Seconds())
	u.log.Debug("match calculated",
		zap.String("resume_id", resumeID.String()),
		zap.String("job_id", jobID.String()),
		zap.Float64("overall", m.OverallScore),
	)
	return m, nil
}

func (u *Matching) ListMatches(ctx context.Context, resumeID uuid.UUID, minScore float64, limit int) ([]match.Result, error) {
	if resumeID == uuid.Nil {
		return nil, apperr.Input("usecase.list_matches", "resume id is required")
	}
	if minScore < 0 || minScore > 100 {
		return nil, apperr.Input("usecase.list_matches", "min_score must be within 0..100, got %v", minScore)
	}
	if limit < 0 {
		return nil, apperr.Input("usecase.list_matches", "limit must not be negative, got %d", limit)
	}
	return u.matches.ListByResume(ctx, resumeID, minScore, limit)
}

// IndexJob embeds the job description and stores it in the vector index under the job id.
func (u *Matching) IndexJob(ctx context.Context, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return apperr.Input("usecase.index_job", "job id is required")
	}
	j, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	vec, err := u.vectors.Embed(ctx, indexText(j))
	if err != nil {
		return err
	}
	payload := map[string]any{
		PayloadType:  PayloadTypeJob,
		PayloadJobID: jobID.String(),
		"title":      j.Title,
		"company":    j.Company,
		"source":     j.Source,
	}
	if err := u.vectors.Store(ctx, jobID.String(), vec, payload); err != nil {
		return err
	}
	u.log.Info("job indexed", zap.String("job_id", jobID.String()), zap.String("title", logger.Truncate(j.Title, 80)))
	return nil
}

// SimilarJobs returns indexed jobs closest to the résumé text, best first.
func (u *Matching) SimilarJobs(ctx context.Context, resumeID uuid.UUID, limit int) ([]SimilarJob, error) {
	if resumeID == uuid.Nil {
		return nil, apperr.Input("usecase.similar_jobs", "resume id is required")
	}
	switch {
	case limit < 0:
		return nil, apperr.Input("usecase.similar_jobs", "limit must not be negative, got %d", limit)
	case limit == 0:
		limit = defaultSimilar
	case limit > maxSimilar:
		limit = maxSimilar
	}

	res, err := u.resumes.GetByID(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}

	vec, err := u.vectors.Embed(ctx, res.RawText)
	if err != nil {
		return nil, err
	}
	hits, err := u.vectors.Query(ctx, vec, similarity.Filter{PayloadType: PayloadTypeJob}, limit)
	if err != nil {
		return nil, err
	}

	out := make([]SimilarJob, 0, len(hits))
	for _, h := range hits {
		id, ok := jobIDFromMatch(h)
		if !ok {
			u.log.Warn("skipping vector hit without job id", zap.String("id", h.ID))
			continue
		}
		out = append(out, SimilarJob{JobID: id, Score: h.Score})
	}
	return out, nil
}

func indexText(j job.Job) string {
	text := []rune(strings.TrimSpace(j.Title + "\n" + j.Description))
	if len(text) > maxIndexedChars {
		text = text[:maxIndexedChars]
	}
	return string(text)
}

func jobIDFromMatch(m similarity.Match) (uuid.UUID, bool) {
	if raw, ok := m.Payload[PayloadJobID].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	id, err := uuid.Parse(m.ID)
	return id, err == nil
}

func outcomeLabel(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindInput:
		return "input_error"
	case apperr.KindEmbeddingUnavailable, apperr.KindIndexUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
