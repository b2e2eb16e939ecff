package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/domain/match"
	"jobmatch/internal/domain/matching"
	"jobmatch/internal/domain/resume"
	"jobmatch/internal/similarity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var matchNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

type matchingFixture struct {
	uc       *Matching
	resumeID uuid.UUID
	jobID    uuid.UUID
	matches  *fakeMatchRepo
	vectors  *fakeVectors
}

func newMatchingFixture(sim fixedSimilarity) matchingFixture {
	years := 6
	resumeID, jobID := uuid.New(), uuid.New()
	resumes := fakeResumeRepo{items: map[uuid.UUID]resume.Resume{
		resumeID: {
			ID:              resumeID,
			RawText:         "Senior Go engineer building PostgreSQL backed services.",
			Skills:          []string{"Go", "PostgreSQL", "Docker"},
			ExperienceYears: &years,
			Location:        "Remote",
		},
	}}
	jobs := &fakeJobRepo{items: map[uuid.UUID]job.Job{
		jobID: {
			ID:              jobID,
			Title:           "Senior Backend Engineer",
			Description:     "Build Go services on PostgreSQL and Kubernetes.",
			RequiredSkills:  []string{"go", "postgresql", "kubernetes"},
			ExperienceLevel: job.LevelSenior,
			Location:        "Remote",
			Source:          "adzuna",
		},
	}}
	matches := &fakeMatchRepo{}
	vectors := &fakeVectors{}

	uc := NewMatchingUsecase(resumes, jobs, matches, matching.NewEngine(sim), vectors, nil)
	uc.now = func() time.Time { return matchNow }
	return matchingFixture{uc: uc, resumeID: resumeID, jobID: jobID, matches: matches, vectors: vectors}
}

func TestMatching_CalculateMatchStoresResult(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{score: 0.8})

	m, err := f.uc.CalculateMatch(context.Background(), f.resumeID, f.jobID)
	require.NoError(t, err)

	require.Len(t, f.matches.stored, 1)
	assert.Equal(t, m, f.matches.stored[0])
	assert.Equal(t, f.resumeID, m.ResumeID)
	assert.Equal(t, f.jobID, m.JobID)
	assert.Equal(t, matchNow, m.CalculatedAt)
	assert.Equal(t, 80.0, m.SemanticScore)
	assert.ElementsMatch(t, []string{"go", "postgresql"}, m.MatchedSkills)
	assert.Equal(t, []string{"kubernetes"}, m.MissingSkills)
	assert.GreaterOrEqual(t, m.OverallScore, 0.0)
	assert.LessOrEqual(t, m.OverallScore, 100.0)
}

func TestMatching_CalculateMatchNotFound(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{score: 0.5})

	_, err := f.uc.CalculateMatch(context.Background(), uuid.New(), f.jobID)
	assert.True(t, errors.Is(err, ErrResumeNotFound), "got %v", err)

	_, err = f.uc.CalculateMatch(context.Background(), f.resumeID, uuid.New())
	assert.True(t, errors.Is(err, ErrJobNotFound), "got %v", err)

	_, err = f.uc.CalculateMatch(context.Background(), uuid.Nil, f.jobID)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))

	assert.Empty(t, f.matches.stored)
}

func TestMatching_CalculateMatchSimilarityFailureIsNotStored(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{err: apperr.EmbeddingUnavailable("test", errBoom)})

	_, err := f.uc.CalculateMatch(context.Background(), f.resumeID, f.jobID)
	assert.Equal(t, apperr.KindEmbeddingUnavailable, apperr.KindOf(err))
	assert.Empty(t, f.matches.stored)
}

func TestMatching_ListMatchesValidates(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{})
	f.matches.list = []match.Result{{ResumeID: f.resumeID, OverallScore: 77}}

	out, err := f.uc.ListMatches(context.Background(), f.resumeID, 60, 5)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 60.0, f.matches.gotMin)
	assert.Equal(t, 5, f.matches.gotLim)

	_, err = f.uc.ListMatches(context.Background(), f.resumeID, 101, 5)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
	_, err = f.uc.ListMatches(context.Background(), f.resumeID, 10, -1)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
}

func TestMatching_IndexJobStoresTypedPayload(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{})

	require.NoError(t, f.uc.IndexJob(context.Background(), f.jobID))

	require.Len(t, f.vectors.stored, 1)
	got := f.vectors.stored[0]
	assert.Equal(t, f.jobID.String(), got.id)
	assert.Equal(t, PayloadTypeJob, got.payload[PayloadType])
	assert.Equal(t, f.jobID.String(), got.payload[PayloadJobID])
	require.Len(t, f.vectors.embedded, 1)
	assert.Contains(t, f.vectors.embedded[0], "Senior Backend Engineer")

	err := f.uc.IndexJob(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestMatching_IndexJobEmbeddingUnavailable(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{})
	f.vectors.embedErr = apperr.EmbeddingUnavailable("test", errBoom)

	err := f.uc.IndexJob(context.Background(), f.jobID)
	assert.Equal(t, apperr.KindEmbeddingUnavailable, apperr.KindOf(err))
	assert.Empty(t, f.vectors.stored)
}

func TestMatching_SimilarJobs(t *testing.T) {
	f := newMatchingFixture(fixedSimilarity{})
	other := uuid.New()
	f.vectors.hits = []similarity.Match{
		{ID: f.jobID.String(), Score: 0.91, Payload: map[string]any{PayloadJobID: f.jobID.String()}},
		{ID: other.String(), Score: 0.75},
		{ID: "not-a-uuid", Score: 0.5},
	}

	out, err := f.uc.SimilarJobs(context.Background(), f.resumeID, 0)
	require.NoError(t, err)

	assert.Equal(t, similarity.Filter{PayloadType: PayloadTypeJob}, f.vectors.gotFilter)
	assert.Equal(t, defaultSimilar, f.vectors.gotK)
	assert.Equal(t, []SimilarJob{{JobID: f.jobID, Score: 0.91}, {JobID: other, Score: 0.75}}, out)

	_, err = f.uc.SimilarJobs(context.Background(), f.resumeID, 500)
	require.NoError(t, err)
	assert.Equal(t, maxSimilar, f.vectors.gotK)
}
