package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/domain/match"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeGetByID(t *testing.T) {
	id := uuid.New()
	years := int32(4)
	db := &fakeDB{row: func(q string, args []any) fakeRow {
		return fakeRow{vals: []any{
			id,
			"Go developer",
			[]byte(`["Go","SQL"]`),
			&years,
			[]byte(`[{"degree":"BSc","field":"CS"}]`),
			"Berlin",
		}}
	}}

	r, err := NewPostgresResumeRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, r.ID)
	assert.Equal(t, []string{"Go", "SQL"}, r.Skills)
	require.NotNil(t, r.ExperienceYears)
	assert.Equal(t, 4, *r.ExperienceYears)
	assert.Equal(t, "BSc", r.Education[0].Degree)
	assert.Equal(t, []any{id}, db.queries[0].args)
}

func TestResumeGetByIDNotFound(t *testing.T) {
	_, err := NewPostgresResumeRepository(&fakeDB{}).GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrResumeNotFound)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestJobGetByID(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{row: func(q string, args []any) fakeRow {
		return fakeRow{vals: []any{
			id, "Go Engineer", "Acme", "Remote", "desc", []byte(`["go"]`), "senior",
			nil, "adzuna", "abc", "https://x", nil, nil, "full_time",
		}}
	}}

	j, err := NewPostgresJobRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, job.LevelSenior, j.ExperienceLevel)
	assert.Equal(t, []string{"go"}, j.RequiredSkills)
	assert.Nil(t, j.PostedDate)
	assert.Nil(t, j.SalaryMin)

	_, err = NewPostgresJobRepository(&fakeDB{}).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestUpsertDiscovered(t *testing.T) {
	calls := 0
	db := &fakeDB{row: func(q string, args []any) fakeRow {
		calls++
		return fakeRow{vals: []any{uuid.New(), calls == 1}}
	}}

	stats, err := NewPostgresJobRepository(db).UpsertDiscovered(context.Background(), []DiscoveredJob{
		{Job: job.Job{Title: "A", Source: "adzuna", ExternalID: "1"}, QualityScore: 95},
		{Job: job.Job{Title: "B", Source: "adzuna", ExternalID: "2", RequiredSkills: []string{"go"}}, QualityScore: 80},
		{Job: job.Job{Title: "no key"}},
	})
	require.NoError(t, err)

	assert.Equal(t, UpsertStats{Inserted: 1, Updated: 1}, stats)
	assert.True(t, db.committed)
	require.Len(t, db.queries, 2)
	q := db.queries[0]
	assert.True(t, strings.HasPrefix(q.query, "insert into jobs"))
	assert.Contains(t, q.query, "on conflict (source, external_id) do update set")
	assert.Equal(t, []byte(`[]`), q.args[5])
	assert.Equal(t, "mid", q.args[6])
	assert.Equal(t, 95, q.args[14])
	assert.Equal(t, []byte(`["go"]`), db.queries[1].args[5])
}

func TestUpsertDiscoveredRollsBackOnError(t *testing.T) {
	db := &fakeDB{row: func(q string, args []any) fakeRow {
		return fakeRow{err: errors.New("constraint violation")}
	}}

	_, err := NewPostgresJobRepository(db).UpsertDiscovered(context.Background(), []DiscoveredJob{
		{Job: job.Job{Source: "s", ExternalID: "1"}},
	})

	assert.ErrorContains(t, err, "upsert job s/1")
	assert.True(t, db.rolledBack)
	assert.False(t, db.committed)
}

func TestMatchUpsertReplacesAllColumns(t *testing.T) {
	db := &fakeDB{}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := match.Result{
		ResumeID:      uuid.New(),
		JobID:         uuid.New(),
		OverallScore:  67.8,
		KeywordScore:  50,
		SemanticScore: 62,
		MatchedSkills: []string{"go"},
		MissingSkills: nil,
		CalculatedAt:  at,
	}

	require.NoError(t, NewPostgresMatchResultRepository(db).Upsert(context.Background(), m))

	require.Len(t, db.execs, 1)
	e := db.execs[0]
	assert.Contains(t, e.query, "on conflict (resume_id, job_id) do update set")
	for _, col := range []string{
		"overall_score", "keyword_score", "semantic_score", "experience_score", "education_score",
		"location_score", "matched_skills", "missing_skills", "strengths", "gaps", "suggestions", "calculated_at",
	} {
		assert.Contains(t, e.query, col+" = excluded."+col)
	}
	assert.Equal(t, []byte(`["go"]`), e.args[8])
	assert.Equal(t, []byte(`[]`), e.args[9])
	assert.Nil(t, e.args[12])
	assert.Equal(t, at, e.args[13])
}

func TestMatchUpsertRequiresKeys(t *testing.T) {
	err := NewPostgresMatchResultRepository(&fakeDB{}).Upsert(context.Background(), match.Result{})
	assert.True(t, errors.Is(err, apperr.ErrInput))
}

func matchRow(resumeID, jobID uuid.UUID, score float64) []any {
	return []any{
		resumeID, jobID, score, 50.0, 60.0, 100.0, 80.0, 100.0,
		[]byte(`["go"]`), []byte(`["aws"]`), []byte(`[]`), []byte(`null`), []byte(`{"tips":["learn aws"]}`),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMatchGet(t *testing.T) {
	rid, jid := uuid.New(), uuid.New()
	db := &fakeDB{row: func(q string, args []any) fakeRow {
		return fakeRow{vals: matchRow(rid, jid, 71.5)}
	}}

	m, err := NewPostgresMatchResultRepository(db).Get(context.Background(), rid, jid)
	require.NoError(t, err)

	assert.Equal(t, 71.5, m.OverallScore)
	assert.Equal(t, []string{"go"}, m.MatchedSkills)
	assert.Equal(t, []string{}, m.Gaps)
	assert.JSONEq(t, `{"tips":["learn aws"]}`, string(m.Suggestions))

	_, err = NewPostgresMatchResultRepository(&fakeDB{}).Get(context.Background(), rid, jid)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchListByResume(t *testing.T) {
	rid := uuid.New()
	db := &fakeDB{rows: [][]any{matchRow(rid, uuid.New(), 90), matchRow(rid, uuid.New(), 70)}}

	out, err := NewPostgresMatchResultRepository(db).ListByResume(context.Background(), rid, 60, 500)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, 90.0, out[0].OverallScore)
	q := db.queries[0]
	assert.Contains(t, q.query, "order by overall_score desc")
	assert.Equal(t, []any{rid, 60.0, maxMatchLimit}, q.args)
}

func TestEncodeJSONNeverNull(t *testing.T) {
	b, err := encodeJSON[string](nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	var out []string
	require.NoError(t, decodeJSON([]byte("null"), &out))
	assert.Nil(t, out)
	require.NoError(t, decodeJSON(json.RawMessage(`["a"]`), &out))
	assert.Equal(t, []string{"a"}, out)
}
