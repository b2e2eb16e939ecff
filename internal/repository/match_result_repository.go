package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/database"
	"jobmatch/internal/domain/match"

	"github.com/google/uuid"
)

var ErrMatchNotFound = apperr.NotFound("repository.match_result", "match result")

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

type MatchResultRepository interface {
	Upsert(ctx context.Context, m match.Result) error
	Get(ctx context.Context, resumeID, jobID uuid.UUID) (match.Result, error)
	ListByResume(ctx context.Context, resumeID uuid.UUID, minScore float64, limit int) ([]match.Result, error)
}

type PostgresMatchResultRepository struct {
	db database.DB
}

func NewPostgresMatchResultRepository(db database.DB) *PostgresMatchResultRepository {
	return &PostgresMatchResultRepository{db: db}
}

// Upsert replaces every column of the pair's result in a single statement.
func (r *PostgresMatchResultRepository) Upsert(ctx context.Context, m match.Result) error {
	if m.ResumeID == uuid.Nil || m.JobID == uuid.Nil {
		return apperr.Input("repository.match_result.upsert", "resume id and job id are required")
	}
	if m.CalculatedAt.IsZero() {
		m.CalculatedAt = time.Now().UTC()
	}

	lists := make([][]byte, 0, 4)
	for _, l := range [][]string{m.MatchedSkills, m.MissingSkills, m.Strengths, m.Gaps} {
		b, err := encodeJSON(l)
		if err != nil {
			return err
		}
		lists = append(lists, b)
	}
	var suggestions []byte
	if len(m.Suggestions) > 0 {
		suggestions = m.Suggestions
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO match_results (resume_id, job_id, overall_score, keyword_score, semantic_score,
		                            experience_score, education_score, location_score, matched_skills,
		                            missing_skills, strengths, gaps, suggestions, calculated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (resume_id, job_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			keyword_score = EXCLUDED.keyword_score,
			semantic_score = EXCLUDED.semantic_score,
			experience_score = EXCLUDED.experience_score,
			education_score = EXCLUDED.education_score,
			location_score = EXCLUDED.location_score,
			matched_skills = EXCLUDED.matched_skills,
			missing_skills = EXCLUDED.missing_skills,
			strengths = EXCLUDED.strengths,
			gaps = EXCLUDED.gaps,
			suggestions = EXCLUDED.suggestions,
			calculated_at = EXCLUDED.calculated_at`,
		m.ResumeID,
		m.JobID,
		m.OverallScore,
		m.KeywordScore,
		m.SemanticScore,
		m.ExperienceScore,
		m.EducationScore,
		m.LocationScore,
		lists[0],
		lists[1],
		lists[2],
		lists[3],
		suggestions,
		m.CalculatedAt,
	)
	return err
}

const selectMatchColumns = `SELECT resume_id, job_id, overall_score, keyword_score, semantic_score,
		        experience_score, education_score, location_score, matched_skills, missing_skills,
		        strengths, gaps, suggestions, calculated_at
		 FROM match_results`

func (r *PostgresMatchResultRepository) Get(ctx context.Context, resumeID, jobID uuid.UUID) (match.Result, error) {
	row := r.db.QueryRow(ctx, selectMatchColumns+`
		 WHERE resume_id = $1 AND job_id = $2`,
		resumeID, jobID,
	)
	m, err := scanMatch(row)
	if err != nil {
		if isNoRows(err) {
			return match.Result{}, ErrMatchNotFound
		}
		return match.Result{}, err
	}
	return m, nil
}

// ListByResume returns the résumé's results with overall_score >= minScore, best first.
func (r *PostgresMatchResultRepository) ListByResume(ctx context.Context, resumeID uuid.UUID, minScore float64, limit int) ([]match.Result, error) {
	if limit <= 0 {
		limit = defaultMatchLimit
	}
	if limit > maxMatchLimit {
		limit = maxMatchLimit
	}

	rows, err := r.db.Query(ctx, selectMatchColumns+`
		 WHERE resume_id = $1 AND overall_score >= $2
		 ORDER BY overall_score DESC, calculated_at DESC
		 LIMIT $3`,
		resumeID, minScore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]match.Result, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMatch(row database.Row) (match.Result, error) {
	var (
		m                                    match.Result
		matched, missing, strengths, gaps, s []byte
	)
	err := row.Scan(
		&m.ResumeID, &m.JobID, &m.OverallScore, &m.KeywordScore, &m.SemanticScore,
		&m.ExperienceScore, &m.EducationScore, &m.LocationScore, &matched, &missing,
		&strengths, &gaps, &s, &m.CalculatedAt,
	)
	if err != nil {
		return match.Result{}, err
	}
	for _, f := range []struct {
		raw []byte
		out *[]string
	}{
		{matched, &m.MatchedSkills},
		{missing, &m.MissingSkills},
		{strengths, &m.Strengths},
		{gaps, &m.Gaps},
	} {
		*f.out = []string{}
		if err := decodeJSON(f.raw, f.out); err != nil {
			return match.Result{}, fmt.Errorf("decode match result lists: %w", err)
		}
	}
	if len(s) > 0 && string(s) != "null" {
		m.Suggestions = json.RawMessage(s)
	}
	return m, nil
}
