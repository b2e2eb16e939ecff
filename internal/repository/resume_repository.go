package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jobmatch/internal/apperr"
	"jobmatch/internal/database"
	"jobmatch/internal/domain/resume"

	"github.com/google/uuid"
)

var ErrResumeNotFound = apperr.NotFound("repository.resume", "resume")

type ResumeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (resume.Resume, error)
}

type PostgresResumeRepository struct {
	db database.DB
}

func NewPostgresResumeRepository(db database.DB) *PostgresResumeRepository {
	return &PostgresResumeRepository{db: db}
}

func (r *PostgresResumeRepository) GetByID(ctx context.Context, id uuid.UUID) (resume.Resume, error) {
	var (
		out       resume.Resume
		skills    []byte
		education []byte
		years     *int32
	)
	row := r.db.QueryRow(ctx,
		`SELECT id, raw_text, skills, experience_years, education, COALESCE(location, '')
		 FROM resumes
		 WHERE id = $1`,
		id,
	)
	if err := row.Scan(&out.ID, &out.RawText, &skills, &years, &education, &out.Location); err != nil {
		if isNoRows(err) {
			return resume.Resume{}, ErrResumeNotFound
		}
		return resume.Resume{}, err
	}

	if err := decodeJSON(skills, &out.Skills); err != nil {
		return resume.Resume{}, fmt.Errorf("decode resume skills: %w", err)
	}
	if err := decodeJSON(education, &out.Education); err != nil {
		return resume.Resume{}, fmt.Errorf("decode resume education: %w", err)
	}
	if years != nil {
		y := int(*years)
		out.ExperienceYears = &y
	}
	return out, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, database.ErrNoRows)
}

// decodeJSON leaves out untouched for NULL or empty columns.
func decodeJSON(b []byte, out any) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, out)
}

// encodeJSON never stores NULL for a nil slice.
func encodeJSON[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
