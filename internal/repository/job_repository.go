package repository

import (
	"context"
	"fmt"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/database"
	"jobmatch/internal/domain/job"

	"github.com/google/uuid"
)

var ErrJobNotFound = apperr.NotFound("repository.job", "job")

// DiscoveredJob is a job accepted by discovery together with its quality score.
type DiscoveredJob struct {
	Job          job.Job
	QualityScore int
}

type UpsertStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

type JobRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (job.Job, error)
	UpsertDiscovered(ctx context.Context, jobs []DiscoveredJob) (UpsertStats, error)
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (job.Job, error) {
	var (
		j      job.Job
		skills []byte
		level  string
	)
	row := r.db.QueryRow(ctx,
		`SELECT id, title, company, location, description, required_skills, experience_level,
		        posted_date, source, external_id, url, salary_min, salary_max, job_type
		 FROM jobs
		 WHERE id = $1`,
		id,
	)
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &skills, &level,
		&j.PostedDate, &j.Source, &j.ExternalID, &j.URL, &j.SalaryMin, &j.SalaryMax, &j.JobType,
	)
	if err != nil {
		if isNoRows(err) {
			return job.Job{}, ErrJobNotFound
		}
		return job.Job{}, err
	}
	if err := decodeJSON(skills, &j.RequiredSkills); err != nil {
		return job.Job{}, fmt.Errorf("decode job skills: %w", err)
	}
	j.ExperienceLevel = job.ExperienceLevel(level)
	return j, nil
}

// UpsertDiscovered inserts new postings and refreshes known ones, keyed by
// (source, external_id). Existing ids are kept.
func (r *PostgresJobRepository) UpsertDiscovered(ctx context.Context, jobs []DiscoveredJob) (UpsertStats, error) {
	var stats UpsertStats
	if len(jobs) == 0 {
		return stats, nil
	}

	now := time.Now().UTC()
	err := database.InTx(ctx, r.db, func(tx database.Tx) error {
		for _, d := range jobs {
			j := d.Job
			if j.Source == "" || j.ExternalID == "" {
				continue
			}
			skills, err := encodeJSON(j.RequiredSkills)
			if err != nil {
				return err
			}

			var (
				id       uuid.UUID
				inserted bool
			)
			row := tx.QueryRow(ctx,
				`INSERT INTO jobs (id, title, company, location, description, required_skills, experience_level,
				                   posted_date, source, external_id, url, salary_min, salary_max, job_type,
				                   quality_score, created_at, updated_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
				 ON CONFLICT (source, external_id) DO UPDATE SET
					title = EXCLUDED.title,
					company = EXCLUDED.company,
					location = EXCLUDED.location,
					description = EXCLUDED.description,
					required_skills = EXCLUDED.required_skills,
					experience_level = EXCLUDED.experience_level,
					posted_date = COALESCE(EXCLUDED.posted_date, jobs.posted_date),
					url = EXCLUDED.url,
					salary_min = EXCLUDED.salary_min,
					salary_max = EXCLUDED.salary_max,
					job_type = EXCLUDED.job_type,
					quality_score = EXCLUDED.quality_score,
					updated_at = EXCLUDED.updated_at
				 RETURNING id, (xmax = 0) AS inserted`,
				uuid.New(),
				j.Title,
				j.Company,
				j.Location,
				j.Description,
				skills,
				string(j.ExperienceLevel.Normalize()),
				j.PostedDate,
				j.Source,
				j.ExternalID,
				j.URL,
				j.SalaryMin,
				j.SalaryMax,
				j.JobType,
				d.QualityScore,
				now,
			)
			if err := row.Scan(&id, &inserted); err != nil {
				return fmt.Errorf("upsert job %s/%s: %w", j.Source, j.ExternalID, err)
			}
			if inserted {
				stats.Inserted++
			} else {
				stats.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return UpsertStats{}, err
	}
	return stats, nil
}
