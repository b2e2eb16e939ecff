package seeder

import (
	"context"

	"jobmatch/internal/database"

	"github.com/google/uuid"
)

// Demo résumé ids are fixed so that reseeding is idempotent and the ids can be
// used directly against the match endpoints.
var (
	DemoBackendResumeID  = uuid.MustParse("6f1c2a7e-4b8d-4c1e-9a57-0c3e5d2b1a01")
	DemoFrontendResumeID = uuid.MustParse("6f1c2a7e-4b8d-4c1e-9a57-0c3e5d2b1a02")
	DemoDataResumeID     = uuid.MustParse("6f1c2a7e-4b8d-4c1e-9a57-0c3e5d2b1a03")
)

type ResumesSeeder struct{}

func (ResumesSeeder) Name() string { return "resumes" }

func (ResumesSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "resumes", "id", "raw_text", "skills", "experience_years", "education", "location"); err != nil {
		return err
	}

	items := []struct {
		ID        uuid.UUID
		RawText   string
		Skills    string
		Years     int
		Education string
		Location  string
	}{
		{
			ID:        DemoBackendResumeID,
			RawText:   "Backend engineer with six years of Go and PostgreSQL. Built event driven services on Kafka, Docker and Kubernetes.",
			Skills:    `["Go","PostgreSQL","Docker","Kubernetes","Kafka","Redis"]`,
			Years:     6,
			Education: `[{"degree":"Bachelor of Science","field":"Computer Science"}]`,
			Location:  "Remote",
		},
		{
			ID:        DemoFrontendResumeID,
			RawText:   "Frontend developer focused on React and TypeScript design systems, with Node.js and GraphQL on the server side.",
			Skills:    `["React","TypeScript","JavaScript","Node.js","GraphQL","CSS"]`,
			Years:     3,
			Education: `[{"degree":"Associate","field":"Web Development"}]`,
			Location:  "Berlin, Germany",
		},
		{
			ID:        DemoDataResumeID,
			RawText:   "Data engineer building Python and Spark pipelines on AWS, with Airflow orchestration and SQL modelling.",
			Skills:    `["Python","Spark","AWS","Airflow","SQL","Machine Learning"]`,
			Years:     9,
			Education: `[{"degree":"Master of Science","field":"Statistics"}]`,
			Location:  "New York, NY",
		},
	}

	return database.InTx(ctx, db, func(tx database.Tx) error {
		for _, it := range items {
			_, err := tx.Exec(
				ctx,
				`INSERT INTO resumes (id, raw_text, skills, experience_years, education, location)
				 VALUES ($1, $2, $3::jsonb, $4, $5::jsonb, $6)
				 ON CONFLICT (id) DO NOTHING`,
				it.ID,
				it.RawText,
				it.Skills,
				it.Years,
				it.Education,
				it.Location,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
