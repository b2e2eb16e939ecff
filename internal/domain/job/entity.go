package job

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"jobmatch/internal/apperr"

	"github.com/google/uuid"
)

type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
)

// Normalize lower-cases the level and maps an empty level to mid.
func (l ExperienceLevel) Normalize() ExperienceLevel {
	v := ExperienceLevel(strings.ToLower(strings.TrimSpace(string(l))))
	if v == "" {
		return LevelMid
	}
	return v
}

func (l ExperienceLevel) Known() bool {
	switch l.Normalize() {
	case LevelEntry, LevelMid, LevelSenior:
		return true
	}
	return false
}

// Job is a normalized posting ready for scoring.
type Job struct {
	ID              uuid.UUID
	Title           string
	Company         string
	Location        string
	Description     string
	RequiredSkills  []string
	ExperienceLevel ExperienceLevel
	PostedDate      *time.Time
	Source          string
	ExternalID      string
	URL             string
	SalaryMin       *float64
	SalaryMax       *float64
	JobType         string
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.Description) == "" {
		return apperr.Input("job.validate", "description is empty")
	}
	return nil
}

// Posting is what a source adapter hands back. Any field may be empty.
type Posting struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	PostedAt    *time.Time `json:"posted_date,omitempty"`
	// PostedRaw keeps the source's date text when it could not be parsed up front.
	PostedRaw string   `json:"posted_raw,omitempty"`
	SalaryMin *float64 `json:"salary_min,omitempty"`
	SalaryMax *float64 `json:"salary_max,omitempty"`
	JobType   string   `json:"job_type,omitempty"`
	Source    string   `json:"source"`
}

// ToJob enriches a posting with extracted skills, an inferred level and a stable external id.
func (p Posting) ToJob() Job {
	return Job{
		Title:           strings.TrimSpace(p.Title),
		Company:         strings.TrimSpace(p.Company),
		Location:        strings.TrimSpace(p.Location),
		Description:     p.Description,
		RequiredSkills:  ExtractSkills(p.Description),
		ExperienceLevel: InferExperienceLevel(p.Title, p.Description),
		PostedDate:      p.PostedAt,
		Source:          strings.TrimSpace(p.Source),
		ExternalID:      ExternalID(p.Source, p.URL),
		URL:             strings.TrimSpace(p.URL),
		SalaryMin:       p.SalaryMin,
		SalaryMax:       p.SalaryMax,
		JobType:         strings.TrimSpace(p.JobType),
	}
}

// ExternalID is md5(source + "_" + url) in hex.
func ExternalID(source, url string) string {
	h := md5.Sum([]byte(strings.TrimSpace(source) + "_" + strings.TrimSpace(url)))
	return hex.EncodeToString(h[:])
}
