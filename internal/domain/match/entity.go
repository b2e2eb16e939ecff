package match

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Result is the live match between one résumé and one job. A recomputation replaces it whole.
type Result struct {
	ResumeID uuid.UUID
	JobID    uuid.UUID

	OverallScore    float64
	KeywordScore    float64
	SemanticScore   float64
	ExperienceScore float64
	EducationScore  float64
	LocationScore   float64

	MatchedSkills []string
	MissingSkills []string
	Strengths     []string
	Gaps          []string

	// Suggestions is produced by an external text generator and stored verbatim.
	Suggestions json.RawMessage

	CalculatedAt time.Time
}
