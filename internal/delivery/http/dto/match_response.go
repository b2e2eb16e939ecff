package dto

import (
	"encoding/json"
	"time"

	"jobmatch/internal/domain/match"

	"github.com/google/uuid"
)

type ScoreBreakdown struct {
	Keyword    float64 `json:"keyword"`
	Semantic   float64 `json:"semantic"`
	Experience float64 `json:"experience"`
	Education  float64 `json:"education"`
	Location   float64 `json:"location"`
}

type MatchResponse struct {
	ResumeID      uuid.UUID       `json:"resume_id"`
	JobID         uuid.UUID       `json:"job_id"`
	OverallScore  float64         `json:"overall_score"`
	Scores        ScoreBreakdown  `json:"scores"`
	MatchedSkills []string        `json:"matched_skills"`
	MissingSkills []string        `json:"missing_skills"`
	Strengths     []string        `json:"strengths"`
	Gaps          []string        `json:"gaps"`
	Suggestions   json.RawMessage `json:"suggestions,omitempty"`
	CalculatedAt  string          `json:"calculated_at"`
}

func NewMatchResponse(m match.Result) MatchResponse {
	return MatchResponse{
		ResumeID:     m.ResumeID,
		JobID:        m.JobID,
		OverallScore: m.OverallScore,
		Scores: ScoreBreakdown{
			Keyword:    m.KeywordScore,
			Semantic:   m.SemanticScore,
			Experience: m.ExperienceScore,
			Education:  m.EducationScore,
			Location:   m.LocationScore,
		},
		MatchedSkills: nonNil(m.MatchedSkills),
		MissingSkills: nonNil(m.MissingSkills),
		Strengths:     nonNil(m.Strengths),
		Gaps:          nonNil(m.Gaps),
		Suggestions:   m.Suggestions,
		CalculatedAt:  m.CalculatedAt.UTC().Format(time.RFC3339),
	}
}

func NewMatchListResponse(items []match.Result) []MatchResponse {
	out := make([]MatchResponse, 0, len(items))
	for _, m := range items {
		out = append(out, NewMatchResponse(m))
	}
	return out
}

type SimilarJobResponse struct {
	JobID uuid.UUID `json:"job_id"`
	Score float64   `json:"score"`
}

type IndexJobResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Indexed bool      `json:"indexed"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
