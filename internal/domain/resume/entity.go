package resume

import (
	"strings"

	"jobmatch/internal/apperr"

	"github.com/google/uuid"
)

type Education struct {
	Degree string `json:"degree"`
	Field  string `json:"field"`
}

// Resume is the parsed résumé as supplied by the ingestion side. It is read-only here.
type Resume struct {
	ID              uuid.UUID
	RawText         string
	Skills          []string
	ExperienceYears *int
	Education       []Education
	Location        string
}

func (r Resume) Validate() error {
	if strings.TrimSpace(r.RawText) == "" {
		return apperr.Input("resume.validate", "raw text is empty")
	}
	if r.ExperienceYears != nil && *r.ExperienceYears < 0 {
		return apperr.Input("resume.validate", "experience years must not be negative")
	}
	return nil
}
