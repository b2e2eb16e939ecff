// Package validation classifies job postings as spam, outdated or low quality.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"jobmatch/internal/apperr"
	"jobmatch/internal/domain/job"

	"github.com/araddon/dateparse"
)

const (
	minDescriptionLength = 100
	staleAfterDays       = 60
	outdatedAfterDays    = 90

	spamPenalty     = 50
	outdatedPenalty = 30
	warningPenalty  = 5

	// MinValidConfidence is the floor for IsValid.
	MinValidConfidence = 40
)

var spamPhrases = []string{
	"work from home scam",
	"pyramid scheme",
	"mlm",
	"multi-level marketing",
	"pay to work",
	"easy money",
	"get rich quick",
	"no experience needed make $$$",
	"bitcoin investment",
	"forex trading course",
	"insurance sales only",
}

var redFlags = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$\d{3,},?\d{3}[+]?\s*(per|a)\s*(week|day)`),
	regexp.MustCompile(`(?i)send\s+money`),
	regexp.MustCompile(`(?i)western union`),
	regexp.MustCompile(`(?i)wire transfer`),
	regexp.MustCompile(`(?i)cashier.*check`),
}

var placeholderCompanies = map[string]struct{}{"n/a": {}, "none": {}, "unknown": {}}

type Result struct {
	IsValid         bool     `json:"is_valid"`
	IsSpam          bool     `json:"is_spam"`
	IsOutdated      bool     `json:"is_outdated"`
	ConfidenceScore int      `json:"confidence_score"`
	Warnings        []string `json:"warnings"`
	AgeDays         *int     `json:"age_days"`
	// Inconclusive is set when a posted date was given but could not be parsed.
	Inconclusive bool `json:"inconclusive,omitempty"`
}

// Err returns a ValidationInconclusive error for inconclusive results, nil otherwise.
func (r Result) Err() error {
	if !r.Inconclusive {
		return nil
	}
	return apperr.ValidationInconclusive("validation.age", "posted date could not be parsed")
}

type Validator struct {
	now func() time.Time
}

type Option func(*Validator)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Validate(p job.Posting) Result {
	res := Result{Warnings: []string{}}

	text := strings.ToLower(p.Description + " " + p.Title)
	for _, phrase := range spamPhrases {
		if strings.Contains(text, phrase) {
			res.IsSpam = true
			res.Warnings = append(res.Warnings, "Spam keyword detected: "+phrase)
		}
	}
	for _, re := range redFlags {
		if re.MatchString(text) {
			res.IsSpam = true
			res.Warnings = append(res.Warnings, "Suspicious pattern detected")
		}
	}

	company := strings.ToLower(strings.TrimSpace(p.Company))
	if _, placeholder := placeholderCompanies[company]; company == "" || placeholder {
		res.Warnings = append(res.Warnings, "Missing or invalid company name")
	}
	if utf8.RuneCountInString(p.Description) < minDescriptionLength {
		res.Warnings = append(res.Warnings, "Job description too short or missing")
	}

	res.AgeDays, res.Inconclusive = v.age(p)
	if res.AgeDays != nil {
		switch d := *res.AgeDays; {
		case d > outdatedAfterDays:
			res.IsOutdated = true
			res.Warnings = append(res.Warnings, fmt.Sprintf("Job posting is %d days old (likely filled)", d))
		case d > staleAfterDays:
			res.Warnings = append(res.Warnings, fmt.Sprintf("Job posting is %d days old (may be filled)", d))
		}
	}

	confidence := 100
	if res.IsSpam {
		confidence -= spamPenalty
	}
	if res.IsOutdated {
		confidence -= outdatedPenalty
	}
	confidence -= warningPenalty * len(res.Warnings)
	res.ConfidenceScore = min(100, max(0, confidence))

	res.IsValid = !res.IsSpam && res.ConfidenceScore >= MinValidConfidence
	return res
}

// age returns whole days since posting, rounded down. The second value is true
// when PostedRaw was present but unparseable.
func (v *Validator) age(p job.Posting) (*int, bool) {
	posted := p.PostedAt
	if posted == nil {
		raw := strings.TrimSpace(p.PostedRaw)
		if raw == "" {
			return nil, false
		}
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return nil, true
		}
		posted = &t
	}
	return AgeDays(*posted, v.now()), false
}

// AgeDays is floor((now - posted) / 24h).
func AgeDays(posted, now time.Time) *int {
	d := int(math.Floor(now.Sub(posted).Hours() / 24))
	return &d
}

// Validated pairs a posting with its result.
type Validated struct {
	Posting job.Posting
	Result  Result
}

// FilterValid keeps only the valid postings, in input order.
func (v *Validator) FilterValid(postings []job.Posting) []Validated {
	out := make([]Validated, 0, len(postings))
	for _, p := range postings {
		r := v.Validate(p)
		if r.IsValid {
			out = append(out, Validated{Posting: p, Result: r})
		}
	}
	return out
}

// FreshnessLabel turns an age in days into a human readable label.
func FreshnessLabel(ageDays *int) string {
	if ageDays == nil {
		return "Unknown"
	}
	switch d := *ageDays; {
	case d < 7:
		return "Fresh (< 1 week)"
	case d < 30:
		return "Recent (< 1 month)"
	case d < 60:
		return "Older (1-2 months)"
	default:
		return "Very Old (> 2 months)"
	}
}

// FreshnessScore is 1.0 for a posting made today, 0.5 at one week and 0 from two weeks on.
// Unknown ages score 0.5.
func FreshnessScore(ageDays *int) float64 {
	if ageDays == nil {
		return 0.5
	}
	d := float64(*ageDays)
	switch {
	case d < 0:
		return 1.0
	case d <= 7:
		return 1.0 - d/14
	case d <= 14:
		return 0.5 - (d-7)/14
	default:
		return 0
	}
}
