package matching

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"jobmatch/internal/domain/job"
	"jobmatch/internal/domain/match"
	"jobmatch/internal/domain/resume"
)

// Similarity is the semantic dependency of the engine.
type Similarity interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

type Weights struct {
	Keyword    float64
	Semantic   float64
	Experience float64
	Education  float64
	Location   float64
}

var DefaultWeights = Weights{
	Keyword:    0.30,
	Semantic:   0.40,
	Experience: 0.15,
	Education:  0.10,
	Location:   0.05,
}

func (w Weights) Sum() float64 {
	return w.Keyword + w.Semantic + w.Experience + w.Education + w.Location
}

// Scores holds the five sub-scores on a 0..1 scale.
type Scores struct {
	Keyword    float64
	Semantic   float64
	Experience float64
	Education  float64
	Location   float64
}

func (s Scores) weighted(w Weights) float64 {
	return w.Keyword*s.Keyword +
		w.Semantic*s.Semantic +
		w.Experience*s.Experience +
		w.Education*s.Education +
		w.Location*s.Location
}

type Result struct {
	OverallScore float64
	// Percent holds the sub-scores on a 0..100 scale, one decimal.
	Percent       Scores
	MatchedSkills []string
	MissingSkills []string
	Strengths     []string
	Gaps          []string
}

// ToMatch turns the engine output into the persisted record for the pair.
func (r Result) ToMatch(res resume.Resume, j job.Job, at time.Time) match.Result {
	return match.Result{
		ResumeID:        res.ID,
		JobID:           j.ID,
		OverallScore:    r.OverallScore,
		KeywordScore:    r.Percent.Keyword,
		SemanticScore:   r.Percent.Semantic,
		ExperienceScore: r.Percent.Experience,
		EducationScore:  r.Percent.Education,
		LocationScore:   r.Percent.Location,
		MatchedSkills:   r.MatchedSkills,
		MissingSkills:   r.MissingSkills,
		Strengths:       r.Strengths,
		Gaps:            r.Gaps,
		CalculatedAt:    at.UTC(),
	}
}

type Engine struct {
	sim     Similarity
	weights Weights
}

func NewEngine(sim Similarity) *Engine {
	return &Engine{sim: sim, weights: DefaultWeights}
}

// Match scores a résumé against a job. A similarity failure fails the whole match.
// Raw cosine similarity is clamped to [0,1] before weighting so every sub-score stays in range.
func (e *Engine) Match(ctx context.Context, r resume.Resume, j job.Job) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if err := j.Validate(); err != nil {
		return Result{}, err
	}
	if e == nil || e.sim == nil {
		return Result{}, fmt.Errorf("matching engine has no similarity backend")
	}

	keyword, matched, missing := KeywordScore(r.Skills, j.RequiredSkills)

	semantic, err := e.sim.Similarity(ctx, r.RawText, j.Description)
	if err != nil {
		return Result{}, err
	}

	s := Scores{
		Keyword:    keyword,
		Semantic:   clampFloat(semantic, 0, 1),
		Experience: ExperienceScore(r.ExperienceYears, j.ExperienceLevel),
		Education:  EducationScore(r.Education, j.Description),
		Location:   LocationScore(r.Location, j.Location),
	}

	strengths, gaps := StrengthsAndGaps(matched, missing, s)

	return Result{
		OverallScore: percent(s.weighted(e.weights)),
		Percent: Scores{
			Keyword:    percent(s.Keyword),
			Semantic:   percent(s.Semantic),
			Experience: percent(s.Experience),
			Education:  percent(s.Education),
			Location:   percent(s.Location),
		},
		MatchedSkills: matched,
		MissingSkills: missing,
		Strengths:     strengths,
		Gaps:          gaps,
	}, nil
}

// KeywordScore intersects résumé skills with the job's required skills, case-insensitively.
// matched and missing keep the job's order and partition the deduplicated required set.
func KeywordScore(resumeSkills, required []string) (float64, []string, []string) {
	req := normalizeSkills(required)
	if len(req) == 0 {
		return 1.0, []string{}, []string{}
	}

	have := make(map[string]struct{}, len(resumeSkills))
	for _, s := range normalizeSkills(resumeSkills) {
		have[s] = struct{}{}
	}

	matched := make([]string, 0, len(req))
	missing := make([]string, 0, len(req))
	for _, s := range req {
		if _, ok := have[s]; ok {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return float64(len(matched)) / float64(len(req)), matched, missing
}

func normalizeSkills(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type band struct {
	min, max float64
}

var experienceBands = map[job.ExperienceLevel]band{
	job.LevelEntry:  {0, 2},
	job.LevelMid:    {2, 5},
	job.LevelSenior: {5, math.Inf(1)},
}

func ExperienceScore(years *int, level job.ExperienceLevel) float64 {
	if years == nil {
		return 0.5
	}
	b, ok := experienceBands[level.Normalize()]
	if !ok {
		return 0.5
	}

	y := float64(*years)
	switch {
	case y < b.min:
		return math.Max(0.3, 1.0-(b.min-y)*0.2)
	case y > b.max:
		return math.Max(0.7, 1.0-(y-b.max)*0.05)
	default:
		return 1.0
	}
}

var degreeRequirementTerms = []string{"bachelor", "master", "phd", "degree required"}

var (
	doctorateDegrees = map[string]struct{}{"phd": {}, "doctorate": {}, "doctoral": {}, "dphil": {}}
	masterDegrees    = map[string]struct{}{"master": {}, "masters": {}, "ms": {}, "msc": {}, "ma": {}, "mba": {}, "meng": {}}
	bachelorDegrees  = map[string]struct{}{"bachelor": {}, "bachelors": {}, "bs": {}, "bsc": {}, "ba": {}, "beng": {}, "btech": {}}
)

func EducationScore(education []resume.Education, description string) float64 {
	if len(education) == 0 {
		desc := strings.ToLower(description)
		for _, term := range degreeRequirementTerms {
			if strings.Contains(desc, term) {
				return 0.3
			}
		}
		return 0.8
	}

	best := 0.6
	for _, e := range education {
		for _, tok := range degreeTokens(e.Degree) {
			if _, ok := doctorateDegrees[tok]; ok {
				return 1.0
			}
			if _, ok := masterDegrees[tok]; ok {
				best = math.Max(best, 0.9)
			}
			if _, ok := bachelorDegrees[tok]; ok {
				best = math.Max(best, 0.8)
			}
		}
	}
	return best
}

// degreeTokens splits "M.Sc. Computer Science" into ["msc", "computer", "science"].
func degreeTokens(degree string) []string {
	d := strings.ToLower(degree)
	d = strings.NewReplacer(".", "", "'", "", "’", "").Replace(d)
	return strings.FieldsFunc(d, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func LocationScore(resumeLocation, jobLocation string) float64 {
	jl := strings.ToLower(strings.TrimSpace(jobLocation))
	if jl == "" {
		return 1.0
	}
	if strings.Contains(jl, "remote") {
		return 1.0
	}
	rl := strings.ToLower(strings.TrimSpace(resumeLocation))
	if rl == "" {
		return 0.5
	}
	if strings.Contains(jl, rl) || strings.Contains(rl, jl) {
		return 1.0
	}
	return 0.3
}

const maxListedSkills = 5

func StrengthsAndGaps(matched, missing []string, s Scores) ([]string, []string) {
	strengths := make([]string, 0, 3)
	gaps := make([]string, 0, 3)

	if len(matched) > 0 {
		strengths = append(strengths, fmt.Sprintf("Strong match on %d key skills: %s", len(matched), strings.Join(head(matched, maxListedSkills), ", ")))
	}
	if len(missing) > 0 {
		gaps = append(gaps, fmt.Sprintf("Missing %d required skills: %s", len(missing), strings.Join(head(missing, maxListedSkills), ", ")))
	}

	if s.Experience >= 0.8 {
		strengths = append(strengths, "Experience level matches job requirements")
	} else if s.Experience < 0.5 {
		gaps = append(gaps, "Experience level may not match job requirements")
	}

	if s.Education >= 0.8 {
		strengths = append(strengths, "Educational background aligns well")
	} else if s.Education < 0.5 {
		gaps = append(gaps, "Educational requirements may not be fully met")
	}

	return strengths, gaps
}

func head(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) || v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// percent scales a 0..1 score to 0..100 with one decimal, rounding half to even.
func percent(v float64) float64 {
	return math.RoundToEven(v*1000) / 10
}
