// Package discovery fans a search out to the job sources, filters the
// postings through the validator and returns a deduplicated, ranked batch.
package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"jobmatch/internal/apperr"
	"jobmatch/internal/domain/dedup"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/domain/validation"
	"jobmatch/internal/logger"
	"jobmatch/internal/metrics"
	"jobmatch/internal/scraper"

	"go.uber.org/zap"
)

const (
	DefaultLocation   = "Remote"
	DefaultMaxResults = 50
	DefaultMaxAgeDays = 14

	// MinQualityScore is the admission gate for discovered postings. It is
	// stricter than validation.MinValidConfidence on purpose.
	MinQualityScore = 70

	defaultAdapterTimeout = 45 * time.Second
)

// Rejection reasons, also used as metric labels.
const (
	RejectSpam          = "spam"
	RejectInvalid       = "invalid"
	RejectTooOld        = "too_old"
	RejectLowConfidence = "low_confidence"
)

type Request struct {
	SearchTerm string `json:"search_term"`
	Location   string `json:"location"`
	MaxResults int    `json:"max_results"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Normalize trims the request and fills zero values with the defaults.
func (r Request) Normalize() Request {
	r.SearchTerm = strings.TrimSpace(r.SearchTerm)
	r.Location = strings.TrimSpace(r.Location)
	if r.Location == "" {
		r.Location = DefaultLocation
	}
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.MaxAgeDays == 0 {
		r.MaxAgeDays = DefaultMaxAgeDays
	}
	return r
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.SearchTerm) == "" {
		return apperr.Input("discovery.request", "search term is required")
	}
	if r.MaxResults < 0 {
		return apperr.Input("discovery.request", "max_results must not be negative, got %d", r.MaxResults)
	}
	if r.MaxAgeDays < 0 {
		return apperr.Input("discovery.request", "max_age_days must not be negative, got %d", r.MaxAgeDays)
	}
	return nil
}

// Key identifies a normalized request. Equal searches that differ only in
// case or surrounding space share a key.
func (r Request) Key() string {
	n := r.Normalize()
	raw := strings.ToLower(n.SearchTerm) + "|" + strings.ToLower(n.Location) + "|" +
		strconv.Itoa(n.MaxResults) + "|" + strconv.Itoa(n.MaxAgeDays)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:32]
}

// Candidate is a posting that passed every admission gate.
type Candidate struct {
	Posting        job.Posting       `json:"posting"`
	Validation     validation.Result `json:"validation"`
	QualityScore   int               `json:"ai_quality_score"`
	AgeDays        *int              `json:"age_days"`
	Freshness      string            `json:"freshness"`
	FreshnessScore float64           `json:"freshness_score"`
}

// SourceReport describes what one adapter contributed to a batch.
type SourceReport struct {
	Source   string        `json:"source"`
	Fetched  int           `json:"fetched"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

func (s SourceReport) Failed() bool { return s.Error != "" }

type Batch struct {
	Request    Request        `json:"request"`
	Candidates []Candidate    `json:"candidates"`
	Sources    []SourceReport `json:"sources"`
	Fetched    int            `json:"fetched"`
	Rejected   map[string]int `json:"rejected"`
	Duplicates int            `json:"duplicates"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Jobs converts the candidates into jobs, in ranking order.
func (b Batch) Jobs() []job.Job {
	out := make([]job.Job, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		out = append(out, c.Posting.ToJob())
	}
	return out
}

func (b Batch) FailedSources() []string {
	out := make([]string, 0)
	for _, s := range b.Sources {
		if s.Failed() {
			out = append(out, s.Source)
		}
	}
	return out
}

type Orchestrator struct {
	adapters       []scraper.Adapter
	validator      *validation.Validator
	adapterTimeout time.Duration
	maxPerSource   int
	maxConcurrent  int
	log            *zap.Logger
}

type Option func(*Orchestrator)

func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

func WithAdapterTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.adapterTimeout = d
		}
	}
}

// WithMaxPerSource caps how many postings a single adapter may contribute.
func WithMaxPerSource(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPerSource = n
		}
	}
}

// WithMaxConcurrentSources bounds how many adapters fetch at the same time.
// Zero queries every adapter at once.
func WithMaxConcurrentSources(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

func New(adapters []scraper.Adapter, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters:       adapters,
		validator:      validation.New(),
		adapterTimeout: defaultAdapterTimeout,
		log:            logger.OrNop(log).Named("discovery"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Sources() []string {
	out := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		out = append(out, a.Name())
	}
	return out
}

// Discover runs one discovery pass. Source failures are recorded in the batch
// and never fail the call; only a malformed request returns an error.
func (o *Orchestrator) Discover(ctx context.Context, req Request) (Batch, error) {
	if err := req.Validate(); err != nil {
		return Batch{}, err
	}
	req = req.Normalize()

	start := time.Now()
	defer func() { metrics.DiscoveryDuration.Observe(time.Since(start).Seconds()) }()

	batch := Batch{
		Request:   req,
		Rejected:  map[string]int{},
		StartedAt: start.UTC(),
	}

	postings, reports := o.fetchAll(ctx, scraper.Query{
		SearchTerm: req.SearchTerm,
		Location:   req.Location,
		MaxResults: o.perSourceLimit(req),
		MaxAgeDays: req.MaxAgeDays,
	})
	batch.Sources = reports
	batch.Fetched = len(postings)

	admitted := make([]Candidate, 0, len(postings))
	for _, p := range postings {
		res := o.validator.Validate(p)
		if reason := rejectReason(res, req.MaxAgeDays); reason != "" {
			batch.Rejected[reason]++
			metrics.DiscoveryRejected.WithLabelValues(reason).Inc()
			continue
		}
		admitted = append(admitted, Candidate{
			Posting:        p,
			Validation:     res,
			QualityScore:   res.ConfidenceScore,
			AgeDays:        res.AgeDays,
			Freshness:      validation.FreshnessLabel(res.AgeDays),
			FreshnessScore: validation.FreshnessScore(res.AgeDays),
		})
	}

	unique := dedup.By(admitted, func(c Candidate) job.Posting { return c.Posting })
	batch.Duplicates = len(admitted) - len(unique)

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].QualityScore > unique[j].QualityScore
	})
	if len(unique) > req.MaxResults {
		unique = unique[:req.MaxResults]
	}
	batch.Candidates = unique
	batch.FinishedAt = time.Now().UTC()

	o.log.Info("discovery finished",
		zap.String("search_term", req.SearchTerm),
		zap.String("location", req.Location),
		zap.Int("fetched", batch.Fetched),
		zap.Int("admitted", len(admitted)),
		zap.Int("duplicates", batch.Duplicates),
		zap.Int("returned", len(batch.Candidates)),
		zap.Strings("failed_sources", batch.FailedSources()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return batch, nil
}

// rejectReason returns the first failed admission gate, or "" when the
// posting is admitted. An unknown age passes the age gate.
func rejectReason(res validation.Result, maxAgeDays int) string {
	switch {
	case res.IsSpam:
		return RejectSpam
	case !res.IsValid:
		return RejectInvalid
	case res.AgeDays != nil && *res.AgeDays > maxAgeDays:
		return RejectTooOld
	case res.ConfidenceScore < MinQualityScore:
		return RejectLowConfidence
	}
	return ""
}

func (o *Orchestrator) perSourceLimit(req Request) int {
	if o.maxPerSource > 0 {
		return o.maxPerSource
	}
	return req.MaxResults
}

// fetchAll queries every adapter concurrently and merges the postings in
// adapter registration order.
func (o *Orchestrator) fetchAll(ctx context.Context, q scraper.Query) ([]job.Posting, []SourceReport) {
	n := len(o.adapters)
	reports := make([]SourceReport, n)
	perAdapter := make([][]job.Posting, n)
	done := make([]bool, n)

	if n == 0 {
		o.log.Warn("no job sources configured")
		return nil, reports
	}

	workers := n
	if o.maxConcurrent > 0 && o.maxConcurrent < n {
		workers = o.maxConcurrent
	}
	pool := scraper.NewWorkerPool(workers, n)
	results := pool.Run(ctx)
	for i, a := range o.adapters {
		a := a
		pool.Submit(scraper.Task{
			Index: i,
			Name:  a.Name(),
			Fn: func(ctx context.Context) ([]job.Posting, error) {
				fctx, cancel := context.WithTimeout(ctx, o.adapterTimeout)
				defer cancel()
				return a.Fetch(fctx, q)
			},
		})
	}
	pool.Close()

	for res := range results {
		done[res.Index] = true
		reports[res.Index] = SourceReport{Source: res.Name, Elapsed: res.Elapsed}
		if res.Err != nil {
			o.recordFailure(&reports[res.Index], apperr.AdapterFailure(res.Name, res.Err))
			continue
		}
		ps := res.Postings
		if o.maxPerSource > 0 && len(ps) > o.maxPerSource {
			ps = ps[:o.maxPerSource]
		}
		for k := range ps {
			if strings.TrimSpace(ps[k].Source) == "" {
				ps[k].Source = res.Name
			}
		}
		perAdapter[res.Index] = ps
		reports[res.Index].Fetched = len(ps)
		metrics.AdapterFetches.WithLabelValues(res.Name, "ok").Inc()
		metrics.AdapterPostings.WithLabelValues(res.Name).Add(float64(len(ps)))
	}

	for i, a := range o.adapters {
		if done[i] {
			continue
		}
		reports[i] = SourceReport{Source: a.Name()}
		cause := ctx.Err()
		if cause == nil {
			cause = fmt.Errorf("adapter did not report")
		}
		o.recordFailure(&reports[i], apperr.AdapterFailure(a.Name(), cause))
	}

	merged := make([]job.Posting, 0)
	for _, ps := range perAdapter {
		merged = append(merged, ps...)
	}
	return merged, reports
}

func (o *Orchestrator) recordFailure(r *SourceReport, err *apperr.Error) {
	r.Error = err.Error()
	r.TimedOut = err.Timeout
	metrics.AdapterFetches.WithLabelValues(r.Source, "error").Inc()
	o.log.Warn("job source failed",
		zap.String("source", r.Source),
		zap.Bool("timeout", err.Timeout),
		zap.Duration("elapsed", r.Elapsed),
		zap.Error(err),
	)
}
