package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobmatch/internal/config"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/logger"

	"go.uber.org/zap"
)

const serviceDefaultTimeout = 90 * time.Second

// ServiceAdapter delegates scraping to an external scraper service (for example
// a JobSpy wrapper) that exposes POST /scrape and answers with JobSpy rows.
type ServiceAdapter struct {
	name    string
	baseURL string
	sites   []string
	client  *http.Client
	log     *zap.Logger
}

type serviceScrapeRequest struct {
	SearchTerm    string   `json:"search_term"`
	Location      string   `json:"location"`
	ResultsWanted int      `json:"results_wanted,omitempty"`
	HoursOld      int      `json:"hours_old,omitempty"`
	Sites         []string `json:"site_name,omitempty"`
}

type serviceScrapeResponse struct {
	Jobs []serviceRow `json:"jobs"`
}

type serviceRow struct {
	Site        string   `json:"site"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	JobURL      string   `json:"job_url"`
	DatePosted  string   `json:"date_posted"`
	MinAmount   *float64 `json:"min_amount"`
	MaxAmount   *float64 `json:"max_amount"`
	JobType     string   `json:"job_type"`
}

func NewServiceAdapter(cfg config.ServiceConfig, log *zap.Logger) *ServiceAdapter {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "jobspy"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = serviceDefaultTimeout
	}
	return &ServiceAdapter{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		sites:   cfg.Sites,
		client:  &http.Client{Timeout: timeout},
		log:     logger.OrNop(log).Named(name),
	}
}

func (a *ServiceAdapter) Name() string { return a.name }

func (a *ServiceAdapter) Fetch(ctx context.Context, q Query) ([]job.Posting, error) {
	if a == nil || a.baseURL == "" {
		return nil, errors.New("scraper service base url is not configured")
	}
	endpoint := a.baseURL + "/scrape"

	body := serviceScrapeRequest{
		SearchTerm:    strings.TrimSpace(q.SearchTerm),
		Location:      strings.TrimSpace(q.Location),
		ResultsWanted: q.MaxResults,
		HoursOld:      q.MaxAgeDays * 24,
		Sites:         a.sites,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.TrimSpace(string(rb))
		a.log.Warn("scrape request failed", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode), zap.String("body", bodyStr))
		return nil, &statusError{code: resp.StatusCode, body: bodyStr}
	}

	raw, err := readAllLimit(resp.Body, maxResponseBody)
	if err != nil {
		return nil, err
	}
	var out serviceScrapeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode scrape response: %w", err)
	}

	postings := make([]job.Posting, 0, len(out.Jobs))
	for _, r := range out.Jobs {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.JobURL) == "" {
			continue
		}
		posted, rawDate := parsePosted(r.DatePosted)
		postings = append(postings, job.Posting{
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.Company),
			Location:    strings.TrimSpace(r.Location),
			Description: strings.TrimSpace(r.Description),
			URL:         strings.TrimSpace(r.JobURL),
			PostedAt:    posted,
			PostedRaw:   rawDate,
			SalaryMin:   r.MinAmount,
			SalaryMax:   r.MaxAmount,
			JobType:     strings.TrimSpace(r.JobType),
			Source:      a.name,
		})
	}
	a.log.Debug("scraper service answered", zap.Int("rows", len(out.Jobs)), zap.Int("kept", len(postings)))
	return capPostings(postings, q.MaxResults), nil
}
