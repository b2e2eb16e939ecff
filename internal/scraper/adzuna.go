package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmatch/internal/config"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/logger"

	"go.uber.org/zap"
)

const (
	adzunaDefaultBaseURL = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize       = 50
	adzunaMaxPages       = 3
	adzunaHTTPTimeout    = 15 * time.Second
)

// AdzunaAdapter reads the Adzuna search API, at most adzunaMaxPages pages per query.
type AdzunaAdapter struct {
	appID   string
	appKey  string
	country string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewAdzunaAdapter(cfg config.AdzunaConfig, log *zap.Logger) *AdzunaAdapter {
	country := strings.ToLower(strings.TrimSpace(cfg.Country))
	if country == "" {
		country = "us"
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = adzunaDefaultBaseURL
	}
	return &AdzunaAdapter{
		appID:   strings.TrimSpace(cfg.AppID),
		appKey:  strings.TrimSpace(cfg.AppKey),
		country: country,
		baseURL: base,
		client:  &http.Client{Timeout: adzunaHTTPTimeout},
		log:     logger.OrNop(log).Named("adzuna"),
	}
}

func (a *AdzunaAdapter) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Fetch pages through results until a short page, the page cap or q.MaxResults.
func (a *AdzunaAdapter) Fetch(ctx context.Context, q Query) ([]job.Posting, error) {
	if a.appID == "" || a.appKey == "" {
		return nil, fmt.Errorf("adzuna credentials not configured")
	}

	out := make([]job.Posting, 0, adzunaPageSize)
	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, q, page)
		if err != nil {
			if len(out) > 0 {
				a.log.Warn("adzuna page failed, keeping earlier pages", zap.Int("page", page), zap.Error(err))
				break
			}
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		out = append(out, batch...)
		if len(batch) < adzunaPageSize || (q.MaxResults > 0 && len(out) >= q.MaxResults) {
			break
		}
	}
	return capPostings(out, q.MaxResults), nil
}

func (a *AdzunaAdapter) pageURL(q Query, page int) string {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", strings.TrimSpace(q.SearchTerm))
	if loc := strings.TrimSpace(q.Location); loc != "" && !strings.EqualFold(loc, "remote") {
		params.Set("where", loc)
	}
	if q.MaxAgeDays > 0 {
		params.Set("max_days_old", strconv.Itoa(q.MaxAgeDays))
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")
	return fmt.Sprintf("%s/%s/search/%d?%s", a.baseURL, a.country, page, params.Encode())
}

func (a *AdzunaAdapter) fetchPage(ctx context.Context, q Query, page int) ([]job.Posting, error) {
	body, err := httpGetWithRetry(ctx, a.client, a.pageURL(q, page), map[string]string{"Accept": "application/json"}, 2)
	if err != nil {
		return nil, err
	}

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make([]job.Posting, 0, len(resp.Results))
	for _, r := range resp.Results {
		posted, raw := parsePosted(r.Created)
		out = append(out, job.Posting{
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.Company.DisplayName),
			Location:    strings.TrimSpace(r.Location.DisplayName),
			Description: strings.TrimSpace(r.Description),
			URL:         strings.TrimSpace(r.RedirectURL),
			PostedAt:    posted,
			PostedRaw:   raw,
			SalaryMin:   floatPtr(r.SalaryMin),
			SalaryMax:   floatPtr(r.SalaryMax),
			JobType:     pickNonEmpty(r.ContractTime, r.ContractType),
			Source:      a.Name(),
		})
	}
	return out, nil
}
