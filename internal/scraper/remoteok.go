package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobmatch/internal/domain/job"
	"jobmatch/internal/logger"
	"jobmatch/internal/search"

	"go.uber.org/zap"
)

const remoteOKDefaultBaseURL = "https://remoteok.com"

// RemoteOKAdapter reads the public RemoteOK JSON feed and filters it locally,
// since the feed has no search parameters.
type RemoteOKAdapter struct {
	apiBase string
	client  *http.Client
	log     *zap.Logger
}

func NewRemoteOKAdapter(baseURL string, log *zap.Logger) *RemoteOKAdapter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = remoteOKDefaultBaseURL
	}
	return &RemoteOKAdapter{
		apiBase: base,
		client:  &http.Client{Timeout: 20 * time.Second},
		log:     logger.OrNop(log).Named("remoteok"),
	}
}

func (a *RemoteOKAdapter) Name() string { return "remoteok" }

type remoteOKListing struct {
	ID          json.RawMessage `json:"id"`
	Epoch       int64           `json:"epoch"`
	Date        string          `json:"date"`
	Company     string          `json:"company"`
	Position    string          `json:"position"`
	Tags        []string        `json:"tags"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	URL         string          `json:"url"`
	ApplyURL    string          `json:"apply_url"`
	SalaryMin   float64         `json:"salary_min"`
	SalaryMax   float64         `json:"salary_max"`
}

func (a *RemoteOKAdapter) Fetch(ctx context.Context, q Query) ([]job.Posting, error) {
	body, err := httpGetWithRetry(ctx, a.client, a.apiBase+"/api", map[string]string{"Accept": "application/json"}, 3)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	terms := search.ProcessQuery(q.SearchTerm)
	out := make([]job.Posting, 0)
	for _, item := range raw {
		var l remoteOKListing
		// The first element is a legal notice without a position; skip anything
		// that does not decode into a listing.
		if err := json.Unmarshal(item, &l); err != nil || strings.TrimSpace(l.Position) == "" {
			continue
		}
		if !l.matches(terms) {
			continue
		}

		posted := unixTime(l.Epoch)
		rawDate := ""
		if posted == nil {
			posted, rawDate = parsePosted(l.Date)
		}
		out = append(out, job.Posting{
			Title:       strings.TrimSpace(l.Position),
			Company:     strings.TrimSpace(l.Company),
			Location:    pickNonEmpty(l.Location, "Remote"),
			Description: strings.TrimSpace(l.Description),
			URL:         pickNonEmpty(l.URL, l.ApplyURL),
			PostedAt:    posted,
			PostedRaw:   rawDate,
			SalaryMin:   floatPtr(l.SalaryMin),
			SalaryMax:   floatPtr(l.SalaryMax),
			JobType:     "full-time",
			Source:      a.Name(),
		})
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			break
		}
	}
	a.log.Debug("remoteok feed filtered", zap.Int("feed", len(raw)), zap.Int("kept", len(out)))
	return out, nil
}

// matches reports whether every search word, or a synonym of it, occurs in
// the listing text.
func (l remoteOKListing) matches(q search.Query) bool {
	return q.Matches(l.Position + " " + strings.Join(l.Tags, " ") + " " + l.Description)
}
