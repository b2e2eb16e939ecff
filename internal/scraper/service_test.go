package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobmatch/internal/config"
)

const serviceRows = `{"jobs": [
	{"site": "indeed", "title": "Backend Engineer (Go)", "company": "Acme", "location": "Austin, TX",
	 "description": "Go services", "job_url": "https://indeed.example/viewjob?jk=1",
	 "date_posted": "2026-03-02", "min_amount": 120000, "max_amount": 150000, "job_type": "fulltime"},
	{"site": "linkedin", "title": "", "job_url": "https://linkedin.example/jobs/2"},
	{"site": "linkedin", "title": "Platform Engineer", "company": "Globex", "job_url": "https://linkedin.example/jobs/3",
	 "date_posted": "last week"}
]}`

func TestServiceAdapter_PostsQueryAndMapsRows(t *testing.T) {
	var got serviceScrapeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/scrape" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(serviceRows))
	}))
	defer server.Close()

	a := NewServiceAdapter(config.ServiceConfig{BaseURL: server.URL + "/", Sites: []string{"indeed", "linkedin"}}, nil)
	if a.Name() != "jobspy" {
		t.Fatalf("expected default name jobspy, got %q", a.Name())
	}

	postings, err := a.Fetch(context.Background(), Query{SearchTerm: " go ", Location: "Austin", MaxResults: 10, MaxAgeDays: 14})
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if got.SearchTerm != "go" || got.Location != "Austin" || got.ResultsWanted != 10 || got.HoursOld != 336 {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if len(got.Sites) != 2 {
		t.Fatalf("expected sites to be forwarded, got %v", got.Sites)
	}

	if len(postings) != 2 {
		t.Fatalf("expected rows without a title to be dropped, got %d", len(postings))
	}
	first := postings[0]
	if first.Source != "jobspy" || first.URL != "https://indeed.example/viewjob?jk=1" || first.PostedAt == nil {
		t.Fatalf("unexpected first posting: %+v", first)
	}
	if first.SalaryMin == nil || *first.SalaryMin != 120000 || first.JobType != "fulltime" {
		t.Fatalf("unexpected salary or job type: %+v", first)
	}
	if postings[1].PostedAt != nil || postings[1].PostedRaw != "last week" {
		t.Fatalf("expected unparsed date kept raw, got %v %q", postings[1].PostedAt, postings[1].PostedRaw)
	}
}

func TestServiceAdapter_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scraper busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewServiceAdapter(config.ServiceConfig{BaseURL: server.URL}, nil).Fetch(context.Background(), Query{SearchTerm: "go"})
	var se *statusError
	if !errors.As(err, &se) || se.code != http.StatusServiceUnavailable {
		t.Fatalf("expected status error 503, got %v", err)
	}
}

func TestServiceAdapter_RequiresBaseURL(t *testing.T) {
	if _, err := NewServiceAdapter(config.ServiceConfig{}, nil).Fetch(context.Background(), Query{SearchTerm: "go"}); err == nil {
		t.Fatalf("expected error without base url")
	}
}
