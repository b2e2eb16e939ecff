package dto

import (
	"jobmatch/internal/discovery"
	"jobmatch/internal/repository"
)

type DiscoveryRequest struct {
	SearchTerm string `json:"search_term"`
	Location   string `json:"location"`
	MaxResults int    `json:"max_results"`
	MaxAgeDays int    `json:"max_age_days"`
}

func (r DiscoveryRequest) ToRequest() discovery.Request {
	return discovery.Request{
		SearchTerm: r.SearchTerm,
		Location:   r.Location,
		MaxResults: r.MaxResults,
		MaxAgeDays: r.MaxAgeDays,
	}
}

type DiscoveryResponse struct {
	Request       discovery.Request        `json:"request"`
	Jobs          []discovery.Candidate    `json:"jobs"`
	Sources       []discovery.SourceReport `json:"sources"`
	FailedSources []string                 `json:"failed_sources"`
	Fetched       int                      `json:"fetched"`
	Rejected      map[string]int           `json:"rejected"`
	Duplicates    int                      `json:"duplicates"`
	Cached        bool                     `json:"cached"`
	Stored        repository.UpsertStats   `json:"stored"`
}

func NewDiscoveryResponse(b discovery.Batch, cached bool, stored repository.UpsertStats) DiscoveryResponse {
	jobs := b.Candidates
	if jobs == nil {
		jobs = []discovery.Candidate{}
	}
	rejected := b.Rejected
	if rejected == nil {
		rejected = map[string]int{}
	}
	return DiscoveryResponse{
		Request:       b.Request,
		Jobs:          jobs,
		Sources:       b.Sources,
		FailedSources: b.FailedSources(),
		Fetched:       b.Fetched,
		Rejected:      rejected,
		Duplicates:    b.Duplicates,
		Cached:        cached,
		Stored:        stored,
	}
}
