package ws

import (
	"context"
	"encoding/json"
	"time"

	"jobmatch/internal/discovery"

	"go.uber.org/zap"
)

const EventDiscoveryCompleted = "discovery_completed"

type DiscoveryCompletedEvent struct {
	Type          string         `json:"type"`
	SearchTerm    string         `json:"search_term"`
	Location      string         `json:"location"`
	Candidates    int            `json:"candidates"`
	Fetched       int            `json:"fetched"`
	Rejected      map[string]int `json:"rejected"`
	FailedSources []string       `json:"failed_sources"`
	Timestamp     string         `json:"timestamp"`
}

func NewDiscoveryCompletedEvent(b discovery.Batch) DiscoveryCompletedEvent {
	ts := b.FinishedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return DiscoveryCompletedEvent{
		Type:          EventDiscoveryCompleted,
		SearchTerm:    b.Request.SearchTerm,
		Location:      b.Request.Location,
		Candidates:    len(b.Candidates),
		Fetched:       b.Fetched,
		Rejected:      b.Rejected,
		FailedSources: b.FailedSources(),
		Timestamp:     ts.UTC().Format(time.RFC3339),
	}
}

// DiscoveryCompleted announces a finished batch to clients following its
// search term.
func (h *Hub) DiscoveryCompleted(_ context.Context, b discovery.Batch) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(NewDiscoveryCompletedEvent(b))
	if err != nil {
		h.log.Warn("ws event encode failed", zap.Error(err))
		return
	}
	h.Publish(Topic(b.Request.SearchTerm), msg)
}
