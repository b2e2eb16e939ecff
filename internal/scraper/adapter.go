package scraper

import (
	"context"

	"jobmatch/internal/config"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/logger"

	"go.uber.org/zap"
)

// Query is what every adapter receives for one discovery request.
type Query struct {
	SearchTerm string
	Location   string
	MaxResults int
	MaxAgeDays int
}

// Adapter fetches raw postings from one job source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]job.Posting, error)
}

// FromConfig builds the enabled adapters in registration order:
// adzuna, remoteok, html, headless, service.
func FromConfig(cfg config.SourcesConfig, log *zap.Logger) []Adapter {
	log = logger.OrNop(log)
	out := make([]Adapter, 0, 5)
	if cfg.Adzuna.AppID != "" && cfg.Adzuna.AppKey != "" {
		out = append(out, NewAdzunaAdapter(cfg.Adzuna, log))
	} else {
		log.Info("adzuna source disabled: app_id/app_key not set")
	}
	if cfg.RemoteOK.Enabled {
		out = append(out, NewRemoteOKAdapter(cfg.RemoteOK.BaseURL, log))
	}
	if cfg.HTML.Enabled && cfg.HTML.SearchURL != "" {
		out = append(out, NewHTMLAdapter(cfg.HTML, log))
	}
	if cfg.Headless.Enabled && cfg.Headless.SearchURL != "" {
		out = append(out, NewHeadlessAdapter(cfg.Headless, log))
	}
	if cfg.Service.Enabled && cfg.Service.BaseURL != "" {
		out = append(out, NewServiceAdapter(cfg.Service, log))
	}
	return out
}
