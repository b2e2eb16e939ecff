package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobmatch/internal/config"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/logger"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// HTMLAdapter scrapes a server-rendered job board. Each result card is matched
// by ItemSelector and its fields are read with the child selectors.
type HTMLAdapter struct {
	name string
	cfg  config.HTMLConfig
	log  *zap.Logger
}

func NewHTMLAdapter(cfg config.HTMLConfig, log *zap.Logger) *HTMLAdapter {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "html-board"
	}
	return &HTMLAdapter{name: name, cfg: cfg, log: logger.OrNop(log).Named(name)}
}

func (a *HTMLAdapter) Name() string { return a.name }

func (a *HTMLAdapter) newCollector(startURL string) *colly.Collector {
	opts := []colly.CollectorOption{colly.UserAgent(userAgent)}
	if host := hostFromBaseURL(startURL); host != "" {
		opts = append(opts, colly.AllowedDomains(host))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(20 * time.Second)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2, RandomDelay: 500 * time.Millisecond})
	return c
}

func (a *HTMLAdapter) Fetch(ctx context.Context, q Query) ([]job.Posting, error) {
	listURL := expandSearchURL(a.cfg.SearchURL, q)
	if listURL == "" {
		return nil, fmt.Errorf("%s: search url not configured", a.name)
	}

	c := a.newCollector(listURL)
	out := make([]job.Posting, 0)

	c.OnHTML(a.cfg.ItemSelector, func(e *colly.HTMLElement) {
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			return
		}
		p := a.parseItem(e)
		if p.Title == "" && p.URL == "" {
			return
		}
		out = append(out, p)
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			reqErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		reqErr = err
	})

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		for k, v := range httpHeaders() {
			r.Headers.Set(k, v)
		}
	})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := c.Visit(listURL); err != nil {
		return nil, err
	}
	c.Wait()

	if reqErr != nil {
		return nil, reqErr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	a.log.Debug("html board scraped", zap.String("url", listURL), zap.Int("postings", len(out)))
	return out, nil
}

func (a *HTMLAdapter) parseItem(e *colly.HTMLElement) job.Posting {
	date := ""
	if a.cfg.DateSelector != "" {
		date = pickNonEmpty(e.ChildAttr(a.cfg.DateSelector, "datetime"), e.ChildText(a.cfg.DateSelector))
	}
	posted, raw := parsePosted(date)

	href := ""
	if a.cfg.LinkSelector != "" {
		href = e.ChildAttr(a.cfg.LinkSelector, "href")
	}
	if href == "" {
		href = e.Attr("href")
	}

	return job.Posting{
		Title:       a.childText(e, a.cfg.TitleSelector),
		Company:     a.childText(e, a.cfg.CompanySelector),
		Location:    a.childText(e, a.cfg.LocationSelector),
		Description: a.childText(e, a.cfg.SummarySelector),
		URL:         e.Request.AbsoluteURL(strings.TrimSpace(href)),
		PostedAt:    posted,
		PostedRaw:   raw,
		Source:      a.name,
	}
}

func (a *HTMLAdapter) childText(e *colly.HTMLElement, sel string) string {
	if strings.TrimSpace(sel) == "" {
		return ""
	}
	return strings.Join(strings.Fields(e.ChildText(sel)), " ")
}
