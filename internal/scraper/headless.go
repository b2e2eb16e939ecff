package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobmatch/internal/config"
	"jobmatch/internal/domain/job"
	"jobmatch/internal/logger"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const headlessPageTimeout = 25 * time.Second

type headlessLink struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Context string `json:"context"`
	Date    string `json:"date"`
}

type linkCollector func(ctx context.Context, pageURL, filter string) ([]headlessLink, error)

// HeadlessAdapter renders a JS-driven job board in headless Chrome and turns
// the job links it finds into postings. The text of the link's closest card
// becomes the description.
type HeadlessAdapter struct {
	name       string
	searchURL  string
	linkFilter string
	collect    linkCollector
	log        *zap.Logger
}

func NewHeadlessAdapter(cfg config.HeadlessConfig, log *zap.Logger) *HeadlessAdapter {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "headless-board"
	}
	return &HeadlessAdapter{
		name:       name,
		searchURL:  strings.TrimSpace(cfg.SearchURL),
		linkFilter: strings.TrimSpace(cfg.LinkFilter),
		collect:    collectLinksChrome,
		log:        logger.OrNop(log).Named(name),
	}
}

func (a *HeadlessAdapter) Name() string { return a.name }

func (a *HeadlessAdapter) Fetch(ctx context.Context, q Query) ([]job.Posting, error) {
	pageURL := expandSearchURL(a.searchURL, q)
	if pageURL == "" {
		return nil, fmt.Errorf("%s: search url not configured", a.name)
	}

	links, err := a.collect(ctx, pageURL, a.linkFilter)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := make([]job.Posting, 0, len(links))
	for _, l := range links {
		u := absoluteURL(pageURL, l.Href)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		title := strings.Join(strings.Fields(l.Text), " ")
		if title == "" {
			continue
		}
		posted, raw := parsePosted(l.Date)
		out = append(out, job.Posting{
			Title:       title,
			Description: strings.TrimSpace(l.Context),
			URL:         u,
			PostedAt:    posted,
			PostedRaw:   raw,
			Source:      a.name,
		})
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no job links found on %s", pageURL)
	}
	a.log.Debug("headless board rendered", zap.String("url", pageURL), zap.Int("postings", len(out)))
	return out, nil
}

const collectLinksJS = `(() => {
	const filter = %s;
	return Array.from(document.querySelectorAll('a[href]'))
		.filter(a => !filter || (a.getAttribute('href') || '').includes(filter))
		.map(a => {
			const card = a.closest('article, li, [class*="card"], [class*="job"]') || a.parentElement;
			const time = card ? card.querySelector('time') : null;
			return {
				href: a.getAttribute('href') || '',
				text: (a.innerText || a.textContent || '').trim(),
				context: card ? (card.innerText || '').trim() : '',
				date: time ? (time.getAttribute('datetime') || time.innerText || '') : '',
			};
		});
})()`

func collectLinksChrome(ctx context.Context, pageURL, filter string) ([]headlessLink, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, headlessPageTimeout)
	defer reqCancel()

	quoted, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}

	var links []headlessLink
	err = chromedp.Run(reqCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.EvaluateAsDevTools(fmt.Sprintf(collectLinksJS, quoted), &links),
	)
	if err != nil {
		return nil, err
	}
	return links, nil
}
