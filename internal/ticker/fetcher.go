// Package ticker fetches, ranks and caches company news and drives the
// ticker widget lifecycle.
package ticker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"newsticker/internal/discovery"
	"newsticker/internal/extract"
	"newsticker/internal/news"
	"newsticker/internal/schedule"
	"newsticker/internal/scoring"
)

type FetcherOptions struct {
	ResultsRequested int
	ResultsKept      int
	EnrichThreshold  float64
}

func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{ResultsRequested: 5, ResultsKept: 3, EnrichThreshold: 7}
}

// Fetcher turns one company into scored news items.
type Fetcher struct {
	searcher  discovery.Searcher
	extractor extract.Extractor
	matcher   *news.Matcher
	clock     schedule.Clock
	opts      FetcherOptions
	logger    *zap.Logger
}

// NewFetcher builds a Fetcher. A nil extractor disables enrichment and a
// nil matcher disables the tier bonus.
func NewFetcher(s discovery.Searcher, e extract.Extractor, m *news.Matcher, clock schedule.Clock, opts FetcherOptions, logger *zap.Logger) *Fetcher {
	if e == nil {
		e = extract.None{}
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		searcher:  s,
		extractor: e,
		matcher:   m,
		clock:     clock,
		opts:      opts,
		logger:    logger.With(zap.String("component", "fetcher")),
	}
}

// FetchForCompany runs one search for c and returns up to ResultsKept
// scored items. Items above the enrich threshold get one extraction
// attempt; extraction failures only cost the item its full content.
func (f *Fetcher) FetchForCompany(ctx context.Context, c news.Company) ([]news.Item, error) {
	q := discovery.Query{Text: discovery.BuildQuery(c), Limit: f.opts.ResultsRequested}

	results, err := f.searcher.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("searching news for %s: %w", c.Name, err)
	}
	if f.opts.ResultsKept > 0 && len(results) > f.opts.ResultsKept {
		results = results[:f.opts.ResultsKept]
	}

	now := f.clock.Now()
	items := make([]news.Item, 0, len(results))
	for _, r := range results {
		pub := r.PublishedAt
		if pub.IsZero() {
			pub = now
		}
		it := news.Item{
			ID:          news.ItemID(r.Link),
			Company:     c,
			Headline:    r.Title,
			URL:         r.Link,
			Source:      r.Source,
			PublishedAt: pub,
			Snippet:     r.Snippet,
		}
		scoring.Score(&it, f.matcher, now)

		if it.ImpactScore > f.opts.EnrichThreshold {
			f.enrich(ctx, &it)
		}
		items = append(items, it)
	}
	return items, nil
}

func (f *Fetcher) enrich(ctx context.Context, it *news.Item) {
	content, err := f.extractor.Extract(ctx, it.URL)
	if err != nil {
		f.logger.Warn("Enrichment failed, keeping item without content",
			zap.String("url", it.URL),
			zap.String("extractor", f.extractor.Name()),
			zap.Error(err))
		return
	}
	it.FullContent = content
}
