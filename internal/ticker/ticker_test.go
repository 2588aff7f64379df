package ticker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"newsticker/internal/cache"
	"newsticker/internal/config"
	"newsticker/internal/discovery"
	"newsticker/internal/kv"
	"newsticker/internal/news"
	"newsticker/internal/render"
	"newsticker/internal/schedule"
	"newsticker/internal/settings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// started by github.com/golang/glog's init (pulled in via badger/ristretto)
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	)
}

var t0 = time.Date(2025, 10, 18, 12, 0, 0, 0, time.UTC)

const (
	validSearchKey  = "serp-test-key-0123456789"
	validContentKey = "fc-test-key-0123456789"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	queries []discovery.Query
	results map[string][]discovery.Result
	fail    map[string]error

	// entered and gate hold a search in flight when set.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(ctx context.Context, q discovery.Query) ([]discovery.Result, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	for name, err := range f.fail {
		if strings.Contains(q.Text, `"`+name+`"`) {
			return nil, err
		}
	}
	for name, res := range f.results {
		if strings.Contains(q.Text, `"`+name+`"`) {
			return res, nil
		}
	}
	return nil, nil
}

func (f *fakeSearcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	mu    sync.Mutex
	urls  []string
	err   error
	value string
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return f.value, f.err
}

type harness struct {
	clock     *schedule.Manual
	store     *kv.MemoryStore
	cache     *cache.Store
	settings  *settings.Store
	searcher  *fakeSearcher
	extractor *fakeExtractor
	fetcher   *Fetcher
	pipeline  *Pipeline
	views     []render.View
}

func newHarness(t *testing.T, companies []news.Company, creds settings.Credentials) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	h := &harness{
		clock:     schedule.NewManual(t0),
		store:     kv.NewMemoryStore(),
		searcher:  &fakeSearcher{results: map[string][]discovery.Result{}, fail: map[string]error{}},
		extractor: &fakeExtractor{value: "# full article"},
	}
	h.cache = cache.NewStore(h.store, logger)
	h.settings = settings.NewStore(h.store, settings.Settings{
		Credentials: creds,
		Tunables: settings.Tunables{
			MaxRequestsPerHour:  50,
			CacheDuration:       24 * time.Hour,
			MaxNewsItems:        20,
			MinImpactScore:      0,
			UpdateCheckInterval: time.Hour,
		},
	}, logger)

	a := config.Analysis{Type: "mcp", Title: "MCP", Companies: companies}
	h.fetcher = NewFetcher(h.searcher, h.extractor, news.NewMatcher(companies), h.clock, DefaultFetcherOptions(), logger)
	h.pipeline = NewPipeline(a, h.fetcher, h.cache, h.settings, h.clock, 4, logger)
	t.Cleanup(h.pipeline.Close)
	return h
}

func (h *harness) widget(t *testing.T) *Widget {
	w := NewWidget(WidgetOptions{
		Pipeline:     h.pipeline,
		Requirements: settings.Requirements{SearchKey: true, ContentKey: true},
		Scheduler:    h.clock,
		Renderer: render.Func(func(v render.View) error {
			h.views = append(h.views, v)
			return nil
		}),
		Logger: zaptest.NewLogger(t),
	})
	t.Cleanup(w.Dispose)
	return w
}

func (h *harness) seedCache(t *testing.T, age time.Duration, items ...news.Item) {
	t.Helper()
	require.NoError(t, h.cache.Save(context.Background(), "mcp", cache.Record{News: items, Timestamp: t0.Add(-age)}))
}

var (
	anthropic = news.Company{Name: "Anthropic", Quadrant: news.Leaders}
	smithery  = news.Company{Name: "Smithery", Quadrant: news.Niche}
	validKeys = settings.Credentials{SearchAPIKey: validSearchKey, ContentAPIKey: validContentKey}
)

func TestFetchForCompany(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic, smithery}, validKeys)
	h.searcher.results["Anthropic"] = []discovery.Result{
		{Title: "Anthropic acquires startup and launches product, CEO says", Link: "https://example.com/1", Source: "Reuters", PublishedAt: t0.Add(-2 * time.Hour)},
		{Title: "Anthropic partners with Cloudflare", Link: "https://example.com/2", Source: "Wired"},
		{Title: "Weather today", Link: "https://example.com/3", Source: "Blog"},
		{Title: "Dropped four", Link: "https://example.com/4"},
		{Title: "Dropped five", Link: "https://example.com/5"},
	}

	items, err := h.fetcher.FetchForCompany(context.Background(), anthropic)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.Len(t, h.searcher.queries, 1)
	assert.Equal(t, 5, h.searcher.queries[0].Limit)
	assert.Equal(t, discovery.BuildQuery(anthropic), h.searcher.queries[0].Text)

	assert.Equal(t, "Anthropic acquires startup and launches product, CEO says", items[0].Headline)
	assert.Equal(t, 10.0, items[0].ImpactScore)
	assert.InDelta(t, 0.92, items[0].RecencyScore, 0.01)
	assert.Equal(t, "# full article", items[0].FullContent)
	assert.Equal(t, news.ItemID("https://example.com/1"), items[0].ID)
	assert.Equal(t, anthropic, items[0].Company)

	assert.Equal(t, 4.5, items[1].ImpactScore)
	assert.True(t, t0.Equal(items[1].PublishedAt), "missing date defaults to now")
	assert.Equal(t, 1.0, items[1].RecencyScore)
	assert.Empty(t, items[1].FullContent)

	assert.Equal(t, 1.0, items[2].ImpactScore)

	assert.Equal(t, []string{"https://example.com/1"}, h.extractor.urls)
}

func TestFetchForCompanyEnrichmentFailureKeepsItem(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.extractor.err = errors.New("scrape blocked")
	h.searcher.results["Anthropic"] = []discovery.Result{
		{Title: "Anthropic raises $2B as CEO launches new lab", Link: "https://example.com/1"},
	}

	items, err := h.fetcher.FetchForCompany(context.Background(), anthropic)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Greater(t, items[0].ImpactScore, 7.0)
	assert.Empty(t, items[0].FullContent)
	assert.Len(t, h.extractor.urls, 1)
}

func TestFetchForCompanySearchFailure(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.searcher.fail["Anthropic"] = errors.New("boom")

	items, err := h.fetcher.FetchForCompany(context.Background(), anthropic)
	require.Error(t, err)
	assert.Nil(t, items)
}

func manyResults(company string, n int) []discovery.Result {
	kinds := []string{"raises funding", "launches product", "weekly notes"}
	out := make([]discovery.Result, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, discovery.Result{
			Title:       fmt.Sprintf("%s %s %d", company, kinds[i%len(kinds)], i),
			Link:        fmt.Sprintf("https://example.com/%s/%d", company, i),
			Source:      "Wire",
			PublishedAt: t0.Add(-time.Duration(i*5) * time.Hour),
		})
	}
	return out
}

func TestFetchFreshNewsTruncatesAndRanks(t *testing.T) {
	var companies []news.Company
	for i := 0; i < 7; i++ {
		companies = append(companies, news.Company{Name: fmt.Sprintf("Company%d", i), Quadrant: news.Challengers})
	}
	h := newHarness(t, companies, validKeys)
	h.fetcher.opts.ResultsKept = 5
	for _, c := range companies {
		h.searcher.results[c.Name] = manyResults(c.Name, 5)
	}

	rec, err := h.pipeline.FetchFreshNews(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, h.searcher.Calls())
	require.Len(t, rec.News, 20, "35 fetched items keep the top 20")
	for i := 1; i < len(rec.News); i++ {
		assert.GreaterOrEqual(t, rec.News[i-1].Rank(), rec.News[i].Rank())
	}
	assert.True(t, t0.Equal(rec.Timestamp))

	cached, ok := h.cache.Load(context.Background(), "mcp")
	require.True(t, ok)
	assert.Len(t, cached.News, 20)
}

func TestFetchFreshNewsSettlesAll(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic, smithery}, validKeys)
	h.searcher.fail["Anthropic"] = errors.New("timeout")
	h.searcher.results["Smithery"] = []discovery.Result{{Title: "Smithery weekly notes", Link: "https://example.com/s"}}

	rec, err := h.pipeline.FetchFreshNews(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.News, 1)
	assert.Equal(t, "Smithery weekly notes", rec.News[0].Headline)
}

func TestFetchFreshNewsTiesKeepCompanyOrder(t *testing.T) {
	a := news.Company{Name: "Alpha", Quadrant: news.Niche}
	b := news.Company{Name: "Beta", Quadrant: news.Niche}
	h := newHarness(t, []news.Company{a, b}, validKeys)
	h.searcher.results["Alpha"] = []discovery.Result{{Title: "same", Link: "https://example.com/a"}}
	h.searcher.results["Beta"] = []discovery.Result{{Title: "same", Link: "https://example.com/b"}}

	for i := 0; i < 5; i++ {
		rec, err := h.pipeline.FetchFreshNews(context.Background())
		require.NoError(t, err)
		require.Len(t, rec.News, 2)
		assert.Equal(t, "https://example.com/a", rec.News[0].URL)
		assert.Equal(t, "https://example.com/b", rec.News[1].URL)
	}
}

func TestFetchFreshNewsOutlivesCanceledCaller(t *testing.T) {
	h := newHarness(t, []news.Company{smithery}, validKeys)
	h.searcher.results["Smithery"] = []discovery.Result{{Title: "Smithery weekly notes", Link: "https://example.com/s"}}
	h.searcher.entered = make(chan struct{}, 1)
	h.searcher.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := h.pipeline.FetchFreshNews(ctx)
		errc <- err
	}()

	<-h.searcher.entered
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(h.searcher.gate)
	require.Eventually(t, func() bool {
		rec, ok := h.cache.Load(context.Background(), "mcp")
		return ok && len(rec.News) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Wait out the shared refresh before the test logger goes away.
	_, err := h.pipeline.FetchFreshNews(context.Background())
	require.NoError(t, err)
}

func TestFetchFreshNewsStopsOnClose(t *testing.T) {
	h := newHarness(t, []news.Company{smithery}, validKeys)
	h.searcher.entered = make(chan struct{}, 1)
	h.searcher.gate = make(chan struct{})
	defer close(h.searcher.gate)

	errc := make(chan error, 1)
	go func() {
		_, err := h.pipeline.FetchFreshNews(context.Background())
		errc <- err
	}()

	<-h.searcher.entered
	h.pipeline.Close()
	assert.ErrorIs(t, <-errc, context.Canceled)

	_, ok := h.cache.Load(context.Background(), "mcp")
	assert.False(t, ok)
}

func TestWidgetConfigErrorMakesNoCalls(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, settings.Credentials{SearchAPIKey: "short", ContentAPIKey: validContentKey})
	w := h.widget(t)

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, settings.ErrConfiguration)
	assert.Equal(t, ConfigError, w.State())

	require.Len(t, h.views, 1)
	assert.NotEmpty(t, h.views[0].Placeholder)
	assert.Contains(t, w.Snapshot().Placeholder, settings.SearchKeyName)
	assert.Equal(t, 0, h.clock.Tasks())

	assert.ErrorIs(t, w.Refresh(context.Background()), settings.ErrConfiguration)
	h.clock.Advance(48 * time.Hour)

	assert.Equal(t, 0, h.searcher.Calls())
	assert.Empty(t, h.extractor.urls)
	assert.Equal(t, ConfigError, w.State())
}

func TestWidgetRefreshesAbsentCacheBeforeFirstRender(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic, smithery}, validKeys)
	h.searcher.results["Anthropic"] = []discovery.Result{{Title: "Anthropic launches Claude", Link: "https://example.com/a"}}
	w := h.widget(t)

	assert.Equal(t, Uninitialized, w.State())
	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, Ready, w.State())
	assert.Equal(t, 2, h.searcher.Calls())
	require.Len(t, h.views, 1)
	require.Len(t, h.views[0].Items, 1)
	assert.Equal(t, "Anthropic launches Claude", h.views[0].Items[0].Headline)
	assert.Equal(t, 1, h.clock.Tasks())
}

func TestWidgetStaleCacheRendersThenRefreshes(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.seedCache(t, 25*time.Hour, news.Item{ID: "old", Headline: "old news", URL: "https://example.com/old", ImpactScore: 5, PublishedAt: t0.Add(-30 * time.Hour)})
	h.searcher.results["Anthropic"] = []discovery.Result{{Title: "fresh news", Link: "https://example.com/new"}}
	w := h.widget(t)

	require.NoError(t, w.Start(context.Background()))

	require.Len(t, h.views, 2)
	assert.Equal(t, "old news", h.views[0].Items[0].Headline)
	assert.Equal(t, "fresh news", h.views[1].Items[0].Headline)
	assert.Equal(t, 1, h.searcher.Calls())
}

func TestWidgetHourlyCheckRefreshesOnlyWhenStale(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.seedCache(t, time.Hour, news.Item{ID: "cached", Headline: "cached news", URL: "https://example.com/c", ImpactScore: 5, PublishedAt: t0})
	w := h.widget(t)

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 0, h.searcher.Calls(), "fresh cache is rendered without fetching")
	require.Len(t, h.views, 1)

	// cache is 24h old at the 23rd check, not yet stale
	h.clock.Advance(23 * time.Hour)
	assert.Equal(t, 0, h.searcher.Calls())

	h.clock.Advance(time.Hour)
	assert.Equal(t, 1, h.searcher.Calls())

	// the refresh reset the cache timestamp
	h.clock.Advance(23 * time.Hour)
	assert.Equal(t, 1, h.searcher.Calls())
	assert.Equal(t, Ready, w.State())
}

func TestWidgetRefreshBypassesStaleness(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.seedCache(t, time.Minute)
	h.searcher.results["Anthropic"] = []discovery.Result{{Title: "manual", Link: "https://example.com/m"}}
	w := h.widget(t)

	assert.ErrorIs(t, w.Refresh(context.Background()), ErrNotStarted)

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 0, h.searcher.Calls())

	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, 1, h.searcher.Calls())
	assert.Equal(t, "manual", w.Snapshot().Items[0].Headline)
}

func TestWidgetDispose(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.seedCache(t, time.Minute)
	w := h.widget(t)

	require.NoError(t, w.Start(context.Background()))
	require.Equal(t, 1, h.clock.Tasks())

	w.Dispose()
	w.Dispose()
	assert.Equal(t, 0, h.clock.Tasks())

	h.clock.Advance(72 * time.Hour)
	assert.Equal(t, 0, h.searcher.Calls())

	assert.ErrorIs(t, w.Refresh(context.Background()), ErrDisposed)
	assert.ErrorIs(t, w.Start(context.Background()), ErrDisposed)
}

func TestWidgetStartTwice(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.seedCache(t, time.Minute)
	w := h.widget(t)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
}

func TestWidgetMinImpactFilter(t *testing.T) {
	h := newHarness(t, []news.Company{anthropic}, validKeys)
	h.seedCache(t, time.Minute,
		news.Item{ID: "hi", Headline: "big", URL: "https://example.com/hi", ImpactScore: 8, PublishedAt: t0},
		news.Item{ID: "lo", Headline: "small", URL: "https://example.com/lo", ImpactScore: 1, PublishedAt: t0},
	)
	tun := h.settings.Current().Tunables
	tun.MinImpactScore = 3
	require.NoError(t, h.settings.SetTunables(context.Background(), tun))

	w := h.widget(t)
	require.NoError(t, w.Start(context.Background()))

	items := w.Snapshot().Items
	require.Len(t, items, 1)
	assert.Equal(t, "big", items[0].Headline)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "config_error", ConfigError.String())
	assert.Equal(t, "state(9)", State(9).String())
}
