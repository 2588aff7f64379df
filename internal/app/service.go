package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"newsticker/internal/cache"
	"newsticker/internal/config"
	"newsticker/internal/discovery"
	"newsticker/internal/extract"
	"newsticker/internal/kv"
	"newsticker/internal/news"
	"newsticker/internal/render"
	"newsticker/internal/schedule"
	"newsticker/internal/settings"
	"newsticker/internal/ticker"
)

// Service holds the wired ticker collaborators for one analysis.
type Service struct {
	Config       *config.Config
	Logger       *zap.Logger
	Analysis     config.Analysis
	Analyses     map[string]config.Analysis
	Store        kv.Store
	Cache        *cache.Store
	Settings     *settings.Store
	Searcher     discovery.Searcher
	Extractor    extract.Extractor
	Pipeline     *ticker.Pipeline
	Requirements settings.Requirements
	Clock        schedule.Clock
}

func NewService(ctx context.Context, cfg *config.Config, analysisType string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 1) Analyses
	analyses, err := config.LoadAnalyses(cfg.AnalysesDir)
	if err != nil {
		return nil, err
	}
	if analysisType == "" {
		analysisType = config.DefaultAnalysis
	}
	analysis, ok := analyses[analysisType]
	if !ok {
		return nil, fmt.Errorf("unknown analysis %q (known: %v)", analysisType, config.AnalysisTypes(analyses))
	}

	// 2) Storage
	store, err := kv.Open(kv.Options{
		Backend:  cfg.Storage.Backend,
		Path:     cfg.Storage.Path,
		RedisURL: cfg.Storage.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}

	// 3) Settings: config values overridden by persisted ones
	st := settings.NewStore(store, defaultSettings(cfg), logger)
	current, err := st.Load(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}

	// 4) Providers
	searcher := newSearcher(cfg, current)
	extractor := newExtractor(cfg, current)

	clock := schedule.SystemClock{}
	fetcher := ticker.NewFetcher(searcher, extractor, news.NewMatcher(analysis.Companies), clock, ticker.FetcherOptions{
		ResultsRequested: cfg.Search.ResultsRequested,
		ResultsKept:      cfg.Search.ResultsKept,
		EnrichThreshold:  cfg.Extract.EnrichThreshold,
	}, logger)
	cacheStore := cache.NewStore(store, logger)
	pipeline := ticker.NewPipeline(analysis, fetcher, cacheStore, st, clock, cfg.Ticker.Concurrency, logger)

	logger.Debug("Service wired",
		zap.String("analysis", analysis.Type),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("searcher", searcher.Name()),
		zap.String("extractor", extractor.Name()))

	return &Service{
		Config:       cfg,
		Logger:       logger,
		Analysis:     analysis,
		Analyses:     analyses,
		Store:        store,
		Cache:        cacheStore,
		Settings:     st,
		Searcher:     searcher,
		Extractor:    extractor,
		Pipeline:     pipeline,
		Requirements: requirementsFor(cfg),
		Clock:        clock,
	}, nil
}

func defaultSettings(cfg *config.Config) settings.Settings {
	return settings.Settings{
		Credentials: settings.Credentials{
			SearchAPIKey:  cfg.Search.APIKey,
			ContentAPIKey: cfg.Extract.APIKey,
		},
		Tunables: settings.Tunables{
			MaxRequestsPerHour:  cfg.Ticker.MaxRequestsPerHour,
			CacheDuration:       time.Duration(cfg.Ticker.CacheDurationHours * float64(time.Hour)),
			MaxNewsItems:        cfg.Ticker.MaxNewsItems,
			MinImpactScore:      cfg.Ticker.MinImpactScore,
			UpdateCheckInterval: cfg.UpdateCheckInterval(),
		},
	}
}

// requirementsFor lists the credentials the configured providers need.
// "auto" search falls back to RSS, so it needs no key.
func requirementsFor(cfg *config.Config) settings.Requirements {
	return settings.Requirements{
		SearchKey:  cfg.Search.Provider == "serpapi",
		ContentKey: cfg.Extract.Provider == "firecrawl",
	}
}

func newSearcher(cfg *config.Config, s settings.Settings) discovery.Searcher {
	serp := discovery.NewSerpAPI(cfg.Search.BaseURL, s.SearchAPIKey, cfg.SearchTimeout())
	rss := discovery.NewGoogleNewsRSS(cfg.Search.Language, cfg.SearchTimeout())

	var inner discovery.Searcher
	switch cfg.Search.Provider {
	case "rss":
		inner = rss
	case "auto":
		if s.Credentials.Validate(settings.Requirements{SearchKey: true}) == nil {
			inner = discovery.NewMultiSource(serp, rss)
		} else {
			inner = rss
		}
	default:
		inner = serp
	}
	return discovery.NewLimited(inner, s.MaxRequestsPerHour)
}

func newExtractor(cfg *config.Config, s settings.Settings) extract.Extractor {
	switch cfg.Extract.Provider {
	case "direct":
		return extract.NewDirect(cfg.ExtractTimeout())
	case "none":
		return extract.None{}
	default:
		return extract.NewFirecrawl(cfg.Extract.BaseURL, s.ContentAPIKey, cfg.ExtractTimeout())
	}
}

func (s *Service) NewWidget(sched schedule.Scheduler, r render.Renderer) *ticker.Widget {
	return ticker.NewWidget(ticker.WidgetOptions{
		Pipeline:     s.Pipeline,
		Requirements: s.Requirements,
		Scheduler:    sched,
		Renderer:     r,
		Logger:       s.Logger,
	})
}

// ForceRefresh refreshes without consulting the cache. Missing credentials
// fail before any network call.
func (s *Service) ForceRefresh(ctx context.Context) (render.View, error) {
	current, err := s.Settings.Load(ctx)
	if err != nil {
		return render.View{}, err
	}
	if err := current.Credentials.Validate(s.Requirements); err != nil {
		return render.PlaceholderView(s.Analysis.Type, s.Analysis.Title, "News unavailable: "+err.Error()), err
	}

	rec, err := s.Pipeline.FetchFreshNews(ctx)
	if err != nil && rec.Timestamp.IsZero() {
		return render.View{}, err
	}
	return s.view(rec, current), err
}

func (s *Service) view(rec cache.Record, current settings.Settings) render.View {
	return render.NewView(s.Analysis.Type, s.Analysis.Title, rec.News, rec.Timestamp, current.MinImpactScore, s.Clock.Now())
}

func (s *Service) Close() error {
	s.Pipeline.Close()
	var errs []error
	if err := s.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	_ = s.Logger.Sync()
	return errors.Join(errs...)
}
