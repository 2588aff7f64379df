package ticker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"newsticker/internal/cache"
	"newsticker/internal/config"
	"newsticker/internal/news"
	"newsticker/internal/schedule"
	"newsticker/internal/scoring"
	"newsticker/internal/settings"
)

// Pipeline refreshes the cached ticker for one analysis.
type Pipeline struct {
	analysis    config.Analysis
	fetcher     *Fetcher
	cache       *cache.Store
	settings    *settings.Store
	clock       schedule.Clock
	concurrency int
	logger      *zap.Logger

	group singleflight.Group
	life  context.Context
	stop  context.CancelFunc
}

func NewPipeline(a config.Analysis, f *Fetcher, c *cache.Store, s *settings.Store, clock schedule.Clock, concurrency int, logger *zap.Logger) *Pipeline {
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	life, stop := context.WithCancel(context.Background())
	return &Pipeline{
		life:        life,
		stop:        stop,
		analysis:    a,
		fetcher:     f,
		cache:       c,
		settings:    s,
		clock:       clock,
		concurrency: concurrency,
		logger:      logger.With(zap.String("component", "pipeline"), zap.String("analysis", a.Type)),
	}
}

func (p *Pipeline) Analysis() config.Analysis { return p.analysis }

// FetchFreshNews fetches every company, ranks the merged list, keeps the
// top MaxNewsItems and saves it. Calls that overlap an in-flight refresh
// share its result. The refresh outlives a caller that stops waiting and
// ends only when it finishes or the pipeline is closed. The record is
// returned even when saving it failed.
func (p *Pipeline) FetchFreshNews(ctx context.Context) (cache.Record, error) {
	ch := p.group.DoChan(p.analysis.Type, func() (interface{}, error) {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		release := context.AfterFunc(p.life, cancel)
		defer release()
		return p.refresh(runCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			p.logger.Debug("Joined in-flight refresh")
		}
		rec, _ := res.Val.(cache.Record)
		return rec, res.Err
	case <-ctx.Done():
		return cache.Record{}, ctx.Err()
	}
}

// Close cancels any refresh still running.
func (p *Pipeline) Close() {
	p.stop()
}

func (p *Pipeline) refresh(ctx context.Context) (cache.Record, error) {
	start := time.Now()
	companies := p.analysis.Companies
	perCompany := make([][]news.Item, len(companies))

	// 1. Fetch, settle-all: one company's failure leaves its slot empty
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i, c := range companies {
		eg.Go(func() error {
			items, err := p.fetcher.FetchForCompany(egCtx, c)
			if err != nil {
				p.logger.Warn("Company fetch failed",
					zap.String("company", c.Name),
					zap.Error(err))
				return nil
			}
			perCompany[i] = items
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return cache.Record{}, err
	}

	// 2. Merge in company order so ranking ties stay deterministic
	var all []news.Item
	for _, items := range perCompany {
		all = append(all, items...)
	}

	// 3. Rank and truncate
	limit := p.settings.Current().MaxNewsItems
	rec := cache.Record{
		News:      scoring.Rank(all, limit),
		Timestamp: p.clock.Now(),
	}

	// 4. Persist
	if err := p.cache.Save(ctx, p.analysis.Type, rec); err != nil {
		return rec, fmt.Errorf("refresh %s: %w", p.analysis.Type, err)
	}

	p.logger.Info("Ticker refreshed",
		zap.Int("companies", len(companies)),
		zap.Int("fetched", len(all)),
		zap.Int("kept", len(rec.News)),
		zap.Duration("took", time.Since(start)))
	return rec, nil
}
