package ticker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"newsticker/internal/cache"
	"newsticker/internal/render"
	"newsticker/internal/schedule"
	"newsticker/internal/settings"
)

var (
	ErrDisposed   = errors.New("ticker widget disposed")
	ErrNotStarted = errors.New("ticker widget not started")
)

type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	ConfigError
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case ConfigError:
		return "config_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type WidgetOptions struct {
	Pipeline     *Pipeline
	Requirements settings.Requirements
	Scheduler    schedule.Scheduler
	Renderer     render.Renderer
	Logger       *zap.Logger
}

// Widget keeps one analysis' ticker rendered and refreshes it when the
// cached record goes stale.
type Widget struct {
	pipeline  *Pipeline
	required  settings.Requirements
	scheduler schedule.Scheduler
	renderer  render.Renderer
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	drawMu sync.Mutex

	mu        sync.Mutex
	state     State
	configErr error
	snapshot  render.View
	stop      schedule.Cancel
	disposed  bool
}

func NewWidget(opts WidgetOptions) *Widget {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := opts.Renderer
	if r == nil {
		r = render.Func(func(render.View) error { return nil })
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Widget{
		pipeline:  opts.Pipeline,
		required:  opts.Requirements,
		scheduler: opts.Scheduler,
		renderer:  r,
		logger:    logger.With(zap.String("component", "widget"), zap.String("analysis", opts.Pipeline.analysis.Type)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start validates credentials, renders the cached ticker (refreshing it
// first when absent, or right after when stale) and schedules the
// staleness check. Missing credentials render a placeholder, make no
// network call and return an error wrapping settings.ErrConfiguration.
func (w *Widget) Start(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.disposed:
		w.mu.Unlock()
		return ErrDisposed
	case w.state != Uninitialized:
		state := w.state
		w.mu.Unlock()
		return fmt.Errorf("ticker widget already started (%s)", state)
	}
	w.mu.Unlock()

	s, err := w.pipeline.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	// 1. Credentials
	if err := s.Credentials.Validate(w.required); err != nil {
		w.mu.Lock()
		w.state = ConfigError
		w.configErr = err
		w.mu.Unlock()

		w.logger.Warn("News ticker not configured", zap.Error(err))
		a := w.pipeline.analysis
		w.draw(render.PlaceholderView(a.Type, a.Title, "News unavailable: "+err.Error()))
		return fmt.Errorf("starting ticker: %w", err)
	}

	// 2. Cache, refreshing when absent or stale
	w.setState(Loading)
	rec, ok := w.pipeline.cache.Load(ctx, w.pipeline.analysis.Type)
	switch {
	case !ok:
		w.logger.Info("No cached ticker, refreshing")
		rec = w.refreshOrKeep(ctx, rec)
	case rec.IsStale(w.pipeline.clock.Now(), s.CacheDuration):
		w.draw(w.viewOf(rec))
		w.logger.Info("Cached ticker is stale, refreshing", zap.Time("cached_at", rec.Timestamp))
		rec = w.refreshOrKeep(ctx, rec)
	}
	w.draw(w.viewOf(rec))
	w.setState(Ready)

	// 3. Periodic staleness check
	stop, err := w.scheduler.Every(s.UpdateCheckInterval, w.check)
	if err != nil {
		return fmt.Errorf("scheduling update check: %w", err)
	}
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		stop()
		return ErrDisposed
	}
	w.stop = stop
	w.mu.Unlock()
	return nil
}

// Refresh fetches fresh news regardless of cache age and redraws.
func (w *Widget) Refresh(ctx context.Context) error {
	w.mu.Lock()
	state, disposed, configErr := w.state, w.disposed, w.configErr
	w.mu.Unlock()

	switch {
	case disposed:
		return ErrDisposed
	case state == ConfigError:
		return configErr
	case state == Uninitialized:
		return ErrNotStarted
	}

	w.setState(Loading)
	defer w.setState(Ready)

	rec, err := w.pipeline.FetchFreshNews(ctx)
	if err != nil && rec.Timestamp.IsZero() {
		return err
	}
	w.draw(w.viewOf(rec))
	return err
}

// Dispose cancels the scheduled check and stops waiting on any refresh
// it started.
func (w *Widget) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	stop := w.stop
	w.stop = nil
	w.mu.Unlock()

	if stop != nil {
		stop()
	}
	w.cancel()
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot is the last rendered view.
func (w *Widget) Snapshot() render.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

func (w *Widget) check() {
	w.mu.Lock()
	disposed := w.disposed
	w.mu.Unlock()
	if disposed {
		return
	}

	s := w.pipeline.settings.Current()
	rec, ok := w.pipeline.cache.Load(w.ctx, w.pipeline.analysis.Type)
	if ok && !rec.IsStale(w.pipeline.clock.Now(), s.CacheDuration) {
		w.logger.Debug("Cached ticker still fresh", zap.Time("cached_at", rec.Timestamp))
		return
	}

	w.logger.Info("Cached ticker is stale, refreshing")
	w.setState(Loading)
	rec = w.refreshOrKeep(w.ctx, rec)
	w.draw(w.viewOf(rec))
	w.setState(Ready)
}

// refreshOrKeep returns the fresh record, or prev when nothing could be
// fetched.
func (w *Widget) refreshOrKeep(ctx context.Context, prev cache.Record) cache.Record {
	rec, err := w.pipeline.FetchFreshNews(ctx)
	if err != nil {
		w.logger.Warn("Refresh failed", zap.Error(err))
		if rec.Timestamp.IsZero() {
			return prev
		}
	}
	return rec
}

func (w *Widget) viewOf(rec cache.Record) render.View {
	a := w.pipeline.analysis
	s := w.pipeline.settings.Current()
	return render.NewView(a.Type, a.Title, rec.News, rec.Timestamp, s.MinImpactScore, w.pipeline.clock.Now())
}

func (w *Widget) draw(v render.View) {
	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	w.mu.Lock()
	w.snapshot = v
	w.mu.Unlock()

	if err := w.renderer.Render(v); err != nil {
		w.logger.Warn("Render failed", zap.Error(err))
	}
}

func (w *Widget) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == ConfigError {
		return
	}
	w.state = s
}
