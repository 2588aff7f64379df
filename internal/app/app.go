package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsticker/internal/config"
	"newsticker/internal/logging"
	"newsticker/internal/render"
	"newsticker/internal/schedule"
	"newsticker/internal/server"
	"newsticker/internal/settings"
)

type rootOptions struct {
	configPath string
	analysis   string
}

// Run is the newsticker CLI entry point.
func Run() error {
	_ = godotenv.Load()
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:           "newsticker",
		Short:         "Company news ticker for market analyses",
		Long:          "newsticker searches news for every company of an analysis, scores and ranks it, caches the top items and renders them as a ticker.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to config file (default "+config.DefaultConfigPath()+")")
	root.PersistentFlags().StringVar(&o.analysis, "analysis", config.DefaultAnalysis, "analysis type to use")

	root.AddCommand(
		newRefreshCmd(o),
		newShowCmd(o),
		newWatchCmd(o),
		newExportCmd(o),
		newProbeCmd(o),
		newKeysCmd(o),
		newTuneCmd(o),
		newServeCmd(o),
		newAnalysesCmd(o),
	)
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (o *rootOptions) service(ctx context.Context) (*Service, error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return NewService(ctx, cfg, o.analysis, logger)
}

func newRefreshCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch fresh news now, ignoring the cache age",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			v, err := svc.ForceRefresh(cmd.Context())
			if err != nil && v.Title == "" {
				return err
			}
			if rerr := render.NewTerminal(cmd.OutOrStdout()).Render(v); rerr != nil {
				return rerr
			}
			return err
		},
	}
}

func newShowCmd(o *rootOptions) *cobra.Command {
	var openN int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the ticker, refreshing it first when the cache is stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			// The scheduler is never started: show renders once and exits.
			w := svc.NewWidget(schedule.NewCron(), nil)
			defer w.Dispose()

			startErr := w.Start(cmd.Context())
			v := w.Snapshot()
			if err := render.NewTerminal(cmd.OutOrStdout()).Render(v); err != nil {
				return err
			}
			if startErr != nil {
				return startErr
			}

			if openN > 0 {
				if openN > len(v.Items) {
					return fmt.Errorf("--open %d: ticker has %d items", openN, len(v.Items))
				}
				e := v.Items[openN-1]
				fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", e.URL)
				return render.Open(e.URL)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&openN, "open", 0, "open item N in the system browser")
	return cmd
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	var htmlPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the ticker rendered and refresh it when the cache goes stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := o.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			renderers := render.Multi{render.NewTerminal(cmd.OutOrStdout())}
			if htmlPath != "" {
				renderers = append(renderers, htmlFileRenderer(htmlPath))
			}

			cron := schedule.NewCron()
			w := svc.NewWidget(cron, renderers)
			if err := w.Start(ctx); err != nil {
				w.Dispose()
				return err
			}
			cron.Start()

			svc.Logger.Info("Watching ticker",
				zap.String("analysis", svc.Analysis.Type),
				zap.Duration("check_interval", svc.Settings.Current().UpdateCheckInterval))
			<-ctx.Done()

			w.Dispose()
			cron.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "also keep an HTML fragment of the ticker at this path")
	return cmd
}

func newExportCmd(o *rootOptions) *cobra.Command {
	var docxPath, htmlPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ticker as a DOCX report and/or an HTML fragment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if docxPath == "" && htmlPath == "" {
				return errors.New("nothing to export: pass --out and/or --html")
			}

			svc, err := o.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			w := svc.NewWidget(schedule.NewCron(), nil)
			defer w.Dispose()
			if err := w.Start(cmd.Context()); err != nil {
				return err
			}

			var renderers render.Multi
			if docxPath != "" {
				renderers = append(renderers, render.NewReport(docxPath))
			}
			if htmlPath != "" {
				renderers = append(renderers, htmlFileRenderer(htmlPath))
			}
			if err := renderers.Render(w.Snapshot()); err != nil {
				return err
			}

			for _, p := range []string{docxPath, htmlPath} {
				if p != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported: %s\n", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&docxPath, "out", "", "DOCX report path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML fragment path")
	return cmd
}

// htmlFileRenderer rewrites path with the HTML fragment on every render.
func htmlFileRenderer(path string) render.Renderer {
	return render.Func(func(v render.View) error {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		tmp := path + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := render.NewHTML(f).Render(v); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
		if err := f.Close(); err != nil {
			os.Remove(tmp)
			return err
		}
		return os.Rename(tmp, path)
	})
}

func newKeysCmd(o *rootOptions) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage the search and content API keys",
	}

	var search, content string
	set := &cobra.Command{
		Use:   "set",
		Short: "Persist API keys in the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(search) == "" && strings.TrimSpace(content) == "" {
				return errors.New("pass --search and/or --content")
			}

			svc, err := o.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Settings.SetKeys(cmd.Context(), search, content); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if search != "" {
				fmt.Fprintf(out, "Saved %s (%s)\n", settings.SearchKeyName, settings.Redact(strings.TrimSpace(search)))
			}
			if content != "" {
				fmt.Fprintf(out, "Saved %s (%s)\n", settings.ContentKeyName, settings.Redact(strings.TrimSpace(content)))
			}
			if err := svc.Settings.Current().Credentials.Validate(svc.Requirements); err != nil {
				fmt.Fprintf(out, "Warning: %v\n", err)
			}
			return nil
		},
	}
	set.Flags().StringVar(&search, "search", "", "search API key ("+settings.SearchKeyName+")")
	set.Flags().StringVar(&content, "content", "", "content extraction API key ("+settings.ContentKeyName+")")

	keys.AddCommand(set)
	return keys
}

func newTuneCmd(o *rootOptions) *cobra.Command {
	var (
		maxRequests   int
		cacheHours    float64
		maxItems      int
		minImpact     float64
		checkInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Persist ticker tunables",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			t := svc.Settings.Current().Tunables
			flags := cmd.Flags()
			if flags.Changed("max-requests") {
				t.MaxRequestsPerHour = maxRequests
			}
			if flags.Changed("cache-hours") {
				t.CacheDuration = time.Duration(cacheHours * float64(time.Hour))
			}
			if flags.Changed("max-items") {
				t.MaxNewsItems = maxItems
			}
			if flags.Changed("min-impact") {
				t.MinImpactScore = minImpact
			}
			if flags.Changed("check-interval") {
				t.UpdateCheckInterval = checkInterval
			}

			if err := svc.Settings.SetTunables(cmd.Context(), t); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Max requests per hour : %d\n", t.MaxRequestsPerHour)
			fmt.Fprintf(out, "Cache duration        : %s\n", t.CacheDuration)
			fmt.Fprintf(out, "Max news items        : %d\n", t.MaxNewsItems)
			fmt.Fprintf(out, "Min impact score      : %.1f\n", t.MinImpactScore)
			fmt.Fprintf(out, "Update check interval : %s\n", t.UpdateCheckInterval)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRequests, "max-requests", 0, "search requests allowed per hour")
	cmd.Flags().Float64Var(&cacheHours, "cache-hours", 0, "hours before the cached ticker is stale")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "number of items kept in the ticker")
	cmd.Flags().Float64Var(&minImpact, "min-impact", 0, "minimum impact score shown (0-10)")
	cmd.Flags().DurationVar(&checkInterval, "check-interval", 0, "how often to check the cache age (e.g. 1h)")
	return cmd
}

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ticker over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := o.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			cron := schedule.NewCron()
			w := svc.NewWidget(cron, nil)
			defer w.Dispose()

			// A configuration error still serves the placeholder and /healthz.
			if err := w.Start(ctx); err != nil && !errors.Is(err, settings.ErrConfiguration) {
				return err
			}
			cron.Start()
			defer cron.Stop()

			if svc.Config.Logging.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			h := server.NewTickerHandler(w, svc.Logger)
			return server.New(svc.Config.ServerAddr(), h, svc.Config.Server.AllowOrigins, svc.Logger).Run(ctx)
		},
	}
}

func newAnalysesCmd(o *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "analyses",
		Short: "List the known analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			analyses, err := config.LoadAnalyses(cfg.AnalysesDir)
			if err != nil {
				return err
			}
			printAnalyses(cmd.OutOrStdout(), analyses, verbose)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list companies and quadrants")
	return cmd
}

func printAnalyses(w io.Writer, analyses map[string]config.Analysis, verbose bool) {
	for _, t := range config.AnalysisTypes(analyses) {
		a := analyses[t]
		fmt.Fprintf(w, "%-12s %s (%d companies)\n", a.Type, a.Title, len(a.Companies))
		if !verbose {
			continue
		}
		for _, c := range a.Companies {
			fmt.Fprintf(w, "    - %-24s %s\n", c.Name, c.Quadrant)
		}
	}
}
