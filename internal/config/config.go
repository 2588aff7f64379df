package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const appName = "newsticker"

type Config struct {
	AnalysesDir string        `toml:"analyses_dir"` // directory of *.yaml analysis files; empty = embedded only
	Search      SearchConfig  `toml:"search"`
	Extract     ExtractConfig `toml:"extract"`
	Ticker      TickerConfig  `toml:"ticker"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Server      ServerConfig  `toml:"server"`
}

type SearchConfig struct {
	Provider         string `toml:"provider"` // "serpapi", "rss" or "auto"
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	ResultsRequested int    `toml:"results_requested"`
	ResultsKept      int    `toml:"results_kept"`
	Language         string `toml:"language"` // Google News RSS profile: en, fr, es, pt
	Timeout          string `toml:"timeout"`
}

type ExtractConfig struct {
	Provider        string  `toml:"provider"` // "firecrawl", "direct" or "none"
	BaseURL         string  `toml:"base_url"`
	APIKey          string  `toml:"api_key"`
	EnrichThreshold float64 `toml:"enrich_threshold"`
	Timeout         string  `toml:"timeout"`
}

type TickerConfig struct {
	MaxRequestsPerHour  int     `toml:"max_requests_per_hour"`
	CacheDurationHours  float64 `toml:"cache_duration_hours"`
	MaxNewsItems        int     `toml:"max_news_items"`
	MinImpactScore      float64 `toml:"min_impact_score"`
	UpdateCheckInterval string  `toml:"update_check_interval"`
	Concurrency         int     `toml:"concurrency"`
}

type StorageConfig struct {
	Backend  string `toml:"backend"` // memory, file, badger, sqlite, redis
	Path     string `toml:"path"`
	RedisURL string `toml:"redis_url"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	AllowOrigins []string `toml:"allow_origins"`
}

// NewDefaultConfig holds the values used when no file or env var says otherwise.
func NewDefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Provider:         "serpapi",
			BaseURL:          "https://serpapi.com",
			ResultsRequested: 5,
			ResultsKept:      3,
			Language:         "en",
			Timeout:          "20s",
		},
		Extract: ExtractConfig{
			Provider:        "firecrawl",
			BaseURL:         "https://api.firecrawl.dev",
			EnrichThreshold: 7,
			Timeout:         "45s",
		},
		Ticker: TickerConfig{
			MaxRequestsPerHour:  50,
			CacheDurationHours:  24,
			MaxNewsItems:        20,
			MinImpactScore:      3,
			UpdateCheckInterval: "1h",
			Concurrency:         4,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(xdg.DataHome, appName, "store.json"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8088,
			AllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, appName+".toml")
}

// Load reads path over the defaults and applies env overrides.
// A missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERPAPI_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("FIRECRAWL_API_KEY"); v != "" {
		cfg.Extract.APIKey = v
	}
	if v := os.Getenv("NEWSTICKER_SEARCH_PROVIDER"); v != "" {
		cfg.Search.Provider = v
	}
	if v := os.Getenv("NEWSTICKER_EXTRACT_PROVIDER"); v != "" {
		cfg.Extract.Provider = v
	}
	if v := os.Getenv("NEWSTICKER_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("NEWSTICKER_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
	}
	if v := os.Getenv("NEWSTICKER_ANALYSES_DIR"); v != "" {
		cfg.AnalysesDir = v
	}
	if v := os.Getenv("NEWSTICKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NEWSTICKER_MAX_NEWS_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ticker.MaxNewsItems = n
		}
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.AllowOrigins = append(cfg.Server.AllowOrigins, v)
	}
	if v := os.Getenv("NEWSTICKER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
}

func (c *Config) Validate() error {
	switch c.Search.Provider {
	case "serpapi", "rss", "auto":
	default:
		return fmt.Errorf("search.provider: unknown provider %q (valid: serpapi, rss, auto)", c.Search.Provider)
	}
	switch c.Extract.Provider {
	case "firecrawl", "direct", "none":
	default:
		return fmt.Errorf("extract.provider: unknown provider %q (valid: firecrawl, direct, none)", c.Extract.Provider)
	}
	for name, raw := range map[string]string{"search.base_url": c.Search.BaseURL, "extract.base_url": c.Extract.BaseURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", name, u.Scheme)
		}
	}
	if c.Search.ResultsRequested <= 0 || c.Search.ResultsKept <= 0 {
		return errors.New("search: results_requested and results_kept must be positive")
	}
	if c.Ticker.MaxNewsItems <= 0 {
		return errors.New("ticker.max_news_items must be positive")
	}
	if c.Ticker.CacheDurationHours <= 0 {
		return errors.New("ticker.cache_duration_hours must be positive")
	}
	if _, err := parseDuration(c.Ticker.UpdateCheckInterval); err != nil {
		return fmt.Errorf("ticker.update_check_interval: %w", err)
	}
	return nil
}

func (c *Config) UpdateCheckInterval() time.Duration {
	d, err := parseDuration(c.Ticker.UpdateCheckInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

func (c *Config) SearchTimeout() time.Duration {
	return durationOr(c.Search.Timeout, 20*time.Second)
}

func (c *Config) ExtractTimeout() time.Duration {
	return durationOr(c.Extract.Timeout, 45*time.Second)
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// parseDuration accepts Go durations plus "Nd" day syntax.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := parseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
