// Package settings is the runtime key/config provider: credentials and
// tunables seeded from config and overridable by persisted values.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"newsticker/internal/kv"
)

var ErrConfiguration = errors.New("news ticker is not configured")

const (
	SearchKeyName  = "SERPAPI_KEY"
	ContentKeyName = "FIRECRAWL_API_KEY"
	TunablesKey    = "news_ticker_settings"

	// Keys of this length or shorter are placeholders, not credentials.
	minKeyLength = 10
)

type Credentials struct {
	SearchAPIKey  string
	ContentAPIKey string
}

// Requirements says which credentials the configured providers need.
type Requirements struct {
	SearchKey  bool
	ContentKey bool
}

func (c Credentials) Validate(req Requirements) error {
	var missing []string
	if req.SearchKey && !usableKey(c.SearchAPIKey) {
		missing = append(missing, SearchKeyName)
	}
	if req.ContentKey && !usableKey(c.ContentAPIKey) {
		missing = append(missing, ContentKeyName)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing or too short: %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func usableKey(k string) bool {
	return len(strings.TrimSpace(k)) > minKeyLength
}

// Redact keeps just enough of a key to recognise it.
func Redact(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "…" + key[len(key)-4:]
}

type Tunables struct {
	MaxRequestsPerHour  int
	CacheDuration       time.Duration
	MaxNewsItems        int
	MinImpactScore      float64
	UpdateCheckInterval time.Duration
}

type tunablesJSON struct {
	MaxRequestsPerHour  int     `json:"maxRequestsPerHour"`
	CacheDurationHours  float64 `json:"cacheDurationHours"`
	MaxNewsItems        int     `json:"maxNewsItems"`
	MinImpactScore      float64 `json:"minImpactScore"`
	UpdateCheckInterval string  `json:"updateCheckInterval"`
}

func (t Tunables) MarshalJSON() ([]byte, error) {
	return json.Marshal(tunablesJSON{
		MaxRequestsPerHour:  t.MaxRequestsPerHour,
		CacheDurationHours:  t.CacheDuration.Hours(),
		MaxNewsItems:        t.MaxNewsItems,
		MinImpactScore:      t.MinImpactScore,
		UpdateCheckInterval: t.UpdateCheckInterval.String(),
	})
}

func (t *Tunables) UnmarshalJSON(b []byte) error {
	var raw tunablesJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	interval, err := time.ParseDuration(raw.UpdateCheckInterval)
	if err != nil {
		return fmt.Errorf("updateCheckInterval: %w", err)
	}
	*t = Tunables{
		MaxRequestsPerHour:  raw.MaxRequestsPerHour,
		CacheDuration:       time.Duration(raw.CacheDurationHours * float64(time.Hour)),
		MaxNewsItems:        raw.MaxNewsItems,
		MinImpactScore:      raw.MinImpactScore,
		UpdateCheckInterval: interval,
	}
	return nil
}

func (t Tunables) Validate() error {
	switch {
	case t.MaxRequestsPerHour <= 0:
		return errors.New("max requests per hour must be positive")
	case t.CacheDuration <= 0:
		return errors.New("cache duration must be positive")
	case t.MaxNewsItems <= 0:
		return errors.New("max news items must be positive")
	case t.MinImpactScore < 0 || t.MinImpactScore > 10:
		return errors.New("min impact score must be within 0-10")
	case t.UpdateCheckInterval <= 0:
		return errors.New("update check interval must be positive")
	}
	return nil
}

type Settings struct {
	Credentials
	Tunables
}

// Store layers persisted overrides over the configured defaults.
type Store struct {
	kv       kv.Store
	defaults Settings
	logger   *zap.Logger

	mu      sync.RWMutex
	current Settings
}

func NewStore(store kv.Store, defaults Settings, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:       store,
		defaults: defaults,
		current:  defaults,
		logger:   logger.With(zap.String("component", "settings")),
	}
}

// Load re-reads persisted overrides. Unreadable overrides are logged and
// the configured value is used instead.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := s.defaults

	if v, ok := s.read(ctx, SearchKeyName); ok {
		out.SearchAPIKey = string(v)
	}
	if v, ok := s.read(ctx, ContentKeyName); ok {
		out.ContentAPIKey = string(v)
	}
	if v, ok := s.read(ctx, TunablesKey); ok {
		var t Tunables
		if err := json.Unmarshal(v, &t); err != nil {
			s.logger.Warn("Ignoring unparsable tunables", zap.Error(err))
		} else if err := t.Validate(); err != nil {
			s.logger.Warn("Ignoring invalid tunables", zap.Error(err))
		} else {
			out.Tunables = t
		}
	}

	s.mu.Lock()
	s.current = out
	s.mu.Unlock()
	return out, nil
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("Reading setting failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(v) == 0 {
		return nil, false
	}
	return v, true
}

func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetKeys persists both credentials and makes them current.
func (s *Store) SetKeys(ctx context.Context, searchKey, contentKey string) error {
	searchKey = strings.TrimSpace(searchKey)
	contentKey = strings.TrimSpace(contentKey)

	if searchKey != "" {
		if err := s.kv.Set(ctx, SearchKeyName, []byte(searchKey)); err != nil {
			return fmt.Errorf("saving %s: %w", SearchKeyName, err)
		}
	}
	if contentKey != "" {
		if err := s.kv.Set(ctx, ContentKeyName, []byte(contentKey)); err != nil {
			return fmt.Errorf("saving %s: %w", ContentKeyName, err)
		}
	}

	s.mu.Lock()
	if searchKey != "" {
		s.current.SearchAPIKey = searchKey
	}
	if contentKey != "" {
		s.current.ContentAPIKey = contentKey
	}
	s.mu.Unlock()

	s.logger.Info("News ticker API keys updated")
	return nil
}

func (s *Store) SetTunables(ctx context.Context, t Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding tunables: %w", err)
	}
	if err := s.kv.Set(ctx, TunablesKey, data); err != nil {
		return fmt.Errorf("saving tunables: %w", err)
	}

	s.mu.Lock()
	s.current.Tunables = t
	s.mu.Unlock()

	s.logger.Info("News ticker tunables updated",
		zap.Int("max_news_items", t.MaxNewsItems),
		zap.Duration("cache_duration", t.CacheDuration))
	return nil
}
