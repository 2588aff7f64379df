package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"newsticker/internal/kv"
)

func defaults() Settings {
	return Settings{
		Credentials: Credentials{SearchAPIKey: "config-search-key", ContentAPIKey: ""},
		Tunables: Tunables{
			MaxRequestsPerHour:  50,
			CacheDuration:       24 * time.Hour,
			MaxNewsItems:        20,
			MinImpactScore:      3,
			UpdateCheckInterval: time.Hour,
		},
	}
}

func TestValidate(t *testing.T) {
	both := Requirements{SearchKey: true, ContentKey: true}

	assert.NoError(t, Credentials{SearchAPIKey: "12345678901", ContentAPIKey: "fc-1234567890"}.Validate(both))

	err := Credentials{SearchAPIKey: "short", ContentAPIKey: "fc-1234567890"}.Validate(both)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorContains(t, err, SearchKeyName)

	err = Credentials{SearchAPIKey: "1234567890", ContentAPIKey: ""}.Validate(both)
	assert.ErrorContains(t, err, SearchKeyName)
	assert.ErrorContains(t, err, ContentKeyName)

	// only what the providers need is required
	assert.NoError(t, Credentials{}.Validate(Requirements{}))
	assert.NoError(t, Credentials{SearchAPIKey: "12345678901"}.Validate(Requirements{SearchKey: true}))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "8b95…beca", Redact("8b95f95ad213d8e58afaf927dc72beca"))
	assert.Equal(t, "*****", Redact("short"))
}

func TestLoadDefaults(t *testing.T) {
	s := NewStore(kv.NewMemoryStore(), defaults(), zaptest.NewLogger(t))
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
}

func TestSetKeysPersists(t *testing.T) {
	backend := kv.NewMemoryStore()
	ctx := context.Background()

	s := NewStore(backend, defaults(), zaptest.NewLogger(t))
	require.NoError(t, s.SetKeys(ctx, "new-search-key-abc", "fc-new-content-key"))
	assert.Equal(t, "new-search-key-abc", s.Current().SearchAPIKey)

	// a fresh provider over the same storage sees the stored keys first
	other := NewStore(backend, defaults(), zaptest.NewLogger(t))
	got, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-search-key-abc", got.SearchAPIKey)
	assert.Equal(t, "fc-new-content-key", got.ContentAPIKey)
}

func TestSetKeysKeepsBlank(t *testing.T) {
	s := NewStore(kv.NewMemoryStore(), defaults(), zaptest.NewLogger(t))
	require.NoError(t, s.SetKeys(context.Background(), "", "fc-only-content-key"))
	assert.Equal(t, "config-search-key", s.Current().SearchAPIKey)
	assert.Equal(t, "fc-only-content-key", s.Current().ContentAPIKey)
}

func TestSetTunables(t *testing.T) {
	backend := kv.NewMemoryStore()
	ctx := context.Background()
	s := NewStore(backend, defaults(), zaptest.NewLogger(t))

	tun := defaults().Tunables
	tun.MaxNewsItems = 30
	tun.CacheDuration = 12 * time.Hour
	tun.UpdateCheckInterval = 15 * time.Minute
	require.NoError(t, s.SetTunables(ctx, tun))
	assert.Equal(t, tun, s.Current().Tunables)

	got, err := NewStore(backend, defaults(), zaptest.NewLogger(t)).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, tun, got.Tunables)

	bad := tun
	bad.MaxNewsItems = 0
	assert.Error(t, s.SetTunables(ctx, bad))
}

func TestLoadIgnoresCorruptTunables(t *testing.T) {
	backend := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, TunablesKey, []byte("{oops")))

	got, err := NewStore(backend, defaults(), zaptest.NewLogger(t)).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults().Tunables, got.Tunables)
}
