package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirecrawlExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-test-key-0123", r.Header.Get("Authorization"))

		var body scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com/story", body.URL)
		assert.Equal(t, []string{"markdown"}, body.Formats)

		w.Write([]byte(`{"success":true,"data":{"markdown":"# Story\n\nBody text."}}`))
	}))
	defer srv.Close()

	got, err := NewFirecrawl(srv.URL, "fc-test-key-0123", 5*time.Second).Extract(context.Background(), "https://example.com/story")
	require.NoError(t, err)
	assert.Equal(t, "# Story\n\nBody text.", got)
}

func TestFirecrawlExtractWithoutSuccessField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"markdown":"# Article body"}}`))
	}))
	defer srv.Close()

	got, err := NewFirecrawl(srv.URL, "fc-test-key-0123", time.Second).Extract(context.Background(), "https://example.com/story")
	require.NoError(t, err)
	assert.Equal(t, "# Article body", got)
}

func TestFirecrawlErrors(t *testing.T) {
	t.Run("success false", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"error":"blocked by robots.txt"}`))
		}))
		defer srv.Close()

		_, err := NewFirecrawl(srv.URL, "fc-test-key-0123", time.Second).Extract(context.Background(), "https://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "blocked by robots.txt")
	})

	t.Run("error without success field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"timeout"}`))
		}))
		defer srv.Close()

		_, err := NewFirecrawl(srv.URL, "fc-test-key-0123", time.Second).Extract(context.Background(), "https://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("success false without message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false}`))
		}))
		defer srv.Close()

		_, err := NewFirecrawl(srv.URL, "fc-test-key-0123", time.Second).Extract(context.Background(), "https://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown error")
	})

	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "payment required", http.StatusPaymentRequired)
		}))
		defer srv.Close()

		_, err := NewFirecrawl(srv.URL, "fc-test-key-0123", time.Second).Extract(context.Background(), "https://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "402")
	})

	t.Run("no key", func(t *testing.T) {
		_, err := NewFirecrawl("http://127.0.0.1:1", "", time.Second).Extract(context.Background(), "https://example.com")
		require.Error(t, err)
	})
}

func TestDirectExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><style>p{}</style></head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Launch day</h1><p>Acme <strong>launches</strong> its MCP gateway.</p>
<script>track()</script><a href="/more">More</a></article>
<footer>Copyright</footer></body></html>`))
	}))
	defer srv.Close()

	got, err := NewDirect(5 * time.Second).Extract(context.Background(), srv.URL+"/story")
	require.NoError(t, err)

	assert.Contains(t, got, "# Launch day")
	assert.Contains(t, got, "Acme **launches** its MCP gateway.")
	assert.Contains(t, got, "("+srv.URL+"/more)")
	assert.NotContains(t, got, "Home")
	assert.NotContains(t, got, "track()")
	assert.NotContains(t, got, "Copyright")
}

func TestDirectExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewDirect(time.Second).Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNone(t *testing.T) {
	got, err := None{}.Extract(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "none", None{}.Name())
}
