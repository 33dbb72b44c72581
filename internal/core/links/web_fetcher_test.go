package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/repost-bot/internal/core/errors"
)

const (
	headerUserAgent = "User-Agent"
	testImageBody   = "\x89PNG fake image bytes"
)

func TestNewWebFetcher(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		timeout  time.Duration
		maxBytes int64
	}{
		{name: "defaults", rps: 2.0},
		{name: "custom timeout", rps: 5.0, timeout: 10 * time.Second, maxBytes: 1024},
		{name: "negative timeout uses default", rps: 1.0, timeout: -1 * time.Second},
		{name: "unlimited rate", rps: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := NewWebFetcher(tt.rps, tt.timeout, tt.maxBytes)

			require.NotNil(t, fetcher, "NewWebFetcher() returned nil")
			require.NotNil(t, fetcher.client, "client is nil")
			require.NotNil(t, fetcher.limiter, "limiter is nil")
			require.Positive(t, fetcher.client.Timeout)
			require.Positive(t, fetcher.maxBytes)
			require.NotEmpty(t, fetcher.userAgent, "userAgent is empty")
		})
	}
}

func TestWebFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(headerUserAgent))

		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(testImageBody))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := NewWebFetcher(0, time.Second, 32)

	t.Run("success", func(t *testing.T) {
		body, err := fetcher.Fetch(context.Background(), server.URL+"/ok")
		require.NoError(t, err)
		require.Equal(t, testImageBody, string(body))
	})

	t.Run("non-200 status", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/missing")
		require.ErrorIs(t, err, errors.ErrHTTPStatusNotOK)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/empty")
		require.ErrorIs(t, err, errors.ErrEmptyResponse)
	})

	t.Run("body over limit", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/big")
		require.ErrorIs(t, err, errors.ErrBodyTooLarge)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fetcher.Fetch(ctx, server.URL+"/ok")
		require.Error(t, err)
	})
}

func TestWebFetcherFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte("not json"))
			return
		}

		_, _ = w.Write([]byte(`{"url":"https://img.example.com/cat.jpg"}`))
	}))
	defer server.Close()

	fetcher := NewWebFetcher(0, time.Second, 0)

	var payload struct {
		URL string `json:"url"`
	}

	require.NoError(t, fetcher.FetchJSON(context.Background(), server.URL, &payload))
	require.Equal(t, "https://img.example.com/cat.jpg", payload.URL)

	require.Error(t, fetcher.FetchJSON(context.Background(), server.URL+"/bad", &payload))
}
