package links

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lueurxax/repost-bot/internal/core/errors"
)

const (
	defaultFetchTimeoutSeconds = 30
	defaultMaxBodyBytes        = 50 * 1024 * 1024
	limiterBurst               = 5
	maxRedirects               = 5
	fetcherUserAgent           = "RepostBot/1.0"
)

// WebFetcher downloads media and small JSON documents for the bot.
type WebFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	maxBytes  int64
	userAgent string
}

func NewWebFetcher(rps float64, timeout time.Duration, maxBytes int64) *WebFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeoutSeconds * time.Second
	}

	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}

	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}

	return &WebFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.ErrTooManyRedirects
				}

				return nil
			},
		},
		limiter:   rate.NewLimiter(limit, limiterBurst),
		maxBytes:  maxBytes,
		userAgent: fetcherUserAgent,
	}
}

// Fetch returns the body of rawURL. Bodies over the size cap fail with
// ErrBodyTooLarge rather than being truncated, so a partial image is
// never decoded.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", errors.ErrBodyTooLarge, f.maxBytes)
	}

	if len(body) == 0 {
		return nil, errors.ErrEmptyResponse
	}

	return body, nil
}

// FetchJSON fetches rawURL and decodes the body into target.
func (f *WebFetcher) FetchJSON(ctx context.Context, rawURL string, target any) error {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
