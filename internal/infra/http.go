package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.URL, e.Body)
}

// DoGet performs a GET request with the given URL and headers, returning the
// response body. The caller is responsible for closing the returned ReadCloser.
func DoGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// FetchObserver receives one call per Fetcher.Get. outcome is "hit", "ok"
// or "error".
type FetchObserver interface {
	ObserveFetch(kind, outcome string, elapsed time.Duration)
}

// FetcherOptions configures NewFetcher.
type FetcherOptions struct {
	// UserAgent is sent on every request; EDGAR rejects anonymous clients.
	UserAgent string
	Timeout   time.Duration
	RateLimit int // requests per second
	Cache     ResponseCache
	CacheTTL  time.Duration
	// KindTTL overrides CacheTTL for the listed kinds. Zero disables caching
	// for that kind.
	KindTTL  map[string]time.Duration
	Observer FetchObserver
	Logger   *zap.Logger
}

// Fetcher performs rate-limited, cached GET requests with a fixed identity.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *RateLimiter
	cache     ResponseCache
	cacheTTL  time.Duration
	kindTTL   map[string]time.Duration
	observer  FetchObserver
	log       *zap.Logger
}

// NewFetcher creates a Fetcher. A nil cache disables caching.
func NewFetcher(opts FetcherOptions) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: opts.UserAgent,
		limiter:   PerSecond(opts.RateLimit),
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		kindTTL:   opts.KindTTL,
		observer:  opts.Observer,
		log:       log,
	}
}

// Get returns the body at url. kind labels the request for observation.
func (f *Fetcher) Get(ctx context.Context, kind, url string) ([]byte, error) {
	start := time.Now()
	ttl := f.ttl(kind)

	if f.cache != nil && ttl > 0 {
		if data, ok, err := f.cache.Get(ctx, url); err != nil {
			f.log.Warn("cache read failed", zap.String("url", url), zap.Error(err))
		} else if ok {
			f.observe(kind, "hit", start)
			return data, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		f.observe(kind, "error", start)
		return nil, err
	}

	body, _, err := DoGet(ctx, f.client, url, map[string]string{
		"User-Agent":      f.userAgent,
		"Accept":          "application/json, application/xml, text/html, */*",
		"Accept-Encoding": "identity",
	})
	if err != nil {
		f.observe(kind, "error", start)
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		f.observe(kind, "error", start)
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	if f.cache != nil && ttl > 0 {
		if err := f.cache.Set(ctx, url, data, ttl); err != nil {
			f.log.Warn("cache write failed", zap.String("url", url), zap.Error(err))
		}
	}

	f.log.Debug("fetched", zap.String("kind", kind), zap.String("url", url), zap.Int("bytes", len(data)))
	f.observe(kind, "ok", start)
	return data, nil
}

func (f *Fetcher) ttl(kind string) time.Duration {
	if d, ok := f.kindTTL[kind]; ok {
		return d
	}
	return f.cacheTTL
}

func (f *Fetcher) observe(kind, outcome string, start time.Time) {
	if f.observer != nil {
		f.observer.ObserveFetch(kind, outcome, time.Since(start))
	}
}
