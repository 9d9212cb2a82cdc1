package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/aloud/internal/cache"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ErrorPrefix starts every failed fetch result. Callers test for it rather
// than inspecting errors.
const ErrorPrefix = "Error fetching URL:"

const (
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultTimeout bounds a whole fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRate is the number of requests allowed per second.
	DefaultRate = 2.0

	// maxBodySize caps how much of a page is read.
	maxBodySize = 10 << 20
)

// Fetcher downloads pages and reduces them to readable text.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	cache     cache.Cache
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRate limits requests to perSecond. Zero or less disables limiting.
func WithRate(perSecond float64) Option {
	return func(f *Fetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithCache keeps extracted page text in c, keyed by URL.
func WithCache(c cache.Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// NewFetcher creates a fetcher with the default user agent, timeout and rate.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRate), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns source itself unless isURL is set, in which case it returns
// the page text, or a string beginning with ErrorPrefix when the fetch fails.
func (f *Fetcher) Fetch(ctx context.Context, source string, isURL bool) string {
	if !isURL {
		return source
	}
	text, err := f.FetchURL(ctx, source)
	if err != nil {
		return fmt.Sprintf("%s %v", ErrorPrefix, err)
	}
	return text
}

// IsFetchError reports whether s is a failed fetch result.
func IsFetchError(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}

// FetchURL downloads url and extracts its readable text.
func (f *Fetcher) FetchURL(ctx context.Context, url string) (string, error) {
	if f.cache != nil {
		if text, ok := f.cache.Get(url); ok {
			log.Debug("Page served from cache", "url", url)
			return string(text), nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	// Setting Accept-Encoding turns off net/http's transparent gzip, so the
	// body is decoded in decodeBody.
	req.Header.Set("Accept-Encoding", "gzip, zstd")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", err
	}
	defer body.Close()

	r, err := charset.NewReader(io.LimitReader(body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to detect page encoding: %w", err)
	}
	text, err := ExtractText(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	log.Debug("Fetched page",
		"url", url,
		"status", resp.StatusCode,
		"encoding", resp.Header.Get("Content-Encoding"),
		"text", humanize.Bytes(uint64(len(text))),
		"duration", time.Since(start))

	if f.cache != nil {
		if err := f.cache.Put(url, []byte(text)); err != nil {
			log.Debug("Page not cached", "url", url, "error", err)
		}
	}
	return text, nil
}

// decodeBody undoes the response's Content-Encoding.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode gzip body: %w", err)
		}
		return zr, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode zstd body: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
