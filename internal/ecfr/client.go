// Package ecfr downloads regulatory documents and reference data from the
// eCFR API.
//
// Title XML is cached on disk, one file per (title, issue date). A file that
// already exists is not downloaded again. The check is best effort: two
// callers fetching the same file at once may both download it, and the last
// rename wins. Downloads go through a temporary file and a rename, so an
// interrupted download never leaves a truncated file behind.
package ecfr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/roach88/cfrstat/internal/cfr"
)

// Defaults applied by New.
const (
	DefaultBaseURL           = "https://www.ecfr.gov/api"
	DefaultConcurrency       = 4
	DefaultRequestsPerSecond = 2
	DefaultTimeout           = 120 * time.Second
)

// HTTPError is a non-200 response from the API.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 from the API, which for title XML
// means no version of the title exists at that date.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// Client fetches from one eCFR API base URL into one data directory.
// Safe for concurrent use.
type Client struct {
	baseURL     string
	dataDir     string
	http        *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps requests per second across all goroutines.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithConcurrency bounds the number of downloads Prefetch runs at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client. An empty baseURL uses DefaultBaseURL.
func New(baseURL, dataDir string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		dataDir:     dataDir,
		http:        &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TitlePath returns where the XML of title at date is cached.
func (c *Client) TitlePath(title int, date time.Time) string {
	return filepath.Join(c.dataDir,
		fmt.Sprintf("title%d", title),
		fmt.Sprintf("title-%d_%s.xml", title, cfr.FormatDate(date)))
}

// TitleURL returns the API URL of the full XML of title at date.
func (c *Client) TitleURL(title int, date time.Time) string {
	return fmt.Sprintf("%s/versioner/v1/full/%s/title-%d.xml", c.baseURL, cfr.FormatDate(date), title)
}

// FetchTitleXML makes sure the XML of title at date is on disk and returns
// its path. An existing file is returned without a request.
func (c *Client) FetchTitleXML(ctx context.Context, title int, date time.Time) (string, error) {
	path, _, err := c.fetchTitleXML(ctx, title, date)
	return path, err
}

func (c *Client) fetchTitleXML(ctx context.Context, title int, date time.Time) (string, bool, error) {
	path := c.TitlePath(title, date)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		c.logger.Debug("title xml cached", zap.Int("title", title), zap.String("path", path))
		return path, true, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("create data dir: %w", err)
	}

	url := c.TitleURL(title, date)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", false, err
	}
	defer body.Close()

	if err := writeAtomic(path, body); err != nil {
		return "", false, fmt.Errorf("save title %d at %s: %w", title, cfr.FormatDate(date), err)
	}
	c.logger.Info("downloaded title xml",
		zap.Int("title", title),
		zap.String("date", cfr.FormatDate(date)),
		zap.String("path", path))
	return path, false, nil
}

// get performs a rate-limited GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// writeAtomic copies r to a temporary file next to path and renames it.
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
