package geo

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/genomekit/geoflow-cli/internal/store"
)

const defaultBaseURL = "https://ftp.ncbi.nlm.nih.gov"

// Client talks to the GEO FTP tree over HTTPS with a bounded retry
// strategy for transient failures.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	logger           *slog.Logger
}

// NewClient returns a client with the given timeout and retry behavior.
// Zero or negative arguments fall back to defaults.
func NewClient(logger *slog.Logger, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		baseURL:          defaultBaseURL,
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		logger:           logger,
	}
}

// NewClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewClientWithBaseURL(logger *slog.Logger, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *Client {
	c := NewClient(logger, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// seriesStub maps an accession onto GEO's directory sharding: the last
// three digits collapse to "nnn" (GSE188486 -> GSE188nnn).
func seriesStub(gseID string) string {
	digits := strings.TrimPrefix(gseID, "GSE")
	if len(digits) <= 3 {
		return "GSEnnn"
	}
	return "GSE" + digits[:len(digits)-3] + "nnn"
}

// SeriesURL returns the family SOFT file URL for a series accession.
func (c *Client) SeriesURL(gseID string) string {
	return fmt.Sprintf("%s/geo/series/%s/%s/soft/%s_family.soft.gz", c.baseURL, seriesStub(gseID), gseID, gseID)
}

// FetchSeries downloads and parses the family SOFT file for gseID.
func (c *Client) FetchSeries(ctx context.Context, gseID string) (*Series, error) {
	gseID = strings.ToUpper(strings.TrimSpace(gseID))
	if !strings.HasPrefix(gseID, "GSE") {
		return nil, fmt.Errorf("invalid series accession %q (expected GSE prefix)", gseID)
	}
	u := c.SeriesURL(gseID)
	c.logger.Info("fetching series", "id", gseID, "url", u)
	resp, err := c.get(ctx, u)
	if err != nil {
		var re *RequestError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{ID: gseID, URL: u}
		}
		return nil, err
	}
	defer resp.Body.Close()

	// The family file is gzip on the server; sniff the magic bytes so a
	// body that arrives already decoded still parses.
	br := bufio.NewReader(resp.Body)
	var body io.Reader = br
	if head, _ := br.Peek(2); len(head) == 2 && head[0] == 0x1f && head[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", u, err)
		}
		defer gz.Close()
		body = gz
	}
	series, err := ParseSOFT(body)
	if err != nil {
		return nil, fmt.Errorf("parse SOFT for %s: %w", gseID, err)
	}
	if series.ID == "" {
		series.ID = gseID
	}
	return series, nil
}

// FetchFile streams url into destPath, creating parent directories. GEO
// metadata references the FTP tree; NCBI serves the same paths over
// HTTPS, so ftp URLs are rewritten before the request.
func (c *Client) FetchFile(ctx context.Context, rawURL, destPath string) error {
	u := rewriteFTP(rawURL)
	c.logger.Info("downloading file", "url", u, "dest", destPath)
	resp, err := c.get(ctx, u)
	if err != nil {
		var re *RequestError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return &NotFoundError{URL: u}
		}
		return err
	}
	defer resp.Body.Close()
	if err := store.EnsureParent(destPath); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("download %s: %w", u, err)
	}
	return out.Close()
}

// LeafName returns the final path segment of a file URL, the name the
// file lands under locally.
func LeafName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}

func rewriteFTP(rawURL string) string {
	if strings.HasPrefix(rawURL, "ftp://") {
		return "https://" + strings.TrimPrefix(rawURL, "ftp://")
	}
	return rawURL
}

// get performs a GET with retries on network errors, 429 and 5xx.
func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if isRetryableNetErr(err) && attempt < c.retryMaxAttempts {
				lastErr = err
				c.logger.Warn("retrying after network error", "url", u, "attempt", attempt, "error", err)
				if !sleepCtx(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff, c.retryMaxDelay)
				continue
			}
			return nil, &RequestError{URL: u, Err: err}
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.retryMaxAttempts {
			lastErr = &RequestError{URL: u, StatusCode: resp.StatusCode}
			c.logger.Warn("retrying after status", "url", u, "attempt", attempt, "status", resp.StatusCode)
			if !sleepCtx(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, c.retryMaxDelay)
			continue
		}
		return nil, &RequestError{URL: u, StatusCode: resp.StatusCode}
	}
	if lastErr == nil {
		lastErr = &RequestError{URL: u, Err: errors.New("retries exhausted")}
	}
	return nil, lastErr
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if max > 0 && next > max {
		return max
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func isRetryableNetErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
