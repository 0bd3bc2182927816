// Package downloader implements the HTTP transport used to probe the media origin.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"ytdash/internal/dash"
	"ytdash/internal/logger"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20
	defaultRateBurst = 40
	maxRedirects     = 10

	// defaultMaxBodySize bounds how much of a probe response is kept in memory. The first
	// sequence of an OTF stream is an initialization segment, which is small.
	defaultMaxBodySize = 16 << 20
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout     time.Duration // Per-request timeout, including redirects and body read
	UserAgent   string        // Used when the request does not set one
	RateLimit   rate.Limit    // Outbound requests per second
	RateBurst   int           // Requests allowed above the rate in a burst
	MaxBodySize int64         // Larger response bodies fail the request
}

// Client is responsible for all communication with the media origin.
// It follows HTTP redirects and reports the final URL to the caller.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
	timeout    time.Duration
	userAgent  string
	maxBody    int64
}

var _ dash.Downloader = (*Client)(nil)

// NewClient creates a new origin client.
func NewClient(log logger.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultRateBurst
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if log == nil {
		log = logger.Nop()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		TLSHandshakeTimeout:   5 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		limiter:   rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		logger:    log,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodySize,
	}
}

// Do sends a single request. Non-2xx responses are not errors; the status is reported as is.
func (c *Client) Do(ctx context.Context, r *dash.OriginRequest) (*dash.OriginResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", r.URL, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debugf("%s %s", method, r.URL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", r.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", r.URL, err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("response body from %s exceeds %d bytes", r.URL, c.maxBody)
	}

	finalURL := r.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	if finalURL != r.URL {
		c.logger.Debugf("Redirected to: %s", finalURL)
	}

	return &dash.OriginResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		FinalURL:   finalURL,
	}, nil
}
