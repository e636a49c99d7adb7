// Package client provides the HTTP client shared by the extractors: a tuned
// transport, browser-like default headers, response decoding and opt-in retries.
package client

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	defaultTimeout = 30 * time.Second
	// A single attempt. Retry policy belongs to the caller.
	defaultRetries = 1

	userAgentValue   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	acceptEncoding   = "gzip, deflate, br"
	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 3 * time.Second
	maxBodySize      = 32 << 20
	successMinCode   = http.StatusOK                  // 200
	successMaxCode   = http.StatusMultipleChoices     // 300
	retryableMinCode = http.StatusInternalServerError // 500
)

// defaultTransport is a tuned HTTP transport reused across clients.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 10 * time.Second,
	ForceAttemptHTTP2:     true,
	// Bodies are decoded by DecodeBody.
	DisableCompression: true,
	ReadBufferSize:     16 * 1024,
	WriteBufferSize:    16 * 1024,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults.
type Config struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
	ProxyURL  string
}

// Client wraps http.Client with default headers and an optional retry policy.
type Client struct {
	HTTPClient *http.Client
	Retries    int
	UserAgent  string
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// New creates a new Client with a tuned Transport and default timeout.
func New() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: defaultTransport,
		},
		Retries:   defaultRetries,
		UserAgent: userAgentValue,
	}
}

// NewWith creates a new client with provided config. Zero values use defaults.
func NewWith(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgentValue
	}

	tr := defaultTransport.Clone()
	if cfg.ProxyURL != "" {
		if proxyFunc, err := proxyFromURLString(cfg.ProxyURL); err == nil {
			tr.Proxy = proxyFunc
		}
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
		Retries:   retries,
		UserAgent: ua,
	}
}

// FromHTTP wraps an existing http.Client with the default headers.
func FromHTTP(hc *http.Client) *Client {
	if hc == nil {
		return New()
	}
	return &Client{HTTPClient: hc, Retries: defaultRetries, UserAgent: userAgentValue}
}

// Agent returns the User-Agent sent with every request.
func (c *Client) Agent() string {
	if c.UserAgent == "" {
		return userAgentValue
	}
	return c.UserAgent
}

// Get performs a GET request. Headers override the defaults. When Retries is
// above one, network failures and 5xx responses are retried with backoff.
func (c *Client) Get(ctx context.Context, rawURL string, headers http.Header) (*http.Response, error) {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}

	var (
		resp *http.Response
		err  error
	)
	backoff := initialBackoff
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if rerr != nil {
			return nil, rerr
		}
		req.Header.Set("User-Agent", c.Agent())
		req.Header.Set("Accept-Encoding", acceptEncoding)
		for k, vs := range headers {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err = c.HTTPClient.Do(req)
		if err == nil && resp.StatusCode < retryableMinCode {
			return resp, nil
		}
		if attempt < retries-1 && resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}
	return resp, err
}

// Fetch performs Get and returns the decoded body of a 2xx response.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < successMinCode || resp.StatusCode >= successMaxCode {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return DecodeBody(resp)
}

// DecodeBody reads the response body, undoing its Content-Encoding.
func DecodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = io.LimitReader(resp.Body, maxBodySize)
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip":
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %v", err)
		}
		defer func() { _ = gzReader.Close() }()
		reader = gzReader
	case "br":
		reader = brotli.NewReader(reader)
	case "deflate":
		raw, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %v", err)
		}
		// Servers send both zlib-wrapped and raw DEFLATE data.
		if zr, zerr := zlib.NewReader(bytes.NewReader(raw)); zerr == nil {
			defer func() { _ = zr.Close() }()
			reader = zr
		} else {
			reader = flate.NewReader(bytes.NewReader(raw))
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	return body, nil
}

// proxyFromURLString parses a proxy URL and returns a Proxy function.
func proxyFromURLString(raw string) (func(*http.Request) (*url.URL, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return http.ProxyURL(u), nil
}
