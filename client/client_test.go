package client

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestNew(t *testing.T) {
	client := New()

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.HTTPClient == nil {
		t.Fatal("Expected HTTPClient to be initialized")
	}

	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("Expected timeout %v, got %v", defaultTimeout, client.HTTPClient.Timeout)
	}

	if client.Retries != defaultRetries {
		t.Errorf("Expected retries %d, got %d", defaultRetries, client.Retries)
	}

	if client.UserAgent != userAgentValue {
		t.Errorf("Expected user agent '%s', got '%s'", userAgentValue, client.UserAgent)
	}
}

func TestNewWith(t *testing.T) {
	cfg := Config{
		Timeout:   10 * time.Second,
		Retries:   5,
		UserAgent: "Custom Agent",
		ProxyURL:  "http://proxy.example.com:8080",
	}

	client := NewWith(cfg)

	if client.HTTPClient.Timeout != cfg.Timeout {
		t.Errorf("Expected timeout %v, got %v", cfg.Timeout, client.HTTPClient.Timeout)
	}

	if client.Retries != cfg.Retries {
		t.Errorf("Expected retries %d, got %d", cfg.Retries, client.Retries)
	}

	if client.UserAgent != cfg.UserAgent {
		t.Errorf("Expected user agent '%s', got '%s'", cfg.UserAgent, client.UserAgent)
	}
}

func TestNewWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero values", cfg: Config{}},
		{name: "negative values", cfg: Config{Timeout: -1 * time.Second, Retries: -1}},
		{name: "invalid proxy", cfg: Config{ProxyURL: "://invalid-proxy-url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewWith(tt.cfg)
			if client.HTTPClient == nil {
				t.Fatal("Expected HTTPClient to be initialized")
			}
			if client.HTTPClient.Timeout != defaultTimeout {
				t.Errorf("Expected timeout %v, got %v", defaultTimeout, client.HTTPClient.Timeout)
			}
			if client.Retries != defaultRetries {
				t.Errorf("Expected retries %d, got %d", defaultRetries, client.Retries)
			}
			if client.UserAgent != userAgentValue {
				t.Errorf("Expected user agent '%s', got '%s'", userAgentValue, client.UserAgent)
			}
		})
	}
}

func TestFromHTTP(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	if c := FromHTTP(hc); c.HTTPClient != hc || c.Agent() != userAgentValue {
		t.Errorf("FromHTTP did not keep the given client")
	}
	if c := FromHTTP(nil); c.HTTPClient == nil {
		t.Error("FromHTTP(nil) should fall back to New")
	}
}

func TestGetSetsDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgentValue {
			t.Errorf("Expected User-Agent '%s', got '%s'", userAgentValue, got)
		}
		if got := r.Header.Get("Accept-Encoding"); got != acceptEncoding {
			t.Errorf("Expected Accept-Encoding '%s', got '%s'", acceptEncoding, got)
		}
		if got := r.Header.Get("Referer"); got != "https://megacloud.tv/embed-2/e-1/abc" {
			t.Errorf("Expected Referer to pass through, got '%s'", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &Client{HTTPClient: &http.Client{Timeout: 5 * time.Second}}
	resp, err := client.Get(context.Background(), server.URL, http.Header{
		"Referer": {"https://megacloud.tv/embed-2/e-1/abc"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = resp.Body.Close()
}

func TestGetHeaderOverridesUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "Override" {
			t.Errorf("Expected User-Agent 'Override', got '%s'", got)
		}
	}))
	defer server.Close()

	resp, err := New().Get(context.Background(), server.URL, http.Header{"User-Agent": {"Override"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = resp.Body.Close()
}

func TestGetRetries(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		failures  int32
		wantCalls int32
		wantCode  int
	}{
		{name: "single attempt by default", retries: 0, failures: 1, wantCalls: 1, wantCode: http.StatusBadGateway},
		{name: "recovers after failures", retries: 3, failures: 2, wantCalls: 3, wantCode: http.StatusOK},
		{name: "gives up", retries: 2, failures: 5, wantCalls: 2, wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) <= tt.failures {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := &Client{HTTPClient: &http.Client{Timeout: 5 * time.Second}, Retries: tt.retries}
			resp, err := client.Get(context.Background(), server.URL, nil)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, resp.StatusCode)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestGetContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := &Client{HTTPClient: &http.Client{Timeout: 5 * time.Second}, Retries: 10}
	_, err := client.Get(ctx, server.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New().Fetch(context.Background(), server.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", se.StatusCode)
	}
}

func TestFetchDecodesBody(t *testing.T) {
	const payload = `{"sources":"U2FsdGVkX18BAgMEBQYHCA==","encrypted":true}`

	encoders := map[string]func(io.Writer) io.WriteCloser{
		"":     nil,
		"gzip": func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"br":   func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
		"deflate": func(w io.Writer) io.WriteCloser {
			return zlib.NewWriter(w)
		},
	}

	for enc, newWriter := range encoders {
		t.Run("encoding "+enc, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if enc == "" {
					_, _ = io.WriteString(w, payload)
					return
				}
				w.Header().Set("Content-Encoding", enc)
				zw := newWriter(w)
				_, _ = io.WriteString(zw, payload)
				_ = zw.Close()
			}))
			defer server.Close()

			body, err := New().Fetch(context.Background(), server.URL, nil)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if string(body) != payload {
				t.Errorf("Fetch() = %q, want %q", body, payload)
			}
		})
	}
}

func TestDecodeBodyRawDeflate(t *testing.T) {
	var buf bytes.Buffer
	fw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	_, _ = io.WriteString(fw, "raw deflate")
	_ = fw.Close()

	resp := &http.Response{
		Header: http.Header{"Content-Encoding": {"deflate"}},
		Body:   io.NopCloser(&buf),
	}
	body, err := DecodeBody(resp)
	if err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if string(body) != "raw deflate" {
		t.Errorf("DecodeBody() = %q", body)
	}
}

func TestDecodeBodyUnsupported(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{"Content-Encoding": {"zstd"}},
		Body:   io.NopCloser(strings.NewReader("x")),
	}
	if _, err := DecodeBody(resp); err == nil {
		t.Error("Expected error for unsupported encoding")
	}
}

func TestProxyFromURLString(t *testing.T) {
	proxyFunc, err := proxyFromURLString("http://proxy.example.com:8080")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if proxyFunc == nil {
		t.Fatal("Expected proxy function to be non-nil")
	}

	if _, err := proxyFromURLString("://invalid-url"); err == nil {
		t.Fatal("Expected error for invalid proxy URL")
	}
}
