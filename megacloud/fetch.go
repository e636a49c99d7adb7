package megacloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shahradelahi/aniwatch/client"
	"github.com/shahradelahi/aniwatch/errs"
)

const (
	// DefaultSourcesURL is the getSources endpoint; the video id is appended.
	DefaultSourcesURL = "https://megacloud.tv/embed-2/ajax/e-1/getSources?id="
	// DefaultScriptURL is the player script; a millisecond timestamp is appended.
	DefaultScriptURL = "https://megacloud.tv/js/player/a/prod/e1-player.min.js?v="
)

// Endpoints holds the two provider URLs. Empty fields use the defaults.
type Endpoints struct {
	Sources string
	Script  string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{Sources: DefaultSourcesURL, Script: DefaultScriptURL}
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Sources == "" {
		e.Sources = DefaultSourcesURL
	}
	if e.Script == "" {
		e.Script = DefaultScriptURL
	}
	return e
}

// Fetcher performs the two network calls an extraction needs.
type Fetcher interface {
	// FetchManifest returns the raw getSources body for videoID.
	FetchManifest(ctx context.Context, videoID string, referer *url.URL) ([]byte, error)
	// FetchScript returns the player script, cache-busted with timestamp.
	FetchScript(ctx context.Context, timestamp int64) (string, error)
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client    *client.Client
	endpoints Endpoints
}

// NewHTTPFetcher returns a fetcher using c. A nil client uses client.New.
func NewHTTPFetcher(c *client.Client, endpoints Endpoints) *HTTPFetcher {
	if c == nil {
		c = client.New()
	}
	return &HTTPFetcher{client: c, endpoints: endpoints.withDefaults()}
}

// FetchManifest sends the headers the provider requires: the ajax marker and a
// Referer equal to the embed page.
func (f *HTTPFetcher) FetchManifest(ctx context.Context, videoID string, referer *url.URL) ([]byte, error) {
	headers := http.Header{}
	headers.Set("Accept", "*/*")
	headers.Set("X-Requested-With", "XMLHttpRequest")
	if referer != nil {
		headers.Set("Referer", referer.String())
	}

	body, err := f.client.Fetch(ctx, f.endpoints.Sources+url.QueryEscape(videoID), headers)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch manifest: %w", errs.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// FetchScript downloads the player script. An empty body is an error.
func (f *HTTPFetcher) FetchScript(ctx context.Context, timestamp int64) (string, error) {
	body, err := f.client.Fetch(ctx, f.endpoints.Script+strconv.FormatInt(timestamp, 10), nil)
	if err != nil {
		return "", fmt.Errorf("%w: fetch script: %w", errs.ErrUpstreamUnavailable, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("%w: player script is empty", errs.ErrUpstreamUnavailable)
	}
	return string(body), nil
}

// ParseEmbedURL validates an embed page URL and returns it with the video id,
// which is the last path segment.
func ParseEmbedURL(raw string) (*url.URL, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", fmt.Errorf("%w: empty embed url", errs.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("%w: %q is not an http(s) url", errs.ErrInvalidInput, raw)
	}
	segments := strings.Split(u.Path, "/")
	id := segments[len(segments)-1]
	if id == "" {
		return nil, "", fmt.Errorf("%w: no video id in %q", errs.ErrInvalidInput, raw)
	}
	return u, id, nil
}
