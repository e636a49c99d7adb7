package aniwatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/shahradelahi/aniwatch/client"
	"github.com/shahradelahi/aniwatch/downloader"
	"github.com/shahradelahi/aniwatch/episode"
	"github.com/shahradelahi/aniwatch/errs"
	"github.com/shahradelahi/aniwatch/internal/logger"
	"github.com/shahradelahi/aniwatch/megacloud"
	"github.com/shahradelahi/aniwatch/megacloud/keyschedule"
	"github.com/shahradelahi/aniwatch/megacloud/solver"
	"github.com/shahradelahi/aniwatch/types"
)

// Options contains the configuration of a Scraper.
//
// Use chainable setters on Scraper to populate these options.
type Options struct {
	HTTPClient   *http.Client
	ClientConfig client.Config
	Megacloud    megacloud.Endpoints
	Episode      episode.Endpoints
	SolverMode   solver.Mode
	Solver       solver.Solver
	Evaluate     bool
	Logger       *logger.Logger
}

// Scraper provides a high-level API for resolving hianime episodes into
// playable megacloud sources.
//
// Configure it before first use; it is safe for concurrent use afterwards.
type Scraper struct {
	mu      sync.Mutex
	options Options
	built   *components
}

type components struct {
	client    *client.Client
	extractor *megacloud.Extractor
	episodes  *episode.Client
	logger    *logger.Logger
	log       *logger.ComponentLogger
}

// New creates a new Scraper with default options.
func New() *Scraper {
	return &Scraper{}
}

func (s *Scraper) set(f func(o *Options)) *Scraper {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.options)
	s.built = nil
	return s
}

// WithHTTPClient sets a custom HTTP client to be used for all network calls.
func (s *Scraper) WithHTTPClient(hc *http.Client) *Scraper {
	return s.set(func(o *Options) { o.HTTPClient = hc })
}

// WithClientConfig sets timeout, retries, user agent and proxy. With a custom
// HTTP client only retries and user agent apply.
func (s *Scraper) WithClientConfig(cfg client.Config) *Scraper {
	return s.set(func(o *Options) { o.ClientConfig = cfg })
}

// WithEndpoints overrides the provider and site URLs.
func (s *Scraper) WithEndpoints(mc megacloud.Endpoints, ep episode.Endpoints) *Scraper {
	return s.set(func(o *Options) {
		o.Megacloud = mc
		o.Episode = ep
	})
}

// WithSolver configures the schedule solver used when the scanner fails.
func (s *Scraper) WithSolver(mode solver.Mode, sv solver.Solver) *Scraper {
	return s.set(func(o *Options) {
		o.SolverMode = mode
		o.Solver = sv
	})
}

// WithEvaluator enables evaluation of constant expressions in the player script.
func (s *Scraper) WithEvaluator(enabled bool) *Scraper {
	return s.set(func(o *Options) { o.Evaluate = enabled })
}

// WithLogger routes all component logs to l.
func (s *Scraper) WithLogger(l *logger.Logger) *Scraper {
	return s.set(func(o *Options) { o.Logger = l })
}

func (s *Scraper) components() *components {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built == nil {
		s.built = build(s.options)
	}
	return s.built
}

func build(o Options) *components {
	l := o.Logger
	if l == nil {
		l = logger.Nop()
	}

	var c *client.Client
	if o.HTTPClient != nil {
		c = client.FromHTTP(o.HTTPClient)
		if o.ClientConfig.Retries > 0 {
			c.Retries = o.ClientConfig.Retries
		}
		if o.ClientConfig.UserAgent != "" {
			c.UserAgent = o.ClientConfig.UserAgent
		}
	} else {
		c = client.NewWith(o.ClientConfig)
	}

	scanner := keyschedule.NewScanner()
	if o.Evaluate {
		scanner.Evaluator = keyschedule.NewOttoEvaluator()
	}

	x := megacloud.New().
		WithClient(c, o.Megacloud).
		WithScanner(scanner).
		WithSolver(o.SolverMode, o.Solver).
		WithLogger(l)

	return &components{
		client:    c,
		extractor: x,
		episodes:  episode.New(c, o.Episode).WithLogger(l),
		logger:    l,
		log:       l.WithComponent(logger.ComponentApp),
	}
}

// ExtractSources runs a megacloud extraction on embedURL.
func (s *Scraper) ExtractSources(ctx context.Context, embedURL string) (types.ExtractionResult, error) {
	return s.components().extractor.Extract(ctx, embedURL)
}

// GetEpisodeServers lists the servers of an episode id such as
// "steinsgate-3?ep=230".
func (s *Scraper) GetEpisodeServers(ctx context.Context, episodeID string) (types.EpisodeServers, error) {
	return s.components().episodes.Servers(ctx, episodeID)
}

// GetEpisodeSources resolves episodeID on server and category into playable
// sources. An episodeID starting with "http" is treated as an embed URL.
// Server defaults to hd-1. The anilist and mal ids are looked up alongside
// and are nil when unavailable.
func (s *Scraper) GetEpisodeSources(ctx context.Context, episodeID, server string, category episode.Category) (types.EpisodeSources, error) {
	comp := s.components()

	server = strings.ToLower(strings.TrimSpace(server))
	if server == "" {
		server = episode.ServerHD1
	}
	if !episode.Megacloud(server) {
		return types.EpisodeSources{}, fmt.Errorf("%w: unsupported server %q", errs.ErrInvalidInput, server)
	}

	if strings.HasPrefix(episodeID, "http") {
		res, err := comp.extractor.Extract(ctx, episodeID)
		if err != nil {
			return types.EpisodeSources{}, err
		}
		return comp.withHeaders(res, episodeID), nil
	}

	if _, err := episode.ValidateEpisodeID(episodeID); err != nil {
		return types.EpisodeSources{}, err
	}
	if strings.TrimSpace(string(category)) == "" {
		return types.EpisodeSources{}, fmt.Errorf("%w: invalid anime episode category", errs.ErrInvalidInput)
	}

	var (
		wg        sync.WaitGroup
		embedURL  string
		res       types.ExtractionResult
		err       error
		anilistID *int
		malID     *int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		embedURL, err = comp.episodes.EmbedURL(ctx, episodeID, server, category)
		if err != nil {
			return
		}
		res, err = comp.extractor.Extract(ctx, embedURL)
	}()
	go func() {
		defer wg.Done()
		anilistID, malID = comp.episodes.SyncIDs(ctx, episodeID)
	}()
	wg.Wait()

	if err != nil {
		comp.log.Warn("episode sources failed", map[string]interface{}{"error": err.Error()})
		return types.EpisodeSources{}, err
	}

	out := comp.withHeaders(res, embedURL)
	out.AnilistID = anilistID
	out.MalID = malID
	comp.log.Info("episode sources resolved", map[string]interface{}{
		"sources": len(out.Sources),
		"tracks":  len(out.Tracks),
	})
	return out, nil
}

func (c *components) withHeaders(res types.ExtractionResult, referer string) types.EpisodeSources {
	return types.EpisodeSources{
		ExtractionResult: res,
		Headers: map[string]string{
			"Referer":    referer,
			"User-Agent": c.client.Agent(),
		},
	}
}

// DownloadTracks saves the subtitle tracks of src into dir using its playback
// headers and returns the written paths.
func (s *Scraper) DownloadTracks(ctx context.Context, src types.EpisodeSources, dir, title string) ([]string, error) {
	comp := s.components()
	dl := downloader.New(comp.client, nil).WithLogger(comp.logger)
	return dl.Tracks(ctx, src.Tracks, dir, title, src.Headers)
}
