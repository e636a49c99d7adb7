// Package episode resolves hianime episode ids into server lists, megacloud
// embed URLs and anilist/mal ids through the site's ajax endpoints.
package episode

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/shahradelahi/aniwatch/client"
	"github.com/shahradelahi/aniwatch/errs"
	"github.com/shahradelahi/aniwatch/internal/logger"
	"github.com/shahradelahi/aniwatch/types"
)

const (
	// DefaultBaseURL is the site root that watch pages are served from.
	DefaultBaseURL = "https://hianime.to"
	// DefaultAjaxURL is the root of the site's ajax endpoints.
	DefaultAjaxURL = DefaultBaseURL + "/ajax"
)

// Endpoints holds the site and ajax roots. Empty fields use the defaults.
type Endpoints struct {
	Base string
	Ajax string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{Base: DefaultBaseURL, Ajax: DefaultAjaxURL}
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Base == "" {
		e.Base = DefaultBaseURL
	}
	if e.Ajax == "" {
		e.Ajax = strings.TrimRight(e.Base, "/") + "/ajax"
	}
	e.Base = strings.TrimRight(e.Base, "/")
	e.Ajax = strings.TrimRight(e.Ajax, "/")
	return e
}

// Category selects the audio version of an episode.
type Category string

const (
	CategorySub Category = "sub"
	CategoryDub Category = "dub"
	CategoryRaw Category = "raw"
)

// Server names as used by the site.
const (
	ServerHD1        = "hd-1"
	ServerHD2        = "hd-2"
	ServerStreamSB   = "streamsb"
	ServerStreamTape = "streamtape"
)

// serverIndex maps a server name to its data-server-id.
var serverIndex = map[string]int{
	ServerHD1:        4,
	ServerHD2:        1,
	ServerStreamSB:   5,
	ServerStreamTape: 3,
}

// Megacloud reports whether server is backed by megacloud embeds.
func Megacloud(server string) bool {
	switch strings.ToLower(server) {
	case ServerHD1, ServerHD2:
		return true
	}
	return false
}

// ValidateEpisodeID checks an id of the form "{slug}?ep={number}" and returns
// the number part.
func ValidateEpisodeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	i := strings.Index(id, "?ep=")
	if id == "" || i < 0 {
		return "", fmt.Errorf("%w: invalid anime episode id %q", errs.ErrInvalidInput, id)
	}
	ep := id[i+len("?ep="):]
	if ep == "" || i == 0 {
		return "", fmt.Errorf("%w: invalid anime episode id %q", errs.ErrInvalidInput, id)
	}
	return ep, nil
}

// Client talks to the episode ajax endpoints.
type Client struct {
	http      *client.Client
	endpoints Endpoints
	log       *logger.ComponentLogger
}

// New returns a Client using c. A nil client uses client.New.
func New(c *client.Client, endpoints Endpoints) *Client {
	if c == nil {
		c = client.New()
	}
	return &Client{
		http:      c,
		endpoints: endpoints.withDefaults(),
		log:       logger.Nop().WithComponent(logger.ComponentEpisode),
	}
}

// WithLogger routes episode logs to l.
func (c *Client) WithLogger(l *logger.Logger) *Client {
	if l != nil {
		c.log = l.WithComponent(logger.ComponentEpisode)
	}
	return c
}

func (c *Client) watchURL(episodeID string) string {
	return c.endpoints.Base + "/watch/" + episodeID
}

func (c *Client) ajax(ctx context.Context, path string, referer string) (gjson.Result, error) {
	headers := http.Header{}
	headers.Set("X-Requested-With", "XMLHttpRequest")
	if referer != "" {
		headers.Set("Referer", referer)
	}
	body, err := c.http.Fetch(ctx, c.endpoints.Ajax+path, headers)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %w", errs.ErrUpstreamUnavailable, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: %s is not valid JSON", errs.ErrManifestParseFailed, path)
	}
	return gjson.ParseBytes(body), nil
}

func (c *Client) serversDoc(ctx context.Context, episodeID string) (*goquery.Document, error) {
	ep, err := ValidateEpisodeID(episodeID)
	if err != nil {
		return nil, err
	}
	res, err := c.ajax(ctx, "/v2/episode/servers?episodeId="+url.QueryEscape(ep), c.watchURL(episodeID))
	if err != nil {
		return nil, err
	}
	html := res.Get("html")
	if html.Type != gjson.String {
		return nil, fmt.Errorf("%w: servers response has no html", errs.ErrManifestParseFailed)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrManifestParseFailed, err)
	}
	return doc, nil
}

// Servers lists the servers available for episodeID.
func (c *Client) Servers(ctx context.Context, episodeID string) (types.EpisodeServers, error) {
	doc, err := c.serversDoc(ctx, episodeID)
	if err != nil {
		return types.EpisodeServers{}, err
	}
	res := ParseServers(doc)
	res.EpisodeID = strings.TrimSpace(episodeID)
	c.log.Debug("servers listed", map[string]interface{}{
		"episode_no": res.EpisodeNo,
		"sub":        len(res.Sub),
		"dub":        len(res.Dub),
		"raw":        len(res.Raw),
	})
	return res, nil
}

// ParseServers reads the server fragment returned by the servers endpoint.
func ParseServers(doc *goquery.Document) types.EpisodeServers {
	res := types.EpisodeServers{
		Sub: serverList(doc, CategorySub),
		Dub: serverList(doc, CategoryDub),
		Raw: serverList(doc, CategoryRaw),
	}
	fields := strings.Fields(doc.Find(".server-notice strong").First().Text())
	if len(fields) > 0 {
		res.EpisodeNo, _ = strconv.Atoi(fields[len(fields)-1])
	}
	return res
}

func serverItems(doc *goquery.Document, category Category) *goquery.Selection {
	return doc.Find(".servers-" + string(category) + " .server-item")
}

func serverList(doc *goquery.Document, category Category) []types.Server {
	out := []types.Server{}
	serverItems(doc, category).Each(func(_ int, s *goquery.Selection) {
		id, _ := strconv.Atoi(strings.TrimSpace(s.AttrOr("data-server-id", "")))
		out = append(out, types.Server{
			Name: strings.ToLower(strings.TrimSpace(s.Find("a").Text())),
			ID:   id,
		})
	})
	return out
}

// dataID returns the data-id of the server item for index, or "".
func dataID(doc *goquery.Document, index int, category Category) string {
	want := strconv.Itoa(index)
	var id string
	serverItems(doc, category).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.AttrOr("data-server-id", "")) == want {
			id = strings.TrimSpace(s.AttrOr("data-id", ""))
			return false
		}
		return true
	})
	return id
}

func parseCategory(category Category) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(string(category)))); c {
	case CategorySub, CategoryDub, CategoryRaw:
		return c, nil
	case "":
		return "", fmt.Errorf("%w: invalid anime episode category", errs.ErrInvalidInput)
	default:
		return "", fmt.Errorf("%w: unknown category %q", errs.ErrInvalidInput, category)
	}
}

// EmbedURL resolves the embed page of episodeID on server for category.
func (c *Client) EmbedURL(ctx context.Context, episodeID, server string, category Category) (string, error) {
	category, err := parseCategory(category)
	if err != nil {
		return "", err
	}
	index, ok := serverIndex[strings.ToLower(server)]
	if !ok {
		return "", fmt.Errorf("%w: unknown server %q", errs.ErrInvalidInput, server)
	}

	doc, err := c.serversDoc(ctx, episodeID)
	if err != nil {
		return "", err
	}
	id := dataID(doc, index, category)
	if id == "" {
		return "", fmt.Errorf("%w: couldn't find server %s for %s, try another server",
			errs.ErrInvalidInput, server, category)
	}

	res, err := c.ajax(ctx, "/v2/episode/sources?id="+url.QueryEscape(id), c.watchURL(episodeID))
	if err != nil {
		return "", err
	}
	link := strings.TrimSpace(res.Get("link").String())
	if link == "" {
		return "", fmt.Errorf("%w: sources response has no link", errs.ErrManifestParseFailed)
	}
	c.log.Debug("embed resolved", map[string]interface{}{"server": server, "category": string(category)})
	return link, nil
}

// SyncIDs looks up the anilist and mal ids on the anime page. Any failure
// yields nil ids; the lookup never fails the caller.
func (c *Client) SyncIDs(ctx context.Context, episodeID string) (anilistID, malID *int) {
	slug, _, _ := strings.Cut(strings.TrimSpace(episodeID), "?ep=")
	if slug == "" {
		return nil, nil
	}

	headers := http.Header{}
	headers.Set("Referer", c.endpoints.Base+"/")
	headers.Set("X-Requested-With", "XMLHttpRequest")
	body, err := c.http.Fetch(ctx, c.endpoints.Base+"/"+slug, headers)
	if err != nil {
		c.log.Debug("sync ids unavailable", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}

	anilistID, malID = ParseSyncData(body)
	return anilistID, malID
}

// ParseSyncData reads the #syncData JSON block of an anime page.
func ParseSyncData(page []byte) (anilistID, malID *int) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, nil
	}
	data := doc.Find("#syncData").First().Text()
	if !gjson.Valid(data) {
		return nil, nil
	}
	res := gjson.Parse(data)
	return positiveInt(res.Get("anilist_id")), positiveInt(res.Get("mal_id"))
}

func positiveInt(r gjson.Result) *int {
	if !r.Exists() {
		return nil
	}
	var v int
	switch r.Type {
	case gjson.Number:
		v = int(r.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.String()))
		if err != nil {
			return nil
		}
		v = n
	default:
		return nil
	}
	if v <= 0 {
		return nil
	}
	return &v
}
