package types

// Source describes one playable rendition.
type Source struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Quality string `json:"quality,omitempty"`
}

// Track describes a side track such as subtitles or thumbnails.
type Track struct {
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Label   string `json:"label,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// Range marks an intro or outro segment in seconds.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExtractionResult is the final output of a single extraction.
type ExtractionResult struct {
	Sources []Source `json:"sources"`
	Tracks  []Track  `json:"tracks"`
	Intro   Range    `json:"intro"`
	Outro   Range    `json:"outro"`
}

// EpisodeSources is an ExtractionResult enriched with the data a caller needs
// to actually play the episode.
type EpisodeSources struct {
	ExtractionResult
	// Headers must be attached when downloading the media bytes.
	Headers   map[string]string `json:"headers,omitempty"`
	AnilistID *int              `json:"anilistID"`
	MalID     *int              `json:"malID"`
}

// Server is one entry of an episode's server list.
type Server struct {
	Name string `json:"serverName"`
	ID   int    `json:"serverId"`
}

// EpisodeServers lists the servers available for an episode, per category.
type EpisodeServers struct {
	Sub       []Server `json:"sub"`
	Dub       []Server `json:"dub"`
	Raw       []Server `json:"raw"`
	EpisodeID string   `json:"episodeId"`
	EpisodeNo int      `json:"episodeNo"`
}
