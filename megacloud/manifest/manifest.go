// Package manifest decodes the megacloud getSources envelope and parses
// source lists into result types.
package manifest

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/shahradelahi/aniwatch/errs"
	"github.com/shahradelahi/aniwatch/types"
)

// Raw is the getSources response as received, before any decryption.
type Raw struct {
	Encrypted bool
	// Ciphertext holds the payload when it is an opaque string.
	Ciphertext string
	// Plain holds the payload when it already is a source list.
	Plain []types.Source
	// IsList reports whether the payload was a list rather than a string.
	IsList bool

	Tracks []types.Track
	Intro  types.Range
	Outro  types.Range
	Server int
}

// Plaintext reports whether the payload can be used without decryption.
func (r *Raw) Plaintext() bool {
	return !r.Encrypted && r.IsList
}

// Result combines decoded sources with the side fields of the envelope.
func (r *Raw) Result(sources []types.Source) types.ExtractionResult {
	tracks := r.Tracks
	if tracks == nil {
		tracks = []types.Track{}
	}
	return types.ExtractionResult{
		Sources: sources,
		Tracks:  tracks,
		Intro:   r.Intro,
		Outro:   r.Outro,
	}
}

// DecodeRaw decodes a getSources response body.
func DecodeRaw(body []byte) (*Raw, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", errs.ErrManifestParseFailed)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: response is not an object", errs.ErrManifestParseFailed)
	}

	raw := &Raw{
		Encrypted: root.Get("encrypted").Bool(),
		Server:    int(root.Get("server").Int()),
		Intro:     decodeRange(root.Get("intro")),
		Outro:     decodeRange(root.Get("outro")),
	}

	src := root.Get("sources")
	switch {
	case src.Type == gjson.String:
		raw.Ciphertext = src.String()
	case src.IsArray():
		if raw.Encrypted {
			return nil, fmt.Errorf("%w: encrypted flag set on a plain source list", errs.ErrManifestParseFailed)
		}
		list, err := parseSources(src)
		if err != nil {
			return nil, err
		}
		raw.Plain = list
		raw.IsList = true
	default:
		return nil, fmt.Errorf("%w: sources must be a string or a list", errs.ErrManifestParseFailed)
	}

	tracks, err := parseTracks(root.Get("tracks"))
	if err != nil {
		return nil, err
	}
	raw.Tracks = tracks
	return raw, nil
}

// Parse parses decrypted text into a source list.
func Parse(text string) ([]types.Source, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: decrypted text is not valid JSON", errs.ErrManifestParseFailed)
	}
	res := gjson.Parse(text)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: decrypted text is not a list", errs.ErrManifestParseFailed)
	}
	return parseSources(res)
}

func parseSources(list gjson.Result) ([]types.Source, error) {
	items := list.Array()
	out := make([]types.Source, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: source %d is not an object", errs.ErrManifestParseFailed, i)
		}
		file := item.Get("file")
		if file.Type != gjson.String || file.String() == "" {
			return nil, fmt.Errorf("%w: source %d has no file", errs.ErrManifestParseFailed, i)
		}
		quality := item.Get("label").String()
		if quality == "" {
			quality = item.Get("quality").String()
		}
		out = append(out, types.Source{
			URL:     file.String(),
			Type:    item.Get("type").String(),
			Quality: quality,
		})
	}
	return out, nil
}

func parseTracks(list gjson.Result) ([]types.Track, error) {
	if !list.Exists() || list.Type == gjson.Null {
		return []types.Track{}, nil
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: tracks is not a list", errs.ErrManifestParseFailed)
	}
	items := list.Array()
	out := make([]types.Track, 0, len(items))
	for i, item := range items {
		file := item.Get("file")
		if !item.IsObject() || file.Type != gjson.String || file.String() == "" {
			return nil, fmt.Errorf("%w: track %d has no file", errs.ErrManifestParseFailed, i)
		}
		out = append(out, types.Track{
			File:    file.String(),
			Kind:    item.Get("kind").String(),
			Label:   item.Get("label").String(),
			Default: item.Get("default").Bool(),
		})
	}
	return out, nil
}

func decodeRange(r gjson.Result) types.Range {
	return types.Range{
		Start: int(r.Get("start").Int()),
		End:   int(r.Get("end").Int()),
	}
}
