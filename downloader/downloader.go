// Package downloader saves subtitle and caption tracks to disk, passing the
// playback headers of an episode through to the track host.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shahradelahi/aniwatch/client"
	"github.com/shahradelahi/aniwatch/internal/logger"
	"github.com/shahradelahi/aniwatch/internal/trackfile"
	"github.com/shahradelahi/aniwatch/types"
)

const (
	temporaryFileSuffix = ".tmp"
	copyBufferSizeBytes = 32 * 1024 // 32KB

	headerAccept         = "Accept"
	headerAcceptEncoding = "Accept-Encoding"
	headerContentType    = "Content-Type"
	headerEncoding       = "Content-Encoding"

	successMinHTTPStatusCode      = 200
	successMaxHTTPStatusExclusive = 300

	kindThumbnails = "thumbnails"
)

// Progress holds information about download progress.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// Result describes a finished download.
type Result struct {
	Path        string
	Size        int64
	ContentType string
}

// Downloader fetches tracks through a client.Client.
type Downloader struct {
	Client       *client.Client
	ProgressFunc func(Progress)

	log *logger.ComponentLogger
}

// New creates a downloader. If c is nil, client.New is used.
func New(c *client.Client, progressFunc func(Progress)) *Downloader {
	if c == nil {
		c = client.New()
	}
	return &Downloader{
		Client:       c,
		ProgressFunc: progressFunc,
		log:          logger.Nop().WithComponent(logger.ComponentDownloader),
	}
}

// WithLogger routes download logs to l.
func (d *Downloader) WithLogger(l *logger.Logger) *Downloader {
	if l != nil {
		d.log = l.WithComponent(logger.ComponentDownloader)
	}
	return d
}

func requestHeaders(headers map[string]string) http.Header {
	h := http.Header{}
	h.Set(headerAccept, "*/*")
	h.Set(headerAcceptEncoding, "identity")
	for k, v := range headers {
		h.Set(k, v)
	}
	return h
}

// Download saves urlStr to outputPath. The body is written to a temporary file
// next to outputPath and renamed on success. Non-2xx statuses and empty bodies
// are errors.
func (d *Downloader) Download(ctx context.Context, urlStr, outputPath string, headers map[string]string) (Result, error) {
	resp, err := d.Client.Get(ctx, urlStr, requestHeaders(headers))
	if err != nil {
		return Result{}, fmt.Errorf("download request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < successMinHTTPStatusCode || resp.StatusCode >= successMaxHTTPStatusExclusive {
		return Result{}, &client.StatusError{URL: urlStr, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	totalSize := resp.ContentLength
	if enc := resp.Header.Get(headerEncoding); enc != "" && !strings.EqualFold(enc, "identity") {
		// Host ignored the identity request.
		decoded, err := client.DecodeBody(resp)
		if err != nil {
			return Result{}, err
		}
		body = bytes.NewReader(decoded)
		totalSize = int64(len(decoded))
	}
	if totalSize < 0 {
		totalSize = 0
	}

	tmpPath := outputPath + temporaryFileSuffix
	outFile, err := os.Create(tmpPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create output file: %v", err)
	}

	downloaded, err := d.copy(outFile, body, totalSize)
	if cerr := outFile.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output file: %v", cerr)
	}
	if err == nil && downloaded == 0 {
		err = errors.New("empty download: 0 bytes written")
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, err
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, err
	}
	d.log.Debug("track saved", map[string]interface{}{"path": outputPath, "bytes": downloaded})
	return Result{Path: outputPath, Size: downloaded, ContentType: resp.Header.Get(headerContentType)}, nil
}

func (d *Downloader) copy(w io.Writer, r io.Reader, totalSize int64) (int64, error) {
	buf := make([]byte, copyBufferSizeBytes)
	var downloaded int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return downloaded, fmt.Errorf("failed to write chunk: %v", werr)
			}
			downloaded += int64(n)
			if d.ProgressFunc != nil {
				p := Progress{TotalSize: totalSize, DownloadedSize: downloaded}
				if totalSize > 0 {
					p.Percent = float64(downloaded) / float64(totalSize) * 100
				}
				d.ProgressFunc(p)
			}
		}
		if rerr == io.EOF {
			return downloaded, nil
		}
		if rerr != nil {
			return downloaded, fmt.Errorf("failed to read response body: %v", rerr)
		}
	}
}

// Track downloads one track into dir, named after title and the track label.
// When the URL carries no known extension, the response Content-Type decides.
func (d *Downloader) Track(ctx context.Context, track types.Track, dir, title string, headers map[string]string) (string, error) {
	return d.track(ctx, track, dir, title, headers, &trackfile.Namer{})
}

func (d *Downloader) track(ctx context.Context, track types.Track, dir, title string, headers map[string]string, names *trackfile.Namer) (string, error) {
	out := filepath.Join(dir, names.Claim(trackfile.Name(title, track)))
	res, err := d.Download(ctx, track.File, out, headers)
	if err != nil {
		return "", err
	}
	if _, ok := trackfile.ExtFromURL(track.File); ok {
		return res.Path, nil
	}
	ext, ok := trackfile.ExtFromMime(res.ContentType)
	if !ok || ext == trackfile.DefaultExt {
		return res.Path, nil
	}
	renamed := filepath.Join(dir, names.Claim(trackfile.NameWithExt(title, track, ext)))
	if err := os.Rename(res.Path, renamed); err != nil {
		return res.Path, nil
	}
	return renamed, nil
}

// Tracks downloads every subtitle and caption track. Thumbnail sprites are
// skipped. Tracks that would share a file name get a numeric suffix.
// A failing track does not stop the others; all errors are joined.
func (d *Downloader) Tracks(ctx context.Context, tracks []types.Track, dir, title string, headers map[string]string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %v", dir, err)
	}

	var (
		paths []string
		errs  []error
		names trackfile.Namer
	)
	for _, t := range tracks {
		if strings.EqualFold(t.Kind, kindThumbnails) {
			continue
		}
		p, err := d.track(ctx, t, dir, title, headers, &names)
		if err != nil {
			d.log.Warn("track download failed", map[string]interface{}{"label": t.Label, "error": err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", t.Label, err))
			continue
		}
		paths = append(paths, p)
	}
	return paths, errors.Join(errs...)
}
