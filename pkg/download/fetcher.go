// Package download streams a remote archive into the staging directory.
package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/fsutil"
)

// ChunkSize is the number of bytes read from the response per step.
const ChunkSize = 10240

// DefaultUserAgent is sent with every download request.
const DefaultUserAgent = "blendup/1.0"

// Progress is reported after every chunk written.
type Progress struct {
	Chunks int     // chunks written so far
	Total  float64 // ContentLength / ChunkSize, 0 when the length is unknown
	Bytes  int64   // bytes written so far
}

// Percent returns the completion percentage, or -1 when the total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	pct := float64(p.Chunks) / p.Total * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressFunc receives progress updates. It runs on the downloading goroutine.
type ProgressFunc func(Progress)

// Fetcher downloads artifacts over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	chunkSize int
}

// NewFetcher creates a fetcher. A zero timeout leaves the net/http default
// (no timeout) in place.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		chunkSize: ChunkSize,
	}
}

// Fetch streams url into destPath and returns destPath. Each chunk is written
// as soon as it arrives. If the transfer fails part way the partial file is
// left in place.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string, onProgress ProgressFunc) (string, error) {
	resp, err := f.doRequest(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(destPath), fsutil.DirModeDefault); err != nil {
		return "", errors.WrapKind(errors.ErrFilesystem, err, "could not create download dir")
	}
	file, err := fsutil.CreateFilePerm(destPath, fsutil.FileModeDefault)
	if err != nil {
		return "", errors.WrapKind(errors.ErrFilesystem, err, "could not create file")
	}

	if err := f.stream(resp, file, onProgress); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", errors.WrapKind(errors.ErrFilesystem, err, "could not close file")
	}
	return destPath, nil
}

func (f *Fetcher) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", errors.ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status code: %d", errors.ErrDownloadFailed, resp.StatusCode)
	}
	return resp, nil
}

func (f *Fetcher) stream(resp *http.Response, w io.Writer, onProgress ProgressFunc) error {
	var progress Progress
	if resp.ContentLength > 0 {
		progress.Total = float64(resp.ContentLength) / float64(f.chunkSize)
	}

	buf := make([]byte, f.chunkSize)
	for {
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return errors.WrapKind(errors.ErrFilesystem, err, "could not write file")
			}
			progress.Chunks++
			progress.Bytes += int64(n)
			if onProgress != nil {
				onProgress(progress)
			}
		}
		switch {
		case readErr == nil:
			continue
		case stderrors.Is(readErr, io.EOF), stderrors.Is(readErr, io.ErrUnexpectedEOF):
			return checkLength(resp, progress.Bytes)
		default:
			return fmt.Errorf("%w: transfer interrupted after %d bytes: %w", errors.ErrDownloadFailed, progress.Bytes, readErr)
		}
	}
}

// checkLength catches bodies cut short by the server; net/http reports those
// as a clean EOF in some cases.
func checkLength(resp *http.Response, written int64) error {
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return fmt.Errorf("%w: received %d of %d bytes", errors.ErrDownloadFailed, written, resp.ContentLength)
	}
	return nil
}
