package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/logging"
)

// Fetcher downloads file:// and http(s):// URLs. A destination that already
// holds part of the payload is resumed from its length.
type Fetcher struct {
	client   *http.Client
	progress bool
	log      zerolog.Logger
}

type Option func(*Fetcher)

func WithProgress(enabled bool) Option {
	return func(f *Fetcher) { f.progress = enabled }
}

func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func New(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    logging.Nop,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, req domain.FetchRequest) domain.FetchResult {
	result := domain.FetchResult{URL: req.URL, Path: req.Dest}

	u, err := url.Parse(req.URL)
	if err != nil {
		result.Error = fmt.Errorf("invalid url %q: %w", req.URL, err)
		return result
	}

	if err := os.MkdirAll(filepath.Dir(req.Dest), 0755); err != nil {
		result.Error = err
		return result
	}

	switch u.Scheme {
	case "file":
		err = f.fetchFile(ctx, u, req, &result)
	case "http", "https":
		err = f.fetchHTTP(ctx, req, &result)
	default:
		err = fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if err != nil {
		result.Error = err
		return result
	}

	if req.SHA256 != "" {
		actual, err := Checksum(req.Dest)
		if err != nil {
			result.Error = err
			return result
		}

		if actual != req.SHA256 {
			os.Remove(req.Dest)
			result.Error = &domain.ChecksumMismatchError{Path: req.Dest, Expected: req.SHA256, Actual: actual}
			return result
		}
	}

	f.log.Debug().
		Str("url", req.URL).
		Str("dest", req.Dest).
		Bool("resumed", result.Resumed).
		Bool("skipped", result.Skipped).
		Int64("written", result.Written).
		Msg("fetched")

	return result
}

func (f *Fetcher) fetchFile(ctx context.Context, u *url.URL, req domain.FetchRequest, result *domain.FetchResult) error {
	src, err := os.Open(u.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	total := info.Size()

	offset := existingSize(req.Dest)
	switch {
	case offset == total:
		result.Skipped = true
		return nil
	case offset > total:
		offset = 0
	}

	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	return f.write(ctx, req, src, offset, total, result)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, req domain.FetchRequest, result *domain.FetchResult) error {
	offset := existingSize(req.Dest)
	if req.Size > 0 && offset == req.Size {
		result.Skipped = true
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("User-Agent", "cubepkg")
	if offset > 0 {
		httpReq.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		total := int64(-1)
		if resp.ContentLength >= 0 {
			total = offset + resp.ContentLength
		}
		return f.write(ctx, req, resp.Body, offset, total, result)
	case http.StatusOK:
		return f.write(ctx, req, resp.Body, 0, resp.ContentLength, result)
	case http.StatusRequestedRangeNotSatisfiable:
		// Nothing left past offset; verification decides if the file is good.
		result.Skipped = true
		return nil
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

// write copies r into req.Dest starting at offset. A zero offset truncates.
func (f *Fetcher) write(ctx context.Context, req domain.FetchRequest, r io.Reader, offset, total int64, result *domain.FetchResult) error {
	flags := os.O_CREATE | os.O_WRONLY
	if offset == 0 {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(req.Dest, flags, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if err := file.Truncate(offset); err != nil {
		return err
	}

	if total < 0 && req.Estimate > 0 {
		total = req.Estimate
	}

	var w io.Writer = file
	if f.progress {
		bar := progressbar.DefaultBytes(total, fmt.Sprintf("Downloading %s", filepath.Base(req.Dest)))
		_ = bar.Set64(offset)
		w = io.MultiWriter(file, bar)
	}

	n, err := io.Copy(w, &contextReader{ctx: ctx, r: r})
	result.Written = n
	result.Resumed = offset > 0
	if err != nil {
		return fmt.Errorf("download of %s interrupted after %d bytes: %w", req.URL, offset+n, err)
	}

	return file.Sync()
}

// Checksum returns the hex encoded sha256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func existingSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
