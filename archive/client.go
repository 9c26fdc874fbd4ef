// Package archive ingests block archives: byte streams of (CID, bytes)
// records, possibly compressed, fetched from a URL or read from a local
// file, and fed into a block store in atomic batches.
package archive

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Client fetches archives. The embedded HTTP client is an explicitly
// constructed shared resource: create one Client per process and pass
// it around, rather than hiding a singleton.
type Client struct {
	hc *http.Client
}

// NewClient produces a Client using hc for HTTP fetches.
// A nil hc gets a fresh default client.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{hc: hc}
}

// Open returns a reader of uncompressed archive bytes. The location may
// be an http(s) URL or a local file path, and the stream may be gzip,
// zstd, or lz4 compressed; compression is sniffed from magic bytes.
func (c *Client) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	raw, err := c.open(ctx, location)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return rc, nil
}

func (c *Client) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, errors.Wrap(err, "building request")
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %s", location)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, errors.Errorf("fetching %s: %s", location, resp.Status)
		}
		return resp.Body, nil
	}

	// Not a URL; treat it as a local filepath.
	f, err := os.Open(location)
	return f, errors.Wrapf(err, "opening %s", location)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// decompress wraps rc with the decoder its leading magic bytes call
// for, or returns the stream as-is when none match.
func decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	magic, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "sniffing compression")
	}

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip stream")
		}
		return &readCloser{r: gr, close: func() error {
			gr.Close()
			return rc.Close()
		}}, nil
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "opening zstd stream")
		}
		return &readCloser{r: zr, close: func() error {
			zr.Close()
			return rc.Close()
		}}, nil
	case bytes.HasPrefix(magic, lz4Magic):
		return &readCloser{r: lz4.NewReader(br), close: rc.Close}, nil
	}
	return &readCloser{r: br, close: rc.Close}, nil
}

type readCloser struct {
	r     io.Reader
	close func() error
}

func (rc *readCloser) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

func (rc *readCloser) Close() error {
	return rc.close()
}
