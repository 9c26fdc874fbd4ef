package archive

import (
	"bufio"
	"context"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/chainkit/blockdb"
)

// importBatch is the number of blocks submitted per atomic commit while
// importing. Large enough to amortize commit overhead, small enough to
// stay under engine transaction limits.
const importBatch = 1024

// maxSection caps a single varint-framed section, against corrupt or
// hostile length prefixes.
const maxSection = 32 << 20

// carHeader is the CARv1 header: a CBOR map of version and root CIDs.
type carHeader struct {
	Version uint64            `cbor:"version"`
	Roots   []cbor.RawMessage `cbor:"roots"`
}

// Reader reads CARv1 block archives.
type Reader struct {
	br    *bufio.Reader
	roots []cid.Cid
}

// NewReader reads the archive header from r and positions the Reader at
// the first block record.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	raw, err := readSection(br)
	if err != nil {
		return nil, errors.Wrap(err, "reading archive header")
	}
	var hdr carHeader
	if err := cbor.Unmarshal(raw, &hdr); err != nil {
		return nil, errors.Wrap(err, "decoding archive header")
	}
	if hdr.Version != 1 {
		return nil, errors.Errorf("unsupported archive version %d", hdr.Version)
	}

	roots := make([]cid.Cid, 0, len(hdr.Roots))
	for _, raw := range hdr.Roots {
		c, err := decodeRoot(raw)
		if err != nil {
			return nil, errors.Wrap(err, "decoding archive root")
		}
		roots = append(roots, c)
	}

	return &Reader{br: br, roots: roots}, nil
}

// Roots returns the archive's root CIDs.
func (r *Reader) Roots() []cid.Cid {
	return r.roots
}

// Next returns the next block record, or io.EOF at the end of the
// archive.
func (r *Reader) Next() (blockdb.Block, error) {
	section, err := readSection(r.br)
	if errors.Is(err, io.EOF) {
		return blockdb.Block{}, io.EOF
	}
	if err != nil {
		return blockdb.Block{}, errors.Wrap(err, "reading block record")
	}

	n, c, err := cid.CidFromBytes(section)
	if err != nil {
		return blockdb.Block{}, errors.Wrap(err, "parsing block CID")
	}
	return blockdb.Block{Cid: c, Data: section[n:]}, nil
}

// readSection reads one varint-framed section. io.EOF at the frame
// boundary means a clean end of input; a short section is an error.
func readSection(br *bufio.Reader) ([]byte, error) {
	n, err := varint.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	if n > maxSection {
		return nil, errors.Errorf("section of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// decodeRoot unpacks one root CID: CBOR tag 42 around a byte string
// with a multibase identity prefix.
func decodeRoot(raw cbor.RawMessage) (cid.Cid, error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(raw, &tag); err != nil {
		return cid.Undef, err
	}
	if tag.Number != 42 {
		return cid.Undef, errors.Errorf("unexpected CBOR tag %d", tag.Number)
	}
	var b []byte
	if err := cbor.Unmarshal(tag.Content, &b); err != nil {
		return cid.Undef, err
	}
	if len(b) == 0 || b[0] != 0 {
		return cid.Undef, errors.New("malformed CID byte string")
	}
	return cid.Cast(b[1:])
}

// Import streams the archive in r into dst, committing blocks in atomic
// batches of importBatch. It returns the archive roots and the number
// of blocks imported. Decoding and committing overlap: one goroutine
// parses records while another writes batches.
func Import(ctx context.Context, dst blockdb.Blockstore, r io.Reader) ([]cid.Cid, int, error) {
	ar, err := NewReader(r)
	if err != nil {
		return nil, 0, err
	}

	var (
		count int
		ch    = make(chan []blockdb.Block)
	)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ch)

		batch := make([]blockdb.Block, 0, importBatch)
		for {
			b, err := ar.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			batch = append(batch, b)
			if len(batch) == importBatch {
				select {
				case ch <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
				batch = make([]blockdb.Block, 0, importBatch)
			}
		}
		if len(batch) > 0 {
			select {
			case ch <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for batch := range ch {
			if err := dst.PutManyKeyed(ctx, batch); err != nil {
				return err
			}
			count += len(batch)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return ar.Roots(), count, nil
}
