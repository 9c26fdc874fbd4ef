// Package pebble implements the kv engine contract on Pebble.
// Columns share one keyspace, distinguished by a one-byte key prefix.
package pebble

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"

	"github.com/chainkit/blockdb/kv"
)

var _ kv.Store = &Store{}

// Store is a Pebble-backed kv engine.
type Store struct {
	db   *pebble.DB
	cols []kv.ColumnOptions
	sync bool

	// Pebble forbids closing a DB with open iterators; commits racing a
	// Close are the caller's problem, iterators are ours.
	closing sync.WaitGroup
}

// New opens (or creates) a Pebble database at cfg.Path.
// An empty path opens an ephemeral in-memory instance.
func New(cfg kv.Config) (*Store, error) {
	opts := &pebble.Options{
		Levels: make([]pebble.LevelOptions, 7),
	}
	for i := range opts.Levels {
		opts.Levels[i].Compression = compression(cfg.Columns)
	}
	path := cfg.Path
	if path == "" {
		opts.FS = vfs.NewMem()
		path = "mem"
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble")
	}
	return &Store{db: db, cols: cfg.Columns, sync: cfg.SyncWrites}, nil
}

func init() {
	kv.Register("pebble", func(_ context.Context, cfg kv.Config) (kv.Store, error) {
		return New(cfg)
	})
}

// compression collapses the per-column preferences onto Pebble's
// per-level setting, favoring the strongest one requested.
func compression(cols []kv.ColumnOptions) pebble.Compression {
	result := pebble.NoCompression
	for _, col := range cols {
		switch col.Compression {
		case kv.Zstd:
			return pebble.ZstdCompression
		case kv.Snappy:
			result = pebble.SnappyCompression
		}
	}
	return result
}

func (s *Store) checkCol(col uint8) error {
	if int(col) >= len(s.cols) {
		return errors.Errorf("no such column %d", col)
	}
	return nil
}

func colKey(col uint8, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = col
	copy(out[1:], key)
	return out
}

func (s *Store) Get(_ context.Context, col uint8, key []byte) ([]byte, error) {
	if err := s.checkCol(col); err != nil {
		return nil, err
	}
	value, closer, err := s.db.Get(colKey(col, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get")
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, errors.Wrap(closer.Close(), "pebble get")
}

// GetSize transfers the value to learn its size: Pebble has no size-only
// lookup. Present for contract completeness; prefer the Badger engine
// when existence probes are hot.
func (s *Store) GetSize(ctx context.Context, col uint8, key []byte) (int64, bool, error) {
	value, err := s.Get(ctx, col, key)
	if err != nil || value == nil {
		return 0, false, err
	}
	return int64(len(value)), true, nil
}

func (s *Store) Commit(_ context.Context, ops []kv.Op) error {
	for _, op := range ops {
		if err := s.checkCol(op.Col); err != nil {
			return err
		}
	}

	// An indexed batch lets the preimage probe observe keys written
	// earlier in the same commit.
	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	for _, op := range ops {
		k := colKey(op.Col, op.Key)
		switch op.Kind {
		case kv.OpSet:
			if s.cols[op.Col].Preimage {
				_, closer, err := batch.Get(k)
				if err == nil {
					if err := closer.Close(); err != nil {
						return errors.Wrap(err, "pebble commit")
					}
					continue
				}
				if !errors.Is(err, pebble.ErrNotFound) {
					return errors.Wrap(err, "pebble commit")
				}
			}
			if err := batch.Set(k, op.Value, nil); err != nil {
				return errors.Wrap(err, "pebble commit")
			}
		case kv.OpDereference:
			if err := batch.Delete(k, nil); err != nil {
				return errors.Wrap(err, "pebble commit")
			}
		}
	}

	return errors.Wrap(batch.Commit(s.writeOpts()), "pebble commit")
}

func (s *Store) writeOpts() *pebble.WriteOptions {
	if s.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (s *Store) Iter(ctx context.Context, col uint8, fn func(key, value []byte) error) error {
	if err := s.checkCol(col); err != nil {
		return err
	}
	if !s.cols[col].KeyIndex {
		return kv.ErrNoKeyIndex
	}
	return s.iter(ctx, col, fn)
}

func (s *Store) IterValues(ctx context.Context, col uint8, fn func(value []byte) error) error {
	if err := s.checkCol(col); err != nil {
		return err
	}
	return s.iter(ctx, col, func(_, value []byte) error {
		return fn(value)
	})
}

func (s *Store) iter(_ context.Context, col uint8, fn func(key, value []byte) error) error {
	s.closing.Add(1)
	defer s.closing.Done()

	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{col},
		UpperBound: []byte{col + 1},
	})
	if err != nil {
		return errors.Wrap(err, "pebble iter")
	}
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		value, err := it.ValueAndErr()
		if err != nil {
			return errors.Wrap(err, "pebble iter")
		}
		if err := fn(it.Key()[1:], value); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "pebble iter")
}

func (s *Store) Stats(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, s.db.Metrics().String())
	return errors.Wrap(err, "writing pebble stats")
}

func (s *Store) Close() error {
	s.closing.Wait()
	return errors.Wrap(s.db.Close(), "closing pebble")
}
