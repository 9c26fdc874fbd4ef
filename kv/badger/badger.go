// Package badger implements the kv engine contract on Badger.
// Columns share one keyspace, distinguished by a one-byte key prefix.
package badger

import (
	"context"
	"io"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/pkg/errors"

	"github.com/chainkit/blockdb/kv"
)

var _ kv.Store = &Store{}

// Store is a Badger-backed kv engine.
type Store struct {
	db   *badger.DB
	cols []kv.ColumnOptions
}

// New opens (or creates) a Badger database at cfg.Path.
// An empty path opens an ephemeral in-memory instance.
func New(cfg kv.Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithMetricsEnabled(cfg.Statistics).
		WithCompression(compression(cfg.Columns)).
		WithLogger(nil)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger")
	}
	return &Store{db: db, cols: cfg.Columns}, nil
}

func init() {
	kv.Register("badger", func(_ context.Context, cfg kv.Config) (kv.Store, error) {
		return New(cfg)
	})
}

// compression collapses the per-column preferences onto Badger's single
// table-level setting, favoring the strongest one requested.
func compression(cols []kv.ColumnOptions) options.CompressionType {
	result := options.None
	for _, col := range cols {
		switch col.Compression {
		case kv.Zstd:
			return options.ZSTD
		case kv.Snappy:
			result = options.Snappy
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
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(colKey(col, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, errors.Wrap(err, "badger get")
}

func (s *Store) GetSize(_ context.Context, col uint8, key []byte) (int64, bool, error) {
	if err := s.checkCol(col); err != nil {
		return 0, false, err
	}
	var (
		size  int64
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(colKey(col, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		// ValueSize does not transfer the value.
		size, found = item.ValueSize(), true
		return nil
	})
	return size, found, errors.Wrap(err, "badger get size")
}

func (s *Store) Commit(_ context.Context, ops []kv.Op) error {
	for _, op := range ops {
		if err := s.checkCol(op.Col); err != nil {
			return err
		}
	}

	// A single Badger transaction gives the all-or-nothing guarantee.
	// Oversized batches surface ErrTxnTooBig rather than splitting,
	// which would break atomicity.
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			k := colKey(op.Col, op.Key)
			switch op.Kind {
			case kv.OpSet:
				if s.cols[op.Col].Preimage {
					if _, err := txn.Get(k); err == nil {
						continue
					} else if !errors.Is(err, badger.ErrKeyNotFound) {
						return err
					}
				}
				if err := txn.Set(k, op.Value); err != nil {
					return err
				}
			case kv.OpDereference:
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return errors.Wrap(err, "badger commit")
}

func (s *Store) Iter(_ context.Context, col uint8, fn func(key, value []byte) error) error {
	if err := s.checkCol(col); err != nil {
		return err
	}
	if !s.cols[col].KeyIndex {
		return kv.ErrNoKeyIndex
	}
	return s.iter(col, fn)
}

func (s *Store) IterValues(_ context.Context, col uint8, fn func(value []byte) error) error {
	if err := s.checkCol(col); err != nil {
		return err
	}
	return s.iter(col, func(_, value []byte) error {
		return fn(value)
	})
}

func (s *Store) iter(col uint8, fn func(key, value []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{col}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.Key()[1:], value); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "badger iter")
}

func (s *Store) Stats(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, s.db.LevelsToString())
	return errors.Wrap(err, "writing badger stats")
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing badger")
}
