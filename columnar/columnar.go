// Package columnar implements the column-partitioned block store: a
// blockdb.Blockstore, SettingsStore, GarbageCollectable, and Statser
// over a kv engine, with blocks partitioned into columns by the shape
// of their CID.
package columnar

import (
	"context"
	"log"

	"github.com/chainkit/blockdb"
	"github.com/chainkit/blockdb/kv"
)

var (
	_ blockdb.Blockstore         = &Store{}
	_ blockdb.SettingsStore      = &Store{}
	_ blockdb.GarbageCollectable = &Store{}
	_ blockdb.Statser            = &Store{}
)

// Options configures a Store. The zero value is usable: Badger engine,
// Zstd compression, statistics off.
type Options struct {
	// Engine is a kv engine name registered via kv.Register.
	// Empty means "badger".
	Engine string

	// Statistics enables the Stats report.
	Statistics bool

	// Compression is applied to all columns.
	Compression kv.Compression

	// Logger receives diagnostic-path messages. Nil means log.Default.
	Logger *log.Logger
}

// Store is a column-partitioned block store over a kv engine.
type Store struct {
	db     kv.Store
	stats  bool
	logger *log.Logger
}

// Open opens (or creates) a store at path. Writes are always durably
// synced; the column layout is fixed here and never changed while the
// store is live.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	engine := opts.Engine
	if engine == "" {
		engine = "badger"
	}
	compression := opts.Compression
	if compression == kv.NoCompression {
		compression = kv.Zstd
	}
	db, err := kv.Open(ctx, engine, kv.Config{
		Path:       path,
		SyncWrites: true,
		Statistics: opts.Statistics,
		Columns:    columnOptions(compression),
	})
	if err != nil {
		return nil, err
	}
	return Wrap(db, opts), nil
}

// Wrap builds a Store over an already open engine handle. The handle
// must have been opened with the layout produced by columnOptions;
// Wrap is mainly for tests and for callers managing engine lifetime
// themselves.
func Wrap(db kv.Store, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Store{db: db, stats: opts.Statistics, logger: logger}
}

// ColumnConfig returns the column layout a Store expects from its
// engine, for callers opening the engine themselves before Wrap.
func ColumnConfig(compression kv.Compression) []kv.ColumnOptions {
	return columnOptions(compression)
}

// Close releases the underlying engine handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// read is a point lookup in col; absent keys yield (nil, nil).
func (s *Store) read(ctx context.Context, col Column, key []byte) ([]byte, error) {
	value, err := s.db.Get(ctx, uint8(col), key)
	if err != nil {
		return nil, &blockdb.EngineError{Column: col.String(), Err: err}
	}
	return value, nil
}

// write commits a single Set to col.
func (s *Store) write(ctx context.Context, col Column, key, value []byte) error {
	err := s.db.Commit(ctx, []kv.Op{kv.Set(uint8(col), key, value)})
	if err != nil {
		return &blockdb.EngineError{Column: col.String(), Err: err}
	}
	return nil
}

// exists is a size-only presence probe in col.
func (s *Store) exists(ctx context.Context, col Column, key []byte) (bool, error) {
	_, found, err := s.db.GetSize(ctx, uint8(col), key)
	if err != nil {
		return false, &blockdb.EngineError{Column: col.String(), Err: err}
	}
	return found, nil
}
