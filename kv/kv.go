// Package kv defines the contract the block store expects from an
// embedded key-value engine: point lookups, size-only probes, atomic
// multi-key commits, and forward iteration, all scoped to numbered
// columns fixed at open time.
package kv

import (
	"context"
	"errors"
	"io"
)

// OpKind discriminates commit operations.
type OpKind uint8

const (
	// OpSet stores a value under a key.
	OpSet OpKind = iota
	// OpDereference removes a key if present. Dereferencing an absent
	// key is not an error.
	OpDereference
)

// Op is a single mutation within an atomic commit.
type Op struct {
	Col   uint8
	Kind  OpKind
	Key   []byte
	Value []byte
}

// Set builds a store operation.
func Set(col uint8, key, value []byte) Op {
	return Op{Col: col, Kind: OpSet, Key: key, Value: value}
}

// Dereference builds a delete-if-present operation.
func Dereference(col uint8, key []byte) Op {
	return Op{Col: col, Kind: OpDereference, Key: key}
}

// Compression selects the engine's value compression.
type Compression uint8

const (
	NoCompression Compression = iota
	Snappy
	Zstd
)

// ColumnOptions is the per-column configuration, set once at open time.
type ColumnOptions struct {
	// Preimage marks a content-addressed column: a key fully determines
	// its value, so a Set for an existing key is suppressed rather than
	// applied. Must be false for overwrite-style namespaces.
	Preimage bool

	// KeyIndex maintains the secondary index needed for key iteration.
	// Iter over a column without it is an error; IterValues still works.
	KeyIndex bool

	Compression Compression

	// CompressionThreshold is the minimum value size, in bytes, worth
	// compressing. Zero means the engine default.
	CompressionThreshold int
}

// Config configures an engine instance.
type Config struct {
	// Path is the storage directory. Engines that support it treat an
	// empty path as an ephemeral in-memory instance.
	Path string

	// SyncWrites forces commits to be durably synced before returning.
	SyncWrites bool

	// Statistics enables whatever report collection the engine offers.
	Statistics bool

	// Columns fixes the column layout. Ops addressing a column outside
	// this slice are errors.
	Columns []ColumnOptions
}

// ErrNoKeyIndex is returned by Iter for columns configured without a
// key index.
var ErrNoKeyIndex = errors.New("column has no key index")

// Store is an open engine handle. A single handle is shared by all call
// sites for its process lifetime; implementations must be safe for
// concurrent use.
//
// Iteration carries no snapshot guarantee: commits that complete
// concurrently with, or immediately before, an iteration call may or
// may not be observed. Callers that need an exact scan must arrange
// quiescence themselves.
type Store interface {
	// Get returns the value under key, or nil if absent.
	Get(ctx context.Context, col uint8, key []byte) ([]byte, error)

	// GetSize returns the size of the value under key without
	// transferring it, and whether the key is present.
	GetSize(ctx context.Context, col uint8, key []byte) (int64, bool, error)

	// Commit atomically applies ops: after it returns, reads observe
	// either all of them or, on error, none of them.
	Commit(ctx context.Context, ops []Op) error

	// Iter calls fn for each (key, value) pair in col, in key order.
	// A non-nil error from fn stops the iteration and is returned.
	Iter(ctx context.Context, col uint8, fn func(key, value []byte) error) error

	// IterValues is like Iter but yields values only, and works on
	// columns without a key index.
	IterValues(ctx context.Context, col uint8, fn func(value []byte) error) error

	// Stats writes a textual diagnostics report to w.
	Stats(ctx context.Context, w io.Writer) error

	// Close releases the handle. The store must not be used afterward.
	Close() error
}
