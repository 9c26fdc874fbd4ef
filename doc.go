// Package blockdb is the persistent content-addressed block store of a
// blockchain client.
//
// A block is an arbitrarily sized sequence of bytes indexed by its CID:
// a self-describing content identifier naming the codec the bytes were
// encoded with and the hash of the bytes. Because the lookup key is
// computed from a block's content, a given CID can only ever name one
// block, and storing the same block twice is a no-op.
//
// Real traffic is dominated by blocks whose CID uses the canonical codec
// (dag-cbor) and the canonical hash function (blake2b-256). The store
// exploits this by partitioning blocks into columns: the canonical column
// skips secondary key indexing entirely, because a block's CID there is
// recomputable from its bytes, while the fallback column keeps a key
// index for the long tail of other codecs and hash functions. A third
// column holds a small string-keyed settings namespace that permits
// in-place overwrite, which the content-addressed columns do not.
//
// This package defines the store's contract surface: the Block type, the
// interfaces implemented by concrete stores, and the truncated-hash
// projection used by the garbage collector. The column-partitioned store
// itself lives in the columnar subpackage, on top of the embedded
// key-value engines in the kv subpackages. The gc subpackage drives
// mark-and-sweep collection, and the archive subpackage ingests remote
// block archives.
package blockdb
