package blockdb

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
)

// Canonical codec and hash function. CIDs using both are stored in the
// canonical column and their identity is recomputable from value bytes.
const (
	CanonicalCodec = uint64(multicodec.DagCbor)
	CanonicalHash  = uint64(multicodec.Blake2b256)
)

// Block is a (CID, bytes) pair.
// The store does not verify that the CID matches the bytes on write;
// that is the producing caller's contract.
type Block struct {
	Cid  cid.Cid
	Data []byte
}

// NewBlock builds a Block whose CID uses the canonical codec and hash
// function, computed from data.
func NewBlock(data []byte) Block {
	return Block{Cid: CanonicalCid(data), Data: data}
}

// SumBlake2b256 computes the canonical multihash of data.
func SumBlake2b256(data []byte) multihash.Multihash {
	d := blake2b.Sum256(data)
	mh, err := multihash.Encode(d[:], CanonicalHash)
	if err != nil {
		// Encode only fails on unknown codes; CanonicalHash is known.
		panic(err)
	}
	return mh
}

// CanonicalCid computes the CID a block of data would have under the
// canonical codec and hash function.
func CanonicalCid(data []byte) cid.Cid {
	return cid.NewCidV1(CanonicalCodec, SumBlake2b256(data))
}

// Blockstore is the content-addressed ingestion and retrieval surface.
//
// Absence is not an error: Get returns (nil, nil) for a CID that is not
// in the store.
type Blockstore interface {
	// Get retrieves the bytes of the block named by c,
	// or nil if the block is not present.
	Get(ctx context.Context, c cid.Cid) ([]byte, error)

	// Has reports whether the block named by c is present,
	// without transferring its bytes.
	Has(ctx context.Context, c cid.Cid) (bool, error)

	// PutKeyed stores data under c.
	// Storing the same CID again is a no-op, not an error.
	PutKeyed(ctx context.Context, c cid.Cid, data []byte) error

	// PutManyKeyed stores a batch of blocks in a single atomic commit:
	// after it returns, either every block in the batch is readable or,
	// on error, none of them are, even when the batch spans columns.
	PutManyKeyed(ctx context.Context, blocks []Block) error
}

// SettingsStore is a small string-keyed byte namespace, isolated from
// content-addressed data. Unlike block writes, settings writes overwrite
// in place.
type SettingsStore interface {
	// ReadBin returns the value stored under key, or nil if absent.
	ReadBin(ctx context.Context, key string) ([]byte, error)

	// WriteBin stores value under key, replacing any previous value.
	WriteBin(ctx context.Context, key string, value []byte) error

	// Exists reports whether key has a value,
	// without transferring the value.
	Exists(ctx context.Context, key string) (bool, error)

	// SettingKeys enumerates all settings keys.
	// A stored key that is not valid UTF-8 is surfaced as an error,
	// not skipped: it indicates data corruption.
	SettingKeys(ctx context.Context) ([]string, error)
}

// GarbageCollectable is implemented by stores that support approximate
// mark-and-sweep collection over truncated hashes.
type GarbageCollectable interface {
	// LiveSet computes the truncated hash of every block physically
	// present in the store: the liveness universe. It knows nothing of
	// reachability; the caller diffs the universe against its own
	// reachable set to decide what to sweep.
	LiveSet(ctx context.Context) (HashSet, error)

	// SweepKeys dereferences every block whose truncated hash is in
	// target. Each dereference is its own atomic commit; the first
	// failure aborts the remainder of the sweep and is returned, with
	// deletions applied so far left in place.
	SweepKeys(ctx context.Context, target HashSet) error
}

// Statser is implemented by stores that can produce a textual
// diagnostics report.
type Statser interface {
	// Stats returns the report, or ok == false when statistics were not
	// enabled at open time or the report could not be produced.
	// Statistics are diagnostic, never load-bearing: failures are
	// logged, not returned.
	Stats(ctx context.Context) (stats string, ok bool)
}
