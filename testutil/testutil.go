// Package testutil provides reusable store fixtures and conformance
// helpers shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/chainkit/blockdb"
	"github.com/chainkit/blockdb/columnar"
	"github.com/chainkit/blockdb/kv"

	// Engines under test register themselves.
	_ "github.com/chainkit/blockdb/kv/badger"
	_ "github.com/chainkit/blockdb/kv/mem"
	_ "github.com/chainkit/blockdb/kv/pebble"
)

// EngineNames are the kv engines the conformance helpers run against.
var EngineNames = []string{"mem", "badger", "pebble"}

// OpenEngine opens an ephemeral instance of the named engine with the
// store's column layout, closed when the test ends.
func OpenEngine(t *testing.T, name string) kv.Store {
	t.Helper()
	db, err := kv.Open(context.Background(), name, kv.Config{
		Columns: columnar.ColumnConfig(kv.NoCompression),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Error(err)
		}
	})
	return db
}

// NewStore produces an ephemeral columnar store on the named engine.
func NewStore(t *testing.T, engine string) *columnar.Store {
	t.Helper()
	return columnar.Wrap(OpenEngine(t, engine), columnar.Options{})
}

// CanonicalBlock builds a block stored in the canonical column.
func CanonicalBlock(data []byte) blockdb.Block {
	return blockdb.NewBlock(data)
}

// RawBlock builds a block with a raw codec and sha2-256 hash, stored in
// the fallback column.
func RawBlock(t *testing.T, data []byte) blockdb.Block {
	t.Helper()
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatal(err)
	}
	return blockdb.Block{Cid: cid.NewCidV1(cid.Raw, mh), Data: data}
}

// IdentityBlock builds a fallback-column block whose multihash digest
// is the data itself, letting tests engineer truncated-hash collisions.
func IdentityBlock(t *testing.T, data []byte) blockdb.Block {
	t.Helper()
	mh, err := multihash.Sum(data, multihash.IDENTITY, -1)
	if err != nil {
		t.Fatal(err)
	}
	return blockdb.Block{Cid: cid.NewCidV1(cid.Raw, mh), Data: data}
}

// RandomBlocks produces n distinct blocks, alternating between the
// canonical and fallback columns, from a fixed seed.
func RandomBlocks(t *testing.T, n int) []blockdb.Block {
	t.Helper()
	rng := rand.New(rand.NewSource(int64(n)))
	blocks := make([]blockdb.Block, 0, n)
	seen := make(map[cid.Cid]struct{})
	for len(blocks) < n {
		data := make([]byte, 16+rng.Intn(64))
		rng.Read(data)
		var b blockdb.Block
		if len(blocks)%2 == 0 {
			b = CanonicalBlock(data)
		} else {
			b = RawBlock(t, data)
		}
		if _, ok := seen[b.Cid]; ok {
			continue
		}
		seen[b.Cid] = struct{}{}
		blocks = append(blocks, b)
	}
	return blocks
}

// RoundTrip writes random blobs to an empty store and makes sure each
// one reads back intact under its CID.
func RoundTrip(ctx context.Context, t *testing.T, storeFactory func() blockdb.Blockstore) {
	f := func(blobs [][]byte) bool {
		store := storeFactory()
		blocks := make([]blockdb.Block, 0, len(blobs))
		for i, data := range blobs {
			if i%2 == 0 {
				blocks = append(blocks, CanonicalBlock(data))
			} else {
				blocks = append(blocks, RawBlock(t, data))
			}
		}
		for _, b := range blocks {
			if err := store.PutKeyed(ctx, b.Cid, b.Data); err != nil {
				t.Fatal(err)
			}
		}
		for _, b := range blocks {
			got, err := store.Get(ctx, b.Cid)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(b.Data) {
				t.Logf("got %x, want %x", got, b.Data)
				return false
			}
			found, err := store.Has(ctx, b.Cid)
			if err != nil {
				t.Fatal(err)
			}
			if !found {
				t.Logf("Has(%s) = false after put", b.Cid)
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

// PerEngine runs f as a subtest against each engine in EngineNames.
func PerEngine(t *testing.T, f func(t *testing.T, engine string)) {
	for _, engine := range EngineNames {
		engine := engine
		t.Run(fmt.Sprintf("engine_%s", engine), func(t *testing.T) {
			f(t, engine)
		})
	}
}
