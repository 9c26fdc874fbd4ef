package gc

import (
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/chainkit/blockdb"
)

// Keep is the set of truncated hashes to protect from collection: the
// caller's reachable set, projected the same way the store projects its
// liveness universe. Safe for concurrent use, so a reachability walk
// can feed it from several goroutines.
type Keep struct {
	mu  sync.Mutex
	set blockdb.HashSet
}

// NewKeep returns an empty Keep.
func NewKeep() *Keep {
	return &Keep{set: blockdb.NewHashSet()}
}

// Add inserts a truncated hash, reporting whether it was newly added.
func (k *Keep) Add(h uint32) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.set.Add(h)
}

// AddCid protects the block named by c.
func (k *Keep) AddCid(c cid.Cid) bool {
	return k.AddMultihash(c.Hash())
}

// AddMultihash protects the block whose multihash is mh.
func (k *Keep) AddMultihash(mh multihash.Multihash) bool {
	return k.Add(blockdb.TruncatedHash(mh))
}

// Contains reports whether h is protected.
func (k *Keep) Contains(h uint32) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.set.Contains(h)
}

// Len returns the number of protected hashes.
func (k *Keep) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.set.Len()
}
