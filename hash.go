package blockdb

import (
	"encoding/binary"

	"github.com/multiformats/go-multihash"
)

// TruncatedHash projects a multihash digest onto 32 bits: the first four
// digest bytes, big-endian. Truncated hashes are liveness markers for the
// garbage collector, never storage keys. A collision makes the collector
// retain more than strictly necessary; it can never make it delete an
// unrelated live block, because sweeping re-derives each entry's hash
// before touching it.
func TruncatedHash(mh multihash.Multihash) uint32 {
	digest := mh
	if dec, err := multihash.Decode(mh); err == nil {
		digest = dec.Digest
	}
	var buf [4]byte
	copy(buf[:], digest)
	return binary.BigEndian.Uint32(buf[:])
}

// HashSet is a set of truncated hashes.
// At four bytes per element it stays memory-bounded even over a key
// space of billions of blocks.
type HashSet map[uint32]struct{}

// NewHashSet returns an empty HashSet.
func NewHashSet() HashSet {
	return make(HashSet)
}

// Add inserts h, reporting whether it was newly added.
func (s HashSet) Add(h uint32) bool {
	if _, ok := s[h]; ok {
		return false
	}
	s[h] = struct{}{}
	return true
}

// Contains reports whether h is in the set.
func (s HashSet) Contains(h uint32) bool {
	_, ok := s[h]
	return ok
}

// Len returns the number of elements.
func (s HashSet) Len() int {
	return len(s)
}
