// Package cache implements a block store that acts as a
// least-recently-used read cache for a nested block store.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ipfs/go-cid"

	"github.com/chainkit/blockdb"
)

var _ blockdb.Blockstore = &Store{}

// Store is a memory-based least-recently-used cache for a block store.
// Reads are served from the cache when possible; writes pass through to
// the nested store and populate the cache. Blocks are immutable, so a
// cached entry can never go stale. At worst the garbage collector
// deletes a block the cache still holds, which only delays the miss.
type Store struct {
	c *lru.Cache // cid -> []byte
	s blockdb.Blockstore
}

// New produces a Store backed by s and caching up to size blocks.
func New(s blockdb.Blockstore, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{c: c, s: s}, err
}

// Get retrieves the block named by c.
func (s *Store) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	if got, ok := s.c.Get(c.KeyString()); ok {
		return got.([]byte), nil
	}
	data, err := s.s.Get(ctx, c)
	if err != nil || data == nil {
		return nil, err
	}
	s.c.Add(c.KeyString(), data)
	return data, nil
}

// Has reports whether the block named by c is present.
func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if s.c.Contains(c.KeyString()) {
		return true, nil
	}
	return s.s.Has(ctx, c)
}

// PutKeyed stores data under c.
func (s *Store) PutKeyed(ctx context.Context, c cid.Cid, data []byte) error {
	if err := s.s.PutKeyed(ctx, c, data); err != nil {
		return err
	}
	s.c.Add(c.KeyString(), data)
	return nil
}

// PutManyKeyed stores a batch of blocks in one atomic commit.
func (s *Store) PutManyKeyed(ctx context.Context, blocks []blockdb.Block) error {
	if err := s.s.PutManyKeyed(ctx, blocks); err != nil {
		return err
	}
	for _, b := range blocks {
		s.c.Add(b.Cid.KeyString(), b.Data)
	}
	return nil
}
