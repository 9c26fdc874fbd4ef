package columnar

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/chainkit/blockdb"
	"github.com/chainkit/blockdb/kv"
)

// dereferenceOp builds the delete-if-present operation for a block.
func dereferenceOp(c cid.Cid) kv.Op {
	return kv.Dereference(uint8(blockColumn(c)), c.Bytes())
}

// LiveSet implements blockdb.GarbageCollectable.
//
// The fallback column is walked by key, since keys there are the only
// record of each block's CID. The canonical column is walked by value:
// its keys are redundant with the values' own hashes, so each hash is
// recomputed from the bytes.
//
// Iteration carries no snapshot guarantee against concurrent commits,
// so a live set computed while writers are active is best-effort; see
// the kv.Store contract.
func (s *Store) LiveSet(ctx context.Context) (blockdb.HashSet, error) {
	set := blockdb.NewHashSet()

	err := s.db.Iter(ctx, uint8(ColGraphFull), func(key, _ []byte) error {
		c, err := cid.Cast(key)
		if err != nil {
			return errors.Wrap(err, "parsing block key")
		}
		set.Add(blockdb.TruncatedHash(c.Hash()))
		return nil
	})
	if err != nil {
		return nil, &blockdb.EngineError{Column: ColGraphFull.String(), Err: err}
	}

	err = s.db.IterValues(ctx, uint8(ColGraphDagCborBlake2b256), func(value []byte) error {
		set.Add(blockdb.TruncatedHash(blockdb.SumBlake2b256(value)))
		return nil
	})
	if err != nil {
		return nil, &blockdb.EngineError{Column: ColGraphDagCborBlake2b256.String(), Err: err}
	}

	return set, nil
}

// SweepKeys implements blockdb.GarbageCollectable. Each dereference is
// its own atomic commit: a failure aborts the remainder of the sweep
// and is returned, with earlier deletions left in place. For the
// canonical column the CID is reconstructed from the recomputed hash,
// so a truncated-hash collision can at worst dereference a block whose
// full hash matches, never an unrelated one.
func (s *Store) SweepKeys(ctx context.Context, target blockdb.HashSet) error {
	err := s.db.Iter(ctx, uint8(ColGraphFull), func(key, _ []byte) error {
		c, err := cid.Cast(key)
		if err != nil {
			return errors.Wrap(err, "parsing block key")
		}
		if !target.Contains(blockdb.TruncatedHash(c.Hash())) {
			return nil
		}
		return errors.Wrap(s.db.Commit(ctx, []kv.Op{dereferenceOp(c)}), "dereferencing block")
	})
	if err != nil {
		return &blockdb.EngineError{Column: ColGraphFull.String(), Err: err}
	}

	err = s.db.IterValues(ctx, uint8(ColGraphDagCborBlake2b256), func(value []byte) error {
		mh := blockdb.SumBlake2b256(value)
		if !target.Contains(blockdb.TruncatedHash(mh)) {
			return nil
		}
		c := cid.NewCidV1(blockdb.CanonicalCodec, mh)
		return errors.Wrap(s.db.Commit(ctx, []kv.Op{dereferenceOp(c)}), "dereferencing block")
	})
	if err != nil {
		return &blockdb.EngineError{Column: ColGraphDagCborBlake2b256.String(), Err: err}
	}

	return nil
}
