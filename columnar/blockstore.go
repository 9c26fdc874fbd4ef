package columnar

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/chainkit/blockdb"
	"github.com/chainkit/blockdb/kv"
)

// blockColumn is ChooseColumn plus the fail-fast guard: content ops
// must never address the settings column. ChooseColumn cannot return
// it, so reaching the panic means a broken invariant, not bad input.
func blockColumn(c cid.Cid) Column {
	col := ChooseColumn(c)
	if col == ColSettings {
		panic("invalid column for block data")
	}
	return col
}

// Get implements blockdb.Blockstore.
func (s *Store) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	return s.read(ctx, blockColumn(c), c.Bytes())
}

// Has implements blockdb.Blockstore. Both data columns are probed
// because either could hold the entry for a CID the caller guessed at.
// The canonical column goes first: most blocks live there, so the order
// directly affects performance.
func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	for _, col := range []Column{ColGraphDagCborBlake2b256, ColGraphFull} {
		found, err := s.exists(ctx, col, c.Bytes())
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// PutKeyed implements blockdb.Blockstore. The CID/bytes consistency is
// the caller's contract: the hash is not re-verified here.
func (s *Store) PutKeyed(ctx context.Context, c cid.Cid, data []byte) error {
	return s.write(ctx, blockColumn(c), c.Bytes(), data)
}

// PutManyKeyed implements blockdb.Blockstore. The batch is partitioned
// by column and applied as one commit, so visibility is all-or-nothing
// even across columns.
func (s *Store) PutManyKeyed(ctx context.Context, blocks []blockdb.Block) error {
	ops := make([]kv.Op, 0, len(blocks))
	for _, b := range blocks {
		col := blockColumn(b.Cid)
		ops = append(ops, kv.Set(uint8(col), b.Cid.Bytes(), b.Data))
	}
	return errors.Wrap(s.db.Commit(ctx, ops), "bulk write")
}
