package columnar

import (
	"github.com/ipfs/go-cid"

	"github.com/chainkit/blockdb"
	"github.com/chainkit/blockdb/kv"
)

// Column is a storage partition. The set of columns and their
// configuration are fixed at open time and never migrated.
type Column uint8

const (
	// ColGraphDagCborBlake2b256 stores blocks whose CID uses the
	// canonical codec and hash function, most blocks in practice. A
	// block's CID here is recomputable from its bytes, so the column
	// carries no key index.
	ColGraphDagCborBlake2b256 Column = iota

	// ColGraphFull stores every other block. It keeps a key index so
	// CIDs can be listed, since they cannot be recomputed from value
	// bytes without knowing the original hash function. The long tail
	// lands here, so the indexing cost is negligible.
	ColGraphFull

	// ColSettings stores string-keyed settings. Preimage checking is
	// disabled for this column only, so entries can be overwritten.
	ColSettings

	numColumns
)

func (c Column) String() string {
	switch c {
	case ColGraphDagCborBlake2b256:
		return "GraphDagCborBlake2b256"
	case ColGraphFull:
		return "GraphFull"
	case ColSettings:
		return "Settings"
	}
	return "Unknown"
}

// ChooseColumn returns the column for a block CID. It never returns
// ColSettings: that column is reachable only through the settings API.
func ChooseColumn(c cid.Cid) Column {
	p := c.Prefix()
	if p.Codec == blockdb.CanonicalCodec && p.MhType == blockdb.CanonicalHash {
		return ColGraphDagCborBlake2b256
	}
	return ColGraphFull
}

func columnOptions(compression kv.Compression) []kv.ColumnOptions {
	opts := make([]kv.ColumnOptions, numColumns)
	for col := Column(0); col < numColumns; col++ {
		switch col {
		case ColGraphDagCborBlake2b256:
			opts[col] = kv.ColumnOptions{
				Preimage:             true,
				Compression:          compression,
				CompressionThreshold: 128,
			}
		case ColGraphFull:
			opts[col] = kv.ColumnOptions{
				Preimage: true,
				// Needed for key retrieval.
				KeyIndex:    true,
				Compression: compression,
			}
		case ColSettings:
			opts[col] = kv.ColumnOptions{
				// Preimage stays off so entries can be overwritten.
				Preimage:    false,
				KeyIndex:    true,
				Compression: compression,
			}
		}
	}
	return opts
}
