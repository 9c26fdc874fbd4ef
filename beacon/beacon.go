// Package beacon defines the randomness-beacon collaborator at its
// interface boundary: an opaque (round, data) record with a
// verification predicate. The block store has no dependency on beacon
// semantics beyond persisting entries as settings bytes.
package beacon

import (
	"context"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/chainkit/blockdb"
)

// Entry is the result of getting a round from a beacon. Data is the
// signature of H(prev_round, prev_round.data, round).
type Entry struct {
	_ struct{} `cbor:",toarray"`

	Round uint64
	Data  []byte
}

// NewEntry builds an Entry.
func NewEntry(round uint64, data []byte) Entry {
	return Entry{Round: round, Data: data}
}

// MarshalBinary encodes the entry as a CBOR (round, data) tuple.
func (e Entry) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(e)
}

// UnmarshalBinary decodes a CBOR (round, data) tuple.
func (e *Entry) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, e)
}

// Beacon produces and verifies entries.
type Beacon interface {
	// Entry returns the entry for a round.
	Entry(ctx context.Context, round uint64) (Entry, error)

	// VerifyEntry checks curr against its predecessor prev.
	VerifyEntry(curr, prev Entry) (bool, error)
}

// latestKey is the settings key under which SaveLatest persists the
// most recently verified entry.
const latestKey = "beacon/latest"

// SaveLatest persists e in the settings namespace.
func SaveLatest(ctx context.Context, s blockdb.SettingsStore, e Entry) error {
	data, err := e.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding beacon entry")
	}
	return s.WriteBin(ctx, latestKey, data)
}

// Latest reads back the entry persisted by SaveLatest.
// ok is false when none has been saved.
func Latest(ctx context.Context, s blockdb.SettingsStore) (Entry, bool, error) {
	data, err := s.ReadBin(ctx, latestKey)
	if err != nil || data == nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := e.UnmarshalBinary(data); err != nil {
		return Entry{}, false, errors.Wrap(err, "decoding beacon entry")
	}
	return e, true, nil
}
