package beacon

import (
	"bytes"
	"context"
	"testing"
)

func TestMockEntryDeterministic(t *testing.T) {
	ctx := context.Background()
	var b Mock

	e1, err := b.Entry(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := b.Entry(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if e1.Round != e2.Round || !bytes.Equal(e1.Data, e2.Data) {
		t.Errorf("entries differ: %v, %v", e1, e2)
	}
	if e1.Round != 7 {
		t.Errorf("round = %d, want 7", e1.Round)
	}
	if len(e1.Data) != 32 {
		t.Errorf("data length = %d, want 32", len(e1.Data))
	}

	e3, err := b.Entry(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(e1.Data, e3.Data) {
		t.Error("distinct rounds produced equal data")
	}
}

func TestMockVerifyEntry(t *testing.T) {
	ctx := context.Background()
	var b Mock

	prev, err := b.Entry(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}

	// The mock accepts an entry whose data matches its predecessor's
	// round.
	curr := NewEntry(4, entryForRound(3).Data)
	ok, err := b.VerifyEntry(curr, prev)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("valid entry rejected")
	}

	bogus := NewEntry(4, []byte("not a signature"))
	ok, err = b.VerifyEntry(bogus, prev)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("bogus entry accepted")
	}
}

func TestEntryBinaryRoundTrip(t *testing.T) {
	e := NewEntry(42, []byte{1, 2, 3})

	data, err := e.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var got Entry
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if got.Round != e.Round || !bytes.Equal(got.Data, e.Data) {
		t.Errorf("round trip mismatch: got %v, want %v", got, e)
	}
}
