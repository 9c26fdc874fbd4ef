package gc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chainkit/blockdb"
	"github.com/chainkit/blockdb/gc"
	"github.com/chainkit/blockdb/testutil"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t, "mem")

	blocks := testutil.RandomBlocks(t, 12)
	if err := s.PutManyKeyed(ctx, blocks); err != nil {
		t.Fatal(err)
	}

	// Keep the first half; the rest is garbage.
	keep := gc.NewKeep()
	for _, b := range blocks[:6] {
		keep.AddCid(b.Cid)
	}

	if err := gc.Run(ctx, s, keep); err != nil {
		t.Fatal(err)
	}

	for i, b := range blocks {
		found, err := s.Has(ctx, b.Cid)
		if err != nil {
			t.Fatal(err)
		}
		if want := i < 6; found != want {
			t.Errorf("Has(%s) = %v, want %v", b.Cid, found, want)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t, "mem")

	blocks := testutil.RandomBlocks(t, 4)
	if err := s.PutManyKeyed(ctx, blocks); err != nil {
		t.Fatal(err)
	}

	keep := gc.NewKeep()
	keep.AddCid(blocks[0].Cid)

	// A second run over the already-collected store changes nothing.
	for i := 0; i < 2; i++ {
		if err := gc.Run(ctx, s, keep); err != nil {
			t.Fatal(err)
		}
	}

	found, err := s.Has(ctx, blocks[0].Cid)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("kept block removed")
	}
	live, err := s.LiveSet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if live.Len() != 1 {
		t.Errorf("live set has %d entries after collection, want 1", live.Len())
	}
}

func TestCollisionRetainsBoth(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t, "mem")

	// Two blocks engineered to share a truncated hash: keeping one must
	// protect the other, since the collector cannot tell them apart.
	live := testutil.IdentityBlock(t, []byte("AAAAlive"))
	dead := testutil.IdentityBlock(t, []byte("AAAAdead"))
	if blockdb.TruncatedHash(live.Cid.Hash()) != blockdb.TruncatedHash(dead.Cid.Hash()) {
		t.Fatal("engineered collision failed")
	}
	other := testutil.IdentityBlock(t, []byte("BBBBdead"))

	if err := s.PutManyKeyed(ctx, []blockdb.Block{live, dead, other}); err != nil {
		t.Fatal(err)
	}

	keep := gc.NewKeep()
	keep.AddCid(live.Cid)
	if err := gc.Run(ctx, s, keep); err != nil {
		t.Fatal(err)
	}

	// live is kept; dead survives by collision; other is collected.
	for _, c := range []struct {
		b    blockdb.Block
		want bool
	}{
		{live, true},
		{dead, true},
		{other, false},
	} {
		found, err := s.Has(ctx, c.b.Cid)
		if err != nil {
			t.Fatal(err)
		}
		if found != c.want {
			t.Errorf("Has(%s) = %v, want %v", c.b.Cid, found, c.want)
		}
	}
}

func TestCollectorStatus(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t, "mem")

	c := gc.New(s)
	if c.Status() != gc.Idle {
		t.Errorf("new collector status = %s, want idle", c.Status())
	}
	if err := c.Run(ctx, gc.NewKeep()); err != nil {
		t.Fatal(err)
	}
	if c.Status() != gc.Idle {
		t.Errorf("status after run = %s, want idle", c.Status())
	}
}

type failingSweeper struct {
	blockdb.GarbageCollectable
	err error
}

func (f failingSweeper) SweepKeys(context.Context, blockdb.HashSet) error {
	return f.err
}

func TestRunSurfacesSweepFailure(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t, "mem")

	if err := s.PutManyKeyed(ctx, testutil.RandomBlocks(t, 2)); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("sweep failed")
	err := gc.Run(ctx, failingSweeper{GarbageCollectable: s, err: boom}, gc.NewKeep())
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want sweep error", err)
	}
}

func TestKeep(t *testing.T) {
	k := gc.NewKeep()
	if k.Len() != 0 {
		t.Errorf("new Keep has %d entries", k.Len())
	}
	if !k.Add(42) {
		t.Error("first Add not reported as new")
	}
	if k.Add(42) {
		t.Error("second Add reported as new")
	}
	if !k.Contains(42) {
		t.Error("Contains = false after Add")
	}

	b := testutil.CanonicalBlock([]byte("kept block"))
	k.AddCid(b.Cid)
	if !k.Contains(blockdb.TruncatedHash(b.Cid.Hash())) {
		t.Error("AddCid did not protect the block's hash")
	}
	if k.Len() != 2 {
		t.Errorf("Len = %d, want 2", k.Len())
	}
}
