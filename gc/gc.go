// Package gc drives approximate mark-and-sweep garbage collection over
// a block store.
//
// The store supplies the liveness universe: the truncated hash of every
// block physically present. The caller supplies a Keep: the truncated
// hashes of blocks its own reachability trace still references. Run
// sweeps the difference. Truncated hashes collide; a collision retains
// a dead block (harmless, caught by a later run once the colliding live
// block is gone) but never removes a live one, because a kept hash
// protects every block that truncates to it.
//
// No collection state persists between runs: an interrupted run leaves
// nothing behind, and the next run recomputes the universe from
// scratch.
package gc

import (
	"context"
	"sync/atomic"

	"github.com/chainkit/blockdb"
)

// Status is a collection phase, for diagnostics.
type Status int32

const (
	Idle Status = iota
	ComputingLiveSet
	Sweeping
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case ComputingLiveSet:
		return "computing live set"
	case Sweeping:
		return "sweeping"
	}
	return "unknown"
}

// Collector runs collections against a single store.
// Methods are safe for concurrent use, but only one Run should be
// active at a time; the store's iteration visibility caveat applies to
// any writes concurrent with a run.
type Collector struct {
	s      blockdb.GarbageCollectable
	status atomic.Int32
}

// New produces a Collector for s.
func New(s blockdb.GarbageCollectable) *Collector {
	return &Collector{s: s}
}

// Status reports the current phase.
func (c *Collector) Status() Status {
	return Status(c.status.Load())
}

// Run performs one collection: compute the liveness universe, subtract
// keep, sweep the rest. A sweep failure aborts the run with deletions
// applied so far left in place; re-running is always safe.
func (c *Collector) Run(ctx context.Context, keep *Keep) error {
	defer c.status.Store(int32(Idle))

	c.status.Store(int32(ComputingLiveSet))
	live, err := c.s.LiveSet(ctx)
	if err != nil {
		return err
	}

	target := blockdb.NewHashSet()
	for h := range live {
		if !keep.Contains(h) {
			target.Add(h)
		}
	}
	if target.Len() == 0 {
		return nil
	}

	c.status.Store(int32(Sweeping))
	return c.s.SweepKeys(ctx, target)
}

// Run is a one-shot convenience over a throwaway Collector.
func Run(ctx context.Context, s blockdb.GarbageCollectable, keep *Keep) error {
	return New(s).Run(ctx, keep)
}
