package mem

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chainkit/blockdb/kv"
)

func newStore() *Store {
	return New(kv.Config{Columns: []kv.ColumnOptions{
		{Preimage: true},                 // content-addressed, no key index
		{Preimage: true, KeyIndex: true}, // content-addressed, indexed
		{KeyIndex: true},                 // overwrite-style
	}})
}

func TestCommitAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	if err := s.Commit(ctx, []kv.Op{
		kv.Set(0, []byte("a"), []byte("alpha")),
		kv.Set(1, []byte("b"), []byte("beta")),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, 0, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "alpha" {
		t.Errorf("got %q, want %q", got, "alpha")
	}

	// Absent key: nil result, no error.
	got, err = s.Get(ctx, 0, []byte("missing"))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %q for absent key, want nil", got)
	}

	// Columns are disjoint.
	got, err = s.Get(ctx, 1, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("key leaked into another column: %q", got)
	}
}

func TestGetSize(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	if err := s.Commit(ctx, []kv.Op{kv.Set(2, []byte("k"), []byte("12345"))}); err != nil {
		t.Fatal(err)
	}

	size, found, err := s.GetSize(ctx, 2, []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || size != 5 {
		t.Errorf("got (%d, %v), want (5, true)", size, found)
	}

	_, found, err = s.GetSize(ctx, 2, []byte("absent"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("absent key reported as present")
	}
}

func TestPreimageSuppression(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	// Re-setting a key in a preimage column is a silent no-op.
	if err := s.Commit(ctx, []kv.Op{kv.Set(0, []byte("k"), []byte("first"))}); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, []kv.Op{kv.Set(0, []byte("k"), []byte("second"))}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, 0, []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Errorf("preimage column overwritten: got %q", got)
	}

	// A non-preimage column overwrites in place.
	if err := s.Commit(ctx, []kv.Op{kv.Set(2, []byte("k"), []byte("first"))}); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, []kv.Op{kv.Set(2, []byte("k"), []byte("second"))}); err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(ctx, 2, []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("settings-style column not overwritten: got %q", got)
	}
}

func TestDereference(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	if err := s.Commit(ctx, []kv.Op{kv.Set(1, []byte("k"), []byte("v"))}); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, []kv.Op{kv.Dereference(1, []byte("k"))}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, 1, []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("dereferenced key still present: %q", got)
	}

	// Dereferencing an absent key is not an error.
	if err := s.Commit(ctx, []kv.Op{kv.Dereference(1, []byte("absent"))}); err != nil {
		t.Error(err)
	}
}

func TestCommitFailpoint(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	boom := errors.New("boom")
	s.FailNextCommit(boom)

	err := s.Commit(ctx, []kv.Op{
		kv.Set(0, []byte("a"), []byte("1")),
		kv.Set(1, []byte("b"), []byte("2")),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want failpoint error", err)
	}

	// Nothing from the failed commit is visible.
	for col := uint8(0); col <= 1; col++ {
		got, err := s.Get(ctx, col, []byte{'a' + col})
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("column %d: partial commit visible: %q", col, got)
		}
	}

	// The failpoint is one-shot.
	if err := s.Commit(ctx, []kv.Op{kv.Set(0, []byte("a"), []byte("1"))}); err != nil {
		t.Fatal(err)
	}
}

func TestIter(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	if err := s.Commit(ctx, []kv.Op{
		kv.Set(1, []byte("b"), []byte("2")),
		kv.Set(1, []byte("a"), []byte("1")),
		kv.Set(1, []byte("c"), []byte("3")),
	}); err != nil {
		t.Fatal(err)
	}

	var keys []string
	err := s.Iter(ctx, 1, func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, keys); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}

	// Column 0 has no key index.
	if err := s.Iter(ctx, 0, func(_, _ []byte) error { return nil }); !errors.Is(err, kv.ErrNoKeyIndex) {
		t.Errorf("got %v, want ErrNoKeyIndex", err)
	}

	// IterValues works regardless of indexing.
	if err := s.Commit(ctx, []kv.Op{kv.Set(0, []byte("x"), []byte("9"))}); err != nil {
		t.Fatal(err)
	}
	var values []string
	err = s.IterValues(ctx, 0, func(value []byte) error {
		values = append(values, string(value))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"9"}, values); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestIterEarlyExit(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	if err := s.Commit(ctx, []kv.Op{
		kv.Set(1, []byte("a"), []byte("1")),
		kv.Set(1, []byte("b"), []byte("2")),
	}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("stop here")
	var seen int
	err := s.Iter(ctx, 1, func(_, _ []byte) error {
		seen++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want callback error", err)
	}
	if seen != 1 {
		t.Errorf("callback ran %d times after returning an error", seen)
	}
}
