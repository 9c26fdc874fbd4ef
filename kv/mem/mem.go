// Package mem implements an in-memory kv engine.
// It is primarily for tests: it honors the full column contract,
// including preimage suppression and key-index gating, and offers a
// commit failpoint for exercising atomicity guarantees.
package mem

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/chainkit/blockdb/kv"
)

var _ kv.Store = &Store{}

// Store is an in-memory kv engine.
type Store struct {
	mu      sync.Mutex
	cols    []kv.ColumnOptions
	data    []map[string][]byte
	nextErr error
}

// New produces an empty Store with the column layout of cfg.
func New(cfg kv.Config) *Store {
	data := make([]map[string][]byte, len(cfg.Columns))
	for i := range data {
		data[i] = make(map[string][]byte)
	}
	return &Store{cols: cfg.Columns, data: data}
}

func init() {
	kv.Register("mem", func(_ context.Context, cfg kv.Config) (kv.Store, error) {
		return New(cfg), nil
	})
}

// FailNextCommit makes the next Commit call return err without applying
// any of its operations.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErr = err
}

func (s *Store) checkCol(col uint8) error {
	if int(col) >= len(s.cols) {
		return fmt.Errorf("no such column %d", col)
	}
	return nil
}

func (s *Store) Get(_ context.Context, col uint8, key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCol(col); err != nil {
		return nil, err
	}
	v, ok := s.data[col][string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) GetSize(_ context.Context, col uint8, key []byte) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCol(col); err != nil {
		return 0, false, err
	}
	v, ok := s.data[col][string(key)]
	if !ok {
		return 0, false, nil
	}
	return int64(len(v)), true, nil
}

func (s *Store) Commit(_ context.Context, ops []kv.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextErr != nil {
		err := s.nextErr
		s.nextErr = nil
		return err
	}

	for _, op := range ops {
		if err := s.checkCol(op.Col); err != nil {
			return err
		}
	}

	for _, op := range ops {
		m := s.data[op.Col]
		switch op.Kind {
		case kv.OpSet:
			if s.cols[op.Col].Preimage {
				if _, ok := m[string(op.Key)]; ok {
					continue
				}
			}
			v := make([]byte, len(op.Value))
			copy(v, op.Value)
			m[string(op.Key)] = v
		case kv.OpDereference:
			delete(m, string(op.Key))
		}
	}
	return nil
}

// snapshotKeys returns the column's keys in sorted order.
// Caller must obtain a lock.
func (s *Store) snapshotKeys(col uint8) []string {
	keys := make([]string, 0, len(s.data[col]))
	for k := range s.data[col] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Iter(_ context.Context, col uint8, fn func(key, value []byte) error) error {
	s.mu.Lock()
	if err := s.checkCol(col); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.cols[col].KeyIndex {
		s.mu.Unlock()
		return kv.ErrNoKeyIndex
	}
	keys := s.snapshotKeys(col)
	m := s.data[col]
	s.mu.Unlock()

	for _, k := range keys {
		s.mu.Lock()
		v, ok := m[k]
		s.mu.Unlock()
		if !ok {
			continue // deleted since the snapshot
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) IterValues(_ context.Context, col uint8, fn func(value []byte) error) error {
	s.mu.Lock()
	if err := s.checkCol(col); err != nil {
		s.mu.Unlock()
		return err
	}
	keys := s.snapshotKeys(col)
	m := s.data[col]
	s.mu.Unlock()

	for _, k := range keys {
		s.mu.Lock()
		v, ok := m[k]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stats(_ context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for col := range s.data {
		if _, err := fmt.Fprintf(w, "column %d: %d entries\n", col, len(s.data[col])); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
