// Package memory is an in-process Repository used for development, tests
// and the memory backend.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"vetrina/internal/core"
	"vetrina/internal/storage"
)

type Store[T core.Record] struct {
	mu    sync.Mutex
	kind  core.Kind
	items []T
}

// New returns a store holding seed in the given order. Seed records are
// not validated.
func New[T core.Record](kind core.Kind, seed ...T) *Store[T] {
	return &Store[T]{kind: kind, items: append([]T(nil), seed...)}
}

// NewFromFiles seeds the store from <base>/<kind>.json when present. A
// missing file yields an empty store.
func NewFromFiles[T core.Record](base string, kind core.Kind) (*Store[T], error) {
	seed, err := readSeed[T](filepath.Join(base, string(kind)+".json"))
	if err != nil {
		return nil, err
	}
	return New(kind, seed...), nil
}

func (s *Store[T]) Create(_ context.Context, rec T) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(rec.Key()) >= 0 {
		return fmt.Errorf("%w: %s/%s", storage.ErrConflict, s.kind, rec.Key())
	}
	s.items = append(s.items, rec)
	return nil
}

func (s *Store[T]) Update(_ context.Context, rec T) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(rec.Key())
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, s.kind, rec.Key())
	}
	s.items[i] = rec
	return nil
}

func (s *Store[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, s.kind, id)
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return nil
}

func (s *Store[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %s/%s", storage.ErrNotFound, s.kind, id)
}

// List returns a copy; callers may reorder it freely.
func (s *Store[T]) List(_ context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T{}, s.items...), nil
}

func (s *Store[T]) indexOf(id string) int {
	for i, it := range s.items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

func readSeed[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return out, nil
}
