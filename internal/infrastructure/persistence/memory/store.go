// Package memory provides an in-process document.Store. Each Update works on a
// cloned copy of the state that replaces the live state only when the
// callback succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/school-records/internal/domain/document"
)

type state map[string]map[string][]byte

func (s state) clone() state {
	out := make(state, len(s))
	for name, coll := range s {
		c := make(map[string][]byte, len(coll))
		for id, doc := range coll {
			c[id] = append([]byte(nil), doc...)
		}
		out[name] = c
	}
	return out
}

// Store is a document.Store held entirely in memory.
type Store struct {
	mu     sync.RWMutex
	state  state
	closed bool
}

var _ document.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: make(state)}
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(tx document.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return document.ErrClosed
	}
	return fn(&tx{state: s.state, readOnly: true})
}

// Update executes fn within a transactional copy of the store state.
func (s *Store) Update(_ context.Context, fn func(tx document.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return document.ErrClosed
	}

	t := &tx{state: s.state.clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

// Close drops the state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = nil
	return nil
}

type tx struct {
	state    state
	readOnly bool
}

func (t *tx) Get(collection, id string) ([]byte, error) {
	doc, ok := t.state[collection][id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

func (t *tx) Put(collection, id string, doc []byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	coll, ok := t.state[collection]
	if !ok {
		coll = make(map[string][]byte)
		t.state[collection] = coll
	}
	coll[id] = append([]byte(nil), doc...)
	return nil
}

func (t *tx) Delete(collection, id string) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	delete(t.state[collection], id)
	return nil
}

func (t *tx) ReadCollection(collection string) (map[string][]byte, error) {
	coll := t.state[collection]
	out := make(map[string][]byte, len(coll))
	for id, doc := range coll {
		out[id] = append([]byte(nil), doc...)
	}
	return out, nil
}

func (t *tx) WriteCollection(collection string, docs map[string][]byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	coll := make(map[string][]byte, len(docs))
	for id, doc := range docs {
		coll[id] = append([]byte(nil), doc...)
	}
	t.state[collection] = coll
	return nil
}
