// Package document defines the key-value document store every component
// persists through. Records are JSON documents grouped into named collections
// and addressed by (collection, id).
//
// Precondition: a Store has at most one writer at a time. Backends serialize
// Update calls made through the same Store value; they make no promise about
// other processes writing the same underlying storage.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Collection names.
const (
	Users       = "users"
	Students    = "students"
	Teachers    = "teachers"
	Parents     = "parents"
	Staff       = "staff"
	Courses     = "courses"
	Attendance  = "attendance"
	Assignments = "assignments"
	Grades      = "grades"
	Events      = "events"
)

// Collections lists every known collection.
var Collections = []string{Users, Students, Teachers, Parents, Staff, Courses, Attendance, Assignments, Grades, Events}

var (
	// ErrNotFound is returned by Tx.Get when no document exists under the key.
	ErrNotFound = errors.New("document: not found")

	// ErrConflict is returned by Update when the backend detected a
	// concurrent write and discarded the transaction. It is safe to retry.
	ErrConflict = errors.New("document: write conflict")

	// ErrReadOnly is returned by mutating Tx methods inside View.
	ErrReadOnly = errors.New("document: read-only transaction")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("document: store closed")
)

// Store is a transactional document store.
type Store interface {
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. If fn returns an error
	// none of its writes become visible.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the backend.
	Close() error
}

// Tx is a transaction handle. It is only valid inside the callback it was
// passed to.
type Tx interface {
	// Get returns the raw document or ErrNotFound.
	Get(collection, id string) ([]byte, error)

	// Put stores a document, replacing any previous one.
	Put(collection, id string, doc []byte) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(collection, id string) error

	// ReadCollection returns every document in the collection. A collection
	// that was never written yields an empty, non-nil map.
	ReadCollection(collection string) (map[string][]byte, error)

	// WriteCollection replaces the whole collection with docs.
	WriteCollection(collection string, docs map[string][]byte) error
}

// Get decodes the document stored under (collection, id) into a T.
func Get[T any](tx Tx, collection, id string) (T, error) {
	var v T
	raw, err := tx.Get(collection, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("document: decode %s/%s: %w", collection, id, err)
	}
	return v, nil
}

// Find is Get that reports absence as ok=false instead of an error.
func Find[T any](tx Tx, collection, id string) (T, bool, error) {
	v, err := Get[T](tx, collection, id)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Put encodes v as JSON and stores it.
func Put(tx Tx, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("document: encode %s/%s: %w", collection, id, err)
	}
	return tx.Put(collection, id, raw)
}

// Exists reports whether a document exists.
func Exists(tx Tx, collection, id string) (bool, error) {
	_, err := tx.Get(collection, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// All decodes every document of a collection, keyed by id.
func All[T any](tx Tx, collection string) (map[string]T, error) {
	raw, err := tx.ReadCollection(collection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for id, doc := range raw {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("document: decode %s/%s: %w", collection, id, err)
		}
		out[id] = v
	}
	return out, nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NextID returns the next sequential id for prefix, e.g. "CRS0003". It scans
// existing keys so gaps left by deletions are never reused.
func NextID(tx Tx, collection, prefix string) (string, error) {
	raw, err := tx.ReadCollection(collection)
	if err != nil {
		return "", err
	}
	max := 0
	for id := range raw {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1), nil
}

// ReadCollection is the whole-collection read of the legacy contract.
func ReadCollection(ctx context.Context, s Store, collection string) (map[string][]byte, error) {
	var out map[string][]byte
	err := s.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ReadCollection(collection)
		return err
	})
	return out, err
}

// WriteCollection is the atomic full overwrite of the legacy contract.
func WriteCollection(ctx context.Context, s Store, collection string, docs map[string][]byte) error {
	return s.Update(ctx, func(tx Tx) error {
		return tx.WriteCollection(collection, docs)
	})
}
