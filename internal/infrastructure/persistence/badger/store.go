// Package badger implements document.Store on an embedded Badger database.
// Keys are laid out as "<collection>/<id>".
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/alem-hub/school-records/internal/domain/document"
)

// Config configures the Badger backend.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM; used by tests and dry runs.
	InMemory bool

	// SyncWrites fsyncs each commit.
	SyncWrites bool

	Logger *slog.Logger
}

// DefaultConfig returns defaults for a local data directory.
func DefaultConfig() Config {
	return Config{
		Path:       "./data",
		SyncWrites: true,
	}
}

// Store is a document.Store backed by Badger.
type Store struct {
	db     *badgerdb.DB
	writer sync.Mutex
	logger *slog.Logger
}

var _ document.Store = (*Store)(nil)

// Open opens (or creates) the database.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger_store")

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", cfg.Path, err)
	}
	logger.Debug("badger store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db, logger: logger}, nil
}

// View runs fn inside a read-only Badger transaction.
func (s *Store) View(ctx context.Context, fn func(tx document.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badgerdb.Txn) error {
		return fn(&tx{txn: txn, readOnly: true})
	})
}

// Update runs fn inside a read-write Badger transaction. Writes are buffered
// by Badger and applied on commit, so a failing fn discards all of them.
func (s *Store) Update(ctx context.Context, fn func(tx document.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writer.Lock()
	defer s.writer.Unlock()

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return fn(&tx{txn: txn})
	})
	if errors.Is(err, badgerdb.ErrConflict) {
		s.logger.Warn("badger transaction conflict", "error", err)
		return fmt.Errorf("%w: %v", document.ErrConflict, err)
	}
	return err
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func prefix(collection string) []byte {
	return []byte(collection + "/")
}

type tx struct {
	txn      *badgerdb.Txn
	readOnly bool
}

func (t *tx) Get(collection, id string) ([]byte, error) {
	item, err := t.txn.Get(key(collection, id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger: get %s/%s: %w", collection, id, err)
	}
	return item.ValueCopy(nil)
}

func (t *tx) Put(collection, id string, doc []byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	return t.txn.Set(key(collection, id), append([]byte(nil), doc...))
}

func (t *tx) Delete(collection, id string) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	return t.txn.Delete(key(collection, id))
}

func (t *tx) ReadCollection(collection string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	p := prefix(collection)

	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = p
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("badger: read %s: %w", collection, err)
		}
		out[strings.TrimPrefix(string(item.Key()), string(p))] = val
	}
	return out, nil
}

func (t *tx) WriteCollection(collection string, docs map[string][]byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	existing, err := t.ReadCollection(collection)
	if err != nil {
		return err
	}
	for id := range existing {
		if _, keep := docs[id]; keep {
			continue
		}
		if err := t.txn.Delete(key(collection, id)); err != nil {
			return err
		}
	}
	for id, doc := range docs {
		if err := t.Put(collection, id, doc); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger routes Badger's internal logging into slog.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
