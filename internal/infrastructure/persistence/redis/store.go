package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/school-records/internal/domain/document"
)

// Store is a document.Store on Redis hashes.
//
// Update watches every collection hash it touches and commits its buffered
// writes in a single MULTI/EXEC. If another client modified a watched hash in
// the meantime, EXEC is aborted and Update returns document.ErrConflict.
type Store struct {
	client *redis.Client
	prefix string
	writer sync.Mutex
	logger *slog.Logger
}

var _ document.Store = (*Store)(nil)

// NewStore connects using cfg.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewStoreFromClient(client, cfg.KeyPrefix, logger), nil
}

// NewStoreFromClient wraps an existing client.
func NewStoreFromClient(client *redis.Client, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "redis_store"),
	}
}

// Client returns the underlying Redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// View runs fn with reads served directly from Redis.
func (s *Store) View(ctx context.Context, fn func(tx document.Tx) error) error {
	return fn(&tx{ctx: ctx, store: s, reader: s.client, readOnly: true})
}

// Update runs fn with buffered writes committed atomically.
func (s *Store) Update(ctx context.Context, fn func(tx document.Tx) error) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		t := &tx{
			ctx:     ctx,
			store:   s,
			reader:  rtx,
			watcher: rtx,
			watched: make(map[string]bool),
			pending: make(map[string]*pendingCollection),
		}
		if err := fn(t); err != nil {
			return err
		}
		return t.commit(rtx)
	})
	if errors.Is(err, redis.TxFailedErr) {
		s.logger.Warn("redis transaction aborted by concurrent write")
		return fmt.Errorf("%w: %v", document.ErrConflict, err)
	}
	return err
}

func (s *Store) key(collection string) string {
	return CollectionKey(s.prefix, collection)
}

type pendingCollection struct {
	replaced bool
	puts     map[string][]byte
	deletes  map[string]bool
}

func newPending() *pendingCollection {
	return &pendingCollection{
		puts:    make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

type tx struct {
	ctx      context.Context
	store    *Store
	reader   redis.Cmdable
	watcher  *redis.Tx
	readOnly bool
	watched  map[string]bool
	pending  map[string]*pendingCollection
}

func (t *tx) watch(collection string) error {
	if t.watcher == nil || t.watched[collection] {
		return nil
	}
	if err := t.watcher.Watch(t.ctx, t.store.key(collection)).Err(); err != nil {
		return fmt.Errorf("redis: watch %s: %w", collection, err)
	}
	t.watched[collection] = true
	return nil
}

func (t *tx) Get(collection, id string) ([]byte, error) {
	if p, ok := t.pending[collection]; ok {
		if doc, ok := p.puts[id]; ok {
			return append([]byte(nil), doc...), nil
		}
		if p.deletes[id] || p.replaced {
			return nil, document.ErrNotFound
		}
	}
	if err := t.watch(collection); err != nil {
		return nil, err
	}
	doc, err := t.reader.HGet(t.ctx, t.store.key(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (t *tx) Put(collection, id string, doc []byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	if err := t.watch(collection); err != nil {
		return err
	}
	p := t.pendingFor(collection)
	delete(p.deletes, id)
	p.puts[id] = append([]byte(nil), doc...)
	return nil
}

func (t *tx) Delete(collection, id string) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	if err := t.watch(collection); err != nil {
		return err
	}
	p := t.pendingFor(collection)
	delete(p.puts, id)
	if !p.replaced {
		p.deletes[id] = true
	}
	return nil
}

func (t *tx) ReadCollection(collection string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	p := t.pending[collection]

	if p == nil || !p.replaced {
		if err := t.watch(collection); err != nil {
			return nil, err
		}
		stored, err := t.reader.HGetAll(t.ctx, t.store.key(collection)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: read %s: %w", collection, err)
		}
		for id, doc := range stored {
			out[id] = []byte(doc)
		}
	}
	if p != nil {
		for id := range p.deletes {
			delete(out, id)
		}
		for id, doc := range p.puts {
			out[id] = append([]byte(nil), doc...)
		}
	}
	return out, nil
}

func (t *tx) WriteCollection(collection string, docs map[string][]byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	if err := t.watch(collection); err != nil {
		return err
	}
	p := newPending()
	p.replaced = true
	for id, doc := range docs {
		p.puts[id] = append([]byte(nil), doc...)
	}
	t.pending[collection] = p
	return nil
}

func (t *tx) pendingFor(collection string) *pendingCollection {
	p, ok := t.pending[collection]
	if !ok {
		p = newPending()
		t.pending[collection] = p
	}
	return p
}

func (t *tx) commit(rtx *redis.Tx) error {
	if len(t.pending) == 0 {
		return nil
	}
	_, err := rtx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		for collection, p := range t.pending {
			key := t.store.key(collection)
			if p.replaced {
				pipe.Del(t.ctx, key)
			} else if len(p.deletes) > 0 {
				fields := make([]string, 0, len(p.deletes))
				for id := range p.deletes {
					fields = append(fields, id)
				}
				pipe.HDel(t.ctx, key, fields...)
			}
			if len(p.puts) > 0 {
				values := make(map[string]interface{}, len(p.puts))
				for id, doc := range p.puts {
					values[id] = doc
				}
				pipe.HSet(t.ctx, key, values)
			}
		}
		return nil
	})
	return err
}
