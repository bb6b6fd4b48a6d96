package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/school-records/internal/domain/document"
)

const (
	selectDocumentSQL   = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	selectCollectionSQL = `SELECT id, data FROM documents WHERE collection = $1`
	upsertDocumentSQL   = `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	deleteDocumentSQL   = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	deleteCollectionSQL = `DELETE FROM documents WHERE collection = $1`
)

// Store is a document.Store over the documents table.
type Store struct {
	conn   *Connection
	writer sync.Mutex
	logger *slog.Logger
}

var _ document.Store = (*Store)(nil)

// NewStore wraps an open connection. The schema must already be migrated.
func NewStore(conn *Connection, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger.With("component", "postgres_store")}
}

// View runs fn inside a read-only repeatable-read transaction.
func (s *Store) View(ctx context.Context, fn func(tx document.Tx) error) error {
	return s.conn.WithTx(ctx, readTx, func(ptx pgx.Tx) error {
		return fn(&tx{ctx: ctx, q: ptx, readOnly: true})
	})
}

// Update runs fn inside a serializable transaction.
func (s *Store) Update(ctx context.Context, fn func(tx document.Tx) error) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	err := s.conn.WithTx(ctx, writeTx, func(ptx pgx.Tx) error {
		return fn(&tx{ctx: ctx, q: ptx})
	})
	if IsSerializationFailure(err) {
		s.logger.Warn("serializable transaction rolled back", "error", err)
		return fmt.Errorf("%w: %v", document.ErrConflict, err)
	}
	return err
}

// Close closes the pool.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}

type tx struct {
	ctx      context.Context
	q        Querier
	readOnly bool
}

func (t *tx) Get(collection, id string) ([]byte, error) {
	var data []byte
	err := t.q.QueryRow(t.ctx, selectDocumentSQL, collection, id).Scan(&data)
	if IsNoRows(err) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s/%s: %w", collection, id, err)
	}
	return data, nil
}

func (t *tx) Put(collection, id string, doc []byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	if _, err := t.q.Exec(t.ctx, upsertDocumentSQL, collection, id, string(doc)); err != nil {
		return fmt.Errorf("postgres: put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (t *tx) Delete(collection, id string) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	if _, err := t.q.Exec(t.ctx, deleteDocumentSQL, collection, id); err != nil {
		return fmt.Errorf("postgres: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (t *tx) ReadCollection(collection string) (map[string][]byte, error) {
	rows, err := t.q.Query(t.ctx, selectCollectionSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: read %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", collection, err)
		}
		out[id] = data
	}
	return out, rows.Err()
}

func (t *tx) WriteCollection(collection string, docs map[string][]byte) error {
	if t.readOnly {
		return document.ErrReadOnly
	}
	if _, err := t.q.Exec(t.ctx, deleteCollectionSQL, collection); err != nil {
		return fmt.Errorf("postgres: clear %s: %w", collection, err)
	}
	for id, doc := range docs {
		if err := t.Put(collection, id, doc); err != nil {
			return err
		}
	}
	return nil
}
