package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/storetest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) document.Store {
		return openInMemory(t)
	})
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
		return tx.Put(document.Courses, "CRS0001", []byte(`{"name":"Biology"}`))
	}))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	docs, err := document.ReadCollection(ctx, s, document.Courses)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Biology"}`, string(docs["CRS0001"]))
}

func TestPrefixDoesNotLeakAcrossCollections(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
		if err := tx.Put("staff", "1", []byte(`{}`)); err != nil {
			return err
		}
		return tx.Put("staffing", "2", []byte(`{}`))
	}))

	docs, err := document.ReadCollection(ctx, s, "staff")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
