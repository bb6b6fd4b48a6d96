// Package storetest holds the behavioural checks every document.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/document"
)

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T) document.Store

// Run executes the contract suite against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("MissingCollectionIsEmpty", func(t *testing.T) {
		s := newStore(t)
		docs, err := document.ReadCollection(context.Background(), s, document.Courses)
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		err := s.View(context.Background(), func(tx document.Tx) error {
			_, err := tx.Get(document.Users, "nobody")
			return err
		})
		assert.True(t, errors.Is(err, document.ErrNotFound))
	})

	t.Run("PutGetDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
			return tx.Put(document.Courses, "CRS0001", []byte(`{"name":"Math"}`))
		}))

		require.NoError(t, s.View(ctx, func(tx document.Tx) error {
			doc, err := tx.Get(document.Courses, "CRS0001")
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"Math"}`, string(doc))
			return nil
		}))

		require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
			return tx.Delete(document.Courses, "CRS0001")
		}))
		ok := true
		require.NoError(t, s.View(ctx, func(tx document.Tx) error {
			var err error
			ok, err = document.Exists(tx, document.Courses, "CRS0001")
			return err
		}))
		assert.False(t, ok)
	})

	t.Run("ReadYourWritesInsideUpdate", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(context.Background(), func(tx document.Tx) error {
			require.NoError(t, tx.Put(document.Students, "s1", []byte(`{"id":"s1"}`)))
			doc, err := tx.Get(document.Students, "s1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"s1"}`, string(doc))

			all, err := tx.ReadCollection(document.Students)
			require.NoError(t, err)
			assert.Len(t, all, 1)
			return nil
		}))
	})

	t.Run("FailedUpdateLeavesNoTrace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
			return tx.Put(document.Students, "s1", []byte(`{"courses":[]}`))
		}))

		boom := errors.New("boom")
		err := s.Update(ctx, func(tx document.Tx) error {
			if err := tx.Put(document.Students, "s1", []byte(`{"courses":["c1"]}`)); err != nil {
				return err
			}
			if err := tx.Put(document.Courses, "c1", []byte(`{"students":["s1"]}`)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		require.NoError(t, s.View(ctx, func(tx document.Tx) error {
			doc, err := tx.Get(document.Students, "s1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"courses":[]}`, string(doc))
			_, err = tx.Get(document.Courses, "c1")
			assert.ErrorIs(t, err, document.ErrNotFound)
			return nil
		}))
	})

	t.Run("WriteCollectionReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, document.WriteCollection(ctx, s, document.Grades, map[string][]byte{
			"GRD0001": []byte(`{"points":1}`),
			"GRD0002": []byte(`{"points":2}`),
		}))
		require.NoError(t, document.WriteCollection(ctx, s, document.Grades, map[string][]byte{
			"GRD0003": []byte(`{"points":3}`),
		}))

		docs, err := document.ReadCollection(ctx, s, document.Grades)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.Contains(t, docs, "GRD0003")
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
			if err := tx.Put(document.Teachers, "x", []byte(`{}`)); err != nil {
				return err
			}
			return tx.Put(document.Parents, "x", []byte(`{"children":[]}`))
		}))
		docs, err := document.ReadCollection(ctx, s, document.Teachers)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(docs["x"]))
	})

	t.Run("ViewIsReadOnly", func(t *testing.T) {
		s := newStore(t)
		err := s.View(context.Background(), func(tx document.Tx) error {
			return tx.Put(document.Users, "u", []byte(`{}`))
		})
		assert.Error(t, err)
	})

	t.Run("NextID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx document.Tx) error {
			if err := tx.Put(document.Courses, "CRS0001", []byte(`{}`)); err != nil {
				return err
			}
			return tx.Put(document.Courses, "CRS0007", []byte(`{}`))
		}))
		require.NoError(t, s.View(ctx, func(tx document.Tx) error {
			id, err := document.NextID(tx, document.Courses, "CRS")
			require.NoError(t, err)
			assert.Equal(t, "CRS0008", id)
			return nil
		}))
	})
}
