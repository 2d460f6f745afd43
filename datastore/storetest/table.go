/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/storagemodels"
)

// User is the entity the table contract is written against.
type User struct {
	storagemodels.TableEntity
	Name  string `dynamodbav:"Name" json:"Name"`
	Email string `dynamodbav:"Email" json:"Email"`
	Level int    `dynamodbav:"Level" json:"Level"`
}

// NewUser returns a user in the "Users" partition with a random row key.
func NewUser(name string) User {
	return User{
		TableEntity: storagemodels.TableEntity{PartitionKey: "Users", RowKey: uuid.NewString()},
		Name:        name,
		Email:       name + "@example.com",
	}
}

// RunTableStore exercises the TableStore contract. newStore must return a
// fresh store each time it is called, whose table has not been created yet.
func RunTableStore(t *testing.T, newStore func(t *testing.T) datastore.TableStore[User]) {
	ctx := context.Background()

	t.Run("ensure table is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))
		require.NoError(t, store.EnsureTableExists(ctx))
	})

	t.Run("missing table is not found", func(t *testing.T) {
		store := newStore(t)
		u := NewUser("nobody")
		u.ETag = storagemodels.ETagAny

		_, addErr := store.AddEntity(ctx, u)
		_, getErr := store.GetEntity(ctx, u.PartitionKey, u.RowKey)
		_, updateErr := store.UpdateEntity(ctx, u, storagemodels.UpdateReplace)
		var queryErr error
		for _, err := range store.QueryEntities(ctx, nil) {
			queryErr = err
		}
		for _, err := range []error{addErr, getErr, updateErr, queryErr} {
			var nf *errors.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, "table", nf.Type)
			assert.Equal(t, store.TableName(), nf.Key)
		}
		assert.NoError(t, store.DeleteEntity(ctx, u.PartitionKey, u.RowKey))
	})

	t.Run("add then get", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))

		in := NewUser("alice")
		in.Level = 3
		added, err := store.AddEntity(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, in.ETag)
		assert.NotEmpty(t, added.ETag)
		assert.False(t, added.Timestamp.IsZero())

		got, err := store.GetEntity(ctx, in.PartitionKey, in.RowKey)
		require.NoError(t, err)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Email, got.Email)
		assert.Equal(t, in.Level, got.Level)
		assert.Equal(t, added.ETag, got.ETag)
	})

	t.Run("duplicate is conflict", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))

		u := NewUser("bob")
		_, err := store.AddEntity(ctx, u)
		require.NoError(t, err)
		_, err = store.AddEntity(ctx, u)
		assert.True(t, errors.IsConflict(err), "got %v", err)
	})

	t.Run("get missing is not found", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))
		_, err := store.GetEntity(ctx, "Users", "missing")
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})

	t.Run("invalid keys", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))
		u := NewUser("x")
		u.RowKey = "a#b"
		_, err := store.AddEntity(ctx, u)
		assert.True(t, errors.IsValidationError(err), "got %v", err)
	})

	t.Run("query yields every insert", func(t *testing.T) {
		for _, n := range []int{0, 1, 50} {
			t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.EnsureTableExists(ctx))
				want := make(map[string]bool, n)
				for i := 0; i < n; i++ {
					u := NewUser(fmt.Sprintf("u%d", i))
					_, err := store.AddEntity(ctx, u)
					require.NoError(t, err)
					want[u.RowKey] = true
				}

				got := 0
				for u, err := range store.QueryEntities(ctx, nil, storagemodels.WithPageSize(7)) {
					require.NoError(t, err)
					assert.True(t, want[u.RowKey])
					got++
				}
				assert.Equal(t, n, got)
			})
		}
	})

	t.Run("query filters", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))
		for i := 0; i < 6; i++ {
			u := NewUser(fmt.Sprintf("u%d", i))
			u.Level = i % 3
			if i >= 4 {
				u.PartitionKey = "Admins"
			}
			_, err := store.AddEntity(ctx, u)
			require.NoError(t, err)
		}

		count := func(f *storagemodels.QueryFilter) int {
			n := 0
			for _, err := range store.QueryEntities(ctx, f) {
				require.NoError(t, err)
				n++
			}
			return n
		}
		assert.Equal(t, 4, count(&storagemodels.QueryFilter{PartitionKey: "Users"}))
		assert.Equal(t, 2, count(&storagemodels.QueryFilter{PartitionKey: "Admins"}))
		assert.Equal(t, 2, count(&storagemodels.QueryFilter{Attributes: map[string]any{"Level": 1}}))
		assert.Equal(t, 1, count(&storagemodels.QueryFilter{PartitionKey: "Users", Attributes: map[string]any{"Level": 0, "Name": "u3"}}))
		assert.Equal(t, 0, count(&storagemodels.QueryFilter{PartitionKey: "Nobody"}))
	})

	t.Run("update honours etag", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))

		added, err := store.AddEntity(ctx, NewUser("carol"))
		require.NoError(t, err)

		next := *added
		next.Level = 9
		updated, err := store.UpdateEntity(ctx, next, storagemodels.UpdateReplace)
		require.NoError(t, err)
		assert.NotEqual(t, added.ETag, updated.ETag)

		_, err = store.UpdateEntity(ctx, *added, storagemodels.UpdateReplace)
		assert.True(t, errors.IsConflict(err), "stale etag: got %v", err)

		forced := *added
		forced.ETag = storagemodels.ETagAny
		forced.Name = "caroline"
		_, err = store.UpdateEntity(ctx, forced, storagemodels.UpdateMerge)
		require.NoError(t, err)

		got, err := store.GetEntity(ctx, added.PartitionKey, added.RowKey)
		require.NoError(t, err)
		assert.Equal(t, "caroline", got.Name)

		missing := NewUser("nobody")
		missing.ETag = storagemodels.ETagAny
		_, err = store.UpdateEntity(ctx, missing, storagemodels.UpdateReplace)
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))

		u := NewUser("dave")
		_, err := store.AddEntity(ctx, u)
		require.NoError(t, err)
		require.NoError(t, store.DeleteEntity(ctx, u.PartitionKey, u.RowKey))
		require.NoError(t, store.DeleteEntity(ctx, u.PartitionKey, u.RowKey))

		_, err = store.GetEntity(ctx, u.PartitionKey, u.RowKey)
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})

	t.Run("single user scenario", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.EnsureTableExists(ctx))

		u := User{
			TableEntity: storagemodels.TableEntity{PartitionKey: "Users", RowKey: uuid.NewString()},
			Name:        "John Doe",
			Email:       "john.doe@example.com",
		}
		_, err := store.AddEntity(ctx, u)
		require.NoError(t, err)

		var matches []*User
		for e, err := range store.QueryEntities(ctx, &storagemodels.QueryFilter{PartitionKey: "Users"}) {
			require.NoError(t, err)
			matches = append(matches, e)
		}
		require.Len(t, matches, 1)
		assert.Equal(t, u.RowKey, matches[0].RowKey)
		assert.Equal(t, "John Doe", matches[0].Name)
	})
}
