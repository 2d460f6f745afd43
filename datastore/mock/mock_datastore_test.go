/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/datastore/mock"
	"github.com/suparena/storagegateway/datastore/storetest"
	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/storagemodels"
)

type TestEntity struct {
	storagemodels.TableEntity
	Name string
}

type TaggedEntity struct {
	storagemodels.TableEntity
	Tags []string
	Meta map[string]string
}

func newEntity(pk, rk, name string) TestEntity {
	return TestEntity{
		TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: rk},
		Name:        name,
	}
}

func TestTableStoreContract(t *testing.T) {
	storetest.RunTableStore(t, func(t *testing.T) datastore.TableStore[storetest.User] {
		return mock.New[storetest.User]("users")
	})
}

func TestBlobStoreContract(t *testing.T) {
	storetest.RunBlobStore(t, mock.NewBlobStore(), "test-container")
}

func TestMockDataStore(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		mockStore := mock.New[TestEntity]("test")
		if err := mockStore.EnsureTableExists(ctx); err != nil {
			t.Fatalf("EnsureTableExists failed: %v", err)
		}

		added, err := mockStore.AddEntity(ctx, newEntity("p", "123", "Test"))
		if err != nil {
			t.Fatalf("AddEntity failed: %v", err)
		}
		if added.ETag == "" || added.Timestamp.IsZero() {
			t.Fatalf("System properties not set: %+v", added)
		}

		retrieved, err := mockStore.GetEntity(ctx, "p", "123")
		if err != nil {
			t.Fatalf("GetEntity failed: %v", err)
		}
		if retrieved.RowKey != "123" || retrieved.Name != "Test" {
			t.Fatalf("Retrieved entity mismatch: %+v", retrieved)
		}

		if err := mockStore.DeleteEntity(ctx, "p", "123"); err != nil {
			t.Fatalf("DeleteEntity failed: %v", err)
		}
		if _, err := mockStore.GetEntity(ctx, "p", "123"); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got: %v", err)
		}
		if mockStore.Count() != 0 {
			t.Fatalf("Expected empty store, got %d", mockStore.Count())
		}
	})

	t.Run("Clear", func(t *testing.T) {
		mockStore := mock.New[TestEntity]("test")
		if err := mockStore.EnsureTableExists(ctx); err != nil {
			t.Fatalf("EnsureTableExists failed: %v", err)
		}
		for _, rk := range []string{"1", "2", "3"} {
			if _, err := mockStore.AddEntity(ctx, newEntity("p", rk, "x")); err != nil {
				t.Fatalf("AddEntity failed: %v", err)
			}
		}
		if mockStore.Count() != 3 {
			t.Fatalf("Expected 3 rows, got %d", mockStore.Count())
		}

		mockStore.Clear()
		if mockStore.Count() != 0 {
			t.Fatalf("Expected empty store after Clear, got %d", mockStore.Count())
		}
		if _, err := mockStore.AddEntity(ctx, newEntity("p", "1", "x")); err != nil {
			t.Fatalf("Table should survive Clear: %v", err)
		}
	})

	t.Run("RowsDoNotShareMemory", func(t *testing.T) {
		mockStore := mock.New[TaggedEntity]("test")
		if err := mockStore.EnsureTableExists(ctx); err != nil {
			t.Fatalf("EnsureTableExists failed: %v", err)
		}

		in := TaggedEntity{
			TableEntity: storagemodels.TableEntity{PartitionKey: "p", RowKey: "1"},
			Tags:        []string{"red"},
			Meta:        map[string]string{"k": "v"},
		}
		added, err := mockStore.AddEntity(ctx, in)
		if err != nil {
			t.Fatalf("AddEntity failed: %v", err)
		}
		in.Tags[0] = "caller"
		in.Meta["k"] = "caller"
		added.Tags[0] = "result"
		added.Meta["k"] = "result"

		got, err := mockStore.GetEntity(ctx, "p", "1")
		if err != nil {
			t.Fatalf("GetEntity failed: %v", err)
		}
		if got.Tags[0] != "red" || got.Meta["k"] != "v" {
			t.Fatalf("Stored row changed through a caller's value: %+v", got)
		}
		if got.ETag != added.ETag || got.Timestamp.String() != added.Timestamp.String() {
			t.Fatalf("System properties lost in copy: %+v vs %+v", got, added)
		}
		got.Tags[0] = "reader"

		for e, err := range mockStore.QueryEntities(ctx, nil) {
			if err != nil {
				t.Fatalf("Query error: %v", err)
			}
			if e.Tags[0] != "red" {
				t.Fatalf("Stored row changed through a read: %+v", e)
			}
		}
	})

	t.Run("TableMustExist", func(t *testing.T) {
		mockStore := mock.New[TestEntity]("test")
		_, err := mockStore.AddEntity(ctx, newEntity("p", "1", "x"))
		var nf *errors.NotFoundError
		if !stderrors.As(err, &nf) || nf.Type != "table" || nf.Key != mockStore.TableName() {
			t.Fatalf("Expected table not found, got: %v", err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		mockStore := mock.New[TestEntity]("test")
		if err := mockStore.EnsureTableExists(ctx); err != nil {
			t.Fatalf("EnsureTableExists failed: %v", err)
		}

		addErr := errors.NewUnavailableError("AddEntity", context.DeadlineExceeded)
		mockStore.WithAddError(addErr)
		if _, err := mockStore.AddEntity(ctx, newEntity("p", "1", "x")); err != addErr {
			t.Fatalf("Expected add error, got: %v", err)
		}

		deleteErr := errors.NewConditionFailedError("delete", "version mismatch")
		mockStore.WithDeleteError(deleteErr)
		if err := mockStore.DeleteEntity(ctx, "p", "1"); err != deleteErr {
			t.Fatalf("Expected delete error, got: %v", err)
		}

		queryErr := errors.NewUnavailableError("QueryEntities", context.Canceled)
		mockStore.WithQueryError(queryErr)
		for _, err := range mockStore.QueryEntities(ctx, nil) {
			if err != queryErr {
				t.Fatalf("Expected query error, got: %v", err)
			}
		}
	})

	t.Run("QueryPagesAndProgress", func(t *testing.T) {
		mockStore := mock.New[TestEntity]("test")
		if err := mockStore.EnsureTableExists(ctx); err != nil {
			t.Fatalf("EnsureTableExists failed: %v", err)
		}
		for _, rk := range []string{"c", "a", "e", "b", "d"} {
			if _, err := mockStore.AddEntity(ctx, newEntity("p", rk, strings.ToUpper(rk))); err != nil {
				t.Fatalf("AddEntity failed: %v", err)
			}
		}

		var pages []storagemodels.QueryProgress
		var order []string
		for e, err := range mockStore.QueryEntities(ctx, nil,
			storagemodels.WithPageSize(2),
			storagemodels.WithProgressHandler(func(p storagemodels.QueryProgress) { pages = append(pages, p) }),
		) {
			if err != nil {
				t.Fatalf("Query error: %v", err)
			}
			order = append(order, e.RowKey)
		}

		if got := strings.Join(order, ""); got != "abcde" {
			t.Fatalf("Expected sorted rows, got %q", got)
		}
		if len(pages) != 3 || !pages[2].LastPage || pages[2].ItemsProcessed != 5 {
			t.Fatalf("Unexpected progress reports: %+v", pages)
		}
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		mockStore := mock.New[TestEntity]("test")
		if err := mockStore.EnsureTableExists(ctx); err != nil {
			t.Fatalf("EnsureTableExists failed: %v", err)
		}

		var wg sync.WaitGroup
		conflicts := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := mockStore.AddEntity(ctx, newEntity("p", "same", "x")); err != nil {
					conflicts <- err
				}
			}()
		}
		wg.Wait()
		close(conflicts)

		n := 0
		for err := range conflicts {
			if !errors.IsConflict(err) {
				t.Fatalf("Expected conflict, got: %v", err)
			}
			n++
		}
		if n != 19 {
			t.Fatalf("Expected 19 conflicts, got %d", n)
		}
	})
}

func TestMockBlobStore(t *testing.T) {
	ctx := context.Background()

	t.Run("UploadRecordsOptions", func(t *testing.T) {
		store := mock.NewBlobStore()
		if err := store.EnsureContainerExists(ctx, "docs"); err != nil {
			t.Fatalf("EnsureContainerExists failed: %v", err)
		}

		meta := map[string]string{"k": "v"}
		err := store.UploadFromStream(ctx, "docs", "a.txt", strings.NewReader("hi"), false,
			&storagemodels.UploadOptions{Metadata: meta, ContentType: "text/plain"})
		if err != nil {
			t.Fatalf("UploadFromStream failed: %v", err)
		}
		meta["k"] = "changed"

		blob, ok := store.Blob("docs", "a.txt")
		if !ok {
			t.Fatal("Blob not stored")
		}
		if string(blob.Data) != "hi" || blob.ContentType != "text/plain" || blob.Metadata["k"] != "v" {
			t.Fatalf("Unexpected blob: %+v", blob)
		}
	})

	t.Run("UploadToMissingContainer", func(t *testing.T) {
		store := mock.NewBlobStore()
		err := store.UploadFromStream(ctx, "docs", "a.txt", strings.NewReader("hi"), true, nil)
		if !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got: %v", err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		store := mock.NewBlobStore()
		downloadErr := errors.NewUnavailableError("DownloadAsText", context.DeadlineExceeded)
		store.WithDownloadError(downloadErr)
		if _, err := store.DownloadAsText(ctx, "docs", "a.txt", ""); err != downloadErr {
			t.Fatalf("Expected download error, got: %v", err)
		}
	})
}
