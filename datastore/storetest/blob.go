/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/storagemodels"
)

// RunBlobStore exercises the BlobStore contract against store. container must
// be a valid container name that the test is free to create and fill.
func RunBlobStore(t *testing.T, store datastore.BlobStore, container string) {
	ctx := context.Background()

	require.NoError(t, store.EnsureContainerExists(ctx, container))
	require.NoError(t, store.EnsureContainerExists(ctx, container), "second ensure must be a no-op")

	t.Run("round trip", func(t *testing.T) {
		cases := map[string]string{
			"empty.txt":     "",
			"ascii.txt":     "Hello from Blob Storage!",
			"multibyte.txt": "héllo wörld, 你好, 🌍",
			"lines.txt":     strings.Repeat("line\n", 1000),
		}
		for name, content := range cases {
			require.NoError(t, store.UploadFromStream(ctx, container, name, strings.NewReader(content), true, nil), name)
			got, err := store.DownloadAsText(ctx, container, name, "")
			require.NoError(t, err, name)
			assert.Equal(t, content, got, name)
		}
	})

	t.Run("named encoding", func(t *testing.T) {
		want := "grüße"
		encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(want)
		require.NoError(t, err)

		require.NoError(t, store.UploadFromStream(ctx, container, "utf16.txt", strings.NewReader(encoded), true, nil))
		got, err := store.DownloadAsText(ctx, container, "utf16.txt", "utf-16le")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		latin1 := "caf\xe9"
		require.NoError(t, store.UploadFromStream(ctx, container, "latin1.txt", strings.NewReader(latin1), true, nil))
		got, err = store.DownloadAsText(ctx, container, "latin1.txt", "iso-8859-1")
		require.NoError(t, err)
		assert.Equal(t, "café", got)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		require.NoError(t, store.UploadFromStream(ctx, container, "enc.txt", strings.NewReader("x"), true, nil))
		_, err := store.DownloadAsText(ctx, container, "enc.txt", "klingon-8")
		assert.True(t, errors.IsValidationError(err), "got %v", err)
	})

	t.Run("no overwrite keeps content", func(t *testing.T) {
		require.NoError(t, store.UploadFromStream(ctx, container, "keep.txt", strings.NewReader("first"), false, nil))

		err := store.UploadFromStream(ctx, container, "keep.txt", strings.NewReader("second"), false, nil)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err), "got %v", err)

		got, err := store.DownloadAsText(ctx, container, "keep.txt", "")
		require.NoError(t, err)
		assert.Equal(t, "first", got)
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		require.NoError(t, store.UploadFromStream(ctx, container, "swap.txt", strings.NewReader("old content that is longer"), true, nil))
		require.NoError(t, store.UploadFromStream(ctx, container, "swap.txt", strings.NewReader("new"), true, nil))
		got, err := store.DownloadAsText(ctx, container, "swap.txt", "")
		require.NoError(t, err)
		assert.Equal(t, "new", got)
	})

	t.Run("metadata and content type", func(t *testing.T) {
		opts := &storagemodels.UploadOptions{
			Metadata:    map[string]string{"owner": "demo"},
			ContentType: "text/plain; charset=utf-8",
		}
		require.NoError(t, store.UploadFromStream(ctx, container, "meta.txt", strings.NewReader("m"), true, opts))
		got, err := store.DownloadAsText(ctx, container, "meta.txt", "utf-8")
		require.NoError(t, err)
		assert.Equal(t, "m", got)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.UploadFromStream(ctx, container, "gone.txt", strings.NewReader("bye"), true, nil))
		require.NoError(t, store.DeleteBlob(ctx, container, "gone.txt"))
		require.NoError(t, store.DeleteBlob(ctx, container, "gone.txt"))
		require.NoError(t, store.DeleteBlob(ctx, container, "never-existed.txt"))

		_, err := store.DownloadAsText(ctx, container, "gone.txt", "")
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})

	t.Run("invalid names", func(t *testing.T) {
		err := store.EnsureContainerExists(ctx, "Bad_Container")
		assert.True(t, errors.IsValidationError(err), "got %v", err)

		err = store.UploadFromStream(ctx, container, "", strings.NewReader("x"), true, nil)
		assert.True(t, errors.IsValidationError(err), "got %v", err)

		_, err = store.DownloadAsText(ctx, "x", "a.txt", "")
		assert.True(t, errors.IsValidationError(err), "got %v", err)

		err = store.DeleteBlob(ctx, container, "")
		assert.True(t, errors.IsValidationError(err), "got %v", err)
	})

	t.Run("missing container", func(t *testing.T) {
		_, err := store.DownloadAsText(ctx, "no-such-container-4f1c", "a.txt", "")
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})
}
