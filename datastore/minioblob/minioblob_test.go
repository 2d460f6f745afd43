/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package minioblob

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/suparena/storagegateway/errors"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code  string
		blob  string
		check func(error) bool
		typ   string
	}{
		{"NoSuchKey", "a.txt", storeerrors.IsNotFound, "blob"},
		{"NotFound", "", storeerrors.IsNotFound, "container"},
		{"NoSuchBucket", "a.txt", storeerrors.IsNotFound, "container"},
		{"PreconditionFailed", "a.txt", storeerrors.IsConflict, ""},
		{"BucketAlreadyExists", "", storeerrors.IsConflict, ""},
		{"InvalidBucketName", "", storeerrors.IsValidationError, ""},
		{"XMinioInvalidObjectName", "a.txt", storeerrors.IsValidationError, ""},
		{"AccessDenied", "a.txt", storeerrors.IsUnavailable, ""},
		{"SlowDown", "a.txt", storeerrors.IsUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			src := minio.ErrorResponse{Code: tc.code, Message: tc.code, StatusCode: http.StatusBadRequest}
			err := classify("op", "bucket", tc.blob, fmt.Errorf("wrapped: %w", src))
			assert.True(t, tc.check(err), "got %v", err)
			if tc.typ != "" {
				var nf *storeerrors.NotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, tc.typ, nf.Type)
			}
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	err := classify("DeleteBlob", "bucket", "a.txt", fmt.Errorf("dial tcp 127.0.0.1:9: connection refused"))
	assert.True(t, storeerrors.IsUnavailable(err))
	assert.True(t, storeerrors.IsRetryable(err))
	assert.False(t, isNotFound(err))
}

func TestOpenRejectsBadEndpoint(t *testing.T) {
	_, err := Open(Settings{Endpoint: "http://has-scheme:9000"})
	assert.True(t, storeerrors.IsValidationError(err), "got %v", err)
}

func TestValidationHappensBeforeNetwork(t *testing.T) {
	// Nothing listens on port 9; a validation error proves no request was made.
	store, err := Open(Settings{Endpoint: "127.0.0.1:9", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, storeerrors.IsValidationError(store.EnsureContainerExists(ctx, "UPPER")))
	assert.True(t, storeerrors.IsValidationError(store.UploadFromStream(ctx, "bucket", "", strings.NewReader("x"), true, nil)))
	assert.True(t, storeerrors.IsValidationError(store.UploadFromStream(ctx, "bucket", "a", nil, true, nil)))
	_, err = store.DownloadAsText(ctx, "bucket", "a.txt", "no-such-charset")
	assert.True(t, storeerrors.IsValidationError(err))
	assert.True(t, storeerrors.IsValidationError(store.DeleteBlob(ctx, "b", "a.txt")))
}
