/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"io"
	"iter"

	"github.com/suparena/storagegateway/storagemodels"
)

// TableStore is the structured-store gateway over a partitioned key-value table.
// T is the entity value type; implementations require *T to satisfy storagemodels.Entity.
type TableStore[T any] interface {
	TableName() string

	EnsureTableExists(ctx context.Context) error

	AddEntity(ctx context.Context, entity T) (*T, error)

	GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error)

	UpdateEntity(ctx context.Context, entity T, mode storagemodels.UpdateMode) (*T, error)

	QueryEntities(ctx context.Context, filter *storagemodels.QueryFilter, opts ...storagemodels.QueryOption) iter.Seq2[*T, error]

	DeleteEntity(ctx context.Context, partitionKey, rowKey string) error
}

// BlobStore is the gateway over named binary objects inside named containers.
type BlobStore interface {
	EnsureContainerExists(ctx context.Context, container string) error

	UploadFromStream(ctx context.Context, container, blobName string, data io.Reader, overwrite bool, opts *storagemodels.UploadOptions) error

	DownloadAsText(ctx context.Context, container, blobName, encoding string) (string, error)

	DeleteBlob(ctx context.Context, container, blobName string) error
}
