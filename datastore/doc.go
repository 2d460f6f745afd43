/*
Package datastore defines the gateway interfaces and the input checks every
backend applies before touching the network.

	type TableStore[T any] interface {
	    EnsureTableExists(ctx context.Context) error
	    AddEntity(ctx context.Context, entity T) (*T, error)
	    GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error)
	    UpdateEntity(ctx context.Context, entity T, mode storagemodels.UpdateMode) (*T, error)
	    QueryEntities(ctx context.Context, filter *storagemodels.QueryFilter, opts ...storagemodels.QueryOption) iter.Seq2[*T, error]
	    DeleteEntity(ctx context.Context, partitionKey, rowKey string) error
	}

	type BlobStore interface {
	    EnsureContainerExists(ctx context.Context, container string) error
	    UploadFromStream(ctx context.Context, container, blobName string, data io.Reader, overwrite bool, opts *storagemodels.UploadOptions) error
	    DownloadAsText(ctx context.Context, container, blobName, encoding string) (string, error)
	    DeleteBlob(ctx context.Context, container, blobName string) error
	}

Implementations:
  - ddb: DynamoDB table store
  - s3blob: Amazon S3 blob store
  - minioblob: MinIO / S3-compatible blob store
  - mock: in-memory table and blob stores for testing and offline runs

Every implementation is safe for concurrent use and never retries on its own.
*/
package datastore
