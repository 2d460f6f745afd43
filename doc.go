/*
Package storagegateway is a thin, typed gateway over two kinds of cloud
storage: a structured store of keyed rows and a blob store of named byte
streams in containers.

Backends are selected by configuration:

  - tables: DynamoDB (datastore/ddb) or in-memory (datastore/mock)
  - blobs: S3 (datastore/s3blob), MinIO (datastore/minioblob) or in-memory

Typical use:

	cfg, err := config.Load(config.LoadOptions{})
	gw, err := storagegateway.New(cfg, logger)
	users, err := storagegateway.Table[User](ctx, gw, "Users")
	if err := users.EnsureTableExists(ctx); err != nil {
		return err
	}
	added, err := users.AddEntity(ctx, User{TableEntity: storagemodels.TableEntity{
		PartitionKey: "Users",
		RowKey:       uuid.NewString(),
	}})

	blobs, err := gw.Blobs(ctx)
	err = blobs.UploadFromStream(ctx, "test-container", "hello.txt", strings.NewReader("hi"), true, nil)
	text, err := blobs.DownloadAsText(ctx, "test-container", "hello.txt", "")

Every failure is one of the kinds in the errors package: ValidationError,
AlreadyExists or ConditionFailed (both conflicts), NotFound, or Unavailable.
The gateway does not retry.

See the cmd/storagedemo command for a runnable tour.
*/
package storagegateway
