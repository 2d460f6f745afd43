/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagegateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suparena/storagegateway/config"
	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/datastore/ddb"
	"github.com/suparena/storagegateway/datastore/minioblob"
	"github.com/suparena/storagegateway/datastore/mock"
	"github.com/suparena/storagegateway/datastore/s3blob"
	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/internal/awsconfig"
	"github.com/suparena/storagegateway/storagemodels"
)

// OpenTableStore returns the structured store selected by cfg.Table.Backend
// for the table named tableName. No remote call is made; use
// EnsureTableExists before the first write. Every backend applies the same
// table naming rules.
func OpenTableStore[T any, PT storagemodels.EntityPtr[T]](ctx context.Context, cfg *config.Config, tableName string, logger *slog.Logger) (datastore.TableStore[T], error) {
	if err := datastore.ValidateTableName(tableName); err != nil {
		return nil, err
	}
	switch cfg.Table.Backend {
	case config.BackendDynamoDB:
		store, err := ddb.Open[T, PT](ctx, awsSettings(cfg), tableName, ddb.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		return mock.New[T, PT](tableName).WithLogger(logger), nil
	default:
		return nil, errors.NewValidationError("table.backend", fmt.Sprintf("unknown backend %q", cfg.Table.Backend))
	}
}

// OpenBlobStore returns the blob store selected by cfg.Blob.Backend.
func OpenBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (datastore.BlobStore, error) {
	switch cfg.Blob.Backend {
	case config.BackendS3:
		store, err := s3blob.Open(ctx, awsSettings(cfg), s3blob.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMinIO:
		store, err := minioblob.Open(minioblob.Settings{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Region:    cfg.AWS.Region,
		}, minioblob.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		return mock.NewBlobStore().WithLogger(logger), nil
	default:
		return nil, errors.NewValidationError("blob.backend", fmt.Sprintf("unknown backend %q", cfg.Blob.Backend))
	}
}

func awsSettings(cfg *config.Config) awsconfig.Settings {
	return awsconfig.Settings{
		Region:          cfg.AWS.Region,
		Endpoint:        cfg.AWS.Endpoint,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
	}
}
