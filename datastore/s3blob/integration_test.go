//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"context"
	"testing"

	"github.com/suparena/storagegateway/datastore/storetest"
	"github.com/suparena/storagegateway/internal/awsconfig"
	"github.com/suparena/storagegateway/internal/testenv"
)

func TestStoreAgainstLocalStack(t *testing.T) {
	settings := testenv.LocalStack(t)

	store, err := Open(context.Background(), settings)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	storetest.RunBlobStore(t, store, "test-container")
}

func TestStoreAgainstMinIO(t *testing.T) {
	endpoint := testenv.MinIO(t)

	store, err := Open(context.Background(), awsconfig.Settings{
		Region:          "us-east-1",
		Endpoint:        "http://" + endpoint,
		AccessKeyID:     testenv.MinIOAccessKey,
		SecretAccessKey: testenv.MinIOSecretKey,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	storetest.RunBlobStore(t, store, "test-container")
}
