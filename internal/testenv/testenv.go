//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testenv starts throwaway backing stores for integration tests.
// Requires Docker.
package testenv

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/suparena/storagegateway/internal/awsconfig"
)

const (
	localstackImage = "localstack/localstack:3.0"
	minioImage      = "minio/minio:RELEASE.2024-01-16T16-07-38Z"

	MinIOAccessKey = "minioadmin"
	MinIOSecretKey = "minioadmin"
)

// LocalStack starts a LocalStack container for the lifetime of t and returns
// settings that point the AWS SDK at it.
func LocalStack(t *testing.T) awsconfig.Settings {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx, localstackImage)
	if err != nil {
		t.Fatalf("Failed to start LocalStack: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	if err != nil {
		t.Fatalf("Failed to get endpoint: %v", err)
	}

	return awsconfig.Settings{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}
}

// MinIO starts a single-node MinIO server and returns its host:port.
func MinIO(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        minioImage,
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     MinIOAccessKey,
				"MINIO_ROOT_PASSWORD": MinIOSecretKey,
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MinIO: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		t.Fatalf("Failed to get endpoint: %v", err)
	}
	return endpoint
}
