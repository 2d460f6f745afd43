/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/suparena/storagegateway/internal/awsconfig"
)

// Client is the subset of the S3 API the blob store calls, including what
// manager.Uploader needs for multipart uploads.
type Client interface {
	manager.UploadAPIClient

	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ Client = (*s3.Client)(nil)

// NewClient initializes an S3 client. A custom endpoint switches to path-style
// addressing, which LocalStack and most S3-compatible servers expect.
func NewClient(ctx context.Context, s awsconfig.Settings) (*s3.Client, error) {
	cfg, err := awsconfig.Load(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
