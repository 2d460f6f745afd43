/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/suparena/storagegateway/datastore"
	storeerrors "github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/internal/awsconfig"
	"github.com/suparena/storagegateway/internal/observe"
	"github.com/suparena/storagegateway/storagemodels"
)

const defaultBucketWait = time.Minute

// Store implements datastore.BlobStore with S3 buckets as containers.
type Store struct {
	client     Client
	uploader   *manager.Uploader
	region     string
	bucketWait time.Duration
	obs        *observe.Observer
}

var _ datastore.BlobStore = (*Store)(nil)

type options struct {
	logger     *slog.Logger
	region     string
	partSize   int64
	bucketWait time.Duration
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the sink for failure and lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegion sets the location constraint used when creating buckets.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithPartSize sets the multipart chunk size used for large streams.
func WithPartSize(size int64) Option {
	return func(o *options) { o.partSize = size }
}

// WithBucketWait bounds how long EnsureContainerExists waits for a new bucket.
func WithBucketWait(d time.Duration) Option {
	return func(o *options) { o.bucketWait = d }
}

// New wraps an S3 client.
func New(client Client, opts ...Option) *Store {
	o := options{bucketWait: defaultBucketWait}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			if o.partSize > 0 {
				u.PartSize = o.partSize
			}
		}),
		region:     o.region,
		bucketWait: o.bucketWait,
		obs:        observe.New(o.logger, attribute.String("backend", "s3")),
	}
}

// Open creates an S3 client from s and wraps it in a Store.
func Open(ctx context.Context, s awsconfig.Settings, opts ...Option) (*Store, error) {
	client, err := NewClient(ctx, s)
	if err != nil {
		return nil, err
	}
	return New(client, append([]Option{WithRegion(s.Region)}, opts...)...), nil
}

// EnsureContainerExists creates the bucket when it is missing.
func (s *Store) EnsureContainerExists(ctx context.Context, container string) error {
	ctx, op := s.obs.Start(ctx, "EnsureContainerExists", attribute.String("container", container))

	if err := datastore.ValidateContainerName(container); err != nil {
		return op.End(err)
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(container)})
	if err == nil {
		return op.End(nil)
	}
	if !isNotFound(err) {
		return op.End(classify("EnsureContainerExists", container, "", err))
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(container)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if !errors.As(err, &owned) {
			return op.End(classify("EnsureContainerExists", container, "", err))
		}
	} else {
		op.Info("container created")
	}

	waiter := s3.NewBucketExistsWaiter(s.client, func(o *s3.BucketExistsWaiterOptions) {
		o.MinDelay = time.Second
		o.MaxDelay = 5 * time.Second
	})
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(container)}, s.bucketWait); err != nil {
		return op.End(storeerrors.NewUnavailableError("EnsureContainerExists", fmt.Errorf("bucket %s did not become available: %w", container, err)))
	}
	return op.End(nil)
}

// UploadFromStream writes data as the whole content of the blob. With
// overwrite false an existing blob is left untouched and a conflict is returned.
func (s *Store) UploadFromStream(ctx context.Context, container, blobName string, data io.Reader, overwrite bool, opts *storagemodels.UploadOptions) error {
	ctx, op := s.obs.Start(ctx, "UploadFromStream", blobAttrs(container, blobName)...)

	if err := datastore.ValidateBlobRef(container, blobName); err != nil {
		return op.End(err)
	}
	if data == nil {
		return op.End(storeerrors.NewValidationError("data", "must not be nil"))
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
		Body:   data,
	}
	if opts != nil {
		input.Metadata = opts.Metadata
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
	}

	if !overwrite {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(container),
			Key:    aws.String(blobName),
		})
		switch {
		case err == nil:
			return op.End(storeerrors.NewAlreadyExistsError("blob", blobRef(container, blobName)))
		case !isNotFound(err):
			return op.End(classify("UploadFromStream", container, blobName, err))
		}
		// Closes the window between the HEAD and the PUT on stores that honour it.
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return op.End(classify("UploadFromStream", container, blobName, err))
	}
	return op.End(nil)
}

// DownloadAsText reads the whole blob and decodes it with the named encoding.
func (s *Store) DownloadAsText(ctx context.Context, container, blobName, encoding string) (string, error) {
	ctx, op := s.obs.Start(ctx, "DownloadAsText", blobAttrs(container, blobName)...)

	if err := datastore.ValidateBlobRef(container, blobName); err != nil {
		return "", op.End(err)
	}
	if _, err := datastore.LookupEncoding(encoding); err != nil {
		return "", op.End(err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
	})
	if err != nil {
		return "", op.End(classify("DownloadAsText", container, blobName, err))
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", op.End(storeerrors.NewUnavailableError("DownloadAsText", err))
	}

	text, err := datastore.DecodeText(body, encoding)
	if err != nil {
		return "", op.End(err)
	}
	return text, op.End(nil)
}

// DeleteBlob removes a blob. A missing blob or container is not an error.
func (s *Store) DeleteBlob(ctx context.Context, container, blobName string) error {
	ctx, op := s.obs.Start(ctx, "DeleteBlob", blobAttrs(container, blobName)...)

	if err := datastore.ValidateBlobRef(container, blobName); err != nil {
		return op.End(err)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
	})
	if err != nil && !isNotFound(err) {
		return op.End(classify("DeleteBlob", container, blobName, err))
	}
	return op.End(nil)
}

func blobAttrs(container, blobName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("container", container),
		attribute.String("blob", blobName),
	}
}
