/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package minioblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"

	"github.com/suparena/storagegateway/datastore"
	storeerrors "github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/internal/observe"
	"github.com/suparena/storagegateway/storagemodels"
)

// Streams of unknown length are buffered one part at a time.
const defaultPartSize = 16 << 20

// Settings holds the connection inputs for a MinIO server.
type Settings struct {
	Endpoint  string // host:port, without scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// Store implements datastore.BlobStore against MinIO or another S3-compatible server.
type Store struct {
	client   *minio.Client
	region   string
	partSize uint64
	obs      *observe.Observer
}

var _ datastore.BlobStore = (*Store)(nil)

type options struct {
	logger   *slog.Logger
	region   string
	partSize uint64
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the sink for failure and lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegion sets the region used when creating buckets.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithPartSize sets the multipart chunk size for streams of unknown length.
func WithPartSize(size uint64) Option {
	return func(o *options) { o.partSize = size }
}

// NewClient connects to the server described by s.
func NewClient(s Settings) (*minio.Client, error) {
	client, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: s.UseSSL,
		Region: s.Region,
	})
	if err != nil {
		return nil, storeerrors.NewValidationError("endpoint", fmt.Sprintf("invalid MinIO endpoint %q: %v", s.Endpoint, err))
	}
	return client, nil
}

// New wraps a MinIO client.
func New(client *minio.Client, opts ...Option) *Store {
	o := options{partSize: defaultPartSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		client:   client,
		region:   o.region,
		partSize: o.partSize,
		obs:      observe.New(o.logger, attribute.String("backend", "minio")),
	}
}

// Open connects to the server described by s and wraps the client in a Store.
func Open(s Settings, opts ...Option) (*Store, error) {
	client, err := NewClient(s)
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

	exists, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return op.End(classify("EnsureContainerExists", container, "", err))
	}
	if exists {
		return op.End(nil)
	}

	if err := s.client.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: s.region}); err != nil {
		if errorCode(err) == "BucketAlreadyOwnedByYou" {
			return op.End(nil)
		}
		return op.End(classify("EnsureContainerExists", container, "", err))
	}
	op.Info("container created")
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

	if !overwrite {
		_, err := s.client.StatObject(ctx, container, blobName, minio.StatObjectOptions{})
		switch {
		case err == nil:
			return op.End(storeerrors.NewAlreadyExistsError("blob", blobRef(container, blobName)))
		case !isNotFound(err):
			return op.End(classify("UploadFromStream", container, blobName, err))
		}
	}

	putOpts := minio.PutObjectOptions{PartSize: s.partSize}
	if opts != nil {
		putOpts.UserMetadata = opts.Metadata
		putOpts.ContentType = opts.ContentType
	}
	if _, err := s.client.PutObject(ctx, container, blobName, data, -1, putOpts); err != nil {
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

	obj, err := s.client.GetObject(ctx, container, blobName, minio.GetObjectOptions{})
	if err != nil {
		return "", op.End(classify("DownloadAsText", container, blobName, err))
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; a missing object only surfaces on the first read.
	body, err := io.ReadAll(obj)
	if err != nil {
		return "", op.End(classify("DownloadAsText", container, blobName, err))
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

	err := s.client.RemoveObject(ctx, container, blobName, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return op.End(classify("DeleteBlob", container, blobName, err))
	}
	return op.End(nil)
}

// errorCode extracts the S3 error code from a MinIO error, or "" when the
// failure never reached the server.
func errorCode(err error) string {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code
	}
	return minio.ToErrorResponse(err).Code
}

func isNotFound(err error) bool {
	switch errorCode(err) {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}

// classify maps a MinIO failure onto the gateway taxonomy.
func classify(op, container, blobName string, err error) error {
	switch errorCode(err) {
	case "NoSuchKey", "NotFound":
		if blobName == "" {
			return storeerrors.NewNotFoundError("container", container)
		}
		return storeerrors.NewNotFoundError("blob", blobRef(container, blobName))
	case "NoSuchBucket":
		return storeerrors.NewNotFoundError("container", container)
	case "PreconditionFailed":
		return storeerrors.NewAlreadyExistsError("blob", blobRef(container, blobName))
	case "BucketAlreadyExists":
		return storeerrors.NewAlreadyExistsError("container", container)
	case "InvalidBucketName", "XMinioInvalidObjectName", "KeyTooLongError", "InvalidArgument":
		return storeerrors.NewValidationError("", err.Error())
	}
	return storeerrors.NewUnavailableError(op, err)
}

func blobRef(container, blobName string) string {
	return container + "/" + blobName
}

func blobAttrs(container, blobName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("container", container),
		attribute.String("blob", blobName),
	}
}
