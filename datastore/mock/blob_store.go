/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/internal/observe"
	"github.com/suparena/storagegateway/storagemodels"
)

// Blob is a stored object as seen by tests
type Blob struct {
	Data        []byte
	Metadata    map[string]string
	ContentType string
}

// BlobStore is an in-memory datastore.BlobStore.
type BlobStore struct {
	mu            sync.RWMutex
	containers    map[string]map[string]Blob
	obs           *observe.Observer
	ensureError   error
	uploadError   error
	downloadError error
	deleteError   error
}

var _ datastore.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates an empty mock blob store
func NewBlobStore() *BlobStore {
	return &BlobStore{
		containers: make(map[string]map[string]Blob),
		obs:        observe.New(nil, attribute.String("backend", "memory")),
	}
}

// WithLogger sets the sink for failure records
func (m *BlobStore) WithLogger(l *slog.Logger) *BlobStore {
	m.obs = observe.New(l, attribute.String("backend", "memory"))
	return m
}

// WithEnsureError makes EnsureContainerExists return an error
func (m *BlobStore) WithEnsureError(err error) *BlobStore {
	m.ensureError = err
	return m
}

// WithUploadError makes UploadFromStream operations return an error
func (m *BlobStore) WithUploadError(err error) *BlobStore {
	m.uploadError = err
	return m
}

// WithDownloadError makes DownloadAsText operations return an error
func (m *BlobStore) WithDownloadError(err error) *BlobStore {
	m.downloadError = err
	return m
}

// WithDeleteError makes DeleteBlob operations return an error
func (m *BlobStore) WithDeleteError(err error) *BlobStore {
	m.deleteError = err
	return m
}

// EnsureContainerExists creates the container if needed
func (m *BlobStore) EnsureContainerExists(ctx context.Context, container string) error {
	_, op := m.obs.Start(ctx, "EnsureContainerExists", attribute.String("container", container))

	if err := datastore.ValidateContainerName(container); err != nil {
		return op.End(err)
	}
	if m.ensureError != nil {
		return op.End(m.ensureError)
	}

	m.mu.Lock()
	_, exists := m.containers[container]
	if !exists {
		m.containers[container] = make(map[string]Blob)
	}
	m.mu.Unlock()

	if !exists {
		op.Info("container created")
	}
	return op.End(nil)
}

// UploadFromStream reads data fully and stores it under blobName
func (m *BlobStore) UploadFromStream(ctx context.Context, container, blobName string, data io.Reader, overwrite bool, opts *storagemodels.UploadOptions) error {
	_, op := m.obs.Start(ctx, "UploadFromStream", blobAttrs(container, blobName)...)

	if err := datastore.ValidateBlobRef(container, blobName); err != nil {
		return op.End(err)
	}
	if data == nil {
		return op.End(errors.NewValidationError("data", "must not be nil"))
	}
	if m.uploadError != nil {
		return op.End(m.uploadError)
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return op.End(errors.NewUnavailableError("UploadFromStream", err))
	}
	blob := Blob{Data: body}
	if opts != nil {
		blob.Metadata = maps.Clone(opts.Metadata)
		blob.ContentType = opts.ContentType
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	blobs, ok := m.containers[container]
	if !ok {
		return op.End(errors.NewNotFoundError("container", container))
	}
	if _, exists := blobs[blobName]; exists && !overwrite {
		return op.End(errors.NewAlreadyExistsError("blob", container+"/"+blobName))
	}
	blobs[blobName] = blob
	return op.End(nil)
}

// DownloadAsText decodes the stored bytes with the named encoding
func (m *BlobStore) DownloadAsText(ctx context.Context, container, blobName, encoding string) (string, error) {
	_, op := m.obs.Start(ctx, "DownloadAsText", blobAttrs(container, blobName)...)

	if err := datastore.ValidateBlobRef(container, blobName); err != nil {
		return "", op.End(err)
	}
	if _, err := datastore.LookupEncoding(encoding); err != nil {
		return "", op.End(err)
	}
	if m.downloadError != nil {
		return "", op.End(m.downloadError)
	}

	blob, err := m.lookup(container, blobName)
	if err != nil {
		return "", op.End(err)
	}
	text, err := datastore.DecodeText(blob.Data, encoding)
	if err != nil {
		return "", op.End(err)
	}
	return text, op.End(nil)
}

// DeleteBlob removes a blob. Missing blobs and containers are not an error.
func (m *BlobStore) DeleteBlob(ctx context.Context, container, blobName string) error {
	_, op := m.obs.Start(ctx, "DeleteBlob", blobAttrs(container, blobName)...)

	if err := datastore.ValidateBlobRef(container, blobName); err != nil {
		return op.End(err)
	}
	if m.deleteError != nil {
		return op.End(m.deleteError)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if blobs, ok := m.containers[container]; ok {
		delete(blobs, blobName)
	}
	return op.End(nil)
}

// Helper methods for testing

// Blob returns a copy of a stored blob
func (m *BlobStore) Blob(container, blobName string) (Blob, bool) {
	b, err := m.lookup(container, blobName)
	if err != nil {
		return Blob{}, false
	}
	b.Data = append([]byte(nil), b.Data...)
	b.Metadata = maps.Clone(b.Metadata)
	return b, true
}

func (m *BlobStore) lookup(container, blobName string) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blobs, ok := m.containers[container]
	if !ok {
		return Blob{}, errors.NewNotFoundError("container", container)
	}
	blob, ok := blobs[blobName]
	if !ok {
		return Blob{}, errors.NewNotFoundError("blob", container+"/"+blobName)
	}
	return blob, nil
}

func blobAttrs(container, blobName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("container", container),
		attribute.String("blob", blobName),
	}
}
