/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides in-memory implementations of the TableStore and
// BlobStore interfaces for tests and for the "memory" backend.
package mock

import (
	"context"
	"iter"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/internal/observe"
	"github.com/suparena/storagegateway/storagemodels"
)

// TableStore is an in-memory datastore.TableStore[T].
type TableStore[T any, PT storagemodels.EntityPtr[T]] struct {
	mu          sync.RWMutex
	name        string
	exists      bool
	rows        map[string]T
	obs         *observe.Observer
	now         func() time.Time
	ensureError error
	addError    error
	getError    error
	updateError error
	queryError  error
	deleteError error
}

var _ datastore.TableStore[storagemodels.TableEntity] = (*TableStore[storagemodels.TableEntity, *storagemodels.TableEntity])(nil)

// New creates an empty mock table. The table itself only exists after
// EnsureTableExists, mirroring a real store.
func New[T any, PT storagemodels.EntityPtr[T]](name string) *TableStore[T, PT] {
	return &TableStore[T, PT]{
		name: name,
		rows: make(map[string]T),
		obs:  observe.New(nil, attribute.String("backend", "memory"), attribute.String("table", name)),
		now:  time.Now,
	}
}

// TableName returns the table name given to New.
func (m *TableStore[T, PT]) TableName() string {
	return m.name
}

// WithLogger sets the sink for failure records
func (m *TableStore[T, PT]) WithLogger(l *slog.Logger) *TableStore[T, PT] {
	m.obs = observe.New(l, attribute.String("backend", "memory"), attribute.String("table", m.name))
	return m
}

// WithClock overrides the source of entity timestamps
func (m *TableStore[T, PT]) WithClock(now func() time.Time) *TableStore[T, PT] {
	m.now = now
	return m
}

// WithEnsureError makes EnsureTableExists return an error
func (m *TableStore[T, PT]) WithEnsureError(err error) *TableStore[T, PT] {
	m.ensureError = err
	return m
}

// WithAddError makes AddEntity operations return an error
func (m *TableStore[T, PT]) WithAddError(err error) *TableStore[T, PT] {
	m.addError = err
	return m
}

// WithGetError makes GetEntity operations return an error
func (m *TableStore[T, PT]) WithGetError(err error) *TableStore[T, PT] {
	m.getError = err
	return m
}

// WithUpdateError makes UpdateEntity operations return an error
func (m *TableStore[T, PT]) WithUpdateError(err error) *TableStore[T, PT] {
	m.updateError = err
	return m
}

// WithQueryError makes QueryEntities yield an error
func (m *TableStore[T, PT]) WithQueryError(err error) *TableStore[T, PT] {
	m.queryError = err
	return m
}

// WithDeleteError makes DeleteEntity operations return an error
func (m *TableStore[T, PT]) WithDeleteError(err error) *TableStore[T, PT] {
	m.deleteError = err
	return m
}

// EnsureTableExists marks the table as created
func (m *TableStore[T, PT]) EnsureTableExists(ctx context.Context) error {
	_, op := m.obs.Start(ctx, "EnsureTableExists")
	if m.ensureError != nil {
		return op.End(m.ensureError)
	}

	m.mu.Lock()
	created := !m.exists
	m.exists = true
	m.mu.Unlock()

	if created {
		op.Info("table created")
	}
	return op.End(nil)
}

// AddEntity stores a new entity
func (m *TableStore[T, PT]) AddEntity(ctx context.Context, entity T) (*T, error) {
	pk, rk := PT(&entity).GetPartitionKey(), PT(&entity).GetRowKey()
	_, op := m.obs.Start(ctx, "AddEntity", keyAttrs(pk, rk)...)

	if err := datastore.ValidateEntityKeys(pk, rk); err != nil {
		return nil, op.End(err)
	}
	if m.addError != nil {
		return nil, op.End(m.addError)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return nil, op.End(errors.NewNotFoundError("table", m.name))
	}
	key := storagemodels.EntityKey(pk, rk)
	if _, exists := m.rows[key]; exists {
		return nil, op.End(errors.NewAlreadyExistsError("entity", key))
	}

	stored, err := m.clone(m.stamp(entity))
	if err != nil {
		return nil, op.End(err)
	}
	m.rows[key] = stored
	out, err := m.clone(stored)
	if err != nil {
		return nil, op.End(err)
	}
	return &out, op.End(nil)
}

// GetEntity retrieves an entity by its key pair
func (m *TableStore[T, PT]) GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	_, op := m.obs.Start(ctx, "GetEntity", keyAttrs(partitionKey, rowKey)...)

	if err := datastore.ValidateEntityKeys(partitionKey, rowKey); err != nil {
		return nil, op.End(err)
	}
	if m.getError != nil {
		return nil, op.End(m.getError)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.exists {
		return nil, op.End(errors.NewNotFoundError("table", m.name))
	}
	key := storagemodels.EntityKey(partitionKey, rowKey)
	entity, exists := m.rows[key]
	if !exists {
		return nil, op.End(errors.NewNotFoundError("entity", key))
	}
	out, err := m.clone(entity)
	if err != nil {
		return nil, op.End(err)
	}
	return &out, op.End(nil)
}

// UpdateEntity overwrites the stored entity when its ETag matches. A typed
// value carries every attribute, so merge and replace store the same row.
func (m *TableStore[T, PT]) UpdateEntity(ctx context.Context, entity T, _ storagemodels.UpdateMode) (*T, error) {
	pk, rk := PT(&entity).GetPartitionKey(), PT(&entity).GetRowKey()
	ifMatch := PT(&entity).GetETag()
	_, op := m.obs.Start(ctx, "UpdateEntity", keyAttrs(pk, rk)...)

	if err := datastore.ValidateEntityKeys(pk, rk); err != nil {
		return nil, op.End(err)
	}
	if ifMatch == "" {
		return nil, op.End(errors.NewValidationError(storagemodels.ETagAttr, "required for update; use \"*\" to match any version"))
	}
	if m.updateError != nil {
		return nil, op.End(m.updateError)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return nil, op.End(errors.NewNotFoundError("table", m.name))
	}
	key := storagemodels.EntityKey(pk, rk)
	current, exists := m.rows[key]
	if !exists {
		return nil, op.End(errors.NewNotFoundError("entity", key))
	}
	if ifMatch != storagemodels.ETagAny && PT(&current).GetETag() != ifMatch {
		return nil, op.End(errors.NewConditionFailedError("UpdateEntity", "ETag "+ifMatch+" no longer matches"))
	}

	stored, err := m.clone(m.stamp(entity))
	if err != nil {
		return nil, op.End(err)
	}
	m.rows[key] = stored
	out, err := m.clone(stored)
	if err != nil {
		return nil, op.End(err)
	}
	return &out, op.End(nil)
}

// QueryEntities walks a sorted snapshot of the table in pages
func (m *TableStore[T, PT]) QueryEntities(ctx context.Context, filter *storagemodels.QueryFilter, opts ...storagemodels.QueryOption) iter.Seq2[*T, error] {
	options := storagemodels.ApplyQueryOptions(opts...)

	return func(yield func(*T, error) bool) {
		var attrs []attribute.KeyValue
		if filter != nil && filter.PartitionKey != "" {
			attrs = append(attrs, attribute.String("partitionKey", filter.PartitionKey))
		}
		_, op := m.obs.Start(ctx, "QueryEntities", attrs...)

		if filter != nil && filter.PartitionKey != "" {
			if err := datastore.ValidateKey(storagemodels.PartitionKeyAttr, filter.PartitionKey); err != nil {
				yield(nil, op.End(err))
				return
			}
		}
		if m.queryError != nil {
			yield(nil, op.End(m.queryError))
			return
		}

		rows, err := m.snapshot(filter)
		if err != nil {
			yield(nil, op.End(err))
			return
		}

		pageSize := len(rows)
		if options.PageSize > 0 {
			pageSize = int(options.PageSize)
		}
		var items int64
		pages := 0
		for start := 0; start < len(rows) || pages == 0; start += pageSize {
			end := min(start+pageSize, len(rows))
			pages++
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					yield(nil, op.End(errors.NewUnavailableError("QueryEntities", err)))
					return
				}
				items++
				if !yield(&rows[i], nil) {
					op.End(nil)
					return
				}
			}
			if options.ProgressHandler != nil {
				options.ProgressHandler(storagemodels.QueryProgress{
					ItemsProcessed: items,
					PagesProcessed: pages,
					LastPage:       end >= len(rows),
				})
			}
			if pageSize == 0 {
				break
			}
		}
		op.End(nil)
	}
}

// DeleteEntity removes an entity. Missing entities are not an error.
func (m *TableStore[T, PT]) DeleteEntity(ctx context.Context, partitionKey, rowKey string) error {
	_, op := m.obs.Start(ctx, "DeleteEntity", keyAttrs(partitionKey, rowKey)...)

	if err := datastore.ValidateEntityKeys(partitionKey, rowKey); err != nil {
		return op.End(err)
	}
	if m.deleteError != nil {
		return op.End(m.deleteError)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, storagemodels.EntityKey(partitionKey, rowKey))
	return op.End(nil)
}

// Helper methods for testing

// Count returns the number of stored entities
func (m *TableStore[T, PT]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Clear removes all data
func (m *TableStore[T, PT]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]T)
}

func (m *TableStore[T, PT]) stamp(entity T) T {
	ts := strfmt.DateTime(m.now().UTC().Truncate(time.Millisecond))
	PT(&entity).SetSystemProperties(ts, `"`+uuid.NewString()+`"`)
	return entity
}

// clone deep-copies v through its stored attribute form, so no map or slice
// is shared between a caller and a stored row. Fields the DynamoDB marshaller
// skips are dropped here too.
func (m *TableStore[T, PT]) clone(v T) (T, error) {
	var out T
	item, err := attributevalue.MarshalMap(PT(&v))
	if err != nil {
		return out, errors.NewValidationError("entity", err.Error())
	}
	if err := attributevalue.UnmarshalMap(item, PT(&out)); err != nil {
		return out, errors.NewValidationError("entity", err.Error())
	}
	PT(&out).SetSystemProperties(PT(&v).GetTimestamp(), PT(&v).GetETag())
	return out, nil
}

// snapshot copies the matching rows, ordered by partition then row key.
func (m *TableStore[T, PT]) snapshot(filter *storagemodels.QueryFilter) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.exists {
		return nil, errors.NewNotFoundError("table", m.name)
	}

	rows := make([]T, 0, len(m.rows))
	for _, row := range m.rows {
		ok, err := matches(PT(&row), filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out, err := m.clone(row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := PT(&rows[i]), PT(&rows[j])
		if a.GetPartitionKey() != b.GetPartitionKey() {
			return a.GetPartitionKey() < b.GetPartitionKey()
		}
		return a.GetRowKey() < b.GetRowKey()
	})
	return rows, nil
}

// matches compares attributes in their stored form, so a filter value of 1
// matches an int field and a float64 field alike.
func matches(entity storagemodels.Entity, filter *storagemodels.QueryFilter) (bool, error) {
	if filter.IsZero() {
		return true, nil
	}
	if filter.PartitionKey != "" && entity.GetPartitionKey() != filter.PartitionKey {
		return false, nil
	}
	if len(filter.Attributes) == 0 {
		return true, nil
	}

	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return false, errors.NewValidationError("entity", err.Error())
	}
	for name, want := range filter.Attributes {
		wantAV, err := attributevalue.Marshal(want)
		if err != nil {
			return false, errors.NewValidationError(name, err.Error())
		}
		if got, ok := item[name]; !ok || !reflect.DeepEqual(got, wantAV) {
			return false, nil
		}
	}
	return true, nil
}

func keyAttrs(partitionKey, rowKey string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("partitionKey", partitionKey),
		attribute.String("rowKey", rowKey),
	}
}
