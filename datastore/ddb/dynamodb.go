/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/suparena/storagegateway/datastore"
	storeerrors "github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/internal/awsconfig"
	"github.com/suparena/storagegateway/internal/observe"
	"github.com/suparena/storagegateway/storagemodels"
)

const defaultTableWait = 2 * time.Minute

// TableStore implements datastore.TableStore[T] on a DynamoDB table keyed by
// PartitionKey (hash) and RowKey (range).
type TableStore[T any, PT storagemodels.EntityPtr[T]] struct {
	client    Client
	tableName string
	obs       *observe.Observer
	now       func() time.Time
	newETag   func() string
	tableWait time.Duration
}

var _ datastore.TableStore[storagemodels.TableEntity] = (*TableStore[storagemodels.TableEntity, *storagemodels.TableEntity])(nil)

type options struct {
	logger    *slog.Logger
	now       func() time.Time
	newETag   func() string
	tableWait time.Duration
}

// Option configures a TableStore.
type Option func(*options)

// WithLogger sets the sink for failure and lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the source of entity timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithETagFunc overrides ETag generation.
func WithETagFunc(f func() string) Option {
	return func(o *options) { o.newETag = f }
}

// WithTableWait bounds how long EnsureTableExists waits for a new table to become active.
func WithTableWait(d time.Duration) Option {
	return func(o *options) { o.tableWait = d }
}

func newETag() string {
	return `"` + uuid.NewString() + `"`
}

// NewTableStore constructs a TableStore for entity type T over an existing client.
func NewTableStore[T any, PT storagemodels.EntityPtr[T]](client Client, tableName string, opts ...Option) (*TableStore[T, PT], error) {
	if err := datastore.ValidateTableName(tableName); err != nil {
		return nil, err
	}

	o := options{
		now:       time.Now,
		newETag:   newETag,
		tableWait: defaultTableWait,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &TableStore[T, PT]{
		client:    client,
		tableName: tableName,
		obs: observe.New(o.logger,
			attribute.String("backend", "dynamodb"),
			attribute.String("table", tableName),
		),
		now:       o.now,
		newETag:   o.newETag,
		tableWait: o.tableWait,
	}, nil
}

// Open creates a DynamoDB client from s and wraps it in a TableStore.
func Open[T any, PT storagemodels.EntityPtr[T]](ctx context.Context, s awsconfig.Settings, tableName string, opts ...Option) (*TableStore[T, PT], error) {
	client, err := NewClient(ctx, s)
	if err != nil {
		return nil, err
	}
	return NewTableStore[T, PT](client, tableName, opts...)
}

// TableName returns the backing table name.
func (d *TableStore[T, PT]) TableName() string {
	return d.tableName
}

// EnsureTableExists creates the table when it is missing and waits until it is active.
func (d *TableStore[T, PT]) EnsureTableExists(ctx context.Context) error {
	ctx, op := d.obs.Start(ctx, "EnsureTableExists")

	out, err := d.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(d.tableName)})
	if err == nil {
		if out.Table != nil && out.Table.TableStatus == types.TableStatusActive {
			return op.End(nil)
		}
		return op.End(d.waitActive(ctx))
	}

	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		return op.End(d.classify("EnsureTableExists", err))
	}

	_, err = d.client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(d.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(storagemodels.PartitionKeyAttr), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(storagemodels.RowKeyAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(storagemodels.PartitionKeyAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(storagemodels.RowKeyAttr), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		// Another caller won the race; the table is on its way.
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return op.End(d.classify("EnsureTableExists", err))
		}
	} else {
		op.Info("table created")
	}

	return op.End(d.waitActive(ctx))
}

func (d *TableStore[T, PT]) waitActive(ctx context.Context) error {
	waiter := sdk.NewTableExistsWaiter(d.client, func(o *sdk.TableExistsWaiterOptions) {
		o.MinDelay = time.Second
		o.MaxDelay = 10 * time.Second
	})
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(d.tableName)}, d.tableWait); err != nil {
		return storeerrors.NewUnavailableError("EnsureTableExists", fmt.Errorf("table %s did not become active: %w", d.tableName, err))
	}
	return nil
}

// AddEntity inserts a new row. It fails with a conflict when the key pair is already present.
func (d *TableStore[T, PT]) AddEntity(ctx context.Context, entity T) (*T, error) {
	pk, rk := PT(&entity).GetPartitionKey(), PT(&entity).GetRowKey()
	ctx, op := d.obs.Start(ctx, "AddEntity", keyAttrs(pk, rk)...)

	if err := datastore.ValidateEntityKeys(pk, rk); err != nil {
		return nil, op.End(err)
	}

	stored, item, err := d.stamp(entity)
	if err != nil {
		return nil, op.End(err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(storagemodels.PartitionKeyAttr))).
		Build()
	if err != nil {
		return nil, op.End(fmt.Errorf("failed to build condition: %w", err))
	}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil, op.End(storeerrors.NewAlreadyExistsError("entity", storagemodels.EntityKey(pk, rk)))
		}
		return nil, op.End(d.classify("AddEntity", err))
	}
	return stored, op.End(nil)
}

// GetEntity retrieves a single row by its key pair.
func (d *TableStore[T, PT]) GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	ctx, op := d.obs.Start(ctx, "GetEntity", keyAttrs(partitionKey, rowKey)...)

	if err := datastore.ValidateEntityKeys(partitionKey, rowKey); err != nil {
		return nil, op.End(err)
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            entityKey(partitionKey, rowKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, op.End(d.classify("GetEntity", err))
	}
	if len(out.Item) == 0 {
		return nil, op.End(storeerrors.NewNotFoundError("entity", storagemodels.EntityKey(partitionKey, rowKey)))
	}

	result, err := d.unmarshal(out.Item)
	if err != nil {
		return nil, op.End(err)
	}
	return result, op.End(nil)
}

// UpdateEntity writes entity over the stored row when the row's ETag still
// matches entity's ETag. storagemodels.ETagAny matches any stored version.
// UpdateReplace overwrites the row; UpdateMerge only sets the marshalled attributes.
func (d *TableStore[T, PT]) UpdateEntity(ctx context.Context, entity T, mode storagemodels.UpdateMode) (*T, error) {
	pk, rk := PT(&entity).GetPartitionKey(), PT(&entity).GetRowKey()
	ifMatch := PT(&entity).GetETag()
	ctx, op := d.obs.Start(ctx, "UpdateEntity", keyAttrs(pk, rk)...)

	if err := datastore.ValidateEntityKeys(pk, rk); err != nil {
		return nil, op.End(err)
	}
	if ifMatch == "" {
		return nil, op.End(storeerrors.NewValidationError(storagemodels.ETagAttr, "required for update; use \"*\" to match any version"))
	}

	var cond expression.ConditionBuilder
	if ifMatch == storagemodels.ETagAny {
		cond = expression.AttributeExists(expression.Name(storagemodels.PartitionKeyAttr))
	} else {
		cond = expression.Name(storagemodels.ETagAttr).Equal(expression.Value(ifMatch))
	}
	condExpr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, op.End(fmt.Errorf("failed to build condition: %w", err))
	}

	stored, item, err := d.stamp(entity)
	if err != nil {
		return nil, op.End(err)
	}

	switch mode {
	case storagemodels.UpdateMerge:
		updateExpr, names, values := buildUpdateExpression(item)
		for k, v := range condExpr.Names() {
			names[k] = v
		}
		for k, v := range condExpr.Values() {
			values[k] = v
		}
		_, err = d.client.UpdateItem(ctx, &sdk.UpdateItemInput{
			TableName:                           aws.String(d.tableName),
			Key:                                 entityKey(pk, rk),
			UpdateExpression:                    aws.String(updateExpr),
			ConditionExpression:                 condExpr.Condition(),
			ExpressionAttributeNames:            names,
			ExpressionAttributeValues:           values,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
	default:
		_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
			TableName:                           aws.String(d.tableName),
			Item:                                item,
			ConditionExpression:                 condExpr.Condition(),
			ExpressionAttributeNames:            condExpr.Names(),
			ExpressionAttributeValues:           condExpr.Values(),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
	}
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			if len(cfe.Item) == 0 {
				return nil, op.End(storeerrors.NewNotFoundError("entity", storagemodels.EntityKey(pk, rk)))
			}
			return nil, op.End(storeerrors.NewConditionFailedError("UpdateEntity", "ETag "+ifMatch+" no longer matches"))
		}
		return nil, op.End(d.classify("UpdateEntity", err))
	}
	return stored, op.End(nil)
}

// DeleteEntity removes a row. Deleting a missing row, or a row in a missing table, succeeds.
func (d *TableStore[T, PT]) DeleteEntity(ctx context.Context, partitionKey, rowKey string) error {
	ctx, op := d.obs.Start(ctx, "DeleteEntity", keyAttrs(partitionKey, rowKey)...)

	if err := datastore.ValidateEntityKeys(partitionKey, rowKey); err != nil {
		return op.End(err)
	}

	_, err := d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       entityKey(partitionKey, rowKey),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return op.End(nil)
		}
		return op.End(d.classify("DeleteEntity", err))
	}
	return op.End(nil)
}

// stamp copies entity, assigns a fresh Timestamp and ETag to the copy and
// marshals it. The caller's value is left untouched.
func (d *TableStore[T, PT]) stamp(entity T) (*T, map[string]types.AttributeValue, error) {
	stored := entity
	ts := strfmt.DateTime(d.now().UTC().Truncate(time.Millisecond))
	PT(&stored).SetSystemProperties(ts, d.newETag())

	item, err := d.marshal(PT(&stored))
	if err != nil {
		return nil, nil, err
	}
	return &stored, item, nil
}

func (d *TableStore[T, PT]) marshal(entity PT) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	// System fields are owned by the store and always written explicitly.
	av[storagemodels.PartitionKeyAttr] = &types.AttributeValueMemberS{Value: entity.GetPartitionKey()}
	av[storagemodels.RowKeyAttr] = &types.AttributeValueMemberS{Value: entity.GetRowKey()}
	av[storagemodels.TimestampAttr] = &types.AttributeValueMemberS{Value: entity.GetTimestamp().String()}
	av[storagemodels.ETagAttr] = &types.AttributeValueMemberS{Value: entity.GetETag()}
	return av, nil
}

func (d *TableStore[T, PT]) unmarshal(item map[string]types.AttributeValue) (*T, error) {
	result := new(T)
	if err := attributevalue.UnmarshalMap(item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	var ts strfmt.DateTime
	if v, ok := item[storagemodels.TimestampAttr].(*types.AttributeValueMemberS); ok && v.Value != "" {
		parsed, err := strfmt.ParseDateTime(v.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", storagemodels.TimestampAttr, err)
		}
		ts = parsed
	}
	var etag string
	if v, ok := item[storagemodels.ETagAttr].(*types.AttributeValueMemberS); ok {
		etag = v.Value
	}
	PT(result).SetSystemProperties(ts, etag)
	return result, nil
}

func entityKey(partitionKey, rowKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		storagemodels.PartitionKeyAttr: &types.AttributeValueMemberS{Value: partitionKey},
		storagemodels.RowKeyAttr:       &types.AttributeValueMemberS{Value: rowKey},
	}
}

func keyAttrs(partitionKey, rowKey string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("partitionKey", partitionKey),
		attribute.String("rowKey", rowKey),
	}
}

// buildUpdateExpression transforms the non-key attributes of item into:
//   - an "update expression" (e.g., "SET #f0 = :v0, #f1 = :v1")
//   - a corresponding map of expression attribute names
//   - a corresponding map of expression attribute values
//
// Attributes are emitted in name order so the expression is stable.
func buildUpdateExpression(item map[string]types.AttributeValue) (string, map[string]string, map[string]types.AttributeValue) {
	fields := make([]string, 0, len(item))
	for field := range item {
		if field == storagemodels.PartitionKeyAttr || field == storagemodels.RowKeyAttr {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(fields))
	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)
		setClauses = append(setClauses, placeholderName+" = "+placeholderValue)
		names[placeholderName] = field
		values[placeholderValue] = item[field]
	}
	return "SET " + strings.Join(setClauses, ", "), names, values
}
