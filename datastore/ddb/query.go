/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/storagemodels"
)

// pager hides the difference between Scan and Query pagination.
type pager interface {
	HasMorePages() bool
	NextPage(ctx context.Context) ([]map[string]types.AttributeValue, error)
}

type scanPager struct{ p *sdk.ScanPaginator }

func (s scanPager) HasMorePages() bool { return s.p.HasMorePages() }

func (s scanPager) NextPage(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	out, err := s.p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

type queryPager struct{ p *sdk.QueryPaginator }

func (q queryPager) HasMorePages() bool { return q.p.HasMorePages() }

func (q queryPager) NextPage(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	out, err := q.p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// QueryEntities returns every entity matching filter as a lazy sequence.
// A partition-scoped filter issues a Query; anything else issues a Scan.
// Store pages are followed transparently. Each range over the sequence starts
// a fresh walk, so the sequence can be consumed more than once.
// Iteration stops after the first error is yielded.
func (d *TableStore[T, PT]) QueryEntities(ctx context.Context, filter *storagemodels.QueryFilter, opts ...storagemodels.QueryOption) iter.Seq2[*T, error] {
	options := storagemodels.ApplyQueryOptions(opts...)

	return func(yield func(*T, error) bool) {
		var attrs []attribute.KeyValue
		if filter != nil && filter.PartitionKey != "" {
			attrs = append(attrs, attribute.String("partitionKey", filter.PartitionKey))
		}
		ctx, op := d.obs.Start(ctx, "QueryEntities", attrs...)

		pages, err := d.newPager(filter, options)
		if err != nil {
			yield(nil, op.End(err))
			return
		}

		var items int64
		var pageCount int
		for pages.HasMorePages() {
			page, err := pages.NextPage(ctx)
			if err != nil {
				yield(nil, op.End(d.classify("QueryEntities", err)))
				return
			}
			pageCount++

			for _, item := range page {
				entity, err := d.unmarshal(item)
				if err != nil {
					yield(nil, op.End(err))
					return
				}
				items++
				if !yield(entity, nil) {
					op.End(nil)
					return
				}
			}

			if options.ProgressHandler != nil {
				options.ProgressHandler(storagemodels.QueryProgress{
					ItemsProcessed: items,
					PagesProcessed: pageCount,
					LastPage:       !pages.HasMorePages(),
				})
			}
		}
		op.End(nil)
	}
}

func (d *TableStore[T, PT]) newPager(filter *storagemodels.QueryFilter, options storagemodels.QueryOptions) (pager, error) {
	var limit *int32
	if options.PageSize > 0 {
		limit = aws.Int32(options.PageSize)
	}

	if filter.IsZero() {
		return scanPager{sdk.NewScanPaginator(d.client, &sdk.ScanInput{
			TableName: aws.String(d.tableName),
			Limit:     limit,
		})}, nil
	}

	builder := expression.NewBuilder()
	if cond, ok := attributeCondition(filter.Attributes); ok {
		builder = builder.WithFilter(cond)
	}

	if filter.PartitionKey != "" {
		if err := datastore.ValidateKey(storagemodels.PartitionKeyAttr, filter.PartitionKey); err != nil {
			return nil, err
		}
		builder = builder.WithKeyCondition(
			expression.Key(storagemodels.PartitionKeyAttr).Equal(expression.Value(filter.PartitionKey)),
		)
		expr, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build query expression: %w", err)
		}
		return queryPager{sdk.NewQueryPaginator(d.client, &sdk.QueryInput{
			TableName:                 aws.String(d.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Limit:                     limit,
		})}, nil
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}
	return scanPager{sdk.NewScanPaginator(d.client, &sdk.ScanInput{
		TableName:                 aws.String(d.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     limit,
	})}, nil
}

// attributeCondition ANDs one equality test per attribute, in name order.
func attributeCondition(attrs map[string]any) (expression.ConditionBuilder, bool) {
	if len(attrs) == 0 {
		return expression.ConditionBuilder{}, false
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	conds := make([]expression.ConditionBuilder, 0, len(names))
	for _, name := range names {
		conds = append(conds, expression.Name(name).Equal(expression.Value(attrs[name])))
	}
	if len(conds) == 1 {
		return conds[0], true
	}
	return conds[0].And(conds[1], conds[2:]...), true
}
