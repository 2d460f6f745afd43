/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakePageCap stands in for DynamoDB's 1 MB page limit.
const fakePageCap = 1000

// fakeClient is an in-memory DynamoDB for tests. It understands the
// expressions this package generates: equality, attribute_exists and
// attribute_not_exists terms joined by AND, and "SET #fN = :vN" updates.
type fakeClient struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	failWith  error // returned by the next data-plane call when set
	calls     map[string]int
	lastQuery *sdk.QueryInput
	lastScan  *sdk.ScanInput
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		tables: make(map[string]map[string]map[string]types.AttributeValue),
		calls:  make(map[string]int),
	}
}

func (f *fakeClient) createTable(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = make(map[string]map[string]types.AttributeValue)
}

func (f *fakeClient) failNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *fakeClient) record(op string) error {
	f.calls[op]++
	if err := f.failWith; err != nil {
		f.failWith = nil
		return err
	}
	return nil
}

func (f *fakeClient) table(name *string) (map[string]map[string]types.AttributeValue, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return t, nil
}

func itemID(item map[string]types.AttributeValue) string {
	pk, _ := item["PartitionKey"].(*types.AttributeValueMemberS)
	rk, _ := item["RowKey"].(*types.AttributeValueMemberS)
	if pk == nil || rk == nil {
		return ""
	}
	return pk.Value + "\x00" + rk.Value
}

func (f *fakeClient) CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateTable"); err != nil {
		return nil, err
	}
	name := aws.ToString(params.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.tables[name] = make(map[string]map[string]types.AttributeValue)
	return &sdk.CreateTableOutput{
		TableDescription: &types.TableDescription{TableName: params.TableName, TableStatus: types.TableStatusCreating},
	}, nil
}

func (f *fakeClient) DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DescribeTable"]++
	if _, err := f.table(params.TableName); err != nil {
		return nil, err
	}
	return &sdk.DescribeTableOutput{
		Table: &types.TableDescription{TableName: params.TableName, TableStatus: types.TableStatusActive},
	}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id := itemID(params.Item)
	existing := t[id]
	if err := checkCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing, params.ReturnValuesOnConditionCheckFailure); err != nil {
		return nil, err
	}
	t[id] = copyItem(params.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t[itemID(params.Key)]
	if !ok {
		return &sdk.GetItemOutput{}, nil
	}
	return &sdk.GetItemOutput{Item: copyItem(item)}, nil
}

var setClause = regexp.MustCompile(`(#f\d+) = (:v\d+)`)

func (f *fakeClient) UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id := itemID(params.Key)
	existing := t[id]
	if err := checkCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing, params.ReturnValuesOnConditionCheckFailure); err != nil {
		return nil, err
	}
	updated := copyItem(existing)
	if updated == nil {
		updated = copyItem(params.Key)
	}
	for _, m := range setClause.FindAllStringSubmatch(aws.ToString(params.UpdateExpression), -1) {
		updated[params.ExpressionAttributeNames[m[1]]] = params.ExpressionAttributeValues[m[2]]
	}
	t[id] = updated
	return &sdk.UpdateItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	delete(t, itemID(params.Key))
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Query"); err != nil {
		return nil, err
	}
	f.lastQuery = params
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	var inPartition []map[string]types.AttributeValue
	for _, item := range sortedItems(t) {
		if matches(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, item) {
			inPartition = append(inPartition, item)
		}
	}
	items, last := page(inPartition, params.ExclusiveStartKey, params.Limit, aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	return &sdk.QueryOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last}, nil
}

func (f *fakeClient) Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Scan"); err != nil {
		return nil, err
	}
	f.lastScan = params
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	items, last := page(sortedItems(t), params.ExclusiveStartKey, params.Limit, aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	return &sdk.ScanOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last}, nil
}

func sortedItems(t map[string]map[string]types.AttributeValue) []map[string]types.AttributeValue {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyItem(t[id]))
	}
	return out
}

// page evaluates up to limit items after startKey, then applies the filter,
// mirroring DynamoDB's limit-before-filter behaviour.
func page(all []map[string]types.AttributeValue, startKey map[string]types.AttributeValue, limit *int32, filter string, names map[string]string, values map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	start := 0
	if len(startKey) > 0 {
		startID := itemID(startKey)
		start = sort.Search(len(all), func(i int) bool { return itemID(all[i]) > startID })
	}
	n := fakePageCap
	if limit != nil && int(*limit) < n {
		n = int(*limit)
	}
	end := start + n
	if end > len(all) {
		end = len(all)
	}

	var items []map[string]types.AttributeValue
	for _, item := range all[start:end] {
		if filter == "" || matches(filter, names, values, item) {
			items = append(items, item)
		}
	}

	var last map[string]types.AttributeValue
	if end < len(all) {
		last = map[string]types.AttributeValue{
			"PartitionKey": all[end-1]["PartitionKey"],
			"RowKey":       all[end-1]["RowKey"],
		}
	}
	return items, last
}

var (
	eqTerm        = regexp.MustCompile(`(#\w+) = (:\w+)`)
	existsTerm    = regexp.MustCompile(`attribute_exists \((#\w+)\)`)
	notExistsTerm = regexp.MustCompile(`attribute_not_exists \((#\w+)\)`)
)

// matches evaluates an AND-only expression against item. A nil item has no attributes.
func matches(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) bool {
	for _, m := range notExistsTerm.FindAllStringSubmatch(expr, -1) {
		if _, ok := item[names[m[1]]]; ok {
			return false
		}
	}
	for _, m := range existsTerm.FindAllStringSubmatch(expr, -1) {
		if _, ok := item[names[m[1]]]; !ok {
			return false
		}
	}
	for _, m := range eqTerm.FindAllStringSubmatch(expr, -1) {
		got, ok := item[names[m[1]]]
		if !ok || !reflect.DeepEqual(got, values[m[2]]) {
			return false
		}
	}
	return !strings.Contains(expr, " OR ")
}

func checkCondition(cond *string, names map[string]string, values map[string]types.AttributeValue, existing map[string]types.AttributeValue, rv types.ReturnValuesOnConditionCheckFailure) error {
	if cond == nil || matches(*cond, names, values, existing) {
		return nil
	}
	cfe := &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	if rv == types.ReturnValuesOnConditionCheckFailureAllOld && existing != nil {
		cfe.Item = copyItem(existing)
	}
	return cfe
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
