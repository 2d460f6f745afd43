/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

type fakeUpload struct {
	bucket, key string
	input       *s3.CreateMultipartUploadInput
	parts       map[int32][]byte
}

// fakeClient is an in-memory S3 covering the calls Store and manager.Uploader make.
type fakeClient struct {
	mu      sync.Mutex
	buckets map[string]map[string]*fakeObject
	uploads map[string]*fakeUpload

	failWith        error
	calls           map[string]int
	lastCreate      *s3.CreateBucketInput
	afterHeadObject func(objects map[string]*fakeObject) // runs once, under the lock, after a HeadObject miss
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		buckets: make(map[string]map[string]*fakeObject),
		uploads: make(map[string]*fakeUpload),
		calls:   make(map[string]int),
	}
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

func (f *fakeClient) object(bucket, key string) *fakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket][key]
}

func (f *fakeClient) bucket(name *string) (map[string]*fakeObject, error) {
	b, ok := f.buckets[aws.ToString(name)]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}
	return b, nil
}

func (f *fakeClient) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateBucket"); err != nil {
		return nil, err
	}
	f.lastCreate = params
	name := aws.ToString(params.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{Message: aws.String("bucket exists")}
	}
	f.buckets[name] = make(map[string]*fakeObject)
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeClient) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("HeadBucket"); err != nil {
		return nil, err
	}
	if _, ok := f.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("HeadObject"); err != nil {
		return nil, err
	}
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	obj, ok := b[aws.ToString(params.Key)]
	if !ok {
		if hook := f.afterHeadObject; hook != nil {
			f.afterHeadObject = nil
			hook(b)
		}
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(obj.body)))}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetObject"); err != nil {
		return nil, err
	}
	b, err := f.bucket(params.Bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := b[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.body)),
		ContentLength: aws.Int64(int64(len(obj.body))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteObject"); err != nil {
		return nil, err
	}
	b, err := f.bucket(params.Bucket)
	if err != nil {
		return nil, err
	}
	delete(b, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	var body []byte
	if params.Body != nil {
		var err error
		if body, err = io.ReadAll(params.Body); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutObject"); err != nil {
		return nil, err
	}
	b, err := f.bucket(params.Bucket)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	if aws.ToString(params.IfNoneMatch) == "*" {
		if _, exists := b[key]; exists {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	b[key] = &fakeObject{body: body, contentType: aws.ToString(params.ContentType), metadata: params.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateMultipartUpload"); err != nil {
		return nil, err
	}
	if _, err := f.bucket(params.Bucket); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("upload-%d", len(f.uploads)+1)
	f.uploads[id] = &fakeUpload{
		bucket: aws.ToString(params.Bucket),
		key:    aws.ToString(params.Key),
		input:  params,
		parts:  make(map[int32][]byte),
	}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (f *fakeClient) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UploadPart"); err != nil {
		return nil, err
	}
	up, ok := f.uploads[aws.ToString(params.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("no such upload")}
	}
	n := aws.ToInt32(params.PartNumber)
	up.parts[n] = body
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"part-%d"`, n))}, nil
}

func (f *fakeClient) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CompleteMultipartUpload"); err != nil {
		return nil, err
	}
	id := aws.ToString(params.UploadId)
	up, ok := f.uploads[id]
	if !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("no such upload")}
	}
	delete(f.uploads, id)

	numbers := make([]int, 0, len(up.parts))
	for n := range up.parts {
		numbers = append(numbers, int(n))
	}
	sort.Ints(numbers)
	var body []byte
	for _, n := range numbers {
		body = append(body, up.parts[int32(n)]...)
	}

	b, err := f.bucket(aws.String(up.bucket))
	if err != nil {
		return nil, err
	}
	b[up.key] = &fakeObject{body: body, contentType: aws.ToString(up.input.ContentType), metadata: up.input.Metadata}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeClient) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AbortMultipartUpload"]++
	delete(f.uploads, aws.ToString(params.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}
