/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package s3blob implements datastore.BlobStore on Amazon S3 or any
// S3-compatible endpoint. Containers map to buckets and blob names to object
// keys. Streams are uploaded with the SDK's multipart upload manager, so the
// body does not need to fit in memory or report its length.
package s3blob
