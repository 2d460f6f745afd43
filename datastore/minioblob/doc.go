/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package minioblob implements datastore.BlobStore with the MinIO client.
package minioblob
