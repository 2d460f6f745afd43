/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package storetest holds the behavioural contract every TableStore and
// BlobStore implementation is tested against. Backends call RunTableStore and
// RunBlobStore from their own tests.
package storetest
