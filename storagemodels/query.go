/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// QueryFilter scopes QueryEntities. The zero value selects every entity in the table.
type QueryFilter struct {
	// PartitionKey restricts results to one partition when non-empty.
	PartitionKey string
	// Attributes holds equality conditions on non-key attributes, ANDed together.
	Attributes map[string]any
}

// IsZero reports whether the filter selects the whole table.
func (f *QueryFilter) IsZero() bool {
	return f == nil || (f.PartitionKey == "" && len(f.Attributes) == 0)
}

// QueryProgress is reported after every page fetched from the store.
type QueryProgress struct {
	ItemsProcessed int64 // Total items yielded so far
	PagesProcessed int   // Total pages fetched so far
	LastPage       bool  // True on the final report
}

// QueryOptions configures how QueryEntities walks the store.
type QueryOptions struct {
	PageSize        int32               // Items per store page; 0 lets the store decide
	ProgressHandler func(QueryProgress) // Optional progress callback
}

// QueryOption is a functional option for configuring queries
type QueryOption func(*QueryOptions)

// DefaultQueryOptions returns default query options
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		PageSize: 0,
	}
}

// ApplyQueryOptions folds opts over the defaults.
func ApplyQueryOptions(opts ...QueryOption) QueryOptions {
	options := DefaultQueryOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithPageSize sets the store page size
func WithPageSize(size int32) QueryOption {
	return func(opts *QueryOptions) {
		opts.PageSize = size
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(QueryProgress)) QueryOption {
	return func(opts *QueryOptions) {
		opts.ProgressHandler = handler
	}
}
