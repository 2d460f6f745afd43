/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagegateway

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/storagegateway/config"
	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/internal/logging"
	"github.com/suparena/storagegateway/storagemodels"
)

// Gateway bundles the blob store and every table store opened through it.
// Table stores are cached per row type and table name, so repeated lookups
// share one store (and, for the memory backend, one set of rows).
// The two halves open independently: a blob backend that cannot be reached
// does not keep the tables from working.
type Gateway struct {
	cfg    config.Config
	logger *slog.Logger

	blobOnce sync.Once
	blobs    datastore.BlobStore
	blobErr  error

	mu     sync.RWMutex
	tables map[tableKey]any
}

type tableKey struct {
	typ  reflect.Type
	name string
}

// New validates cfg. Stores are opened on first use. A nil logger discards.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gateway{
		cfg:    *cfg,
		logger: logging.OrDiscard(logger),
		tables: make(map[tableKey]any),
	}, nil
}

// Config returns a copy of the configuration the gateway was built from.
func (g *Gateway) Config() config.Config {
	return g.cfg
}

// Blobs returns the configured blob store, opening it on the first call.
// An open failure is remembered and returned by every later call.
func (g *Gateway) Blobs(ctx context.Context) (datastore.BlobStore, error) {
	g.blobOnce.Do(func() {
		g.blobs, g.blobErr = OpenBlobStore(ctx, &g.cfg, g.logger)
	})
	return g.blobs, g.blobErr
}

// Table returns the store for rows of type T in the named table, opening it on
// first use. An empty name selects the configured default table.
func Table[T any, PT storagemodels.EntityPtr[T]](ctx context.Context, g *Gateway, name string) (datastore.TableStore[T], error) {
	if name == "" {
		name = g.cfg.Table.Name
	}
	key := tableKey{typ: reflect.TypeFor[T](), name: name}

	g.mu.RLock()
	cached, ok := g.tables[key]
	g.mu.RUnlock()
	if ok {
		return cached.(datastore.TableStore[T]), nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if cached, ok := g.tables[key]; ok {
		return cached.(datastore.TableStore[T]), nil
	}
	store, err := OpenTableStore[T, PT](ctx, &g.cfg, name, g.logger)
	if err != nil {
		return nil, err
	}
	g.tables[key] = store
	return store, nil
}

// Tables lists the names of the tables opened so far, sorted and without
// duplicates.
func (g *Gateway) Tables() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool, len(g.tables))
	names := make([]string, 0, len(g.tables))
	for key := range g.tables {
		if !seen[key.name] {
			seen[key.name] = true
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}
