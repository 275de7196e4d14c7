// Package stores holds the minimal read/write contracts the pipeline needs
// from each engine, and their vendor implementations.
package stores

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/polystore_seed/models"
	"go.mongodb.org/mongo-driver/bson"
)

// DocumentStore is the catalog and behavioral event store.
type DocumentStore interface {
	Find(ctx context.Context, collection string, filter, projection any) ([]bson.Raw, error)
	InsertMany(ctx context.Context, collection string, docs []any) error
	Drop(ctx context.Context, collection string) error
	CreateIndex(ctx context.Context, collection, field string) error
}

// RelationalStore holds users, inventory, orders, order items and returns.
type RelationalStore interface {
	UserIDs(ctx context.Context) ([]int, error)
	// InsertUsers skips users whose email already exists.
	InsertUsers(ctx context.Context, users []models.User) (int64, error)
	// InsertInventory inserts rows in one transaction, skipping skus that already
	// exist. It returns the number of rows actually inserted.
	InsertInventory(ctx context.Context, rows []models.Inventory) (int64, error)
	// FindInventory returns the stored rows for skus, in no particular order.
	FindInventory(ctx context.Context, skus []string) ([]models.Inventory, error)
	BeginBatch(ctx context.Context) (OrderBatch, error)
	OrderProductTriples(ctx context.Context, limit int) ([]models.OrderProductRow, error)
}

// OrderBatch is one commit window of order writes.
type OrderBatch interface {
	// InsertOrder stores a draft header and sets order.OrderId.
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
	UpdateOrderTotals(ctx context.Context, order *models.Order) error
	InsertReturn(ctx context.Context, ret *models.Return) error
	Commit() error
	Rollback() error
}

// GraphStore runs parameterized Cypher.
type GraphStore interface {
	Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	// RunBatch executes query once with the batch bound to $batch.
	RunBatch(ctx context.Context, query string, batch []map[string]any) ([]map[string]any, error)
}

// KeyValueStore holds cart session hashes.
type KeyValueStore interface {
	HashSet(ctx context.Context, key string, fields map[string]any) error
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	ScanKeysByPrefix(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
}

var ErrLockNotObtained = errors.New("lock not obtained")

// Locker grants exclusive leases across processes.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock. Refresh extends it to ttl from now and fails with
// ErrLockNotObtained once the lock has expired or moved to another holder.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Set bundles the four stores a run needs.
type Set struct {
	Documents  DocumentStore
	Relational RelationalStore
	Graph      GraphStore
	KeyValue   KeyValueStore
	Locker     Locker
}

// FindAll decodes every document matching filter into T.
func FindAll[T any](ctx context.Context, store DocumentStore, collection string, filter, projection any) ([]T, error) {
	raws, err := store.Find(ctx, collection, filter, projection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := bson.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
