package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

var errInjected = errors.New("injected failure")

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testSettings() *config.Settings {
	return &config.Settings{
		DBDriver:              config.DriverPostgres,
		Seed:                  42,
		NumUsers:              20,
		BcryptCost:            4,
		NumProducts:           40,
		NumEvents:             250,
		EventBatchSize:        100,
		InventoryBatchSize:    10,
		NumOrders:             30,
		OrderBatchSize:        10,
		ProductChunkSize:      16,
		RelationshipChunkSize: 7,
		RelationshipRowLimit:  100000,
		NumSessions:           25,
		SessionTTL:            time.Hour,
		SessionWorkers:        4,
		RunLockTTL:            time.Minute,
	}
}

// fakeDocs keeps documents as raw BSON so reads decode like the real driver.
type fakeDocs struct {
	mu          sync.Mutex
	collections map[string][]bson.Raw
	indexes     map[string][]string
	failInsert  map[string]bool
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		collections: map[string][]bson.Raw{},
		indexes:     map[string][]string{},
		failInsert:  map[string]bool{},
	}
}

func (d *fakeDocs) Find(ctx context.Context, collection string, filter, projection any) ([]bson.Raw, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bson.Raw(nil), d.collections[collection]...), nil
}

func (d *fakeDocs) InsertMany(ctx context.Context, collection string, docs []any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failInsert[collection] {
		return errInjected
	}
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		d.collections[collection] = append(d.collections[collection], raw)
	}
	return nil
}

func (d *fakeDocs) Drop(ctx context.Context, collection string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.collections, collection)
	return nil
}

func (d *fakeDocs) CreateIndex(ctx context.Context, collection, field string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indexes[collection] = append(d.indexes[collection], field)
	return nil
}

func (d *fakeDocs) count(collection string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.collections[collection])
}

func (d *fakeDocs) seedProducts(products ...models.Product) {
	docs := make([]any, len(products))
	for i := range products {
		docs[i] = products[i]
	}
	if err := d.InsertMany(context.Background(), models.CollectionProducts, docs); err != nil {
		panic(err)
	}
}

// fakeRel is an in-memory relational store with orders committed per batch.
type fakeRel struct {
	mu          sync.Mutex
	users       []models.User
	inventory   map[string]models.Inventory
	orders      map[int]models.Order
	items       []models.OrderItem
	returns     []models.Return
	nextOrderId int
	nextReturn  int

	failUsers            bool
	failInventoryCalls   map[int]bool
	failFindInventory    bool
	inventoryCalls       int
	failItemsForOrderIds map[int]bool
	commits              int
	rollbacks            int
}

func newFakeRel() *fakeRel {
	return &fakeRel{
		inventory:            map[string]models.Inventory{},
		orders:               map[int]models.Order{},
		failInventoryCalls:   map[int]bool{},
		failItemsForOrderIds: map[int]bool{},
	}
}

func (r *fakeRel) UserIDs(ctx context.Context) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.users))
	for _, u := range r.users {
		ids = append(ids, u.UserId)
	}
	return ids, nil
}

func (r *fakeRel) InsertUsers(ctx context.Context, users []models.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUsers {
		return 0, errInjected
	}
	seen := map[string]bool{}
	for _, u := range r.users {
		seen[u.Email] = true
	}
	var inserted int64
	for _, u := range users {
		if seen[u.Email] {
			continue
		}
		seen[u.Email] = true
		u.UserId = len(r.users) + 1
		r.users = append(r.users, u)
		inserted++
	}
	return inserted, nil
}

func (r *fakeRel) InsertInventory(ctx context.Context, rows []models.Inventory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.inventoryCalls
	r.inventoryCalls++
	if r.failInventoryCalls[call] {
		return 0, errInjected
	}
	var inserted int64
	for _, row := range rows {
		if _, ok := r.inventory[row.Sku]; ok {
			continue
		}
		r.inventory[row.Sku] = row
		inserted++
	}
	return inserted, nil
}

func (r *fakeRel) FindInventory(ctx context.Context, skus []string) ([]models.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFindInventory {
		return nil, errInjected
	}
	var rows []models.Inventory
	for _, sku := range skus {
		if row, ok := r.inventory[sku]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (r *fakeRel) BeginBatch(ctx context.Context) (stores.OrderBatch, error) {
	return &fakeBatch{rel: r}, nil
}

func (r *fakeRel) OrderProductTriples(ctx context.Context, limit int) ([]models.OrderProductRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := append([]models.OrderItem(nil), r.items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].OrderId < items[j].OrderId })
	var rows []models.OrderProductRow
	for _, item := range items {
		if len(rows) == limit {
			break
		}
		rows = append(rows, models.OrderProductRow{
			UserId:         r.orders[item.OrderId].UserId,
			OrderId:        item.OrderId,
			MongoProductId: item.MongoProductId,
		})
	}
	return rows, nil
}

func (r *fakeRel) snapshot() (orders map[int]models.Order, items []models.OrderItem, returns []models.Return) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orders = make(map[int]models.Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	return orders, append([]models.OrderItem(nil), r.items...), append([]models.Return(nil), r.returns...)
}

type fakeBatch struct {
	rel     *fakeRel
	orders  []models.Order
	items   []models.OrderItem
	returns []models.Return
	done    bool
}

func (b *fakeBatch) InsertOrder(ctx context.Context, order *models.Order) error {
	b.rel.mu.Lock()
	b.rel.nextOrderId++
	order.OrderId = b.rel.nextOrderId
	b.rel.mu.Unlock()
	b.orders = append(b.orders, *order)
	return nil
}

func (b *fakeBatch) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	b.rel.mu.Lock()
	fail := len(items) > 0 && b.rel.failItemsForOrderIds[items[0].OrderId]
	b.rel.mu.Unlock()
	if fail {
		return errInjected
	}
	b.items = append(b.items, items...)
	return nil
}

func (b *fakeBatch) UpdateOrderTotals(ctx context.Context, order *models.Order) error {
	for i := range b.orders {
		if b.orders[i].OrderId == order.OrderId {
			b.orders[i].TaxAmount = order.TaxAmount
			b.orders[i].ShippingCost = order.ShippingCost
			b.orders[i].TotalAmount = order.TotalAmount
			return nil
		}
	}
	return errors.New("order not in batch")
}

func (b *fakeBatch) InsertReturn(ctx context.Context, ret *models.Return) error {
	b.returns = append(b.returns, *ret)
	return nil
}

func (b *fakeBatch) Commit() error {
	if b.done {
		return errors.New("batch already closed")
	}
	b.done = true
	b.rel.mu.Lock()
	defer b.rel.mu.Unlock()
	for _, o := range b.orders {
		b.rel.orders[o.OrderId] = o
	}
	b.rel.items = append(b.rel.items, b.items...)
	for _, ret := range b.returns {
		b.rel.nextReturn++
		ret.ReturnId = b.rel.nextReturn
		b.rel.returns = append(b.rel.returns, ret)
	}
	b.rel.commits++
	return nil
}

func (b *fakeBatch) Rollback() error {
	if b.done {
		return errors.New("batch already closed")
	}
	b.done = true
	b.rel.mu.Lock()
	b.rel.rollbacks++
	b.rel.mu.Unlock()
	return nil
}

type edge struct{ from, to string }

// fakeGraph interprets the projector's fixed statements over in-memory sets.
type fakeGraph struct {
	mu        sync.Mutex
	products  map[string]map[string]any
	users     map[int64]bool
	orders    map[int64]bool
	placed    map[edge]bool
	contains  map[edge]bool
	failBatch map[string]int
}

func newFakeGraph() *fakeGraph {
	g := &fakeGraph{failBatch: map[string]int{}}
	g.reset()
	return g
}

func (g *fakeGraph) reset() {
	g.products = map[string]map[string]any{}
	g.users = map[int64]bool{}
	g.orders = map[int64]bool{}
	g.placed = map[edge]bool{}
	g.contains = map[edge]bool{}
}

func (g *fakeGraph) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch query {
	case ClearGraphQuery:
		g.reset()
	case ProductConstraintQuery, UserConstraintQuery:
	default:
		return nil, errors.New("unexpected query")
	}
	return nil, nil
}

func (g *fakeGraph) RunBatch(ctx context.Context, query string, batch []map[string]any) ([]map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failBatch[query] > 0 {
		g.failBatch[query]--
		return nil, errInjected
	}
	switch query {
	case MergeProductsQuery:
		for _, row := range batch {
			g.products[row["id"].(string)] = map[string]any{"name": row["name"], "category": row["category"]}
		}
		return nil, nil
	case MergeOrdersQuery:
		requested, linked := int64(0), int64(0)
		for _, row := range batch {
			oid, uid := row["oid"].(int64), row["uid"].(int64)
			g.users[uid] = true
			g.orders[oid] = true
			g.placed[edge{from: fmtID(uid), to: fmtID(oid)}] = true
			for _, pid := range row["pids"].([]string) {
				requested++
				if _, ok := g.products[pid]; !ok {
					continue
				}
				linked++
				g.contains[edge{from: fmtID(oid), to: pid}] = true
			}
		}
		return []map[string]any{{"requested": requested, "linked": linked}}, nil
	}
	return nil, errors.New("unexpected batch query")
}

func (g *fakeGraph) counts() (nodes, edges int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.products) + len(g.users) + len(g.orders), len(g.placed) + len(g.contains)
}

func fmtID(n int64) string {
	return fmt.Sprintf("#%d", n)
}

type fakeKV struct {
	mu      sync.Mutex
	hashes  map[string]map[string]any
	ttls    map[string]time.Duration
	failSet map[string]bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{hashes: map[string]map[string]any{}, ttls: map[string]time.Duration{}, failSet: map[string]bool{}}
}

func (k *fakeKV) HashSet(ctx context.Context, key string, fields map[string]any) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failSet[key] {
		return errInjected
	}
	k.hashes[key] = fields
	return nil
}

func (k *fakeKV) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := map[string]string{}
	for f, v := range k.hashes[key] {
		out[f], _ = v.(string)
	}
	return out, nil
}

func (k *fakeKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ttls[key] = ttl
	return nil
}

func (k *fakeKV) ScanKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var keys []string
	for key := range k.hashes {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (k *fakeKV) Delete(ctx context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.hashes, key)
		delete(k.ttls, key)
	}
	return nil
}

type fakeLocker struct {
	mu          sync.Mutex
	held        map[string]bool
	refreshes   int
	failRefresh bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (stores.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, stores.ErrLockNotObtained
	}
	l.held[key] = true
	return &fakeLease{locker: l, key: key}, nil
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (f *fakeLease) Refresh(ctx context.Context, ttl time.Duration) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	if f.locker.failRefresh || !f.locker.held[f.key] {
		return stores.ErrLockNotObtained
	}
	f.locker.refreshes++
	return nil
}

func (f *fakeLease) Release(ctx context.Context) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	delete(f.locker.held, f.key)
	return nil
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }
