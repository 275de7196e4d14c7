package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// FrequentlyBoughtTerm is the product name fragment the graph query pivots on.
const FrequentlyBoughtTerm = "Headphones"

// Sources are the read handles the query battery runs against.
type Sources struct {
	Docs    *mongo.Database
	DB      *gorm.DB
	Dialect string
	Graph   stores.GraphStore
	KV      stores.KeyValueStore
	Now     func() time.Time
}

func (s Sources) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// RandomUserID picks one existing user for the per-user queries.
func RandomUserID(ctx context.Context, db *gorm.DB, dialect string) (int, error) {
	order := "RANDOM()"
	if dialect == config.DriverMySQL {
		order = "RAND()"
	}
	var ids []int
	if err := db.WithContext(ctx).Raw("SELECT user_id FROM users ORDER BY " + order + " LIMIT 1").Scan(&ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("no users found, run the seed pipeline first")
	}
	return ids[0], nil
}

// Battery returns the thirteen evaluation queries in report order.
func Battery(src Sources, userId int) []Query {
	return []Query{
		{Name: "query 1: fashion products", Run: src.fashionProducts},
		{Name: "query 2: recent views", Run: func(ctx context.Context, limit int) (Output, error) { return src.recentViews(ctx, userId, limit) }},
		{Name: "query 3: low stock", Run: src.lowStock},
		{Name: "query 4: fashion blue/large", Run: src.fashionBlueOrLarge},
		{Name: "query 5: product popularity", Run: src.productPopularity},
		{Name: "query 6: search terms", Run: func(ctx context.Context, limit int) (Output, error) { return src.searchTerms(ctx, userId, limit) }},
		{Name: "query 7: fetch carts (redis)", Run: src.carts},
		{Name: "query 8: user orders", Run: func(ctx context.Context, limit int) (Output, error) { return src.userOrders(ctx, userId, limit) }},
		{Name: "query 9: returned items", Run: func(ctx context.Context, limit int) (Output, error) { return src.returnedItems(ctx, userId) }},
		{Name: "query 10: avg days between purchases", Run: func(ctx context.Context, limit int) (Output, error) { return src.daysBetweenPurchases(ctx, userId) }},
		{Name: "query 11: cart abandonment", Run: func(ctx context.Context, limit int) (Output, error) { return src.cartAbandonment(ctx) }},
		{Name: "query 12: frequently bought together", Run: src.frequentlyBoughtTogether},
		{Name: "query 13: user lifetime stats", Run: src.lifetimeStats},
	}
}

func (s Sources) fashionProducts(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: "query 1: retrieve all 'fashion' products with attributes"}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "category", Value: "Fashion"}}}},
		{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}, {Key: "attributes", Value: 1}, {Key: "variants", Value: 1}}}},
	}
	cur, err := s.Docs.Collection(models.CollectionProducts).Aggregate(ctx, pipeline)
	if err != nil {
		return out, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return out, err
	}
	for _, p := range docs {
		out.Rows = append(out.Rows, fmt.Sprintf("product: %v, attributes: %v", p["name"], p["attributes"]))
	}
	out.Notes = append(out.Notes, fmt.Sprintf("(total %d items found)", len(docs)))
	return out, nil
}

func (s Sources) recentViews(ctx context.Context, userId, limit int) (Output, error) {
	out := Output{Title: fmt.Sprintf("query 2: last %s products viewed by user %d", limitLabel(limit), userId)}
	since := s.now().UTC().AddDate(0, 0, -180).Format(models.EventTimestampLayout)
	filter := bson.D{
		{Key: "user_id", Value: userId},
		{Key: "event_type", Value: models.EventTypeViewProduct},
		{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since}}},
	}
	opts := options.Find().
		SetProjection(bson.D{{Key: "details.product_id", Value: 1}, {Key: "timestamp", Value: 1}}).
		SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.Docs.Collection(models.CollectionUserEvents).Find(ctx, filter, opts)
	if err != nil {
		return out, err
	}
	var events []struct {
		Timestamp string `bson:"timestamp"`
		Details   struct {
			ProductId string `bson:"product_id"`
		} `bson:"details"`
	}
	if err := cur.All(ctx, &events); err != nil {
		return out, err
	}
	for _, e := range events {
		out.Rows = append(out.Rows, fmt.Sprintf("viewed: %s at %s", e.Details.ProductId, e.Timestamp))
	}
	return out, nil
}

func (s Sources) lowStock(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: "query 3: check current stock level (low stock < 5)"}
	var rows []struct {
		Sku        string
		StockLevel int
	}
	err := s.DB.WithContext(ctx).Raw("SELECT sku, stock_level FROM inventory WHERE stock_level < 5" + limitClause(limit)).Scan(&rows).Error
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, fmt.Sprintf("low stock warning: sku %s has only %d left.", r.Sku, r.StockLevel))
	}
	return out, nil
}

func (s Sources) fashionBlueOrLarge(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: "query 4: fashion products (blue or large)"}
	filter := bson.D{
		{Key: "category", Value: "Fashion"},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "variants.color", Value: "Blue"}},
			bson.D{{Key: "variants.size", Value: "L"}},
			bson.D{{Key: "attributes.size", Value: "L"}},
		}},
	}
	coll := s.Docs.Collection(models.CollectionProducts)
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return out, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return out, err
	}
	for _, p := range docs {
		out.Rows = append(out.Rows, fmt.Sprintf("product: %v, attributes: %v", p["name"], p["attributes"]))
	}
	count, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return out, err
	}
	out.Notes = append(out.Notes, fmt.Sprintf("found %d products matching criteria.", count))
	return out, nil
}

func (s Sources) productPopularity(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: "query 5: product page views (ordered by popularity)"}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "event_type", Value: models.EventTypeViewProduct}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$details.product_id"}, {Key: "views", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "views", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	cur, err := s.Docs.Collection(models.CollectionUserEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return out, err
	}
	var rows []struct {
		ProductId string `bson:"_id"`
		Views     int    `bson:"views"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return out, err
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, fmt.Sprintf("product %s: %d views", r.ProductId, r.Views))
	}
	return out, nil
}

func hourBetween(lo, hi int) bson.D {
	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$gte", Value: bson.A{"$hour", lo}}},
		bson.D{{Key: "$lt", Value: bson.A{"$hour", hi}}},
	}}}
}

func (s Sources) searchTerms(ctx context.Context, userId, limit int) (Output, error) {
	out := Output{Title: fmt.Sprintf("query 6: recent search terms for user %d (frequency & time of day)", userId)}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userId}, {Key: "event_type", Value: models.EventTypeSearch}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "query", Value: "$details.query"},
			{Key: "hour", Value: bson.D{{Key: "$hour", Value: bson.D{{Key: "$dateFromString", Value: bson.D{{Key: "dateString", Value: "$timestamp"}}}}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "query", Value: 1},
			{Key: "time_of_day", Value: bson.D{{Key: "$switch", Value: bson.D{
				{Key: "branches", Value: bson.A{
					bson.D{{Key: "case", Value: hourBetween(5, 12)}, {Key: "then", Value: "Morning"}},
					bson.D{{Key: "case", Value: hourBetween(12, 17)}, {Key: "then", Value: "Afternoon"}},
					bson.D{{Key: "case", Value: hourBetween(17, 21)}, {Key: "then", Value: "Evening"}},
				}},
				{Key: "default", Value: "Night"},
			}}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "query", Value: "$query"}, {Key: "tod", Value: "$time_of_day"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	cur, err := s.Docs.Collection(models.CollectionUserEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return out, err
	}
	var rows []struct {
		Key struct {
			Query string `bson:"query"`
			Tod   string `bson:"tod"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return out, err
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, fmt.Sprintf("term: '%s', time: %s, count: %d", r.Key.Query, r.Key.Tod, r.Count))
	}
	return out, nil
}

func (s Sources) carts(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: "query 7: fetch all carts (from redis)"}
	keys, err := s.KV.ScanKeysByPrefix(ctx, models.CartKeyPrefix)
	if err != nil {
		return out, err
	}
	out.Notes = append(out.Notes, fmt.Sprintf("total active carts in redis: %d", len(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	for _, key := range keys {
		cart, err := s.KV.HashGetAll(ctx, key)
		if err != nil {
			return out, err
		}
		var items []models.CartItem
		if raw, ok := cart["items"]; ok {
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return out, fmt.Errorf("decode %s items: %w", key, err)
			}
		}
		out.Rows = append(out.Rows, fmt.Sprintf("cart (%s): user %s on %s has %d items. total: $%s",
			key, cart["user_id"], cart["device"], models.ItemCount(items), cart["total_amount"]))
	}
	return out, nil
}

func (s Sources) userOrders(ctx context.Context, userId, limit int) (Output, error) {
	out := Output{Title: fmt.Sprintf("query 8: retrieve all orders for user %d", userId)}
	var rows []struct {
		OrderId        int
		Status         string
		TotalAmount    decimal.Decimal
		ShippingMethod *string
	}
	err := s.DB.WithContext(ctx).Raw(`
		SELECT o.order_id, o.status, o.total_amount, s.shipping_method
		FROM orders o LEFT JOIN shipments s ON o.order_id = s.order_id
		WHERE o.user_id = ?`+limitClause(limit), userId).Scan(&rows).Error
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		ship := "None"
		if r.ShippingMethod != nil {
			ship = *r.ShippingMethod
		}
		out.Rows = append(out.Rows, fmt.Sprintf("order %d: status=%s, total=$%s, ship=%s", r.OrderId, r.Status, r.TotalAmount.StringFixed(2), ship))
	}
	return out, nil
}

func (s Sources) returnedItems(ctx context.Context, userId int) (Output, error) {
	out := Output{Title: fmt.Sprintf("query 9: list items returned by user %d", userId)}
	var rows []struct {
		ReturnId     int
		Sku          string
		RefundAmount decimal.Decimal
		Status       string
	}
	err := s.DB.WithContext(ctx).Raw(`
		SELECT r.return_id, r.sku, r.refund_amount, r.status FROM returns r
		JOIN orders o ON r.order_id = o.order_id WHERE o.user_id = ?`, userId).Scan(&rows).Error
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, fmt.Sprintf("return %d: sku %s, refund $%s, status %s", r.ReturnId, r.Sku, r.RefundAmount.StringFixed(2), r.Status))
	}
	if len(rows) == 0 {
		out.Notes = append(out.Notes, "no returns found for this user.")
	}
	return out, nil
}

func (s Sources) daysBetweenPurchases(ctx context.Context, userId int) (Output, error) {
	out := Output{Title: fmt.Sprintf("query 10: average days between purchases for user %d", userId)}
	gap := `EXTRACT(DAY FROM (o.created_at - (
			SELECT MAX(sub.created_at) FROM orders sub
			WHERE sub.user_id = o.user_id AND sub.created_at < o.created_at)))`
	if s.Dialect == config.DriverMySQL {
		gap = `TIMESTAMPDIFF(DAY, (
			SELECT MAX(sub.created_at) FROM orders sub
			WHERE sub.user_id = o.user_id AND sub.created_at < o.created_at), o.created_at)`
	}
	var avg sql.NullFloat64
	err := s.DB.WithContext(ctx).Raw("SELECT AVG("+gap+") AS avg_days FROM orders o WHERE o.user_id = ?", userId).Row().Scan(&avg)
	if err != nil {
		return out, err
	}
	if !avg.Valid {
		out.Notes = append(out.Notes, "average days: n/a (not enough orders)")
		return out, nil
	}
	out.Rows = append(out.Rows, fmt.Sprintf("average days: %.2f", avg.Float64))
	return out, nil
}

// AbandonmentRate is the share of carting sessions that never purchased, in percent.
func AbandonmentRate(carts, purchases int) (float64, bool) {
	if carts <= 0 {
		return 0, false
	}
	return float64(carts-purchases) / float64(carts) * 100, true
}

func (s Sources) cartAbandonment(ctx context.Context) (Output, error) {
	out := Output{Title: "query 11: cart abandonment % (last 30 days)"}
	coll := s.Docs.Collection(models.CollectionUserEvents)
	carts, err := coll.Distinct(ctx, "session_id", bson.D{{Key: "event_type", Value: models.EventTypeAddToCart}})
	if err != nil {
		return out, err
	}
	purchases, err := coll.Distinct(ctx, "session_id", bson.D{{Key: "event_type", Value: models.EventTypePurchaseCompleted}})
	if err != nil {
		return out, err
	}
	rate, ok := AbandonmentRate(len(carts), len(purchases))
	if !ok {
		out.Notes = append(out.Notes, "no cart activity found.")
		return out, nil
	}
	out.Rows = append(out.Rows,
		fmt.Sprintf("carts created: %d, purchases: %d", len(carts), len(purchases)),
		fmt.Sprintf("abandonment rate: %.2f%%", rate),
	)
	return out, nil
}

const frequentlyBoughtQuery = `
MATCH (target:Product) WHERE target.name CONTAINS $term
MATCH (target)<-[:CONTAINS]-(o:Order)-[:CONTAINS]->(other:Product)
WHERE target <> other
RETURN other.name AS name, count(*) AS frequency
ORDER BY frequency DESC`

// frequentlyBoughtTogether ranks products sharing an order with any
// product whose name contains FrequentlyBoughtTerm.
func (s Sources) frequentlyBoughtTogether(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: fmt.Sprintf("query 12: top products purchased with '%s'", FrequentlyBoughtTerm)}
	query := frequentlyBoughtQuery
	if limit > 0 {
		query += fmt.Sprintf("\nLIMIT %d", limit)
	}
	records, err := s.Graph.Run(ctx, query, map[string]any{"term": FrequentlyBoughtTerm})
	if err != nil {
		return out, err
	}
	for _, r := range records {
		out.Rows = append(out.Rows, fmt.Sprintf("product: %v, frequency: %v", r["name"], r["frequency"]))
	}
	if len(records) == 0 {
		out.Notes = append(out.Notes, "no graph matches found (check that the graph projection ran).")
	}
	return out, nil
}

func (s Sources) lifetimeStats(ctx context.Context, limit int) (Output, error) {
	out := Output{Title: "query 13: user lifetime stats (days since purchase, total count)"}
	since := "EXTRACT(DAY FROM (NOW() - MAX(created_at)))"
	if s.Dialect == config.DriverMySQL {
		since = "TIMESTAMPDIFF(DAY, MAX(created_at), NOW())"
	}
	var rows []struct {
		UserId        int
		TotalOrders   int
		DaysSinceLast float64
	}
	err := s.DB.WithContext(ctx).Raw(`
		SELECT user_id, COUNT(order_id) AS total_orders, ` + since + ` AS days_since_last
		FROM orders GROUP BY user_id` + limitClause(limit)).Scan(&rows).Error
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, fmt.Sprintf("user %d: %d orders, last purchased %.0f days ago", r.UserId, r.TotalOrders, r.DaysSinceLast))
	}
	return out, nil
}

func limitLabel(limit int) string {
	if limit <= 0 {
		return "all"
	}
	return fmt.Sprint(limit)
}
