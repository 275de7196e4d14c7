package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/utils"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	ClearGraphQuery = `MATCH (n) DETACH DELETE n`

	ProductConstraintQuery = `CREATE CONSTRAINT product_id_unique IF NOT EXISTS FOR (p:Product) REQUIRE p.product_id IS UNIQUE`
	UserConstraintQuery    = `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`

	MergeProductsQuery = `
UNWIND $batch AS row
MERGE (p:Product {product_id: row.id})
SET p.name = row.name, p.category = row.category`

	// A missing Product leaves p null; the edge is skipped and counted
	// through requested - linked.
	MergeOrdersQuery = `
UNWIND $batch AS row
MERGE (u:User {user_id: row.uid})
MERGE (o:Order {order_id: row.oid})
MERGE (u)-[:PLACED]->(o)
WITH o, row
UNWIND row.pids AS pid
OPTIONAL MATCH (p:Product {product_id: pid})
FOREACH (x IN CASE WHEN p IS NULL THEN [] ELSE [1] END | MERGE (o)-[:CONTAINS]->(p))
RETURN count(pid) AS requested, count(p) AS linked`
)

const (
	defaultProductName     = "Unknown"
	defaultProductCategory = "General"
)

var graphProductProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "name", Value: 1},
	{Key: "category", Value: 1},
}

type GraphResult struct {
	Products int
	Orders   int
	Linked   int
	Skipped  int
}

// GraphProjector rebuilds the purchase graph from the catalog and the
// relational order facts. Every write is a MERGE, so a partial run is
// repaired by running again.
type GraphProjector struct {
	docs              stores.DocumentStore
	rel               stores.RelationalStore
	graph             stores.GraphStore
	productChunk      int
	relationshipChunk int
	rowLimit          int
	logger            logrus.FieldLogger
	tally             *Tally
}

func NewGraphProjector(s *config.Settings, docs stores.DocumentStore, rel stores.RelationalStore, graph stores.GraphStore, logger logrus.FieldLogger, tally *Tally) *GraphProjector {
	return &GraphProjector{
		docs:              docs,
		rel:               rel,
		graph:             graph,
		productChunk:      s.ProductChunkSize,
		relationshipChunk: s.RelationshipChunkSize,
		rowLimit:          s.RelationshipRowLimit,
		logger:            logger,
		tally:             tally,
	}
}

// ProductNodes maps catalog documents to Product node properties.
func ProductNodes(products []models.Product) []models.ProductNode {
	nodes := make([]models.ProductNode, 0, len(products))
	for _, p := range products {
		node := models.ProductNode{ProductId: p.ID, Name: p.Name, Category: p.Category}
		if node.Name == "" {
			node.Name = defaultProductName
		}
		if node.Category == "" {
			node.Category = defaultProductCategory
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// GroupOrderRows folds (user, order, product) triples into one group per
// order, keeping first-seen order and distinct product ids.
func GroupOrderRows(rows []models.OrderProductRow) []models.OrderGroup {
	index := make(map[int]int)
	seen := make(map[int]map[string]struct{})
	var groups []models.OrderGroup
	for _, row := range rows {
		i, ok := index[row.OrderId]
		if !ok {
			i = len(groups)
			index[row.OrderId] = i
			seen[row.OrderId] = map[string]struct{}{}
			groups = append(groups, models.OrderGroup{OrderId: row.OrderId, UserId: row.UserId})
		}
		if _, dup := seen[row.OrderId][row.MongoProductId]; dup {
			continue
		}
		seen[row.OrderId][row.MongoProductId] = struct{}{}
		groups[i].ProductIds = append(groups[i].ProductIds, row.MongoProductId)
	}
	return groups
}

func (p *GraphProjector) Project(ctx context.Context) (GraphResult, error) {
	var result GraphResult

	products, err := stores.FindAll[models.Product](ctx, p.docs, models.CollectionProducts, bson.D{}, graphProductProjection)
	if err != nil {
		return result, fmt.Errorf("read products: %w", err)
	}

	if _, err := p.graph.Run(ctx, ClearGraphQuery, nil); err != nil {
		return result, fmt.Errorf("clear graph: %w", err)
	}
	for _, q := range []string{ProductConstraintQuery, UserConstraintQuery} {
		if _, err := p.graph.Run(ctx, q, nil); err != nil {
			p.logger.Debugf("constraint not created (ignored): %v", err)
		}
	}

	p.logger.Infof("loading %d products into the graph", len(products))
	nodes := ProductNodes(products)
	for _, chunk := range utils.Chunk(nodes, p.productChunk) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch := make([]map[string]any, len(chunk))
		for i, n := range chunk {
			batch[i] = n.Params()
		}
		if _, err := p.graph.RunBatch(ctx, MergeProductsQuery, batch); err != nil {
			config.LogError(p.logger, "GraphProjector", "Project", "merge product chunk", map[string]int{"size": len(chunk)}, err)
			p.tally.AddBatchFailure(StageGraph)
			continue
		}
		result.Products += len(chunk)
		p.logger.Infof("indexed %d products", result.Products)
	}
	p.tally.AddWritten(StageGraph, result.Products)

	rows, err := p.rel.OrderProductTriples(ctx, p.rowLimit)
	if err != nil {
		return result, fmt.Errorf("read order items: %w", err)
	}
	groups := GroupOrderRows(rows)
	p.logger.Infof("syncing %d orders (%d order-item rows) to the graph", len(groups), len(rows))

	for _, chunk := range utils.Chunk(groups, p.relationshipChunk) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch := make([]map[string]any, len(chunk))
		requested := 0
		for i, g := range chunk {
			batch[i] = g.Params()
			requested += len(g.ProductIds)
		}
		records, err := p.graph.RunBatch(ctx, MergeOrdersQuery, batch)
		if err != nil {
			config.LogError(p.logger, "GraphProjector", "Project", "merge order chunk", map[string]int{"size": len(chunk)}, err)
			p.tally.AddBatchFailure(StageGraph)
			continue
		}
		linked := requested
		if len(records) > 0 {
			requested = int(asInt64(records[0]["requested"], int64(requested)))
			linked = int(asInt64(records[0]["linked"], int64(requested)))
		}
		skipped := requested - linked
		result.Orders += len(chunk)
		result.Linked += linked
		result.Skipped += skipped
		p.tally.AddReferentialGaps(skipped)
		p.tally.AddWritten(StageGraph, len(chunk))
		if result.Orders%5000 == 0 {
			p.logger.Infof("synced %d orders", result.Orders)
		}
	}
	if result.Skipped > 0 {
		p.logger.Warnf("%d CONTAINS edges skipped: product node missing", result.Skipped)
	}
	return result, nil
}

func asInt64(v any, def int64) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return def
}
