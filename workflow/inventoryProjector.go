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

// inventoryProjection limits product reads to the fields inventory depends on.
var inventoryProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "variants", Value: 1},
	{Key: "price", Value: 1},
	{Key: "stock_level", Value: 1},
}

// InventoryProjector derives one inventory row per sku from the catalog.
type InventoryProjector struct {
	docs      stores.DocumentStore
	rel       stores.RelationalStore
	batchSize int
	logger    logrus.FieldLogger
	tally     *Tally
}

func NewInventoryProjector(s *config.Settings, docs stores.DocumentStore, rel stores.RelationalStore, logger logrus.FieldLogger, tally *Tally) *InventoryProjector {
	return &InventoryProjector{
		docs:      docs,
		rel:       rel,
		batchSize: s.InventoryBatchSize,
		logger:    logger,
		tally:     tally,
	}
}

// DeriveInventory maps products to inventory candidates. Skus are unique in
// the result: a later duplicate is dropped and counted.
func DeriveInventory(products []models.Product) (rows []models.Inventory, duplicates int) {
	seen := make(map[string]struct{})
	add := func(row models.Inventory) {
		if _, ok := seen[row.Sku]; ok {
			duplicates++
			return
		}
		seen[row.Sku] = struct{}{}
		rows = append(rows, row)
	}

	for _, p := range products {
		if p.HasVariants() {
			for _, v := range p.Variants {
				sku := v.Sku
				if sku == "" {
					sku = models.DerivedSku(p.ID, v)
				}
				price := p.Price
				if v.Price != nil {
					price = *v.Price
				}
				add(models.Inventory{
					Sku:            sku,
					MongoProductId: p.ID,
					StockLevel:     derefInt(v.StockLevel),
					Price:          utils.MoneyFromFloat(price),
				})
			}
			continue
		}
		add(models.Inventory{
			Sku:            p.ID,
			MongoProductId: p.ID,
			StockLevel:     derefInt(p.StockLevel),
			Price:          utils.MoneyFromFloat(p.Price),
		})
	}
	return rows, duplicates
}

// Project reads the catalog and upserts its inventory rows. Existing skus are
// left untouched and are returned as stored. Each batch commits on its own; a failed batch is rolled
// back, logged and left out of the returned rows. An empty result means no
// inventory is available for order generation.
func (p *InventoryProjector) Project(ctx context.Context) ([]models.Inventory, error) {
	products, err := stores.FindAll[models.Product](ctx, p.docs, models.CollectionProducts, bson.D{}, inventoryProjection)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	p.logger.Infof("read %d products from the document store", len(products))

	candidates, duplicates := DeriveInventory(products)
	p.tally.AddConstraintViolations(duplicates)
	if duplicates > 0 {
		p.logger.Warnf("dropped %d duplicate skus from the catalog", duplicates)
	}

	p.logger.Infof("inserting %d items into inventory", len(candidates))
	var available []models.Inventory
	for i, batch := range utils.Chunk(candidates, p.batchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inserted, err := p.rel.InsertInventory(ctx, batch)
		if err != nil {
			config.LogError(p.logger, "InventoryProjector", "Project", "insert inventory batch", map[string]int{"batch": i, "rows": len(batch)}, err)
			p.tally.AddBatchFailure(StageInventory)
			continue
		}
		p.tally.AddWritten(StageInventory, int(inserted))
		skipped := len(batch) - int(inserted)
		if skipped == 0 {
			available = append(available, batch...)
			continue
		}
		p.tally.AddConstraintViolations(skipped)
		p.logger.Debugf("batch %d: %d skus already present", i, skipped)

		// existing rows keep their stored price and stock, so orders read those
		stored, err := p.rel.FindInventory(ctx, skusOf(batch))
		if err != nil {
			config.LogError(p.logger, "InventoryProjector", "Project", "reload inventory batch", map[string]int{"batch": i, "rows": len(batch)}, err)
			p.tally.AddBatchFailure(StageInventory)
			continue
		}
		available = append(available, stored...)
	}
	return available, nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func skusOf(rows []models.Inventory) []string {
	skus := make([]string, len(rows))
	for i, r := range rows {
		skus[i] = r.Sku
	}
	return skus
}
