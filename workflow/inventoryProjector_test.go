package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variantProduct() models.Product {
	return models.Product{
		ID:       "prod_1",
		Name:     "Classic T-Shirt 101",
		Category: "Fashion",
		Price:    20.00,
		Variants: []models.Variant{
			{Sku: "prod_1-S-BLA", Size: "S", Color: "Black", StockLevel: intPtr(5)},
			{Size: "M", Color: "Red", StockLevel: intPtr(3), Price: floatPtr(25.00)},
		},
	}
}

func TestDeriveInventory_VariantsAndScalar(t *testing.T) {
	scalar := models.Product{ID: "prod_2", Price: 10.5, StockLevel: intPtr(7)}
	rows, dups := DeriveInventory([]models.Product{variantProduct(), scalar})

	require.Equal(t, 0, dups)
	require.Len(t, rows, 3)

	assert.Equal(t, "prod_1-S-BLA", rows[0].Sku)
	assert.Equal(t, "prod_1", rows[0].MongoProductId)
	assert.Equal(t, 5, rows[0].StockLevel)
	assert.True(t, rows[0].Price.Equal(decimal.RequireFromString("20.00")))

	assert.Equal(t, "prod_1-M-Red", rows[1].Sku)
	assert.Equal(t, 3, rows[1].StockLevel)
	assert.True(t, rows[1].Price.Equal(decimal.RequireFromString("25.00")), "variant price overrides the product price")

	assert.Equal(t, "prod_2", rows[2].Sku)
	assert.Equal(t, "prod_2", rows[2].MongoProductId)
	assert.Equal(t, 7, rows[2].StockLevel)
}

func TestDeriveInventory_DerivedSkuRoundTrip(t *testing.T) {
	p := variantProduct()
	rows, _ := DeriveInventory([]models.Product{p})
	assert.Equal(t, models.DerivedSku(p.ID, p.Variants[1]), rows[1].Sku)
}

func TestDeriveInventory_DuplicateSkusKeepFirst(t *testing.T) {
	a := models.Product{ID: "prod_1", Price: 1, Variants: []models.Variant{{Sku: "dup", Size: "S", Color: "Black", StockLevel: intPtr(1)}}}
	b := models.Product{ID: "prod_2", Price: 2, Variants: []models.Variant{{Sku: "dup", Size: "M", Color: "Red", StockLevel: intPtr(9)}}}
	rows, dups := DeriveInventory([]models.Product{a, b})

	require.Len(t, rows, 1)
	assert.Equal(t, 1, dups)
	assert.Equal(t, "prod_1", rows[0].MongoProductId)
}

func TestDeriveInventory_MissingStockIsZero(t *testing.T) {
	p := models.Product{ID: "prod_3", Price: 4, Variants: []models.Variant{{Size: "L", Color: "Navy"}}}
	rows, _ := DeriveInventory([]models.Product{p})
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].StockLevel)
}

func TestInventoryProjector_RerunLeavesExistingRows(t *testing.T) {
	ctx := context.Background()
	docs, rel, tally := newFakeDocs(), newFakeRel(), NewTally()
	docs.seedProducts(variantProduct())
	p := NewInventoryProjector(testSettings(), docs, rel, testLogger(), tally)

	first, err := p.Project(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// a later stock change must survive the rerun
	row := rel.inventory["prod_1-S-BLA"]
	row.StockLevel = 99
	rel.inventory["prod_1-S-BLA"] = row

	second, err := p.Project(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Len(t, rel.inventory, 2)
	assert.Equal(t, 99, rel.inventory["prod_1-S-BLA"].StockLevel)
	assert.Equal(t, int64(2), tally.Snapshot().ConstraintViolations)
}

func TestInventoryProjector_RerunReturnsStoredRows(t *testing.T) {
	ctx := context.Background()
	docs, rel, tally := newFakeDocs(), newFakeRel(), NewTally()
	docs.seedProducts(variantProduct())
	p := NewInventoryProjector(testSettings(), docs, rel, testLogger(), tally)

	_, err := p.Project(ctx)
	require.NoError(t, err)

	row := rel.inventory["prod_1-S-BLA"]
	row.Price = decimal.RequireFromString("7.50")
	row.StockLevel = 1
	rel.inventory["prod_1-S-BLA"] = row

	second, err := p.Project(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2)
	bySku := map[string]models.Inventory{}
	for _, r := range second {
		bySku[r.Sku] = r
	}
	assert.Equal(t, "7.5", bySku["prod_1-S-BLA"].Price.String())
	assert.Equal(t, 1, bySku["prod_1-S-BLA"].StockLevel)
}

func TestInventoryProjector_FailedReloadIsExcluded(t *testing.T) {
	ctx := context.Background()
	docs, rel, tally := newFakeDocs(), newFakeRel(), NewTally()
	docs.seedProducts(variantProduct())
	p := NewInventoryProjector(testSettings(), docs, rel, testLogger(), tally)
	_, err := p.Project(ctx)
	require.NoError(t, err)

	rel.failFindInventory = true
	rows, err := p.Project(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int64(1), tally.Snapshot().BatchFailures[StageInventory])
}

func TestInventoryProjector_FailedBatchIsExcluded(t *testing.T) {
	ctx := context.Background()
	docs, rel, tally := newFakeDocs(), newFakeRel(), NewTally()
	for i := 1; i <= 25; i++ {
		docs.seedProducts(models.Product{ID: fmt.Sprintf("prod_%d", i), Price: 10, StockLevel: intPtr(i)})
	}
	rel.failInventoryCalls[1] = true

	rows, err := NewInventoryProjector(testSettings(), docs, rel, testLogger(), tally).Project(ctx)
	require.NoError(t, err)

	assert.Len(t, rows, 15)
	assert.Len(t, rel.inventory, 15)
	for _, r := range rows {
		_, ok := rel.inventory[r.Sku]
		assert.True(t, ok, "returned row %s must be persisted", r.Sku)
	}
	assert.Equal(t, int64(1), tally.Snapshot().BatchFailures[StageInventory])
}

func TestInventoryProjector_EmptyCatalog(t *testing.T) {
	rows, err := NewInventoryProjector(testSettings(), newFakeDocs(), newFakeRel(), testLogger(), NewTally()).Project(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
