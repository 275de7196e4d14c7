package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/generator"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/sirupsen/logrus"
)

// CatalogMaterializer replaces the products collection with a generated catalog.
type CatalogMaterializer struct {
	docs        stores.DocumentStore
	r           *rand.Rand
	numProducts int
	logger      logrus.FieldLogger
	tally       *Tally
}

func NewCatalogMaterializer(s *config.Settings, docs stores.DocumentStore, r *rand.Rand, logger logrus.FieldLogger, tally *Tally) *CatalogMaterializer {
	return &CatalogMaterializer{
		docs:        docs,
		r:           r,
		numProducts: s.NumProducts,
		logger:      logger,
		tally:       tally,
	}
}

// GenerateCatalog builds n valid products, prod_1 through prod_n.
func GenerateCatalog(r *rand.Rand, n int) ([]models.Product, error) {
	products := make([]models.Product, 0, n)
	for seq := 1; seq <= n; seq++ {
		p := generator.NewProduct(r, seq)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (m *CatalogMaterializer) Materialize(ctx context.Context) (int, error) {
	m.logger.Infof("generating %d products", m.numProducts)
	products, err := GenerateCatalog(m.r, m.numProducts)
	if err != nil {
		return 0, err
	}

	if err := m.docs.Drop(ctx, models.CollectionProducts); err != nil {
		return 0, fmt.Errorf("drop products: %w", err)
	}
	docs := make([]any, len(products))
	for i := range products {
		docs[i] = products[i]
	}
	if err := m.docs.InsertMany(ctx, models.CollectionProducts, docs); err != nil {
		config.LogError(m.logger, "CatalogMaterializer", "Materialize", "insert products", map[string]int{"products": len(docs)}, err)
		m.tally.AddBatchFailure(StageCatalog)
		return 0, fmt.Errorf("insert products: %w", err)
	}
	if err := m.docs.CreateIndex(ctx, models.CollectionProducts, "_id"); err != nil {
		m.logger.Warnf("index products._id: %v", err)
	}
	m.tally.AddWritten(StageCatalog, len(docs))
	m.logger.Infof("inserted %d products into %s", len(docs), models.CollectionProducts)
	return len(docs), nil
}
