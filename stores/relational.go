package stores

import (
	"context"

	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertChunk bounds the rows per INSERT statement so large inventory
// transactions stay under the driver's placeholder limit.
const insertChunk = 1000

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) UserIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := s.db.WithContext(ctx).Model(&models.User{}).Order("user_id").Pluck("user_id", &ids).Error
	return ids, err
}

func (s *GormStore) InsertUsers(ctx context.Context, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).CreateInBatches(&users, insertChunk)
		inserted = res.RowsAffected
		return res.Error
	})
	return inserted, err
}

func (s *GormStore) InsertInventory(ctx context.Context, rows []models.Inventory) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoNothing: true,
		}).CreateInBatches(&rows, insertChunk)
		inserted = res.RowsAffected
		return res.Error
	})
	return inserted, err
}

func (s *GormStore) FindInventory(ctx context.Context, skus []string) ([]models.Inventory, error) {
	var rows []models.Inventory
	for _, chunk := range utils.Chunk(skus, insertChunk) {
		var found []models.Inventory
		if err := s.db.WithContext(ctx).Where("sku IN ?", chunk).Find(&found).Error; err != nil {
			return nil, err
		}
		rows = append(rows, found...)
	}
	return rows, nil
}

func (s *GormStore) BeginBatch(ctx context.Context) (OrderBatch, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormOrderBatch{tx: tx}, nil
}

func (s *GormStore) OrderProductTriples(ctx context.Context, limit int) ([]models.OrderProductRow, error) {
	var rows []models.OrderProductRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT o.user_id, o.order_id, i.mongo_product_id
		FROM orders o JOIN order_items i ON o.order_id = i.order_id
		ORDER BY o.order_id
		LIMIT ?
	`, limit).Scan(&rows).Error
	return rows, err
}

type gormOrderBatch struct {
	tx *gorm.DB
}

func (b *gormOrderBatch) InsertOrder(ctx context.Context, order *models.Order) error {
	return b.tx.WithContext(ctx).Create(order).Error
}

func (b *gormOrderBatch) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return b.tx.WithContext(ctx).Create(&items).Error
}

func (b *gormOrderBatch) UpdateOrderTotals(ctx context.Context, order *models.Order) error {
	return b.tx.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ?", order.OrderId).
		Updates(map[string]interface{}{
			"tax_amount":    order.TaxAmount,
			"shipping_cost": order.ShippingCost,
			"total_amount":  order.TotalAmount,
		}).Error
}

func (b *gormOrderBatch) InsertReturn(ctx context.Context, ret *models.Return) error {
	return b.tx.WithContext(ctx).Create(ret).Error
}

func (b *gormOrderBatch) Commit() error {
	return b.tx.Commit().Error
}

func (b *gormOrderBatch) Rollback() error {
	return b.tx.Rollback().Error
}
