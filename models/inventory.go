package models

import "github.com/shopspring/decimal"

// Inventory is one relational row per sku. MongoProductId references the
// products collection and is not enforced by the relational engine.
type Inventory struct {
	Sku            string          `gorm:"column:sku;primaryKey;size:100" json:"sku"`
	MongoProductId string          `gorm:"column:mongo_product_id;size:50;index;not null" json:"mongo_product_id"`
	StockLevel     int             `gorm:"column:stock_level;not null;default:0" json:"stock_level"`
	Price          decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
}

func (Inventory) TableName() string { return "inventory" }
