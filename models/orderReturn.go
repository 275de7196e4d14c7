package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Return exists only for orders in the Returned status.
type Return struct {
	ReturnId     int             `gorm:"column:return_id;primaryKey;autoIncrement" json:"return_id"`
	OrderId      int             `gorm:"column:order_id;index;not null" json:"order_id"`
	Sku          string          `gorm:"column:sku;size:100;not null" json:"sku"`
	Quantity     int             `gorm:"column:quantity;not null" json:"quantity"`
	Reason       string          `gorm:"column:reason;size:255" json:"reason"`
	RefundAmount decimal.Decimal `gorm:"column:refund_amount;type:decimal(10,2);not null" json:"refund_amount"`
	Status       string          `gorm:"column:status;size:20;not null" json:"status"`
}

func (Return) TableName() string { return "returns" }

// NewReturn refunds qty units of item. qty must be in [1, item.Quantity].
func NewReturn(item OrderItem, qty int) (*Return, error) {
	if qty < 1 || qty > item.Quantity {
		return nil, fmt.Errorf("return quantity %d outside [1, %d] for sku %s", qty, item.Quantity, item.Sku)
	}
	return &Return{
		OrderId:      item.OrderId,
		Sku:          item.Sku,
		Quantity:     qty,
		Reason:       ReturnReasonDefault,
		RefundAmount: item.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		Status:       ReturnStatusCompleted,
	}, nil
}
