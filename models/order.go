package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOrderFinalized = errors.New("order totals already finalized")

// OrderState tracks the two-phase order write: the header is inserted as a
// draft with zeroed totals and finalized exactly once after its items are known.
type OrderState int

const (
	OrderStateDraft OrderState = iota
	OrderStateFinalized
)

type Order struct {
	OrderId      int             `gorm:"column:order_id;primaryKey;autoIncrement" json:"order_id"`
	UserId       int             `gorm:"column:user_id;index;not null" json:"user_id"`
	Status       OrderStatus     `gorm:"column:status;size:20;not null" json:"status"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	TaxAmount    decimal.Decimal `gorm:"column:tax_amount;type:decimal(10,2);not null;default:0" json:"tax_amount"`
	ShippingCost decimal.Decimal `gorm:"column:shipping_cost;type:decimal(10,2);not null;default:0" json:"shipping_cost"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:decimal(10,2);not null;default:0" json:"total_amount"`

	state OrderState
}

func (Order) TableName() string { return "orders" }

// NewDraftOrder returns an order header with zeroed monetary fields.
func NewDraftOrder(userId int, status OrderStatus, createdAt time.Time) *Order {
	return &Order{
		UserId:       userId,
		Status:       status,
		CreatedAt:    createdAt,
		TaxAmount:    decimal.Zero,
		ShippingCost: decimal.Zero,
		TotalAmount:  decimal.Zero,
		state:        OrderStateDraft,
	}
}

func (o *Order) State() OrderState {
	return o.state
}

// Finalize sets tax, shipping and total from the order's items. It is the only
// legal transition out of the draft state and fails on a second call.
func (o *Order) Finalize(items []OrderItem) (OrderTotals, error) {
	if o.state == OrderStateFinalized {
		return OrderTotals{}, ErrOrderFinalized
	}
	totals := ComputeOrderTotals(ItemsSubtotal(items))
	o.TaxAmount = totals.Tax
	o.ShippingCost = totals.Shipping
	o.TotalAmount = totals.Total
	o.state = OrderStateFinalized
	return totals, nil
}

// OrderItem is immutable once inserted.
type OrderItem struct {
	OrderId             int             `gorm:"column:order_id;index;not null" json:"order_id"`
	Sku                 string          `gorm:"column:sku;size:100;not null" json:"sku"`
	MongoProductId      string          `gorm:"column:mongo_product_id;size:50;not null" json:"mongo_product_id"`
	Quantity            int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `gorm:"column:unit_price_at_purchase;type:decimal(10,2);not null" json:"unit_price_at_purchase"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func ItemsSubtotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
