package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusReturned  OrderStatus = "Returned"
)

// OrderStatuses is the set an order status is drawn from.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusReturned,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusReturned:
		return true
	}
	return false
}

// Value implements driver.Valuer so gorm rejects unknown statuses before they reach the store.
func (s OrderStatus) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid order status %q", string(s))
	}
	return string(s), nil
}

func (s *OrderStatus) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(v)
	default:
		return errors.New("order status must be a string")
	}
	return nil
}

const (
	ReturnStatusCompleted = "Completed"
	ReturnReasonDefault   = "Defective or Changed Mind"
)

type EventType string

const (
	EventTypeViewProduct       EventType = "view_product"
	EventTypeSearch            EventType = "search"
	EventTypeAddToCart         EventType = "add_to_cart"
	EventTypeRemoveFromCart    EventType = "remove_from_cart"
	EventTypeCheckCartStatus   EventType = "check_cart_status"
	EventTypeClickProduct      EventType = "click_product"
	EventTypePurchaseCompleted EventType = "purchase_completed"
)

// Document store collection names.
const (
	CollectionProducts   = "products"
	CollectionUserEvents = "user_events"
)
