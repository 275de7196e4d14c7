package models

import "time"

// Shipment is read by the order history query; this pipeline does not write it.
type Shipment struct {
	ShipmentId     int        `gorm:"column:shipment_id;primaryKey;autoIncrement" json:"shipment_id"`
	OrderId        int        `gorm:"column:order_id;index;not null" json:"order_id"`
	ShippingMethod string     `gorm:"column:shipping_method;size:50" json:"shipping_method"`
	TrackingNumber string     `gorm:"column:tracking_number;size:100" json:"tracking_number"`
	ShippedAt      *time.Time `gorm:"column:shipped_at" json:"shipped_at"`
}

func (Shipment) TableName() string { return "shipments" }
