package models

import "gorm.io/gorm"

// MigrateTable creates the relational tables for local development. Production
// schemas are provisioned outside this tool.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Inventory{},
		&Order{},
		&OrderItem{},
		&Return{},
		&Shipment{},
	)
}
