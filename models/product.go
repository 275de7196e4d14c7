package models

import (
	"errors"
	"fmt"
)

var ErrProductStockShape = errors.New("product must carry either variants or a stock level")

// Product is a catalog document in the products collection.
type Product struct {
	ID          string         `bson:"_id" json:"_id"`
	Name        string         `bson:"name" json:"name"`
	Category    string         `bson:"category" json:"category"`
	Subcategory string         `bson:"subcategory" json:"subcategory"`
	Price       float64        `bson:"price" json:"price"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	Images      []string       `bson:"images,omitempty" json:"images,omitempty"`
	Rating      float64        `bson:"rating,omitempty" json:"rating,omitempty"`
	ReviewCount int            `bson:"review_count,omitempty" json:"review_count,omitempty"`
	Tags        []string       `bson:"tags,omitempty" json:"tags,omitempty"`
	ReleaseDate string         `bson:"release_date,omitempty" json:"release_date,omitempty"`
	Attributes  map[string]any `bson:"attributes,omitempty" json:"attributes,omitempty"`
	Variants    []Variant      `bson:"variants,omitempty" json:"variants,omitempty"`
	StockLevel  *int           `bson:"stock_level,omitempty" json:"stock_level,omitempty"`
}

// Variant is a sellable size/color combination of a product.
type Variant struct {
	Sku        string   `bson:"sku,omitempty" json:"sku,omitempty"`
	Size       string   `bson:"size" json:"size"`
	Color      string   `bson:"color" json:"color"`
	StockLevel *int     `bson:"stock_level,omitempty" json:"stock_level,omitempty"`
	Price      *float64 `bson:"price,omitempty" json:"price,omitempty"`
}

func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// Validate checks that the product has a variant list or a scalar stock level, never both.
func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if p.HasVariants() == (p.StockLevel != nil) {
		return fmt.Errorf("%s: %w", p.ID, ErrProductStockShape)
	}
	return nil
}

// DerivedSku is the sku used when a variant does not carry its own.
func DerivedSku(productId string, v Variant) string {
	return fmt.Sprintf("%s-%s-%s", productId, v.Size, v.Color)
}
