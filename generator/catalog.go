// Package generator produces syntactically valid synthetic records. Realism is
// not a goal; every function takes an explicit random source so runs can be
// reproduced from a seed.
package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/utils"
)

type Subcategory struct {
	Name     string
	MinPrice float64
	MaxPrice float64
}

type Category struct {
	Name          string
	Subcategories []Subcategory
}

// Categories is ordered so a seed yields the same catalog on every run.
var Categories = []Category{
	{Name: "Electronics", Subcategories: []Subcategory{
		{"Smartphone", 300, 1200}, {"Laptop", 800, 2500}, {"Headphones", 50, 400},
		{"Smart Watch", 150, 500}, {"Camera", 400, 3000}, {"Monitor", 100, 800},
	}},
	{Name: "Fashion", Subcategories: []Subcategory{
		{"T-Shirt", 15, 50}, {"Jeans", 40, 150}, {"Sneakers", 60, 250},
		{"Jacket", 80, 400}, {"Dress", 50, 200}, {"Watch", 100, 1000},
	}},
	{Name: "Home & Kitchen", Subcategories: []Subcategory{
		{"Blender", 30, 150}, {"Coffee Maker", 40, 300}, {"Sofa", 300, 1500},
		{"Desk Lamp", 20, 100}, {"Rug", 50, 400}, {"Cookware Set", 100, 600},
	}},
	{Name: "Beauty", Subcategories: []Subcategory{
		{"Moisturizer", 15, 80}, {"Perfume", 50, 200}, {"Lipstick", 10, 50},
		{"Serum", 25, 120}, {"Shampoo", 10, 40},
	}},
	{Name: "Books", Subcategories: []Subcategory{
		{"Fiction", 10, 30}, {"Non-Fiction", 15, 40}, {"Technical", 40, 120}, {"Art Book", 30, 100},
	}},
}

var adjectives = []string{
	"Premium", "Sleek", "Durable", "Vintage", "Modern", "Eco-friendly",
	"Compact", "Luxury", "Essential", "Pro", "Minimalist", "Industrial",
	"Handcrafted", "Smart", "Ultra-light", "Heavy-duty", "Artisan", "Urban",
	"Retro", "Futuristic", "Nordic", "Organic", "Ergonomic",
}

var (
	fashionSizes  = []string{"S", "M", "L", "XL"}
	homeSizes     = []string{"Standard", "Large"}
	variantColors = []string{"Black", "White", "Navy", "Red", "Grey", "Beige"}

	releaseStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	releaseEnd   = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ProductID is the document id of the seq-th product (1-based).
func ProductID(seq int) string {
	return fmt.Sprintf("prod_%d", seq)
}

// RandomProductContext draws a category, subcategory and a price in its range.
func RandomProductContext(r *rand.Rand) (Category, Subcategory, float64) {
	cat := utils.Pick(r, Categories)
	sub := utils.Pick(r, cat.Subcategories)
	return cat, sub, utils.RoundFloat(utils.FloatBetween(r, sub.MinPrice, sub.MaxPrice))
}

// NewProduct builds the seq-th catalog document.
func NewProduct(r *rand.Rand, seq int) models.Product {
	cat, sub, price := RandomProductContext(r)
	adj := utils.Pick(r, adjectives)
	id := ProductID(seq)
	name := fmt.Sprintf("%s %s %d", adj, sub.Name, utils.IntBetween(r, 100, 999))
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")

	p := models.Product{
		ID:          id,
		Name:        name,
		Category:    cat.Name,
		Subcategory: sub.Name,
		Price:       price,
		Description: fmt.Sprintf("Experience the %s quality of our %s. Perfect for modern living.", strings.ToLower(adj), name),
		Images:      []string{slug + "_main.jpg", slug + "_side.jpg"},
		Rating:      float64(utils.IntBetween(r, 35, 50)) / 10,
		ReviewCount: utils.IntBetween(r, 0, 500),
		Tags:        []string{strings.ToLower(cat.Name), strings.ToLower(sub.Name), strings.ToLower(adj)},
		ReleaseDate: randomDate(r, releaseStart, releaseEnd).Format("2006-01-02"),
		Attributes:  attributes(r, cat.Name, sub.Name),
	}
	if variants := newVariants(r, cat.Name, sub.Name, id); len(variants) > 0 {
		p.Variants = variants
	} else {
		stock := utils.IntBetween(r, 0, 300)
		p.StockLevel = &stock
	}
	return p
}

func newVariants(r *rand.Rand, category, subcategory, productId string) []models.Variant {
	var sizes []string
	switch {
	case category == "Fashion":
		sizes = fashionSizes
	case subcategory == "Rug" || subcategory == "Sofa":
		sizes = homeSizes
	default:
		return nil
	}
	n := utils.IntBetween(r, 3, 5)
	variants := make([]models.Variant, 0, n)
	for i := 0; i < n; i++ {
		size := utils.Pick(r, sizes)
		color := utils.Pick(r, variantColors)
		stock := utils.IntBetween(r, 0, 50)
		variants = append(variants, models.Variant{
			Sku:        fmt.Sprintf("%s-%s-%s", productId, size, strings.ToUpper(color[:3])),
			Size:       size,
			Color:      color,
			StockLevel: &stock,
		})
	}
	return variants
}

func attributes(r *rand.Rand, category, subcategory string) map[string]any {
	attr := map[string]any{}
	switch category {
	case "Electronics":
		attr["warranty"] = utils.Pick(r, []string{"1 Year", "2 Years", "Lifetime"})
		attr["power_rating"] = fmt.Sprintf("%dW", utils.IntBetween(r, 5, 100))
		switch subcategory {
		case "Laptop", "Smartphone":
			attr["storage"] = utils.Pick(r, []string{"128GB", "256GB", "512GB", "1TB"})
			attr["ram"] = utils.Pick(r, []string{"8GB", "16GB", "32GB"})
			attr["screen_size"] = fmt.Sprintf("%d inches", utils.IntBetween(r, 6, 16))
		case "Headphones":
			attr["connectivity"] = "Bluetooth 5.3"
			attr["noise_cancellation"] = r.IntN(2) == 1
			attr["battery_life"] = fmt.Sprintf("%d hours", utils.IntBetween(r, 10, 40))
		}
	case "Fashion":
		attr["material"] = utils.Pick(r, []string{"Cotton", "Leather", "Polyester", "Denim", "Wool"})
		attr["style"] = utils.Pick(r, []string{"Casual", "Formal", "Streetwear", "Athleisure"})
		attr["gender"] = utils.Pick(r, []string{"Unisex", "Men", "Women"})
	case "Home & Kitchen":
		attr["material"] = utils.Pick(r, []string{"Wood", "Stainless Steel", "Ceramic", "Glass"})
		attr["dimensions"] = map[string]any{
			"height": fmt.Sprintf("%d cm", utils.IntBetween(r, 5, 80)),
			"width":  fmt.Sprintf("%d cm", utils.IntBetween(r, 5, 80)),
			"depth":  fmt.Sprintf("%d cm", utils.IntBetween(r, 5, 80)),
		}
		attr["weight"] = fmt.Sprintf("%.1f kg", utils.FloatBetween(r, 0.5, 20.0))
	case "Beauty":
		attr["volume"] = fmt.Sprintf("%d ml", utils.Pick(r, []int{30, 50, 100, 250}))
		attr["skin_type"] = utils.Pick(r, []string{"All", "Oily", "Dry", "Sensitive"})
		attr["organic"] = r.IntN(2) == 1
		attr["cruelty_free"] = true
	case "Books":
		attr["author"] = fmt.Sprintf("Author %s%d", utils.Pick(r, []string{"A", "B", "C", "D"}), utils.IntBetween(r, 1, 100))
		attr["pages"] = utils.IntBetween(r, 150, 900)
		attr["isbn"] = fmt.Sprintf("978-%d", utils.IntBetween(r, 100000000, 999999999))
		attr["publisher"] = utils.Pick(r, []string{"Penguin", "HarperCollins", "O'Reilly", "Random House"})
	}
	return attr
}

func randomDate(r *rand.Rand, start, end time.Time) time.Time {
	days := int(end.Sub(start).Hours() / 24)
	return start.AddDate(0, 0, r.IntN(days))
}

// randomTimeBetween is uniform over [start, end).
func randomTimeBetween(r *rand.Rand, start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(r.Int64N(int64(span)))).Truncate(time.Second)
}
