package utils

import "github.com/shopspring/decimal"

// MoneyFromFloat converts a document-store price to a 2-place decimal.
func MoneyFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// RoundFloat rounds f to 2 places for storage in documents and hashes.
func RoundFloat(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}
