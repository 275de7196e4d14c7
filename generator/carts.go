package generator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/utils"
	"github.com/shopspring/decimal"
)

// NewCartSession builds a cart with 1-5 lines for a random user.
func NewCartSession(r *rand.Rand, numUsers, numProducts int, ttl time.Duration, now time.Time) models.CartSession {
	n := utils.IntBetween(r, 1, 5)
	items := make([]models.CartItem, 0, n)
	total := decimal.Zero
	for i := 0; i < n; i++ {
		productId := utils.IntBetween(r, 1, max(numProducts, 1))
		qty := utils.IntBetween(r, 1, 3)
		price := utils.RoundFloat(utils.FloatBetween(r, 10.0, 500.0))
		items = append(items, models.CartItem{
			ProductId: productId,
			Quantity:  qty,
			Price:     price,
			Name:      fmt.Sprintf("Product %d", productId),
		})
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))))
	}

	var b [16]byte
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	id, _ := uuid.FromBytes(b[:])
	// FromBytes keeps the raw bits; stamp version 4 so the id reads like uuid4
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80

	return models.CartSession{
		SessionId:   id.String(),
		UserId:      utils.IntBetween(r, 1, max(numUsers, 1)),
		Device:      utils.Pick(r, models.CartDevices),
		Items:       items,
		TotalAmount: total.Round(2),
		LastActive:  now.Unix(),
		TTL:         ttl,
	}
}
