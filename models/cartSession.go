package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const CartKeyPrefix = "cart:"

var CartDevices = []string{"laptop", "tablet", "mobile", "desktop"}

type CartItem struct {
	ProductId int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name"`
}

// CartSession is an ephemeral key-value record with no relation to orders.
type CartSession struct {
	SessionId   string
	UserId      int
	Device      string
	Items       []CartItem
	TotalAmount decimal.Decimal
	LastActive  int64
	TTL         time.Duration
}

func (c CartSession) Key() string {
	return CartKeyPrefix + c.SessionId
}

// Fields is the hash stored under Key.
func (c CartSession) Fields() (map[string]any, error) {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"user_id":      strconv.Itoa(c.UserId),
		"device":       c.Device,
		"items":        string(items),
		"total_amount": c.TotalAmount.StringFixed(2),
		"last_active":  strconv.FormatInt(c.LastActive, 10),
	}, nil
}

// ItemCount is the total quantity across all cart lines.
func ItemCount(items []CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
