package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/utils"
)

// EventTypes and EventWeights are index-aligned.
var (
	EventTypes = []models.EventType{
		models.EventTypeViewProduct,
		models.EventTypeSearch,
		models.EventTypeAddToCart,
		models.EventTypeRemoveFromCart,
		models.EventTypeCheckCartStatus,
		models.EventTypeClickProduct,
		models.EventTypePurchaseCompleted,
	}
	EventWeights = []float64{0.45, 0.15, 0.10, 0.05, 0.10, 0.10, 0.05}
)

var (
	eventDevices   = []string{"mobile", "desktop", "tablet"}
	searchFilters  = []string{"price_desc", "price_asc", "newest", "rating_4_plus", "none"}
	paymentMethods = []string{"credit_card", "paypal", "apple_pay"}
	sourcePages    = []string{"search_results", "category_page", "recommendations"}
)

// SearchTerms are every subcategory plus a few generic phrases.
var SearchTerms = func() []string {
	var terms []string
	for _, cat := range Categories {
		for _, sub := range cat.Subcategories {
			terms = append(terms, sub.Name)
		}
	}
	return append(terms, "gift for dad", "sale", "best sellers", "new arrivals")
}()

type EventGenerator struct {
	r           *rand.Rand
	numUsers    int
	numProducts int
	now         time.Time
}

func NewEventGenerator(r *rand.Rand, numUsers, numProducts int, now time.Time) *EventGenerator {
	return &EventGenerator{r: r, numUsers: max(numUsers, 1), numProducts: max(numProducts, 1), now: now}
}

// Next returns one event with a weighted event type.
func (g *EventGenerator) Next() (models.UserEvent, error) {
	eventType, err := utils.WeightedChoice(g.r, EventTypes, EventWeights)
	if err != nil {
		return models.UserEvent{}, err
	}
	return models.UserEvent{
		ID:        "evt_" + hexID(g.r),
		UserId:    utils.IntBetween(g.r, 1, g.numUsers),
		SessionId: "sess_" + hexID(g.r)[:8],
		Timestamp: randomTimeBetween(g.r, g.now.AddDate(0, 0, -30), g.now).UTC().Format(models.EventTimestampLayout),
		EventType: eventType,
		Details:   g.details(eventType),
	}, nil
}

func (g *EventGenerator) randomProductID() string {
	return ProductID(utils.IntBetween(g.r, 1, g.numProducts))
}

func (g *EventGenerator) details(eventType models.EventType) map[string]any {
	r := g.r
	switch eventType {
	case models.EventTypeViewProduct:
		cat, sub, price := RandomProductContext(r)
		return map[string]any{
			"product_id":         g.randomProductID(),
			"category":           cat.Name,
			"subcategory":        sub.Name,
			"price_at_view":      price,
			"time_spent_seconds": utils.IntBetween(r, 5, 300),
			"device":             utils.Pick(r, eventDevices),
		}
	case models.EventTypeSearch:
		return map[string]any{
			"query":           utils.Pick(r, SearchTerms),
			"filters_applied": utils.Sample(r, searchFilters, utils.IntBetween(r, 0, 2)),
			"results_count":   utils.IntBetween(r, 0, 150),
		}
	case models.EventTypeAddToCart:
		cat, _, price := RandomProductContext(r)
		return map[string]any{
			"product_id": g.randomProductID(),
			"category":   cat.Name,
			"quantity":   utils.IntBetween(r, 1, 3),
			"price_unit": price,
			"currency":   "USD",
		}
	case models.EventTypeRemoveFromCart:
		return map[string]any{
			"product_id":       g.randomProductID(),
			"quantity_removed": 1,
		}
	case models.EventTypeCheckCartStatus:
		n := utils.IntBetween(r, 1, 5)
		return map[string]any{
			"total_items": n,
			"cart_value":  g.cartValue(n),
			"currency":    "USD",
		}
	case models.EventTypeClickProduct:
		return map[string]any{
			"product_id":       g.randomProductID(),
			"position_in_list": utils.IntBetween(r, 1, 20),
			"source_page":      utils.Pick(r, sourcePages),
		}
	case models.EventTypePurchaseCompleted:
		n := utils.IntBetween(r, 1, 6)
		return map[string]any{
			"order_id":       fmt.Sprintf("ord_%d", utils.IntBetween(r, 10000, 99999)),
			"total_amount":   g.cartValue(n),
			"payment_method": utils.Pick(r, paymentMethods),
			"items_count":    n,
		}
	}
	return map[string]any{}
}

func (g *EventGenerator) cartValue(n int) float64 {
	total := 0.0
	for i := 0; i < n; i++ {
		_, _, price := RandomProductContext(g.r)
		total += price
	}
	return utils.RoundFloat(total)
}

// hexID draws a uuid-shaped hex string from r so seeded runs stay reproducible.
func hexID(r *rand.Rand) string {
	var b [16]byte
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	id, _ := uuid.FromBytes(b[:])
	return strings.ReplaceAll(id.String(), "-", "")
}
