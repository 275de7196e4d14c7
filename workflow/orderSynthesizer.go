package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/utils"
	"github.com/sirupsen/logrus"
)

const (
	OrderSynthesizerLockKey = "lock:order-synthesizer"

	minItemsPerOrder = 1
	maxItemsPerOrder = 5
	minItemQuantity  = 1
	maxItemQuantity  = 3
)

// SynthesisResult counts what reached a committed batch.
type SynthesisResult struct {
	Orders  int
	Items   int
	Returns int
	Batches int
	Lost    int
}

type batchCounts struct {
	orders, items, returns int
}

// OrderSynthesizer writes orders, their items and returns into the
// relational store, committing every batchSize orders.
type OrderSynthesizer struct {
	rel       stores.RelationalStore
	locker    stores.Locker
	lockTTL   time.Duration
	r         *rand.Rand
	now       func() time.Time
	numOrders int
	batchSize int
	logger    logrus.FieldLogger
	tally     *Tally
}

func NewOrderSynthesizer(s *config.Settings, rel stores.RelationalStore, locker stores.Locker, r *rand.Rand, logger logrus.FieldLogger, tally *Tally) *OrderSynthesizer {
	return &OrderSynthesizer{
		rel:       rel,
		locker:    locker,
		lockTTL:   s.RunLockTTL,
		r:         r,
		now:       time.Now,
		numOrders: s.NumOrders,
		batchSize: s.OrderBatchSize,
		logger:    logger,
		tally:     tally,
	}
}

// Synthesize generates numOrders orders for userIDs from inventory. Every
// order is written end to end (header, items, totals, return) before the next
// one starts. A failing order rolls back its whole batch and generation
// continues with a fresh batch. The run lock is refreshed after every commit.
func (s *OrderSynthesizer) Synthesize(ctx context.Context, userIDs []int, inventory []models.Inventory) (SynthesisResult, error) {
	var result SynthesisResult
	if len(userIDs) == 0 {
		return result, fmt.Errorf("%w: no users found, seed users first", ErrEmptyPrerequisite)
	}
	if len(inventory) == 0 {
		return result, fmt.Errorf("%w: no inventory available, run the inventory projection first", ErrEmptyPrerequisite)
	}

	var lease stores.Lease
	if s.locker != nil {
		var err error
		lease, err = s.locker.Obtain(ctx, OrderSynthesizerLockKey, s.lockTTL)
		if errors.Is(err, stores.ErrLockNotObtained) {
			return result, ErrRunLocked
		}
		if err != nil {
			return result, fmt.Errorf("obtain run lock: %w", err)
		}
		defer func() {
			// the lease outlives a cancelled run context
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warnf("release run lock: %v", err)
			}
		}()
	}

	s.logger.Infof("generating %d orders", s.numOrders)
	var (
		batch   stores.OrderBatch
		pending batchCounts
	)
	discard := func(reason string, err error) {
		config.LogError(s.logger, "OrderSynthesizer", "Synthesize", reason, map[string]int{"pendingOrders": pending.orders}, err)
		s.tally.AddBatchFailure(StageOrders)
		s.tally.AddOrdersLost(pending.orders)
		result.Lost += pending.orders
		pending = batchCounts{}
		batch = nil
	}

	for i := 0; i < s.numOrders; i++ {
		if err := ctx.Err(); err != nil {
			if batch != nil {
				_ = batch.Rollback()
				s.tally.AddOrdersLost(pending.orders)
				result.Lost += pending.orders
			}
			return result, err
		}
		if batch == nil {
			b, err := s.rel.BeginBatch(ctx)
			if err != nil {
				return result, fmt.Errorf("begin order batch: %w", err)
			}
			batch = b
		}

		items, ret, err := s.writeOrder(ctx, batch, userIDs, inventory)
		if err != nil {
			// the failed order is lost along with the rest of the window
			pending.orders++
			_ = batch.Rollback()
			discard("write order", err)
			continue
		}
		pending.orders++
		pending.items += items
		if ret {
			pending.returns++
		}

		if pending.orders == s.batchSize {
			if err := batch.Commit(); err != nil {
				discard("commit order batch", err)
				continue
			}
			s.commit(&result, pending)
			pending = batchCounts{}
			batch = nil
			s.logger.Infof("generated %d orders...", i+1)
			if lease != nil {
				if err := lease.Refresh(ctx, s.lockTTL); err != nil {
					return result, fmt.Errorf("%w: refresh run lock: %w", ErrRunLocked, err)
				}
			}
		}
	}

	if batch != nil {
		if err := batch.Commit(); err != nil {
			discard("commit final order batch", err)
		} else {
			s.commit(&result, pending)
		}
	}
	s.logger.Infof("finished. total orders: %d (lost %d)", result.Orders, result.Lost)
	return result, nil
}

func (s *OrderSynthesizer) commit(result *SynthesisResult, c batchCounts) {
	result.Orders += c.orders
	result.Items += c.items
	result.Returns += c.returns
	result.Batches++
	s.tally.AddWritten(StageOrders, c.orders)
}

// writeOrder runs the per-order steps: draft header, items, totals, optional return.
func (s *OrderSynthesizer) writeOrder(ctx context.Context, batch stores.OrderBatch, userIDs []int, inventory []models.Inventory) (itemCount int, returned bool, err error) {
	order := models.NewDraftOrder(
		utils.Pick(s.r, userIDs),
		utils.Pick(s.r, models.OrderStatuses),
		s.createdAt(),
	)
	// line items reference the store-assigned id, so the header goes first
	if err := batch.InsertOrder(ctx, order); err != nil {
		return 0, false, fmt.Errorf("insert order header: %w", err)
	}

	items := s.sampleItems(order.OrderId, inventory)
	if err := batch.InsertOrderItems(ctx, items); err != nil {
		return 0, false, fmt.Errorf("insert items for order %d: %w", order.OrderId, err)
	}

	if _, err := order.Finalize(items); err != nil {
		return 0, false, err
	}
	if err := batch.UpdateOrderTotals(ctx, order); err != nil {
		return 0, false, fmt.Errorf("update totals for order %d: %w", order.OrderId, err)
	}

	if order.Status != models.OrderStatusReturned {
		return len(items), false, nil
	}
	ret, err := s.sampleReturn(items)
	if err != nil {
		return 0, false, err
	}
	if err := batch.InsertReturn(ctx, ret); err != nil {
		return 0, false, fmt.Errorf("insert return for order %d: %w", order.OrderId, err)
	}
	return len(items), true, nil
}

// sampleItems draws 1-5 inventory rows with replacement, each with quantity 1-3.
func (s *OrderSynthesizer) sampleItems(orderId int, inventory []models.Inventory) []models.OrderItem {
	n := utils.IntBetween(s.r, minItemsPerOrder, maxItemsPerOrder)
	items := make([]models.OrderItem, 0, n)
	for i := 0; i < n; i++ {
		inv := utils.Pick(s.r, inventory)
		items = append(items, models.OrderItem{
			OrderId:             orderId,
			Sku:                 inv.Sku,
			MongoProductId:      inv.MongoProductId,
			Quantity:            utils.IntBetween(s.r, minItemQuantity, maxItemQuantity),
			UnitPriceAtPurchase: inv.Price,
		})
	}
	return items
}

func (s *OrderSynthesizer) sampleReturn(items []models.OrderItem) (*models.Return, error) {
	item := utils.Pick(s.r, items)
	return models.NewReturn(item, utils.IntBetween(s.r, 1, item.Quantity))
}

// createdAt is uniform over the past year.
func (s *OrderSynthesizer) createdAt() time.Time {
	now := s.now()
	start := now.AddDate(-1, 0, 0)
	return start.Add(time.Duration(s.r.Int64N(int64(now.Sub(start))))).Truncate(time.Second)
}
