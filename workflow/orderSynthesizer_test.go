package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInventory() []models.Inventory {
	return []models.Inventory{
		{Sku: "prod_1-S-BLA", MongoProductId: "prod_1", StockLevel: 5, Price: decimal.RequireFromString("19.99")},
		{Sku: "prod_2", MongoProductId: "prod_2", StockLevel: 40, Price: decimal.RequireFromString("4.25")},
		{Sku: "prod_3", MongoProductId: "prod_3", StockLevel: 3, Price: decimal.RequireFromString("120.00")},
	}
}

func newTestSynthesizer(rel *fakeRel, locker stores.Locker, tally *Tally) *OrderSynthesizer {
	s := NewOrderSynthesizer(testSettings(), rel, locker, utils.NewRand(7), testLogger(), tally)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s
}

func TestOrderSynthesizer_TotalsAndReturns(t *testing.T) {
	rel := newFakeRel()
	tally := NewTally()
	res, err := newTestSynthesizer(rel, newFakeLocker(), tally).Synthesize(context.Background(), []int{1, 2, 3}, testInventory())
	require.NoError(t, err)

	assert.Equal(t, 30, res.Orders)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, rel.commits)
	assert.Zero(t, res.Lost)

	orders, items, returns := rel.snapshot()
	require.Len(t, orders, 30)
	assert.Len(t, items, res.Items)
	assert.Len(t, returns, res.Returns)

	byOrder := map[int][]models.OrderItem{}
	for _, item := range items {
		byOrder[item.OrderId] = append(byOrder[item.OrderId], item)
	}
	yearAgo := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for id, o := range orders {
		lines := byOrder[id]
		require.NotEmpty(t, lines, "order %d has no items", id)
		assert.LessOrEqual(t, len(lines), 5)

		sub := models.ItemsSubtotal(lines)
		shipping := decimal.Zero
		if sub.LessThan(decimal.NewFromInt(50)) {
			shipping = decimal.NewFromInt(10)
		}
		want := sub.Mul(decimal.RequireFromString("1.08")).Add(shipping).Round(2)
		assert.True(t, o.TotalAmount.Equal(want), "order %d total %s, want %s", id, o.TotalAmount, want)
		assert.True(t, o.ShippingCost.Equal(shipping))
		assert.True(t, o.Status.IsValid())
		assert.False(t, o.CreatedAt.Before(yearAgo))
		assert.Contains(t, []int{1, 2, 3}, o.UserId)
	}

	statusReturned := 0
	for _, o := range orders {
		if o.Status == models.OrderStatusReturned {
			statusReturned++
		}
	}
	assert.Equal(t, statusReturned, len(returns), "exactly one return per Returned order")
	for _, ret := range returns {
		o := orders[ret.OrderId]
		assert.Equal(t, models.OrderStatusReturned, o.Status)
		var line *models.OrderItem
		for i := range byOrder[ret.OrderId] {
			if byOrder[ret.OrderId][i].Sku == ret.Sku {
				line = &byOrder[ret.OrderId][i]
				break
			}
		}
		require.NotNil(t, line, "return sku %s not in order %d", ret.Sku, ret.OrderId)
		assert.GreaterOrEqual(t, ret.Quantity, 1)
		assert.LessOrEqual(t, ret.Quantity, 3)
		assert.True(t, ret.RefundAmount.Equal(line.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(ret.Quantity))).Round(2)))
		assert.Equal(t, models.ReturnStatusCompleted, ret.Status)
	}
	assert.Equal(t, int64(30), tally.Snapshot().Written[StageOrders])
}

func TestOrderSynthesizer_EmptyPrerequisites(t *testing.T) {
	s := newTestSynthesizer(newFakeRel(), nil, NewTally())

	_, err := s.Synthesize(context.Background(), nil, testInventory())
	assert.True(t, errors.Is(err, ErrEmptyPrerequisite))

	_, err = s.Synthesize(context.Background(), []int{1}, nil)
	assert.True(t, errors.Is(err, ErrEmptyPrerequisite))
}

func TestOrderSynthesizer_FailedOrderRollsBackItsBatch(t *testing.T) {
	rel := newFakeRel()
	// order ids are sequential; 14 falls in the second window of 10
	rel.failItemsForOrderIds[14] = true
	tally := NewTally()

	res, err := newTestSynthesizer(rel, nil, tally).Synthesize(context.Background(), []int{1}, testInventory())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Lost, "orders 11-14 are lost with the window")
	assert.Equal(t, 26, res.Orders)
	assert.Equal(t, 1, rel.rollbacks)

	orders, items, _ := rel.snapshot()
	assert.Len(t, orders, 26)
	for _, id := range []int{11, 12, 13, 14} {
		_, ok := orders[id]
		assert.False(t, ok, "order %d must not be committed", id)
	}
	for _, item := range items {
		_, ok := orders[item.OrderId]
		assert.True(t, ok, "item references uncommitted order %d", item.OrderId)
	}

	snap := tally.Snapshot()
	assert.Equal(t, int64(4), snap.OrdersLost)
	assert.Equal(t, int64(1), snap.BatchFailures[StageOrders])
}

func TestOrderSynthesizer_HeldLock(t *testing.T) {
	locker := newFakeLocker()
	lease, err := locker.Obtain(context.Background(), OrderSynthesizerLockKey, time.Minute)
	require.NoError(t, err)

	rel := newFakeRel()
	_, err = newTestSynthesizer(rel, locker, NewTally()).Synthesize(context.Background(), []int{1}, testInventory())
	assert.ErrorIs(t, err, ErrRunLocked)
	orders, _, _ := rel.snapshot()
	assert.Empty(t, orders)

	require.NoError(t, lease.Release(context.Background()))
	_, err = newTestSynthesizer(rel, locker, NewTally()).Synthesize(context.Background(), []int{1}, testInventory())
	assert.NoError(t, err)
	assert.False(t, locker.held[OrderSynthesizerLockKey], "lease is released after the run")
}

func TestOrderSynthesizer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSynthesizer(newFakeRel(), nil, NewTally()).Synthesize(ctx, []int{1}, testInventory())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderSynthesizer_RunsWithoutLocker(t *testing.T) {
	rel := newFakeRel()
	res, err := newTestSynthesizer(rel, nil, NewTally()).Synthesize(context.Background(), []int{1}, testInventory())
	require.NoError(t, err)
	assert.Equal(t, 30, res.Orders)
	assert.Equal(t, 3, rel.commits)
}

func TestOrderSynthesizer_RefreshesLockPerCommit(t *testing.T) {
	locker := newFakeLocker()
	res, err := newTestSynthesizer(newFakeRel(), locker, NewTally()).Synthesize(context.Background(), []int{1}, testInventory())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, locker.refreshes)
}

func TestOrderSynthesizer_LostLockStopsRun(t *testing.T) {
	locker := newFakeLocker()
	locker.failRefresh = true
	rel := newFakeRel()

	res, err := newTestSynthesizer(rel, locker, NewTally()).Synthesize(context.Background(), []int{1}, testInventory())
	assert.ErrorIs(t, err, ErrRunLocked)
	assert.ErrorIs(t, err, stores.ErrLockNotObtained)
	assert.Equal(t, 10, res.Orders, "the first window is committed before the refresh")
	assert.Equal(t, 1, rel.commits)
	assert.False(t, locker.held[OrderSynthesizerLockKey], "lease is released on the way out")
}
