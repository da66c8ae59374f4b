package book

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repello/internal/types"
)

func newOrder(side types.Side, price int64, qty uint64, seq uint64) *types.Order {
	return &types.Order{
		ID:               uuid.New(),
		Side:             side,
		Kind:             types.Normal,
		Price:            price,
		OriginalQuantity: qty,
		Remaining:        qty,
		ArrivalSequence:  seq,
		CreatedAt:        time.Now(),
	}
}

func TestBook_InsertAndBest(t *testing.T) {
	b := New()
	buy := newOrder(types.Buy, 100, 10, 1)
	b.Insert(buy)

	best := b.Best(types.Buy)
	require.NotNil(t, best)
	assert.Equal(t, int64(100), best.Price)
	assert.Equal(t, uint64(10), best.TotalQuantity())
}

func TestBook_BestBidIsHighest(t *testing.T) {
	b := New()
	b.Insert(newOrder(types.Buy, 100, 1, 1))
	b.Insert(newOrder(types.Buy, 105, 1, 2))
	b.Insert(newOrder(types.Buy, 95, 1, 3))

	assert.Equal(t, int64(105), b.Best(types.Buy).Price)
}

func TestBook_BestAskIsLowest(t *testing.T) {
	b := New()
	b.Insert(newOrder(types.Sell, 100, 1, 1))
	b.Insert(newOrder(types.Sell, 95, 1, 2))
	b.Insert(newOrder(types.Sell, 105, 1, 3))

	assert.Equal(t, int64(95), b.Best(types.Sell).Price)
}

func TestBook_RemovePanicsOnUnknownID(t *testing.T) {
	b := New()
	assert.Panics(t, func() { b.Remove(uuid.New()) })
}

func TestBook_InsertPanicsOnDuplicateID(t *testing.T) {
	b := New()
	order := newOrder(types.Buy, 100, 1, 1)
	b.Insert(order)
	dup := order.Clone()
	assert.Panics(t, func() { b.Insert(dup) })
}

func TestBook_RemoveDeletesEmptyLevel(t *testing.T) {
	b := New()
	order := newOrder(types.Buy, 100, 10, 1)
	b.Insert(order)
	b.Remove(order.ID)

	assert.True(t, b.Empty(types.Buy))
	assert.Nil(t, b.Best(types.Buy))
}

func TestBook_RemoveIfPresent(t *testing.T) {
	b := New()
	_, ok := b.RemoveIfPresent(uuid.New())
	assert.False(t, ok)

	order := newOrder(types.Buy, 100, 10, 1)
	b.Insert(order)
	removed, ok := b.RemoveIfPresent(order.ID)
	assert.True(t, ok)
	assert.Equal(t, order.ID, removed.ID)
}

func TestBook_DecrementQtyRemovesWhenExhausted(t *testing.T) {
	b := New()
	order := newOrder(types.Buy, 100, 10, 1)
	b.Insert(order)

	removed := b.DecrementQty(order.ID, 5)
	assert.Nil(t, removed)
	assert.Equal(t, uint64(5), order.Remaining)
	assert.True(t, b.Contains(order.ID))

	removed = b.DecrementQty(order.ID, 5)
	require.NotNil(t, removed)
	assert.Equal(t, uint64(0), removed.Remaining)
	assert.False(t, b.Contains(order.ID))
}

func TestBook_DecrementQtyPanicsOnExcess(t *testing.T) {
	b := New()
	order := newOrder(types.Buy, 100, 10, 1)
	b.Insert(order)
	assert.Panics(t, func() { b.DecrementQty(order.ID, 11) })
}

func TestBook_PriceTimePriority(t *testing.T) {
	b := New()
	first := newOrder(types.Sell, 100, 5, 1)
	second := newOrder(types.Sell, 100, 5, 2)
	b.Insert(first)
	b.Insert(second)

	level := b.Best(types.Sell)
	orders := level.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Equal(t, second.ID, orders[1].ID)
}

func TestBook_WalkOpposite_StopsAtNonCrossingPrice(t *testing.T) {
	b := New()
	b.Insert(newOrder(types.Sell, 100, 5, 1))
	b.Insert(newOrder(types.Sell, 102, 5, 2))

	w := b.WalkOpposite(types.Buy, 101)
	order, ok := w.Next()
	require.True(t, ok)
	assert.Equal(t, int64(100), order.Price)

	_, ok = w.Next()
	assert.False(t, ok)
}

func TestBook_WalkOpposite_AllowsRemovalDuringWalk(t *testing.T) {
	b := New()
	a := newOrder(types.Sell, 100, 5, 1)
	c := newOrder(types.Sell, 100, 5, 2)
	b.Insert(a)
	b.Insert(c)

	w := b.WalkOpposite(types.Buy, 100)
	first, ok := w.Next()
	require.True(t, ok)
	assert.Equal(t, a.ID, first.ID)

	b.Remove(first.ID)

	second, ok := w.Next()
	require.True(t, ok)
	assert.Equal(t, c.ID, second.ID)
}

func TestBook_Depth(t *testing.T) {
	b := New()
	b.Insert(newOrder(types.Buy, 100, 5, 1))
	b.Insert(newOrder(types.Buy, 100, 5, 2))
	b.Insert(newOrder(types.Buy, 99, 3, 3))

	depth := b.Depth(types.Buy, 0)
	require.Len(t, depth, 2)
	assert.Equal(t, int64(100), depth[0].Price)
	assert.Equal(t, uint64(10), depth[0].Quantity)
	assert.Equal(t, int64(99), depth[1].Price)

	limited := b.Depth(types.Buy, 1)
	assert.Len(t, limited, 1)
}
