package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repello/internal/book"
	"repello/internal/types"
)

func order(side types.Side, kind types.Kind, price int64, qty, minQty uint64, seq uint64) *types.Order {
	return &types.Order{
		ID:               uuid.New(),
		Side:             side,
		Kind:             kind,
		Price:            price,
		OriginalQuantity: qty,
		Remaining:        qty,
		MinimumQuantity:  minQty,
		ArrivalSequence:  seq,
		CreatedAt:        time.Now(),
	}
}

func TestMatch_RestsOnEmptyBook(t *testing.T) {
	b := book.New()
	now := time.Now()
	incoming := order(types.Buy, types.Normal, 100, 10, 0, 1)

	result := Match(incoming, b, now)

	assert.Equal(t, types.Rested, result.Disposition)
	assert.Empty(t, result.Trades)
	assert.True(t, b.Contains(incoming.ID))
}

func TestMatch_SimpleFullMatch(t *testing.T) {
	b := book.New()
	now := time.Now()
	sell := order(types.Sell, types.Normal, 100, 10, 0, 1)
	b.Insert(sell)

	buy := order(types.Buy, types.Normal, 100, 10, 0, 2)
	result := Match(buy, b, now)

	assert.Equal(t, types.FullyFilled, result.Disposition)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, int64(100), result.Trades[0].Price)
	assert.Equal(t, uint64(10), result.Trades[0].Quantity)
	assert.False(t, b.Contains(sell.ID))
	assert.False(t, b.Contains(buy.ID))
	assert.Equal(t, []uuid.UUID{sell.ID}, result.FilledMakers)
}

func TestMatch_MultiLevelMatchWithResidual(t *testing.T) {
	b := book.New()
	now := time.Now()
	sell1 := order(types.Sell, types.Normal, 100, 5, 0, 1)
	sell2 := order(types.Sell, types.Normal, 101, 5, 0, 2)
	b.Insert(sell1)
	b.Insert(sell2)

	buy := order(types.Buy, types.Normal, 101, 8, 0, 3)
	result := Match(buy, b, now)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, int64(100), result.Trades[0].Price)
	assert.Equal(t, uint64(5), result.Trades[0].Quantity)
	assert.Equal(t, int64(101), result.Trades[1].Price)
	assert.Equal(t, uint64(3), result.Trades[1].Quantity)
	assert.Equal(t, types.FullyFilled, result.Disposition)

	remaining, ok := b.Get(sell2.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(2), remaining.Remaining)
	assert.Equal(t, []uuid.UUID{sell1.ID}, result.FilledMakers)
}

func TestMatch_KillWithInsufficientMinimumQuantityRollsBack(t *testing.T) {
	b := book.New()
	now := time.Now()
	sell := order(types.Sell, types.Normal, 100, 5, 0, 1)
	b.Insert(sell)

	buy := order(types.Buy, types.Kill, 100, 10, 8, 2)
	result := Match(buy, b, now)

	assert.Equal(t, types.Killed, result.Disposition)
	assert.Empty(t, result.Trades)
	assert.Equal(t, uint64(10), buy.Remaining)

	// Book must be untouched: the staged decrement was rolled back.
	resting, ok := b.Get(sell.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(5), resting.Remaining)
}

func TestMatch_SamePriceArrivalSequenceTieBreak(t *testing.T) {
	b := book.New()
	now := time.Now()
	first := order(types.Sell, types.Normal, 100, 5, 0, 1)
	second := order(types.Sell, types.Normal, 100, 5, 0, 2)
	b.Insert(first)
	b.Insert(second)

	buy := order(types.Buy, types.Normal, 100, 5, 0, 3)
	result := Match(buy, b, now)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, first.ID, result.Trades[0].SellOrderID)
	assert.False(t, b.Contains(first.ID))
	assert.True(t, b.Contains(second.ID))
}

func TestMatch_ExpiredMakerIsSweptAndSkipped(t *testing.T) {
	b := book.New()
	now := time.Now()
	past := now.Add(-time.Minute)
	expired := order(types.Sell, types.Normal, 100, 5, 0, 1)
	expired.Expiration = &past
	live := order(types.Sell, types.Normal, 100, 5, 0, 2)
	b.Insert(expired)
	b.Insert(live)

	buy := order(types.Buy, types.Normal, 100, 5, 0, 3)
	result := Match(buy, b, now)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, live.ID, result.Trades[0].SellOrderID)
	assert.Contains(t, result.ExpiredRemoved, expired.ID)
	assert.False(t, b.Contains(expired.ID))
}

func TestMatch_IncomingExpiredAtAdmissionIsRejected(t *testing.T) {
	b := book.New()
	now := time.Now()
	past := now.Add(-time.Minute)
	buy := order(types.Buy, types.Normal, 100, 5, 0, 1)
	buy.Expiration = &past

	result := Match(buy, b, now)
	assert.Equal(t, types.Rejected, result.Disposition)
	assert.False(t, b.Contains(buy.ID))
}

func TestMatch_KillWithPartialLiquidityFillsAndDoesNotRest(t *testing.T) {
	b := book.New()
	now := time.Now()
	sell := order(types.Sell, types.Normal, 100, 3, 0, 1)
	b.Insert(sell)

	buy := order(types.Buy, types.Kill, 100, 10, 0, 2)
	result := Match(buy, b, now)

	assert.Equal(t, types.Killed, result.Disposition)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, uint64(3), result.Trades[0].Quantity)
	assert.False(t, b.Contains(buy.ID))
}
