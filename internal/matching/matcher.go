// Package matching implements the Matcher: a stateless (with respect to the
// book) state machine that walks the opposite side of the book for one
// incoming order, stages trades and quantity decrements, and commits or
// rolls them back atomically against the holistic minimum-quantity gate.
package matching

import (
	"time"

	"github.com/google/uuid"

	"repello/internal/book"
	"repello/internal/types"
)

// Result is the outcome of matching one incoming order against the book.
type Result struct {
	Trades      []types.Trade
	FilledQty   uint64
	Disposition types.Disposition
	// ExpiredRemoved lists ids of resting orders the walk found past their
	// expiration and swept lazily, regardless of how incoming resolved.
	ExpiredRemoved []uuid.UUID
	// FilledMakers lists ids of resting orders consumed down to zero
	// remaining quantity by this match and removed from the book. The
	// caller must transition each to a terminal state of its own.
	FilledMakers []uuid.UUID
}

// step is one staged (trade, maker-decrement) pair. The Matcher accumulates
// these during the walk and only applies the decrements to the book on
// commit, so a failed minimum-quantity gate can be discarded without ever
// having mutated the book.
type step struct {
	trade   types.Trade
	makerID uuid.UUID
	qty     uint64
}

// Match executes incoming (not yet in the book) against b and returns the
// trades produced and incoming's disposition. incoming is mutated in place
// (Remaining/ArrivalSequence-adjacent bookkeeping) but is only inserted into
// b if it rests.
func Match(incoming *types.Order, b *book.Book, now time.Time) Result {
	if incoming.Expired(now) {
		return Result{Disposition: types.Rejected}
	}

	originalRemaining := incoming.Remaining
	var steps []step
	var expired []uuid.UUID

	walker := b.WalkOpposite(incoming.Side, incoming.Price)
	for incoming.Remaining > 0 {
		maker, ok := walker.Next()
		if !ok {
			break
		}
		if maker.Expired(now) {
			expired = append(expired, maker.ID)
			continue
		}

		tradeQty := incoming.Remaining
		if maker.Remaining < tradeQty {
			tradeQty = maker.Remaining
		}

		buyID, sellID := orderedIDs(incoming, maker)
		trade := types.NewTrade(buyID, sellID, maker.Price, tradeQty, maker.Side, now)
		steps = append(steps, step{trade: trade, makerID: maker.ID, qty: tradeQty})

		incoming.Remaining -= tradeQty
	}

	// Sweep lazily-discovered expirations unconditionally: they are stale
	// book state independent of whether incoming's own match is committed
	// or rolled back. Deferred until after the walk completes so the
	// book's trees are never mutated while the walker's tree iterator is
	// still live.
	for _, id := range expired {
		b.RemoveIfPresent(id)
	}

	totalFilled := originalRemaining - incoming.Remaining
	if totalFilled < incoming.MinimumQuantity {
		// Roll back: discard every staged step, restore incoming to its
		// pre-match state. No staged step was ever written to the book.
		incoming.Remaining = originalRemaining
		return Result{Disposition: types.Killed, ExpiredRemoved: expired}
	}

	trades := make([]types.Trade, 0, len(steps))
	var filledMakers []uuid.UUID
	for _, s := range steps {
		if removed := b.DecrementQty(s.makerID, s.qty); removed != nil {
			filledMakers = append(filledMakers, removed.ID)
		}
		trades = append(trades, s.trade)
	}

	result := Result{
		Trades:         trades,
		FilledQty:      totalFilled,
		ExpiredRemoved: expired,
		FilledMakers:   filledMakers,
	}

	switch {
	case incoming.Remaining == 0:
		result.Disposition = types.FullyFilled
	case incoming.Kind == types.Kill:
		result.Disposition = types.Killed
	default:
		b.Insert(incoming)
		result.Disposition = types.Rested
	}
	return result
}

// orderedIDs returns (buyOrderID, sellOrderID) for the pair regardless of
// which one is the incoming order and which is the maker.
func orderedIDs(a, b *types.Order) (buy, sell uuid.UUID) {
	if a.Side == types.Buy {
		return a.ID, b.ID
	}
	return b.ID, a.ID
}
