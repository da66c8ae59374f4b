// Package book implements the price-time priority limit order book: two
// price-indexed red-black trees (one per side), each holding an intrusive
// FIFO queue of resting orders per price level, plus an id-indexed locator
// map for O(1) average cancel/modify.
package book

import (
	"fmt"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
	"github.com/google/uuid"

	"repello/internal/types"
)

// locator is the OrderIndex's non-owning pointer to a live resting order:
// which side's tree it lives in, at which price, and which linked-list node
// it occupies. The Book is the sole owner of the node; the locator is only a
// relation.
type locator struct {
	side types.Side
	price int64
	n     *node
}

// Book holds both sides of the market for a single instrument. Multi-symbol
// support is the caller's concern (one Book per symbol), not this
// package's.
type Book struct {
	bids  *redblacktree.Tree // price int64 -> *PriceLevel, descending (best = highest)
	asks  *redblacktree.Tree // price int64 -> *PriceLevel, ascending (best = lowest)
	index map[uuid.UUID]*locator
}

// New creates an empty Book.
func New() *Book {
	return &Book{
		bids: redblacktree.NewWith(func(a, b any) int {
			return utils.Int64Comparator(b, a)
		}),
		asks:  redblacktree.NewWith(utils.Int64Comparator),
		index: make(map[uuid.UUID]*locator),
	}
}

func (b *Book) treeFor(side types.Side) *redblacktree.Tree {
	if side == types.Buy {
		return b.bids
	}
	return b.asks
}

// Insert places order at the tail of its PriceLevel, creating the level if
// absent. Panics on a duplicate id: that is a programming error, fatal at
// the Engine level.
func (b *Book) Insert(order *types.Order) {
	if _, exists := b.index[order.ID]; exists {
		panic(fmt.Sprintf("book: duplicate order id %s on insert", order.ID))
	}

	tree := b.treeFor(order.Side)
	var level *PriceLevel
	if v, found := tree.Get(order.Price); found {
		level = v.(*PriceLevel)
	} else {
		level = &PriceLevel{Price: order.Price}
		tree.Put(order.Price, level)
	}

	n := level.pushBack(order)
	b.index[order.ID] = &locator{side: order.Side, price: order.Price, n: n}
}

// Remove deletes the order by id, deleting its PriceLevel if it becomes
// empty. Panics if id is unknown: an unknown id on remove is a programming
// error.
func (b *Book) Remove(id uuid.UUID) *types.Order {
	loc, exists := b.index[id]
	if !exists {
		panic(fmt.Sprintf("book: unknown order id %s on remove", id))
	}
	return b.removeLocator(id, loc)
}

// RemoveIfPresent is the non-panicking variant of Remove, used by the
// engine's Cancel path where "not present" is an ordinary caller error
// (NotFound), not book corruption.
func (b *Book) RemoveIfPresent(id uuid.UUID) (*types.Order, bool) {
	loc, exists := b.index[id]
	if !exists {
		return nil, false
	}
	return b.removeLocator(id, loc), true
}

func (b *Book) removeLocator(id uuid.UUID, loc *locator) *types.Order {
	tree := b.treeFor(loc.side)
	v, found := tree.Get(loc.price)
	if !found {
		panic(fmt.Sprintf("book: price level %d missing for indexed order %s", loc.price, id))
	}
	level := v.(*PriceLevel)
	order := loc.n.order
	level.remove(loc.n)
	if level.count == 0 {
		tree.Remove(loc.price)
	}
	delete(b.index, id)
	return order
}

// DecrementQty reduces the order's remaining quantity by delta. If the
// remaining quantity reaches zero, the order is removed from the book (and
// returned, to signal full consumption to the caller). Panics if id is
// unknown or delta exceeds the order's remaining quantity.
func (b *Book) DecrementQty(id uuid.UUID, delta uint64) (removed *types.Order) {
	loc, exists := b.index[id]
	if !exists {
		panic(fmt.Sprintf("book: unknown order id %s on decrement", id))
	}
	order := loc.n.order
	if delta > order.Remaining {
		panic(fmt.Sprintf("book: decrement %d exceeds remaining %d for order %s", delta, order.Remaining, id))
	}
	order.Remaining -= delta
	if order.Remaining == 0 {
		return b.removeLocator(id, loc)
	}
	return nil
}

// Contains reports whether id currently names a resting order.
func (b *Book) Contains(id uuid.UUID) bool {
	_, ok := b.index[id]
	return ok
}

// Get returns the resting order named by id, if any.
func (b *Book) Get(id uuid.UUID) (*types.Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return loc.n.order, true
}

// Best returns the best (highest bid / lowest ask) PriceLevel for side, or
// nil if that side is empty.
func (b *Book) Best(side types.Side) *PriceLevel {
	tree := b.treeFor(side)
	n := tree.Left()
	if n == nil {
		return nil
	}
	return n.Value.(*PriceLevel)
}

// Empty reports whether side has no resting orders.
func (b *Book) Empty(side types.Side) bool {
	return b.treeFor(side).Empty()
}

// Depth describes one side's aggregate quantity at each price level,
// best-first, optionally capped to the first limit levels (0 = unlimited).
func (b *Book) Depth(side types.Side, limit int) []DepthLevel {
	tree := b.treeFor(side)
	it := tree.Iterator()
	it.Begin()
	out := make([]DepthLevel, 0)
	for it.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		level := it.Value().(*PriceLevel)
		out = append(out, DepthLevel{Price: level.Price, Quantity: level.TotalQuantity()})
	}
	return out
}

// DepthLevel is one row of an aggregated order-book depth snapshot.
type DepthLevel struct {
	Price    int64
	Quantity uint64
}

// Walker is a lazy, ordered cursor over the opposite side of the book from
// an incoming order, in match order (best price first, then arrival
// sequence ascending within a level). It tolerates the consumer removing or
// decrementing the node just returned by Next before calling Next again,
// because the next pointer is captured before control returns to the
// caller.
type Walker struct {
	tree       *redblacktree.Tree
	it         redblacktree.Iterator
	limitPrice int64
	crossCheck func(levelPrice int64) bool
	cur        *node
	exhausted  bool
}

// WalkOpposite returns a Walker over the side opposite incomingSide, only
// visiting resting orders whose price crosses limitPrice (for an incoming
// Buy: resting Sell price <= limitPrice; for an incoming Sell: resting Buy
// price >= limitPrice).
func (b *Book) WalkOpposite(incomingSide types.Side, limitPrice int64) *Walker {
	opposite := incomingSide.Opposite()
	w := &Walker{
		tree:       b.treeFor(opposite),
		limitPrice: limitPrice,
	}
	if opposite == types.Sell {
		w.crossCheck = func(levelPrice int64) bool { return levelPrice <= limitPrice }
	} else {
		w.crossCheck = func(levelPrice int64) bool { return levelPrice >= limitPrice }
	}
	w.it = w.tree.Iterator()
	w.it.Begin()
	return w
}

// Next returns the next crossing resting order, or (nil, false) once the
// book side is exhausted or the next price level no longer crosses.
func (w *Walker) Next() (*types.Order, bool) {
	if w.exhausted {
		return nil, false
	}
	for {
		if w.cur != nil {
			n := w.cur
			w.cur = n.next
			return n.order, true
		}
		if !w.it.Next() {
			w.exhausted = true
			return nil, false
		}
		level := w.it.Value().(*PriceLevel)
		if !w.crossCheck(level.Price) {
			w.exhausted = true
			return nil, false
		}
		w.cur = level.head
	}
}
