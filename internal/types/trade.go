package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable record of one match between a buy order and a sell
// order. Price is always the maker's (resting order's) price.
type Trade struct {
	ID          uuid.UUID
	BuyOrderID  uuid.UUID
	SellOrderID uuid.UUID
	Price       int64
	Quantity    uint64
	Timestamp   time.Time
	MakerSide   Side
}

// NewTrade creates and returns a new Trade.
func NewTrade(buyOrderID, sellOrderID uuid.UUID, price int64, quantity uint64, makerSide Side, now time.Time) Trade {
	return Trade{
		ID:          uuid.New(),
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   now,
		MakerSide:   makerSide,
	}
}

// String returns the string representation of a Trade for logging.
func (t Trade) String() string {
	return fmt.Sprintf("Trade[id=%s buy=%s sell=%s price=%d qty=%d maker=%s]",
		t.ID, t.BuyOrderID, t.SellOrderID, t.Price, t.Quantity, t.MakerSide)
}
