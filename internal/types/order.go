// Package types holds the data model shared by the book, the matcher and
// the engine: orders, trades, sides, kinds and dispositions.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Side is the side of an order (Buy or Sell). Immutable for an order's
// lifetime.
type Side int

const (
	Buy Side = iota
	Sell
)

// String returns the string representation of a Side.
func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return "Unknown"
	}
}

// MarshalJSON converts a Side to its string representation for JSON encoding.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON converts a string to a Side for JSON decoding.
func (s *Side) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	switch str {
	case "Buy", "BUY", "buy":
		*s = Buy
	case "Sell", "SELL", "sell":
		*s = Sell
	default:
		return fmt.Errorf("unknown order_side: %s", str)
	}
	return nil
}

// Opposite returns the other side of the market.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind is the order type: Normal rests on a partial fill, Kill discards any
// residual after its initial match attempt.
type Kind int

const (
	Normal Kind = iota
	Kill
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Normal:
		return "Normal"
	case Kill:
		return "Kill"
	default:
		return "Unknown"
	}
}

// MarshalJSON converts a Kind to its string representation for JSON encoding.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON converts a string to a Kind for JSON decoding.
func (k *Kind) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	switch str {
	case "Normal", "NORMAL", "normal":
		*k = Normal
	case "Kill", "KILL", "kill":
		*k = Kill
	default:
		return fmt.Errorf("unknown order_type: %s", str)
	}
	return nil
}

// Disposition is the outcome of a command applied to the engine.
type Disposition int

const (
	Rested Disposition = iota
	FullyFilled
	Killed
	Rejected
	Cancelled
	ModifySuppressed
)

// String returns the string representation of a Disposition.
func (d Disposition) String() string {
	switch d {
	case Rested:
		return "Rested"
	case FullyFilled:
		return "FullyFilled"
	case Killed:
		return "Killed"
	case Rejected:
		return "Rejected"
	case Cancelled:
		return "Cancelled"
	case ModifySuppressed:
		return "ModifySuppressed"
	default:
		return "Unknown"
	}
}

// MarshalJSON converts a Disposition to its string representation.
func (d Disposition) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// Order is a resting or incoming intent to trade. Price is stored as a
// fixed-point tick count (see internal/price) rather than a binary float, to
// keep tie-break comparisons deterministic across implementations.
type Order struct {
	ID               uuid.UUID
	Side             Side
	Kind             Kind
	Price            int64 // fixed-point ticks, positive
	OriginalQuantity uint64
	Remaining        uint64
	MinimumQuantity  uint64
	Expiration       *time.Time // nil means never expires
	ArrivalSequence  uint64
	CreatedAt        time.Time
}

// FilledQuantity returns how much of the order has been filled so far.
func (o *Order) FilledQuantity() uint64 {
	return o.OriginalQuantity - o.Remaining
}

// Expired reports whether the order's expiration is at or before now.
func (o *Order) Expired(now time.Time) bool {
	return o.Expiration != nil && !o.Expiration.After(now)
}

// Clone returns a shallow copy of the order, safe for the matcher to mutate
// independently of whatever the caller is still holding a reference to.
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}

// String returns a human-readable representation of an Order for logging.
func (o *Order) String() string {
	return fmt.Sprintf("Order[id=%s side=%s kind=%s price=%d qty=%d/%d min=%d]",
		o.ID, o.Side, o.Kind, o.Price, o.Remaining, o.OriginalQuantity, o.MinimumQuantity)
}
