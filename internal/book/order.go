// Package book implements a single symbol's limit order book: price-time
// priority matching, resting-order storage, cancellation, and top-of-book
// tracking.
package book

import "github.com/rishav/xchange-engine/internal/wire"

// Order is a resting or in-flight limit order. Quantity is mutated in place
// as fills occur; Order is never copied once it rests in a book (the arena
// hands out pointers, not values).
type Order struct {
	UserID      uint32
	UserOrderID uint32
	Symbol      wire.Symbol
	Price       uint32
	Quantity    uint32 // remaining, not original
	Side        wire.Side
	Timestamp   uint64 // monotonic ns, arrival order tiebreak
	Sequence    uint64 // global acceptance sequence, for diagnostics

	node     *orderNode // back-reference into its resting price level, nil if not resting
	arenaIdx uint32     // this order's slot index in its owning arena
}

// Resting reports whether the order currently occupies a price level.
func (o *Order) Resting() bool {
	return o.node != nil
}
