package book

import (
	"github.com/emirpasic/gods/v2/trees/redblacktree"

	"github.com/rishav/xchange-engine/internal/wire"
)

// defaultArenaCapacity bounds how many orders may rest in one book at once.
// Exceeding it is the "order storage full" fatal condition spec.md assigns
// to the owning processor.
const defaultArenaCapacity = 1 << 16

// orderKey identifies a resting order for O(1) cancel lookup. Keying on the
// (user, user_order_id) pair — rather than user_order_id alone — lets two
// different users reuse the same user_order_id without colliding; cancel's
// "owned by a different user" case then simply never finds a match under a
// different user's key, which is observably identical to looking it up and
// rejecting on an ownership check.
type orderKey struct {
	userID      uint32
	userOrderID uint32
}

// OrderBook holds both sides of the market for one symbol and matches
// incoming orders against resting liquidity using price-time priority.
type OrderBook struct {
	Symbol wire.Symbol

	bids *redblacktree.Tree[uint32, *priceLevel] // best = highest price
	asks *redblacktree.Tree[uint32, *priceLevel] // best = lowest price

	byKey map[orderKey]*Order
	arena *arena

	lastTopBuy  topState
	lastTopSell topState
}

type topState struct {
	price uint32
	qty   uint64
	set   bool // whether any TopOfBook has been emitted yet
}

// NewOrderBook creates an empty book for symbol with the default arena
// capacity.
func NewOrderBook(symbol wire.Symbol) *OrderBook {
	return NewOrderBookWithCapacity(symbol, defaultArenaCapacity)
}

// NewOrderBookWithCapacity creates an empty book with an explicit resting
// order capacity, mainly for tests that want to exercise arena exhaustion
// cheaply.
func NewOrderBookWithCapacity(symbol wire.Symbol, capacity int) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   redblacktree.NewWith[uint32, *priceLevel](descendingUint32),
		asks:   redblacktree.NewWith[uint32, *priceLevel](ascendingUint32),
		byKey:  make(map[orderKey]*Order),
		arena:  newArena(capacity),
	}
}

func ascendingUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func descendingUint32(a, b uint32) int {
	return ascendingUint32(b, a)
}

func (ob *OrderBook) treeFor(side wire.Side) *redblacktree.Tree[uint32, *priceLevel] {
	if side == wire.Buy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) opposite(side wire.Side) *redblacktree.Tree[uint32, *priceLevel] {
	if side == wire.Buy {
		return ob.asks
	}
	return ob.bids
}

// bestLevel returns the most aggressive non-empty level on tree, or nil.
func bestLevel(tree *redblacktree.Tree[uint32, *priceLevel]) *priceLevel {
	node := tree.Left()
	if node == nil {
		return nil
	}
	return node.Value
}

func crosses(side wire.Side, incomingPrice, restingPrice uint32) bool {
	if side == wire.Buy {
		return restingPrice <= incomingPrice
	}
	return restingPrice >= incomingPrice
}

// Add validates and processes a new limit order, returning the messages it
// produced in emission order: first the Ack (or nothing, if the order was
// invalid and silently dropped), then any Trades in execution order, then
// any TopOfBook updates caused by those trades and by the order's own rest.
func (ob *OrderBook) Add(o *Order) []wire.Message {
	if !o.Side.Valid() || o.Quantity == 0 {
		ob.arena.release(o)
		return nil
	}
	key := orderKey{userID: o.UserID, userOrderID: o.UserOrderID}
	if _, exists := ob.byKey[key]; exists {
		ob.arena.release(o)
		return nil
	}

	out := make([]wire.Message, 0, 4)
	out = append(out, &wire.Ack{Symbol: ob.Symbol, UserID: o.UserID, UserOrderID: o.UserOrderID})

	opp := ob.opposite(o.Side)
	traded := false
	for o.Quantity > 0 {
		level := bestLevel(opp)
		if level == nil || !crosses(o.Side, o.Price, level.Price) {
			break
		}
		out = ob.matchAgainst(o, level, out)
		traded = true
	}
	if traded {
		out = ob.emitTopIfChanged(opposite(o.Side), out)
	}

	if o.Quantity == 0 {
		ob.arena.release(o)
	} else {
		own := ob.treeFor(o.Side)
		level, found := own.Get(o.Price)
		if !found {
			level = newPriceLevel(o.Price)
			own.Put(o.Price, level)
		}
		level.append(o)
		ob.byKey[key] = o
		out = ob.emitTopIfChanged(o.Side, out)
	}

	return out
}

// matchAgainst fills o against the head of level (and successive heads at
// the same level) until o is filled, the level is exhausted, or price no
// longer crosses. It appends Trade messages only; Add emits the resting
// side's TopOfBook update once matching across all levels is done.
func (ob *OrderBook) matchAgainst(o *Order, level *priceLevel, out []wire.Message) []wire.Message {
	restingSide := opposite(o.Side)
	for o.Quantity > 0 && !level.isEmpty() {
		head := level.head.order
		qty := o.Quantity
		if head.Quantity < qty {
			qty = head.Quantity
		}

		o.Quantity -= qty
		head.Quantity -= qty

		var trade *wire.Trade
		if o.Side == wire.Buy {
			trade = &wire.Trade{Symbol: ob.Symbol, BuyUser: o.UserID, BuyOrder: o.UserOrderID, SellUser: head.UserID, SellOrder: head.UserOrderID, Price: level.Price, Quantity: qty}
		} else {
			trade = &wire.Trade{Symbol: ob.Symbol, BuyUser: head.UserID, BuyOrder: head.UserOrderID, SellUser: o.UserID, SellOrder: o.UserOrderID, Price: level.Price, Quantity: qty}
		}
		out = append(out, trade)

		// Always account for the traded quantity against the level's total
		// first: removeResting's underlying priceLevel.remove subtracts
		// head's own remaining Quantity, which is already zero by the time
		// a full fill gets here, so it would otherwise leave the traded
		// quantity still counted in the level's total.
		level.reduceQty(qty)
		if head.Quantity == 0 {
			ob.removeResting(head, restingSide, level)
		}

		if !crosses(o.Side, o.Price, level.Price) {
			break
		}
	}
	return out
}

func opposite(s wire.Side) wire.Side {
	if s == wire.Buy {
		return wire.Sell
	}
	return wire.Buy
}

// removeResting fully removes a filled or cancelled order from its level,
// deleting the level from its tree if it becomes empty, and releases the
// order's arena slot.
func (ob *OrderBook) removeResting(o *Order, side wire.Side, level *priceLevel) {
	level.remove(o.node)
	delete(ob.byKey, orderKey{userID: o.UserID, userOrderID: o.UserOrderID})
	if level.isEmpty() {
		ob.treeFor(side).Remove(level.Price)
	}
	ob.arena.release(o)
}

// emitTopIfChanged appends a TopOfBook message for side if its best price or
// quantity differs from the last one emitted.
func (ob *OrderBook) emitTopIfChanged(side wire.Side, out []wire.Message) []wire.Message {
	level := bestLevel(ob.treeFor(side))
	var price uint32
	var qty uint64
	if level != nil {
		price, qty = level.Price, level.TotalQty
	}

	last := ob.topStateFor(side)
	if last.set && last.price == price && last.qty == qty {
		return out
	}
	ob.setTopState(side, topState{price: price, qty: qty, set: true})

	return append(out, &wire.TopOfBook{Symbol: ob.Symbol, Side: side, Price: price, Quantity: uint32(qty)})
}

func (ob *OrderBook) topStateFor(side wire.Side) topState {
	if side == wire.Buy {
		return ob.lastTopBuy
	}
	return ob.lastTopSell
}

func (ob *OrderBook) setTopState(side wire.Side, s topState) {
	if side == wire.Buy {
		ob.lastTopBuy = s
	} else {
		ob.lastTopSell = s
	}
}

// NewRestingOrder allocates an order from this book's arena and fills it
// in, ready to pass to Add. Returns ErrArenaFull if the book's resting
// order capacity is exhausted.
func (ob *OrderBook) NewRestingOrder(userID uint32, price, qty uint32, side wire.Side, userOrderID uint32, timestamp, sequence uint64) (*Order, error) {
	o, err := ob.arena.alloc()
	if err != nil {
		return nil, err
	}
	o.UserID = userID
	o.UserOrderID = userOrderID
	o.Symbol = ob.Symbol
	o.Price = price
	o.Quantity = qty
	o.Side = side
	o.Timestamp = timestamp
	o.Sequence = sequence
	return o, nil
}

// Cancel removes a resting order by (user_id, user_order_id). Per spec this
// is silent when the order is absent or owned by a different user: Cancel
// returns nil in that case. Otherwise it returns the CancelAck and any
// TopOfBook update the removal caused.
func (ob *OrderBook) Cancel(userID, userOrderID uint32) []wire.Message {
	key := orderKey{userID: userID, userOrderID: userOrderID}
	o, found := ob.byKey[key]
	if !found {
		return nil
	}

	side := o.Side
	level := o.node.level
	ob.removeResting(o, side, level)

	out := []wire.Message{&wire.CancelAck{Symbol: ob.Symbol, UserID: userID, UserOrderID: userOrderID}}
	return ob.emitTopIfChanged(side, out)
}

// Flush removes every resting order, emitting a CancelAck for each (in
// price-priority, then time-priority order, per side Buy-before-Sell) and
// an eliminated TopOfBook for every side that had resting orders.
func (ob *OrderBook) Flush() []wire.Message {
	var out []wire.Message

	hadBuy := !ob.bids.Empty()
	hadSell := !ob.asks.Empty()

	out = ob.flushSide(ob.bids, wire.Buy, out)
	out = ob.flushSide(ob.asks, wire.Sell, out)

	if hadBuy {
		out = append(out, &wire.TopOfBook{Symbol: ob.Symbol, Side: wire.Buy, Price: 0, Quantity: 0})
		ob.lastTopBuy = topState{set: true}
	}
	if hadSell {
		out = append(out, &wire.TopOfBook{Symbol: ob.Symbol, Side: wire.Sell, Price: 0, Quantity: 0})
		ob.lastTopSell = topState{set: true}
	}
	return out
}

func (ob *OrderBook) flushSide(tree *redblacktree.Tree[uint32, *priceLevel], side wire.Side, out []wire.Message) []wire.Message {
	for !tree.Empty() {
		node := tree.Left()
		level := node.Value
		for !level.isEmpty() {
			o := level.head.order
			level.remove(o.node)
			delete(ob.byKey, orderKey{userID: o.UserID, userOrderID: o.UserOrderID})
			out = append(out, &wire.CancelAck{Symbol: ob.Symbol, UserID: o.UserID, UserOrderID: o.UserOrderID})
			ob.arena.release(o)
		}
		tree.Remove(level.Price)
	}
	return out
}

// BestBid returns the best resting bid price/quantity, or (0, 0, false).
func (ob *OrderBook) BestBid() (price uint32, qty uint64, ok bool) {
	return topOf(ob.bids)
}

// BestAsk returns the best resting ask price/quantity, or (0, 0, false).
func (ob *OrderBook) BestAsk() (price uint32, qty uint64, ok bool) {
	return topOf(ob.asks)
}

func topOf(tree *redblacktree.Tree[uint32, *priceLevel]) (uint32, uint64, bool) {
	level := bestLevel(tree)
	if level == nil {
		return 0, 0, false
	}
	return level.Price, level.TotalQty, true
}

// TotalOrders returns the number of orders currently resting in this book.
func (ob *OrderBook) TotalOrders() int {
	return len(ob.byKey)
}
