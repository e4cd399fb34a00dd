package book

// orderNode is one entry in a price level's FIFO queue. Doubly linked so an
// order can be unlinked in O(1) given only its node, which is exactly what
// O(1) cancel needs (spec.md §9: "back-reference from a resting order to
// its level").
type orderNode struct {
	order *Order
	prev  *orderNode
	next  *orderNode
	level *priceLevel
}

// priceLevel holds every resting order at one (side, price) point, in
// arrival order. TotalQty always equals the sum of its orders' remaining
// quantities (spec.md §3 invariant).
type priceLevel struct {
	Price    uint32
	head     *orderNode
	tail     *orderNode
	count    int
	TotalQty uint64
}

func newPriceLevel(price uint32) *priceLevel {
	return &priceLevel{Price: price}
}

func (l *priceLevel) isEmpty() bool { return l.count == 0 }

// append adds an order to the tail (least time priority at this price).
func (l *priceLevel) append(o *Order) *orderNode {
	n := &orderNode{order: o, level: l}
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.count++
	l.TotalQty += uint64(o.Quantity)
	o.node = n
	return n
}

// remove unlinks n from the level's queue in O(1).
func (l *priceLevel) remove(n *orderNode) {
	l.TotalQty -= uint64(n.order.Quantity)
	l.count--

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}

	n.order.node = nil
	n.prev, n.next, n.level = nil, nil, nil
}

// reduceQty adjusts TotalQty by the quantity just traded against an order
// resting at this level, whether that fill was partial or full; the order's
// own Quantity field has already been decremented by the caller, and remove
// (called separately on a full fill) no longer has a meaningful remaining
// Quantity to subtract.
func (l *priceLevel) reduceQty(delta uint32) {
	l.TotalQty -= uint64(delta)
}
