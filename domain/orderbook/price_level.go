package orderbook

// PriceLevel is the FIFO queue of resting orders at one price. Orders carry
// their own prev/next links, so append, arbitrary removal by handle, and head
// access are all O(1) with zero allocation.
//
// Invariants: every queued order has Price == level Price; OrderCount equals
// the queue length; TotalQty equals the sum of LeavesQty over queued orders;
// sequences are strictly increasing head to tail.
type PriceLevel struct {
	Price      Price
	TotalQty   Quantity
	OrderCount uint32

	head *Order
	tail *Order
}

// Enqueue appends an order at the tail.
func (l *PriceLevel) Enqueue(o *Order) {
	if o.Price != l.Price {
		panic("orderbook: order price does not match level")
	}
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o
	l.TotalQty += o.LeavesQty
	l.OrderCount++
}

// Remove unlinks an order from anywhere in the queue using its own links.
func (l *PriceLevel) Remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.prev = nil
	o.next = nil
	l.ReduceQuantity(o.LeavesQty)
	l.OrderCount--
}

// Front returns the oldest order, the next to be matched. Nil when empty.
func (l *PriceLevel) Front() *Order { return l.head }

// PopFront removes and returns the head order.
func (l *PriceLevel) PopFront() *Order {
	o := l.head
	if o == nil {
		return nil
	}
	l.head = o.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	o.prev = nil
	o.next = nil
	l.ReduceQuantity(o.LeavesQty)
	l.OrderCount--
	return o
}

// ReduceQuantity decrements the aggregate after a partial fill or a
// quantity-reducing amend. Clamps at zero: the fill primitive decrements the
// aggregate before either order's LeavesQty moves, so the clamp path is not
// reachable in normal operation.
func (l *PriceLevel) ReduceQuantity(n Quantity) {
	if n > l.TotalQty {
		l.TotalQty = 0
		return
	}
	l.TotalQty -= n
}

func (l *PriceLevel) Empty() bool { return l.OrderCount == 0 }

// Each walks the queue head to tail until fn returns false.
func (l *PriceLevel) Each(fn func(*Order) bool) {
	for o := l.head; o != nil; o = o.next {
		if !fn(o) {
			return
		}
	}
}
