package orderbook

import (
	"kestrel/infra/memory"
	"kestrel/infra/sequence"
)

// TradeHandler receives each execution as it happens.
type TradeHandler func(Trade)

// OrderHandler receives order status changes. The Order is a copy; handlers
// must not re-enter the book that fired them.
type OrderHandler func(Order)

// SubID is the opaque token returned at subscriber registration.
type SubID uint64

type tradeSub struct {
	id SubID
	fn TradeHandler
}

type orderSub struct {
	id SubID
	fn OrderHandler
}

// BookLevel is one entry of a depth snapshot.
type BookLevel struct {
	Price      Price
	Quantity   Quantity
	OrderCount uint32
}

// OrderBook is a single-symbol central limit order book with price-time
// priority. Two red-black trees hold the price levels (bids read
// descending, asks ascending); a hash index maps live order ids to pool
// handles for O(1) cancel and amend.
//
// The book is single-threaded: every operation completes without yielding,
// and callbacks fire synchronously on the caller's goroutine. A callback
// must never re-enter the book that invoked it.
type OrderBook struct {
	symbol string

	bids  *levelTree
	asks  *levelTree
	index map[OrderID]*Order

	pool *memory.Pool[Order]
	seq  *sequence.Sequencer

	tradeCount  uint64
	totalVolume uint64

	tradeSubs []tradeSub
	orderSubs []orderSub
	nextSub   SubID

	now func() int64
}

// NewOrderBook creates an empty book for symbol with its own order pool.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newLevelTree(),
		asks:   newLevelTree(),
		index:  make(map[OrderID]*Order),
		pool:   memory.NewPool[Order](memory.DefaultCapacity),
		seq:    sequence.New(0),
		now:    nowNS,
	}
}

// SetClock overrides the timestamp source. Test and replay hook.
func (b *OrderBook) SetClock(fn func() int64) { b.now = fn }

// --------------------------------------------------------------------
// Subscribers
// --------------------------------------------------------------------

// SubscribeTrades registers fn for executions. Registration never replaces
// existing subscribers; handlers fire in registration order.
func (b *OrderBook) SubscribeTrades(fn TradeHandler) SubID {
	b.nextSub++
	b.tradeSubs = append(b.tradeSubs, tradeSub{id: b.nextSub, fn: fn})
	return b.nextSub
}

// SubscribeOrders registers fn for order status changes.
func (b *OrderBook) SubscribeOrders(fn OrderHandler) SubID {
	b.nextSub++
	b.orderSubs = append(b.orderSubs, orderSub{id: b.nextSub, fn: fn})
	return b.nextSub
}

// Unsubscribe removes the subscriber registered under id, from either list.
func (b *OrderBook) Unsubscribe(id SubID) bool {
	for i, s := range b.tradeSubs {
		if s.id == id {
			b.tradeSubs = append(b.tradeSubs[:i], b.tradeSubs[i+1:]...)
			return true
		}
	}
	for i, s := range b.orderSubs {
		if s.id == id {
			b.orderSubs = append(b.orderSubs[:i], b.orderSubs[i+1:]...)
			return true
		}
	}
	return false
}

func (b *OrderBook) notifyTrade(t Trade) {
	for _, s := range b.tradeSubs {
		s.fn(t)
	}
}

func (b *OrderBook) notifyOrder(o *Order) {
	if len(b.orderSubs) == 0 {
		return
	}
	cp := *o
	cp.prev, cp.next = nil, nil
	for _, s := range b.orderSubs {
		s.fn(cp)
	}
}

// --------------------------------------------------------------------
// Order entry
// --------------------------------------------------------------------

// AddOrder runs the submission pipeline: allocate, initialize, index,
// match, then dispose of the remainder by order type. Returns nil without
// side effects when the id is already live.
func (b *OrderBook) AddOrder(req NewOrderRequest) *Order {
	if _, dup := b.index[req.ID]; dup {
		return nil
	}

	o := b.pool.Get()
	ts := b.now()
	*o = Order{
		ID:         req.ID,
		Sequence:   b.seq.Next(),
		Side:       req.Side,
		Type:       req.Type,
		TIF:        req.TIF,
		Price:      req.Price,
		Quantity:   req.Quantity,
		LeavesQty:  req.Quantity,
		EntryTime:  ts,
		LastUpdate: ts,
		Status:     StatusNew,
		Symbol:     b.symbol,
	}

	b.index[o.ID] = o

	b.match(o)

	if o.LeavesQty > 0 {
		switch o.Type {
		case Limit:
			b.rest(o)
		default:
			// Market and IOC cancel the remainder. FOK only lands here if
			// the pre-check passed but a partial still occurred, which a
			// correct pre-check never allows.
			o.CancelRemainder(b.now())
			delete(b.index, o.ID)
			b.notifyOrder(o)
		}
	} else {
		delete(b.index, o.ID)
	}

	return o
}

// rest parks the remainder at the tail of its price level.
func (b *OrderBook) rest(o *Order) {
	b.sideFor(o).UpsertLevel(o.Price).Enqueue(o)
	b.notifyOrder(o)
}

func (b *OrderBook) sideFor(o *Order) *levelTree {
	if o.IsBuy() {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) contraFor(o *Order) *levelTree {
	if o.IsBuy() {
		return b.asks
	}
	return b.bids
}

// --------------------------------------------------------------------
// Matching
// --------------------------------------------------------------------

// priceAcceptable reports whether a limit crosses a contra level. A market
// price matches anything.
func priceAcceptable(limit, levelPrice Price, buy bool) bool {
	if limit == PriceMarket {
		return true
	}
	if buy {
		return limit >= levelPrice
	}
	return limit <= levelPrice
}

func (b *OrderBook) match(incoming *Order) {
	if incoming.Type == FOK && !b.canFillCompletely(incoming) {
		return
	}

	contra := b.contraFor(incoming)
	for incoming.LeavesQty > 0 && contra.Size() > 0 {
		var level *PriceLevel
		if incoming.IsBuy() {
			level = contra.MinLevel()
		} else {
			level = contra.MaxLevel()
		}
		if !priceAcceptable(incoming.Price, level.Price, incoming.IsBuy()) {
			break
		}

		for incoming.LeavesQty > 0 && !level.Empty() {
			resting := level.Front()
			b.executeFill(level, incoming, resting)
			if resting.IsFilled() {
				level.PopFront()
				delete(b.index, resting.ID)
				// Storage stays with the pool for post-mortem inspection;
				// it is released when the book tears down.
			}
		}

		if level.Empty() {
			contra.DeleteLevel(level.Price)
		}
	}
}

// executeFill is the single fill primitive. It decrements the level
// aggregate while it still reflects both orders' pre-fill sizes, then
// mutates both orders, then notifies. Reordering these steps underflows
// the aggregate.
func (b *OrderBook) executeFill(level *PriceLevel, incoming, resting *Order) {
	fillQty := incoming.LeavesQty
	if resting.LeavesQty < fillQty {
		fillQty = resting.LeavesQty
	}

	tr := Trade{
		Sequence:  b.seq.Next(),
		Price:     resting.Price,
		Quantity:  fillQty,
		ExecTime:  b.now(),
		Aggressor: incoming.Side,
		Symbol:    b.symbol,
	}
	if incoming.IsBuy() {
		tr.BuyOrderID, tr.SellOrderID = incoming.ID, resting.ID
	} else {
		tr.BuyOrderID, tr.SellOrderID = resting.ID, incoming.ID
	}

	level.ReduceQuantity(fillQty)
	ts := b.now()
	incoming.Fill(fillQty, ts)
	resting.Fill(fillQty, ts)

	b.notifyTrade(tr)
	b.notifyOrder(resting)

	b.tradeCount++
	b.totalVolume += fillQty
}

// canFillCompletely is the FOK pre-check: walk the contra side best-price
// inward, summing level aggregates while the price is acceptable. It must
// apply the same acceptability rule as the matching loop.
func (b *OrderBook) canFillCompletely(o *Order) bool {
	needed := o.LeavesQty
	contra := b.contraFor(o)

	visit := func(level *PriceLevel) bool {
		if !priceAcceptable(o.Price, level.Price, o.IsBuy()) {
			return false
		}
		if level.TotalQty >= needed {
			needed = 0
			return false
		}
		needed -= level.TotalQty
		return true
	}

	if o.IsBuy() {
		contra.ForEachAscending(visit)
	} else {
		contra.ForEachDescending(visit)
	}
	return needed == 0
}

// --------------------------------------------------------------------
// Cancel / amend
// --------------------------------------------------------------------

// CancelOrder removes a resting order. Returns false for unknown or
// inactive ids; a second cancel of the same id is a no-op.
func (b *OrderBook) CancelOrder(id OrderID) bool {
	o, ok := b.index[id]
	if !ok || !o.IsActive() {
		return false
	}

	b.removeFromBook(o)
	o.CancelRemainder(b.now())
	delete(b.index, id)
	b.notifyOrder(o)
	return true
}

// AmendOrder applies a price and/or quantity change. A price change or a
// quantity increase loses queue priority: the order is pulled, re-matched
// under a fresh sequence, and any residual re-rested. A pure quantity
// reduction keeps the order in place. No-op amends return true without
// side effects.
func (b *OrderBook) AmendOrder(req AmendRequest) bool {
	o, ok := b.index[req.OrderID]
	if !ok || !o.IsActive() {
		return false
	}

	priceChanged := req.NewPrice != 0 && req.NewPrice != o.Price
	qtyIncreased := req.NewQuantity != 0 && req.NewQuantity > o.LeavesQty
	qtyReduced := req.NewQuantity != 0 && req.NewQuantity < o.LeavesQty

	switch {
	case priceChanged || qtyIncreased:
		b.removeFromBook(o)

		if req.NewPrice != 0 {
			o.Price = req.NewPrice
		}
		if req.NewQuantity != 0 {
			if req.NewQuantity > o.FilledQty {
				o.Quantity = req.NewQuantity
				o.LeavesQty = req.NewQuantity - o.FilledQty
			} else {
				// Cannot amend below the executed size; close the order out.
				o.Quantity = o.FilledQty
				o.LeavesQty = 0
			}
		}
		o.Sequence = b.seq.Next()
		o.Status = StatusAmended
		o.LastUpdate = b.now()

		b.match(o)
		if o.LeavesQty > 0 && o.Type == Limit {
			b.rest(o)
			return true
		}
		if o.LeavesQty == 0 {
			if o.Status == StatusAmended {
				// Amended down to at-or-below the filled size.
				o.Status = StatusFilled
			}
			delete(b.index, o.ID)
			b.notifyOrder(o)
		}
		return true

	case qtyReduced:
		reduction := o.LeavesQty - req.NewQuantity
		o.LeavesQty = req.NewQuantity
		o.Quantity -= reduction
		o.Status = StatusAmended
		o.LastUpdate = b.now()
		if level := b.sideFor(o).FindLevel(o.Price); level != nil {
			level.ReduceQuantity(reduction)
		}
		b.notifyOrder(o)
		return true

	default:
		return true
	}
}

func (b *OrderBook) removeFromBook(o *Order) {
	side := b.sideFor(o)
	if level := side.FindLevel(o.Price); level != nil {
		level.Remove(o)
		if level.Empty() {
			side.DeleteLevel(o.Price)
		}
	}
}

// --------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------

// BestBid returns the highest bid price. ok is false when the side is empty.
func (b *OrderBook) BestBid() (Price, bool) {
	if l := b.bids.MaxLevel(); l != nil {
		return l.Price, true
	}
	return 0, false
}

// BestAsk returns the lowest ask price.
func (b *OrderBook) BestAsk() (Price, bool) {
	if l := b.asks.MinLevel(); l != nil {
		return l.Price, true
	}
	return 0, false
}

// Midprice is (bid+ask)/2 with truncating integer division.
func (b *OrderBook) Midprice() (Price, bool) {
	bb, ok1 := b.BestBid()
	ba, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return 0, false
	}
	return (bb + ba) / 2, true
}

// Spread is ask minus bid.
func (b *OrderBook) Spread() (Price, bool) {
	bb, ok1 := b.BestBid()
	ba, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return 0, false
	}
	return ba - bb, true
}

// Bids returns up to maxLevels levels, best (highest) first.
func (b *OrderBook) Bids(maxLevels int) []BookLevel {
	return collectLevels(b.bids.ForEachDescending, maxLevels)
}

// Asks returns up to maxLevels levels, best (lowest) first.
func (b *OrderBook) Asks(maxLevels int) []BookLevel {
	return collectLevels(b.asks.ForEachAscending, maxLevels)
}

func collectLevels(walk func(func(*PriceLevel) bool), maxLevels int) []BookLevel {
	if maxLevels <= 0 {
		return nil
	}
	out := make([]BookLevel, 0, maxLevels)
	walk(func(l *PriceLevel) bool {
		out = append(out, BookLevel{Price: l.Price, Quantity: l.TotalQty, OrderCount: l.OrderCount})
		return len(out) < maxLevels
	})
	return out
}

// BidDepth sums resting quantity over the top maxLevels bid levels, or the
// whole side when maxLevels is zero.
func (b *OrderBook) BidDepth(maxLevels int) Quantity {
	return sideDepth(b.bids.ForEachDescending, maxLevels)
}

// AskDepth is the ask-side counterpart of BidDepth.
func (b *OrderBook) AskDepth(maxLevels int) Quantity {
	return sideDepth(b.asks.ForEachAscending, maxLevels)
}

func sideDepth(walk func(func(*PriceLevel) bool), maxLevels int) Quantity {
	var total Quantity
	count := 0
	walk(func(l *PriceLevel) bool {
		total += l.TotalQty
		count++
		return maxLevels == 0 || count < maxLevels
	})
	return total
}

// Order returns the live order under id, or nil. The handle is owned by
// the book; callers must not mutate it.
func (b *OrderBook) Order(id OrderID) *Order { return b.index[id] }

func (b *OrderBook) Symbol() string      { return b.symbol }
func (b *OrderBook) ActiveOrders() int   { return len(b.index) }
func (b *OrderBook) TradeCount() uint64  { return b.tradeCount }
func (b *OrderBook) TotalVolume() uint64 { return b.totalVolume }
func (b *OrderBook) Sequence() SeqNum    { return b.seq.Current() }

// --------------------------------------------------------------------
// Invariant checks (harness entry points)
// --------------------------------------------------------------------

// CheckNoCrossedBook reports best_bid < best_ask, vacuously true when
// either side is empty.
func (b *OrderBook) CheckNoCrossedBook() bool {
	bb, ok1 := b.BestBid()
	ba, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return true
	}
	return bb < ba
}

// CheckFIFOInvariant reports whether sequences are strictly increasing
// head to tail within every level on both sides.
func (b *OrderBook) CheckFIFOInvariant() bool {
	ok := true
	check := func(l *PriceLevel) bool {
		var prevSeq SeqNum
		l.Each(func(o *Order) bool {
			if o.Sequence <= prevSeq {
				ok = false
				return false
			}
			prevSeq = o.Sequence
			return true
		})
		return ok
	}
	b.bids.ForEachAscending(check)
	b.asks.ForEachAscending(check)
	return ok
}
