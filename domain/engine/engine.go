// Package engine dispatches input events to per-symbol order books and
// aggregates venue-wide statistics.
//
// The engine is a single-threaded cooperative pipeline: one event at a
// time against one book, no locking on the hot path. Scaling across
// symbols is per-book sharding: pin different books to different
// goroutines; there are no cross-book operations.
package engine

import (
	"kestrel/domain/orderbook"
)

// Stats is the venue-wide counter snapshot.
type Stats struct {
	TotalOrders   uint64
	TotalCancels  uint64
	TotalAmends   uint64
	TotalTrades   uint64
	TotalVolume   uint64
	TotalRejects  uint64
	ActiveOrders  uint64
	SymbolsActive uint64
}

// Engine routes submissions, cancels and amends to the book registered for
// their symbol. Unknown symbols bump the reject counter and fail without
// side effects.
type Engine struct {
	books map[string]*orderbook.OrderBook

	totalOrders  uint64
	totalCancels uint64
	totalAmends  uint64
	totalTrades  uint64
	totalVolume  uint64
	totalRejects uint64

	tradeSubs []orderbook.TradeHandler
}

func New() *Engine {
	return &Engine{books: make(map[string]*orderbook.OrderBook)}
}

// AddSymbol registers a tradeable symbol. Idempotent; returns the book.
func (e *Engine) AddSymbol(symbol string) *orderbook.OrderBook {
	if b, ok := e.books[symbol]; ok {
		return b
	}
	b := orderbook.NewOrderBook(symbol)
	b.SubscribeTrades(func(t orderbook.Trade) {
		e.totalTrades++
		e.totalVolume += t.Quantity
		for _, fn := range e.tradeSubs {
			fn(t)
		}
	})
	e.books[symbol] = b
	return b
}

// Book returns the book for symbol, or nil.
func (e *Engine) Book(symbol string) *orderbook.OrderBook {
	return e.books[symbol]
}

// SubscribeTrades registers a venue-wide trade handler. Handlers fire in
// registration order, after the engine counters are updated.
func (e *Engine) SubscribeTrades(fn orderbook.TradeHandler) {
	e.tradeSubs = append(e.tradeSubs, fn)
}

// SubmitOrder routes a new order to its book.
func (e *Engine) SubmitOrder(req orderbook.NewOrderRequest) (*orderbook.Order, error) {
	b, ok := e.books[req.Symbol]
	if !ok {
		e.totalRejects++
		return nil, orderbook.ErrUnknownSymbol
	}
	o := b.AddOrder(req)
	if o == nil {
		e.totalRejects++
		return nil, orderbook.ErrDuplicateOrder
	}
	e.totalOrders++
	return o, nil
}

// CancelOrder routes a cancel to its book.
func (e *Engine) CancelOrder(req orderbook.CancelRequest) error {
	b, ok := e.books[req.Symbol]
	if !ok {
		e.totalRejects++
		return orderbook.ErrUnknownSymbol
	}
	o := b.Order(req.OrderID)
	if o == nil {
		return orderbook.ErrUnknownOrder
	}
	if !o.IsActive() {
		return orderbook.ErrInactiveOrder
	}
	if !b.CancelOrder(req.OrderID) {
		return orderbook.ErrUnknownOrder
	}
	e.totalCancels++
	return nil
}

// AmendOrder routes an amend to its book.
func (e *Engine) AmendOrder(req orderbook.AmendRequest) error {
	b, ok := e.books[req.Symbol]
	if !ok {
		e.totalRejects++
		return orderbook.ErrUnknownSymbol
	}
	o := b.Order(req.OrderID)
	if o == nil {
		return orderbook.ErrUnknownOrder
	}
	if !o.IsActive() {
		return orderbook.ErrInactiveOrder
	}
	if !b.AmendOrder(req) {
		return orderbook.ErrUnknownOrder
	}
	e.totalAmends++
	return nil
}

// Stats sums live counters with per-book state.
func (e *Engine) Stats() Stats {
	s := Stats{
		TotalOrders:   e.totalOrders,
		TotalCancels:  e.totalCancels,
		TotalAmends:   e.totalAmends,
		TotalTrades:   e.totalTrades,
		TotalVolume:   e.totalVolume,
		TotalRejects:  e.totalRejects,
		SymbolsActive: uint64(len(e.books)),
	}
	for _, b := range e.books {
		s.ActiveOrders += uint64(b.ActiveOrders())
	}
	return s
}

// Books exposes the registry for read-only iteration (snapshots, reports).
func (e *Engine) Books() map[string]*orderbook.OrderBook { return e.books }
