package orderbook

import "errors"

var (
	// ErrUnknownSymbol rejects operations routed to an unregistered book.
	ErrUnknownSymbol = errors.New("orderbook: unknown symbol")

	// ErrUnknownOrder rejects cancels/amends for an id not in the index.
	ErrUnknownOrder = errors.New("orderbook: unknown order")

	// ErrInactiveOrder rejects cancels/amends against a filled or already
	// cancelled order.
	ErrInactiveOrder = errors.New("orderbook: order not active")

	// ErrDuplicateOrder rejects a submission reusing a live order id.
	ErrDuplicateOrder = errors.New("orderbook: duplicate order id")
)
