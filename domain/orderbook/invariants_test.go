package orderbook

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

// eventStream drives one random legal event against the book: mostly new
// orders with a mix of types, plus cancels and amends of known ids.
type streamState struct {
	book   *OrderBook
	nextID OrderID
	known  []OrderID
	orders []*Order // every handle ever issued, for conservation checks
	trades []Trade
}

func newStreamState() *streamState {
	s := &streamState{book: NewOrderBook("TEST"), nextID: 1}
	s.book.SubscribeTrades(func(t Trade) { s.trades = append(s.trades, t) })
	return s
}

func (s *streamState) step(t *rapid.T) {
	action := rapid.IntRange(0, 9).Draw(t, "action")
	switch {
	case action < 7:
		s.submit(t)
	case action < 9:
		s.cancel(t)
	default:
		s.amend(t)
	}
}

func (s *streamState) submit(t *rapid.T) {
	req := NewOrderRequest{
		ID:       s.nextID,
		Symbol:   "TEST",
		Quantity: Quantity(rapid.IntRange(1, 10).Draw(t, "qty")) * 100,
	}
	s.nextID++
	if rapid.Bool().Draw(t, "isBuy") {
		req.Side = Buy
	} else {
		req.Side = Sell
	}

	switch rapid.IntRange(0, 3).Draw(t, "type") {
	case 0, 1:
		req.Type = Limit
		req.TIF = TifGTC
		req.Price = Price(rapid.Int64Range(9900, 10100).Draw(t, "price"))
	case 2:
		req.Type = Market
		req.TIF = TifIOC
		req.Price = PriceMarket
	default:
		req.Type = FOK
		req.TIF = TifFOK
		req.Price = Price(rapid.Int64Range(9900, 10100).Draw(t, "price"))
	}

	o := s.book.AddOrder(req)
	if o == nil {
		t.Fatalf("duplicate id rejected unexpectedly: %d", req.ID)
	}
	s.orders = append(s.orders, o)
	if o.IsActive() {
		s.known = append(s.known, o.ID)
	}
}

func (s *streamState) cancel(t *rapid.T) {
	if len(s.known) == 0 {
		return
	}
	id := s.known[rapid.IntRange(0, len(s.known)-1).Draw(t, "cancelIdx")]
	s.book.CancelOrder(id)
}

func (s *streamState) amend(t *rapid.T) {
	if len(s.known) == 0 {
		return
	}
	id := s.known[rapid.IntRange(0, len(s.known)-1).Draw(t, "amendIdx")]
	req := AmendRequest{OrderID: id, Symbol: "TEST"}
	if rapid.Bool().Draw(t, "amendPrice") {
		req.NewPrice = Price(rapid.Int64Range(9900, 10100).Draw(t, "newPrice"))
	}
	if rapid.Bool().Draw(t, "amendQty") {
		req.NewQuantity = Quantity(rapid.IntRange(1, 10).Draw(t, "newQty")) * 100
	}
	s.book.AmendOrder(req)
}

// After every single event the book is uncrossed and every level
// is strictly FIFO.
func TestPropertyNoCrossAndFIFO(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newStreamState()
		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			s.step(t)
			if !s.book.CheckNoCrossedBook() {
				t.Fatalf("book crossed after step %d", i)
			}
			if !s.book.CheckFIFOInvariant() {
				t.Fatalf("FIFO violated after step %d", i)
			}
		}
	})
}

// Total filled over all orders ever allocated equals twice the traded
// quantity, and per-order accounting stays consistent.
func TestPropertyConservationAndPerOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newStreamState()
		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			s.step(t)
		}

		var totalFilled, totalTraded Quantity
		for _, o := range s.orders {
			totalFilled += o.FilledQty
			if o.FilledQty+o.LeavesQty > o.Quantity {
				t.Fatalf("order %d: filled %d + leaves %d > quantity %d",
					o.ID, o.FilledQty, o.LeavesQty, o.Quantity)
			}
			if o.Status == StatusCancelled {
				if o.LeavesQty != 0 {
					t.Fatalf("cancelled order %d has leaves %d", o.ID, o.LeavesQty)
				}
				if s.book.Order(o.ID) != nil {
					t.Fatalf("cancelled order %d still indexed", o.ID)
				}
			}
		}
		for _, tr := range s.trades {
			totalTraded += tr.Quantity
		}
		if totalFilled != 2*totalTraded {
			t.Fatalf("conservation violated: filled %d != 2*traded %d", totalFilled, totalTraded)
		}
	})
}

// Index consistency: an id resolves in the index iff its order is
// active.
func TestPropertyIndexConsistency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newStreamState()
		steps := rapid.IntRange(1, 150).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			s.step(t)
		}
		for _, o := range s.orders {
			indexed := s.book.Order(o.ID) != nil
			if indexed != o.IsActive() {
				t.Fatalf("order %d: indexed=%v active=%v status=%v", o.ID, indexed, o.IsActive(), o.Status)
			}
		}
	})
}

// An infeasible FOK leaves zero trades and identical depth.
func TestPropertyFOKAllOrNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newStreamState()
		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			s.step(t)
		}

		askDepth := s.book.AskDepth(0)
		// Ask for more than the whole contra side can ever provide.
		tradesBefore := len(s.trades)
		bidsBefore := s.book.Bids(100)
		asksBefore := s.book.Asks(100)

		o := s.book.AddOrder(NewOrderRequest{
			ID: s.nextID, Side: Buy, Type: FOK, TIF: TifFOK,
			Price: PriceMarket, Quantity: askDepth + 100, Symbol: "TEST",
		})
		s.nextID++

		if len(s.trades) != tradesBefore {
			t.Fatalf("infeasible FOK produced %d trades", len(s.trades)-tradesBefore)
		}
		if o.Status != StatusCancelled || o.FilledQty != 0 {
			t.Fatalf("infeasible FOK not cleanly cancelled: %v filled=%d", o.Status, o.FilledQty)
		}
		if got := s.book.Bids(100); len(got) != len(bidsBefore) {
			t.Fatalf("bid levels changed: %d != %d", len(got), len(bidsBefore))
		}
		if got := s.book.Asks(100); len(got) != len(asksBefore) {
			t.Fatalf("ask levels changed: %d != %d", len(got), len(asksBefore))
		}
	})
}

// randomRequest draws from a tight price band: 70% limits, 15% markets,
// 15% IOCs.
func randomRequest(rng *rand.Rand, id OrderID) NewOrderRequest {
	req := NewOrderRequest{ID: id, Symbol: "TEST"}
	if rng.Intn(2) == 0 {
		req.Side = Buy
	} else {
		req.Side = Sell
	}
	req.Price = 9900 + rng.Int63n(201)
	req.Quantity = Quantity(rng.Intn(10)+1) * 100

	roll := rng.Float64()
	switch {
	case roll < 0.7:
		req.Type = Limit
		req.TIF = TifGTC
	case roll < 0.85:
		req.Type = Market
		req.TIF = TifIOC
		req.Price = PriceMarket
	default:
		req.Type = IOC
		req.TIF = TifIOC
	}
	return req
}

// Identical input streams produce element-wise identical trade
// streams. Seed 999, ten thousand events, two independent books.
func TestDeterminism(t *testing.T) {
	run := func() []Trade {
		b := NewOrderBook("TEST")
		var trades []Trade
		b.SubscribeTrades(func(tr Trade) { trades = append(trades, tr) })

		rng := rand.New(rand.NewSource(999))
		for id := OrderID(1); id <= 10000; id++ {
			b.AddOrder(randomRequest(rng, id))
		}
		return trades
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("trade counts differ: %d != %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Price != b.Price || a.Quantity != b.Quantity ||
			a.BuyOrderID != b.BuyOrderID || a.SellOrderID != b.SellOrderID ||
			a.Sequence != b.Sequence {
			t.Fatalf("trade %d differs: %+v != %+v", i, a, b)
		}
	}
}

// Over random streams: every trade prints at a price some resting
// order quoted, and the book never crosses under heavy flow.
func TestRandomStreamInvariants(t *testing.T) {
	b := NewOrderBook("TEST")
	rng := rand.New(rand.NewSource(12345))

	for id := OrderID(1); id <= 50000; id++ {
		b.AddOrder(randomRequest(rng, id))
		if !b.CheckNoCrossedBook() {
			t.Fatalf("book crossed after order %d", id)
		}
	}
	if !b.CheckFIFOInvariant() {
		t.Fatal("FIFO violated after random stream")
	}
}
