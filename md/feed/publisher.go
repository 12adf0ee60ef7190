package feed

import (
	"time"

	"kestrel/domain/orderbook"
	"kestrel/infra/ring"
	"kestrel/infra/sequence"
)

// RecordHandler receives each published record synchronously.
type RecordHandler func(Record)

// Stats counts published records by type.
type Stats struct {
	TotalRecords  uint64
	AddCount      uint64
	TradeCount    uint64
	DeleteCount   uint64
	SnapshotCount uint64
	QuoteCount    uint64
	RingDrops     uint64
}

// Publisher sits between the books and downstream consumers. It owns
// sequence assignment (monotonic from 1), keeps an in-memory log for
// dump/replay, invokes an optional synchronous handler, and forwards into
// an SPSC ring for an asynchronous consumer on another core.
//
// Attach registers on a book's subscriber lists; it never displaces other
// subscribers and a publisher can watch any number of books.
type Publisher struct {
	seq     *sequence.Sequencer
	log     []Record
	handler RecordHandler
	out     *ring.SPSC[Record]
	drops   uint64
}

func NewPublisher() *Publisher {
	return &Publisher{seq: sequence.New(0)}
}

// SetHandler installs the synchronous record callback.
func (p *Publisher) SetHandler(fn RecordHandler) { p.handler = fn }

// ForwardTo mirrors every record into r. A full ring drops the record and
// bumps the drop counter; the log stays complete either way.
func (p *Publisher) ForwardTo(r *ring.SPSC[Record]) { p.out = r }

// Attach wires the publisher to a book. Trades publish a trade record then
// a BBO update; order events publish add/delete then a BBO update.
func (p *Publisher) Attach(book *orderbook.OrderBook) {
	book.SubscribeTrades(func(t orderbook.Trade) {
		p.publish(makeTrade(p.seq.Next(), t))
		p.publishQuote(book)
	})
	book.SubscribeOrders(func(o orderbook.Order) {
		switch o.Status {
		case orderbook.StatusNew, orderbook.StatusPartiallyFilled, orderbook.StatusAmended:
			p.publish(makeAdd(p.seq.Next(), o))
		case orderbook.StatusCancelled:
			p.publish(makeDelete(p.seq.Next(), o))
		}
		p.publishQuote(book)
	})
}

// GenerateSnapshot publishes a recovery snapshot of the book's BBO and
// side depths.
func (p *Publisher) GenerateSnapshot(book *orderbook.OrderBook) Record {
	rec := Record{
		Type:        TypeSnapshot,
		Sequence:    p.seq.Next(),
		TimestampNS: uint64(time.Now().UnixNano()),
		Symbol:      symbolBytes(book.Symbol()),
		BidDepth:    book.BidDepth(0),
		AskDepth:    book.AskDepth(0),
	}
	if bb, ok := book.BestBid(); ok {
		rec.BestBid = bb
	}
	if ba, ok := book.BestAsk(); ok {
		rec.BestAsk = ba
	}
	p.publish(rec)
	return rec
}

func (p *Publisher) publishQuote(book *orderbook.OrderBook) {
	bb, okB := book.BestBid()
	ba, okA := book.BestAsk()
	if !okB || !okA {
		return
	}
	var bidSize, askSize orderbook.Quantity
	if bids := book.Bids(1); len(bids) > 0 {
		bidSize = bids[0].Quantity
	}
	if asks := book.Asks(1); len(asks) > 0 {
		askSize = asks[0].Quantity
	}
	p.publish(makeQuote(p.seq.Next(), time.Now().UnixNano(), book.Symbol(), bb, bidSize, ba, askSize))
}

func (p *Publisher) publish(rec Record) {
	if p.handler != nil {
		p.handler(rec)
	}
	p.log = append(p.log, rec)
	if p.out != nil && !p.out.Push(rec) {
		p.drops++
	}
}

// Records is the in-memory log in publication order.
func (p *Publisher) Records() []Record { return p.log }

// Sequence is the last assigned feed sequence.
func (p *Publisher) Sequence() uint64 { return p.seq.Current() }

// Stats tallies the log by record type.
func (p *Publisher) Stats() Stats {
	s := Stats{TotalRecords: uint64(len(p.log)), RingDrops: p.drops}
	for i := range p.log {
		switch p.log[i].Type {
		case TypeAdd:
			s.AddCount++
		case TypeTrade:
			s.TradeCount++
		case TypeDelete:
			s.DeleteCount++
		case TypeSnapshot:
			s.SnapshotCount++
		case TypeQuote:
			s.QuoteCount++
		}
	}
	return s
}
