package feed

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"kestrel/domain/orderbook"
	"kestrel/infra/ring"
)

func limit(id orderbook.OrderID, side orderbook.Side, price orderbook.Price, qty orderbook.Quantity) orderbook.NewOrderRequest {
	return orderbook.NewOrderRequest{
		ID: id, Side: side, Type: orderbook.Limit, TIF: orderbook.TifGTC,
		Price: price, Quantity: qty, Symbol: "TEST",
	}
}

func TestRecordBinaryRoundTrip(t *testing.T) {
	in := Record{
		Type:          TypeTrade,
		Sequence:      42,
		TimestampNS:   987654321,
		Symbol:        symbolBytes("TEST"),
		OrderID:       7,
		Side:          orderbook.Sell,
		Price:         -15000, // signed prices survive
		Quantity:      300,
		LeavesQty:     100,
		MatchID:       8,
		AggressorSide: orderbook.Sell,
		BestBid:       14999,
		BestAsk:       15001,
		BidDepth:      1000,
		AskDepth:      2000,
		BidPrice:      14999,
		AskPrice:      15001,
		BidSize:       500,
		AskSize:       600,
	}

	buf, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, RecordSize)

	var out Record
	require.NoError(t, out.UnmarshalBinary(buf))
	require.Equal(t, in, out)
	require.Equal(t, "TEST", out.SymbolString())
}

func TestUnmarshalShortBuffer(t *testing.T) {
	var r Record
	require.ErrorIs(t, r.UnmarshalBinary(make([]byte, RecordSize-1)), ErrShortRecord)
}

func TestPublisherSequencesFromOne(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	pub := NewPublisher()
	pub.Attach(book)

	book.AddOrder(limit(1, orderbook.Buy, 10000, 100))

	records := pub.Records()
	require.NotEmpty(t, records)
	require.Equal(t, uint64(1), records[0].Sequence)
	for i, rec := range records {
		require.Equal(t, uint64(i+1), rec.Sequence)
	}
}

func TestPublisherRecordsBookActivity(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	pub := NewPublisher()
	pub.Attach(book)

	book.AddOrder(limit(1, orderbook.Buy, 10000, 100))
	book.AddOrder(limit(2, orderbook.Sell, 10005, 100))
	book.AddOrder(limit(3, orderbook.Sell, 10000, 50)) // partial trade
	book.CancelOrder(1)

	stats := pub.Stats()
	require.Equal(t, uint64(1), stats.TradeCount)
	require.NotZero(t, stats.AddCount)
	require.Equal(t, uint64(1), stats.DeleteCount)
	require.Equal(t, stats.TotalRecords, uint64(len(pub.Records())))

	// Attach never replaces other book subscribers.
	book.AddOrder(limit(10, orderbook.Buy, 10000, 100))
	var direct int
	book.SubscribeTrades(func(orderbook.Trade) { direct++ })
	book.AddOrder(limit(4, orderbook.Sell, 10000, 50))
	require.Equal(t, 1, direct)
	require.Equal(t, uint64(2), pub.Stats().TradeCount)
}

func TestPublisherForwardsToRing(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	pub := NewPublisher()
	out := ring.New[Record](1 << 8)
	pub.ForwardTo(out)
	pub.Attach(book)

	book.AddOrder(limit(1, orderbook.Buy, 10000, 100))

	require.Equal(t, len(pub.Records()), out.Len())
	rec, ok := out.Pop()
	require.True(t, ok)
	require.Equal(t, pub.Records()[0], rec)
}

// Dumping and replaying the record log yields an identical sequence.
func TestDumpReplayRoundTrip(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	pub := NewPublisher()
	pub.Attach(book)

	book.AddOrder(limit(1, orderbook.Buy, 10000, 100))
	book.AddOrder(limit(2, orderbook.Sell, 10002, 200))
	book.AddOrder(limit(3, orderbook.Sell, 10000, 50))
	book.CancelOrder(2)
	pub.GenerateSnapshot(book)

	path := filepath.Join(t.TempDir(), "feed.bin")
	require.NoError(t, pub.DumpToFile(path))

	replayed, err := NewReplayer(path).LoadAll()
	require.NoError(t, err)
	require.Equal(t, pub.Records(), replayed)
}

// Depth reconstructed from the Add/Trade/Delete log matches the
// snapshot's side depths.
func TestLogConsistentWithSnapshotDepth(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	pub := NewPublisher()
	pub.Attach(book)

	book.AddOrder(limit(1, orderbook.Buy, 10000, 300))
	book.AddOrder(limit(2, orderbook.Buy, 9999, 200))
	book.AddOrder(limit(3, orderbook.Sell, 10002, 400))
	book.AddOrder(limit(4, orderbook.Sell, 10001, 100))
	book.AddOrder(limit(5, orderbook.Sell, 10000, 120)) // partially fills against 1
	book.CancelOrder(2)

	snap := pub.GenerateSnapshot(book)

	type live struct {
		side   orderbook.Side
		leaves orderbook.Quantity
	}
	state := map[orderbook.OrderID]live{}
	for _, rec := range pub.Records() {
		if rec.Sequence > snap.Sequence {
			break
		}
		switch rec.Type {
		case TypeAdd:
			state[rec.OrderID] = live{side: rec.Side, leaves: rec.LeavesQty}
		case TypeTrade:
			for _, id := range []orderbook.OrderID{rec.OrderID, rec.MatchID} {
				if s, ok := state[id]; ok {
					if s.leaves <= rec.Quantity {
						delete(state, id)
					} else {
						s.leaves -= rec.Quantity
						state[id] = s
					}
				}
			}
		case TypeDelete:
			delete(state, rec.OrderID)
		}
	}

	var bidDepth, askDepth orderbook.Quantity
	for _, s := range state {
		if s.side == orderbook.Buy {
			bidDepth += s.leaves
		} else {
			askDepth += s.leaves
		}
	}

	require.Equal(t, snap.BidDepth, bidDepth)
	require.Equal(t, snap.AskDepth, askDepth)
	require.Equal(t, book.BidDepth(0), snap.BidDepth)
	require.Equal(t, book.AskDepth(0), snap.AskDepth)
}

func TestSnapshotCarriesBBO(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	pub := NewPublisher()

	book.AddOrder(limit(1, orderbook.Buy, 9999, 100))
	book.AddOrder(limit(2, orderbook.Sell, 10001, 200))

	snap := pub.GenerateSnapshot(book)
	require.Equal(t, RecordType('S'), snap.Type)
	require.Equal(t, int64(9999), snap.BestBid)
	require.Equal(t, int64(10001), snap.BestAsk)
	require.Equal(t, uint64(100), snap.BidDepth)
	require.Equal(t, uint64(200), snap.AskDepth)
	require.Equal(t, "TEST", snap.SymbolString())
}
