package gateway

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"

	"kestrel/domain/engine"
	"kestrel/domain/orderbook"
	"kestrel/service"
)

func newTestServer() *Server {
	eng := engine.New()
	eng.AddSymbol("AAPL")
	svc := service.NewOrderService(eng, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)

	in := &PlaceOrderRequest{Symbol: "AAPL", ID: 1, Side: 0, Price: 10000, Quantity: 100}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(PlaceOrderRequest)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Equal(t, in, out)
}

func TestPlaceCancelAmendRoundTrip(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	resp, err := s.PlaceOrder(ctx, &PlaceOrderRequest{
		Symbol: "AAPL", ID: 1, Side: uint8(orderbook.Buy), Type: uint8(orderbook.Limit),
		Price: 10000, Quantity: 100,
	})
	require.NoError(t, err)
	require.True(t, resp.Accepted)
	require.Equal(t, "NEW", resp.Status)
	require.Equal(t, uint64(100), resp.LeavesQty)

	amendResp, err := s.AmendOrder(ctx, &AmendOrderRequest{Symbol: "AAPL", OrderID: 1, NewQuantity: 50})
	require.NoError(t, err)
	require.True(t, amendResp.OK)

	cancelResp, err := s.CancelOrder(ctx, &CancelOrderRequest{Symbol: "AAPL", OrderID: 1})
	require.NoError(t, err)
	require.True(t, cancelResp.OK)

	cancelAgain, err := s.CancelOrder(ctx, &CancelOrderRequest{Symbol: "AAPL", OrderID: 1})
	require.NoError(t, err)
	require.False(t, cancelAgain.OK)
	require.Equal(t, "unknown order", cancelAgain.Reason)
}

func TestUnknownSymbolRejectedWithReason(t *testing.T) {
	s := newTestServer()

	resp, err := s.PlaceOrder(context.Background(), &PlaceOrderRequest{
		Symbol: "MSFT", ID: 1, Price: 10000, Quantity: 100,
	})
	require.NoError(t, err)
	require.False(t, resp.Accepted)
	require.Equal(t, "unknown symbol", resp.Reason)
}

func TestSnapshotReflectsBook(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	s.PlaceOrder(ctx, &PlaceOrderRequest{Symbol: "AAPL", ID: 1, Side: uint8(orderbook.Buy), Price: 9999, Quantity: 100})
	s.PlaceOrder(ctx, &PlaceOrderRequest{Symbol: "AAPL", ID: 2, Side: uint8(orderbook.Sell), Price: 10001, Quantity: 200})

	snap, err := s.Snapshot(ctx, &SnapshotRequest{Symbol: "AAPL", Depth: 5})
	require.NoError(t, err)
	require.True(t, snap.HasBid)
	require.True(t, snap.HasAsk)
	require.Equal(t, int64(9999), snap.BestBid)
	require.Equal(t, int64(10001), snap.BestAsk)
	require.Equal(t, uint64(100), snap.BidDepth)
	require.Equal(t, uint64(200), snap.AskDepth)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
}
