package gateway

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"

	"kestrel/domain/orderbook"
	"kestrel/service"
)

const serviceName = "kestrel.OrderGateway"

// OrderGatewayServer is the server-side contract of the gateway service.
type OrderGatewayServer interface {
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error)
	AmendOrder(context.Context, *AmendOrderRequest) (*AmendOrderResponse, error)
	Snapshot(context.Context, *SnapshotRequest) (*SnapshotResponse, error)
}

// ServiceDesc is the hand-written gRPC service descriptor.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "CancelOrder", Handler: cancelOrderHandler},
		{MethodName: "AmendOrder", Handler: amendOrderHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/gateway",
}

// RegisterOrderGatewayServer attaches srv to a grpc.Server.
func RegisterOrderGatewayServer(s *grpc.Server, srv OrderGatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func placeOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderGatewayServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/PlaceOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderGatewayServer).PlaceOrder(ctx, req.(*PlaceOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderGatewayServer).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CancelOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderGatewayServer).CancelOrder(ctx, req.(*CancelOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func amendOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AmendOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderGatewayServer).AmendOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AmendOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderGatewayServer).AmendOrder(ctx, req.(*AmendOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderGatewayServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Snapshot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderGatewayServer).Snapshot(ctx, req.(*SnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server adapts the order service to the gateway contract.
type Server struct {
	svc    *service.OrderService
	logger *slog.Logger
}

func NewServer(svc *service.OrderService, logger *slog.Logger) *Server {
	return &Server{svc: svc, logger: logger.With(slog.String("component", "gateway"))}
}

func (s *Server) PlaceOrder(_ context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	o, err := s.svc.PlaceOrder(orderbook.NewOrderRequest{
		ID:       req.ID,
		Side:     orderbook.Side(req.Side),
		Type:     orderbook.OrderType(req.Type),
		TIF:      orderbook.TimeInForce(req.TIF),
		Price:    req.Price,
		Quantity: req.Quantity,
		Symbol:   req.Symbol,
	})
	if err != nil {
		return &PlaceOrderResponse{Accepted: false, Reason: rejectReason(err)}, nil
	}
	return &PlaceOrderResponse{
		Accepted:  true,
		Status:    o.Status.String(),
		Sequence:  o.Sequence,
		FilledQty: o.FilledQty,
		LeavesQty: o.LeavesQty,
	}, nil
}

func (s *Server) CancelOrder(_ context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	if err := s.svc.CancelOrder(orderbook.CancelRequest{OrderID: req.OrderID, Symbol: req.Symbol}); err != nil {
		return &CancelOrderResponse{OK: false, Reason: rejectReason(err)}, nil
	}
	return &CancelOrderResponse{OK: true}, nil
}

func (s *Server) AmendOrder(_ context.Context, req *AmendOrderRequest) (*AmendOrderResponse, error) {
	if err := s.svc.AmendOrder(orderbook.AmendRequest{
		OrderID:     req.OrderID,
		NewPrice:    req.NewPrice,
		NewQuantity: req.NewQuantity,
		Symbol:      req.Symbol,
	}); err != nil {
		return &AmendOrderResponse{OK: false, Reason: rejectReason(err)}, nil
	}
	return &AmendOrderResponse{OK: true}, nil
}

func (s *Server) Snapshot(_ context.Context, req *SnapshotRequest) (*SnapshotResponse, error) {
	book := s.svc.Book(req.Symbol)
	if book == nil {
		return &SnapshotResponse{Symbol: req.Symbol}, nil
	}
	depth := req.Depth
	if depth <= 0 {
		depth = 10
	}

	resp := &SnapshotResponse{
		Symbol:   req.Symbol,
		BidDepth: book.BidDepth(0),
		AskDepth: book.AskDepth(0),
	}
	if bb, ok := book.BestBid(); ok {
		resp.BestBid, resp.HasBid = bb, true
	}
	if ba, ok := book.BestAsk(); ok {
		resp.BestAsk, resp.HasAsk = ba, true
	}
	for _, l := range book.Bids(depth) {
		resp.Bids = append(resp.Bids, SnapshotLevel{Price: l.Price, Quantity: l.Quantity, OrderCount: l.OrderCount})
	}
	for _, l := range book.Asks(depth) {
		resp.Asks = append(resp.Asks, SnapshotLevel{Price: l.Price, Quantity: l.Quantity, OrderCount: l.OrderCount})
	}
	return resp, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, orderbook.ErrUnknownSymbol):
		return "unknown symbol"
	case errors.Is(err, orderbook.ErrUnknownOrder):
		return "unknown order"
	case errors.Is(err, orderbook.ErrInactiveOrder):
		return "order not active"
	case errors.Is(err, orderbook.ErrDuplicateOrder):
		return "duplicate order id"
	default:
		return err.Error()
	}
}
