package gateway

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin typed wrapper over a client connection. Calls request
// the gateway codec via content-subtype.
type Client struct {
	cc *grpc.ClientConn
}

func NewClient(cc *grpc.ClientConn) *Client { return &Client{cc: cc} }

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) PlaceOrder(ctx context.Context, in *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	out := new(PlaceOrderResponse)
	if err := c.invoke(ctx, "PlaceOrder", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CancelOrder(ctx context.Context, in *CancelOrderRequest) (*CancelOrderResponse, error) {
	out := new(CancelOrderResponse)
	if err := c.invoke(ctx, "CancelOrder", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AmendOrder(ctx context.Context, in *AmendOrderRequest) (*AmendOrderResponse, error) {
	out := new(AmendOrderResponse)
	if err := c.invoke(ctx, "AmendOrder", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Snapshot(ctx context.Context, in *SnapshotRequest) (*SnapshotResponse, error) {
	out := new(SnapshotResponse)
	if err := c.invoke(ctx, "Snapshot", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
