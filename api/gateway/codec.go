// Package gateway exposes the order service over gRPC. The service
// descriptor and message codec are written by hand against grpc's
// ServiceDesc and encoding.Codec APIs; messages travel as JSON under a
// dedicated content-subtype.
package gateway

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype clients must request.
const CodecName = "kestrel-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("gateway: decode %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }

// --- wire messages ---

type PlaceOrderRequest struct {
	Symbol   string `json:"symbol"`
	ID       uint64 `json:"id"`
	Side     uint8  `json:"side"`
	Type     uint8  `json:"type"`
	TIF      uint8  `json:"tif"`
	Price    int64  `json:"price"`
	Quantity uint64 `json:"quantity"`
}

type PlaceOrderResponse struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	Status    string `json:"status,omitempty"`
	Sequence  uint64 `json:"sequence,omitempty"`
	FilledQty uint64 `json:"filled_qty,omitempty"`
	LeavesQty uint64 `json:"leaves_qty,omitempty"`
}

type CancelOrderRequest struct {
	Symbol  string `json:"symbol"`
	OrderID uint64 `json:"order_id"`
}

type CancelOrderResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type AmendOrderRequest struct {
	Symbol      string `json:"symbol"`
	OrderID     uint64 `json:"order_id"`
	NewPrice    int64  `json:"new_price"`
	NewQuantity uint64 `json:"new_quantity"`
}

type AmendOrderResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type SnapshotRequest struct {
	Symbol string `json:"symbol"`
	Depth  int    `json:"depth"`
}

type SnapshotLevel struct {
	Price      int64  `json:"price"`
	Quantity   uint64 `json:"quantity"`
	OrderCount uint32 `json:"order_count"`
}

type SnapshotResponse struct {
	Symbol   string          `json:"symbol"`
	BestBid  int64           `json:"best_bid"`
	BestAsk  int64           `json:"best_ask"`
	HasBid   bool            `json:"has_bid"`
	HasAsk   bool            `json:"has_ask"`
	BidDepth uint64          `json:"bid_depth"`
	AskDepth uint64          `json:"ask_depth"`
	Bids     []SnapshotLevel `json:"bids"`
	Asks     []SnapshotLevel `json:"asks"`
}
