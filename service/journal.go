package service

import (
	"google.golang.org/protobuf/encoding/protowire"

	"kestrel/domain/orderbook"
	"kestrel/infra/wal"
)

// Command payloads are protowire-encoded, one message shape per journal
// record type:
//
//	place:  1 id, 2 side, 3 type, 4 tif, 5 price (zigzag), 6 qty, 7 symbol
//	cancel: 1 id, 7 symbol
//	amend:  1 id, 5 new price (zigzag), 6 new qty, 7 symbol
const (
	fieldID     = 1
	fieldSide   = 2
	fieldType   = 3
	fieldTIF    = 4
	fieldPrice  = 5
	fieldQty    = 6
	fieldSymbol = 7
)

func encodePlace(req orderbook.NewOrderRequest) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, req.ID)
	b = protowire.AppendTag(b, fieldSide, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.Side))
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.Type))
	b = protowire.AppendTag(b, fieldTIF, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.TIF))
	b = protowire.AppendTag(b, fieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(req.Price))
	b = protowire.AppendTag(b, fieldQty, protowire.VarintType)
	b = protowire.AppendVarint(b, req.Quantity)
	b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
	b = protowire.AppendString(b, req.Symbol)
	return b
}

func encodeCancel(req orderbook.CancelRequest) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, req.OrderID)
	b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
	b = protowire.AppendString(b, req.Symbol)
	return b
}

func encodeAmend(req orderbook.AmendRequest) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, req.OrderID)
	b = protowire.AppendTag(b, fieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(req.NewPrice))
	b = protowire.AppendTag(b, fieldQty, protowire.VarintType)
	b = protowire.AppendVarint(b, req.NewQuantity)
	b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
	b = protowire.AppendString(b, req.Symbol)
	return b
}

// commandFields is the decoded union of every command shape.
type commandFields struct {
	id     uint64
	side   uint64
	typ    uint64
	tif    uint64
	price  int64
	qty    uint64
	symbol string
}

func decodeCommand(b []byte) (commandFields, error) {
	var f commandFields
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, wal.ErrCorruptRecord
		}
		b = b[n:]
		switch num {
		case fieldID, fieldSide, fieldType, fieldTIF, fieldPrice, fieldQty:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, wal.ErrCorruptRecord
			}
			b = b[n:]
			switch num {
			case fieldID:
				f.id = v
			case fieldSide:
				f.side = v
			case fieldType:
				f.typ = v
			case fieldTIF:
				f.tif = v
			case fieldPrice:
				f.price = protowire.DecodeZigZag(v)
			case fieldQty:
				f.qty = v
			}
		case fieldSymbol:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return f, wal.ErrCorruptRecord
			}
			f.symbol = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, wal.ErrCorruptRecord
			}
			b = b[n:]
		}
	}
	return f, nil
}

func decodePlace(b []byte) (orderbook.NewOrderRequest, error) {
	f, err := decodeCommand(b)
	if err != nil {
		return orderbook.NewOrderRequest{}, err
	}
	return orderbook.NewOrderRequest{
		ID:       f.id,
		Side:     orderbook.Side(f.side),
		Type:     orderbook.OrderType(f.typ),
		TIF:      orderbook.TimeInForce(f.tif),
		Price:    f.price,
		Quantity: f.qty,
		Symbol:   f.symbol,
	}, nil
}

func decodeCancel(b []byte) (orderbook.CancelRequest, error) {
	f, err := decodeCommand(b)
	if err != nil {
		return orderbook.CancelRequest{}, err
	}
	return orderbook.CancelRequest{OrderID: f.id, Symbol: f.symbol}, nil
}

func decodeAmend(b []byte) (orderbook.AmendRequest, error) {
	f, err := decodeCommand(b)
	if err != nil {
		return orderbook.AmendRequest{}, err
	}
	return orderbook.AmendRequest{OrderID: f.id, NewPrice: f.price, NewQuantity: f.qty, Symbol: f.symbol}, nil
}
