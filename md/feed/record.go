// Package feed turns book events into a typed market-data record stream:
// sequence assignment, subscriber fan-out, ring forwarding, and binary
// dump/replay for offline analytics.
package feed

import (
	"encoding/binary"
	"errors"

	"kestrel/domain/orderbook"
)

// RecordType bytes follow the ITCH convention.
type RecordType byte

const (
	TypeAdd      RecordType = 'A'
	TypeExecute  RecordType = 'X'
	TypeDelete   RecordType = 'D'
	TypeReplace  RecordType = 'U'
	TypeSnapshot RecordType = 'S'
	TypeTrade    RecordType = 'T'
	TypeQuote    RecordType = 'Q'
	TypeSystem   RecordType = 'E'
)

// RecordSize is the fixed on-wire size. 64-byte aligned; stable within a
// release.
const RecordSize = 192

// Record is a fixed-size feed event. The payload is flat union-style:
// fields that do not apply to the record type stay zero.
type Record struct {
	Type        RecordType
	Sequence    uint64
	TimestampNS uint64
	Symbol      [16]byte

	OrderID   orderbook.OrderID
	Side      orderbook.Side
	Price     orderbook.Price
	Quantity  orderbook.Quantity
	LeavesQty orderbook.Quantity

	// Trades.
	MatchID       orderbook.OrderID
	AggressorSide orderbook.Side

	// Snapshots.
	BestBid  orderbook.Price
	BestAsk  orderbook.Price
	BidDepth orderbook.Quantity
	AskDepth orderbook.Quantity

	// Quote updates (BBO).
	BidPrice orderbook.Price
	AskPrice orderbook.Price
	BidSize  orderbook.Quantity
	AskSize  orderbook.Quantity
}

// Fixed field offsets within the 192-byte record. Little-endian.
const (
	offType      = 0
	offSequence  = 8
	offTimestamp = 16
	offSymbol    = 24
	offOrderID   = 40
	offSide      = 48
	offAggressor = 49
	offPrice     = 56
	offQuantity  = 64
	offLeaves    = 72
	offMatchID   = 80
	offBestBid   = 88
	offBestAsk   = 96
	offBidDepth  = 104
	offAskDepth  = 112
	offBidPrice  = 120
	offAskPrice  = 128
	offBidSize   = 136
	offAskSize   = 144
)

var ErrShortRecord = errors.New("feed: short record")

func symbolBytes(s string) [16]byte {
	var out [16]byte
	copy(out[:], s)
	return out
}

// SymbolString returns the NUL-trimmed symbol.
func (r *Record) SymbolString() string {
	for i, c := range r.Symbol {
		if c == 0 {
			return string(r.Symbol[:i])
		}
	}
	return string(r.Symbol[:])
}

// AppendBinary appends the fixed-size encoding of r to dst.
func (r *Record) AppendBinary(dst []byte) []byte {
	var buf [RecordSize]byte
	buf[offType] = byte(r.Type)
	binary.LittleEndian.PutUint64(buf[offSequence:], r.Sequence)
	binary.LittleEndian.PutUint64(buf[offTimestamp:], r.TimestampNS)
	copy(buf[offSymbol:offSymbol+16], r.Symbol[:])
	binary.LittleEndian.PutUint64(buf[offOrderID:], r.OrderID)
	buf[offSide] = byte(r.Side)
	buf[offAggressor] = byte(r.AggressorSide)
	binary.LittleEndian.PutUint64(buf[offPrice:], uint64(r.Price))
	binary.LittleEndian.PutUint64(buf[offQuantity:], r.Quantity)
	binary.LittleEndian.PutUint64(buf[offLeaves:], r.LeavesQty)
	binary.LittleEndian.PutUint64(buf[offMatchID:], r.MatchID)
	binary.LittleEndian.PutUint64(buf[offBestBid:], uint64(r.BestBid))
	binary.LittleEndian.PutUint64(buf[offBestAsk:], uint64(r.BestAsk))
	binary.LittleEndian.PutUint64(buf[offBidDepth:], r.BidDepth)
	binary.LittleEndian.PutUint64(buf[offAskDepth:], r.AskDepth)
	binary.LittleEndian.PutUint64(buf[offBidPrice:], uint64(r.BidPrice))
	binary.LittleEndian.PutUint64(buf[offAskPrice:], uint64(r.AskPrice))
	binary.LittleEndian.PutUint64(buf[offBidSize:], r.BidSize)
	binary.LittleEndian.PutUint64(buf[offAskSize:], r.AskSize)
	return append(dst, buf[:]...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, RecordSize)), nil
}

// UnmarshalBinary decodes one fixed-size record.
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) < RecordSize {
		return ErrShortRecord
	}
	r.Type = RecordType(b[offType])
	r.Sequence = binary.LittleEndian.Uint64(b[offSequence:])
	r.TimestampNS = binary.LittleEndian.Uint64(b[offTimestamp:])
	copy(r.Symbol[:], b[offSymbol:offSymbol+16])
	r.OrderID = binary.LittleEndian.Uint64(b[offOrderID:])
	r.Side = orderbook.Side(b[offSide])
	r.AggressorSide = orderbook.Side(b[offAggressor])
	r.Price = int64(binary.LittleEndian.Uint64(b[offPrice:]))
	r.Quantity = binary.LittleEndian.Uint64(b[offQuantity:])
	r.LeavesQty = binary.LittleEndian.Uint64(b[offLeaves:])
	r.MatchID = binary.LittleEndian.Uint64(b[offMatchID:])
	r.BestBid = int64(binary.LittleEndian.Uint64(b[offBestBid:]))
	r.BestAsk = int64(binary.LittleEndian.Uint64(b[offBestAsk:]))
	r.BidDepth = binary.LittleEndian.Uint64(b[offBidDepth:])
	r.AskDepth = binary.LittleEndian.Uint64(b[offAskDepth:])
	r.BidPrice = int64(binary.LittleEndian.Uint64(b[offBidPrice:]))
	r.AskPrice = int64(binary.LittleEndian.Uint64(b[offAskPrice:]))
	r.BidSize = binary.LittleEndian.Uint64(b[offBidSize:])
	r.AskSize = binary.LittleEndian.Uint64(b[offAskSize:])
	return nil
}

// makeAdd describes a newly resting (or amended) order. Quantity carries
// the open size at publication time.
func makeAdd(seq uint64, o orderbook.Order) Record {
	return Record{
		Type:        TypeAdd,
		Sequence:    seq,
		TimestampNS: uint64(o.EntryTime),
		Symbol:      symbolBytes(o.Symbol),
		OrderID:     o.ID,
		Side:        o.Side,
		Price:       o.Price,
		Quantity:    o.LeavesQty,
		LeavesQty:   o.LeavesQty,
	}
}

func makeTrade(seq uint64, t orderbook.Trade) Record {
	return Record{
		Type:          TypeTrade,
		Sequence:      seq,
		TimestampNS:   uint64(t.ExecTime),
		Symbol:        symbolBytes(t.Symbol),
		OrderID:       t.BuyOrderID,
		MatchID:       t.SellOrderID,
		Price:         t.Price,
		Quantity:      t.Quantity,
		AggressorSide: t.Aggressor,
	}
}

func makeDelete(seq uint64, o orderbook.Order) Record {
	return Record{
		Type:        TypeDelete,
		Sequence:    seq,
		TimestampNS: uint64(o.LastUpdate),
		Symbol:      symbolBytes(o.Symbol),
		OrderID:     o.ID,
		Side:        o.Side,
		Price:       o.Price,
	}
}

func makeQuote(seq uint64, ts int64, symbol string, bidP orderbook.Price, bidS orderbook.Quantity, askP orderbook.Price, askS orderbook.Quantity) Record {
	return Record{
		Type:        TypeQuote,
		Sequence:    seq,
		TimestampNS: uint64(ts),
		Symbol:      symbolBytes(symbol),
		BidPrice:    bidP,
		AskPrice:    askP,
		BidSize:     bidS,
		AskSize:     askS,
	}
}
