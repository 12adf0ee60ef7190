// Package kafka publishes trade prints to a Kafka topic for downstream
// consumers (surveillance, risk, recording).
package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"kestrel/domain/orderbook"
)

// Producer wraps a kafka-go writer configured for at-least-once delivery.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// tradePrint is the published JSON shape.
type tradePrint struct {
	V         int    `json:"v"`
	Seq       uint64 `json:"seq"`
	Symbol    string `json:"symbol"`
	Price     int64  `json:"price"`
	Quantity  uint64 `json:"qty"`
	BuyID     uint64 `json:"buy_id"`
	SellID    uint64 `json:"sell_id"`
	Aggressor string `json:"aggressor"`
	ExecTime  int64  `json:"exec_time_ns"`
}

// SendTrade publishes one execution keyed by its sequence number.
func (p *Producer) SendTrade(ctx context.Context, t orderbook.Trade) error {
	value, err := json.Marshal(tradePrint{
		V:         1,
		Seq:       t.Sequence,
		Symbol:    t.Symbol,
		Price:     t.Price,
		Quantity:  t.Quantity,
		BuyID:     t.BuyOrderID,
		SellID:    t.SellOrderID,
		Aggressor: t.Aggressor.String(),
		ExecTime:  t.ExecTime,
	})
	if err != nil {
		return err
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, t.Sequence)

	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
