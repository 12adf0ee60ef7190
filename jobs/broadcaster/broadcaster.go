// Package broadcaster drains the feed ring and republishes records to
// Kafka, tracking per-sequence delivery state in pebble so restarts do
// not re-send acknowledged records.
package broadcaster

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"kestrel/infra/ring"
	"kestrel/md/feed"
)

// pollInterval is how long the loop sleeps when the ring runs dry.
const pollInterval = 5 * time.Millisecond

// Broadcaster is the single consumer of the feed ring. Run it on its own
// goroutine; the producer side stays on the matching thread.
type Broadcaster struct {
	in       *ring.SPSC[feed.Record]
	store    *StateStore
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func New(in *ring.SPSC[feed.Record], store *StateStore, brokers []string, topic string, logger *slog.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		in:       in,
		store:    store,
		producer: producer,
		topic:    topic,
		logger:   logger.With(slog.String("component", "broadcaster")),
	}, nil
}

// Run drains the ring until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("started", slog.String("topic", b.topic))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopped")
			return
		default:
		}

		rec, ok := b.in.Pop()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		b.dispatch(rec)
	}
}

func (b *Broadcaster) dispatch(rec feed.Record) {
	if prev, seen, err := b.store.Get(rec.Sequence); err == nil && seen && prev.State == StateAcked {
		return
	}

	now := time.Now().UnixNano()
	_ = b.store.Put(rec.Sequence, DeliveryRecord{State: StateSent, LastAttempt: now})

	value, err := rec.MarshalBinary()
	if err != nil {
		b.logger.Error("encode failed", slog.Uint64("seq", rec.Sequence), slog.String("error", err.Error()))
		return
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, rec.Sequence)

	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		b.logger.Error("send failed", slog.Uint64("seq", rec.Sequence), slog.String("error", err.Error()))
		_ = b.store.Put(rec.Sequence, DeliveryRecord{State: StateFailed, Retries: 1, LastAttempt: now})
		return
	}

	_ = b.store.Put(rec.Sequence, DeliveryRecord{State: StateAcked, LastAttempt: now})
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
