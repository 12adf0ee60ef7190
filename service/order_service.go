// Package service is the single write entry point into the venue. It
// coordinates the matching engine, the input-event journal, the feed
// publisher and the optional trade-print producer; nothing else mutates
// engine state.
package service

import (
	"context"
	"log/slog"

	"kestrel/domain/engine"
	"kestrel/domain/orderbook"
	"kestrel/infra/kafka"
	"kestrel/infra/wal"
	"kestrel/md/feed"
)

// OrderService wires all write-path dependencies. journal, publisher and
// trades may each be nil to disable that concern.
type OrderService struct {
	engine    *engine.Engine
	journal   *wal.WAL
	publisher *feed.Publisher
	trades    *kafka.Producer
	logger    *slog.Logger

	journalSeq uint64
}

func NewOrderService(eng *engine.Engine, journal *wal.WAL, publisher *feed.Publisher, trades *kafka.Producer, logger *slog.Logger) *OrderService {
	s := &OrderService{
		engine:    eng,
		journal:   journal,
		publisher: publisher,
		trades:    trades,
		logger:    logger.With(slog.String("component", "order_service")),
	}
	if publisher != nil {
		for _, book := range eng.Books() {
			publisher.Attach(book)
		}
	}
	if trades != nil {
		eng.SubscribeTrades(func(t orderbook.Trade) {
			if err := trades.SendTrade(context.Background(), t); err != nil {
				s.logger.Error("trade print failed",
					slog.Uint64("seq", t.Sequence),
					slog.String("error", err.Error()))
			}
		})
	}
	return s
}

// PlaceOrder journals and executes one new-order command.
func (s *OrderService) PlaceOrder(req orderbook.NewOrderRequest) (*orderbook.Order, error) {
	s.append(wal.RecordPlace, encodePlace(req))

	o, err := s.engine.SubmitOrder(req)
	if err != nil {
		s.logger.Warn("order rejected",
			slog.Uint64("id", req.ID),
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Debug("order accepted",
		slog.Uint64("id", o.ID),
		slog.String("symbol", req.Symbol),
		slog.String("status", o.Status.String()),
		slog.Uint64("leaves", o.LeavesQty))
	return o, nil
}

// CancelOrder journals and executes one cancel command.
func (s *OrderService) CancelOrder(req orderbook.CancelRequest) error {
	s.append(wal.RecordCancel, encodeCancel(req))
	return s.engine.CancelOrder(req)
}

// AmendOrder journals and executes one amend command.
func (s *OrderService) AmendOrder(req orderbook.AmendRequest) error {
	s.append(wal.RecordAmend, encodeAmend(req))
	return s.engine.AmendOrder(req)
}

// Book exposes a symbol's book for queries.
func (s *OrderService) Book(symbol string) *orderbook.OrderBook {
	return s.engine.Book(symbol)
}

// Stats returns the venue counters.
func (s *OrderService) Stats() engine.Stats { return s.engine.Stats() }

// Snapshot publishes and returns a feed snapshot for symbol. Returns a
// zero record when the feed is disabled or the symbol unknown.
func (s *OrderService) Snapshot(symbol string) feed.Record {
	book := s.engine.Book(symbol)
	if book == nil || s.publisher == nil {
		return feed.Record{}
	}
	return s.publisher.GenerateSnapshot(book)
}

func (s *OrderService) append(t wal.RecordType, data []byte) {
	if s.journal == nil {
		return
	}
	s.journalSeq++
	if err := s.journal.Append(wal.NewRecord(t, s.journalSeq, data)); err != nil {
		s.logger.Error("journal append failed", slog.String("error", err.Error()))
	}
}

// ReplayJournal re-executes a journal directory against the engine.
// Used at startup before the gateway opens; commands are not re-journaled.
func ReplayJournal(dir string, eng *engine.Engine, logger *slog.Logger) (uint64, error) {
	var applied uint64
	err := wal.Replay(dir, func(rec *wal.Record) {
		switch rec.Type {
		case wal.RecordPlace:
			if req, err := decodePlace(rec.Data); err == nil {
				eng.SubmitOrder(req)
				applied++
			}
		case wal.RecordCancel:
			if req, err := decodeCancel(rec.Data); err == nil {
				eng.CancelOrder(req)
				applied++
			}
		case wal.RecordAmend:
			if req, err := decodeAmend(rec.Data); err == nil {
				eng.AmendOrder(req)
				applied++
			}
		}
	})
	if err != nil {
		return applied, err
	}
	if applied > 0 {
		logger.Info("journal replayed", slog.Uint64("commands", applied))
	}
	return applied, nil
}
