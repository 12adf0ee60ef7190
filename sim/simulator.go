package sim

import (
	"time"

	"kestrel/analytics"
	"kestrel/domain/engine"
	"kestrel/domain/orderbook"
	"kestrel/md/feed"
)

// Config drives one simulation run. The defaults approximate an active
// large-cap session at tick granularity.
type Config struct {
	Symbol    string
	Duration  float64 // seconds
	InitPrice orderbook.Price
	NumAgents int
	Seed      int64

	Hawkes HawkesParams
	Agent  AgentParams
}

func DefaultConfig() Config {
	return Config{
		Symbol:    "AAPL",
		Duration:  3600,
		InitPrice: 15000,
		NumAgents: 10,
		Seed:      42,
		Hawkes:    HawkesParams{Mu: 50, Alpha: 35, Beta: 50},
		Agent: AgentParams{
			SigmaPrice:         8,
			MarketOrderProb:    0.12,
			MeanSize:           200,
			SigmaSize:          0.7,
			CancelBaseProb:     0.03,
			CancelDistanceMult: 0.004,
		},
	}
}

// Data is everything a run produces for the analytics estimators.
type Data struct {
	Trades        []orderbook.Trade
	Midprices     []orderbook.Price
	QuotedSpreads []orderbook.Price
	EventTimes    []float64

	TradeObs     []analytics.TradeObs
	ImpactTrades []analytics.ImpactTrade
	FlowTrades   []analytics.FlowTrade
	MidSeries    []analytics.MidPoint
	BBOs         []analytics.BBOSnapshot

	TotalOrders  uint64
	TotalCancels uint64
	WallTimeSec  float64

	Stats engine.Stats
	Feed  *feed.Publisher
}

// tradeObsIndex pairs a trade observation with the event index it was
// recorded at, so future mids can be backfilled after the run.
type tradeObsIndex struct {
	obs      int
	eventIdx int
}

// cancelSweepInterval is the event cadence of the stale-quote sweep.
const cancelSweepInterval = 50

// Simulator runs the full pipeline: Hawkes arrivals, ZI agents, matching,
// feed publication, series collection. A run is deterministic for a given
// Config (wall-clock only feeds the throughput stat).
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator { return &Simulator{cfg: cfg} }

func (s *Simulator) Run() *Data {
	wallStart := time.Now()
	data := &Data{}

	eng := engine.New()
	book := eng.AddSymbol(s.cfg.Symbol)

	pub := feed.NewPublisher()
	pub.Attach(book)
	data.Feed = pub

	agents := make([]*Agent, s.cfg.NumAgents)
	for i := range agents {
		params := s.cfg.Agent
		params.AgentID = uint64(i)
		agents[i] = NewAgent(params, s.cfg.Seed+1+int64(i))
	}

	eng.SubscribeTrades(func(t orderbook.Trade) {
		data.Trades = append(data.Trades, t)
	})

	nextID := s.seedBook(eng)

	hawkes := NewHawkes(s.cfg.Hawkes, s.cfg.Seed)
	events := hawkes.GenerateSided(s.cfg.Duration, 0.5)

	var resting []orderbook.OrderID
	var pending []tradeObsIndex

	for idx, ev := range events {
		data.EventTimes = append(data.EventTimes, ev.Timestamp)

		mid, ok := book.Midprice()
		if !ok {
			mid = s.cfg.InitPrice
		}
		spread, ok := book.Spread()
		if !ok {
			spread = 2
		}
		data.Midprices = append(data.Midprices, mid)
		data.QuotedSpreads = append(data.QuotedSpreads, spread)
		data.MidSeries = append(data.MidSeries, analytics.MidPoint{Timestamp: ev.Timestamp, Mid: mid})
		data.BBOs = append(data.BBOs, s.bboSnapshot(book, ev.Timestamp))

		agent := agents[int(nextID)%len(agents)]
		midBefore := mid

		req := agent.GenerateOrder(mid, ev.IsBuy, nextID, s.cfg.Symbol)
		nextID++

		tradesBefore := len(data.Trades)
		o, err := eng.SubmitOrder(req)
		if err != nil {
			continue
		}
		if o.Type == orderbook.Limit && o.LeavesQty > 0 {
			resting = append(resting, o.ID)
		}

		if len(data.Trades) > tradesBefore {
			midAfter, ok := book.Midprice()
			if !ok {
				midAfter = midBefore
			}
			for t := tradesBefore; t < len(data.Trades); t++ {
				tr := data.Trades[t]
				data.TradeObs = append(data.TradeObs, analytics.TradeObs{
					TradePrice: tr.Price,
					MidBefore:  midBefore,
					MidAfter:   midAfter, // refined by the backfill pass
					Volume:     tr.Quantity,
					Aggressor:  tr.Aggressor,
				})
				pending = append(pending, tradeObsIndex{obs: len(data.TradeObs) - 1, eventIdx: idx})
				data.ImpactTrades = append(data.ImpactTrades, analytics.ImpactTrade{
					Timestamp: ev.Timestamp,
					Price:     tr.Price,
					Volume:    tr.Quantity,
					Aggressor: tr.Aggressor,
				})
				data.FlowTrades = append(data.FlowTrades, analytics.FlowTrade{
					Timestamp: ev.Timestamp,
					Volume:    tr.Quantity,
					Aggressor: tr.Aggressor,
				})
			}
		}

		if idx%cancelSweepInterval == 0 && idx > 0 {
			resting = s.sweepStaleOrders(eng, book, agents, resting, &data.TotalCancels)
		}
	}

	data.TotalOrders = uint64(len(events))
	s.backfillFutureMids(data, pending)

	data.Stats = eng.Stats()
	data.WallTimeSec = time.Since(wallStart).Seconds()
	return data
}

// seedBook pre-loads ten levels a side, five orders per level, so early
// market orders meet real depth. Returns the next free order id.
func (s *Simulator) seedBook(eng *engine.Engine) orderbook.OrderID {
	var id orderbook.OrderID = 1
	for lvl := 1; lvl <= 10; lvl++ {
		for j := 0; j < 5; j++ {
			qty := orderbook.Quantity(100 + j*50)
			eng.SubmitOrder(orderbook.NewOrderRequest{
				ID: id, Side: orderbook.Buy, Type: orderbook.Limit, TIF: orderbook.TifGTC,
				Price: s.cfg.InitPrice - orderbook.Price(lvl), Quantity: qty, Symbol: s.cfg.Symbol,
			})
			id++
			eng.SubmitOrder(orderbook.NewOrderRequest{
				ID: id, Side: orderbook.Sell, Type: orderbook.Limit, TIF: orderbook.TifGTC,
				Price: s.cfg.InitPrice + orderbook.Price(lvl), Quantity: qty, Symbol: s.cfg.Symbol,
			})
			id++
		}
	}
	if id < 10000 {
		id = 10000
	}
	return id
}

// sweepStaleOrders runs agent cancel decisions over tracked resting
// orders and compacts the tracking list.
func (s *Simulator) sweepStaleOrders(eng *engine.Engine, book *orderbook.OrderBook, agents []*Agent, resting []orderbook.OrderID, cancels *uint64) []orderbook.OrderID {
	mid, ok := book.Midprice()
	if !ok {
		mid = s.cfg.InitPrice
	}

	kept := resting[:0]
	for _, id := range resting {
		o := book.Order(id)
		if o == nil || !o.IsActive() {
			continue
		}
		agent := agents[int(id)%len(agents)]
		if agent.ShouldCancel(o.Price, mid) {
			if eng.CancelOrder(orderbook.CancelRequest{OrderID: id, Symbol: s.cfg.Symbol}) == nil {
				*cancels++
			}
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

func (s *Simulator) bboSnapshot(book *orderbook.OrderBook, ts float64) analytics.BBOSnapshot {
	snap := analytics.BBOSnapshot{Timestamp: ts}
	if bids := book.Bids(1); len(bids) > 0 {
		snap.BidPrice = bids[0].Price
		snap.BidSize = bids[0].Quantity
	}
	if asks := book.Asks(1); len(asks) > 0 {
		snap.AskPrice = asks[0].Price
		snap.AskSize = asks[0].Quantity
	}
	return snap
}

// backfillFutureMids replaces each observation's MidAfter with the
// midpoint recorded 100 events later, clamped to the last event.
func (s *Simulator) backfillFutureMids(data *Data, pending []tradeObsIndex) {
	if len(data.Midprices) == 0 {
		return
	}
	for _, p := range pending {
		idx := p.eventIdx + 100
		if idx > len(data.Midprices)-1 {
			idx = len(data.Midprices) - 1
		}
		data.TradeObs[p.obs].MidAfter = data.Midprices[idx]
	}
}
