package sim

import (
	"math"
	"math/rand"

	"kestrel/domain/orderbook"
)

// AgentParams calibrate a zero-intelligence trader with strategic
// cancellation: limit prices placed around the midpoint, lognormal sizes,
// and cancel probability growing with distance from the mid.
type AgentParams struct {
	SigmaPrice         float64 // price placement spread around mid (ticks)
	MarketOrderProb    float64
	MeanSize           float64
	SigmaSize          float64
	CancelBaseProb     float64
	CancelDistanceMult float64
	AgentID            uint64
}

// Agent is one ZI trader with its own deterministic random stream.
type Agent struct {
	params AgentParams
	rng    *rand.Rand
}

func NewAgent(params AgentParams, seed int64) *Agent {
	return &Agent{params: params, rng: rand.New(rand.NewSource(seed))}
}

// GenerateOrder produces the next order given current market state.
func (a *Agent) GenerateOrder(mid orderbook.Price, isBuy bool, id orderbook.OrderID, symbol string) orderbook.NewOrderRequest {
	req := orderbook.NewOrderRequest{ID: id, Symbol: symbol}
	if isBuy {
		req.Side = orderbook.Buy
	} else {
		req.Side = orderbook.Sell
	}

	if a.rng.Float64() < a.params.MarketOrderProb {
		req.Type = orderbook.Market
		req.TIF = orderbook.TifIOC
		req.Price = orderbook.PriceMarket
	} else {
		req.Type = orderbook.Limit
		req.TIF = orderbook.TifGTC

		// Passive placement biased away from the mid on the order's side.
		offset := orderbook.Price(math.Abs(a.rng.NormFloat64() * a.params.SigmaPrice))
		if isBuy {
			req.Price = mid - offset
		} else {
			req.Price = mid + offset
		}
		if req.Price < 1 {
			req.Price = 1
		}
	}

	// Lognormal size rounded to the 100-share lot grid.
	raw := math.Exp(math.Log(a.params.MeanSize) + a.params.SigmaSize*a.rng.NormFloat64())
	qty := orderbook.Quantity(math.Round(raw))
	qty = ((qty + 50) / 100) * 100
	if qty == 0 {
		qty = 100
	}
	req.Quantity = qty
	return req
}

// ShouldCancel decides whether to pull a resting quote; staler (further
// from mid) quotes are pulled more aggressively.
func (a *Agent) ShouldCancel(price, mid orderbook.Price) bool {
	distance := price - mid
	if distance < 0 {
		distance = -distance
	}
	p := a.params.CancelBaseProb + a.params.CancelDistanceMult*float64(distance)
	return a.rng.Float64() < p
}
