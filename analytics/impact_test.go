package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kestrel/domain/orderbook"
)

// A perfectly linear flow-impact relationship is recovered exactly.
func TestKyleLambdaRecoversLinearImpact(t *testing.T) {
	const lambda = 0.01
	const interval = 1.0

	var trades []ImpactTrade
	var mids []MidPoint
	mid := orderbook.Price(10000)
	mids = append(mids, MidPoint{Timestamp: 0, Mid: mid})

	flows := []int64{500, -300, 800, -200, 400, -700, 600, 100, -400, 900}
	for i, flow := range flows {
		ts := float64(i)*interval + 0.5
		vol := flow
		aggressor := orderbook.Buy
		if flow < 0 {
			vol = -flow
			aggressor = orderbook.Sell
		}
		trades = append(trades, ImpactTrade{Timestamp: ts, Volume: orderbook.Quantity(vol), Aggressor: aggressor})

		mid += orderbook.Price(float64(flow) * lambda)
		mids = append(mids, MidPoint{Timestamp: float64(i+1) * interval, Mid: mid})
	}

	result := EstimateKyleLambda(trades, mids, interval)

	require.NotZero(t, result.NumIntervals)
	require.InDelta(t, lambda, result.Lambda, 0.002)
	require.Greater(t, result.RSquared, 0.9)
	require.NotZero(t, result.TStat)
}

func TestKyleLambdaDegenerateInputs(t *testing.T) {
	require.Zero(t, EstimateKyleLambda(nil, nil, 5))

	// Too few non-zero buckets: all zeros.
	trades := []ImpactTrade{
		{Timestamp: 1.5, Volume: 100, Aggressor: orderbook.Buy},
	}
	mids := []MidPoint{{Timestamp: 0, Mid: 10000}, {Timestamp: 2, Mid: 10001}}
	result := EstimateKyleLambda(trades, mids, 1)
	require.Zero(t, result.Lambda)
	require.Zero(t, result.NumIntervals)
}

func TestKyleLambdaConstantFlowHasNoVariance(t *testing.T) {
	// Identical ΔX every bucket: slope undefined, zeros returned.
	var trades []ImpactTrade
	var mids []MidPoint
	mids = append(mids, MidPoint{Timestamp: 0, Mid: 10000})
	for i := 0; i < 6; i++ {
		trades = append(trades, ImpactTrade{Timestamp: float64(i) + 0.5, Volume: 100, Aggressor: orderbook.Buy})
		mids = append(mids, MidPoint{Timestamp: float64(i + 1), Mid: orderbook.Price(10000 + i)})
	}
	result := EstimateKyleLambda(trades, mids, 1)
	require.Zero(t, result.Lambda)
	require.Zero(t, result.NumIntervals)
}

func TestNearestMidLookup(t *testing.T) {
	mids := []MidPoint{
		{Timestamp: 0, Mid: 100},
		{Timestamp: 10, Mid: 200},
		{Timestamp: 20, Mid: 300},
	}
	require.Equal(t, orderbook.Price(100), nearestMid(mids, -5))
	require.Equal(t, orderbook.Price(100), nearestMid(mids, 4))
	require.Equal(t, orderbook.Price(200), nearestMid(mids, 6))
	require.Equal(t, orderbook.Price(200), nearestMid(mids, 12))
	require.Equal(t, orderbook.Price(300), nearestMid(mids, 50))
}
