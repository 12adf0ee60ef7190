package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kestrel/domain/orderbook"
)

func TestComputeImbalanceNeedsTwoSnapshots(t *testing.T) {
	m := ComputeImbalance([]BBOSnapshot{{Timestamp: 0}}, nil, 10)
	require.Zero(t, m.NumIntervals)
}

func TestOFIContributions(t *testing.T) {
	bbos := []BBOSnapshot{
		{Timestamp: 0, BidPrice: 9999, BidSize: 100, AskPrice: 10001, AskSize: 100},
		// Same prices, bid grows by 50, ask shrinks by 30: OFI = 50 - (-30) = 80.
		{Timestamp: 1, BidPrice: 9999, BidSize: 150, AskPrice: 10001, AskSize: 70},
		// Bid price rises (+curr size), ask price rises (+prev size): OFI = 200 - 70 = 130.
		{Timestamp: 2, BidPrice: 10000, BidSize: 200, AskPrice: 10002, AskSize: 60},
		// Bid price falls (-prev size), ask price falls (-curr size): OFI = -200 - (-90) = -110.
		{Timestamp: 3, BidPrice: 9999, BidSize: 120, AskPrice: 10001, AskSize: 90},
	}

	m := ComputeImbalance(bbos, nil, 10)

	require.Equal(t, 1, m.NumIntervals)
	require.InDelta(t, 80+130-110, m.OFISeries[0], 1e-9)
}

func TestVolumeImbalance(t *testing.T) {
	bbos := []BBOSnapshot{
		{Timestamp: 0, BidPrice: 9999, BidSize: 100, AskPrice: 10001, AskSize: 100},
		{Timestamp: 5, BidPrice: 9999, BidSize: 100, AskPrice: 10001, AskSize: 100},
	}
	trades := []FlowTrade{
		{Timestamp: 1, Volume: 300, Aggressor: orderbook.Buy},
		{Timestamp: 2, Volume: 100, Aggressor: orderbook.Sell},
	}

	m := ComputeImbalance(bbos, trades, 10)
	require.InDelta(t, 0.5, m.AvgVolumeImbalance, 1e-9) // (300-100)/400
	require.InDelta(t, 0.5, m.MaxVolumeImbalance, 1e-9)
}

func TestOFIRegressionOnConstructedSeries(t *testing.T) {
	// Depth builds on the bid each interval, and the mid ratchets up the
	// following interval: positive beta.
	var bbos []BBOSnapshot
	bid := orderbook.Price(10000)
	bidSize := orderbook.Quantity(100)
	sizes := []orderbook.Quantity{100, 900, 150, 800, 200, 1000, 120, 700, 300, 900, 250, 850}
	for i := 0; i < 12; i++ {
		if i > 1 && sizes[i-2] > 500 {
			bid++ // strong pressure lifts the mid two observations on
		}
		bidSize = sizes[i]
		bbos = append(bbos, BBOSnapshot{
			Timestamp: float64(i),
			BidPrice:  bid,
			BidSize:   bidSize,
			AskPrice:  bid + 2,
			AskSize:   100,
		})
	}

	m := ComputeImbalance(bbos, nil, 1)
	require.Greater(t, m.NumIntervals, 3)
	require.Greater(t, m.OFIBeta, 0.0)
}
