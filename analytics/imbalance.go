package analytics

import (
	"math"
	"sort"

	"kestrel/domain/orderbook"
)

// BBOSnapshot is one observation of the top of book.
type BBOSnapshot struct {
	Timestamp float64
	BidPrice  orderbook.Price
	BidSize   orderbook.Quantity
	AskPrice  orderbook.Price
	AskSize   orderbook.Quantity
}

// FlowTrade is a timed trade used for interval volume imbalance.
type FlowTrade struct {
	Timestamp float64
	Volume    orderbook.Quantity
	Aggressor orderbook.Side
}

// ImbalanceMetrics carries the OFI return-prediction regression (Cont,
// Kukanov & Stoikov 2014) plus interval imbalance summaries.
type ImbalanceMetrics struct {
	OFIBeta     float64
	OFIRSquared float64
	OFITStat    float64

	AvgVolumeImbalance float64
	AvgDepthImbalance  float64
	MaxVolumeImbalance float64

	OFISeries    []float64
	ReturnSeries []float64

	NumIntervals int
}

// ComputeImbalance accumulates event-level OFI contributions into
// intervalSec buckets and regresses next-interval midprice returns (bps)
// on current-interval OFI over pairs where either term is non-zero.
//
// Per consecutive BBO pair: the bid contribution is the size change when
// the bid price held, +size when the bid rose, -previous size when it
// fell; the ask contribution mirrors it with opposite sign convention.
// OFI = dBid - dAsk.
func ComputeImbalance(bbos []BBOSnapshot, trades []FlowTrade, intervalSec float64) ImbalanceMetrics {
	var result ImbalanceMetrics
	if len(bbos) < 2 || intervalSec <= 0 {
		return result
	}

	maxTime := bbos[len(bbos)-1].Timestamp
	numIntervals := int(maxTime/intervalSec) + 1
	result.NumIntervals = numIntervals

	ofi := make([]float64, numIntervals)
	returns := make([]float64, numIntervals)
	volImbalance := make([]float64, numIntervals)
	depthImbalance := make([]float64, numIntervals)

	buyVol := make([]float64, numIntervals)
	sellVol := make([]float64, numIntervals)
	for _, t := range trades {
		bucket := clampBucket(int(t.Timestamp/intervalSec), numIntervals)
		if t.Aggressor == orderbook.Buy {
			buyVol[bucket] += float64(t.Volume)
		} else {
			sellVol[bucket] += float64(t.Volume)
		}
	}

	for i := 1; i < len(bbos); i++ {
		prev, curr := bbos[i-1], bbos[i]
		bucket := clampBucket(int(curr.Timestamp/intervalSec), numIntervals)

		var dBid, dAsk float64
		switch {
		case curr.BidPrice == prev.BidPrice:
			dBid = float64(curr.BidSize) - float64(prev.BidSize)
		case curr.BidPrice > prev.BidPrice:
			dBid = float64(curr.BidSize)
		default:
			dBid = -float64(prev.BidSize)
		}
		switch {
		case curr.AskPrice == prev.AskPrice:
			dAsk = float64(curr.AskSize) - float64(prev.AskSize)
		case curr.AskPrice < prev.AskPrice:
			dAsk = -float64(curr.AskSize)
		default:
			dAsk = float64(prev.AskSize)
		}

		ofi[bucket] += dBid - dAsk

		bd := float64(curr.BidSize)
		ad := float64(curr.AskSize)
		if bd+ad > 0 {
			depthImbalance[bucket] = (bd - ad) / (bd + ad)
		}
	}

	for i := 0; i < numIntervals; i++ {
		midStart := midAt(bbos, float64(i)*intervalSec)
		midEnd := midAt(bbos, float64(i+1)*intervalSec)
		if midStart > 0 {
			returns[i] = float64(midEnd-midStart) / float64(midStart) * 10000
		}
		total := buyVol[i] + sellVol[i]
		if total > 0 {
			volImbalance[i] = (buyVol[i] - sellVol[i]) / total
		}
	}

	// Predictive regression: OFI[i] against returns[i+1].
	var x, y []float64
	for i := 0; i+1 < numIntervals; i++ {
		if ofi[i] != 0 || returns[i+1] != 0 {
			x = append(x, ofi[i])
			y = append(y, returns[i+1])
		}
	}
	if fit, ok := olsRegression(x, y); ok {
		result.OFIBeta = fit.beta
		result.OFIRSquared = fit.rSquared
		result.OFITStat = fit.tStat
	}

	result.OFISeries = ofi
	result.ReturnSeries = returns
	result.AvgVolumeImbalance = mean(volImbalance)
	result.AvgDepthImbalance = mean(depthImbalance)
	for _, v := range volImbalance {
		if math.Abs(v) > math.Abs(result.MaxVolumeImbalance) {
			result.MaxVolumeImbalance = v
		}
	}
	return result
}

func clampBucket(b, n int) int {
	if b >= n {
		return n - 1
	}
	if b < 0 {
		return 0
	}
	return b
}

// midAt returns the midpoint of the first snapshot at or after t, falling
// back to the last snapshot past the end of the series.
func midAt(bbos []BBOSnapshot, t float64) orderbook.Price {
	i := sort.Search(len(bbos), func(j int) bool { return bbos[j].Timestamp >= t })
	if i == len(bbos) {
		i = len(bbos) - 1
	}
	return (bbos[i].BidPrice + bbos[i].AskPrice) / 2
}
