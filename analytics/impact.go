package analytics

import (
	"sort"

	"kestrel/domain/orderbook"
)

// ImpactTrade is a timed trade print for impact estimation. Timestamp is
// seconds since session start.
type ImpactTrade struct {
	Timestamp float64
	Price     orderbook.Price
	Volume    orderbook.Quantity
	Aggressor orderbook.Side
}

// MidPoint is one timed observation of the midprice series.
type MidPoint struct {
	Timestamp float64
	Mid       orderbook.Price
}

// KyleLambda is the OLS estimate of dP = alpha + lambda*dX + eps over
// fixed wall-time intervals, where dX is net signed volume.
type KyleLambda struct {
	Lambda       float64
	Alpha        float64
	RSquared     float64
	StdError     float64
	TStat        float64
	NumIntervals int
}

// EstimateKyleLambda buckets trades into intervalSec windows by timestamp
// and regresses the interval midprice change on net signed flow. Buckets
// use wall time, not event index; the interval mids come from
// nearest-timestamp lookup into the midpoint series. Bucket 0 (no prior
// mid) and zero-flow buckets are dropped. Degenerate samples (n < 3 or
// flow without variance) return all zeros.
func EstimateKyleLambda(trades []ImpactTrade, mids []MidPoint, intervalSec float64) KyleLambda {
	var result KyleLambda
	if len(trades) == 0 || len(mids) == 0 || intervalSec <= 0 {
		return result
	}

	maxTime := trades[len(trades)-1].Timestamp
	numIntervals := int(maxTime/intervalSec) + 1

	deltaX := make([]float64, numIntervals)
	for _, t := range trades {
		bucket := int(t.Timestamp / intervalSec)
		if bucket >= numIntervals {
			bucket = numIntervals - 1
		}
		signed := float64(t.Volume)
		if t.Aggressor == orderbook.Sell {
			signed = -signed
		}
		deltaX[bucket] += signed
	}

	deltaP := make([]float64, numIntervals)
	for i := 1; i < numIntervals; i++ {
		start := nearestMid(mids, float64(i)*intervalSec)
		end := nearestMid(mids, float64(i+1)*intervalSec)
		deltaP[i] = float64(end - start)
	}

	var x, y []float64
	for i := 1; i < numIntervals; i++ {
		if deltaX[i] != 0 {
			x = append(x, deltaX[i])
			y = append(y, deltaP[i])
		}
	}

	fit, ok := olsRegression(x, y)
	if !ok {
		return result
	}
	return KyleLambda{
		Lambda:       fit.beta,
		Alpha:        fit.alpha,
		RSquared:     fit.rSquared,
		StdError:     fit.stdError,
		TStat:        fit.tStat,
		NumIntervals: fit.n,
	}
}

// nearestMid returns the mid whose timestamp is closest to t. The series
// must be sorted by timestamp.
func nearestMid(mids []MidPoint, t float64) orderbook.Price {
	i := sort.Search(len(mids), func(j int) bool { return mids[j].Timestamp >= t })
	if i == len(mids) {
		return mids[len(mids)-1].Mid
	}
	if i == 0 {
		return mids[0].Mid
	}
	if t-mids[i-1].Timestamp < mids[i].Timestamp-t {
		return mids[i-1].Mid
	}
	return mids[i].Mid
}
