package analytics

import (
	"math"

	"kestrel/domain/orderbook"
)

// TradeObs is a per-trade observation for spread decomposition: the trade
// print bracketed by the midpoints just before and some horizon after.
type TradeObs struct {
	TradePrice orderbook.Price
	MidBefore  orderbook.Price
	MidAfter   orderbook.Price
	Volume     orderbook.Quantity
	Aggressor  orderbook.Side
}

// SpreadMetrics is the Huang–Stoll (1997) decomposition. Effective spread
// is what the aggressor paid versus the pre-trade mid; realized spread is
// the maker's take after the mid drifts; the difference is price impact,
// the permanent information content.
type SpreadMetrics struct {
	AvgQuotedSpread     float64
	AvgEffectiveSpread  float64
	AvgRealizedSpread   float64
	AvgPriceImpact      float64
	AdverseSelectionPct float64

	MedianEffectiveSpread float64
	P95EffectiveSpread    float64

	VWEffectiveSpread float64
	VWRealizedSpread  float64

	NumTrades int
}

// DecomposeSpread computes the full decomposition over trades, with the
// quoted-spread series averaged separately. Empty input returns zeros.
func DecomposeSpread(trades []TradeObs, quotedSpreads []orderbook.Price) SpreadMetrics {
	var result SpreadMetrics
	if len(trades) == 0 {
		return result
	}
	result.NumTrades = len(trades)

	if len(quotedSpreads) > 0 {
		var sum float64
		for _, s := range quotedSpreads {
			sum += float64(s)
		}
		result.AvgQuotedSpread = sum / float64(len(quotedSpreads))
	}

	effectives := make([]float64, 0, len(trades))
	var sumEff, sumReal, sumImpact float64
	var vwEff, vwReal float64
	var totalVolume float64

	for _, t := range trades {
		d := 1.0
		if t.Aggressor == orderbook.Sell {
			d = -1.0
		}

		eff := 2 * d * float64(t.TradePrice-t.MidBefore)
		real := 2 * d * float64(t.TradePrice-t.MidAfter)
		impact := eff - real // = 2d(midAfter - midBefore)

		sumEff += math.Abs(eff)
		sumReal += real // signed: the maker can lose
		sumImpact += math.Abs(impact)
		effectives = append(effectives, math.Abs(eff))

		vol := float64(t.Volume)
		vwEff += math.Abs(eff) * vol
		vwReal += real * vol
		totalVolume += vol
	}

	n := float64(len(trades))
	result.AvgEffectiveSpread = sumEff / n
	result.AvgRealizedSpread = sumReal / n
	result.AvgPriceImpact = sumImpact / n

	if result.AvgEffectiveSpread > 0 {
		result.AdverseSelectionPct = 100 * result.AvgPriceImpact / result.AvgEffectiveSpread
	}
	if totalVolume > 0 {
		result.VWEffectiveSpread = vwEff / totalVolume
		result.VWRealizedSpread = vwReal / totalVolume
	}

	s := sorted(effectives)
	result.MedianEffectiveSpread = percentile(s, 0.5)
	result.P95EffectiveSpread = percentile(s, 0.95)

	return result
}
