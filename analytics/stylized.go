package analytics

import (
	"math"

	"kestrel/domain/orderbook"
)

// minReturnSamples is the floor below which stylized-fact metrics are not
// meaningful; Compute returns zeroed metrics under it.
const minReturnSamples = 20

// FactCheck is one stylized fact compared against its empirical benchmark.
type FactCheck struct {
	Name       string
	Reproduced bool
	Value      float64
	Benchmark  string
}

// FactMetrics are the stylized-fact statistics of a midprice series:
// fat tails, volatility clustering, volume-volatility and spread dynamics
// (Cont 2001).
type FactMetrics struct {
	ReturnSkewness float64
	ReturnKurtosis float64 // excess
	JarqueBera     float64

	AbsReturnACLag1     float64
	AbsReturnACLag5     float64
	AbsReturnACLag10    float64
	SquaredReturnACLag1 float64

	VolumeVolatilityCorr float64
	SpreadVolCorr        float64
	SpreadImbalanceCorr  float64

	NumReturns int

	FactChecks []FactCheck
}

// ComputeStylizedFacts derives simple returns from the midprice series and
// reports moment, autocorrelation and correlation statistics. volumes,
// spreads and imbalances are optional per-interval series aligned with the
// returns; pass nil to skip their checks.
func ComputeStylizedFacts(mids []orderbook.Price, volumes []orderbook.Quantity, spreads []orderbook.Price, imbalances []float64) FactMetrics {
	var result FactMetrics

	returns := make([]float64, 0, len(mids))
	for i := 1; i < len(mids); i++ {
		if mids[i-1] > 0 {
			returns = append(returns, float64(mids[i]-mids[i-1])/float64(mids[i-1]))
		}
	}
	if len(returns) < minReturnSamples {
		return result
	}
	result.NumReturns = len(returns)

	// Sample moments.
	m := mean(returns)
	var variance, m3, m4 float64
	for _, r := range returns {
		d := r - m
		variance += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	n := float64(len(returns))
	variance /= n
	m3 /= n
	m4 /= n

	stdDev := math.Sqrt(variance)
	if stdDev > 0 {
		result.ReturnSkewness = m3 / (stdDev * stdDev * stdDev)
		result.ReturnKurtosis = m4/(variance*variance) - 3
	}
	result.JarqueBera = (n / 6) * (result.ReturnSkewness*result.ReturnSkewness +
		0.25*result.ReturnKurtosis*result.ReturnKurtosis)

	absReturns := make([]float64, len(returns))
	sqReturns := make([]float64, len(returns))
	for i, r := range returns {
		absReturns[i] = math.Abs(r)
		sqReturns[i] = r * r
	}
	result.AbsReturnACLag1 = autocorrelation(absReturns, 1)
	result.AbsReturnACLag5 = autocorrelation(absReturns, 5)
	result.AbsReturnACLag10 = autocorrelation(absReturns, 10)
	result.SquaredReturnACLag1 = autocorrelation(sqReturns, 1)

	if len(volumes) >= len(returns) {
		vols := make([]float64, len(returns))
		for i := range vols {
			vols[i] = float64(volumes[i])
		}
		result.VolumeVolatilityCorr = correlation(vols, absReturns)
	}

	var spreadsF []float64
	if len(spreads) >= len(returns) {
		spreadsF = make([]float64, len(returns))
		for i := range spreadsF {
			spreadsF[i] = float64(spreads[i])
		}
		result.SpreadVolCorr = correlation(spreadsF, absReturns)
	}

	if len(imbalances) >= len(returns) && spreadsF != nil {
		absImb := make([]float64, len(returns))
		for i := range absImb {
			absImb[i] = math.Abs(imbalances[i])
		}
		result.SpreadImbalanceCorr = correlation(spreadsF, absImb)
	}

	result.FactChecks = []FactCheck{
		{"Fat tails (excess kurtosis > 0)", result.ReturnKurtosis > 0,
			result.ReturnKurtosis, "> 0 (excess kurtosis)"},
		{"Volatility clustering (AC|r| lag1 > 0.1)", result.AbsReturnACLag1 > 0.1,
			result.AbsReturnACLag1, "0.15-0.40"},
		{"Slow AC decay (lag10 > 0)", result.AbsReturnACLag10 > 0,
			result.AbsReturnACLag10, "> 0"},
	}
	if len(volumes) > 0 {
		result.FactChecks = append(result.FactChecks, FactCheck{
			"Volume-volatility correlation > 0.1",
			result.VolumeVolatilityCorr > 0.1,
			result.VolumeVolatilityCorr, "> 0.3 typical"})
	}
	if len(spreads) > 0 {
		result.FactChecks = append(result.FactChecks, FactCheck{
			"Spread widens with volatility",
			result.SpreadVolCorr > 0,
			result.SpreadVolCorr, "> 0"})
	}
	return result
}
