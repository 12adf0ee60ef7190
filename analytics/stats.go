// Package analytics estimates microstructure quantities from captured
// time series: spread decomposition, price impact, order-flow imbalance
// and stylized-fact statistics. Estimators are pure functions; callers
// detect degenerate inputs through the sample-size fields of each result.
package analytics

import (
	"math"
	"sort"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// olsFit is a simple y = alpha + beta*x least-squares fit with the usual
// diagnostics. Returns ok=false when fewer than 3 points or x has no
// variance.
type olsFit struct {
	beta     float64
	alpha    float64
	rSquared float64
	stdError float64
	tStat    float64
	n        int
}

func olsRegression(x, y []float64) (olsFit, bool) {
	n := len(x)
	if n < 3 || len(y) != n {
		return olsFit{}, false
	}

	meanX := mean(x)
	meanY := mean(y)

	var ssXY, ssXX, ssYY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}
	if ssXX == 0 {
		return olsFit{}, false
	}

	fit := olsFit{n: n}
	fit.beta = ssXY / ssXX
	fit.alpha = meanY - fit.beta*meanX
	if ssYY > 0 {
		fit.rSquared = (ssXY * ssXY) / (ssXX * ssYY)
	}

	var sse float64
	for i := 0; i < n; i++ {
		res := y[i] - fit.alpha - fit.beta*x[i]
		sse += res * res
	}
	mse := sse / float64(n-2)
	fit.stdError = math.Sqrt(mse / ssXX)
	if fit.stdError > 0 {
		fit.tStat = fit.beta / fit.stdError
	}
	return fit, true
}

// autocorrelation at the given lag, using the full-sample mean and
// variance in the denominator.
func autocorrelation(x []float64, lag int) float64 {
	if len(x) <= lag || lag <= 0 {
		return 0
	}
	m := mean(x)
	var num, den float64
	for i := range x {
		den += (x[i] - m) * (x[i] - m)
		if i >= lag {
			num += (x[i] - m) * (x[i-lag] - m)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// correlation is the Pearson correlation over the common prefix of x and y.
func correlation(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 3 {
		return 0
	}
	meanX := mean(x[:n])
	meanY := mean(y[:n])

	var ssXY, ssXX, ssYY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}
	den := math.Sqrt(ssXX * ssYY)
	if den == 0 {
		return 0
	}
	return ssXY / den
}

// percentile interpolates linearly over an already sorted sample.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func sorted(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}
