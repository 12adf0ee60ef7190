// Package sim drives the engine end-to-end for research runs: Hawkes
// arrival times, zero-intelligence agents, and the simulator loop that
// feeds the matching engine and collects the series the analytics
// estimators consume. Everything is deterministic given a seed.
package sim

import (
	"math"
	"math/rand"
)

// HawkesParams parameterize the self-exciting intensity
// lambda(t) = mu + sum alpha*exp(-beta*(t-t_i)). The branching ratio
// alpha/beta must stay below 1 for stationarity.
type HawkesParams struct {
	Mu    float64
	Alpha float64
	Beta  float64
}

func (p HawkesParams) BranchingRatio() float64 { return p.Alpha / p.Beta }
func (p HawkesParams) Stationary() bool        { return p.Alpha < p.Beta }

// Hawkes generates clustered event times via Ogata's thinning method.
type Hawkes struct {
	params HawkesParams
	rng    *rand.Rand
}

// NewHawkes builds a process; non-stationary parameters are capped at a
// branching ratio of 0.95.
func NewHawkes(params HawkesParams, seed int64) *Hawkes {
	if !params.Stationary() {
		params.Alpha = params.Beta * 0.95
	}
	return &Hawkes{params: params, rng: rand.New(rand.NewSource(seed))}
}

// Generate returns event timestamps (seconds) over [0, duration).
func (h *Hawkes) Generate(duration float64) []float64 {
	events := make([]float64, 0, int(duration*h.params.Mu*2))

	t := 0.0
	intensity := h.params.Mu

	for t < duration {
		lambdaBar := intensity

		// Candidate inter-arrival at the current intensity bound.
		t += h.rng.ExpFloat64() / lambdaBar
		if t >= duration {
			break
		}

		intensity = h.intensityAt(t, events)

		// Thinning: accept with probability lambda(t)/lambdaBar.
		if h.rng.Float64() <= intensity/lambdaBar {
			events = append(events, t)
			intensity += h.params.Alpha
		}
	}
	return events
}

// SidedEvent is an arrival tagged with the aggressing direction.
type SidedEvent struct {
	Timestamp float64
	IsBuy     bool
}

// directionPersistence is the probability an arrival follows the previous
// direction, modelling informed-flow persistence.
const directionPersistence = 0.6

// GenerateSided tags arrivals with autocorrelated buy/sell directions.
func (h *Hawkes) GenerateSided(duration, buyBias float64) []SidedEvent {
	times := h.Generate(duration)
	events := make([]SidedEvent, 0, len(times))

	lastBuy := true
	for _, t := range times {
		var isBuy bool
		if h.rng.Float64() < directionPersistence {
			isBuy = lastBuy
		} else {
			isBuy = h.rng.Float64() < buyBias
		}
		events = append(events, SidedEvent{Timestamp: t, IsBuy: isBuy})
		lastBuy = isBuy
	}
	return events
}

func (h *Hawkes) intensityAt(t float64, events []float64) float64 {
	intensity := h.params.Mu

	// Excitation older than ~5 decay times is negligible.
	lookback := 5.0 / h.params.Beta
	for i := len(events) - 1; i >= 0; i-- {
		dt := t - events[i]
		if dt > lookback {
			break
		}
		intensity += h.params.Alpha * math.Exp(-h.params.Beta*dt)
	}
	return intensity
}
