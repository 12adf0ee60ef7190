// Command kestrel runs the full research pipeline (Hawkes arrivals, ZI
// agents, matching, feed publication), then computes the microstructure
// estimators and writes CSV artifacts plus a text report.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"kestrel/analytics"
	"kestrel/domain/orderbook"
	"kestrel/sim"
)

func main() {
	duration := flag.Float64("duration", 3600, "simulation duration in seconds")
	symbol := flag.String("symbol", "AAPL", "instrument symbol")
	output := flag.String("output", "output", "output directory")
	seed := flag.Int64("seed", 42, "random seed (identical seeds reproduce identical runs)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	runID := uuid.New().String()

	cfg := sim.DefaultConfig()
	cfg.Symbol = *symbol
	cfg.Duration = *duration
	cfg.Seed = *seed

	logger.Info("simulation starting",
		slog.String("run_id", runID),
		slog.String("symbol", cfg.Symbol),
		slog.Float64("duration_sec", cfg.Duration),
		slog.Int64("seed", cfg.Seed))

	if err := os.MkdirAll(*output, 0o755); err != nil {
		logger.Error("cannot create output dir", slog.String("error", err.Error()))
		os.Exit(1)
	}

	data := sim.NewSimulator(cfg).Run()

	logger.Info("simulation finished",
		slog.Int("events", len(data.EventTimes)),
		slog.Int("trades", len(data.Trades)),
		slog.Float64("wall_sec", data.WallTimeSec))

	// Estimators.
	spread := analytics.DecomposeSpread(data.TradeObs, data.QuotedSpreads)
	kyle := analytics.EstimateKyleLambda(data.ImpactTrades, data.MidSeries, 5.0)
	imbalance := analytics.ComputeImbalance(data.BBOs, data.FlowTrades, 10.0)

	intervalVolumes, intervalImbalances := intervalSeries(data)
	facts := analytics.ComputeStylizedFacts(data.Midprices, intervalVolumes, data.QuotedSpreads, intervalImbalances)

	// Artifacts.
	if err := writeArtifacts(*output, runID, data, spread, kyle, imbalance, facts); err != nil {
		logger.Error("writing artifacts failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("artifacts written", slog.String("dir", *output))
}

// intervalSeries aligns per-event volume and imbalance series with the
// midprice series for the stylized-fact correlations.
func intervalSeries(data *sim.Data) ([]orderbook.Quantity, []float64) {
	volumes := make([]orderbook.Quantity, len(data.Midprices))
	imbalances := make([]float64, len(data.Midprices))

	tradeIdx := 0
	var cumBuy, cumSell float64
	for i := range data.EventTimes {
		for tradeIdx < len(data.FlowTrades) && data.FlowTrades[tradeIdx].Timestamp <= data.EventTimes[i] {
			t := data.FlowTrades[tradeIdx]
			volumes[i] += t.Volume
			if t.Aggressor == orderbook.Buy {
				cumBuy += float64(t.Volume)
			} else {
				cumSell += float64(t.Volume)
			}
			tradeIdx++
		}
		if total := cumBuy + cumSell; total > 0 {
			imbalances[i] = (cumBuy - cumSell) / total
		}
	}
	return volumes, imbalances
}

func writeArtifacts(dir, runID string, data *sim.Data, spread analytics.SpreadMetrics, kyle analytics.KyleLambda, imbalance analytics.ImbalanceMetrics, facts analytics.FactMetrics) error {
	if err := writeTradesCSV(filepath.Join(dir, "trades.csv"), data.Trades); err != nil {
		return err
	}
	if err := writeSeriesCSV(filepath.Join(dir, "midprices.csv"), "midprice", data.Midprices); err != nil {
		return err
	}
	if err := writeSeriesCSV(filepath.Join(dir, "spreads.csv"), "quoted_spread", data.QuotedSpreads); err != nil {
		return err
	}
	if err := data.Feed.DumpToFile(filepath.Join(dir, "feed.bin")); err != nil {
		return err
	}
	return writeReport(filepath.Join(dir, "report.txt"), runID, data, spread, kyle, imbalance, facts)
}

func writeTradesCSV(path string, trades []orderbook.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"seq", "buy_id", "sell_id", "price", "qty", "aggressor"}); err != nil {
		return err
	}
	for _, t := range trades {
		aggressor := "B"
		if t.Aggressor == orderbook.Sell {
			aggressor = "S"
		}
		if err := w.Write([]string{
			strconv.FormatUint(t.Sequence, 10),
			strconv.FormatUint(t.BuyOrderID, 10),
			strconv.FormatUint(t.SellOrderID, 10),
			strconv.FormatInt(t.Price, 10),
			strconv.FormatUint(t.Quantity, 10),
			aggressor,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeSeriesCSV(path, column string, series []orderbook.Price) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"idx", column}); err != nil {
		return err
	}
	for i, v := range series {
		if err := w.Write([]string{strconv.Itoa(i), strconv.FormatInt(v, 10)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeReport(path, runID string, data *sim.Data, spread analytics.SpreadMetrics, kyle analytics.KyleLambda, imbalance analytics.ImbalanceMetrics, facts analytics.FactMetrics) error {
	var b strings.Builder

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("kestrel run report")
	line("run id:    %s", runID)
	line("")
	line("Engine")
	line("------------------------------------------")
	line("  events:          %d", len(data.EventTimes))
	line("  total orders:    %d", data.Stats.TotalOrders)
	line("  total cancels:   %d", data.Stats.TotalCancels)
	line("  total trades:    %d", data.Stats.TotalTrades)
	line("  total volume:    %d", data.Stats.TotalVolume)
	line("  active orders:   %d", data.Stats.ActiveOrders)
	line("  wall time:       %.2f sec", data.WallTimeSec)
	if data.WallTimeSec > 0 {
		line("  throughput:      %.0f events/sec", float64(len(data.EventTimes))/data.WallTimeSec)
	}
	line("")
	line("Spread Decomposition (Huang-Stoll)")
	line("------------------------------------------")
	line("  quoted spread:      %.2f ticks", spread.AvgQuotedSpread)
	line("  effective spread:   %.2f ticks", spread.AvgEffectiveSpread)
	line("  realized spread:    %.2f ticks", spread.AvgRealizedSpread)
	line("  price impact:       %.2f ticks", spread.AvgPriceImpact)
	line("  adverse selection:  %.2f%%", spread.AdverseSelectionPct)
	line("  median |eff|:       %.2f", spread.MedianEffectiveSpread)
	line("  p95 |eff|:          %.2f", spread.P95EffectiveSpread)
	line("")
	line("Kyle's Lambda")
	line("------------------------------------------")
	line("  lambda:   %.6f", kyle.Lambda)
	line("  alpha:    %.4f", kyle.Alpha)
	line("  R^2:      %.4f", kyle.RSquared)
	line("  t-stat:   %.1f", kyle.TStat)
	line("  N:        %d", kyle.NumIntervals)
	line("")
	line("Order Flow Imbalance")
	line("------------------------------------------")
	line("  OFI beta:           %.6f", imbalance.OFIBeta)
	line("  OFI R^2:            %.4f", imbalance.OFIRSquared)
	line("  avg vol imbalance:  %.4f", imbalance.AvgVolumeImbalance)
	line("  max vol imbalance:  %.4f", imbalance.MaxVolumeImbalance)
	line("")
	line("Stylized Facts")
	line("------------------------------------------")
	line("  excess kurtosis:   %.2f", facts.ReturnKurtosis)
	line("  skewness:          %.2f", facts.ReturnSkewness)
	line("  Jarque-Bera:       %.2f", facts.JarqueBera)
	line("  AC(|r|, lag=1):    %.3f", facts.AbsReturnACLag1)
	line("  AC(|r|, lag=5):    %.3f", facts.AbsReturnACLag5)
	line("  AC(|r|, lag=10):   %.3f", facts.AbsReturnACLag10)
	line("")
	for _, fc := range facts.FactChecks {
		mark := "x"
		if fc.Reproduced {
			mark = "ok"
		}
		line("  [%s] %s -> %.3f (benchmark: %s)", mark, fc.Name, fc.Value, fc.Benchmark)
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
