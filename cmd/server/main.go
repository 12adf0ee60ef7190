// Command server is the venue entry point: it loads configuration,
// replays the input journal, wires the engine, feed, broadcaster and
// trade producer, and serves the gRPC order-entry gateway until
// interrupted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/grpc"

	"kestrel/api/gateway"
	"kestrel/config"
	"kestrel/domain/engine"
	"kestrel/infra/kafka"
	"kestrel/infra/ring"
	"kestrel/infra/wal"
	"kestrel/jobs/broadcaster"
	"kestrel/md/feed"
	"kestrel/service"
)

func main() {
	configPath := flag.String("config", "kestrel.toml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("path", *configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Engine and symbols.
	eng := engine.New()
	for _, sym := range cfg.Engine.Symbols {
		eng.AddSymbol(sym)
	}

	// Journal replay, then a fresh journal segment.
	var journal *wal.WAL
	if cfg.Journal.Enabled {
		if _, err := service.ReplayJournal(cfg.Journal.Dir, eng, logger); err != nil {
			logger.Error("journal replay failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		journal, err = wal.Open(wal.Config{Dir: cfg.Journal.Dir, SegmentSize: cfg.Journal.SegmentSize})
		if err != nil {
			logger.Error("journal open failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer journal.Close()
	}

	// Feed pipeline.
	publisher := feed.NewPublisher()
	feedRing := ring.New[feed.Record](cfg.Feed.RingSize)
	publisher.ForwardTo(feedRing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Broadcaster.Enabled {
		store, err := broadcaster.OpenStateStore(cfg.Broadcaster.StateDir)
		if err != nil {
			logger.Error("broadcaster state store failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer store.Close()

		bc, err := broadcaster.New(feedRing, store, cfg.Broadcaster.Brokers, cfg.Broadcaster.FeedTopic, logger)
		if err != nil {
			logger.Error("broadcaster init failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	// Trade prints.
	var trades *kafka.Producer
	if cfg.Kafka.Enabled {
		trades = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic)
		defer trades.Close()
	}

	svc := service.NewOrderService(eng, journal, publisher, trades, logger)

	// Gateway.
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", slog.String("addr", cfg.Server.GRPCAddr), slog.String("error", err.Error()))
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	gateway.RegisterOrderGatewayServer(grpcServer, gateway.NewServer(svc, logger))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		grpcServer.GracefulStop()
	}()

	logger.Info("gateway listening",
		slog.String("addr", cfg.Server.GRPCAddr),
		slog.String("symbols", strings.Join(cfg.Engine.Symbols, ",")))
	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("serve failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
