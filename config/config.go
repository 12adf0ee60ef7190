// Package config defines the venue server configuration and validation
// helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration. Fields come from a TOML file layered
// over defaults, then KESTREL_* environment overrides.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Engine      EngineConfig      `toml:"engine"`
	Journal     JournalConfig     `toml:"journal"`
	Feed        FeedConfig        `toml:"feed"`
	Kafka       KafkaConfig       `toml:"kafka"`
	Broadcaster BroadcasterConfig `toml:"broadcaster"`
	LogLevel    string            `toml:"log_level"`
}

// ServerConfig holds the gRPC gateway listen address.
type ServerConfig struct {
	GRPCAddr string `toml:"grpc_addr"`
}

// EngineConfig lists the tradeable symbols.
type EngineConfig struct {
	Symbols []string `toml:"symbols"`
}

// JournalConfig sizes the input-event journal.
type JournalConfig struct {
	Enabled     bool   `toml:"enabled"`
	Dir         string `toml:"dir"`
	SegmentSize int64  `toml:"segment_size"`
}

// FeedConfig sizes the market-data path.
type FeedConfig struct {
	RingSize uint64 `toml:"ring_size"`
	DumpPath string `toml:"dump_path"`
}

// KafkaConfig holds the trade-print producer settings.
type KafkaConfig struct {
	Enabled     bool     `toml:"enabled"`
	Brokers     []string `toml:"brokers"`
	TradesTopic string   `toml:"trades_topic"`
}

// BroadcasterConfig holds the feed broadcaster job settings.
type BroadcasterConfig struct {
	Enabled   bool     `toml:"enabled"`
	Brokers   []string `toml:"brokers"`
	FeedTopic string   `toml:"feed_topic"`
	StateDir  string   `toml:"state_dir"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:  ServerConfig{GRPCAddr: ":9090"},
		Engine:  EngineConfig{Symbols: []string{"AAPL"}},
		Journal: JournalConfig{Enabled: true, Dir: "./journal", SegmentSize: 64 << 20},
		Feed:    FeedConfig{RingSize: 1 << 16},
		Kafka:   KafkaConfig{TradesTopic: "kestrel.trades"},
		Broadcaster: BroadcasterConfig{
			FeedTopic: "kestrel.feed",
			StateDir:  "./broadcaster_state",
		},
		LogLevel: "info",
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol required")
	}
	for _, s := range c.Engine.Symbols {
		if s == "" || len(s) > 16 {
			return fmt.Errorf("config: invalid symbol %q", s)
		}
	}
	if c.Feed.RingSize == 0 || c.Feed.RingSize&(c.Feed.RingSize-1) != 0 {
		return fmt.Errorf("config: feed ring_size must be a power of two")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka enabled without brokers")
	}
	if c.Broadcaster.Enabled && len(c.Broadcaster.Brokers) == 0 {
		return fmt.Errorf("config: broadcaster enabled without brokers")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
