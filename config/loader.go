package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML file at path over the defaults, applies KESTREL_*
// environment overrides, and returns the merged Config. Callers should
// Validate afterwards. A missing file is not an error: defaults plus env
// apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.GRPCAddr, "KESTREL_GRPC_ADDR")
	setStrSlice(&cfg.Engine.Symbols, "KESTREL_SYMBOLS")

	setBool(&cfg.Journal.Enabled, "KESTREL_JOURNAL_ENABLED")
	setStr(&cfg.Journal.Dir, "KESTREL_JOURNAL_DIR")
	setInt64(&cfg.Journal.SegmentSize, "KESTREL_JOURNAL_SEGMENT_SIZE")

	setUint64(&cfg.Feed.RingSize, "KESTREL_FEED_RING_SIZE")
	setStr(&cfg.Feed.DumpPath, "KESTREL_FEED_DUMP_PATH")

	setBool(&cfg.Kafka.Enabled, "KESTREL_KAFKA_ENABLED")
	setStrSlice(&cfg.Kafka.Brokers, "KESTREL_KAFKA_BROKERS")
	setStr(&cfg.Kafka.TradesTopic, "KESTREL_KAFKA_TRADES_TOPIC")

	setBool(&cfg.Broadcaster.Enabled, "KESTREL_BROADCASTER_ENABLED")
	setStrSlice(&cfg.Broadcaster.Brokers, "KESTREL_BROADCASTER_BROKERS")
	setStr(&cfg.Broadcaster.FeedTopic, "KESTREL_BROADCASTER_FEED_TOPIC")
	setStr(&cfg.Broadcaster.StateDir, "KESTREL_BROADCASTER_STATE_DIR")

	setStr(&cfg.LogLevel, "KESTREL_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
