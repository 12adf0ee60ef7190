package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Defaults().Server.GRPCAddr, cfg.Server.GRPCAddr)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kestrel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[server]
grpc_addr = ":7000"

[engine]
symbols = ["AAPL", "MSFT"]

[feed]
ring_size = 4096
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, ":7000", cfg.Server.GRPCAddr)
	require.Equal(t, []string{"AAPL", "MSFT"}, cfg.Engine.Symbols)
	require.Equal(t, uint64(4096), cfg.Feed.RingSize)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KESTREL_GRPC_ADDR", ":8111")
	t.Setenv("KESTREL_SYMBOLS", "TSLA, NVDA")
	t.Setenv("KESTREL_JOURNAL_ENABLED", "false")
	t.Setenv("KESTREL_FEED_RING_SIZE", "1024")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, ":8111", cfg.Server.GRPCAddr)
	require.Equal(t, []string{"TSLA", "NVDA"}, cfg.Engine.Symbols)
	require.False(t, cfg.Journal.Enabled)
	require.Equal(t, uint64(1024), cfg.Feed.RingSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.Symbols = nil
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Feed.RingSize = 1000 // not a power of two
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Kafka.Enabled = true
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.LogLevel = "loud"
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Engine.Symbols = []string{"WAYTOOLONGSYMBOLNAME"}
	require.Error(t, cfg.Validate())
}
