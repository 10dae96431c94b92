package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "quotebot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if len(cfg.Stream.Instruments) != 2 || cfg.Stream.Instruments[0] != "GOLD" {
		t.Fatalf("unexpected instruments: %+v", cfg.Stream.Instruments)
	}
	if cfg.Stream.ReadTimeout() != 120*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.Stream.ReadTimeout())
	}
	if cfg.Stream.Heartbeat() != 30*time.Second {
		t.Fatalf("unexpected heartbeat: %s", cfg.Stream.Heartbeat())
	}
	if len(cfg.Strategy.Modes) != 2 || cfg.Strategy.Modes[1] != "ema" {
		t.Fatalf("unexpected modes: %+v", cfg.Strategy.Modes)
	}
	if len(cfg.Strategy.Sessions) != 2 {
		t.Fatalf("unexpected sessions: %+v", cfg.Strategy.Sessions)
	}
	if cfg.Strategy.Params.Breakout.Lookback != 20 || cfg.Strategy.Params.Breakout.TPMult != 4 {
		t.Fatalf("unexpected breakout params: %+v", cfg.Strategy.Params.Breakout)
	}
	if cfg.Strategy.Params.EMA.Fast != 5 || cfg.Strategy.Params.EMA.Slow != 13 {
		t.Fatalf("unexpected ema params: %+v", cfg.Strategy.Params.EMA)
	}
	if !cfg.Simulator.Enabled || cfg.Simulator.TrailFactor != 0.5 {
		t.Fatalf("unexpected simulator: %+v", cfg.Simulator)
	}
	if cfg.Notify.Amount != 2.5 || !cfg.Notify.MarketClosed || cfg.Notify.Recalibrate {
		t.Fatalf("unexpected notify: %+v", cfg.Notify)
	}
	if cfg.Risk.MaxNotionalPerTrade != 10000 {
		t.Fatalf("unexpected max notional: %.2f", cfg.Risk.MaxNotionalPerTrade)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	require.Equal(t, time.Second, cfg.Stream.ReconnectCooldown())
	require.Equal(t, 500*time.Millisecond, cfg.Stream.ResubscribeGap())
	require.Equal(t, time.Minute, cfg.Stream.SubscribeRetry())
	require.Equal(t, 5*time.Minute, cfg.Stream.CredentialRefresh())
	require.Equal(t, 11*time.Second, cfg.Bars.Duration())
	require.Equal(t, 1000, cfg.Bars.TickCapacity)
	require.Equal(t, 500, cfg.Bars.BarCapacity)
	require.Equal(t, 200*time.Millisecond, cfg.Simulator.EntryPoll())
	require.Equal(t, 500*time.Millisecond, cfg.Simulator.ExitPoll())
	require.Equal(t, "data/trades.jsonl", cfg.Paper.TradesPath)
	require.Equal(t, "/tmp/quotebot/csv", cfg.Paper.CSVDir)
}

func TestApplyDefaultsOnEmptyConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	require.Equal(t, []string{"breakout"}, cfg.Strategy.Modes)
	require.Equal(t, 300*time.Second, cfg.Stream.ReadTimeout())
	require.Equal(t, 0.7, cfg.Simulator.TrailFactor)
	require.Equal(t, 1.0, cfg.Notify.Amount)
	require.Equal(t, ":9100", cfg.App.HTTPAddr)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
	require.Error(t, Save(path, nil))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadCredentialsFromEnvFile(t *testing.T) {
	t.Setenv(EnvCST, "env-cst")
	t.Setenv(EnvSecurityToken, "env-token")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CAPITAL_CST=file-cst\n"), 0o600))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, "file-cst", creds.CST)
	require.Equal(t, "env-token", creds.SecurityToken)
}

func TestLoadCredentialsMissing(t *testing.T) {
	t.Setenv(EnvCST, "")
	t.Setenv(EnvSecurityToken, "")

	_, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.env"))
	require.ErrorIs(t, err, ErrMissingCredentials)
}
