// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, status address, and logging levels.
type App struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
}

// Stream describes the streaming market-data connection and its recovery timings.
type Stream struct {
	URL                   string   `yaml:"url"`
	Instruments           []string `yaml:"instruments"`
	ReadTimeoutSecs       int      `yaml:"read_timeout_secs"`
	HeartbeatSecs         int      `yaml:"heartbeat_secs"`
	ReconnectCooldownMs   int      `yaml:"reconnect_cooldown_ms"`
	ResubscribeGapMs      int      `yaml:"resubscribe_gap_ms"`
	SubscribeRetrySecs    int      `yaml:"subscribe_retry_secs"`
	CredentialRefreshSecs int      `yaml:"credential_refresh_secs"`
}

func (s Stream) ReadTimeout() time.Duration { return time.Duration(s.ReadTimeoutSecs) * time.Second }
func (s Stream) Heartbeat() time.Duration   { return time.Duration(s.HeartbeatSecs) * time.Second }
func (s Stream) ReconnectCooldown() time.Duration {
	return time.Duration(s.ReconnectCooldownMs) * time.Millisecond
}
func (s Stream) ResubscribeGap() time.Duration {
	return time.Duration(s.ResubscribeGapMs) * time.Millisecond
}
func (s Stream) SubscribeRetry() time.Duration {
	return time.Duration(s.SubscribeRetrySecs) * time.Second
}
func (s Stream) CredentialRefresh() time.Duration {
	return time.Duration(s.CredentialRefreshSecs) * time.Second
}

// Bars sizes bar aggregation and per-instrument history.
type Bars struct {
	DurationSecs float64 `yaml:"duration_secs"`
	TickCapacity int     `yaml:"tick_capacity"`
	BarCapacity  int     `yaml:"bar_capacity"`
}

// Duration returns the bar window.
func (b Bars) Duration() time.Duration {
	return time.Duration(b.DurationSecs * float64(time.Second))
}

// BreakoutParams tunes the range breakout strategy.
type BreakoutParams struct {
	Lookback       int     `yaml:"lookback"`
	TPMult         float64 `yaml:"tp_mult"`
	SLMult         float64 `yaml:"sl_mult"`
	MinRangeSpread float64 `yaml:"min_range_spread"`
	MaxSpreadRatio float64 `yaml:"max_spread_ratio"`
}

// EMAParams tunes the EMA crossover strategy.
type EMAParams struct {
	Fast   int     `yaml:"fast"`
	Slow   int     `yaml:"slow"`
	Trend  int     `yaml:"trend"`
	TPMult float64 `yaml:"tp_mult"`
	SLMult float64 `yaml:"sl_mult"`
}

// StrategyParams groups tunable knobs for the strategy implementations.
type StrategyParams struct {
	Breakout BreakoutParams `yaml:"breakout"`
	EMA      EMAParams      `yaml:"ema"`
}

// Strategy specifies which strategies run on bar close along with the parameter bundle.
type Strategy struct {
	Modes    []string       `yaml:"modes"`
	Lookback int            `yaml:"lookback"`
	Sessions []string       `yaml:"sessions"`
	Params   StrategyParams `yaml:"params"`
}

// Simulator configures paper order lifecycles.
type Simulator struct {
	Enabled     bool    `yaml:"enabled"`
	TrailFactor float64 `yaml:"trail_factor"`
	EntryPollMs int     `yaml:"entry_poll_ms"`
	ExitPollMs  int     `yaml:"exit_poll_ms"`
}

func (s Simulator) EntryPoll() time.Duration { return time.Duration(s.EntryPollMs) * time.Millisecond }
func (s Simulator) ExitPoll() time.Duration  { return time.Duration(s.ExitPollMs) * time.Millisecond }

// Notify configures signal delivery. An empty WebhookURL logs notifications instead.
type Notify struct {
	WebhookURL   string  `yaml:"webhook_url"`
	Amount       float64 `yaml:"amount"`
	MarketClosed bool    `yaml:"mkt_closed"`
	Recalibrate  bool    `yaml:"recalibrate"`
	StrategyExit bool    `yaml:"strategy"`
}

// Paper captures trade log destinations.
type Paper struct {
	TradesPath string `yaml:"trades_path"`
	CSVDir     string `yaml:"csv_dir"`
}

// Risk encodes guard-rails for outbound notifications.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Stream    Stream    `yaml:"stream"`
	Bars      Bars      `yaml:"bars"`
	Strategy  Strategy  `yaml:"strategy"`
	Simulator Simulator `yaml:"simulator"`
	Notify    Notify    `yaml:"notify"`
	Paper     Paper     `yaml:"paper"`
	Risk      Risk      `yaml:"risk"`
}

// ApplyDefaults fills zero values with production defaults.
func (c *Config) ApplyDefaults() {
	setString(&c.App.Name, "quotebot")
	setString(&c.App.Env, "dev")
	setString(&c.App.HTTPAddr, ":9100")
	setString(&c.App.LogLevel, "info")

	setString(&c.Stream.URL, "wss://api-streaming-capital.backend-capital.com/connect")
	setInt(&c.Stream.ReadTimeoutSecs, 300)
	setInt(&c.Stream.HeartbeatSecs, 60)
	setInt(&c.Stream.ReconnectCooldownMs, 1000)
	setInt(&c.Stream.ResubscribeGapMs, 500)
	setInt(&c.Stream.SubscribeRetrySecs, 60)
	setInt(&c.Stream.CredentialRefreshSecs, 300)

	if c.Bars.DurationSecs <= 0 {
		c.Bars.DurationSecs = 11
	}
	setInt(&c.Bars.TickCapacity, 1000)
	setInt(&c.Bars.BarCapacity, 500)

	if len(c.Strategy.Modes) == 0 {
		c.Strategy.Modes = []string{"breakout"}
	}

	if c.Simulator.TrailFactor <= 0 {
		c.Simulator.TrailFactor = 0.7
	}
	setInt(&c.Simulator.EntryPollMs, 200)
	setInt(&c.Simulator.ExitPollMs, 500)

	if c.Notify.Amount <= 0 {
		c.Notify.Amount = 1
	}
	setString(&c.Paper.TradesPath, "data/trades.jsonl")
	setString(&c.Paper.CSVDir, "data/trades")
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}

// Load reads a YAML file from disk and hydrates a Config struct with defaults applied.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
