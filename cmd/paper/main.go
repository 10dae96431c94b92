package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/api"
	"quotebot-go/internal/config"
	"quotebot-go/internal/exchange"
	"quotebot-go/internal/execution"
	"quotebot-go/internal/market"
	"quotebot-go/internal/paper"
	"quotebot-go/internal/risk"
	"quotebot-go/internal/strategy"
	"quotebot-go/internal/util"
)

const (
	defaultConfigPath = "internal/config/config.yaml"
	defaultEnvPath    = ".env"
)

func main() {
	boot := util.NewLogger("info")

	cfg, err := config.Load(envOr("QUOTEBOT_CONFIG", defaultConfigPath))
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.WithApp(util.NewLogger(cfg.App.LogLevel), cfg.App.Name, cfg.App.Env)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	envPath := envOr("QUOTEBOT_ENV_FILE", defaultEnvPath)
	creds, err := config.LoadCredentials(envPath)
	if err != nil {
		log.Warn().Err(err).Msg("session credentials incomplete, control messages carry what is set")
	}
	session := exchange.NewCredentials(exchange.Session{CST: creds.CST, SecurityToken: creds.SecurityToken})

	store := market.NewStore(
		market.WithBarDuration(cfg.Bars.Duration()),
		market.WithCapacity(cfg.Bars.TickCapacity, cfg.Bars.BarCapacity),
	)

	account := paper.NewAccount()
	jsonl, err := paper.NewJSONLRecorder(cfg.Paper.TradesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Paper.TradesPath).Msg("open trade journal")
	}
	defer jsonl.Close()
	csvLog, err := paper.NewCSVRecorder(cfg.Paper.CSVDir, log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Paper.CSVDir).Msg("open csv trade log")
	}
	trades := paper.MultiLog{account, jsonl, csvLog}

	forwarder := execution.NewForwarder(buildNotifier(cfg, log), execution.Params{
		Amount:       cfg.Notify.Amount,
		TrailFactor:  cfg.Simulator.TrailFactor,
		MarketClosed: cfg.Notify.MarketClosed,
		Recalibrate:  cfg.Notify.Recalibrate,
		StrategyExit: cfg.Notify.StrategyExit,
	}, risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade}, log)

	sources := api.Sources{Market: store, Account: account}
	opts := []strategy.DispatcherOption{strategy.WithLookback(cfg.Strategy.Lookback)}
	var sim *paper.Simulator
	if cfg.Simulator.Enabled {
		sim = paper.NewSimulator(store, trades, log,
			paper.WithTrailFactor(cfg.Simulator.TrailFactor),
			paper.WithPollIntervals(cfg.Simulator.EntryPoll(), cfg.Simulator.ExitPoll()),
		)
		opts = append(opts, strategy.WithOrders(sim))
		sources.Orders = sim
	}

	strategies := strategy.BuildAll(cfg.Strategy.Modes, strategyParams(cfg, log))
	dispatcher := strategy.NewDispatcher(store, strategies, forwarder, log, opts...)
	store.OnBarClose(dispatcher.OnBarClose)

	stream := exchange.NewStream(
		exchange.WebsocketDialer{URL: cfg.Stream.URL},
		session, store, log,
		exchange.WithReadTimeout(cfg.Stream.ReadTimeout()),
		exchange.WithHeartbeat(cfg.Stream.Heartbeat()),
		exchange.WithReconnect(cfg.Stream.ReconnectCooldown(), cfg.Stream.ResubscribeGap()),
		exchange.WithSubscribeRetry(cfg.Stream.SubscribeRetry()),
	)
	defer stream.Close()
	sources.Stream = stream

	go func() {
		if err := api.NewServer(sources, log).Run(ctx, cfg.App.HTTPAddr); err != nil {
			log.Error().Err(err).Msg("status api stopped")
		}
	}()

	for _, inst := range cfg.Stream.Instruments {
		go func(inst string) {
			if err := stream.Subscribe(ctx, inst); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("instrument", inst).Msg("subscribe abandoned")
			}
		}(inst)
	}

	names := make([]string, 0, len(strategies))
	for _, st := range strategies {
		names = append(names, st.Name())
	}
	log.Info().
		Strs("instruments", cfg.Stream.Instruments).
		Strs("strategies", names).
		Bool("simulator", sim != nil).
		Dur("bar", cfg.Bars.Duration()).
		Msg("paper engine started")

	keepSession(ctx, cfg.Stream.CredentialRefresh(), envPath, session, stream, log)

	log.Info().Msg("shutting down")
	forwarder.Wait()
}

// keepSession re-reads the session tokens on a fixed schedule and pings after each refresh.
func keepSession(ctx context.Context, every time.Duration, envPath string, creds *exchange.Credentials, stream *exchange.Stream, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fresh, err := config.LoadCredentials(envPath)
			if err != nil {
				log.Warn().Err(err).Msg("credential refresh failed, keeping previous tokens")
			} else {
				creds.Set(exchange.Session{CST: fresh.CST, SecurityToken: fresh.SecurityToken})
			}
			if err := stream.Ping(); err != nil && !errors.Is(err, exchange.ErrNotConnected) {
				log.Warn().Err(err).Msg("keepalive after refresh failed")
			}
		}
	}
}

func buildNotifier(cfg *config.Config, log zerolog.Logger) execution.Notifier {
	if cfg.Notify.WebhookURL == "" {
		return execution.NewLogNotifier(log)
	}
	return execution.NewWebhookNotifier(cfg.Notify.WebhookURL, log)
}

func strategyParams(cfg *config.Config, log zerolog.Logger) strategy.Params {
	var sessions []strategy.Session
	for _, raw := range cfg.Strategy.Sessions {
		s, err := strategy.ParseSession(raw)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring trading session")
			continue
		}
		sessions = append(sessions, s)
	}
	b := cfg.Strategy.Params.Breakout
	e := cfg.Strategy.Params.EMA
	return strategy.Params{
		Breakout: strategy.BreakoutParams{
			Lookback:       b.Lookback,
			TPMult:         b.TPMult,
			SLMult:         b.SLMult,
			MinRangeSpread: b.MinRangeSpread,
			MaxSpreadRatio: b.MaxSpreadRatio,
			Sessions:       sessions,
		},
		EMA: strategy.EMAParams{
			Fast:   e.Fast,
			Slow:   e.Slow,
			Trend:  e.Trend,
			TPMult: e.TPMult,
			SLMult: e.SLMult,
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
