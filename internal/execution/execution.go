// Package execution delivers strategy signals to downstream order-placement sinks.
package execution

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/risk"
	"quotebot-go/internal/signal"
)

// Exit criteria flags understood by the downstream order service.
const (
	ExitTakeProfit   = "TP"
	ExitStopLoss     = "SL"
	ExitEndOfWeek    = "EOW_CLOSE"
	ExitRecalibrate  = "RECALIBRATE"
	ExitStrategyExit = "STRATEGY"
)

// Notification is the payload handed to a Notifier.
type Notification struct {
	Instrument   string           `json:"epic"`
	Direction    signal.Direction `json:"direction"`
	Amount       float64          `json:"amount"`
	HookName     string           `json:"hook_name"`
	Profit       float64          `json:"profit"`
	Loss         float64          `json:"loss"`
	TrailSL      float64          `json:"trail_sl"`
	ExitCriteria []string         `json:"exit_criteria"`
}

// Notifier delivers a notification to an external sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Params shapes notifications built from signals.
type Params struct {
	Amount       float64
	TrailFactor  float64
	MarketClosed bool
	Recalibrate  bool
	StrategyExit bool
}

// BuildNotification converts a signal into the downstream payload. Profit, loss and trail
// are price distances from entry.
func BuildNotification(s signal.Signal, p Params) Notification {
	profit := math.Abs(s.TakeProfit - s.Entry)
	criteria := []string{ExitTakeProfit, ExitStopLoss}
	if p.MarketClosed {
		criteria = append(criteria, ExitEndOfWeek)
	}
	if p.Recalibrate {
		criteria = append(criteria, ExitRecalibrate)
	}
	if p.StrategyExit {
		criteria = append(criteria, ExitStrategyExit)
	}
	return Notification{
		Instrument:   s.Instrument,
		Direction:    s.Direction,
		Amount:       p.Amount,
		HookName:     s.Strategy,
		Profit:       profit,
		Loss:         math.Abs(s.Entry - s.StopLoss),
		TrailSL:      profit * p.TrailFactor,
		ExitCriteria: criteria,
	}
}

// LogNotifier implements a logger-backed sink for notifications.
type LogNotifier struct{ log zerolog.Logger }

// NewLogNotifier wraps a zerolog logger.
func NewLogNotifier(log zerolog.Logger) *LogNotifier { return &LogNotifier{log: log} }

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.log.Info().
		Str("epic", note.Instrument).
		Str("hook", note.HookName).
		Str("direction", string(note.Direction)).
		Float64("amount", note.Amount).
		Float64("profit", note.Profit).
		Float64("loss", note.Loss).
		Float64("trail_sl", note.TrailSL).
		Strs("exit_criteria", note.ExitCriteria).
		Msg("signal notification")
	return nil
}

// Forwarder turns signals into notifications and delivers them fire-and-forget.
// Failures are logged and never retried.
type Forwarder struct {
	notifier Notifier
	params   Params
	limits   risk.Limits
	timeout  time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewForwarder builds a forwarder around notifier.
func NewForwarder(notifier Notifier, params Params, limits risk.Limits, log zerolog.Logger) *Forwarder {
	return &Forwarder{
		notifier: notifier,
		params:   params,
		limits:   limits,
		timeout:  10 * time.Second,
		log:      log.With().Str("component", "forwarder").Logger(),
	}
}

// Forward delivers s asynchronously unless the risk limits reject it.
func (f *Forwarder) Forward(s signal.Signal) {
	note := BuildNotification(s, f.params)
	if notional := note.Amount * s.Entry; !f.limits.Allow(notional) {
		f.log.Warn().Str("epic", s.Instrument).Float64("notional", notional).Msg("notification blocked by risk limits")
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		if err := f.notifier.Notify(ctx, note); err != nil {
			f.log.Warn().Err(err).Str("epic", note.Instrument).Str("hook", note.HookName).Msg("notification failed")
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (f *Forwarder) Wait() { f.wg.Wait() }
