package strategy

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"quotebot-go/internal/metrics"
	sig "quotebot-go/internal/signal"
)

// BarSource exposes closed-bar history snapshots.
type BarSource interface {
	BarHistory(instrument string, n int) []sig.Bar
}

// SignalSink delivers a signal downstream without blocking the caller for long.
type SignalSink interface {
	Forward(s sig.Signal)
}

// OrderStarter launches an independent simulated order for a signal.
type OrderStarter interface {
	Start(s sig.Signal) string
}

// Dispatcher runs every configured strategy when a bar closes and forwards the results.
type Dispatcher struct {
	bars       BarSource
	strategies []Strategy
	sink       SignalSink
	orders     OrderStarter
	lookback   int
	log        zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithOrders starts a simulated order for every produced signal.
func WithOrders(orders OrderStarter) DispatcherOption {
	return func(d *Dispatcher) { d.orders = orders }
}

// WithLookback limits how many closed bars each strategy receives. Zero passes the full history.
func WithLookback(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.lookback = n
		}
	}
}

// NewDispatcher wires strategies between the bar source and the signal sink.
func NewDispatcher(bars BarSource, strategies []Strategy, sink SignalSink, log zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bars:       bars,
		strategies: append([]Strategy(nil), strategies...),
		sink:       sink,
		log:        log.With().Str("component", "dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnBarClose evaluates strategies sequentially for instrument. A failing strategy is logged
// and skipped; it never prevents the others from running.
func (d *Dispatcher) OnBarClose(instrument string, _ sig.Bar) {
	history := d.bars.BarHistory(instrument, d.lookback)
	for _, st := range d.strategies {
		view := append([]sig.Bar(nil), history...)
		s, err := d.evaluate(st, instrument, view)
		if err != nil {
			metrics.StrategyErrorsTotal.WithLabelValues(st.Name()).Inc()
			d.log.Error().Err(err).Str("strategy", st.Name()).Str("instrument", instrument).Msg("strategy failed")
			continue
		}
		if s == nil {
			continue
		}
		metrics.SignalsTotal.WithLabelValues(s.Instrument, s.Strategy, string(s.Direction)).Inc()
		d.log.Info().
			Str("strategy", s.Strategy).
			Str("instrument", s.Instrument).
			Str("direction", string(s.Direction)).
			Float64("entry", s.Entry).
			Float64("tp", s.TakeProfit).
			Float64("sl", s.StopLoss).
			Msg("signal")
		if d.sink != nil {
			d.sink.Forward(*s)
		}
		if d.orders != nil {
			d.orders.Start(*s)
		}
	}
}

func (d *Dispatcher) evaluate(st Strategy, instrument string, bars []sig.Bar) (out *sig.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &StrategyError{Strategy: st.Name(), Instrument: instrument, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	s, err := st.Evaluate(instrument, bars)
	if err != nil {
		var se *StrategyError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &StrategyError{Strategy: st.Name(), Instrument: instrument, Err: err}
	}
	if s == nil {
		return nil, nil
	}
	copied := *s
	if copied.Instrument == "" {
		copied.Instrument = instrument
	}
	if copied.Strategy == "" {
		copied.Strategy = st.Name()
	}
	if copied.Direction != sig.Buy && copied.Direction != sig.Sell {
		return nil, &StrategyError{Strategy: st.Name(), Instrument: instrument, Err: fmt.Errorf("invalid direction %q", copied.Direction)}
	}
	return &copied, nil
}
