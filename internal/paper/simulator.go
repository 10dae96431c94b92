// Package paper simulates order lifecycles against live quotes and records the closed trades.
package paper

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quotebot-go/internal/market"
	"quotebot-go/internal/metrics"
	"quotebot-go/internal/signal"
)

const (
	// DefaultTrailFactor scales the take-profit distance into the trailing offset.
	DefaultTrailFactor = 0.7
	// DefaultEntryPoll is the price polling interval while awaiting entry.
	DefaultEntryPoll = 200 * time.Millisecond
	// DefaultExitPoll is the price polling interval while a position is active.
	DefaultExitPoll = 500 * time.Millisecond
)

// OrderState is the lifecycle stage of a simulated order.
type OrderState int

const (
	AwaitingEntry OrderState = iota
	Active
	Closed
)

func (s OrderState) String() string {
	switch s {
	case AwaitingEntry:
		return "AWAITING_ENTRY"
	case Active:
		return "ACTIVE"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name in JSON responses.
func (s OrderState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ExitReason names the condition that closed an order.
type ExitReason string

const (
	ExitTakeProfit   ExitReason = "TP"
	ExitStopLoss     ExitReason = "SL"
	ExitTrailingStop ExitReason = "TRAIL_SL"
)

// PriceSource provides the latest quote for an instrument.
type PriceSource interface {
	LastPrice(instrument string) (signal.Quote, error)
}

// TradeLog persists closed trades. Record is called exactly once per order.
type TradeLog interface {
	Record(ClosedTrade)
}

// Order is a point-in-time view of one simulated order.
type Order struct {
	ID           string        `json:"id"`
	Signal       signal.Signal `json:"signal"`
	State        OrderState    `json:"state"`
	TrailingStop float64       `json:"trailing_stop"`
	OpenedAt     time.Time     `json:"opened_at"`
}

// ClosedTrade is the terminal record of an order.
type ClosedTrade struct {
	ID         string           `json:"id"`
	Instrument string           `json:"instrument"`
	Direction  signal.Direction `json:"direction"`
	Strategy   string           `json:"strategy"`
	Entry      float64          `json:"entry"`
	Exit       float64          `json:"exit"`
	PnL        float64          `json:"pnl"`
	Reason     ExitReason       `json:"exit_reason"`
	Duration   float64          `json:"duration_secs"`
	ClosedAt   time.Time        `json:"closed_at"`
}

// Simulator runs one independent lifecycle per signal: wait for entry, trail the stop,
// and report the exit. Orders cannot be cancelled; each runs until TP or a stop is hit.
type Simulator struct {
	prices      PriceSource
	trades      TradeLog
	trailFactor float64
	entryPoll   time.Duration
	exitPoll    time.Duration
	sleep       func(time.Duration)
	now         func() time.Time
	log         zerolog.Logger

	mu     sync.Mutex
	orders map[string]Order
	wg     sync.WaitGroup
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithTrailFactor sets the fraction of the take-profit distance used as trailing offset.
func WithTrailFactor(f float64) Option {
	return func(s *Simulator) {
		if f > 0 {
			s.trailFactor = f
		}
	}
}

// WithPollIntervals sets the entry and exit polling intervals.
func WithPollIntervals(entry, exit time.Duration) Option {
	return func(s *Simulator) {
		if entry > 0 {
			s.entryPoll = entry
		}
		if exit > 0 {
			s.exitPoll = exit
		}
	}
}

// WithClock replaces the wall clock and sleep function, mainly for tests.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewSimulator wires a simulator to a price source and a trade log.
func NewSimulator(prices PriceSource, trades TradeLog, log zerolog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		prices:      prices,
		trades:      trades,
		trailFactor: DefaultTrailFactor,
		entryPoll:   DefaultEntryPoll,
		exitPoll:    DefaultExitPoll,
		sleep:       time.Sleep,
		now:         time.Now,
		log:         log.With().Str("component", "simulator").Logger(),
		orders:      make(map[string]Order),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches an order for sig in its own goroutine and returns the order ID.
func (s *Simulator) Start(sig signal.Signal) string {
	order := Order{
		ID:           uuid.NewString(),
		Signal:       sig,
		State:        AwaitingEntry,
		TrailingStop: sig.StopLoss,
	}
	s.publish(order)
	metrics.ActiveOrders.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer metrics.ActiveOrders.Dec()
		s.run(order)
	}()
	return order.ID
}

// Wait blocks until every started order has closed.
func (s *Simulator) Wait() { s.wg.Wait() }

// Orders returns the open orders sorted by ID.
func (s *Simulator) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Simulator) publish(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.State == Closed {
		delete(s.orders, o.ID)
		return
	}
	s.orders[o.ID] = o
}

func (s *Simulator) run(o Order) {
	sig := o.Signal
	log := s.log.With().Str("order", o.ID).Str("epic", sig.Instrument).Str("direction", string(sig.Direction)).Logger()

	for {
		price, ok := s.price(sig, log)
		if ok && entered(sig, price) {
			break
		}
		s.sleep(s.entryPoll)
	}
	o.State = Active
	o.OpenedAt = s.now()
	s.publish(o)
	log.Info().Float64("entry", sig.Entry).Float64("stop", o.TrailingStop).Msg("order entered")

	offset := math.Abs(sig.TakeProfit-sig.Entry) * s.trailFactor
	for {
		s.sleep(s.exitPoll)
		price, ok := s.price(sig, log)
		if !ok {
			continue
		}
		trail := tighten(sig.Direction, o.TrailingStop, price, offset)
		if trail != o.TrailingStop {
			o.TrailingStop = trail
			s.publish(o)
		}
		reason, exit, done := checkExit(sig, o.TrailingStop, price)
		if !done {
			continue
		}
		o.State = Closed
		s.publish(o)

		closedAt := s.now()
		trade := ClosedTrade{
			ID:         o.ID,
			Instrument: sig.Instrument,
			Direction:  sig.Direction,
			Strategy:   sig.Strategy,
			Entry:      sig.Entry,
			Exit:       exit,
			PnL:        pnl(sig.Direction, sig.Entry, exit),
			Reason:     reason,
			Duration:   closedAt.Sub(o.OpenedAt).Seconds(),
			ClosedAt:   closedAt,
		}
		metrics.TradesClosedTotal.WithLabelValues(sig.Instrument, string(reason)).Inc()
		log.Info().Str("exit", string(reason)).Float64("price", exit).Float64("pnl", trade.PnL).Msg("order closed")
		if s.trades != nil {
			s.trades.Record(trade)
		}
		return
	}
}

// price reads the relevant side of the book; missing data is retryable.
func (s *Simulator) price(sig signal.Signal, log zerolog.Logger) (float64, bool) {
	q, err := s.prices.LastPrice(sig.Instrument)
	if err != nil {
		if !errors.Is(err, market.ErrNotFound) {
			log.Warn().Err(err).Msg("price lookup failed")
		}
		return 0, false
	}
	if sig.Direction == signal.Sell {
		return q.Bid, true
	}
	return q.Ask, true
}

func entered(sig signal.Signal, price float64) bool {
	if sig.Direction == signal.Sell {
		return price <= sig.Entry
	}
	return price >= sig.Entry
}

// tighten moves the stop toward price by offset, never loosening it.
func tighten(d signal.Direction, stop, price, offset float64) float64 {
	if d == signal.Sell {
		return math.Min(stop, price+offset)
	}
	return math.Max(stop, price-offset)
}

// checkExit tests take-profit before the stop.
func checkExit(sig signal.Signal, stop, price float64) (ExitReason, float64, bool) {
	sell := sig.Direction == signal.Sell
	if (!sell && price >= sig.TakeProfit) || (sell && price <= sig.TakeProfit) {
		return ExitTakeProfit, sig.TakeProfit, true
	}
	if (!sell && price <= stop) || (sell && price >= stop) {
		if stop != sig.StopLoss {
			return ExitTrailingStop, stop, true
		}
		return ExitStopLoss, stop, true
	}
	return "", 0, false
}

func pnl(d signal.Direction, entry, exit float64) float64 {
	if d == signal.Sell {
		return entry - exit
	}
	return exit - entry
}
