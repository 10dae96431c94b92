// Package market holds the shared in-memory market state: last quotes, bounded tick history,
// the open bar per instrument, and bounded closed-bar history.
package market

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"quotebot-go/internal/metrics"
	"quotebot-go/internal/signal"
)

// ErrNotFound is returned when no tick has been recorded for an instrument yet.
// Callers polling for prices should treat it as "not yet available" and retry.
var ErrNotFound = errors.New("market: no price for instrument")

const (
	// DefaultBarDuration matches the venue bar cadence used in production.
	DefaultBarDuration = 11 * time.Second
	// DefaultTickCapacity bounds tick history per instrument.
	DefaultTickCapacity = 1000
	// DefaultBarCapacity bounds closed-bar history per instrument.
	DefaultBarCapacity = 500
)

// BarListener is invoked synchronously on the tick-ingestion path whenever a bar closes.
type BarListener func(instrument string, bar signal.Bar)

type instrumentState struct {
	mu    sync.RWMutex
	last  signal.Quote
	ticks *Ring[signal.Tick]
	bars  *Ring[signal.Bar]
	open  *barBuilder
}

// Store is the process-wide market state table. A single writer (the stream receive loop)
// records ticks; any number of readers may query prices and histories concurrently.
type Store struct {
	mu           sync.RWMutex
	instruments  map[string]*instrumentState
	barDuration  float64
	tickCapacity int
	barCapacity  int
	listener     BarListener
}

// Option configures Store construction parameters.
type Option func(*Store)

// WithBarDuration overrides the bar window.
func WithBarDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.barDuration = d.Seconds()
		}
	}
}

// WithCapacity overrides tick and bar history bounds. Non-positive values keep the defaults.
func WithCapacity(ticks, bars int) Option {
	return func(s *Store) {
		if ticks > 0 {
			s.tickCapacity = ticks
		}
		if bars > 0 {
			s.barCapacity = bars
		}
	}
}

// NewStore constructs an empty store. It owns no goroutines and needs no teardown.
func NewStore(opts ...Option) *Store {
	s := &Store{
		instruments:  make(map[string]*instrumentState),
		barDuration:  DefaultBarDuration.Seconds(),
		tickCapacity: DefaultTickCapacity,
		barCapacity:  DefaultBarCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnBarClose registers the listener notified when a bar closes. It must be set before ticks flow.
func (s *Store) OnBarClose(fn BarListener) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// BarDuration returns the configured bar window.
func (s *Store) BarDuration() time.Duration {
	return time.Duration(s.barDuration * float64(time.Second))
}

func (s *Store) state(instrument string) *instrumentState {
	s.mu.RLock()
	st := s.instruments[instrument]
	s.mu.RUnlock()
	return st
}

func (s *Store) stateOrCreate(instrument string) *instrumentState {
	if st := s.state(instrument); st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.instruments[instrument]
	if st == nil {
		st = &instrumentState{
			ticks: NewRing[signal.Tick](s.tickCapacity),
			bars:  NewRing[signal.Bar](s.barCapacity),
		}
		s.instruments[instrument] = st
	}
	return st
}

// RecordTick stores the quote, appends it to tick history, and advances the open bar.
// When the tick closes a bar, the listener runs before RecordTick returns.
func (s *Store) RecordTick(tk signal.Tick) error {
	if tk.Instrument == "" {
		return fmt.Errorf("record tick: empty instrument")
	}
	st := s.stateOrCreate(tk.Instrument)

	st.mu.Lock()
	st.last = signal.Quote{Ask: tk.Ask, Bid: tk.Bid}
	bar, closed := st.aggregate(tk, s.barDuration)
	st.ticks.Push(tk)
	st.mu.Unlock()

	if !closed {
		return nil
	}
	metrics.BarsClosedTotal.WithLabelValues(tk.Instrument).Inc()

	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()
	if listener != nil {
		listener(tk.Instrument, bar)
	}
	return nil
}

// LastPrice returns the most recent quote or ErrNotFound.
func (s *Store) LastPrice(instrument string) (signal.Quote, error) {
	st := s.state(instrument)
	if st == nil {
		return signal.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, instrument)
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.last, nil
}

// BarHistory returns a copy of the most recent n closed bars, oldest first.
// n <= 0 returns the full history.
func (s *Store) BarHistory(instrument string, n int) []signal.Bar {
	st := s.state(instrument)
	if st == nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.bars.Last(n)
}

// TickHistory returns a copy of the most recent n ticks, oldest first.
func (s *Store) TickHistory(instrument string, n int) []signal.Tick {
	st := s.state(instrument)
	if st == nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.ticks.Last(n)
}

// Instruments lists every instrument that has received at least one tick, sorted.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.instruments))
	for name := range s.instruments {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
