// Package strategy evaluates pluggable signal generators whenever a bar closes.
package strategy

import (
	"fmt"

	sig "quotebot-go/internal/signal"
)

// Strategy defines behaviour shared by strategy implementations used by the bot.
// Evaluate receives its own copy of the instrument's closed bars, oldest first,
// and returns at most one signal.
type Strategy interface {
	Name() string
	Evaluate(instrument string, bars []sig.Bar) (*sig.Signal, error)
}

// Func adapts a plain function to the Strategy interface.
type Func func(instrument string, bars []sig.Bar) (*sig.Signal, error)

type funcStrategy struct {
	name string
	fn   Func
}

// Named wraps fn as a Strategy reporting name.
func Named(name string, fn Func) Strategy { return funcStrategy{name: name, fn: fn} }

func (f funcStrategy) Name() string { return f.name }

func (f funcStrategy) Evaluate(instrument string, bars []sig.Bar) (*sig.Signal, error) {
	return f.fn(instrument, bars)
}

// StrategyError wraps a failure raised by a single strategy evaluation.
type StrategyError struct {
	Strategy   string
	Instrument string
	Err        error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s on %s: %v", e.Strategy, e.Instrument, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

func averageRangeAndSpread(bars []sig.Bar) (avgRange, avgSpread float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	for _, b := range bars {
		avgRange += b.Range()
		avgSpread += b.AverageSpread
	}
	n := float64(len(bars))
	return avgRange / n, avgSpread / n
}
