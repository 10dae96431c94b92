package strategy

import sig "quotebot-go/internal/signal"

// EMACross signals when the fast EMA crosses the slow EMA in the direction of the trend EMA.
type EMACross struct {
	fast   int
	slow   int
	trend  int
	tpMult float64
	slMult float64
}

// EMAParams tunes the crossover strategy.
type EMAParams struct {
	Fast   int
	Slow   int
	Trend  int
	TPMult float64
	SLMult float64
}

// NewEMACross builds the crossover strategy, filling zero parameters with defaults.
func NewEMACross(p EMAParams) *EMACross {
	if p.Fast <= 0 {
		p.Fast = 9
	}
	if p.Slow <= p.Fast {
		p.Slow = 21
	}
	if p.Trend <= p.Slow {
		p.Trend = 50
	}
	if p.TPMult <= 0 {
		p.TPMult = 3
	}
	if p.SLMult <= 0 {
		p.SLMult = 1.5
	}
	return &EMACross{fast: p.Fast, slow: p.Slow, trend: p.Trend, tpMult: p.TPMult, slMult: p.SLMult}
}

// Name returns the configured identifier for logging.
func (e *EMACross) Name() string { return "ema_cross" }

// Evaluate fires only on the bar where the crossover happens.
func (e *EMACross) Evaluate(instrument string, bars []sig.Bar) (*sig.Signal, error) {
	if len(bars) < e.trend+2 {
		return nil, nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	prevCloses := closes[:len(closes)-1]

	fast, slow, trend := ema(closes, e.fast), ema(closes, e.slow), ema(closes, e.trend)
	prevFast, prevSlow := ema(prevCloses, e.fast), ema(prevCloses, e.slow)

	avgRange, _ := averageRangeAndSpread(bars[len(bars)-e.slow:])
	entry := closes[len(closes)-1]

	switch {
	case fast > slow && prevFast <= prevSlow && slow > trend:
		return &sig.Signal{
			Instrument: instrument,
			Direction:  sig.Buy,
			Entry:      entry,
			TakeProfit: entry + avgRange*e.tpMult,
			StopLoss:   entry - avgRange*e.slMult,
			Strategy:   e.Name(),
		}, nil
	case fast < slow && prevFast >= prevSlow && slow < trend:
		return &sig.Signal{
			Instrument: instrument,
			Direction:  sig.Sell,
			Entry:      entry,
			TakeProfit: entry - avgRange*e.tpMult,
			StopLoss:   entry + avgRange*e.slMult,
			Strategy:   e.Name(),
		}, nil
	}
	return nil, nil
}

// ema seeds with the first value and smooths across the whole series.
func ema(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	k := 2 / float64(period+1)
	out := values[0]
	for _, v := range values[1:] {
		out = v*k + out*(1-k)
	}
	return out
}
