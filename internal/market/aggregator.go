package market

import (
	"math"

	"quotebot-go/internal/signal"
)

// millisecondThreshold separates millisecond epoch values from second epoch values.
const millisecondThreshold = 1e12

// NormalizeTimestamp converts a venue timestamp to fractional unix seconds,
// rescaling values that are clearly in milliseconds.
func NormalizeTimestamp(ts int64) float64 {
	if float64(ts) > millisecondThreshold {
		return float64(ts) / 1000.0
	}
	return float64(ts)
}

// barBuilder accumulates ticks into the open bar of one instrument.
// High follows the ask side, low follows the bid side, open/close use the mid.
type barBuilder struct {
	open      float64
	high      float64
	low       float64
	close     float64
	startTime float64
	spreadSum float64
	ticks     int
}

func newBarBuilder(tk signal.Tick, ts float64) *barBuilder {
	mid := tk.Mid()
	return &barBuilder{
		open:      mid,
		high:      math.Max(tk.Ask, mid),
		low:       math.Min(tk.Bid, mid),
		close:     mid,
		startTime: ts,
		spreadSum: tk.Spread(),
		ticks:     1,
	}
}

func (b *barBuilder) update(tk signal.Tick) {
	mid := tk.Mid()
	// crossed quotes still keep low <= close <= high
	b.high = math.Max(b.high, math.Max(tk.Ask, mid))
	b.low = math.Min(b.low, math.Min(tk.Bid, mid))
	b.close = mid
	b.spreadSum += tk.Spread()
	b.ticks++
}

// due reports whether the bar has covered at least duration seconds.
// A tick stamped before startTime never closes the bar early.
func (b *barBuilder) due(ts, duration float64) bool {
	return ts-b.startTime >= duration
}

func (b *barBuilder) finish(ts float64) signal.Bar {
	return signal.Bar{
		Open:          b.open,
		High:          b.high,
		Low:           b.low,
		Close:         b.close,
		StartTime:     b.startTime,
		EndTime:       ts,
		AverageSpread: b.spreadSum / float64(b.ticks),
	}
}

// aggregate folds tk into the open bar. It returns the closed bar and true when
// the tick completes the window; the open bar is then replaced with one seeded by tk.
func (s *instrumentState) aggregate(tk signal.Tick, duration float64) (signal.Bar, bool) {
	ts := NormalizeTimestamp(tk.Timestamp)
	if s.open == nil {
		s.open = newBarBuilder(tk, ts)
		return signal.Bar{}, false
	}
	s.open.update(tk)
	if !s.open.due(ts, duration) {
		return signal.Bar{}, false
	}
	bar := s.open.finish(ts)
	s.bars.Push(bar)
	s.open = newBarBuilder(tk, ts)
	return bar, true
}
