package strategy

import (
	"fmt"
	"strings"
	"time"

	sig "quotebot-go/internal/signal"
)

// Session is a daily UTC trading window expressed as offsets from midnight.
type Session struct {
	Start time.Duration
	End   time.Duration
}

// ParseSession reads "HH:MM-HH:MM".
func ParseSession(s string) (Session, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Session{}, fmt.Errorf("session %q: want HH:MM-HH:MM", s)
	}
	start, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return Session{}, fmt.Errorf("session %q: %w", s, err)
	}
	end, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return Session{}, fmt.Errorf("session %q: %w", s, err)
	}
	return Session{Start: sinceMidnight(start), End: sinceMidnight(end)}, nil
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

func (s Session) contains(t time.Time) bool {
	t = t.UTC()
	offset := sinceMidnight(t) + time.Duration(t.Second())*time.Second
	return offset >= s.Start && offset <= s.End
}

// Breakout emits a signal when the latest bar closes beyond the previous bar's range,
// skipping quiet markets and bars with abnormally wide spreads.
type Breakout struct {
	lookback       int
	tpMult         float64
	slMult         float64
	minRangeSpread float64
	maxSpreadRatio float64
	sessions       []Session
	now            func() time.Time
}

// BreakoutParams tunes the breakout strategy.
type BreakoutParams struct {
	Lookback       int
	TPMult         float64
	SLMult         float64
	MinRangeSpread float64
	MaxSpreadRatio float64
	Sessions       []Session
}

// NewBreakout builds a breakout strategy, filling zero parameters with defaults.
func NewBreakout(p BreakoutParams) *Breakout {
	if p.Lookback <= 0 {
		p.Lookback = 40
	}
	if p.TPMult <= 0 {
		p.TPMult = 6
	}
	if p.SLMult <= 0 {
		p.SLMult = 1.5
	}
	if p.MinRangeSpread <= 0 {
		p.MinRangeSpread = 3
	}
	if p.MaxSpreadRatio <= 0 {
		p.MaxSpreadRatio = 1.5
	}
	return &Breakout{
		lookback:       p.Lookback,
		tpMult:         p.TPMult,
		slMult:         p.SLMult,
		minRangeSpread: p.MinRangeSpread,
		maxSpreadRatio: p.MaxSpreadRatio,
		sessions:       append([]Session(nil), p.Sessions...),
		now:            time.Now,
	}
}

// Name returns the configured identifier for logging.
func (b *Breakout) Name() string { return "breakout" }

// Evaluate checks the most recent closed bar against the one before it.
func (b *Breakout) Evaluate(instrument string, bars []sig.Bar) (*sig.Signal, error) {
	if !b.inSession() {
		return nil, nil
	}
	if len(bars) < b.lookback+2 {
		return nil, nil
	}
	recent := bars[len(bars)-b.lookback:]
	current := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	avgRange, avgSpread := averageRangeAndSpread(recent)
	if avgRange < avgSpread*b.minRangeSpread {
		return nil, nil
	}
	if current.AverageSpread > avgSpread*b.maxSpreadRatio {
		return nil, nil
	}

	switch {
	case current.Close > prev.High:
		entry := current.Close + avgSpread
		return &sig.Signal{
			Instrument: instrument,
			Direction:  sig.Buy,
			Entry:      entry,
			TakeProfit: entry + avgRange*b.tpMult,
			StopLoss:   current.Low - avgRange*b.slMult,
			Strategy:   b.Name(),
		}, nil
	case current.Close < prev.Low:
		entry := current.Close - avgSpread
		return &sig.Signal{
			Instrument: instrument,
			Direction:  sig.Sell,
			Entry:      entry,
			TakeProfit: entry - avgRange*b.tpMult,
			StopLoss:   current.High + avgRange*b.slMult,
			Strategy:   b.Name(),
		}, nil
	}
	return nil, nil
}

func (b *Breakout) inSession() bool {
	if len(b.sessions) == 0 {
		return true
	}
	now := b.now()
	for _, s := range b.sessions {
		if s.contains(now) {
			return true
		}
	}
	return false
}
