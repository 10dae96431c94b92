package paper

import "sync"

// Ledger stores closed trades in memory for quick inspection.
type Ledger struct {
	mu     sync.Mutex
	trades []ClosedTrade
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{trades: make([]ClosedTrade, 0, capacity)}
}

// Record appends a trade to the ledger.
func (l *Ledger) Record(trade ClosedTrade) {
	l.mu.Lock()
	l.trades = append(l.trades, trade)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (l *Ledger) Snapshot() []ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ClosedTrade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Reset clears all stored trades.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.trades = l.trades[:0]
	l.mu.Unlock()
}

// MultiLog fans a closed trade out to several sinks in order.
type MultiLog []TradeLog

// Record forwards trade to every non-nil sink.
func (m MultiLog) Record(trade ClosedTrade) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(trade)
		}
	}
}
