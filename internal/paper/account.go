package paper

import (
	"sort"
	"sync"
)

// InstrumentStats summarises closed trades for one instrument.
type InstrumentStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// Snapshot is a copy of the account totals.
type Snapshot struct {
	Trades      int                        `json:"trades"`
	Wins        int                        `json:"wins"`
	Losses      int                        `json:"losses"`
	RealizedPnL float64                    `json:"realized_pnl"`
	Instruments map[string]InstrumentStats `json:"instruments"`
}

// WinRate returns the fraction of winning trades, or zero before the first close.
func (s Snapshot) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// Account aggregates closed paper trades into realized PnL and win/loss counts.
// Trades are independent; there is no position or margin accounting.
type Account struct {
	mu          sync.Mutex
	realizedPnL float64
	stats       map[string]InstrumentStats
}

// NewAccount returns an empty account.
func NewAccount() *Account {
	return &Account{stats: make(map[string]InstrumentStats)}
}

// Record folds a closed trade into the totals. A zero PnL counts as a loss.
func (a *Account) Record(trade ClosedTrade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.stats[trade.Instrument]
	st.Trades++
	if trade.PnL > 0 {
		st.Wins++
	} else {
		st.Losses++
	}
	st.RealizedPnL += trade.PnL
	a.stats[trade.Instrument] = st
	a.realizedPnL += trade.PnL
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// Instruments lists instruments with at least one closed trade.
func (a *Account) Instruments() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.stats))
	for inst := range a.stats {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a thread-safe copy of the account state.
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		RealizedPnL: a.realizedPnL,
		Instruments: make(map[string]InstrumentStats, len(a.stats)),
	}
	for inst, st := range a.stats {
		snap.Instruments[inst] = st
		snap.Trades += st.Trades
		snap.Wins += st.Wins
		snap.Losses += st.Losses
	}
	return snap
}
