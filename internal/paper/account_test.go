package paper

import (
	"math"
	"testing"
)

func TestAccountAggregatesTrades(t *testing.T) {
	account := NewAccount()
	account.Record(sampleTrade("GOLD", 10))
	account.Record(sampleTrade("GOLD", -2))
	account.Record(sampleTrade("EURUSD", 0))

	snap := account.Snapshot()
	if snap.Trades != 3 || snap.Wins != 1 || snap.Losses != 2 {
		t.Fatalf("unexpected counts %+v", snap)
	}
	if math.Abs(snap.RealizedPnL-8) > 1e-9 || math.Abs(account.RealizedPnL()-8) > 1e-9 {
		t.Fatalf("expected realized pnl 8, got %.4f", snap.RealizedPnL)
	}
	gold := snap.Instruments["GOLD"]
	if gold.Trades != 2 || math.Abs(gold.RealizedPnL-8) > 1e-9 {
		t.Fatalf("unexpected GOLD stats %+v", gold)
	}
	if math.Abs(snap.WinRate()-1.0/3.0) > 1e-9 {
		t.Fatalf("unexpected win rate %.4f", snap.WinRate())
	}
	if got := account.Instruments(); len(got) != 2 || got[0] != "EURUSD" {
		t.Fatalf("unexpected instruments %v", got)
	}
}

func TestEmptyAccountSnapshot(t *testing.T) {
	snap := NewAccount().Snapshot()
	if snap.Trades != 0 || snap.WinRate() != 0 || len(snap.Instruments) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
