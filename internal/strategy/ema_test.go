package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	sig "quotebot-go/internal/signal"
)

func barsFromCloses(closes []float64) []sig.Bar {
	bars := make([]sig.Bar, len(closes))
	for i, c := range closes {
		bars[i] = sig.Bar{Open: c, High: c + 0.5, Low: c - 0.5, Close: c, AverageSpread: 0.05}
	}
	return bars
}

func TestEMACrossQuietOnSteadyTrend(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s, err := NewEMACross(EMAParams{}).Evaluate("US100", barsFromCloses(closes))
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestEMACrossBuysOnPullbackRecovery(t *testing.T) {
	var closes []float64
	for i := 0; i < 60; i++ {
		closes = append(closes, 100+float64(i))
	}
	last := closes[len(closes)-1]
	for i := 1; i <= 6; i++ {
		closes = append(closes, last-3*float64(i))
	}
	last = closes[len(closes)-1]
	for i := 1; i <= 10; i++ {
		closes = append(closes, last+4*float64(i))
	}

	strat := NewEMACross(EMAParams{})
	bars := barsFromCloses(closes)
	var buys int
	for n := 52; n <= len(bars); n++ {
		s, err := strat.Evaluate("US100", bars[:n])
		require.NoError(t, err)
		if s == nil {
			continue
		}
		require.Equal(t, sig.Buy, s.Direction)
		require.Greater(t, s.TakeProfit, s.Entry)
		require.Less(t, s.StopLoss, s.Entry)
		buys++
	}
	require.Equal(t, 1, buys)
}

func TestEMA(t *testing.T) {
	require.Equal(t, 0.0, ema(nil, 9))
	require.Equal(t, 5.0, ema([]float64{5, 5, 5}, 3))
	require.InDelta(t, 7.5, ema([]float64{5, 10}, 3), 1e-9)
}

func TestBuildAll(t *testing.T) {
	strategies := BuildAll([]string{"breakout", "ema_cross", "unknown", "ema"}, Params{})
	require.Len(t, strategies, 2)
	require.Equal(t, "breakout", strategies[0].Name())
	require.Equal(t, "ema_cross", strategies[1].Name())
	require.Len(t, BuildAll(nil, Params{}), 1)
}
