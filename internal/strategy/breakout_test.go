package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sig "quotebot-go/internal/signal"
)

func flatBars(n int) []sig.Bar {
	bars := make([]sig.Bar, n)
	for i := range bars {
		bars[i] = sig.Bar{Open: 100, High: 101, Low: 99, Close: 100, AverageSpread: 0.1}
	}
	return bars
}

func TestBreakoutBuy(t *testing.T) {
	bars := append(flatBars(41), sig.Bar{Open: 100, High: 102.5, Low: 99.5, Close: 102, AverageSpread: 0.1})
	s, err := NewBreakout(BreakoutParams{}).Evaluate("GOLD", bars)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, sig.Buy, s.Direction)
	require.InDelta(t, 102.1, s.Entry, 1e-9)
	require.InDelta(t, 102.1+2.025*6, s.TakeProfit, 1e-9)
	require.InDelta(t, 99.5-2.025*1.5, s.StopLoss, 1e-9)
	require.Equal(t, "breakout", s.Strategy)
}

func TestBreakoutSell(t *testing.T) {
	bars := append(flatBars(41), sig.Bar{Open: 100, High: 100.5, Low: 97.5, Close: 98, AverageSpread: 0.1})
	s, err := NewBreakout(BreakoutParams{}).Evaluate("GOLD", bars)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, sig.Sell, s.Direction)
	require.Less(t, s.TakeProfit, s.Entry)
	require.Greater(t, s.StopLoss, s.Entry)
}

func TestBreakoutFilters(t *testing.T) {
	b := NewBreakout(BreakoutParams{})

	s, err := b.Evaluate("GOLD", flatBars(10))
	require.NoError(t, err)
	require.Nil(t, s, "not enough history")

	wide := append(flatBars(41), sig.Bar{Open: 100, High: 102.5, Low: 99.5, Close: 102, AverageSpread: 1})
	s, err = b.Evaluate("GOLD", wide)
	require.NoError(t, err)
	require.Nil(t, s, "spread too wide")

	quiet := flatBars(42)
	for i := range quiet {
		quiet[i].AverageSpread = 1
	}
	s, err = b.Evaluate("GOLD", quiet)
	require.NoError(t, err)
	require.Nil(t, s, "range too small against spread")
}

func TestBreakoutSessions(t *testing.T) {
	london, err := ParseSession("07:00-16:00")
	require.NoError(t, err)
	b := NewBreakout(BreakoutParams{Sessions: []Session{london}})
	bars := append(flatBars(41), sig.Bar{Open: 100, High: 102.5, Low: 99.5, Close: 102, AverageSpread: 0.1})

	b.now = func() time.Time { return time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC) }
	s, err := b.Evaluate("GOLD", bars)
	require.NoError(t, err)
	require.Nil(t, s)

	b.now = func() time.Time { return time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC) }
	s, err = b.Evaluate("GOLD", bars)
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = ParseSession("7am")
	require.Error(t, err)
}
