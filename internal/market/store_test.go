package market

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quotebot-go/internal/signal"
)

func tick(ask, bid float64, ts int64) signal.Tick {
	return signal.Tick{Instrument: "GOLD", Ask: ask, Bid: bid, Timestamp: ts}
}

func TestNormalizeTimestamp(t *testing.T) {
	require.Equal(t, 1700000000.0, NormalizeTimestamp(1700000000))
	require.Equal(t, 1700000000.5, NormalizeTimestamp(1700000000500))
}

func TestLastPriceNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.LastPrice("GOLD")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestLastPriceTracksMostRecentTick(t *testing.T) {
	store := NewStore()
	pairs := [][2]float64{{101, 100}, {102.5, 101.5}, {99, 98}, {99, 98}, {100.2, 100.1}}
	for i, p := range pairs {
		require.NoError(t, store.RecordTick(tick(p[0], p[1], int64(1000+i))))
		q, err := store.LastPrice("GOLD")
		require.NoError(t, err)
		require.Equal(t, signal.Quote{Ask: p[0], Bid: p[1]}, q)
	}
}

func TestBarClosesAtExactDuration(t *testing.T) {
	store := NewStore(WithBarDuration(10 * time.Second))
	var closed []signal.Bar
	store.OnBarClose(func(instrument string, bar signal.Bar) {
		require.Equal(t, "GOLD", instrument)
		closed = append(closed, bar)
	})

	require.NoError(t, store.RecordTick(tick(101, 99, 0)))
	require.NoError(t, store.RecordTick(tick(103, 101, 9)))
	require.Empty(t, closed)

	require.NoError(t, store.RecordTick(tick(102, 100, 10)))
	require.Len(t, closed, 1)

	bar := closed[0]
	require.Equal(t, 100.0, bar.Open)
	require.Equal(t, 103.0, bar.High)
	require.Equal(t, 99.0, bar.Low)
	require.Equal(t, 101.0, bar.Close)
	require.Equal(t, 0.0, bar.StartTime)
	require.Equal(t, 10.0, bar.EndTime)
	require.InDelta(t, 2.0, bar.AverageSpread, 1e-9)

	history := store.BarHistory("GOLD", 0)
	require.Len(t, history, 1)
	require.Equal(t, bar, history[0])
}

func TestMillisecondTimestampsAreRescaled(t *testing.T) {
	store := NewStore(WithBarDuration(10 * time.Second))
	base := int64(1_700_000_000_000)
	require.NoError(t, store.RecordTick(tick(101, 99, base)))
	require.NoError(t, store.RecordTick(tick(101, 99, base+9_999)))
	require.Empty(t, store.BarHistory("GOLD", 0))
	require.NoError(t, store.RecordTick(tick(101, 99, base+10_000)))
	require.Len(t, store.BarHistory("GOLD", 0), 1)
}

func TestOutOfOrderTickDoesNotCloseEarly(t *testing.T) {
	store := NewStore(WithBarDuration(10 * time.Second))
	require.NoError(t, store.RecordTick(tick(101, 99, 100)))
	// stale tick still moves high/low/close
	require.NoError(t, store.RecordTick(tick(110, 90, 50)))
	require.Empty(t, store.BarHistory("GOLD", 0))

	require.NoError(t, store.RecordTick(tick(101, 99, 110)))
	bars := store.BarHistory("GOLD", 0)
	require.Len(t, bars, 1)
	require.Equal(t, 110.0, bars[0].High)
	require.Equal(t, 90.0, bars[0].Low)
	require.Equal(t, 100.0, bars[0].StartTime)
}

func TestClosedBarsRespectInvariants(t *testing.T) {
	store := NewStore(WithBarDuration(5*time.Second), WithCapacity(50, 20))
	prices := []float64{100, 101.5, 99.2, 98.7, 102.3, 103.1, 101.9, 100.4, 104.2, 99.9}
	ts := int64(0)
	for round := 0; round < 10; round++ {
		for _, p := range prices {
			ts += int64(1 + (round+int(p))%3)
			// one crossed quote per round
			ask, bid := p+0.2, p-0.2
			if int(p)%7 == 0 {
				ask, bid = bid, ask
			}
			require.NoError(t, store.RecordTick(signal.Tick{Instrument: "GOLD", Ask: ask, Bid: bid, Timestamp: ts}))
		}
	}
	bars := store.BarHistory("GOLD", 0)
	require.NotEmpty(t, bars)
	require.LessOrEqual(t, len(bars), 20)
	for i, b := range bars {
		require.LessOrEqual(t, b.Low, b.Open)
		require.LessOrEqual(t, b.Low, b.Close)
		require.GreaterOrEqual(t, b.High, b.Open)
		require.GreaterOrEqual(t, b.High, b.Close)
		require.GreaterOrEqual(t, b.EndTime-b.StartTime, 5.0)
		if i > 0 {
			require.GreaterOrEqual(t, b.StartTime, bars[i-1].StartTime)
		}
	}
	require.Len(t, store.TickHistory("GOLD", 0), 50)
}

func TestBarHistoryEvictsOldest(t *testing.T) {
	store := NewStore(WithBarDuration(time.Second), WithCapacity(10, 3))
	for ts := int64(0); ts <= 5; ts++ {
		require.NoError(t, store.RecordTick(tick(float64(100+ts)+0.5, float64(100+ts)-0.5, ts)))
	}
	bars := store.BarHistory("GOLD", 0)
	require.Len(t, bars, 3)
	require.Equal(t, 2.0, bars[0].StartTime)
	require.Equal(t, 4.0, bars[2].StartTime)

	last := store.BarHistory("GOLD", 2)
	require.Len(t, last, 2)
	require.Equal(t, 3.0, last[0].StartTime)
}

func TestListenerMayReadStore(t *testing.T) {
	store := NewStore(WithBarDuration(time.Second))
	var seen int
	store.OnBarClose(func(instrument string, _ signal.Bar) {
		seen = len(store.BarHistory(instrument, 0))
		_, err := store.LastPrice(instrument)
		require.NoError(t, err)
	})
	require.NoError(t, store.RecordTick(tick(101, 99, 0)))
	require.NoError(t, store.RecordTick(tick(101, 99, 1)))
	require.Equal(t, 1, seen)
}

func TestConcurrentReadersSeeConsistentBars(t *testing.T) {
	store := NewStore(WithBarDuration(time.Second), WithCapacity(100, 50))
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, b := range store.BarHistory("GOLD", 10) {
					if b.Low > b.High {
						t.Errorf("torn bar %+v", b)
						return
					}
				}
				_, _ = store.LastPrice("GOLD")
			}
		}()
	}
	for ts := int64(0); ts < 2000; ts++ {
		p := 100 + float64(ts%17)
		require.NoError(t, store.RecordTick(tick(p+0.1, p-0.1, ts)))
	}
	close(done)
	wg.Wait()
	require.Equal(t, []string{"GOLD"}, store.Instruments())
}

func TestRecordTickRejectsEmptyInstrument(t *testing.T) {
	require.Error(t, NewStore().RecordTick(signal.Tick{Ask: 1, Bid: 1}))
}
