// Package signal standardizes payloads shared between data ingestion, bar aggregation, and strategy layers.
package signal

import (
	"fmt"
	"strings"
)

// Tick models a single best-bid/best-ask update for one instrument.
type Tick struct {
	Instrument string
	Ask        float64
	Bid        float64
	Timestamp  int64 // seconds or milliseconds since epoch, as sent by the venue
}

// Mid returns the midpoint of the quote.
func (t Tick) Mid() float64 { return (t.Ask + t.Bid) / 2 }

// Spread returns ask minus bid.
func (t Tick) Spread() float64 { return t.Ask - t.Bid }

// Quote is the last known top-of-book pair for an instrument.
type Quote struct {
	Ask float64 `json:"ask"`
	Bid float64 `json:"bid"`
}

// Bar is an OHLC aggregate over a tick-driven window. Times are unix seconds.
type Bar struct {
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	AverageSpread float64 `json:"avg_spread"`
}

// Range returns high minus low.
func (b Bar) Range() float64 { return b.High - b.Low }

// Direction is the side of a trade recommendation.
type Direction string

const (
	// Buy opens a long position.
	Buy Direction = "BUY"
	// Sell opens a short position.
	Sell Direction = "SELL"
)

// ParseDirection accepts BUY/SELL in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Signal expresses a directional trade recommendation produced by a strategy implementation.
type Signal struct {
	Instrument string    `json:"instrument"`
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	Strategy   string    `json:"strategy"`
}
