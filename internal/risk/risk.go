// Package risk holds guard-rails applied before signals leave the process.
package risk

// Limits caps the notional of a single outbound trade notification. Zero disables the cap.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether a trade of the given notional may be forwarded.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}
