package strategy

import (
	"strings"
)

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	Breakout BreakoutParams
	EMA      EMAParams
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "breakout", "bar_breakout":
		return NewBreakout(params.Breakout)
	case "ema", "ema_cross", "ema_crossover":
		return NewEMACross(params.EMA)
	default:
		return NewBreakout(params.Breakout)
	}
}

// BuildAll builds one strategy per mode, skipping duplicates.
func BuildAll(modes []string, params Params) []Strategy {
	if len(modes) == 0 {
		modes = []string{"breakout"}
	}
	seen := make(map[string]struct{}, len(modes))
	out := make([]Strategy, 0, len(modes))
	for _, mode := range modes {
		st := Build(mode, params)
		if _, dup := seen[st.Name()]; dup {
			continue
		}
		seen[st.Name()] = struct{}{}
		out = append(out, st)
	}
	return out
}
