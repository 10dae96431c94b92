package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of quote ticks ingested"},
		[]string{"instrument"},
	)
	BarsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_closed_total", Help: "Bars closed per instrument"},
		[]string{"instrument"},
	)
	DroppedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stream_dropped_messages_total", Help: "Inbound stream messages dropped as malformed"},
		[]string{"reason"},
	)
	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stream_reconnects_total", Help: "Stream reconnect cycles started"},
	)
	SubscribeRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stream_subscribe_retries_total", Help: "Subscription attempts that failed and were rescheduled"},
		[]string{"instrument"},
	)
	StreamConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stream_connected", Help: "1 while the market data stream is connected"},
	)
	StrategyErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "strategy_errors_total", Help: "Strategy evaluations that failed"},
		[]string{"strategy"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals produced by strategies"},
		[]string{"instrument", "strategy", "direction"},
	)
	ActiveOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "paper_active_orders", Help: "Simulated orders not yet closed"},
	)
	TradesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paper_trades_closed_total", Help: "Simulated trades closed"},
		[]string{"instrument", "exit"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, BarsClosedTotal, DroppedMessagesTotal, ReconnectsTotal, SubscribeRetriesTotal,
		StreamConnected, StrategyErrorsTotal, SignalsTotal, ActiveOrders, TradesClosedTotal,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
