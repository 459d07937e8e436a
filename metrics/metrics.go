// Package metrics exposes the execution gate's counters and gauges to
// Prometheus. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "riskgate"

// Tick outcomes.
const (
	TickTraded   = "traded"
	TickIdle     = "idle"
	TickSkipped  = "skipped"
	TickRejected = "rejected"
	TickHalted   = "halted"
	TickStopped  = "stopped"
)

// Order results.
const (
	OrderFilled   = "filled"
	OrderRejected = "rejected"
	OrderFailed   = "failed"
)

type Metrics struct {
	reg *prometheus.Registry

	Ticks        *prometheus.CounterVec
	Orders       *prometheus.CounterVec
	OrderRetries prometheus.Counter
	OrderLatency prometheus.Histogram
	Halts        *prometheus.CounterVec

	Equity      prometheus.Gauge
	RealizedPnL prometheus.Gauge
	Drawdown    prometheus.Gauge
	Position    prometheus.Gauge
	Halted      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks processed by outcome.",
		}, []string{"outcome"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders placed by result and reason.",
		}, []string{"result", "reason"}),
		OrderRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_retries_total",
			Help:      "Order placement attempts retried after a transient error.",
		}),
		OrderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_latency_seconds",
			Help:      "Order placement latency in seconds, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "halts_total",
			Help:      "Session halts by code.",
		}, []string{"code"}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "equity",
			Help:      "Session equity at the last mark.",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_pnl",
			Help:      "Realized P&L of the current session.",
		}),
		Drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drawdown",
			Help:      "Peak equity minus current equity.",
		}),
		Position: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position",
			Help:      "Signed open position.",
		}),
		Halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "halted",
			Help:      "1 while the session is halted.",
		}),
	}
	reg.MustRegister(
		m.Ticks, m.Orders, m.OrderRetries, m.OrderLatency, m.Halts,
		m.Equity, m.RealizedPnL, m.Drawdown, m.Position, m.Halted,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Tick(outcome string) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Order(result, reason string, took time.Duration) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(result, reason).Inc()
	m.OrderLatency.Observe(took.Seconds())
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.OrderRetries.Inc()
}

func (m *Metrics) Halt(code string) {
	if m == nil {
		return
	}
	m.Halts.WithLabelValues(code).Inc()
	m.Halted.Set(1)
}

// Ledger publishes a snapshot of the session totals.
func (m *Metrics) Ledger(equity, realized, drawdown decimal.Decimal, position int64, halted bool) {
	if m == nil {
		return
	}
	m.Equity.Set(equity.InexactFloat64())
	m.RealizedPnL.Set(realized.InexactFloat64())
	m.Drawdown.Set(drawdown.InexactFloat64())
	m.Position.Set(float64(position))
	if halted {
		m.Halted.Set(1)
	} else {
		m.Halted.Set(0)
	}
}
