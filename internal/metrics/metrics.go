package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the tradelog server.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec   // labels: route, status
	RequestDuration *prometheus.HistogramVec // labels: route

	BacktestsTotal   *prometheus.CounterVec // labels: result=ok|error
	BacktestDuration prometheus.Histogram
	TradesMatched    prometheus.Counter
	CandlesFetched   prometheus.Counter

	ProviderErrors *prometheus.CounterVec // labels: provider
}

// New registers every collector on a fresh registry. Each Metrics owns its
// registry so several servers can live in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelog_http_requests_total",
			Help: "HTTP requests served, by route and status code",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradelog_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		BacktestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelog_backtests_total",
			Help: "Backtest runs by result",
		}, []string{"result"}),
		BacktestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradelog_backtest_duration_seconds",
			Help:    "Backtest run latency including candle retrieval",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TradesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradelog_trades_matched_total",
			Help: "Trades produced by the matcher",
		}),
		CandlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradelog_candles_fetched_total",
			Help: "Candles returned by candle providers",
		}),

		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelog_provider_errors_total",
			Help: "Candle or signal provider failures by provider",
		}, []string{"provider"}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.BacktestsTotal,
		m.BacktestDuration,
		m.TradesMatched,
		m.CandlesFetched,
		m.ProviderErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveBacktest records one backtest run. trades and candles are ignored
// when err is set.
func (m *Metrics) ObserveBacktest(d time.Duration, candles, trades int, err error) {
	m.BacktestDuration.Observe(d.Seconds())
	if err != nil {
		m.BacktestsTotal.WithLabelValues("error").Inc()
		return
	}
	m.BacktestsTotal.WithLabelValues("ok").Inc()
	m.CandlesFetched.Add(float64(candles))
	m.TradesMatched.Add(float64(trades))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
