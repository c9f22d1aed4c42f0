package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasterDuration *prometheus.HistogramVec
	forecasterFailures *prometheus.CounterVec
	degradations       *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	latency            *prometheus.HistogramVec
	backtest           *prometheus.GaugeVec
}

// New creates a recorder registered on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		forecasterDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_forecaster_duration_seconds",
				Help:    "Duration of a single forecaster fit and forecast",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"component"},
		),
		forecasterFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_forecaster_failures_total",
				Help: "Total number of failed forecaster runs",
			},
			[]string{"component"},
		),
		degradations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_degraded_ensemble_total",
				Help: "Components dropped from an ensemble run",
			},
			[]string{"component"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backtest: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_backtest_score",
				Help: "Latest backtest metrics per symbol",
			},
			[]string{"symbol", "metric"},
		),
	}
}

// ObserveForecaster records one forecaster call.
func (r *Recorder) ObserveForecaster(component string, seconds float64, err error) {
	r.forecasterDuration.WithLabelValues(component).Observe(seconds)
	if err != nil {
		r.forecasterFailures.WithLabelValues(component).Inc()
	}
}

func (r *Recorder) RecordDegradation(component string) {
	r.degradations.WithLabelValues(component).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordBacktest(symbol string, res *models.BacktestResult) {
	r.backtest.WithLabelValues(symbol, "rmse").Set(res.RMSE)
	r.backtest.WithLabelValues(symbol, "mape").Set(res.MAPE)
	r.backtest.WithLabelValues(symbol, "directional_accuracy").Set(res.DirectionalAccuracy)
	r.backtest.WithLabelValues(symbol, "sharpe").Set(res.Sharpe)
}

var _ domrepo.Metrics = (*Recorder)(nil)

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveForecaster(string, float64, error)      {}
func (Nop) RecordDegradation(string)                      {}
func (Nop) RecordLatency(string, float64)                 {}
func (Nop) RecordBacktest(string, *models.BacktestResult) {}
func (Nop) RecordError(string)                            {}

var _ domrepo.Metrics = Nop{}
