package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zorostang/secret-upgradable-nfts/logger"
)

const namespace = "harness"

// TxIndicators observes transaction processing.
type TxIndicators interface {
	ObserveBroadcastLatencyMs(latencyMs int64)
	ObserveConfirmationLatencyMs(latencyMs int64)
	ObserveGasUsed(gasUsed int64)
	IncrementProcessedTxsTotal(kind, state string)
}

// SuiteIndicators observes scenario runs.
type SuiteIndicators interface {
	ObserveCase(name, state string, seconds float64)
}

type PromIndicators struct {
	broadcastLatencyMs    prometheus.Summary
	confirmationLatencyMs prometheus.Summary
	gasUsed               prometheus.Histogram
	processedTxsTotal     *prometheus.CounterVec
	casesTotal            *prometheus.CounterVec
	caseDuration          *prometheus.HistogramVec
}

var (
	_ TxIndicators    = (*PromIndicators)(nil)
	_ SuiteIndicators = (*PromIndicators)(nil)
)

func NewPromIndicators(reg prometheus.Registerer) *PromIndicators {
	return &PromIndicators{
		broadcastLatencyMs: promauto.With(reg).NewSummary(
			prometheus.SummaryOpts{
				Namespace:  namespace,
				Subsystem:  "tx",
				Name:       "broadcast_latency_ms",
				Help:       "transaction broadcast latency summary in milliseconds",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
		),
		confirmationLatencyMs: promauto.With(reg).NewSummary(
			prometheus.SummaryOpts{
				Namespace:  namespace,
				Subsystem:  "tx",
				Name:       "confirmation_latency_ms",
				Help:       "total transaction confirmation latency summary in milliseconds",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
		),
		gasUsed: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "gas_used",
				Help:      "gas used by each confirmed transaction",
				Buckets:   prometheus.ExponentialBuckets(10_000, 2, 12),
			},
		),
		processedTxsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "processed_txs_total",
				Help:      "number of transactions processed by kind and state (success, error)",
			},
			[]string{"kind", "state"},
		),
		casesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "suite",
				Name:      "cases_total",
				Help:      "number of test cases run by outcome",
			},
			[]string{"state"},
		),
		caseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "suite",
				Name:      "case_duration_seconds",
				Help:      "wall clock duration of each test case",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"case"},
		),
	}
}

func (p *PromIndicators) ObserveBroadcastLatencyMs(latencyMs int64) {
	p.broadcastLatencyMs.Observe(float64(latencyMs))
}

func (p *PromIndicators) ObserveConfirmationLatencyMs(latencyMs int64) {
	p.confirmationLatencyMs.Observe(float64(latencyMs))
}

func (p *PromIndicators) ObserveGasUsed(gasUsed int64) {
	p.gasUsed.Observe(float64(gasUsed))
}

func (p *PromIndicators) IncrementProcessedTxsTotal(kind, state string) {
	p.processedTxsTotal.WithLabelValues(kind, state).Inc()
}

func (p *PromIndicators) ObserveCase(name, state string, seconds float64) {
	p.casesTotal.WithLabelValues(state).Inc()
	p.caseDuration.WithLabelValues(name).Observe(seconds)
}

// Noop discards all observations.
type Noop struct{}

func (Noop) ObserveBroadcastLatencyMs(int64) {}
func (Noop) ObserveConfirmationLatencyMs(int64) {}
func (Noop) ObserveGasUsed(int64) {}
func (Noop) IncrementProcessedTxsTotal(string, string) {}
func (Noop) ObserveCase(string, string, float64) {}

// Server serves the registry on /metrics until ctx is done.
type Server struct {
	addr   string
	logger logger.Logger
}

func NewServer(addr string, l logger.Logger) *Server {
	return &Server{addr: addr, logger: l}
}

// Start serves reg on /metrics until ctx is done. Serve and shutdown errors are sent
// on the returned channel, which is closed once the server has stopped.
func (s *Server) Start(ctx context.Context, reg prometheus.Gatherer) <-chan error {
	s.logger.Info("Starting metrics server", logger.WithField("addr", s.addr))
	errChan := make(chan error, 2)
	mux := http.NewServeMux()
	httpServer := http.Server{
		Addr:    s.addr,
		Handler: mux,
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	go func() {
		defer close(errChan)
		select {
		case err := <-serveErr:
			errChan <- fmt.Errorf("metrics server failed: %w", err)
			return
		case <-ctx.Done():
		}
		if err := httpServer.Shutdown(context.Background()); err != nil {
			errChan <- err
		}
		if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()
	return errChan
}
