// Package metrics はパイプラインとプロバイダ呼び出しのPrometheusメトリクスを提供する
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/pipeline"
)

// LLMBuckets はモデル呼び出しのレイテンシ用バケット（10ms〜120s）
var LLMBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics はプロセスごとのレジストリとコレクタを保持する
type Metrics struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	retrievals       prometheus.Counter
}

// New はコレクタを登録した Metrics を作成する
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minirag_provider_requests_total",
				Help: "Provider requests",
			},
			[]string{"provider", "model", "op", "status"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minirag_provider_latency_seconds",
				Help:    "Provider latency",
				Buckets: LLMBuckets,
			},
			[]string{"provider", "model", "op"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minirag_pipeline_transitions_total",
				Help: "Pipeline state transitions",
			},
			[]string{"state"},
		),
		retrievals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minirag_retrievals_total",
				Help: "Nearest-neighbour queries",
			},
		),
	}

	m.registry.MustRegister(
		m.providerRequests,
		m.providerLatency,
		m.transitions,
		m.retrievals,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry はメトリクスのレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用のハンドラを返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTransition は pipeline.WithStateObserver に渡す
func (m *Metrics) ObserveTransition(from, to pipeline.State) {
	m.transitions.WithLabelValues(to.String()).Inc()
	if to == pipeline.StateRetrieve {
		m.retrievals.Inc()
	}
}

func (m *Metrics) observe(provider, model, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	m.providerRequests.WithLabelValues(provider, model, op, status).Inc()
	m.providerLatency.WithLabelValues(provider, model, op).Observe(time.Since(start).Seconds())
}

// errorStatus はエラー分類をラベル値にする
func errorStatus(err error) string {
	switch {
	case errors.Is(err, llm.ErrAuth):
		return "auth"
	case errors.Is(err, llm.ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, llm.ErrConnection):
		return "connection"
	case errors.Is(err, llm.ErrModelNotFound):
		return "model_not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Serve は addr で /metrics を公開し、ctx が終わるまでブロックする
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
