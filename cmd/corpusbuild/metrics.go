// Prometheus метрики corpusbuild: прогресс эмбеддинга и latency батчей.
package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// buildMetrics: все Prometheus метрики сборщика.
type buildMetrics struct {
	embedded      prometheus.Counter
	skipped       prometheus.Counter
	tokens        prometheus.Counter
	batches       *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

func newBuildMetrics(reg prometheus.Registerer) *buildMetrics {
	m := &buildMetrics{
		embedded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpusbuild",
			Name:      "tours_embedded_total",
			Help:      "Tours embedded",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpusbuild",
			Name:      "tours_skipped_total",
			Help:      "Tours skipped for a missing id or title",
		}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpusbuild",
			Name:      "embedding_tokens_total",
			Help:      "Embedding tokens consumed",
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corpusbuild",
			Name:      "batches_total",
			Help:      "Embedding batches by result",
		}, []string{"result"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "corpusbuild",
			Name:      "batch_duration_seconds",
			Help:      "Embedding batch duration",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(m.embedded, m.skipped, m.tokens, m.batches, m.batchDuration)
	return m
}

// serveMetrics запускает HTTP сервер для Prometheus scrape.
func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server started", zap.String("addr", ":"+port+"/metrics"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return srv
}
