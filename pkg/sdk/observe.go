package tourassist

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// answerBuckets cover canned replies (sub-millisecond) up to slow generation with retries.
var answerBuckets = []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// sdkMetrics are the client-side counterparts of the service's assistant metrics.
type sdkMetrics struct {
	answers  *prometheus.CounterVec   // intent, branch, result
	latency  *prometheus.HistogramVec // branch
	health   *prometheus.CounterVec   // status
	handoffs prometheus.Counter
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourassist",
			Subsystem: "sdk",
			Name:      "answers_total",
			Help:      "Answers by intent, pipeline branch and result (ok, invalid).",
		}, []string{"intent", "branch", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tourassist",
			Subsystem: "sdk",
			Name:      "answer_duration_seconds",
			Help:      "Answer latency by pipeline branch.",
			Buckets:   answerBuckets,
		}, []string{"branch"}),
		health: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourassist",
			Subsystem: "sdk",
			Name:      "health_checks_total",
			Help:      "Health checks by aggregated status.",
		}, []string{"status"}),
		handoffs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tourassist",
			Subsystem: "sdk",
			Name:      "contacts_collected_total",
			Help:      "Answers that completed the contact dialogue.",
		}),
	}
	if err := registerOrReuse(reg, &m.answers); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.health); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.handoffs); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or takes over the one already registered,
// so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("tourassist: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("tourassist: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer reports answers and health checks to slog and Prometheus. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// answered records one Answer call. err is only ever a validation error.
// User text is never logged: only routing and sizes.
func (o *observer) answered(ans Answer, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if err != nil {
		if o.metrics != nil {
			o.metrics.answers.WithLabelValues("", "", "invalid").Inc()
		}
		if o.logger != nil {
			o.logger.Warn("answer rejected", "duration", dur, "error", err)
		}
		return
	}

	if o.metrics != nil {
		o.metrics.answers.WithLabelValues(ans.Intent, ans.Branch, "ok").Inc()
		o.metrics.latency.WithLabelValues(ans.Branch).Observe(dur.Seconds())
		if ans.State == "both_collected" {
			o.metrics.handoffs.Inc()
		}
	}
	if o.logger != nil {
		o.logger.Debug("answer routed",
			"conversation_id", ans.ConversationID,
			"intent", ans.Intent,
			"branch", ans.Branch,
			"state", ans.State,
			"sources", len(ans.Sources),
			"answer_chars", len([]rune(ans.Text)),
			"duration", dur,
		)
	}
}

// checked records one Health call; anything but "ok" is logged as a warning.
func (o *observer) checked(h HealthStatus) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.health.WithLabelValues(h.Status).Inc()
	}
	if o.logger == nil {
		return
	}
	if h.Status != "ok" {
		o.logger.Warn("health degraded", "status", h.Status, "checks", h.Checks)
		return
	}
	o.logger.Debug("health ok", "checks", h.Checks)
}
