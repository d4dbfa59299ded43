package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	OutboxReasonDeadlineExceeded = "deadline_exceeded"
	OutboxReasonDBLockTimeout    = "db_lock_timeout"
	OutboxReasonDB               = "db"
	OutboxReasonPushRejected     = "push_rejected"
	OutboxReasonUnknown          = "unknown"
)

// OutboxMetrics captures notification outbox dispatcher health signals.
type OutboxMetrics struct {
	dispatchRuns     prometheus.Counter
	dispatchDuration prometheus.Observer
	dispatchErrors   *prometheus.CounterVec
	delivered        prometheus.Counter
	pruned           prometheus.Counter
	retried          prometheus.Counter
	deadLettered     prometheus.Counter
	backlog          prometheus.Gauge
}

var (
	outboxMetricsOnce sync.Once
	outboxMetrics     *OutboxMetrics
)

// Outbox returns the singleton outbox metrics registry.
func Outbox() *OutboxMetrics {
	return OutboxWithConfig(Config{})
}

// OutboxWithConfig returns the singleton outbox metrics registry using config labels.
func OutboxWithConfig(cfg Config) *OutboxMetrics {
	outboxMetricsOnce.Do(func() {
		outboxMetrics = newOutboxMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return outboxMetrics
}

// ResetOutboxMetricsForTest resets the outbox metrics singleton for tests.
func ResetOutboxMetricsForTest() {
	outboxMetricsOnce = sync.Once{}
	outboxMetrics = nil
}

func newOutboxMetrics(registerer prometheus.Registerer, cfg Config) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "upkyp"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	dispatchRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "upkyp_outbox_dispatch_runs_total",
		Help:        "Outbox dispatcher poll iterations.",
		ConstLabels: constLabels,
	})
	dispatchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "upkyp_outbox_dispatch_duration_seconds",
		Help:        "Outbox dispatch batch latency to keep notification delivery fresh.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	})
	dispatchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "upkyp_outbox_dispatch_errors_total",
		Help:        "Outbox dispatch errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "upkyp_outbox_delivered_total",
		Help:        "Notifications delivered to push endpoints.",
		ConstLabels: constLabels,
	})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "upkyp_push_subscriptions_pruned_total",
		Help:        "Push subscriptions removed after the endpoint reported them gone.",
		ConstLabels: constLabels,
	})
	retried := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "upkyp_outbox_retried_total",
		Help:        "Outbox entries rescheduled after a delivery failure.",
		ConstLabels: constLabels,
	})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "upkyp_outbox_dead_lettered_total",
		Help:        "Outbox entries abandoned after exhausting delivery attempts.",
		ConstLabels: constLabels,
	})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "upkyp_outbox_backlog",
		Help:        "Pending outbox entries awaiting dispatch.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		dispatchRuns,
		dispatchDuration,
		dispatchErrors,
		delivered,
		pruned,
		retried,
		deadLettered,
		backlog,
	)

	return &OutboxMetrics{
		dispatchRuns:     dispatchRuns,
		dispatchDuration: dispatchDuration,
		dispatchErrors:   dispatchErrors,
		delivered:        delivered,
		pruned:           pruned,
		retried:          retried,
		deadLettered:     deadLettered,
		backlog:          backlog,
	}
}

// IncDispatchRun increments the dispatcher poll counter.
func (m *OutboxMetrics) IncDispatchRun() {
	if m == nil || m.dispatchRuns == nil {
		return
	}
	m.dispatchRuns.Inc()
}

// ObserveDispatchDuration records one dispatch batch latency.
func (m *OutboxMetrics) ObserveDispatchDuration(duration time.Duration) {
	if m == nil || m.dispatchDuration == nil {
		return
	}
	m.dispatchDuration.Observe(duration.Seconds())
}

// IncDispatchError increments the dispatch error counter with classification.
func (m *OutboxMetrics) IncDispatchError(err error) {
	if m == nil || m.dispatchErrors == nil || err == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(ClassifyOutboxReason(err)).Inc()
}

// IncDelivered increments the delivered counter.
func (m *OutboxMetrics) IncDelivered() {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.Inc()
}

// IncPruned increments the pruned subscription counter.
func (m *OutboxMetrics) IncPruned() {
	if m == nil || m.pruned == nil {
		return
	}
	m.pruned.Inc()
}

// IncRetried increments the rescheduled entry counter.
func (m *OutboxMetrics) IncRetried() {
	if m == nil || m.retried == nil {
		return
	}
	m.retried.Inc()
}

// IncDeadLettered increments the abandoned entry counter.
func (m *OutboxMetrics) IncDeadLettered() {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.Inc()
}

// SetBacklog records the pending entry count observed during a poll.
func (m *OutboxMetrics) SetBacklog(pending int64) {
	if m == nil || m.backlog == nil {
		return
	}
	if pending < 0 {
		pending = 0
	}
	m.backlog.Set(float64(pending))
}

// ClassifyOutboxReason maps dispatch errors to low-cardinality reasons.
func ClassifyOutboxReason(err error) string {
	if err == nil {
		return OutboxReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutboxReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return OutboxReasonDBLockTimeout
	}
	if isDBError(err) {
		return OutboxReasonDB
	}
	return OutboxReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
