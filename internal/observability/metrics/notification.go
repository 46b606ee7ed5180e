// Package metrics provides the Prometheus collectors for debatetab components.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/debatetab/debatetab/internal/logger"
)

// Processing outcomes recorded by RecordProcessed.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// NotificationMetrics contains Prometheus metrics for the email queue and worker.
type NotificationMetrics struct {
	MessagesEnqueued  *prometheus.CounterVec
	EnqueueErrors     *prometheus.CounterVec
	MessagesProcessed *prometheus.CounterVec
	EmailsSent        prometheus.Counter
	EmailsFailed      prometheus.Counter
	QueueDepth        prometheus.Gauge
	DeliveryDuration  prometheus.Histogram
	registry          *prometheus.Registry
}

// NewNotificationMetrics creates NotificationMetrics and registers them with registry.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.MessagesEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_messages_enqueued_total",
		Help: "Total number of notification messages handed to a queue",
	}, []string{"queue", "type"})

	m.EnqueueErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_enqueue_errors_total",
		Help: "Total number of notification messages a queue rejected",
	}, []string{"queue"})

	m.MessagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_messages_processed_total",
		Help: "Total number of notification messages processed by the worker",
	}, []string{"type", "status"})

	m.EmailsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_emails_sent_total",
		Help: "Total number of emails delivered to the mail transport",
	})

	m.EmailsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_emails_failed_total",
		Help: "Total number of emails the mail transport rejected",
	})

	m.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notification_queue_depth",
		Help: "Number of messages waiting in the in-process queue",
	})

	m.DeliveryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notification_delivery_duration_seconds",
		Help:    "Time taken to deliver all emails of one message",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
}

// RecordEnqueued counts a message accepted by queue.
func (m *NotificationMetrics) RecordEnqueued(queue, msgType string) {
	m.MessagesEnqueued.WithLabelValues(queue, msgType).Inc()
}

// RecordEnqueueError counts a message the queue refused.
func (m *NotificationMetrics) RecordEnqueueError(queue string) {
	m.EnqueueErrors.WithLabelValues(queue).Inc()
}

// RecordProcessed counts a processed message and its delivery time.
func (m *NotificationMetrics) RecordProcessed(msgType, status string, duration time.Duration) {
	m.MessagesProcessed.WithLabelValues(msgType, status).Inc()
	m.DeliveryDuration.Observe(duration.Seconds())
}

// RecordEmail counts a single email delivery attempt.
func (m *NotificationMetrics) RecordEmail(success bool) {
	if success {
		m.EmailsSent.Inc()
		return
	}
	m.EmailsFailed.Inc()
}

// SetQueueDepth sets the number of waiting messages.
func (m *NotificationMetrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// GetQueueDepth returns the last recorded queue depth.
func (m *NotificationMetrics) GetQueueDepth() float64 {
	metric := &dto.Metric{}
	if err := m.QueueDepth.Write(metric); err != nil {
		log.Warn("failed to read queue depth metric", logger.Error(err))
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.MessagesEnqueued.Collect(ch)
	m.EnqueueErrors.Collect(ch)
	m.MessagesProcessed.Collect(ch)
	ch <- m.EmailsSent
	ch <- m.EmailsFailed
	ch <- m.QueueDepth
	ch <- m.DeliveryDuration
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.MessagesEnqueued.Describe(ch)
	m.EnqueueErrors.Describe(ch)
	m.MessagesProcessed.Describe(ch)
	ch <- m.EmailsSent.Desc()
	ch <- m.EmailsFailed.Desc()
	ch <- m.QueueDepth.Desc()
	ch <- m.DeliveryDuration.Desc()
}
