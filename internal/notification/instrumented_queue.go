package notification

import (
	"context"

	"github.com/debatetab/debatetab/internal/logger"
	"github.com/debatetab/debatetab/internal/observability/metrics"
)

// instrumentedQueue records metrics and logs around another Queue.
type instrumentedQueue struct {
	Queue
	metrics *metrics.NotificationMetrics
	log     logger.Logger
}

// NewInstrumentedQueue wraps q so that every Enqueue is counted.
// A nil m disables metrics.
func NewInstrumentedQueue(q Queue, m *metrics.NotificationMetrics) Queue {
	return &instrumentedQueue{Queue: q, metrics: m, log: getLogger()}
}

func (q *instrumentedQueue) Enqueue(ctx context.Context, msg *Message) error {
	err := q.Queue.Enqueue(ctx, msg)
	if err != nil {
		q.log.Warn("failed to enqueue notification",
			logger.String("queue", q.Name()),
			logger.Error(err))
		if q.metrics != nil {
			q.metrics.RecordEnqueueError(q.Name())
		}
		return err
	}

	q.log.Info("notification queued",
		logger.String("queue", q.Name()),
		logger.String("id", msg.ID),
		logger.String("type", string(msg.Type)),
		logger.Uint("tournament", msg.Tournament),
		logger.Int("recipients", len(msg.SendTo)))
	if q.metrics != nil {
		q.metrics.RecordEnqueued(q.Name(), string(msg.Type))
		if mq, ok := q.Queue.(*MemoryQueue); ok {
			q.metrics.SetQueueDepth(mq.Len())
		}
	}
	return nil
}
