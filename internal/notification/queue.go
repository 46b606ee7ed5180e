package notification

import (
	"context"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
)

// NewQueue creates the configured queue backend. An MQTT queue is
// connected before it is returned.
func NewQueue(ctx context.Context, cfg *conf.QueueSettings) (Queue, error) {
	switch cfg.Type {
	case conf.QueueMemory, "":
		return NewMemoryQueue(cfg.BufferSize), nil
	case conf.QueueMQTT:
		q := NewMQTTQueue(&cfg.MQTT)
		if err := q.Connect(ctx); err != nil {
			return nil, err
		}
		return q, nil
	case conf.QueueWebhook:
		return NewWebhookQueue(&cfg.Webhook), nil
	default:
		return nil, errors.Newf("unsupported queue type %q", cfg.Type).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
