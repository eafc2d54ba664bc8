package service

import (
	"context"
	"strconv"
	"time"

	"github.com/Skotchmaster/inventory_api/internal/es"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/mykafka"
)

const sideEffectTimeout = 5 * time.Second

type ProductIndexer interface {
	IndexProduct(ctx context.Context, doc es.ProductDocument) error
	DeleteProduct(ctx context.Context, id uint) error
}

// publish sends an event after a successful commit. Failures are logged only.
func publish(ctx context.Context, p mykafka.Publisher, topic string, id uint, typ string, payload any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, strconv.FormatUint(uint64(id), 10), mykafka.NewEvent(typ, payload)); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "event", typ, "error", err)
	}
}
