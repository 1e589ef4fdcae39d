package events

import (
	"context"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/platform/kafka"
)

// AvailabilityHandler reacts to availability-changed notifications, e.g. the
// waitlist matcher. Handlers must be idempotent: delivery is at-least-once.
type AvailabilityHandler interface {
	HandleAvailabilityChanged(ctx context.Context, event AvailabilityChangedEvent) error
}

// AvailabilityConsumer listens on the inventory topic and feeds availability
// changes to the handler.
type AvailabilityConsumer struct {
	consumer *kafka.Consumer
	handler  AvailabilityHandler
	logger   *zap.Logger
}

// NewAvailabilityConsumer creates a consumer for availability notifications.
func NewAvailabilityConsumer(brokers []string, groupID string, handler AvailabilityHandler, logger *zap.Logger) *AvailabilityConsumer {
	return &AvailabilityConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicInventoryEvents, logger),
		handler:  handler,
		logger:   logger,
	}
}

// Start begins consuming. It blocks until the context is cancelled.
func (c *AvailabilityConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *AvailabilityConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from inventory topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	if !strings.EqualFold(ce.Type, InventoryAvailabilityChanged) {
		return nil
	}

	var event AvailabilityChangedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse availability event data", zap.Error(err))
		return err
	}

	return c.handler.HandleAvailabilityChanged(ctx, event)
}

// Close closes the underlying consumer.
func (c *AvailabilityConsumer) Close() error {
	return c.consumer.Close()
}
