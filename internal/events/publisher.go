package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/platform/kafka"
)

// Publisher ships the engine's events to Kafka. Availability and activity
// publishing is fire-and-forget: failures are logged, never propagated, so a
// broker outage cannot fail a booking.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates a Publisher on top of the shared Kafka producer.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// NotifyAvailability publishes an availability-changed notification.
func (p *Publisher) NotifyAvailability(ctx context.Context, roomType room.Type, roomNumber string, availableFrom time.Time) {
	event := AvailabilityChangedEvent{
		RoomType:      roomType,
		RoomNumber:    roomNumber,
		AvailableFrom: availableFrom,
		OccurredAt:    time.Now().UTC(),
	}
	p.publish(ctx, TopicInventoryEvents, InventoryAvailabilityChanged, event)
}

// PublishLifecycle publishes a reservation status transition event.
func (p *Publisher) PublishLifecycle(ctx context.Context, eventType string, res *reservation.Reservation) {
	event := ReservationLifecycleEvent{
		ReservationID:    res.ID(),
		ConfirmationCode: res.ConfirmationCode(),
		GuestID:          res.GuestID(),
		Status:           res.Status(),
		CheckIn:          res.CheckInDate(),
		CheckOut:         res.CheckOutDate(),
		TotalCents:       res.Total(),
		OccurredAt:       time.Now().UTC(),
	}
	p.publish(ctx, TopicReservationEvents, eventType, event)
}

// Record implements the activity sink on top of the activity topic.
func (p *Publisher) Record(ctx context.Context, actor, action, entityType, entityID, message string) {
	event := ActivityEvent{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
	p.publish(ctx, TopicActivityEvents, ActivityRecorded, event)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType string, data any) {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to build cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := p.producer.PublishEvent(ctx, topic, ce); err != nil {
		p.logger.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
