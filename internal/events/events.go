package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

// Source identifies this service in CloudEvent envelopes.
const Source = "service-reservation"

// Topics.
const (
	TopicInventoryEvents   = "inventory.events"
	TopicReservationEvents = "reservation.events"
	TopicActivityEvents    = "activity.events"
)

// Event types.
const (
	InventoryAvailabilityChanged = "inventory.availability_changed"
	ReservationCreated           = "reservation.created"
	ReservationConfirmed         = "reservation.confirmed"
	ReservationCheckedIn         = "reservation.checked_in"
	ReservationCheckedOut        = "reservation.checked_out"
	ReservationCancelled         = "reservation.cancelled"
	ActivityRecorded             = "activity.recorded"
)

// AvailabilityChangedEvent announces that a room unit returned to the pool.
// Delivery is at-least-once; consumers must be idempotent.
type AvailabilityChangedEvent struct {
	RoomType      room.Type `json:"room_type"`
	RoomNumber    string    `json:"room_number"`
	AvailableFrom time.Time `json:"available_from"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationLifecycleEvent announces a reservation status transition.
type ReservationLifecycleEvent struct {
	ReservationID    uuid.UUID          `json:"reservation_id"`
	ConfirmationCode string             `json:"confirmation_code"`
	GuestID          uuid.UUID          `json:"guest_id"`
	Status           reservation.Status `json:"status"`
	CheckIn          time.Time          `json:"check_in"`
	CheckOut         time.Time          `json:"check_out"`
	TotalCents       int64              `json:"total_cents"`
	OccurredAt       time.Time          `json:"occurred_at"`
}

// ActivityEvent is the audit record shipped to the activity sink topic.
type ActivityEvent struct {
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
