// Package waitlist holds open requests from guests waiting for a room type
// to free up. The availability consumer matches entries against incoming
// availability-changed events.
package waitlist

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

// Entry is one open waitlist request.
type Entry struct {
	id        uuid.UUID
	guestID   uuid.UUID
	roomType  room.Type
	checkIn   time.Time
	checkOut  time.Time
	notified  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewEntry creates a waitlist entry for a guest wanting a room type over a
// date range.
func NewEntry(guestID uuid.UUID, roomType room.Type, checkIn, checkOut time.Time) (*Entry, error) {
	if _, ok := room.TypeInfoFor(roomType); !ok {
		return nil, domain.NewValidationError("unknown room type: %s", roomType)
	}
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check-out must be after check-in")
	}
	now := time.Now().UTC()
	return &Entry{
		id:        uuid.New(),
		guestID:   guestID,
		roomType:  roomType,
		checkIn:   checkIn,
		checkOut:  checkOut,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute rebuilds an Entry from persistence.
func Reconstitute(id, guestID uuid.UUID, roomType room.Type, checkIn, checkOut time.Time, notified bool, createdAt, updatedAt time.Time) *Entry {
	return &Entry{
		id:        id,
		guestID:   guestID,
		roomType:  roomType,
		checkIn:   checkIn,
		checkOut:  checkOut,
		notified:  notified,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e *Entry) ID() uuid.UUID        { return e.id }
func (e *Entry) GuestID() uuid.UUID   { return e.guestID }
func (e *Entry) RoomType() room.Type  { return e.roomType }
func (e *Entry) CheckIn() time.Time   { return e.checkIn }
func (e *Entry) CheckOut() time.Time  { return e.checkOut }
func (e *Entry) Notified() bool       { return e.notified }
func (e *Entry) CreatedAt() time.Time { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time { return e.updatedAt }

// Matches reports whether an availability window starting at availableFrom
// can serve this entry's stay.
func (e *Entry) Matches(roomType room.Type, availableFrom time.Time) bool {
	return e.roomType == roomType && !availableFrom.After(e.checkIn)
}

// MarkNotified flags the entry so a repeated delivery of the same
// availability event does not notify the guest twice.
func (e *Entry) MarkNotified() {
	e.notified = true
	e.updatedAt = time.Now().UTC()
}

// Repository is the waitlist store contract.
type Repository interface {
	Add(ctx context.Context, e *Entry) error
	FindByRoomType(ctx context.Context, roomType room.Type) ([]*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Remove(ctx context.Context, id uuid.UUID) error
}
