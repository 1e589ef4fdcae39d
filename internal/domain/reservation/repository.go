package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the reservation store contract.
//
// Update must enforce optimistic locking: a write against a stale version
// returns a concurrency-conflict error and persists nothing.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindByConfirmationCode(ctx context.Context, code string) (*Reservation, error)
	// FindOverlapping returns non-cancelled reservations holding the given
	// room unit whose [checkIn, checkOut) range overlaps the given range.
	FindOverlapping(ctx context.Context, roomUnitID uuid.UUID, checkIn, checkOut time.Time) ([]*Reservation, error)
	ListAll(ctx context.Context, page, limit int) ([]*Reservation, int64, error)
	Save(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error
}
