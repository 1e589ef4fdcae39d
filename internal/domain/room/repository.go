package room

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the room catalog contract.
//
// FindAvailable must apply strict half-open overlap semantics: a unit is
// unavailable when any non-cancelled reservation assignment satisfies
// existingCheckIn < checkOut && checkIn < existingCheckOut. Units under
// maintenance are excluded regardless of dates.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	FindByNumber(ctx context.Context, number string) (*Unit, error)
	FindAvailable(ctx context.Context, roomType Type, checkIn, checkOut time.Time) ([]*Unit, error)
	List(ctx context.Context) ([]*Unit, error)
	Save(ctx context.Context, unit *Unit) error
	Update(ctx context.Context, unit *Unit) error
}
