package room

import (
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain"
)

// Type is the room category. Each type has a fixed max occupancy and base
// nightly rate.
type Type string

const (
	TypeSingle    Type = "single"
	TypeDouble    Type = "double"
	TypeDeluxe    Type = "deluxe"
	TypePenthouse Type = "penthouse"
)

// Status is the physical state of a room unit.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusOccupied    Status = "occupied"
	StatusCleaning    Status = "cleaning"
	StatusMaintenance Status = "maintenance"
)

// TypeInfo defines the properties of a room type.
type TypeInfo struct {
	Type          Type   `json:"type"`
	MaxOccupancy  int    `json:"max_occupancy"`
	BaseRateCents int64  `json:"base_rate_cents"`
	Description   string `json:"description"`
}

// Catalog returns the fixed room type catalog.
func Catalog() []TypeInfo {
	return []TypeInfo{
		{Type: TypeSingle, MaxOccupancy: 1, BaseRateCents: 10000, Description: "Single room, one guest"},
		{Type: TypeDouble, MaxOccupancy: 4, BaseRateCents: 16000, Description: "Double room, up to four guests"},
		{Type: TypeDeluxe, MaxOccupancy: 4, BaseRateCents: 25000, Description: "Deluxe room with lounge area"},
		{Type: TypePenthouse, MaxOccupancy: 6, BaseRateCents: 60000, Description: "Penthouse suite, top floor"},
	}
}

// TypeInfoFor looks up the catalog entry for a room type.
func TypeInfoFor(t Type) (TypeInfo, bool) {
	for _, info := range Catalog() {
		if info.Type == t {
			return info, true
		}
	}
	return TypeInfo{}, false
}

// Unit is the aggregate root for one physical, bookable room.
type Unit struct {
	id        uuid.UUID
	number    string
	roomType  Type
	status    Status
	createdAt time.Time
	updatedAt time.Time
}

// NewUnit creates an available room unit with the given number and type.
func NewUnit(number string, roomType Type) (*Unit, error) {
	if number == "" {
		return nil, domain.NewValidationError("room number is required")
	}
	if _, ok := TypeInfoFor(roomType); !ok {
		return nil, domain.NewValidationError("unknown room type: %s", roomType)
	}
	now := time.Now().UTC()
	return &Unit{
		id:        uuid.New(),
		number:    number,
		roomType:  roomType,
		status:    StatusAvailable,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute rebuilds a Unit from persistence.
func Reconstitute(id uuid.UUID, number string, roomType Type, status Status, createdAt, updatedAt time.Time) *Unit {
	return &Unit{
		id:        id,
		number:    number,
		roomType:  roomType,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (u *Unit) ID() uuid.UUID        { return u.id }
func (u *Unit) Number() string       { return u.number }
func (u *Unit) RoomType() Type       { return u.roomType }
func (u *Unit) Status() Status       { return u.status }
func (u *Unit) CreatedAt() time.Time { return u.createdAt }
func (u *Unit) UpdatedAt() time.Time { return u.updatedAt }

// TypeInfo returns the catalog entry for this unit's type.
func (u *Unit) TypeInfo() TypeInfo {
	info, _ := TypeInfoFor(u.roomType)
	return info
}

// MarkReserved claims an available or cleaning unit for a reservation.
func (u *Unit) MarkReserved() error {
	if u.status != StatusAvailable && u.status != StatusCleaning {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusReserved))
	}
	u.setStatus(StatusReserved)
	return nil
}

// MarkOccupied flips the unit to occupied at check-in. The unit may still be
// flagged available (a stay booked in advance), reserved (a same-day claim)
// or cleaning (a same-day turnover).
func (u *Unit) MarkOccupied() error {
	if u.status == StatusOccupied || u.status == StatusMaintenance {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusOccupied))
	}
	u.setStatus(StatusOccupied)
	return nil
}

// RevertOccupancy returns an occupied unit to reserved when a check-in is
// unwound.
func (u *Unit) RevertOccupancy() error {
	if u.status != StatusOccupied {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusReserved))
	}
	u.setStatus(StatusReserved)
	return nil
}

// MarkCleaning flips an occupied unit to cleaning at check-out.
func (u *Unit) MarkCleaning() error {
	if u.status != StatusOccupied {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusCleaning))
	}
	u.setStatus(StatusCleaning)
	return nil
}

// MarkAvailable releases the unit back to the available pool.
func (u *Unit) MarkAvailable() error {
	if u.status == StatusMaintenance {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusAvailable))
	}
	u.setStatus(StatusAvailable)
	return nil
}

// EndMaintenance returns a unit from maintenance to the available pool. This
// is the only way out of maintenance; MarkAvailable deliberately refuses it
// so a cancellation release cannot resurrect an out-of-service room.
func (u *Unit) EndMaintenance() error {
	if u.status != StatusMaintenance {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusAvailable))
	}
	u.setStatus(StatusAvailable)
	return nil
}

// MarkMaintenance takes the unit out of service. A reserved or occupied unit
// cannot be pulled while a reservation holds it.
func (u *Unit) MarkMaintenance() error {
	if u.status == StatusReserved || u.status == StatusOccupied {
		return domain.NewInvalidTransitionError(string(u.status), string(StatusMaintenance))
	}
	u.setStatus(StatusMaintenance)
	return nil
}

func (u *Unit) setStatus(s Status) {
	u.status = s
	u.updatedAt = time.Now().UTC()
}
