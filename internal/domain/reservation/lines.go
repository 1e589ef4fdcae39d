package reservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

// RoomAssignment links the reservation to one room unit for the stay's date
// range. The nightly rate is locked in at assignment time and does not drift
// if catalog pricing changes later.
type RoomAssignment struct {
	ID               uuid.UUID `json:"id"`
	ReservationID    uuid.UUID `json:"reservation_id"`
	RoomUnitID       uuid.UUID `json:"room_unit_id"`
	RoomNumber       string    `json:"room_number"`
	RoomType         room.Type `json:"room_type"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	Guests           int       `json:"guests"`
	CreatedAt        time.Time `json:"created_at"`
}

// AddOnType identifies a bookable extra.
type AddOnType string

const (
	AddOnBreakfast      AddOnType = "breakfast"
	AddOnSpa            AddOnType = "spa"
	AddOnParking        AddOnType = "parking"
	AddOnAirportShuttle AddOnType = "airport_shuttle"
	AddOnLateCheckout   AddOnType = "late_checkout"
)

// AddOnInfo defines the catalog entry for an add-on type.
type AddOnInfo struct {
	Type           AddOnType `json:"type"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Description    string    `json:"description"`
}

// AddOnCatalog returns the fixed add-on catalog. The unit price here is the
// current list price; each attached line locks its own copy.
func AddOnCatalog() []AddOnInfo {
	return []AddOnInfo{
		{Type: AddOnBreakfast, UnitPriceCents: 1500, Description: "Breakfast, per guest per day"},
		{Type: AddOnSpa, UnitPriceCents: 8000, Description: "Spa access, per visit"},
		{Type: AddOnParking, UnitPriceCents: 2000, Description: "Parking, per night"},
		{Type: AddOnAirportShuttle, UnitPriceCents: 4500, Description: "Airport shuttle, per trip"},
		{Type: AddOnLateCheckout, UnitPriceCents: 5000, Description: "Late check-out until 15:00"},
	}
}

// AddOnInfoFor looks up the catalog entry for an add-on type.
func AddOnInfoFor(t AddOnType) (AddOnInfo, bool) {
	for _, info := range AddOnCatalog() {
		if info.Type == t {
			return info, true
		}
	}
	return AddOnInfo{}, false
}

// AddOnLine is one attached add-on with its locked unit price.
type AddOnLine struct {
	ID             uuid.UUID `json:"id"`
	ReservationID  uuid.UUID `json:"reservation_id"`
	Type           AddOnType `json:"type"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
}

// LineTotal is unit price times quantity, in cents.
func (l AddOnLine) LineTotal() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// PaymentMethod is how a payment was taken.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

// PaymentStatus is the state of a payment record.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
)

// PaymentRecord is an append-only record of a captured payment. Payments are
// recorded, never authorized; gateway integration is out of scope.
type PaymentRecord struct {
	ID            uuid.UUID     `json:"id"`
	ReservationID uuid.UUID     `json:"reservation_id"`
	AmountCents   int64         `json:"amount_cents"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}
