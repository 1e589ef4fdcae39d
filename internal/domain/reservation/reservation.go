package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
)

// transitions is the explicit state machine table. Anything not listed is an
// invalid transition; CheckedOut and Cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCheckedIn, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCheckedOut},
}

// CanTransition reports whether from → to is an allowed lifecycle move.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Pricer is the slice of the pricing engine the aggregate needs to keep its
// totals consistent. All amounts are cents.
type Pricer interface {
	ApplyPercentageDiscount(amountCents int64, pct float64) int64
	Tax(amountCents int64) int64
}

// Reservation is the aggregate root for a stay: room assignments, add-on
// lines, payments, discounts, loyalty redemption and the computed totals.
type Reservation struct {
	id               uuid.UUID
	confirmationCode string
	guestID          uuid.UUID
	checkIn          time.Time
	checkOut         time.Time
	status           Status

	assignments []RoomAssignment
	addOns      []AddOnLine
	payments    []PaymentRecord

	discountPct       float64
	discountAppliedBy string
	pointsRedeemed    int64
	loyaltyDiscount   int64 // cents actually applied, clamped during recompute

	subtotal   int64
	discounts  int64 // percentage + loyalty, cents
	tax        int64
	total      int64
	amountPaid int64

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// New creates a reservation in Pending (draft) or Confirmed state. Dates are
// normalized to midnight UTC; check-out must be strictly after check-in.
func New(guestID uuid.UUID, checkIn, checkOut time.Time, draft bool) (*Reservation, error) {
	checkIn = Midnight(checkIn)
	checkOut = Midnight(checkOut)
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check-out must be after check-in")
	}

	status := StatusConfirmed
	if draft {
		status = StatusPending
	}

	now := time.Now().UTC()
	id := uuid.New()
	return &Reservation{
		id:               id,
		confirmationCode: newConfirmationCode(id),
		guestID:          guestID,
		checkIn:          checkIn,
		checkOut:         checkOut,
		status:           status,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Midnight truncates an instant to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func newConfirmationCode(id uuid.UUID) string {
	return "RSV-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// Reconstitute rebuilds a Reservation from persistence.
func Reconstitute(
	id uuid.UUID,
	confirmationCode string,
	guestID uuid.UUID,
	checkIn, checkOut time.Time,
	status Status,
	assignments []RoomAssignment,
	addOns []AddOnLine,
	payments []PaymentRecord,
	discountPct float64,
	discountAppliedBy string,
	pointsRedeemed, loyaltyDiscount int64,
	subtotal, discounts, tax, total, amountPaid int64,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:                id,
		confirmationCode:  confirmationCode,
		guestID:           guestID,
		checkIn:           checkIn,
		checkOut:          checkOut,
		status:            status,
		assignments:       assignments,
		addOns:            addOns,
		payments:          payments,
		discountPct:       discountPct,
		discountAppliedBy: discountAppliedBy,
		pointsRedeemed:    pointsRedeemed,
		loyaltyDiscount:   loyaltyDiscount,
		subtotal:          subtotal,
		discounts:         discounts,
		tax:               tax,
		total:             total,
		amountPaid:        amountPaid,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (r *Reservation) ID() uuid.UUID                 { return r.id }
func (r *Reservation) ConfirmationCode() string      { return r.confirmationCode }
func (r *Reservation) GuestID() uuid.UUID            { return r.guestID }
func (r *Reservation) CheckInDate() time.Time        { return r.checkIn }
func (r *Reservation) CheckOutDate() time.Time       { return r.checkOut }
func (r *Reservation) Status() Status                { return r.status }
func (r *Reservation) Assignments() []RoomAssignment { return r.assignments }
func (r *Reservation) AddOns() []AddOnLine           { return r.addOns }
func (r *Reservation) Payments() []PaymentRecord     { return r.payments }
func (r *Reservation) DiscountPct() float64          { return r.discountPct }
func (r *Reservation) DiscountAppliedBy() string     { return r.discountAppliedBy }
func (r *Reservation) PointsRedeemed() int64         { return r.pointsRedeemed }
func (r *Reservation) LoyaltyDiscount() int64        { return r.loyaltyDiscount }
func (r *Reservation) Subtotal() int64               { return r.subtotal }
func (r *Reservation) Discounts() int64              { return r.discounts }
func (r *Reservation) Tax() int64                    { return r.tax }
func (r *Reservation) Total() int64                  { return r.total }
func (r *Reservation) AmountPaid() int64             { return r.amountPaid }
func (r *Reservation) Version() int64                { return r.version }
func (r *Reservation) CreatedAt() time.Time          { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time          { return r.updatedAt }

// Nights returns the number of charged nights; the check-out day itself is
// never charged.
func (r *Reservation) Nights() int {
	return int(r.checkOut.Sub(r.checkIn).Hours() / 24)
}

// OutstandingBalance is total minus paid. Negative means overpayment, which
// is a valid internal state; display layers floor it at zero.
func (r *Reservation) OutstandingBalance() int64 {
	return r.total - r.amountPaid
}

// TotalGuests sums the guests across all room assignments.
func (r *Reservation) TotalGuests() int {
	n := 0
	for _, a := range r.assignments {
		n += a.Guests
	}
	return n
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}

// --- Lifecycle transitions ---

func (r *Reservation) transition(to Status) error {
	if !CanTransition(r.status, to) {
		return domain.NewInvalidTransitionError(string(r.status), string(to))
	}
	r.status = to
	r.updatedAt = time.Now().UTC()
	return nil
}

// Confirm moves a pending draft to Confirmed.
func (r *Reservation) Confirm() error {
	return r.transition(StatusConfirmed)
}

// CheckIn moves the reservation to CheckedIn. The stay's check-in date must
// not be after the given instant's date.
func (r *Reservation) CheckIn(now time.Time) error {
	if !CanTransition(r.status, StatusCheckedIn) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusCheckedIn))
	}
	if r.checkIn.After(Midnight(now)) {
		return domain.NewValidationError("cannot check in before the check-in date %s", r.checkIn.Format("2006-01-02"))
	}
	return r.transition(StatusCheckedIn)
}

// CheckOut moves the reservation to CheckedOut. The outstanding balance must
// be settled (zero or overpaid).
func (r *Reservation) CheckOut() error {
	if !CanTransition(r.status, StatusCheckedOut) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusCheckedOut))
	}
	if r.OutstandingBalance() > 0 {
		return domain.NewValidationError("outstanding balance of %d cents must be settled before check-out", r.OutstandingBalance())
	}
	return r.transition(StatusCheckedOut)
}

// Cancel moves a pending or confirmed reservation to Cancelled. Room release
// and point refunds are compensations orchestrated by the lifecycle manager.
func (r *Reservation) Cancel() error {
	return r.transition(StatusCancelled)
}

// --- Mutations that affect totals ---

// AddAssignment attaches a claimed room unit with its locked nightly rate.
func (r *Reservation) AddAssignment(unit *room.Unit, nightlyRateCents int64, guests int) error {
	info := unit.TypeInfo()
	if guests < 1 || guests > info.MaxOccupancy {
		return domain.NewOccupancyExceededError(guests, info.MaxOccupancy)
	}
	r.assignments = append(r.assignments, RoomAssignment{
		ID:               uuid.New(),
		ReservationID:    r.id,
		RoomUnitID:       unit.ID(),
		RoomNumber:       unit.Number(),
		RoomType:         unit.RoomType(),
		NightlyRateCents: nightlyRateCents,
		Guests:           guests,
		CreatedAt:        time.Now().UTC(),
	})
	r.updatedAt = time.Now().UTC()
	return nil
}

// RemoveAssignments drops all room assignments, used when a cancellation
// releases the rooms.
func (r *Reservation) RemoveAssignments() {
	r.assignments = nil
	r.updatedAt = time.Now().UTC()
}

// AddAddOn attaches an add-on line with its unit price locked at attach time.
func (r *Reservation) AddAddOn(addOnType AddOnType, unitPriceCents int64, quantity int) (AddOnLine, error) {
	if r.status == StatusCheckedOut || r.status == StatusCancelled {
		return AddOnLine{}, domain.NewInvalidTransitionError(string(r.status), string(r.status))
	}
	if quantity < 1 {
		return AddOnLine{}, domain.NewValidationError("add-on quantity must be at least 1")
	}
	line := AddOnLine{
		ID:             uuid.New(),
		ReservationID:  r.id,
		Type:           addOnType,
		UnitPriceCents: unitPriceCents,
		Quantity:       quantity,
		CreatedAt:      time.Now().UTC(),
	}
	r.addOns = append(r.addOns, line)
	r.updatedAt = time.Now().UTC()
	return line, nil
}

// RemoveAddOn detaches an add-on line by ID.
func (r *Reservation) RemoveAddOn(lineID uuid.UUID) error {
	for i, line := range r.addOns {
		if line.ID == lineID {
			r.addOns = append(r.addOns[:i], r.addOns[i+1:]...)
			r.updatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.NewNotFoundError("add-on line", lineID.String())
}

// ApplyDiscount sets the percentage discount and records the applying actor.
func (r *Reservation) ApplyDiscount(pct float64, appliedBy string) error {
	if pct < 0 || pct > 100 {
		return domain.NewValidationError("discount percentage must be between 0 and 100, got %.2f", pct)
	}
	r.discountPct = pct
	r.discountAppliedBy = appliedBy
	r.updatedAt = time.Now().UTC()
	return nil
}

// ApplyRedemption records a loyalty redemption against this reservation. The
// discount is clamped to the payable amount during recomputation.
func (r *Reservation) ApplyRedemption(points, discountCents int64) {
	r.pointsRedeemed = points
	r.loyaltyDiscount = discountCents
	r.updatedAt = time.Now().UTC()
}

// ClearRedemption removes the loyalty redemption after points were refunded.
func (r *Reservation) ClearRedemption() {
	r.pointsRedeemed = 0
	r.loyaltyDiscount = 0
	r.updatedAt = time.Now().UTC()
}

// RecordPayment appends a completed payment and updates the paid amount.
func (r *Reservation) RecordPayment(amountCents int64, method PaymentMethod) (PaymentRecord, error) {
	if amountCents <= 0 {
		return PaymentRecord{}, domain.NewValidationError("payment amount must be positive")
	}
	if r.status == StatusCancelled {
		return PaymentRecord{}, domain.NewInvalidTransitionError(string(r.status), string(r.status))
	}
	rec := PaymentRecord{
		ID:            uuid.New(),
		ReservationID: r.id,
		AmountCents:   amountCents,
		Method:        method,
		Status:        PaymentCompleted,
		CreatedAt:     time.Now().UTC(),
	}
	r.payments = append(r.payments, rec)
	r.amountPaid += amountCents
	r.updatedAt = time.Now().UTC()
	return rec, nil
}

// Recalculate recomputes subtotal, discounts, tax and total from the line
// items. It is idempotent: calling it twice without intervening mutation
// yields identical totals, because every rounding step goes through the
// pricing engine's single rounding policy.
func (r *Reservation) Recalculate(pricer Pricer) {
	nights := int64(r.Nights())

	var roomCharges int64
	for _, a := range r.assignments {
		roomCharges += a.NightlyRateCents * nights
	}
	var addOnCharges int64
	for _, line := range r.addOns {
		addOnCharges += line.LineTotal()
	}

	subtotal := roomCharges + addOnCharges
	afterPct := pricer.ApplyPercentageDiscount(subtotal, r.discountPct)
	pctDiscount := subtotal - afterPct

	loyalty := r.loyaltyDiscount
	if loyalty > afterPct {
		loyalty = afterPct
	}

	taxable := afterPct - loyalty
	tax := pricer.Tax(taxable)

	r.subtotal = subtotal
	r.discounts = pctDiscount + loyalty
	r.tax = tax
	r.total = taxable + tax

	var paid int64
	for _, p := range r.payments {
		if p.Status == PaymentCompleted {
			paid += p.AmountCents
		}
	}
	r.amountPaid = paid
	r.updatedAt = time.Now().UTC()
}

// String implements fmt.Stringer for log lines.
func (r *Reservation) String() string {
	return fmt.Sprintf("reservation %s (%s, %s)", r.confirmationCode, r.status, r.checkIn.Format("2006-01-02"))
}
