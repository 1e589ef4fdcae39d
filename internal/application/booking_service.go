package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/adapter"
	"github.com/grandline-hms/service-reservation/internal/allocator"
	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/guest"
	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/events"
	"github.com/grandline-hms/service-reservation/internal/pricing"
	"github.com/grandline-hms/service-reservation/internal/saga"
)

const dateLayout = "2006-01-02"

// RoomRequestDTO asks for a number of rooms of one type for a share of the
// booking's guests.
type RoomRequestDTO struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Guests   int    `json:"guests" binding:"required,gt=0"`
}

// AddOnRequestDTO attaches an add-on at booking time.
type AddOnRequestDTO struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CreateBookingRequest is the DTO for creating a reservation.
type CreateBookingRequest struct {
	FirstName    string            `json:"first_name" binding:"required"`
	LastName     string            `json:"last_name" binding:"required"`
	Email        string            `json:"email" binding:"required,email"`
	Phone        string            `json:"phone"`
	CheckIn      string            `json:"check_in" binding:"required"`
	CheckOut     string            `json:"check_out" binding:"required"`
	Rooms        []RoomRequestDTO  `json:"rooms" binding:"required,min=1,dive"`
	AddOns       []AddOnRequestDTO `json:"add_ons" binding:"dive"`
	Draft        bool              `json:"draft"`
	DiscountPct  float64           `json:"discount_pct"`
	RedeemPoints int64             `json:"redeem_points"`
}

// AddAddOnRequest is the DTO for attaching an add-on to an existing
// reservation.
type AddAddOnRequest struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// RecordPaymentRequest is the DTO for recording a captured payment.
type RecordPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Method      string `json:"method" binding:"required"`
}

// AssignmentDTO is one room held by a reservation.
type AssignmentDTO struct {
	ID               uuid.UUID `json:"id"`
	RoomUnitID       uuid.UUID `json:"room_unit_id"`
	RoomNumber       string    `json:"room_number"`
	RoomType         string    `json:"room_type"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	Guests           int       `json:"guests"`
}

// AddOnDTO is one attached add-on line.
type AddOnDTO struct {
	ID             uuid.UUID `json:"id"`
	Type           string    `json:"type"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// PaymentDTO is one captured payment.
type PaymentDTO struct {
	ID          uuid.UUID `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReservationDTO is the API response DTO for reservation data.
type ReservationDTO struct {
	ID               uuid.UUID       `json:"id"`
	ConfirmationCode string          `json:"confirmation_code"`
	GuestID          uuid.UUID       `json:"guest_id"`
	CheckIn          string          `json:"check_in"`
	CheckOut         string          `json:"check_out"`
	Nights           int             `json:"nights"`
	Status           string          `json:"status"`
	Assignments      []AssignmentDTO `json:"assignments"`
	AddOns           []AddOnDTO      `json:"add_ons"`
	Payments         []PaymentDTO    `json:"payments"`
	DiscountPct      float64         `json:"discount_pct"`
	PointsRedeemed   int64           `json:"points_redeemed"`
	SubtotalCents    int64           `json:"subtotal_cents"`
	DiscountCents    int64           `json:"discount_cents"`
	TaxCents         int64           `json:"tax_cents"`
	TotalCents       int64           `json:"total_cents"`
	AmountPaidCents  int64           `json:"amount_paid_cents"`
	OutstandingCents int64           `json:"outstanding_cents"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BookingService is the application service that orchestrates reservation
// use cases.
type BookingService struct {
	reservations reservation.Repository
	guests       guest.Directory
	pricer       *pricing.Engine
	sagaSvc      *saga.BookingSagaService
	publisher    saga.LifecyclePublisher
	sink         adapter.ActivitySink
	logger       *zap.Logger
}

// NewBookingService creates a BookingService.
func NewBookingService(
	reservations reservation.Repository,
	guests guest.Directory,
	pricer *pricing.Engine,
	sagaSvc *saga.BookingSagaService,
	publisher saga.LifecyclePublisher,
	sink adapter.ActivitySink,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		reservations: reservations,
		guests:       guests,
		pricer:       pricer,
		sagaSvc:      sagaSvc,
		publisher:    publisher,
		sink:         sink,
		logger:       logger,
	}
}

// CreateBooking runs the booking creation saga: guest upsert, room claims,
// add-ons, totals, optional redemption. Partial success is never observable.
func (s *BookingService) CreateBooking(ctx context.Context, actor string, req CreateBookingRequest) (*ReservationDTO, error) {
	checkIn, checkOut, err := parseStayRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	s.logger.Info("creating booking",
		zap.String("email", req.Email),
		zap.String("check_in", checkIn.Format(dateLayout)),
		zap.String("check_out", checkOut.Format(dateLayout)),
		zap.Int("room_requests", len(req.Rooms)),
	)

	g, err := s.upsertGuest(ctx, req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	res, err := reservation.New(g.ID(), checkIn, checkOut, req.Draft)
	if err != nil {
		return nil, err
	}

	if req.DiscountPct > 0 {
		if err := res.ApplyDiscount(req.DiscountPct, actor); err != nil {
			return nil, err
		}
	}

	for _, a := range req.AddOns {
		info, ok := reservation.AddOnInfoFor(reservation.AddOnType(a.Type))
		if !ok {
			return nil, domain.NewValidationError("unknown add-on type: %s", a.Type)
		}
		if _, err := res.AddAddOn(info.Type, info.UnitPriceCents, a.Quantity); err != nil {
			return nil, err
		}
	}

	requests := make([]allocator.RoomRequest, len(req.Rooms))
	for i, r := range req.Rooms {
		requests[i] = allocator.RoomRequest{
			Type:     room.Type(r.Type),
			Quantity: r.Quantity,
			Guests:   r.Guests,
		}
	}

	if err := s.sagaSvc.CreateBookingSaga(ctx, res, requests, req.RedeemPoints, actor); err != nil {
		s.logger.Error("booking creation failed", zap.Error(err))
		return nil, err
	}

	dto := toReservationDTO(res)
	return &dto, nil
}

// GetReservation retrieves a reservation by ID.
func (s *BookingService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// GetByConfirmationCode retrieves a reservation by its confirmation code.
func (s *BookingService) GetByConfirmationCode(ctx context.Context, code string) (*ReservationDTO, error) {
	res, err := s.reservations.FindByConfirmationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// Confirm moves a pending draft to Confirmed.
func (s *BookingService) Confirm(ctx context.Context, actor string, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := res.Confirm(); err != nil {
		return nil, err
	}
	res.IncrementVersion()
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	s.publisher.PublishLifecycle(ctx, events.ReservationConfirmed, res)
	s.sink.Record(ctx, actor, "reservation.confirm", "reservation", res.ID().String(),
		"reservation "+res.ConfirmationCode()+" confirmed")

	dto := toReservationDTO(res)
	return &dto, nil
}

// CheckIn runs the check-in saga: the reservation transitions to CheckedIn
// and its rooms flip to Occupied, or neither. The stay's check-in date must
// not be in the future.
func (s *BookingService) CheckIn(ctx context.Context, actor string, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.sagaSvc.CheckInSaga(ctx, res, actor); err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// CheckOut runs the check-out saga: rooms to cleaning, stay completed,
// loyalty points earned on the final amount paid.
func (s *BookingService) CheckOut(ctx context.Context, actor string, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.sagaSvc.CheckOutSaga(ctx, res, actor); err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// Cancel runs the cancellation saga: rooms released effective the original
// check-in date, redeemed points refunded.
func (s *BookingService) Cancel(ctx context.Context, actor string, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.sagaSvc.CancelBookingSaga(ctx, res, actor); err != nil {
		return nil, err
	}
	dto := toReservationDTO(res)
	return &dto, nil
}

// AddAddOn attaches an add-on line and recomputes totals.
func (s *BookingService) AddAddOn(ctx context.Context, actor string, id uuid.UUID, req AddAddOnRequest) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info, ok := reservation.AddOnInfoFor(reservation.AddOnType(req.Type))
	if !ok {
		return nil, domain.NewValidationError("unknown add-on type: %s", req.Type)
	}
	if _, err := res.AddAddOn(info.Type, info.UnitPriceCents, req.Quantity); err != nil {
		return nil, err
	}
	res.Recalculate(s.pricer)
	res.IncrementVersion()
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, actor, "reservation.add_addon", "reservation", res.ID().String(),
		"add-on "+req.Type+" attached to "+res.ConfirmationCode())

	dto := toReservationDTO(res)
	return &dto, nil
}

// RemoveAddOn detaches an add-on line and recomputes totals.
func (s *BookingService) RemoveAddOn(ctx context.Context, actor string, id, addOnID uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := res.RemoveAddOn(addOnID); err != nil {
		return nil, err
	}
	res.Recalculate(s.pricer)
	res.IncrementVersion()
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, actor, "reservation.remove_addon", "reservation", res.ID().String(),
		"add-on removed from "+res.ConfirmationCode())

	dto := toReservationDTO(res)
	return &dto, nil
}

// RecordPayment records a captured payment against the reservation.
func (s *BookingService) RecordPayment(ctx context.Context, actor string, id uuid.UUID, req RecordPaymentRequest) (*ReservationDTO, error) {
	method := reservation.PaymentMethod(req.Method)
	switch method {
	case reservation.PaymentCash, reservation.PaymentCard, reservation.PaymentOnline:
	default:
		return nil, domain.NewValidationError("unknown payment method: %s", req.Method)
	}

	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := res.RecordPayment(req.AmountCents, method); err != nil {
		return nil, err
	}
	res.Recalculate(s.pricer)
	res.IncrementVersion()
	if err := s.reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, actor, "reservation.payment", "reservation", res.ID().String(),
		"payment recorded against "+res.ConfirmationCode())

	dto := toReservationDTO(res)
	return &dto, nil
}

// ListReservations returns a paginated list of all reservations (admin).
func (s *BookingService) ListReservations(ctx context.Context, page, limit int) ([]ReservationDTO, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	reservations, total, err := s.reservations.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]ReservationDTO, len(reservations))
	for i, res := range reservations {
		dtos[i] = toReservationDTO(res)
	}
	return dtos, total, nil
}

// upsertGuest finds the guest by email or creates a directory entry.
func (s *BookingService) upsertGuest(ctx context.Context, firstName, lastName, email, phone string) (*guest.Guest, error) {
	g, err := guest.NewGuest(firstName, lastName, email, phone)
	if err != nil {
		return nil, err
	}

	existing, err := s.guests.FindByEmail(ctx, g.Email())
	if err == nil {
		existing.UpdateContact(g.Phone())
		if err := s.guests.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := s.guests.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func parseStayRange(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := time.ParseInLocation(dateLayout, checkIn, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError("check_in must be a %s date", dateLayout)
	}
	out, err := time.ParseInLocation(dateLayout, checkOut, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError("check_out must be a %s date", dateLayout)
	}
	return in, out, nil
}

// toReservationDTO maps a domain Reservation to a ReservationDTO.
func toReservationDTO(res *reservation.Reservation) ReservationDTO {
	assignments := make([]AssignmentDTO, len(res.Assignments()))
	for i, a := range res.Assignments() {
		assignments[i] = AssignmentDTO{
			ID:               a.ID,
			RoomUnitID:       a.RoomUnitID,
			RoomNumber:       a.RoomNumber,
			RoomType:         string(a.RoomType),
			NightlyRateCents: a.NightlyRateCents,
			Guests:           a.Guests,
		}
	}
	addOns := make([]AddOnDTO, len(res.AddOns()))
	for i, l := range res.AddOns() {
		addOns[i] = AddOnDTO{
			ID:             l.ID,
			Type:           string(l.Type),
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
			LineTotalCents: l.LineTotal(),
		}
	}
	payments := make([]PaymentDTO, len(res.Payments()))
	for i, p := range res.Payments() {
		payments[i] = PaymentDTO{
			ID:          p.ID,
			AmountCents: p.AmountCents,
			Method:      string(p.Method),
			Status:      string(p.Status),
			CreatedAt:   p.CreatedAt,
		}
	}

	return ReservationDTO{
		ID:               res.ID(),
		ConfirmationCode: res.ConfirmationCode(),
		GuestID:          res.GuestID(),
		CheckIn:          res.CheckInDate().Format(dateLayout),
		CheckOut:         res.CheckOutDate().Format(dateLayout),
		Nights:           res.Nights(),
		Status:           string(res.Status()),
		Assignments:      assignments,
		AddOns:           addOns,
		Payments:         payments,
		DiscountPct:      res.DiscountPct(),
		PointsRedeemed:   res.PointsRedeemed(),
		SubtotalCents:    res.Subtotal(),
		DiscountCents:    res.Discounts(),
		TaxCents:         res.Tax(),
		TotalCents:       res.Total(),
		AmountPaidCents:  res.AmountPaid(),
		OutstandingCents: res.OutstandingBalance(),
		Version:          res.Version(),
		CreatedAt:        res.CreatedAt(),
		UpdatedAt:        res.UpdatedAt(),
	}
}
