package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grandline-hms/service-reservation/internal/domain"
	resDomain "github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

// ReservationModel is the GORM persistence model for the reservations table.
type ReservationModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConfirmationCode  string    `gorm:"type:varchar(16);uniqueIndex;not null"`
	GuestID           uuid.UUID `gorm:"type:uuid;index;not null"`
	CheckIn           time.Time `gorm:"type:date;not null"`
	CheckOut          time.Time `gorm:"type:date;not null"`
	Status            string    `gorm:"type:varchar(20);index;not null"`
	DiscountPct       float64   `gorm:"not null;default:0"`
	DiscountAppliedBy string    `gorm:"type:varchar(120)"`
	PointsRedeemed    int64     `gorm:"not null;default:0"`
	LoyaltyDiscount   int64     `gorm:"not null;default:0"`
	Subtotal          int64     `gorm:"not null;default:0"`
	Discounts         int64     `gorm:"not null;default:0"`
	Tax               int64     `gorm:"not null;default:0"`
	Total             int64     `gorm:"not null;default:0"`
	AmountPaid        int64     `gorm:"not null;default:0"`
	Version           int64     `gorm:"not null;default:1"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null"`

	Assignments []RoomAssignmentModel `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	AddOns      []AddOnLineModel      `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Payments    []PaymentRecordModel  `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
}

func (ReservationModel) TableName() string { return "reservations" }

// RoomAssignmentModel links a reservation to a room unit with its locked rate.
type RoomAssignmentModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReservationID    uuid.UUID `gorm:"type:uuid;index;not null"`
	RoomUnitID       uuid.UUID `gorm:"type:uuid;index;not null"`
	RoomNumber       string    `gorm:"type:varchar(10);not null"`
	RoomType         string    `gorm:"type:varchar(20);not null"`
	NightlyRateCents int64     `gorm:"not null"`
	Guests           int       `gorm:"not null"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null"`
}

func (RoomAssignmentModel) TableName() string { return "room_assignments" }

// AddOnLineModel is one attached add-on with its locked unit price.
type AddOnLineModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReservationID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Type           string    `gorm:"type:varchar(30);not null"`
	UnitPriceCents int64     `gorm:"not null"`
	Quantity       int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null"`
}

func (AddOnLineModel) TableName() string { return "add_on_lines" }

// PaymentRecordModel is an append-only captured payment.
type PaymentRecordModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReservationID uuid.UUID `gorm:"type:uuid;index;not null"`
	AmountCents   int64     `gorm:"not null"`
	Method        string    `gorm:"type:varchar(20);not null"`
	Status        string    `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null"`
}

func (PaymentRecordModel) TableName() string { return "payment_records" }

// ReservationRepositoryImpl is the GORM-based reservation store.
type ReservationRepositoryImpl struct {
	db *gorm.DB
}

// NewReservationRepository creates a GORM-based reservation repository.
func NewReservationRepository(db *gorm.DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

// FindByID retrieves a reservation with all its line items.
func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*resDomain.Reservation, error) {
	var model ReservationModel
	err := r.db.WithContext(ctx).
		Preload("Assignments").Preload("AddOns").Preload("Payments").
		Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("reservation", id.String())
		}
		return nil, err
	}
	return reservationToDomain(&model), nil
}

// FindByConfirmationCode retrieves a reservation by its confirmation code.
func (r *ReservationRepositoryImpl) FindByConfirmationCode(ctx context.Context, code string) (*resDomain.Reservation, error) {
	var model ReservationModel
	err := r.db.WithContext(ctx).
		Preload("Assignments").Preload("AddOns").Preload("Payments").
		Where("confirmation_code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("reservation", code)
		}
		return nil, err
	}
	return reservationToDomain(&model), nil
}

// FindOverlapping returns non-cancelled reservations holding the room unit
// over a range overlapping [checkIn, checkOut).
func (r *ReservationRepositoryImpl) FindOverlapping(ctx context.Context, roomUnitID uuid.UUID, checkIn, checkOut time.Time) ([]*resDomain.Reservation, error) {
	var models []ReservationModel
	err := r.db.WithContext(ctx).
		Preload("Assignments").Preload("AddOns").Preload("Payments").
		Joins("JOIN room_assignments ra ON ra.reservation_id = reservations.id").
		Where("ra.room_unit_id = ?", roomUnitID).
		Where("reservations.status <> ?", string(resDomain.StatusCancelled)).
		Where("reservations.check_in < ? AND ? < reservations.check_out", checkOut, checkIn).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*resDomain.Reservation, len(models))
	for i := range models {
		out[i] = reservationToDomain(&models[i])
	}
	return out, nil
}

// ListAll retrieves reservations with pagination, newest first.
func (r *ReservationRepositoryImpl) ListAll(ctx context.Context, page, limit int) ([]*resDomain.Reservation, int64, error) {
	var total int64
	r.db.WithContext(ctx).Model(&ReservationModel{}).Count(&total)

	var models []ReservationModel
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Preload("Assignments").Preload("AddOns").Preload("Payments").
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*resDomain.Reservation, len(models))
	for i := range models {
		out[i] = reservationToDomain(&models[i])
	}
	return out, total, nil
}

// Save persists a new reservation aggregate with its line items.
func (r *ReservationRepositoryImpl) Save(ctx context.Context, res *resDomain.Reservation) error {
	model := reservationToModel(res)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes with optimistic locking: the line items are
// replaced and the header row is guarded by the previous version.
func (r *ReservationRepositoryImpl) Update(ctx context.Context, res *resDomain.Reservation) error {
	model := reservationToModel(res)
	previousVersion := res.Version() - 1

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ReservationModel{}).
			Where("id = ? AND version = ?", model.ID, previousVersion).
			Select("Status", "DiscountPct", "DiscountAppliedBy", "PointsRedeemed",
				"LoyaltyDiscount", "Subtotal", "Discounts", "Tax", "Total",
				"AmountPaid", "Version", "UpdatedAt").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewConcurrencyConflictError("reservation was modified by another transaction")
		}

		// Line items are replaced wholesale; they are few and append-mostly.
		if err := tx.Where("reservation_id = ?", model.ID).Delete(&RoomAssignmentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reservation_id = ?", model.ID).Delete(&AddOnLineModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reservation_id = ?", model.ID).Delete(&PaymentRecordModel{}).Error; err != nil {
			return err
		}
		if len(model.Assignments) > 0 {
			if err := tx.Create(&model.Assignments).Error; err != nil {
				return err
			}
		}
		if len(model.AddOns) > 0 {
			if err := tx.Create(&model.AddOns).Error; err != nil {
				return err
			}
		}
		if len(model.Payments) > 0 {
			if err := tx.Create(&model.Payments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func reservationToDomain(m *ReservationModel) *resDomain.Reservation {
	assignments := make([]resDomain.RoomAssignment, len(m.Assignments))
	for i, a := range m.Assignments {
		assignments[i] = resDomain.RoomAssignment{
			ID:               a.ID,
			ReservationID:    a.ReservationID,
			RoomUnitID:       a.RoomUnitID,
			RoomNumber:       a.RoomNumber,
			RoomType:         room.Type(a.RoomType),
			NightlyRateCents: a.NightlyRateCents,
			Guests:           a.Guests,
			CreatedAt:        a.CreatedAt,
		}
	}
	addOns := make([]resDomain.AddOnLine, len(m.AddOns))
	for i, l := range m.AddOns {
		addOns[i] = resDomain.AddOnLine{
			ID:             l.ID,
			ReservationID:  l.ReservationID,
			Type:           resDomain.AddOnType(l.Type),
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
			CreatedAt:      l.CreatedAt,
		}
	}
	payments := make([]resDomain.PaymentRecord, len(m.Payments))
	for i, p := range m.Payments {
		payments[i] = resDomain.PaymentRecord{
			ID:            p.ID,
			ReservationID: p.ReservationID,
			AmountCents:   p.AmountCents,
			Method:        resDomain.PaymentMethod(p.Method),
			Status:        resDomain.PaymentStatus(p.Status),
			CreatedAt:     p.CreatedAt,
		}
	}

	return resDomain.Reconstitute(
		m.ID, m.ConfirmationCode, m.GuestID,
		m.CheckIn.UTC(), m.CheckOut.UTC(),
		resDomain.Status(m.Status),
		assignments, addOns, payments,
		m.DiscountPct, m.DiscountAppliedBy,
		m.PointsRedeemed, m.LoyaltyDiscount,
		m.Subtotal, m.Discounts, m.Tax, m.Total, m.AmountPaid,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
}

func reservationToModel(res *resDomain.Reservation) *ReservationModel {
	m := &ReservationModel{
		ID:                res.ID(),
		ConfirmationCode:  res.ConfirmationCode(),
		GuestID:           res.GuestID(),
		CheckIn:           res.CheckInDate(),
		CheckOut:          res.CheckOutDate(),
		Status:            string(res.Status()),
		DiscountPct:       res.DiscountPct(),
		DiscountAppliedBy: res.DiscountAppliedBy(),
		PointsRedeemed:    res.PointsRedeemed(),
		LoyaltyDiscount:   res.LoyaltyDiscount(),
		Subtotal:          res.Subtotal(),
		Discounts:         res.Discounts(),
		Tax:               res.Tax(),
		Total:             res.Total(),
		AmountPaid:        res.AmountPaid(),
		Version:           res.Version(),
		CreatedAt:         res.CreatedAt(),
		UpdatedAt:         res.UpdatedAt(),
	}
	for _, a := range res.Assignments() {
		m.Assignments = append(m.Assignments, RoomAssignmentModel{
			ID:               a.ID,
			ReservationID:    a.ReservationID,
			RoomUnitID:       a.RoomUnitID,
			RoomNumber:       a.RoomNumber,
			RoomType:         string(a.RoomType),
			NightlyRateCents: a.NightlyRateCents,
			Guests:           a.Guests,
			CreatedAt:        a.CreatedAt,
		})
	}
	for _, l := range res.AddOns() {
		m.AddOns = append(m.AddOns, AddOnLineModel{
			ID:             l.ID,
			ReservationID:  l.ReservationID,
			Type:           string(l.Type),
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
			CreatedAt:      l.CreatedAt,
		})
	}
	for _, p := range res.Payments() {
		m.Payments = append(m.Payments, PaymentRecordModel{
			ID:            p.ID,
			ReservationID: p.ReservationID,
			AmountCents:   p.AmountCents,
			Method:        string(p.Method),
			Status:        string(p.Status),
			CreatedAt:     p.CreatedAt,
		})
	}
	return m
}
