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

// RoomUnitModel is the GORM persistence model for the room_units table.
type RoomUnitModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Number    string    `gorm:"type:varchar(10);uniqueIndex;not null"`
	RoomType  string    `gorm:"type:varchar(20);index;not null"`
	Status    string    `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (RoomUnitModel) TableName() string { return "room_units" }

// RoomRepositoryImpl is the GORM-based room catalog store.
type RoomRepositoryImpl struct {
	db *gorm.DB
}

// NewRoomRepository creates a GORM-based room repository.
func NewRoomRepository(db *gorm.DB) *RoomRepositoryImpl {
	return &RoomRepositoryImpl{db: db}
}

// FindByID retrieves a room unit by ID.
func (r *RoomRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*room.Unit, error) {
	var model RoomUnitModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("room unit", id.String())
		}
		return nil, err
	}
	return roomToDomain(&model), nil
}

// FindByNumber retrieves a room unit by its room number.
func (r *RoomRepositoryImpl) FindByNumber(ctx context.Context, number string) (*room.Unit, error) {
	var model RoomUnitModel
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("room unit", number)
		}
		return nil, err
	}
	return roomToDomain(&model), nil
}

// FindAvailable returns units of the given type free over [checkIn, checkOut).
// A unit is taken when any non-cancelled reservation assignment overlaps the
// range under strict half-open semantics; maintenance units never qualify.
func (r *RoomRepositoryImpl) FindAvailable(ctx context.Context, roomType room.Type, checkIn, checkOut time.Time) ([]*room.Unit, error) {
	var models []RoomUnitModel
	err := r.db.WithContext(ctx).
		Where("room_type = ?", string(roomType)).
		Where("status <> ?", string(room.StatusMaintenance)).
		Where(`NOT EXISTS (
			SELECT 1 FROM room_assignments ra
			JOIN reservations res ON res.id = ra.reservation_id
			WHERE ra.room_unit_id = room_units.id
			  AND res.status <> ?
			  AND res.check_in < ? AND ? < res.check_out
		)`, string(resDomain.StatusCancelled), checkOut, checkIn).
		Order("number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*room.Unit, len(models))
	for i := range models {
		out[i] = roomToDomain(&models[i])
	}
	return out, nil
}

// List retrieves all room units ordered by room number.
func (r *RoomRepositoryImpl) List(ctx context.Context) ([]*room.Unit, error) {
	var models []RoomUnitModel
	if err := r.db.WithContext(ctx).Order("number ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*room.Unit, len(models))
	for i := range models {
		out[i] = roomToDomain(&models[i])
	}
	return out, nil
}

// Save persists a new room unit.
func (r *RoomRepositoryImpl) Save(ctx context.Context, unit *room.Unit) error {
	return r.db.WithContext(ctx).Create(roomToModel(unit)).Error
}

// Update persists status changes to an existing unit.
func (r *RoomRepositoryImpl) Update(ctx context.Context, unit *room.Unit) error {
	result := r.db.WithContext(ctx).Model(&RoomUnitModel{}).
		Where("id = ?", unit.ID()).
		Updates(map[string]any{
			"status":     string(unit.Status()),
			"updated_at": unit.UpdatedAt(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("room unit", unit.ID().String())
	}
	return nil
}

func roomToDomain(m *RoomUnitModel) *room.Unit {
	return room.Reconstitute(m.ID, m.Number, room.Type(m.RoomType), room.Status(m.Status), m.CreatedAt, m.UpdatedAt)
}

func roomToModel(u *room.Unit) *RoomUnitModel {
	return &RoomUnitModel{
		ID:        u.ID(),
		Number:    u.Number(),
		RoomType:  string(u.RoomType()),
		Status:    string(u.Status()),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}
