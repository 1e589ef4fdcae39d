package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/domain/waitlist"
)

// WaitlistEntryModel is the GORM persistence model for waitlist_entries.
type WaitlistEntryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	GuestID   uuid.UUID `gorm:"type:uuid;index;not null"`
	RoomType  string    `gorm:"type:varchar(20);index;not null"`
	CheckIn   time.Time `gorm:"type:date;not null"`
	CheckOut  time.Time `gorm:"type:date;not null"`
	Notified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (WaitlistEntryModel) TableName() string { return "waitlist_entries" }

// WaitlistRepositoryImpl is the GORM-based waitlist store.
type WaitlistRepositoryImpl struct {
	db *gorm.DB
}

// NewWaitlistRepository creates a GORM-based waitlist repository.
func NewWaitlistRepository(db *gorm.DB) *WaitlistRepositoryImpl {
	return &WaitlistRepositoryImpl{db: db}
}

// Add persists a new waitlist entry.
func (r *WaitlistRepositoryImpl) Add(ctx context.Context, e *waitlist.Entry) error {
	return r.db.WithContext(ctx).Create(waitlistToModel(e)).Error
}

// FindByRoomType returns entries waiting on a room type, oldest first, so
// earlier joiners are notified first.
func (r *WaitlistRepositoryImpl) FindByRoomType(ctx context.Context, roomType room.Type) ([]*waitlist.Entry, error) {
	var models []WaitlistEntryModel
	err := r.db.WithContext(ctx).
		Where("room_type = ?", string(roomType)).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*waitlist.Entry, len(models))
	for i := range models {
		out[i] = waitlistToDomain(&models[i])
	}
	return out, nil
}

// Update persists the notified flag.
func (r *WaitlistRepositoryImpl) Update(ctx context.Context, e *waitlist.Entry) error {
	result := r.db.WithContext(ctx).Model(&WaitlistEntryModel{}).
		Where("id = ?", e.ID()).
		Updates(map[string]any{
			"notified":   e.Notified(),
			"updated_at": e.UpdatedAt(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("waitlist entry", e.ID().String())
	}
	return nil
}

// Remove deletes a waitlist entry.
func (r *WaitlistRepositoryImpl) Remove(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&WaitlistEntryModel{}).Error
}

func waitlistToDomain(m *WaitlistEntryModel) *waitlist.Entry {
	return waitlist.Reconstitute(m.ID, m.GuestID, room.Type(m.RoomType), m.CheckIn.UTC(), m.CheckOut.UTC(), m.Notified, m.CreatedAt, m.UpdatedAt)
}

func waitlistToModel(e *waitlist.Entry) *WaitlistEntryModel {
	return &WaitlistEntryModel{
		ID:        e.ID(),
		GuestID:   e.GuestID(),
		RoomType:  string(e.RoomType()),
		CheckIn:   e.CheckIn(),
		CheckOut:  e.CheckOut(),
		Notified:  e.Notified(),
		CreatedAt: e.CreatedAt(),
		UpdatedAt: e.UpdatedAt(),
	}
}
