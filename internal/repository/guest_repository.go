package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/guest"
)

// GuestModel is the GORM persistence model for the guests table.
type GuestModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string    `gorm:"type:varchar(80);not null"`
	LastName  string    `gorm:"type:varchar(80);not null"`
	Email     string    `gorm:"type:varchar(160);uniqueIndex;not null"`
	Phone     string    `gorm:"type:varchar(32)"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (GuestModel) TableName() string { return "guests" }

// GuestRepositoryImpl is the GORM-based guest directory.
type GuestRepositoryImpl struct {
	db *gorm.DB
}

// NewGuestRepository creates a GORM-based guest directory.
func NewGuestRepository(db *gorm.DB) *GuestRepositoryImpl {
	return &GuestRepositoryImpl{db: db}
}

// FindByID retrieves a guest by ID.
func (r *GuestRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*guest.Guest, error) {
	var model GuestModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("guest", id.String())
		}
		return nil, err
	}
	return guestToDomain(&model), nil
}

// FindByEmail retrieves a guest by email.
func (r *GuestRepositoryImpl) FindByEmail(ctx context.Context, email string) (*guest.Guest, error) {
	var model GuestModel
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("guest", email)
		}
		return nil, err
	}
	return guestToDomain(&model), nil
}

// Save upserts a guest keyed by email. Booking repeatedly with the same email
// keeps one directory row and refreshes name and phone.
func (r *GuestRepositoryImpl) Save(ctx context.Context, g *guest.Guest) error {
	model := &GuestModel{
		ID:        g.ID(),
		FirstName: g.FirstName(),
		LastName:  g.LastName(),
		Email:     g.Email(),
		Phone:     g.Phone(),
		CreatedAt: g.CreatedAt(),
		UpdatedAt: g.UpdatedAt(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "phone", "updated_at"}),
	}).Create(model).Error
}

func guestToDomain(m *GuestModel) *guest.Guest {
	return guest.Reconstitute(m.ID, m.FirstName, m.LastName, m.Email, m.Phone, m.CreatedAt, m.UpdatedAt)
}
