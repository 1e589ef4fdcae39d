package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/loyalty"
)

// LoyaltyAccountModel is the GORM persistence model for loyalty_accounts.
type LoyaltyAccountModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Number         string    `gorm:"type:varchar(16);uniqueIndex;not null"`
	GuestID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Balance        int64     `gorm:"not null;default:0"`
	LifetimePoints int64     `gorm:"not null;default:0"`
	Active         bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;not null"`
}

func (LoyaltyAccountModel) TableName() string { return "loyalty_accounts" }

// LoyaltyTransactionModel is the append-only ledger table.
type LoyaltyTransactionModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AccountID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	Type          string     `gorm:"type:varchar(10);not null"`
	PointsDelta   int64      `gorm:"not null"`
	BalanceAfter  int64      `gorm:"not null"`
	ReservationID *uuid.UUID `gorm:"type:uuid;index"`
	Description   string     `gorm:"type:varchar(255)"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null"`
}

func (LoyaltyTransactionModel) TableName() string { return "loyalty_transactions" }

// LoyaltyRepositoryImpl is the GORM-based loyalty store.
type LoyaltyRepositoryImpl struct {
	db *gorm.DB
}

// NewLoyaltyRepository creates a GORM-based loyalty repository.
func NewLoyaltyRepository(db *gorm.DB) *LoyaltyRepositoryImpl {
	return &LoyaltyRepositoryImpl{db: db}
}

// FindByID retrieves an account by ID.
func (r *LoyaltyRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*loyalty.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByNumber retrieves an account by its membership number.
func (r *LoyaltyRepositoryImpl) FindByNumber(ctx context.Context, number string) (*loyalty.Account, error) {
	return r.findOne(ctx, "number = ?", number)
}

// FindByGuestID retrieves the account belonging to a guest.
func (r *LoyaltyRepositoryImpl) FindByGuestID(ctx context.Context, guestID uuid.UUID) (*loyalty.Account, error) {
	return r.findOne(ctx, "guest_id = ?", guestID)
}

func (r *LoyaltyRepositoryImpl) findOne(ctx context.Context, query string, arg any) (*loyalty.Account, error) {
	var model LoyaltyAccountModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("loyalty account", "")
		}
		return nil, err
	}
	return loyaltyToDomain(&model), nil
}

// FindByEmailOrPhone looks up an account through the guest directory, so the
// front desk can find a member without the card number.
func (r *LoyaltyRepositoryImpl) FindByEmailOrPhone(ctx context.Context, email, phone string) (*loyalty.Account, error) {
	var model LoyaltyAccountModel
	q := r.db.WithContext(ctx).
		Joins("JOIN guests g ON g.id = loyalty_accounts.guest_id")
	if email != "" && phone != "" {
		q = q.Where("g.email = ? OR g.phone = ?", email, phone)
	} else if email != "" {
		q = q.Where("g.email = ?", email)
	} else if phone != "" {
		q = q.Where("g.phone = ?", phone)
	} else {
		return nil, domain.NewValidationError("email or phone is required")
	}
	err := q.First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("loyalty account", email+phone)
		}
		return nil, err
	}
	return loyaltyToDomain(&model), nil
}

// ListTransactions returns the full ledger for an account, oldest first.
func (r *LoyaltyRepositoryImpl) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]loyalty.Transaction, error) {
	var models []LoyaltyTransactionModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]loyalty.Transaction, len(models))
	for i, m := range models {
		out[i] = loyalty.Transaction{
			ID:            m.ID,
			AccountID:     m.AccountID,
			Type:          loyalty.TransactionType(m.Type),
			PointsDelta:   m.PointsDelta,
			BalanceAfter:  m.BalanceAfter,
			ReservationID: m.ReservationID,
			Description:   m.Description,
			CreatedAt:     m.CreatedAt,
		}
	}
	return out, nil
}

// Save upserts the account state and appends its pending ledger entries in
// one transaction, so a balance change and its ledger record never diverge.
func (r *LoyaltyRepositoryImpl) Save(ctx context.Context, account *loyalty.Account) error {
	model := &LoyaltyAccountModel{
		ID:             account.ID(),
		Number:         account.Number(),
		GuestID:        account.GuestID(),
		Balance:        account.Balance(),
		LifetimePoints: account.LifetimePoints(),
		Active:         account.Active(),
		CreatedAt:      account.CreatedAt(),
		UpdatedAt:      account.UpdatedAt(),
	}
	pending := account.PendingTransactions()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		for _, t := range pending {
			entry := LoyaltyTransactionModel{
				ID:            t.ID,
				AccountID:     t.AccountID,
				Type:          string(t.Type),
				PointsDelta:   t.PointsDelta,
				BalanceAfter:  t.BalanceAfter,
				ReservationID: t.ReservationID,
				Description:   t.Description,
				CreatedAt:     t.CreatedAt,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	account.ClearPending()
	return nil
}

func loyaltyToDomain(m *LoyaltyAccountModel) *loyalty.Account {
	return loyalty.Reconstitute(m.ID, m.Number, m.GuestID, m.Balance, m.LifetimePoints, m.Active, m.CreatedAt, m.UpdatedAt)
}
