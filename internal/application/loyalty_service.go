package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/adapter"
	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/guest"
	"github.com/grandline-hms/service-reservation/internal/domain/loyalty"
)

// LoyaltyConfig holds the loyalty program tunables.
type LoyaltyConfig struct {
	EarnRate           float64 `mapstructure:"earn_rate"`
	ConversionRate     float64 `mapstructure:"conversion_rate"`
	WelcomeBonusPoints int64   `mapstructure:"welcome_bonus_points"`
	RedemptionCap      int64   `mapstructure:"redemption_cap"`
}

// DefaultLoyaltyConfig returns the standard program: 1 point per dollar,
// 100 points = $1 of discount, 250 welcome points, 5000 points max per stay.
func DefaultLoyaltyConfig() LoyaltyConfig {
	return LoyaltyConfig{
		EarnRate:           1.0,
		ConversionRate:     100.0,
		WelcomeBonusPoints: 250,
		RedemptionCap:      5000,
	}
}

// EnrollRequest is the DTO for enrolling a guest in the loyalty program.
type EnrollRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
}

// GrantBonusRequest is the DTO for an admin-granted bonus posting.
type GrantBonusRequest struct {
	Points      int64  `json:"points" binding:"required,gt=0"`
	Description string `json:"description" binding:"required"`
}

// AccountDTO is the API response DTO for loyalty account data.
type AccountDTO struct {
	ID             uuid.UUID `json:"id"`
	Number         string    `json:"number"`
	GuestID        uuid.UUID `json:"guest_id"`
	Balance        int64     `json:"balance"`
	LifetimePoints int64     `json:"lifetime_points"`
	Tier           string    `json:"tier"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionDTO is one ledger entry.
type TransactionDTO struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	PointsDelta   int64      `json:"points_delta"`
	BalanceAfter  int64      `json:"balance_after"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LoyaltyService is the application service for the loyalty ledger.
type LoyaltyService struct {
	accounts loyalty.Repository
	guests   guest.Directory
	sink     adapter.ActivitySink
	cfg      LoyaltyConfig
	logger   *zap.Logger
}

// NewLoyaltyService creates a LoyaltyService.
func NewLoyaltyService(
	accounts loyalty.Repository,
	guests guest.Directory,
	sink adapter.ActivitySink,
	cfg LoyaltyConfig,
	logger *zap.Logger,
) *LoyaltyService {
	return &LoyaltyService{
		accounts: accounts,
		guests:   guests,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
	}
}

// Enroll opens a loyalty account for a guest, creating the directory entry
// when needed. One account per guest; the welcome bonus lands in the ledger
// immediately.
func (s *LoyaltyService) Enroll(ctx context.Context, actor string, req EnrollRequest) (*AccountDTO, error) {
	g, err := guest.NewGuest(req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	existing, err := s.guests.FindByEmail(ctx, g.Email())
	switch {
	case err == nil:
		g = existing
	case errors.Is(err, domain.ErrNotFound):
		if err := s.guests.Save(ctx, g); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if _, err := s.accounts.FindByGuestID(ctx, g.ID()); err == nil {
		return nil, domain.NewConflictError("guest %s is already enrolled", g.Email())
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	account := loyalty.NewAccount(g.ID())
	if s.cfg.WelcomeBonusPoints > 0 {
		if err := account.Bonus(s.cfg.WelcomeBonusPoints, nil, "welcome bonus"); err != nil {
			return nil, err
		}
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("loyalty account enrolled",
		zap.String("account", account.Number()),
		zap.String("guest", g.Email()),
	)
	s.sink.Record(ctx, actor, "loyalty.enroll", "loyalty_account", account.ID().String(),
		"account "+account.Number()+" enrolled for "+g.FullName())

	dto := toAccountDTO(account)
	return &dto, nil
}

// GetAccount retrieves an account by its membership number.
func (s *LoyaltyService) GetAccount(ctx context.Context, number string) (*AccountDTO, error) {
	account, err := s.accounts.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

// FindAccount looks up an account by guest email or phone for the front desk.
func (s *LoyaltyService) FindAccount(ctx context.Context, email, phone string) (*AccountDTO, error) {
	account, err := s.accounts.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

// ListTransactions returns the full ledger for an account, oldest first.
func (s *LoyaltyService) ListTransactions(ctx context.Context, number string) ([]TransactionDTO, error) {
	account, err := s.accounts.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	transactions, err := s.accounts.ListTransactions(ctx, account.ID())
	if err != nil {
		return nil, err
	}
	dtos := make([]TransactionDTO, len(transactions))
	for i, t := range transactions {
		dtos[i] = TransactionDTO{
			ID:            t.ID,
			Type:          string(t.Type),
			PointsDelta:   t.PointsDelta,
			BalanceAfter:  t.BalanceAfter,
			ReservationID: t.ReservationID,
			Description:   t.Description,
			CreatedAt:     t.CreatedAt,
		}
	}
	return dtos, nil
}

// GrantBonus posts an admin-granted bonus to an account.
func (s *LoyaltyService) GrantBonus(ctx context.Context, actor, number string, req GrantBonusRequest) (*AccountDTO, error) {
	account, err := s.accounts.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !account.Active() {
		return nil, domain.NewValidationError("loyalty account %s is inactive", account.Number())
	}
	if err := account.Bonus(req.Points, nil, req.Description); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, actor, "loyalty.bonus", "loyalty_account", account.ID().String(),
		"bonus points granted to "+account.Number())

	dto := toAccountDTO(account)
	return &dto, nil
}

// toAccountDTO maps a domain Account to an AccountDTO.
func toAccountDTO(a *loyalty.Account) AccountDTO {
	return AccountDTO{
		ID:             a.ID(),
		Number:         a.Number(),
		GuestID:        a.GuestID(),
		Balance:        a.Balance(),
		LifetimePoints: a.LifetimePoints(),
		Tier:           string(a.Tier()),
		Active:         a.Active(),
		CreatedAt:      a.CreatedAt(),
	}
}
