package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionType is the kind of ledger entry.
type TransactionType string

const (
	TransactionEarn   TransactionType = "earn"
	TransactionRedeem TransactionType = "redeem"
	TransactionBonus  TransactionType = "bonus"
)

// Transaction is an immutable, append-only ledger entry. BalanceAfter
// snapshots the account balance at posting time so the full balance history
// can be reconstructed from the ledger alone.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Type          TransactionType `json:"type"`
	PointsDelta   int64           `json:"points_delta"`
	BalanceAfter  int64           `json:"balance_after"`
	ReservationID *uuid.UUID      `json:"reservation_id,omitempty"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Repository is the loyalty store contract. Save persists the account state
// together with its pending ledger entries as one unit.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByNumber(ctx context.Context, number string) (*Account, error)
	FindByGuestID(ctx context.Context, guestID uuid.UUID) (*Account, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*Account, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]Transaction, error)
	Save(ctx context.Context, account *Account) error
}
