package loyalty

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain"
)

// Tier classifies an account by lifetime points. Tier affects the earn-rate
// multiplier only, never the redemption value.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// tierThresholds maps lifetime-point floors to tiers, highest first.
var tierThresholds = []struct {
	minLifetime int64
	tier        Tier
	multiplier  float64
}{
	{10000, TierPlatinum, 2.0},
	{5000, TierGold, 1.5},
	{1000, TierSilver, 1.25},
	{0, TierBronze, 1.0},
}

// TierFor derives the tier for a lifetime point total.
func TierFor(lifetimePoints int64) Tier {
	for _, t := range tierThresholds {
		if lifetimePoints >= t.minLifetime {
			return t.tier
		}
	}
	return TierBronze
}

// EarnMultiplier returns the earn-rate multiplier for a tier.
func EarnMultiplier(tier Tier) float64 {
	for _, t := range tierThresholds {
		if t.tier == tier {
			return t.multiplier
		}
	}
	return 1.0
}

// EarnedPoints computes the points earned for a payment: one point per
// whole currency unit paid, scaled by the earn rate and the tier multiplier,
// floored. The tier is the one held at posting time.
func EarnedPoints(paidCents int64, tier Tier, earnRate float64) int64 {
	if paidCents <= 0 || earnRate <= 0 {
		return 0
	}
	return int64(math.Floor(float64(paidCents) / 100.0 * earnRate * EarnMultiplier(tier)))
}

// Account is the aggregate root for a guest's loyalty membership. Balance
// never goes below zero; lifetime points only grow.
type Account struct {
	id             uuid.UUID
	number         string
	guestID        uuid.UUID
	balance        int64
	lifetimePoints int64
	active         bool
	createdAt      time.Time
	updatedAt      time.Time

	// transactions posted since the aggregate was loaded; the repository
	// appends these to the ledger when the account is saved.
	pending []Transaction
}

// NewAccount opens an account at zero balance. The welcome bonus is posted
// separately by the ledger service so it lands in the transaction log.
func NewAccount(guestID uuid.UUID) *Account {
	now := time.Now().UTC()
	id := uuid.New()
	return &Account{
		id:        id,
		number:    fmt.Sprintf("LY-%08X", id.ID()),
		guestID:   guestID,
		active:    true,
		createdAt: now,
		updatedAt: now,
	}
}

// Reconstitute rebuilds an Account from persistence.
func Reconstitute(id uuid.UUID, number string, guestID uuid.UUID, balance, lifetimePoints int64, active bool, createdAt, updatedAt time.Time) *Account {
	return &Account{
		id:             id,
		number:         number,
		guestID:        guestID,
		balance:        balance,
		lifetimePoints: lifetimePoints,
		active:         active,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (a *Account) ID() uuid.UUID         { return a.id }
func (a *Account) Number() string        { return a.number }
func (a *Account) GuestID() uuid.UUID    { return a.guestID }
func (a *Account) Balance() int64        { return a.balance }
func (a *Account) LifetimePoints() int64 { return a.lifetimePoints }
func (a *Account) Active() bool          { return a.active }
func (a *Account) CreatedAt() time.Time  { return a.createdAt }
func (a *Account) UpdatedAt() time.Time  { return a.updatedAt }

// Tier derives the current tier from lifetime points.
func (a *Account) Tier() Tier {
	return TierFor(a.lifetimePoints)
}

// PendingTransactions returns ledger entries posted since load, in order.
func (a *Account) PendingTransactions() []Transaction {
	return a.pending
}

// ClearPending drops the pending entries after the repository persisted them.
func (a *Account) ClearPending() {
	a.pending = nil
}

// Earn posts an Earn transaction. Both balance and lifetime points increase.
func (a *Account) Earn(points int64, reservationID *uuid.UUID, description string) error {
	if points <= 0 {
		return domain.NewValidationError("earned points must be positive, got %d", points)
	}
	a.balance += points
	a.lifetimePoints += points
	a.post(TransactionEarn, points, reservationID, description)
	return nil
}

// Redeem posts a Redeem transaction with a negative delta. Lifetime points
// are unchanged. The per-reservation cap is enforced by the ledger service,
// which knows the configured maximum.
func (a *Account) Redeem(points int64, reservationID *uuid.UUID, description string) error {
	if points <= 0 {
		return domain.NewValidationError("redeemed points must be positive, got %d", points)
	}
	if points > a.balance {
		return domain.NewInsufficientPointsError(points, a.balance)
	}
	a.balance -= points
	a.post(TransactionRedeem, -points, reservationID, description)
	return nil
}

// Bonus posts a Bonus transaction. Used for welcome bonuses and point
// refunds on cancellation; both balance and lifetime points increase.
func (a *Account) Bonus(points int64, reservationID *uuid.UUID, description string) error {
	if points <= 0 {
		return domain.NewValidationError("bonus points must be positive, got %d", points)
	}
	a.balance += points
	a.lifetimePoints += points
	a.post(TransactionBonus, points, reservationID, description)
	return nil
}

// Deactivate closes the account for further earning and redemption.
func (a *Account) Deactivate() {
	a.active = false
	a.updatedAt = time.Now().UTC()
}

func (a *Account) post(txType TransactionType, delta int64, reservationID *uuid.UUID, description string) {
	now := time.Now().UTC()
	a.updatedAt = now
	a.pending = append(a.pending, Transaction{
		ID:            uuid.New(),
		AccountID:     a.id,
		Type:          txType,
		PointsDelta:   delta,
		BalanceAfter:  a.balance,
		ReservationID: reservationID,
		Description:   description,
		CreatedAt:     now,
	})
}
