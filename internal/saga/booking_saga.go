package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/adapter"
	"github.com/grandline-hms/service-reservation/internal/allocator"
	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/loyalty"
	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/events"
	"github.com/grandline-hms/service-reservation/internal/pricing"
)

// LifecyclePublisher ships reservation lifecycle events. Publishing is
// fire-and-forget; implementations never fail the caller.
type LifecyclePublisher interface {
	PublishLifecycle(ctx context.Context, eventType string, res *reservation.Reservation)
}

// BookingSagaService orchestrates the composite booking workflows: room
// claims, loyalty mutations and persistence that must succeed or unwind
// together.
type BookingSagaService struct {
	reservations reservation.Repository
	accounts     loyalty.Repository
	alloc        *allocator.Allocator
	pricer       *pricing.Engine
	publisher    LifecyclePublisher
	sink         adapter.ActivitySink
	logger       *zap.Logger

	earnRate       float64
	conversionRate float64
	redemptionCap  int64
}

// NewBookingSagaService creates a BookingSagaService.
func NewBookingSagaService(
	reservations reservation.Repository,
	accounts loyalty.Repository,
	alloc *allocator.Allocator,
	pricer *pricing.Engine,
	publisher LifecyclePublisher,
	sink adapter.ActivitySink,
	earnRate, conversionRate float64,
	redemptionCap int64,
	logger *zap.Logger,
) *BookingSagaService {
	return &BookingSagaService{
		reservations:   reservations,
		accounts:       accounts,
		alloc:          alloc,
		pricer:         pricer,
		publisher:      publisher,
		sink:           sink,
		earnRate:       earnRate,
		conversionRate: conversionRate,
		redemptionCap:  redemptionCap,
		logger:         logger,
	}
}

// CreateBookingSaga claims rooms, persists the reservation, applies an
// optional loyalty redemption and publishes the created event. Any failure
// compensates in reverse order so no claimed room or redeemed point survives
// a failed booking.
//
// The reservation arrives with its add-on lines and percentage discount
// already attached; the saga owns every side effect.
func (s *BookingSagaService) CreateBookingSaga(
	ctx context.Context,
	res *reservation.Reservation,
	requests []allocator.RoomRequest,
	redeemPoints int64,
	actor string,
) error {
	sg := New("create_booking", s.logger)

	// Step 1: claim rooms and persist the reservation inside the claim's
	// locked region, so a concurrent overlap check sees the booking.
	sg.AddStep(Step{
		Name: "claim_rooms",
		Execute: func(ctx context.Context) error {
			return s.alloc.Assign(ctx, res, requests, func(ctx context.Context) error {
				res.Recalculate(s.pricer)
				return s.reservations.Save(ctx, res)
			})
		},
		Compensate: func(ctx context.Context) error {
			if err := s.alloc.ReleaseAll(ctx, res, false); err != nil {
				s.logger.Error("failed to release rooms during compensation",
					zap.String("reservation", res.ConfirmationCode()),
					zap.Error(err),
				)
			}
			if err := res.Cancel(); err != nil {
				return err
			}
			res.IncrementVersion()
			return s.reservations.Update(ctx, res)
		},
	})

	// Step 2: redeem loyalty points against the payable amount. The
	// reservation row is updated before the account is saved; if the ledger
	// write fails the booking compensates as a whole.
	if redeemPoints > 0 {
		sg.AddStep(Step{
			Name: "redeem_points",
			Execute: func(ctx context.Context) error {
				return s.redeemForReservation(ctx, res, redeemPoints)
			},
			Compensate: func(ctx context.Context) error {
				return s.refundPoints(ctx, res, "booking failed, points refunded")
			},
		})
	}

	// Step 3: publish the created event and the activity record. Both are
	// fire-and-forget.
	sg.AddStep(Step{
		Name: "publish_created_event",
		Execute: func(ctx context.Context) error {
			s.publisher.PublishLifecycle(ctx, events.ReservationCreated, res)
			s.sink.Record(ctx, actor, "reservation.create", "reservation", res.ID().String(),
				fmt.Sprintf("reservation %s created for %d night(s)", res.ConfirmationCode(), res.Nights()))
			return nil
		},
		Compensate: nil,
	})

	return sg.Execute(ctx)
}

// CancelBookingSaga releases every held room, refunds redeemed points and
// moves the reservation to Cancelled.
func (s *BookingSagaService) CancelBookingSaga(ctx context.Context, res *reservation.Reservation, actor string) error {
	if !reservation.CanTransition(res.Status(), reservation.StatusCancelled) {
		return domain.NewInvalidTransitionError(string(res.Status()), string(reservation.StatusCancelled))
	}

	sg := New("cancel_booking", s.logger)

	// Step 1: release the rooms, effective the original check-in date.
	sg.AddStep(Step{
		Name: "release_rooms",
		Execute: func(ctx context.Context) error {
			return s.alloc.ReleaseAll(ctx, res, false)
		},
		Compensate: nil, // released units are re-claimable immediately
	})

	// Step 2: refund redeemed points through a Bonus posting.
	if res.PointsRedeemed() > 0 {
		sg.AddStep(Step{
			Name: "refund_points",
			Execute: func(ctx context.Context) error {
				return s.refundPoints(ctx, res, "reservation cancelled, points refunded")
			},
			Compensate: nil,
		})
	}

	// Step 3: transition and persist.
	sg.AddStep(Step{
		Name: "cancel_reservation",
		Execute: func(ctx context.Context) error {
			if err := res.Cancel(); err != nil {
				return err
			}
			res.Recalculate(s.pricer)
			res.IncrementVersion()
			return s.reservations.Update(ctx, res)
		},
		Compensate: nil,
	})

	// Step 4: publish.
	sg.AddStep(Step{
		Name: "publish_cancelled_event",
		Execute: func(ctx context.Context) error {
			s.publisher.PublishLifecycle(ctx, events.ReservationCancelled, res)
			s.sink.Record(ctx, actor, "reservation.cancel", "reservation", res.ID().String(),
				"reservation "+res.ConfirmationCode()+" cancelled")
			return nil
		},
		Compensate: nil,
	})

	return sg.Execute(ctx)
}

// CheckInSaga starts the stay: the reservation transitions to CheckedIn and
// its units flip to Occupied. If persisting the reservation fails the
// occupancy is reverted, so the physical flags never disagree with the
// stored status.
func (s *BookingSagaService) CheckInSaga(ctx context.Context, res *reservation.Reservation, actor string) error {
	sg := New("check_in", s.logger)

	// Step 1: the domain transition. In-memory until the persist step, so
	// there is nothing to compensate.
	sg.AddStep(Step{
		Name: "check_in_reservation",
		Execute: func(ctx context.Context) error {
			return res.CheckIn(time.Now().UTC())
		},
		Compensate: nil,
	})

	// Step 2: the guest takes the rooms.
	sg.AddStep(Step{
		Name: "occupy_rooms",
		Execute: func(ctx context.Context) error {
			return s.alloc.OccupyAll(ctx, res)
		},
		Compensate: func(ctx context.Context) error {
			return s.alloc.RevertOccupancy(ctx, res)
		},
	})

	// Step 3: persist.
	sg.AddStep(Step{
		Name: "persist_reservation",
		Execute: func(ctx context.Context) error {
			res.IncrementVersion()
			return s.reservations.Update(ctx, res)
		},
		Compensate: nil,
	})

	// Step 4: publish.
	sg.AddStep(Step{
		Name: "publish_checked_in_event",
		Execute: func(ctx context.Context) error {
			s.publisher.PublishLifecycle(ctx, events.ReservationCheckedIn, res)
			s.sink.Record(ctx, actor, "reservation.check_in", "reservation", res.ID().String(),
				"reservation "+res.ConfirmationCode()+" checked in")
			return nil
		},
		Compensate: nil,
	})

	return sg.Execute(ctx)
}

// CheckOutSaga releases the rooms to cleaning, completes the stay and earns
// loyalty points on the final amount paid.
func (s *BookingSagaService) CheckOutSaga(ctx context.Context, res *reservation.Reservation, actor string) error {
	if !reservation.CanTransition(res.Status(), reservation.StatusCheckedOut) {
		return domain.NewInvalidTransitionError(string(res.Status()), string(reservation.StatusCheckedOut))
	}
	if res.OutstandingBalance() > 0 {
		return domain.NewValidationError("outstanding balance of %d cents must be settled before check-out", res.OutstandingBalance())
	}

	sg := New("check_out", s.logger)

	// Step 1: rooms go to cleaning, available from tomorrow. If a later step
	// fails the guest keeps the rooms.
	sg.AddStep(Step{
		Name: "release_rooms",
		Execute: func(ctx context.Context) error {
			return s.alloc.ReleaseAll(ctx, res, true)
		},
		Compensate: func(ctx context.Context) error {
			return s.alloc.OccupyAll(ctx, res)
		},
	})

	// Step 2: complete the stay.
	sg.AddStep(Step{
		Name: "checkout_reservation",
		Execute: func(ctx context.Context) error {
			if err := res.CheckOut(); err != nil {
				return err
			}
			res.IncrementVersion()
			return s.reservations.Update(ctx, res)
		},
		Compensate: nil, // a persisted check-out is not undone
	})

	// Step 3: earn points on the amount actually paid. Guests without an
	// account simply earn nothing.
	sg.AddStep(Step{
		Name: "earn_points",
		Execute: func(ctx context.Context) error {
			return s.earnForStay(ctx, res)
		},
		Compensate: nil,
	})

	// Step 4: publish.
	sg.AddStep(Step{
		Name: "publish_checked_out_event",
		Execute: func(ctx context.Context) error {
			s.publisher.PublishLifecycle(ctx, events.ReservationCheckedOut, res)
			s.sink.Record(ctx, actor, "reservation.check_out", "reservation", res.ID().String(),
				"reservation "+res.ConfirmationCode()+" checked out")
			return nil
		},
		Compensate: nil,
	})

	return sg.Execute(ctx)
}

// redeemForReservation validates the cap, posts the redemption and applies
// the resulting discount to the reservation.
func (s *BookingSagaService) redeemForReservation(ctx context.Context, res *reservation.Reservation, points int64) error {
	if s.redemptionCap > 0 && points > s.redemptionCap {
		return domain.NewRedemptionCapError(points, s.redemptionCap)
	}

	account, err := s.accounts.FindByGuestID(ctx, res.GuestID())
	if err != nil {
		return err
	}
	if !account.Active() {
		return domain.NewValidationError("loyalty account %s is inactive", account.Number())
	}

	payable := s.pricer.ApplyPercentageDiscount(res.Subtotal(), res.DiscountPct())
	discount := s.pricer.LoyaltyDiscount(payable, points, s.conversionRate)

	resID := res.ID()
	if err := account.Redeem(points, &resID, "redeemed against reservation "+res.ConfirmationCode()); err != nil {
		return err
	}

	res.ApplyRedemption(points, discount)
	res.Recalculate(s.pricer)
	res.IncrementVersion()
	if err := s.reservations.Update(ctx, res); err != nil {
		return err
	}
	return s.accounts.Save(ctx, account)
}

// refundPoints reverses a redemption with a Bonus posting and clears the
// redemption from the reservation.
func (s *BookingSagaService) refundPoints(ctx context.Context, res *reservation.Reservation, description string) error {
	points := res.PointsRedeemed()
	if points <= 0 {
		return nil
	}

	account, err := s.accounts.FindByGuestID(ctx, res.GuestID())
	if err != nil {
		return err
	}

	resID := res.ID()
	if err := account.Bonus(points, &resID, description); err != nil {
		return err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return err
	}

	res.ClearRedemption()
	return nil
}

// earnForStay posts earned points for a completed stay; the tier multiplier
// is the one held at posting time.
func (s *BookingSagaService) earnForStay(ctx context.Context, res *reservation.Reservation) error {
	account, err := s.accounts.FindByGuestID(ctx, res.GuestID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if !account.Active() {
		return nil
	}

	points := loyalty.EarnedPoints(res.AmountPaid(), account.Tier(), s.earnRate)
	if points <= 0 {
		return nil
	}

	resID := res.ID()
	if err := account.Earn(points, &resID, "stay "+res.ConfirmationCode()+" completed"); err != nil {
		return err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return err
	}

	s.logger.Info("loyalty points earned",
		zap.String("account", account.Number()),
		zap.Int64("points", points),
		zap.String("tier", string(account.Tier())),
	)
	s.sink.Record(ctx, "system", "loyalty.earn", "loyalty_account", account.ID().String(),
		fmt.Sprintf("%d point(s) earned for stay %s", points, res.ConfirmationCode()))
	return nil
}
