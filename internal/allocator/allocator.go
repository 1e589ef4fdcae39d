// Package allocator owns the contended part of the engine: proving room
// units free for a date range and claiming them without double-booking.
package allocator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/pricing"
)

// RoomRequest asks for a number of units of one type carrying a share of the
// booking's guests.
type RoomRequest struct {
	Type     room.Type
	Quantity int
	Guests   int
}

// AvailabilityNotifier receives availability-changed notifications when a
// unit returns to the pool. Delivery is best-effort; the allocator never
// fails a release over a notification error.
type AvailabilityNotifier interface {
	NotifyAvailability(ctx context.Context, roomType room.Type, roomNumber string, availableFrom time.Time)
}

// Allocator finds and claims room units. The check-overlap → claim sequence
// for a booking runs under a per-room-type mutex, taken in sorted order
// across all requested types, so two concurrent requests for the last unit
// serialize and exactly one succeeds.
type Allocator struct {
	rooms    room.Repository
	pricer   *pricing.Engine
	notifier AvailabilityNotifier
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[room.Type]*sync.Mutex
}

// New creates an Allocator.
func New(rooms room.Repository, pricer *pricing.Engine, notifier AvailabilityNotifier, logger *zap.Logger) *Allocator {
	return &Allocator{
		rooms:    rooms,
		pricer:   pricer,
		notifier: notifier,
		logger:   logger,
		locks:    make(map[room.Type]*sync.Mutex),
	}
}

// FindAvailable returns units of the given type free for [checkIn, checkOut).
func (a *Allocator) FindAvailable(ctx context.Context, roomType room.Type, checkIn, checkOut time.Time) ([]*room.Unit, error) {
	return a.rooms.FindAvailable(ctx, roomType, checkIn, checkOut)
}

func (a *Allocator) lockFor(t room.Type) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[t]
	if !ok {
		l = &sync.Mutex{}
		a.locks[t] = l
	}
	return l
}

// lockTypes acquires the mutexes for all requested types in sorted order and
// returns the unlock function.
func (a *Allocator) lockTypes(requests []RoomRequest) func() {
	types := make([]string, 0, len(requests))
	seen := make(map[string]bool, len(requests))
	for _, req := range requests {
		t := string(req.Type)
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)

	locked := make([]*sync.Mutex, 0, len(types))
	for _, t := range types {
		l := a.lockFor(room.Type(t))
		l.Lock()
		locked = append(locked, l)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}

// DistributeGuests splits guests evenly across rooms, each room capped at
// maxOccupancy. Every room must hold at least one guest.
func DistributeGuests(totalGuests, rooms, maxOccupancy int) ([]int, error) {
	if rooms < 1 {
		return nil, domain.NewValidationError("at least one room is required")
	}
	if totalGuests < rooms {
		return nil, domain.NewValidationError("%d guests cannot occupy %d rooms", totalGuests, rooms)
	}
	if totalGuests > rooms*maxOccupancy {
		return nil, domain.NewOccupancyExceededError(totalGuests, rooms*maxOccupancy)
	}

	counts := make([]int, rooms)
	base := totalGuests / rooms
	rem := totalGuests % rooms
	for i := range counts {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts, nil
}

// stayIsCurrent reports whether the stay covers today.
func stayIsCurrent(res *reservation.Reservation) bool {
	today := reservation.Midnight(time.Now().UTC())
	return !res.CheckInDate().After(today) && today.Before(res.CheckOutDate())
}

// Assign claims units for every request as one atomic region. Occupancy is
// validated for all requests before any unit is touched; an availability
// shortfall for any type claims nothing. On success the reservation carries
// one assignment per unit with the average nightly rate locked in.
//
// The persisted assignment rows are the claim: availability is decided by
// date-range overlap against them, so the same unit can hold any number of
// disjoint stays. The unit's status flag tracks the physical room and is
// flipped to Reserved only when the stay covers today.
//
// persist, when non-nil, runs while the type locks are still held so the
// assignment rows exist before a concurrent overlap check can run. If it
// fails, every claim is rolled back.
func (a *Allocator) Assign(ctx context.Context, res *reservation.Reservation, requests []RoomRequest, persist func(context.Context) error) error {
	if len(requests) == 0 {
		return domain.NewValidationError("at least one room request is required")
	}

	// Validate occupancy up front so OccupancyExceeded surfaces before any
	// claim is attempted.
	distributions := make([][]int, len(requests))
	for i, req := range requests {
		info, ok := room.TypeInfoFor(req.Type)
		if !ok {
			return domain.NewValidationError("unknown room type: %s", req.Type)
		}
		if req.Quantity < 1 {
			return domain.NewValidationError("room quantity must be at least 1 for type %s", req.Type)
		}
		counts, err := DistributeGuests(req.Guests, req.Quantity, info.MaxOccupancy)
		if err != nil {
			return err
		}
		distributions[i] = counts
	}

	unlock := a.lockTypes(requests)
	defer unlock()

	// First pass: prove availability for every type before claiming any
	// unit. Units picked for one request are off the table for the next, so
	// two requests for the same type never select the same unit.
	selected := make([][]*room.Unit, len(requests))
	taken := make(map[uuid.UUID]bool)
	for i, req := range requests {
		units, err := a.rooms.FindAvailable(ctx, req.Type, res.CheckInDate(), res.CheckOutDate())
		if err != nil {
			return err
		}
		picked := make([]*room.Unit, 0, req.Quantity)
		for _, unit := range units {
			if taken[unit.ID()] {
				continue
			}
			picked = append(picked, unit)
			taken[unit.ID()] = true
			if len(picked) == req.Quantity {
				break
			}
		}
		if len(picked) < req.Quantity {
			return domain.NewInsufficientInventoryError(string(req.Type), req.Quantity, len(picked))
		}
		selected[i] = picked
	}

	// Second pass: attach the assignments, flipping the physical flag for a
	// stay that is already underway. A failure rolls back every flipped unit
	// so no partial state survives.
	current := stayIsCurrent(res)
	flipped := make([]*room.Unit, 0)
	rollback := func() {
		res.RemoveAssignments()
		for _, unit := range flipped {
			if err := unit.MarkAvailable(); err == nil {
				if err := a.rooms.Update(ctx, unit); err != nil {
					a.logger.Error("failed to roll back room claim",
						zap.String("room_number", unit.Number()),
						zap.Error(err),
					)
				}
			}
		}
	}

	for i, req := range requests {
		rate := a.pricer.AverageNightlyRate(req.Type, res.CheckInDate(), res.CheckOutDate())
		for j, unit := range selected[i] {
			if current {
				if err := unit.MarkReserved(); err != nil {
					rollback()
					return domain.NewConcurrencyConflictError("room " + unit.Number() + " was taken by a concurrent operation")
				}
				if err := a.rooms.Update(ctx, unit); err != nil {
					rollback()
					return err
				}
				flipped = append(flipped, unit)
			}

			if err := res.AddAssignment(unit, rate, distributions[i][j]); err != nil {
				rollback()
				return err
			}
		}
	}

	if persist != nil {
		if err := persist(ctx); err != nil {
			rollback()
			return err
		}
	}

	a.logger.Info("rooms assigned",
		zap.String("reservation", res.ConfirmationCode()),
		zap.Int("units", len(taken)),
	)
	return nil
}

// ReleaseAll releases every unit held by the reservation. Via check-out the
// units go to Cleaning and become available the following day; otherwise
// (cancellation) they become available as of the original check-in date. The
// physical flag is only reverted when this stay set it: a cancelled future
// booking never touches a unit that another stay is using today.
func (a *Allocator) ReleaseAll(ctx context.Context, res *reservation.Reservation, viaCheckOut bool) error {
	availableFrom := res.CheckInDate()
	if viaCheckOut {
		availableFrom = reservation.Midnight(time.Now().UTC()).AddDate(0, 0, 1)
	}
	current := stayIsCurrent(res)

	for _, assignment := range res.Assignments() {
		if err := a.release(ctx, assignment, viaCheckOut, current, availableFrom); err != nil {
			return err
		}
	}
	return nil
}

func (a *Allocator) release(ctx context.Context, assignment reservation.RoomAssignment, viaCheckOut, current bool, availableFrom time.Time) error {
	unit, err := a.rooms.FindByID(ctx, assignment.RoomUnitID)
	if err != nil {
		return err
	}

	switch {
	case viaCheckOut:
		if err := unit.MarkCleaning(); err != nil {
			return err
		}
		if err := a.rooms.Update(ctx, unit); err != nil {
			return err
		}
	case current && unit.Status() == room.StatusReserved:
		if err := unit.MarkAvailable(); err != nil {
			return err
		}
		if err := a.rooms.Update(ctx, unit); err != nil {
			return err
		}
	}

	if a.notifier != nil {
		a.notifier.NotifyAvailability(ctx, unit.RoomType(), unit.Number(), availableFrom)
	}
	return nil
}

// OccupyAll flips every assigned unit to Occupied at check-in. A unit booked
// in advance arrives here still flagged Available; a same-day turnover may
// arrive flagged Cleaning.
func (a *Allocator) OccupyAll(ctx context.Context, res *reservation.Reservation) error {
	for _, assignment := range res.Assignments() {
		unit, err := a.rooms.FindByID(ctx, assignment.RoomUnitID)
		if err != nil {
			return err
		}
		if err := unit.MarkOccupied(); err != nil {
			return err
		}
		if err := a.rooms.Update(ctx, unit); err != nil {
			return err
		}
	}
	return nil
}

// RevertOccupancy returns every assigned unit from Occupied to Reserved,
// unwinding an OccupyAll whose surrounding operation did not complete.
func (a *Allocator) RevertOccupancy(ctx context.Context, res *reservation.Reservation) error {
	for _, assignment := range res.Assignments() {
		unit, err := a.rooms.FindByID(ctx, assignment.RoomUnitID)
		if err != nil {
			return err
		}
		if err := unit.RevertOccupancy(); err != nil {
			return err
		}
		if err := a.rooms.Update(ctx, unit); err != nil {
			return err
		}
	}
	return nil
}
