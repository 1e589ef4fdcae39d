package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/guest"
	"github.com/grandline-hms/service-reservation/internal/domain/loyalty"
	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/domain/waitlist"
)

// In-memory fakes shared by the application service tests.

type fakeGuestDirectory struct {
	mu      sync.Mutex
	byEmail map[string]*guest.Guest
}

func newFakeGuestDirectory() *fakeGuestDirectory {
	return &fakeGuestDirectory{byEmail: make(map[string]*guest.Guest)}
}

func (f *fakeGuestDirectory) FindByID(_ context.Context, id uuid.UUID) (*guest.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.byEmail {
		if g.ID() == id {
			return g, nil
		}
	}
	return nil, domain.NewNotFoundError("guest", id.String())
}

func (f *fakeGuestDirectory) FindByEmail(_ context.Context, email string) (*guest.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byEmail[email]
	if !ok {
		return nil, domain.NewNotFoundError("guest", email)
	}
	return g, nil
}

func (f *fakeGuestDirectory) Save(_ context.Context, g *guest.Guest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[g.Email()] = g
	return nil
}

func (f *fakeGuestDirectory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

type fakeReservationRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*reservation.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{byID: make(map[uuid.UUID]*reservation.Reservation)}
}

func (f *fakeReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id.String())
	}
	return res, nil
}

func (f *fakeReservationRepo) FindByConfirmationCode(_ context.Context, code string) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.byID {
		if res.ConfirmationCode() == code {
			return res, nil
		}
	}
	return nil, domain.NewNotFoundError("reservation", code)
}

func (f *fakeReservationRepo) FindOverlapping(context.Context, uuid.UUID, time.Time, time.Time) ([]*reservation.Reservation, error) {
	return nil, nil
}

func (f *fakeReservationRepo) ListAll(_ context.Context, page, limit int) ([]*reservation.Reservation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*reservation.Reservation, 0, len(f.byID))
	for _, res := range f.byID {
		all = append(all, res)
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeReservationRepo) Save(_ context.Context, r *reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[r.ID()] = r
	return nil
}

func (f *fakeReservationRepo) Update(_ context.Context, r *reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[r.ID()] = r
	return nil
}

type fakeLoyaltyRepo struct {
	mu      sync.Mutex
	byGuest map[uuid.UUID]*loyalty.Account
	ledger  []loyalty.Transaction
}

func newFakeLoyaltyRepo() *fakeLoyaltyRepo {
	return &fakeLoyaltyRepo{byGuest: make(map[uuid.UUID]*loyalty.Account)}
}

func (f *fakeLoyaltyRepo) FindByID(_ context.Context, id uuid.UUID) (*loyalty.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byGuest {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, domain.NewNotFoundError("loyalty account", id.String())
}

func (f *fakeLoyaltyRepo) FindByNumber(_ context.Context, number string) (*loyalty.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byGuest {
		if a.Number() == number {
			return a, nil
		}
	}
	return nil, domain.NewNotFoundError("loyalty account", number)
}

func (f *fakeLoyaltyRepo) FindByGuestID(_ context.Context, guestID uuid.UUID) (*loyalty.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byGuest[guestID]
	if !ok {
		return nil, domain.NewNotFoundError("loyalty account", guestID.String())
	}
	return a, nil
}

func (f *fakeLoyaltyRepo) FindByEmailOrPhone(context.Context, string, string) (*loyalty.Account, error) {
	return nil, domain.NewNotFoundError("loyalty account", "")
}

func (f *fakeLoyaltyRepo) ListTransactions(_ context.Context, accountID uuid.UUID) ([]loyalty.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []loyalty.Transaction
	for _, tx := range f.ledger {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLoyaltyRepo) Save(_ context.Context, account *loyalty.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = append(f.ledger, account.PendingTransactions()...)
	account.ClearPending()
	f.byGuest[account.GuestID()] = account
	return nil
}

type fakeRoomRepo struct {
	mu    sync.Mutex
	units map[uuid.UUID]*room.Unit
}

func newFakeRoomRepo(units ...*room.Unit) *fakeRoomRepo {
	repo := &fakeRoomRepo{units: make(map[uuid.UUID]*room.Unit)}
	for _, u := range units {
		repo.units[u.ID()] = u
	}
	return repo
}

func (f *fakeRoomRepo) FindByID(_ context.Context, id uuid.UUID) (*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unit, ok := f.units[id]
	if !ok {
		return nil, domain.NewNotFoundError("room unit", id.String())
	}
	return unit, nil
}

func (f *fakeRoomRepo) FindByNumber(_ context.Context, number string) (*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, unit := range f.units {
		if unit.Number() == number {
			return unit, nil
		}
	}
	return nil, domain.NewNotFoundError("room unit", number)
}

func (f *fakeRoomRepo) FindAvailable(_ context.Context, roomType room.Type, _, _ time.Time) ([]*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*room.Unit
	for _, unit := range f.units {
		if unit.RoomType() == roomType && unit.Status() == room.StatusAvailable {
			out = append(out, unit)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) List(_ context.Context) ([]*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*room.Unit, 0, len(f.units))
	for _, unit := range f.units {
		out = append(out, unit)
	}
	return out, nil
}

func (f *fakeRoomRepo) Save(_ context.Context, unit *room.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[unit.ID()] = unit
	return nil
}

func (f *fakeRoomRepo) Update(_ context.Context, unit *room.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[unit.ID()] = unit
	return nil
}

type fakeWaitlistRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*waitlist.Entry
}

func newFakeWaitlistRepo() *fakeWaitlistRepo {
	return &fakeWaitlistRepo{entries: make(map[uuid.UUID]*waitlist.Entry)}
}

func (f *fakeWaitlistRepo) Add(_ context.Context, e *waitlist.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID()] = e
	return nil
}

func (f *fakeWaitlistRepo) FindByRoomType(_ context.Context, roomType room.Type) ([]*waitlist.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*waitlist.Entry
	for _, e := range f.entries {
		if e.RoomType() == roomType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeWaitlistRepo) Update(_ context.Context, e *waitlist.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID()] = e
	return nil
}

func (f *fakeWaitlistRepo) Remove(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishLifecycle(_ context.Context, eventType string, _ *reservation.Reservation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

type recordingSink struct {
	mu      sync.Mutex
	actions []string
}

func (s *recordingSink) Record(_ context.Context, _, action, _, _, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
}
