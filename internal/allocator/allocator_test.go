package allocator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/pricing"
)

// stayClaim is one persisted assignment row as FindAvailable's overlap
// filter sees it.
type stayClaim struct {
	unitID   uuid.UUID
	checkIn  time.Time
	checkOut time.Time
}

// fakeRoomRepository is an in-memory room.Repository with value-copy
// semantics: reads hand out detached copies and only Update writes back, so
// a failed Update leaves the stored state untouched just like a real row.
// FindAvailable mirrors the production query: maintenance units are excluded
// and a unit is taken when a recorded claim overlaps the range under
// half-open semantics.
type fakeRoomRepository struct {
	mu     sync.Mutex
	units  map[uuid.UUID]*room.Unit
	claims []stayClaim

	failOnUpdate int // 1-based Update call that fails; 0 disables
	updates      int
}

func newFakeRoomRepository(units ...*room.Unit) *fakeRoomRepository {
	repo := &fakeRoomRepository{units: make(map[uuid.UUID]*room.Unit)}
	for _, u := range units {
		repo.units[u.ID()] = u
	}
	return repo
}

func copyUnit(u *room.Unit) *room.Unit {
	return room.Reconstitute(u.ID(), u.Number(), u.RoomType(), u.Status(), u.CreatedAt(), u.UpdatedAt())
}

func (f *fakeRoomRepository) FindByID(_ context.Context, id uuid.UUID) (*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unit, ok := f.units[id]
	if !ok {
		return nil, domain.NewNotFoundError("room unit", id.String())
	}
	return copyUnit(unit), nil
}

func (f *fakeRoomRepository) FindByNumber(_ context.Context, number string) (*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, unit := range f.units {
		if unit.Number() == number {
			return copyUnit(unit), nil
		}
	}
	return nil, domain.NewNotFoundError("room unit", number)
}

func (f *fakeRoomRepository) FindAvailable(_ context.Context, roomType room.Type, checkIn, checkOut time.Time) ([]*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*room.Unit
	for _, unit := range f.units {
		if unit.RoomType() != roomType || unit.Status() == room.StatusMaintenance {
			continue
		}
		if f.overlaps(unit.ID(), checkIn, checkOut) {
			continue
		}
		out = append(out, copyUnit(unit))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number() < out[j].Number() })
	return out, nil
}

func (f *fakeRoomRepository) overlaps(unitID uuid.UUID, checkIn, checkOut time.Time) bool {
	for _, c := range f.claims {
		if c.unitID == unitID && c.checkIn.Before(checkOut) && checkIn.Before(c.checkOut) {
			return true
		}
	}
	return false
}

func (f *fakeRoomRepository) List(_ context.Context) ([]*room.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*room.Unit, 0, len(f.units))
	for _, unit := range f.units {
		out = append(out, copyUnit(unit))
	}
	return out, nil
}

func (f *fakeRoomRepository) Save(_ context.Context, unit *room.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[unit.ID()] = copyUnit(unit)
	return nil
}

func (f *fakeRoomRepository) Update(_ context.Context, unit *room.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failOnUpdate > 0 && f.updates == f.failOnUpdate {
		return errors.New("connection reset")
	}
	f.units[unit.ID()] = copyUnit(unit)
	return nil
}

// persist returns an Assign callback that records the reservation's
// assignments the way the row insert would.
func (f *fakeRoomRepository) persist(res *reservation.Reservation) func(context.Context) error {
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, a := range res.Assignments() {
			f.claims = append(f.claims, stayClaim{a.RoomUnitID, res.CheckInDate(), res.CheckOutDate()})
		}
		return nil
	}
}

func (f *fakeRoomRepository) claimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims)
}

func (f *fakeRoomRepository) countByStatus(status room.Status) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, unit := range f.units {
		if unit.Status() == status {
			n++
		}
	}
	return n
}

func mustUnit(t *testing.T, number string, roomType room.Type) *room.Unit {
	t.Helper()
	unit, err := room.NewUnit(number, roomType)
	require.NoError(t, err)
	return unit
}

func stayBetween(t *testing.T, checkIn time.Time, nights int) *reservation.Reservation {
	t.Helper()
	res, err := reservation.New(uuid.New(), checkIn, checkIn.AddDate(0, 0, nights), false)
	require.NoError(t, err)
	return res
}

// futureStay is a two-night weekday stay that does not cover today.
func futureStay(t *testing.T) *reservation.Reservation {
	t.Helper()
	return stayBetween(t, time.Date(2027, time.January, 4, 0, 0, 0, 0, time.UTC), 2) // Monday
}

// currentStay starts today, so claiming it flips the physical flag.
func currentStay(t *testing.T) *reservation.Reservation {
	t.Helper()
	return stayBetween(t, reservation.Midnight(time.Now().UTC()), 2)
}

func newTestAllocator(repo room.Repository) *Allocator {
	return New(repo, pricing.NewEngine(pricing.DefaultConfig()), nil, zap.NewNop())
}

func TestDistributeGuests(t *testing.T) {
	tests := []struct {
		name         string
		guests       int
		rooms        int
		maxOccupancy int
		want         []int
		wantErr      error
	}{
		{"even split", 4, 2, 4, []int{2, 2}, nil},
		{"remainder goes first", 5, 2, 4, []int{3, 2}, nil},
		{"one per room", 3, 3, 4, []int{1, 1, 1}, nil},
		{"single room full", 4, 1, 4, []int{4}, nil},
		{"fewer guests than rooms", 1, 2, 4, nil, domain.ErrValidation},
		{"zero rooms", 2, 0, 4, nil, domain.ErrValidation},
		{"over capacity", 9, 2, 4, nil, domain.ErrOccupancyExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistributeGuests(tt.guests, tt.rooms, tt.maxOccupancy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssign(t *testing.T) {
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	alloc := newTestAllocator(repo)
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 5},
	}, repo.persist(res))
	require.NoError(t, err)

	assert.Len(t, res.Assignments(), 2)
	assert.Equal(t, 5, res.TotalGuests())
	assert.Equal(t, 2, repo.claimCount())
	for _, a := range res.Assignments() {
		assert.Equal(t, int64(16000), a.NightlyRateCents)
	}

	// The stay is in the future: the claim is the assignment rows, the
	// physical flag stays available until the stay begins.
	assert.Equal(t, 2, repo.countByStatus(room.StatusAvailable))
}

func TestAssign_CurrentStayFlipsUnits(t *testing.T) {
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	alloc := newTestAllocator(repo)
	res := currentStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 4},
	}, repo.persist(res))
	require.NoError(t, err)

	assert.Equal(t, 2, repo.countByStatus(room.StatusReserved))
}

func TestAssign_DuplicateTypeRequestsGetDistinctUnits(t *testing.T) {
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	alloc := newTestAllocator(repo)
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
	}, repo.persist(res))
	require.NoError(t, err)

	assignments := res.Assignments()
	require.Len(t, assignments, 2)
	assert.NotEqual(t, assignments[0].RoomUnitID, assignments[1].RoomUnitID,
		"two requests for the same type must claim different units")
}

func TestAssign_DuplicateTypeShortfallClaimsNothing(t *testing.T) {
	// One double cannot satisfy two single-unit requests for doubles.
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
	}, repo.persist(res))

	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Empty(t, res.Assignments())
	assert.Equal(t, 0, repo.claimCount())
}

func TestAssign_BackToBackStaysShareUnit(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	request := []RoomRequest{{Type: room.TypeDouble, Quantity: 1, Guests: 2}}
	mar := func(day int) time.Time {
		return time.Date(2027, time.March, day, 0, 0, 0, 0, time.UTC)
	}

	first := stayBetween(t, mar(1), 4) // Mar 1-5
	require.NoError(t, alloc.Assign(context.Background(), first, request, repo.persist(first)))

	// A disjoint stay starting on the first stay's check-out day books the
	// same unit.
	second := stayBetween(t, mar(5), 2) // Mar 5-7
	require.NoError(t, alloc.Assign(context.Background(), second, request, repo.persist(second)))
	require.Len(t, second.Assignments(), 1)
	assert.Equal(t, first.Assignments()[0].RoomUnitID, second.Assignments()[0].RoomUnitID)

	// An overlapping stay does not.
	third := stayBetween(t, mar(4), 2) // Mar 4-6
	err := alloc.Assign(context.Background(), third, request, repo.persist(third))
	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Empty(t, third.Assignments())
}

func TestAssign_InsufficientInventoryClaimsNothing(t *testing.T) {
	// Two doubles requested for five guests over two nights, only one free.
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 5},
	}, repo.persist(res))

	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Empty(t, res.Assignments())
	assert.Equal(t, 0, repo.claimCount())
}

func TestAssign_MultiTypeShortfallClaimsNothing(t *testing.T) {
	// The double is free but the deluxe is not; the double must stay unclaimed.
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
		{Type: room.TypeDeluxe, Quantity: 1, Guests: 2},
	}, repo.persist(res))

	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Empty(t, res.Assignments())
	assert.Equal(t, 0, repo.claimCount())
}

func TestAssign_OccupancyValidatedBeforeClaiming(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "101", room.TypeSingle))
	alloc := newTestAllocator(repo)
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeSingle, Quantity: 1, Guests: 3},
	}, repo.persist(res))

	assert.ErrorIs(t, err, domain.ErrOccupancyExceeded)
	assert.Equal(t, 0, repo.claimCount())
}

func TestAssign_UnknownTypeAndBadQuantity(t *testing.T) {
	alloc := newTestAllocator(newFakeRoomRepository())
	res := futureStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.Type("igloo"), Quantity: 1, Guests: 1},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeSingle, Quantity: 0, Guests: 1},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = alloc.Assign(context.Background(), res, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAssign_PersistFailureRollsBack(t *testing.T) {
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	alloc := newTestAllocator(repo)
	res := currentStay(t)

	persistErr := errors.New("insert failed")
	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 4},
	}, func(context.Context) error {
		return persistErr
	})

	assert.ErrorIs(t, err, persistErr)
	assert.Empty(t, res.Assignments())
	assert.Equal(t, 2, repo.countByStatus(room.StatusAvailable))
}

func TestAssign_UpdateFailureRollsBackEarlierClaims(t *testing.T) {
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	repo.failOnUpdate = 2 // first flip persists, second fails, rollback succeeds
	alloc := newTestAllocator(repo)
	res := currentStay(t)

	err := alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 4},
	}, nil)

	require.Error(t, err)
	assert.Empty(t, res.Assignments())
	assert.Equal(t, 0, repo.countByStatus(room.StatusReserved))
}

func TestAssign_ConcurrentLastUnit(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "301", room.TypeDeluxe))
	alloc := newTestAllocator(repo)

	reservations := []*reservation.Reservation{futureStay(t), futureStay(t)}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := reservations[i]
			results[i] = alloc.Assign(context.Background(), res, []RoomRequest{
				{Type: room.TypeDeluxe, Quantity: 1, Guests: 2},
			}, repo.persist(res))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
		}
	}
	assert.Equal(t, 1, winners, "exactly one of two concurrent requests claims the last unit")
	assert.Equal(t, 1, repo.claimCount())
}

func TestReleaseAll_Cancellation(t *testing.T) {
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	alloc := newTestAllocator(repo)
	res := currentStay(t)
	require.NoError(t, alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 4},
	}, repo.persist(res)))
	require.Equal(t, 2, repo.countByStatus(room.StatusReserved))

	require.NoError(t, alloc.ReleaseAll(context.Background(), res, false))
	assert.Equal(t, 2, repo.countByStatus(room.StatusAvailable))
}

func TestReleaseAll_FutureCancellationKeepsCurrentFlag(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	request := []RoomRequest{{Type: room.TypeDouble, Quantity: 1, Guests: 2}}

	// The unit is flagged reserved for a stay underway today and also holds
	// a disjoint future booking.
	current := currentStay(t)
	require.NoError(t, alloc.Assign(context.Background(), current, request, repo.persist(current)))
	future := stayBetween(t, reservation.Midnight(time.Now().UTC()).AddDate(0, 0, 30), 2)
	require.NoError(t, alloc.Assign(context.Background(), future, request, repo.persist(future)))

	// Cancelling the future booking must not free the room under the
	// current guest.
	require.NoError(t, alloc.ReleaseAll(context.Background(), future, false))
	assert.Equal(t, 1, repo.countByStatus(room.StatusReserved))
}

func TestReleaseAll_CheckOutGoesToCleaning(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	res := currentStay(t)
	require.NoError(t, alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
	}, repo.persist(res)))
	require.NoError(t, alloc.OccupyAll(context.Background(), res))

	require.NoError(t, alloc.ReleaseAll(context.Background(), res, true))
	assert.Equal(t, 1, repo.countByStatus(room.StatusCleaning))
}

func TestReleaseAll_NotifiesAvailability(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	notifier := &recordingNotifier{}
	alloc := New(repo, pricing.NewEngine(pricing.DefaultConfig()), notifier, zap.NewNop())
	res := futureStay(t)
	require.NoError(t, alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
	}, repo.persist(res)))

	require.NoError(t, alloc.ReleaseAll(context.Background(), res, false))

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, room.TypeDouble, notifier.calls[0].roomType)
	assert.Equal(t, "201", notifier.calls[0].roomNumber)
	assert.Equal(t, res.CheckInDate(), notifier.calls[0].availableFrom)
}

func TestOccupyAll(t *testing.T) {
	// A stay booked in advance never flipped its units; check-in takes them
	// straight from available to occupied.
	repo := newFakeRoomRepository(
		mustUnit(t, "201", room.TypeDouble),
		mustUnit(t, "202", room.TypeDouble),
	)
	alloc := newTestAllocator(repo)
	res := futureStay(t)
	require.NoError(t, alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 2, Guests: 4},
	}, repo.persist(res)))
	require.Equal(t, 2, repo.countByStatus(room.StatusAvailable))

	require.NoError(t, alloc.OccupyAll(context.Background(), res))
	assert.Equal(t, 2, repo.countByStatus(room.StatusOccupied))
}

func TestRevertOccupancy(t *testing.T) {
	repo := newFakeRoomRepository(mustUnit(t, "201", room.TypeDouble))
	alloc := newTestAllocator(repo)
	res := currentStay(t)
	require.NoError(t, alloc.Assign(context.Background(), res, []RoomRequest{
		{Type: room.TypeDouble, Quantity: 1, Guests: 2},
	}, repo.persist(res)))
	require.NoError(t, alloc.OccupyAll(context.Background(), res))

	require.NoError(t, alloc.RevertOccupancy(context.Background(), res))
	assert.Equal(t, 1, repo.countByStatus(room.StatusReserved))
}

type notifierCall struct {
	roomType      room.Type
	roomNumber    string
	availableFrom time.Time
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (r *recordingNotifier) NotifyAvailability(_ context.Context, roomType room.Type, roomNumber string, availableFrom time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifierCall{roomType: roomType, roomNumber: roomNumber, availableFrom: availableFrom})
}
