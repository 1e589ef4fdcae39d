package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/adapter"
	"github.com/grandline-hms/service-reservation/internal/allocator"
	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/pricing"
)

// CreateRoomRequest is the DTO for registering a room unit.
type CreateRoomRequest struct {
	Number string `json:"number" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

// RoomDTO is the API response DTO for room unit data.
type RoomDTO struct {
	ID        uuid.UUID `json:"id"`
	Number    string    `json:"number"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailabilityDTO summarizes the free units of one type for a date range.
type AvailabilityDTO struct {
	RoomType            string   `json:"room_type"`
	CheckIn             string   `json:"check_in"`
	CheckOut            string   `json:"check_out"`
	AvailableUnits      int      `json:"available_units"`
	RoomNumbers         []string `json:"room_numbers"`
	AverageNightlyCents int64    `json:"average_nightly_cents"`
	EstimatedStayCents  int64    `json:"estimated_stay_cents"`
	MaxOccupancyPerRoom int      `json:"max_occupancy_per_room"`
}

// OccupancyStatsDTO holds the unit counts by status for the admin dashboard.
type OccupancyStatsDTO struct {
	TotalUnits    int            `json:"total_units"`
	ByStatus      map[string]int `json:"by_status"`
	ByType        map[string]int `json:"by_type"`
	OccupancyRate float64        `json:"occupancy_rate"`
}

// RoomService is the application service for the room catalog.
type RoomService struct {
	rooms  room.Repository
	alloc  *allocator.Allocator
	pricer *pricing.Engine
	sink   adapter.ActivitySink
	logger *zap.Logger
}

// NewRoomService creates a RoomService.
func NewRoomService(
	rooms room.Repository,
	alloc *allocator.Allocator,
	pricer *pricing.Engine,
	sink adapter.ActivitySink,
	logger *zap.Logger,
) *RoomService {
	return &RoomService{
		rooms:  rooms,
		alloc:  alloc,
		pricer: pricer,
		sink:   sink,
		logger: logger,
	}
}

// CreateRoom registers a new room unit (admin).
func (s *RoomService) CreateRoom(ctx context.Context, actor string, req CreateRoomRequest) (*RoomDTO, error) {
	unit, err := room.NewUnit(req.Number, room.Type(req.Type))
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Save(ctx, unit); err != nil {
		return nil, err
	}

	s.logger.Info("room unit created",
		zap.String("number", unit.Number()),
		zap.String("type", string(unit.RoomType())),
	)
	s.sink.Record(ctx, actor, "room.create", "room_unit", unit.ID().String(),
		"room "+unit.Number()+" added to the catalog")

	dto := toRoomDTO(unit)
	return &dto, nil
}

// ListRooms returns all room units.
func (s *RoomService) ListRooms(ctx context.Context) ([]RoomDTO, error) {
	units, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]RoomDTO, len(units))
	for i, u := range units {
		dtos[i] = toRoomDTO(u)
	}
	return dtos, nil
}

// GetAvailability reports the free units of a type over [checkIn, checkOut)
// together with the priced stay estimate.
func (s *RoomService) GetAvailability(ctx context.Context, roomType, checkIn, checkOut string) (*AvailabilityDTO, error) {
	info, ok := room.TypeInfoFor(room.Type(roomType))
	if !ok {
		return nil, domain.NewValidationError("unknown room type: %s", roomType)
	}
	in, out, err := parseStayRange(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if !out.After(in) {
		return nil, domain.NewValidationError("check-out must be after check-in")
	}

	units, err := s.alloc.FindAvailable(ctx, info.Type, in, out)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, len(units))
	for i, u := range units {
		numbers[i] = u.Number()
	}

	return &AvailabilityDTO{
		RoomType:            roomType,
		CheckIn:             in.Format(dateLayout),
		CheckOut:            out.Format(dateLayout),
		AvailableUnits:      len(units),
		RoomNumbers:         numbers,
		AverageNightlyCents: s.pricer.AverageNightlyRate(info.Type, in, out),
		EstimatedStayCents:  s.pricer.StayTotal(info.Type, in, out),
		MaxOccupancyPerRoom: info.MaxOccupancy,
	}, nil
}

// SetMaintenance takes a unit out of service or returns it to the pool.
func (s *RoomService) SetMaintenance(ctx context.Context, actor string, id uuid.UUID, underMaintenance bool) (*RoomDTO, error) {
	unit, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if underMaintenance {
		err = unit.MarkMaintenance()
	} else {
		err = unit.EndMaintenance()
	}
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Update(ctx, unit); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, actor, "room.maintenance", "room_unit", unit.ID().String(),
		"room "+unit.Number()+" status set to "+string(unit.Status()))

	dto := toRoomDTO(unit)
	return &dto, nil
}

// OccupancyStats aggregates unit counts by status and type (admin).
func (s *RoomService) OccupancyStats(ctx context.Context) (*OccupancyStatsDTO, error) {
	units, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int)
	byType := make(map[string]int)
	occupied := 0
	for _, u := range units {
		byStatus[string(u.Status())]++
		byType[string(u.RoomType())]++
		if u.Status() == room.StatusOccupied || u.Status() == room.StatusReserved {
			occupied++
		}
	}

	rate := 0.0
	if len(units) > 0 {
		rate = float64(occupied) / float64(len(units))
	}

	return &OccupancyStatsDTO{
		TotalUnits:    len(units),
		ByStatus:      byStatus,
		ByType:        byType,
		OccupancyRate: rate,
	}, nil
}

// toRoomDTO maps a domain Unit to a RoomDTO.
func toRoomDTO(u *room.Unit) RoomDTO {
	return RoomDTO{
		ID:        u.ID(),
		Number:    u.Number(),
		Type:      string(u.RoomType()),
		Status:    string(u.Status()),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}
