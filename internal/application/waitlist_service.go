package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grandline-hms/service-reservation/internal/adapter"
	"github.com/grandline-hms/service-reservation/internal/domain"
	"github.com/grandline-hms/service-reservation/internal/domain/guest"
	"github.com/grandline-hms/service-reservation/internal/domain/reservation"
	"github.com/grandline-hms/service-reservation/internal/domain/room"
	"github.com/grandline-hms/service-reservation/internal/domain/waitlist"
	"github.com/grandline-hms/service-reservation/internal/events"
)

// JoinWaitlistRequest is the DTO for joining the waitlist for a room type.
type JoinWaitlistRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	RoomType  string `json:"room_type" binding:"required"`
	CheckIn   string `json:"check_in" binding:"required"`
	CheckOut  string `json:"check_out" binding:"required"`
}

// WaitlistEntryDTO is the API response DTO for a waitlist entry.
type WaitlistEntryDTO struct {
	ID        uuid.UUID `json:"id"`
	GuestID   uuid.UUID `json:"guest_id"`
	RoomType  string    `json:"room_type"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	Notified  bool      `json:"notified"`
	CreatedAt time.Time `json:"created_at"`
}

// WaitlistService matches availability-changed notifications against open
// waitlist entries. It implements events.AvailabilityHandler.
type WaitlistService struct {
	entries waitlist.Repository
	guests  guest.Directory
	sink    adapter.ActivitySink
	logger  *zap.Logger
}

// NewWaitlistService creates a WaitlistService.
func NewWaitlistService(
	entries waitlist.Repository,
	guests guest.Directory,
	sink adapter.ActivitySink,
	logger *zap.Logger,
) *WaitlistService {
	return &WaitlistService{
		entries: entries,
		guests:  guests,
		sink:    sink,
		logger:  logger,
	}
}

// Join adds a guest to the waitlist for a room type, creating the directory
// entry when needed.
func (s *WaitlistService) Join(ctx context.Context, req JoinWaitlistRequest) (*WaitlistEntryDTO, error) {
	in, out, err := parseStayRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

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

	entry, err := waitlist.NewEntry(g.ID(), room.Type(req.RoomType), reservation.Midnight(in), reservation.Midnight(out))
	if err != nil {
		return nil, err
	}
	if err := s.entries.Add(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("waitlist entry added",
		zap.String("guest", g.Email()),
		zap.String("room_type", req.RoomType),
	)

	dto := toWaitlistDTO(entry)
	return &dto, nil
}

// HandleAvailabilityChanged matches an availability notification against
// open waitlist entries and records a notification for each match. Repeated
// deliveries of the same event are no-ops thanks to the notified flag.
func (s *WaitlistService) HandleAvailabilityChanged(ctx context.Context, event events.AvailabilityChangedEvent) error {
	entries, err := s.entries.FindByRoomType(ctx, event.RoomType)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Notified() || !entry.Matches(event.RoomType, event.AvailableFrom) {
			continue
		}

		g, err := s.guests.FindByID(ctx, entry.GuestID())
		if err != nil {
			s.logger.Warn("waitlist entry has no guest, skipping",
				zap.String("entry", entry.ID().String()),
				zap.Error(err),
			)
			continue
		}

		s.sink.Record(ctx, "system", "waitlist.match", "waitlist_entry", entry.ID().String(),
			fmt.Sprintf("room %s (%s) available from %s for %s",
				event.RoomNumber, event.RoomType, event.AvailableFrom.Format(dateLayout), g.Email()))

		entry.MarkNotified()
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}

		s.logger.Info("waitlist entry matched",
			zap.String("entry", entry.ID().String()),
			zap.String("room_number", event.RoomNumber),
		)
	}
	return nil
}

func toWaitlistDTO(e *waitlist.Entry) WaitlistEntryDTO {
	return WaitlistEntryDTO{
		ID:        e.ID(),
		GuestID:   e.GuestID(),
		RoomType:  string(e.RoomType()),
		CheckIn:   e.CheckIn().Format(dateLayout),
		CheckOut:  e.CheckOut().Format(dateLayout),
		Notified:  e.Notified(),
		CreatedAt: e.CreatedAt(),
	}
}
