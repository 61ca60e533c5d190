package booking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"byronhub/internal/api"
	"byronhub/internal/cart"
	"byronhub/internal/events"
	"byronhub/internal/metrics"
	"byronhub/internal/model"
	"byronhub/internal/storage"

	"github.com/rs/zerolog"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while another
	// submission is still running.
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	// ErrEmptyCart is returned when there is nothing to submit.
	ErrEmptyCart = errors.New("cart is empty")
)

// SubmitError names the room whose entry failed.
type SubmitError struct {
	Room string
	Err  error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("reservation failed for %s: %v", e.Room, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// ReservationCreator posts a single reservation.
type ReservationCreator interface {
	CreateReservation(ctx context.Context, req api.CreateReservationRequest) (*model.Reservation, error)
}

// Requester is the person submitting the cart.
type Requester struct {
	PersonID model.ID
	Manager  bool
}

// Item is one booked room in a Snapshot.
type Item struct {
	RoomID        model.ID `json:"roomId"`
	RoomName      string   `json:"roomName"`
	ReservationID int64    `json:"reservationId,omitempty"`
	Date          string   `json:"date"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Duration      int      `json:"duration"`
	People        int      `json:"people"`
	Usage         string   `json:"use"`
	Comments      string   `json:"comments"`
}

// Snapshot is the last successful booking, shown on the confirmation view.
type Snapshot struct {
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomIDs returns the booked room ids in submission order.
func (s *Snapshot) RoomIDs() []model.ID {
	ids := make([]model.ID, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, it.RoomID)
	}
	return ids
}

// Failure is the payload of an events.BookingFailed event.
type Failure struct {
	Room  string `json:"room"`
	Error string `json:"error"`
}

// Submitter sends cart entries to the backend one at a time.
type Submitter struct {
	creator   ReservationCreator
	store     storage.Store
	bus       *events.EventBus
	validator Validator
	logger    *zerolog.Logger

	inFlight atomic.Bool
}

// NewSubmitter wires a submitter. bus may be nil.
func NewSubmitter(creator ReservationCreator, store storage.Store, bus *events.EventBus, v Validator, logger *zerolog.Logger) *Submitter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "submitter").Logger()
	return &Submitter{creator: creator, store: store, bus: bus, validator: v, logger: &l}
}

// InFlight reports whether a submission is running.
func (s *Submitter) InFlight() bool {
	return s.inFlight.Load()
}

// Submit validates every entry of c and then posts them in order, stopping
// at the first failure. Entries already accepted by the backend are not
// rolled back and the cart is left untouched. On full success the cart is
// cleared, the snapshot is stored and BookingCompleted is published.
func (s *Submitter) Submit(ctx context.Context, c *cart.Cart, who Requester) (*Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer s.inFlight.Store(false)

	entries := c.Entries()
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}

	normalized := make([]Normalized, len(entries))
	for i, e := range entries {
		n, err := s.validator.Validate(FormOf(e), e.Capacity, who.Manager)
		if err != nil {
			metrics.IncBookingSubmitted("invalid")
			return nil, &SubmitError{Room: e.RoomName, Err: err}
		}
		normalized[i] = n
	}

	snap := &Snapshot{Items: make([]Item, 0, len(entries))}
	for i, e := range entries {
		n := normalized[i]
		created, err := s.creator.CreateReservation(ctx, api.CreateReservationRequest{
			SpaceID:      e.RoomID,
			Usage:        n.Usage,
			StartTime:    n.StartTime,
			Duration:     n.Duration,
			MaxAttendees: n.People,
			PersonID:     who.PersonID,
			Description:  n.Description,
		})
		if err != nil {
			metrics.IncBookingSubmitted("failed")
			s.logger.Error().Err(err).
				Str("room", e.RoomName).
				Int("submitted", i).
				Int("total", len(entries)).
				Msg("reservation failed")
			s.publish(events.BookingFailed, Failure{Room: e.RoomName, Error: err.Error()})
			return nil, &SubmitError{Room: e.RoomName, Err: err}
		}
		metrics.IncBookingSubmitted("created")

		item := Item{
			RoomID:    e.RoomID,
			RoomName:  e.RoomName,
			Date:      n.Date,
			StartTime: n.StartTime,
			EndTime:   n.EndTime,
			Duration:  n.Duration,
			People:    n.People,
			Usage:     n.Usage,
			Comments:  n.Description,
		}
		if created != nil {
			item.ReservationID = created.ID
		}
		snap.Items = append(snap.Items, item)
	}
	snap.CreatedAt = time.Now().UTC()

	c.Clear(ctx)
	if err := s.store.Set(ctx, storage.KeyBookingData, snap); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store booking snapshot")
	}
	if err := s.store.Remove(ctx, storage.KeyAvailableRooms); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear search results")
	}
	s.logger.Info().Int("rooms", len(snap.Items)).Msg("booking completed")
	s.publish(events.BookingCompleted, snap)
	return snap, nil
}

// LastBooking returns the stored snapshot, or nil if there is none.
func (s *Submitter) LastBooking(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	found, err := s.store.Get(ctx, storage.KeyBookingData, &snap)
	if err != nil {
		return nil, fmt.Errorf("load booking snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}

func (s *Submitter) publish(eventType string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event handler failed")
	}
}
