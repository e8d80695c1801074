// Package booking implements facility booking admission: request validation,
// conflict-checked insertion, staff decisions, and cancellation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"societyhub/internal/access"
	"societyhub/internal/database"
	"societyhub/internal/metrics"
	"societyhub/internal/model"
)

// Store is the subset of the database layer the service depends on.
type Store interface {
	GetFacility(ctx context.Context, id int64) (*model.Facility, error)
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListDayBookings(ctx context.Context, facilityID int64, date time.Time, statuses ...model.BookingStatus) ([]model.Booking, error)
	ListBookings(ctx context.Context, filter database.BookingFilter) ([]model.Booking, error)
	CreateBookingIfFree(ctx context.Context, b *model.Booking) error
	ApproveBookingIfFree(ctx context.Context, id, version, deciderID int64) error
	RejectBooking(ctx context.Context, id, version, deciderID int64) error
	CancelBooking(ctx context.Context, id, version int64, from model.BookingStatus) error
}

// Bus publishes fire-and-forget domain events.
type Bus interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Event types published by the service.
const (
	EventBookingRequested = "booking.requested"
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload for every booking event type.
type BookingEvent struct {
	BookingID   int64  `json:"booking_id"`
	FacilityID  int64  `json:"facility_id"`
	RequesterID int64  `json:"requester_id"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
	ActorID     int64  `json:"actor_id,omitempty"`
}

// Decision taken by staff on a pending booking.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// RequestInput carries a member's booking request.
type RequestInput struct {
	FacilityID  int64
	RequesterID int64
	Date        time.Time
	Start       model.TimeOfDay
	End         model.TimeOfDay
	Purpose     string
}

// Service admits facility bookings.
type Service struct {
	store          Store
	bus            Bus
	holds          *HoldManager // nil when Redis is not configured
	maxAdvanceDays int
	logger         *zerolog.Logger
	now            func() time.Time
}

// NewService builds the admission service. holds may be nil.
func NewService(store Store, bus Bus, holds *HoldManager, maxAdvanceDays int, logger *zerolog.Logger) *Service {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 30
	}
	return &Service{
		store:          store,
		bus:            bus,
		holds:          holds,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
		now:            time.Now,
	}
}

// Request validates and admits a booking request as pending. The conflict
// check and insert run in one store transaction, so of two identical
// concurrent requests exactly one wins.
func (s *Service) Request(ctx context.Context, in RequestInput) (*model.Booking, error) {
	facility, err := s.store.GetFacility(ctx, in.FacilityID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.IncBookingRequested("facility_not_found")
			return nil, ErrFacilityNotFound
		}
		return nil, fmt.Errorf("%w: load facility: %v", ErrStoreUnavailable, err)
	}

	if err := s.validate(facility, in); err != nil {
		metrics.IncBookingRequested("rejected_validation")
		return nil, err
	}

	if s.holds != nil {
		held, err := s.holds.HeldByOther(ctx, in.FacilityID, in.Date, in.Start, in.End, in.RequesterID)
		if err != nil {
			// Advisory only; a hold backend outage never blocks admission.
			s.logger.Warn().Err(err).Msg("hold check failed, proceeding")
		} else if held {
			metrics.IncBookingRequested("held")
			return nil, ErrSlotHeld
		}
	}

	booking := &model.Booking{
		FacilityID:  in.FacilityID,
		RequesterID: in.RequesterID,
		Date:        model.DateOnly(in.Date),
		Start:       in.Start,
		End:         in.End,
		Purpose:     in.Purpose,
		TotalAmount: price(facility.HourlyRate, in.End.Minutes()-in.Start.Minutes()),
	}

	if err := s.store.CreateBookingIfFree(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBookingRequested("conflict")
			return nil, ErrSlotConflict
		}
		metrics.IncBookingRequested("store_error")
		return nil, fmt.Errorf("%w: create booking: %v", ErrStoreUnavailable, err)
	}

	metrics.IncBookingRequested("accepted")
	s.publish(EventBookingRequested, booking, in.RequesterID)
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("facility_id", booking.FacilityID).
		Str("date", booking.Date.Format("2006-01-02")).
		Str("slot", booking.Start.String()+"-"+booking.End.String()).
		Msg("booking requested")
	return booking, nil
}

func (s *Service) validate(facility *model.Facility, in RequestInput) error {
	if !facility.IsActive {
		return ErrFacilityInactive
	}

	today := model.DateOnly(s.now())
	date := model.DateOnly(in.Date)
	if date.Before(today) {
		return ErrPastDate
	}
	if date.After(today.AddDate(0, 0, s.maxAdvanceDays)) {
		return ErrTooFarAhead
	}

	if in.Start >= in.End {
		return ErrInvalidTimeRange
	}
	if in.Start < facility.OpenTime || in.End > facility.CloseTime {
		return ErrOutsideOperatingHours
	}

	duration := in.End.Minutes() - in.Start.Minutes()
	if duration < facility.MinDuration {
		return ErrDurationOutOfBounds
	}
	if facility.MaxDuration > 0 && duration > facility.MaxDuration {
		return ErrDurationOutOfBounds
	}
	return nil
}

// price charges the hourly rate pro rata by minute, rounded to the nearest
// smallest currency unit.
func price(hourlyRate int64, minutes int) int64 {
	if hourlyRate <= 0 || minutes <= 0 {
		return 0
	}
	return (hourlyRate*int64(minutes) + 30) / 60
}

// Decide approves or rejects a pending booking. Approval re-checks overlap
// against approved rows inside the store transaction; on conflict the row
// stays pending for manual resolution.
func (s *Service) Decide(ctx context.Context, bookingID int64, decision Decision, deciderID int64, deciderRole model.Role) (*model.Booking, error) {
	if !access.Can(deciderRole, access.CapDecideBookings) {
		return nil, ErrNotAllowed
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: load booking: %v", ErrStoreUnavailable, err)
	}
	if booking.Status != model.BookingPending {
		return nil, ErrAlreadyDecided
	}

	switch decision {
	case DecisionApprove:
		err = s.store.ApproveBookingIfFree(ctx, booking.ID, booking.Version, deciderID)
	case DecisionReject:
		err = s.store.RejectBooking(ctx, booking.ID, booking.Version, deciderID)
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	switch {
	case err == nil:
	case errors.Is(err, database.ErrSlotTaken):
		metrics.IncBookingDecision("conflict")
		return nil, ErrSlotConflict
	case errors.Is(err, database.ErrVersionConflict):
		// Someone else decided between our read and write.
		return nil, ErrAlreadyDecided
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrBookingNotFound
	default:
		return nil, fmt.Errorf("%w: decide booking: %v", ErrStoreUnavailable, err)
	}

	updated, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload booking: %v", ErrStoreUnavailable, err)
	}

	metrics.IncBookingDecision(string(decision))
	event := EventBookingRejected
	if decision == DecisionApprove {
		event = EventBookingApproved
	}
	s.publish(event, updated, deciderID)
	s.logger.Info().
		Int64("booking_id", updated.ID).
		Str("decision", string(decision)).
		Int64("decider_id", deciderID).
		Msg("booking decided")
	return updated, nil
}

// Cancel withdraws a booking. The requester may cancel their own booking;
// staff may cancel anyone's. Pending bookings cancel at any time, approved
// ones only while the date is strictly in the future.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID int64, actorRole model.Role) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: load booking: %v", ErrStoreUnavailable, err)
	}

	if booking.RequesterID != actorID && !access.IsStaff(actorRole) {
		return nil, ErrNotAllowed
	}

	switch booking.Status {
	case model.BookingPending:
	case model.BookingApproved:
		today := model.DateOnly(s.now())
		if !model.DateOnly(booking.Date).After(today) {
			return nil, ErrNotCancellable
		}
	default:
		return nil, ErrNotCancellable
	}

	if err := s.store.CancelBooking(ctx, booking.ID, booking.Version, booking.Status); err != nil {
		if errors.Is(err, database.ErrVersionConflict) || errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotCancellable
		}
		return nil, fmt.Errorf("%w: cancel booking: %v", ErrStoreUnavailable, err)
	}

	updated, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload booking: %v", ErrStoreUnavailable, err)
	}

	metrics.IncBookingCancelled()
	s.publish(EventBookingCancelled, updated, actorID)
	s.logger.Info().
		Int64("booking_id", updated.ID).
		Int64("actor_id", actorID).
		Msg("booking cancelled")
	return updated, nil
}

// Get returns a booking visible to the actor: owners see their own, staff
// see everything.
func (s *Service) Get(ctx context.Context, bookingID, actorID int64, actorRole model.Role) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: load booking: %v", ErrStoreUnavailable, err)
	}
	if booking.RequesterID != actorID && !access.IsStaff(actorRole) {
		return nil, ErrNotAllowed
	}
	return booking, nil
}

// List returns bookings matching the filter. Members are pinned to their
// own bookings regardless of the filter they pass.
func (s *Service) List(ctx context.Context, filter database.BookingFilter, actorID int64, actorRole model.Role) ([]model.Booking, error) {
	if !access.IsStaff(actorRole) {
		filter.RequesterID = actorID
	}
	bookings, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list bookings: %v", ErrStoreUnavailable, err)
	}
	return bookings, nil
}

func (s *Service) publish(eventType string, b *model.Booking, actorID int64) {
	if s.bus == nil {
		return
	}
	err := s.bus.PublishJSON(eventType, BookingEvent{
		BookingID:   b.ID,
		FacilityID:  b.FacilityID,
		RequesterID: b.RequesterID,
		Date:        b.Date.Format("2006-01-02"),
		Start:       b.Start.String(),
		End:         b.End.String(),
		Status:      string(b.Status),
		ActorID:     actorID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
