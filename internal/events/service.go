// Package events manages community events and capacity-gated registration.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"societyhub/internal/access"
	"societyhub/internal/database"
	"societyhub/internal/model"
)

var (
	// ErrEventNotFound is returned when the event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventInactive is returned when registering for a deactivated event.
	ErrEventInactive = errors.New("event is inactive")
	// ErrEventPast is returned when acting on an event whose date has passed.
	ErrEventPast = errors.New("event date has passed")
	// ErrEventFull is returned when the event has no remaining seats.
	ErrEventFull = errors.New("event is full")
	// ErrAlreadyRegistered is returned on duplicate registration.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNotRegistered is returned when cancelling a registration that does not exist.
	ErrNotRegistered = errors.New("not registered")
	// ErrInvalidInput is returned when required event fields are missing.
	ErrInvalidInput = errors.New("invalid event input")
	// ErrNotAllowed is returned when the actor lacks the events capability.
	ErrNotAllowed = errors.New("not allowed")
	// ErrStoreUnavailable wraps transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the subset of the database layer the service depends on.
type Store interface {
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context, from time.Time, activeOnly bool) ([]model.Event, error)
	CreateEvent(ctx context.Context, e *model.Event) error
	DeactivateEvent(ctx context.Context, id int64) error
	CountRegistrations(ctx context.Context, eventID int64) (int, error)
	RegisterIfCapacityLeft(ctx context.Context, eventID, userID int64, maxAttendees int) (*model.EventRegistration, error)
	DeleteRegistration(ctx context.Context, eventID, userID int64) error
	ListRegistrationsByUser(ctx context.Context, userID int64) ([]model.EventRegistration, error)
}

// Bus publishes fire-and-forget domain events.
type Bus interface {
	PublishJSON(eventType string, payload interface{}) error
}

const (
	EventCreated      = "event.created"
	EventRegistration = "event.registration"
)

// CreateInput carries a staff member's event definition.
type CreateInput struct {
	Title           string
	Description     string
	EventDate       time.Time
	Start           model.TimeOfDay
	End             model.TimeOfDay
	Location        string
	MaxAttendees    int
	RegistrationFee int64
	CreatedBy       int64
}

// Service admits event registrations against the attendee cap.
type Service struct {
	store  Store
	bus    Bus
	logger *zerolog.Logger
}

func NewService(store Store, bus Bus, logger *zerolog.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// Create publishes a new community event. Staff only.
func (s *Service) Create(ctx context.Context, in CreateInput, actorRole model.Role) (*model.Event, error) {
	if !access.Can(actorRole, access.CapManageEvents) {
		return nil, ErrNotAllowed
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if in.Start >= in.End {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidInput)
	}
	if model.DateOnly(in.EventDate).Before(model.DateOnly(time.Now())) {
		return nil, fmt.Errorf("%w: event date in the past", ErrInvalidInput)
	}
	if in.MaxAttendees < 0 {
		return nil, fmt.Errorf("%w: negative attendee cap", ErrInvalidInput)
	}

	event := &model.Event{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		EventDate:       model.DateOnly(in.EventDate),
		Start:           in.Start,
		End:             in.End,
		Location:        in.Location,
		MaxAttendees:    in.MaxAttendees,
		RegistrationFee: in.RegistrationFee,
		CreatedBy:       in.CreatedBy,
		IsActive:        true,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: create event: %v", ErrStoreUnavailable, err)
	}

	s.publish(EventCreated, map[string]any{"event_id": event.ID, "title": event.Title})
	s.logger.Info().Int64("event_id", event.ID).Str("title", event.Title).Msg("event created")
	return event, nil
}

// Deactivate takes an event off the board. Staff only.
func (s *Service) Deactivate(ctx context.Context, eventID int64, actorRole model.Role) error {
	if !access.Can(actorRole, access.CapManageEvents) {
		return ErrNotAllowed
	}
	err := s.store.DeactivateEvent(ctx, eventID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: deactivate event: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Register admits a member into an event. The capacity check and insert run
// in one store transaction, mirroring booking admission.
func (s *Service) Register(ctx context.Context, eventID, userID int64) (*model.EventRegistration, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("%w: load event: %v", ErrStoreUnavailable, err)
	}
	if !event.IsActive {
		return nil, ErrEventInactive
	}
	if model.DateOnly(event.EventDate).Before(model.DateOnly(time.Now())) {
		return nil, ErrEventPast
	}

	reg, err := s.store.RegisterIfCapacityLeft(ctx, eventID, userID, event.MaxAttendees)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrCapacityFull):
		return nil, ErrEventFull
	case errors.Is(err, database.ErrDuplicate):
		return nil, ErrAlreadyRegistered
	default:
		return nil, fmt.Errorf("%w: register: %v", ErrStoreUnavailable, err)
	}

	s.publish(EventRegistration, map[string]any{"event_id": eventID, "user_id": userID})
	s.logger.Info().Int64("event_id", eventID).Int64("user_id", userID).Msg("event registration")
	return reg, nil
}

// CancelRegistration withdraws a member before the event date.
func (s *Service) CancelRegistration(ctx context.Context, eventID, userID int64) error {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("%w: load event: %v", ErrStoreUnavailable, err)
	}
	if model.DateOnly(event.EventDate).Before(model.DateOnly(time.Now())) {
		return ErrEventPast
	}

	err = s.store.DeleteRegistration(ctx, eventID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("%w: cancel registration: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Upcoming lists active events from today onward.
func (s *Service) Upcoming(ctx context.Context) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx, model.DateOnly(time.Now()), true)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrStoreUnavailable, err)
	}
	return events, nil
}

// Attendance reports seats taken and the cap (0 = unlimited).
func (s *Service) Attendance(ctx context.Context, eventID int64) (taken, limit int, err error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, 0, ErrEventNotFound
		}
		return 0, 0, fmt.Errorf("%w: load event: %v", ErrStoreUnavailable, err)
	}
	count, err := s.store.CountRegistrations(ctx, eventID)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count registrations: %v", ErrStoreUnavailable, err)
	}
	return count, event.MaxAttendees, nil
}

// MyRegistrations lists the member's registrations.
func (s *Service) MyRegistrations(ctx context.Context, userID int64) ([]model.EventRegistration, error) {
	regs, err := s.store.ListRegistrationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list registrations: %v", ErrStoreUnavailable, err)
	}
	return regs, nil
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
