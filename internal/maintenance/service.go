// Package maintenance runs the repair-request workflow between residents
// and society staff.
package maintenance

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
	// ErrRequestNotFound is returned when the request does not exist.
	ErrRequestNotFound = errors.New("maintenance request not found")
	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("invalid maintenance input")
	// ErrInvalidTransition is returned for a status change the table forbids.
	ErrInvalidTransition = errors.New("invalid maintenance transition")
	// ErrNotAllowed is returned when the actor lacks the capability or ownership.
	ErrNotAllowed = errors.New("not allowed")
	// ErrStoreUnavailable wraps transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the subset of the database layer the service depends on.
type Store interface {
	GetMaintenanceRequest(ctx context.Context, id int64) (*model.MaintenanceRequest, error)
	ListMaintenanceRequests(ctx context.Context, f database.MaintenanceFilter) ([]model.MaintenanceRequest, error)
	CreateMaintenanceRequest(ctx context.Context, m *model.MaintenanceRequest) error
	TransitionMaintenance(ctx context.Context, id int64, from model.MaintenanceStatus, u database.MaintenanceUpdate) error
}

// Bus publishes fire-and-forget domain events.
type Bus interface {
	PublishJSON(eventType string, payload interface{}) error
}

const (
	EventMaintenanceFiled        = "maintenance.filed"
	EventMaintenanceTransitioned = "maintenance.transitioned"
)

// transitions is the allowed status graph. Cancel is reachable from any
// non-terminal status; completed and cancelled are terminal.
var transitions = map[model.MaintenanceStatus][]model.MaintenanceStatus{
	model.MaintenancePending:    {model.MaintenanceInProgress, model.MaintenanceCancelled},
	model.MaintenanceInProgress: {model.MaintenanceCompleted, model.MaintenanceCancelled},
}

func canTransition(from, to model.MaintenanceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FileInput carries a resident's new request.
type FileInput struct {
	UserID        int64
	Title         string
	Description   string
	Category      string
	Priority      model.Priority
	ScheduledDate *time.Time
}

// ProgressInput carries the staff-side fields of a transition.
type ProgressInput struct {
	To            model.MaintenanceStatus
	AssignedTo    *int64
	EstimatedCost *int64
	ActualCost    *int64
	ScheduledDate *time.Time
}

// Service mediates maintenance requests.
type Service struct {
	store  Store
	bus    Bus
	logger *zerolog.Logger
}

func NewService(store Store, bus Bus, logger *zerolog.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// File opens a new pending request for the resident.
func (s *Service) File(ctx context.Context, in FileInput) (*model.MaintenanceRequest, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: title and description required", ErrInvalidInput)
	}
	if in.Category == "" {
		return nil, fmt.Errorf("%w: category required", ErrInvalidInput)
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	switch priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical:
	default:
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	request := &model.MaintenanceRequest{
		UserID:        in.UserID,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Category:      in.Category,
		Priority:      priority,
		ScheduledDate: in.ScheduledDate,
	}
	if err := s.store.CreateMaintenanceRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrStoreUnavailable, err)
	}

	s.publish(EventMaintenanceFiled, map[string]any{
		"request_id": request.ID,
		"user_id":    request.UserID,
		"priority":   string(request.Priority),
	})
	s.logger.Info().
		Int64("request_id", request.ID).
		Str("category", request.Category).
		Str("priority", string(priority)).
		Msg("maintenance request filed")
	return request, nil
}

// Progress moves a request along the workflow. Staff hold the capability;
// residents may only cancel their own pending requests.
func (s *Service) Progress(ctx context.Context, requestID int64, in ProgressInput, actorID int64, actorRole model.Role) (*model.MaintenanceRequest, error) {
	request, err := s.store.GetMaintenanceRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("%w: load request: %v", ErrStoreUnavailable, err)
	}

	if !access.Can(actorRole, access.CapManageMaintenance) {
		ownCancel := request.UserID == actorID &&
			in.To == model.MaintenanceCancelled &&
			request.Status == model.MaintenancePending
		if !ownCancel {
			return nil, ErrNotAllowed
		}
	}

	if !canTransition(request.Status, in.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, request.Status, in.To)
	}
	if in.To == model.MaintenanceCompleted && in.ActualCost == nil {
		return nil, fmt.Errorf("%w: actual cost required on completion", ErrInvalidInput)
	}

	update := database.MaintenanceUpdate{
		Status:        in.To,
		AssignedTo:    in.AssignedTo,
		EstimatedCost: in.EstimatedCost,
		ActualCost:    in.ActualCost,
		ScheduledDate: in.ScheduledDate,
	}
	err = s.store.TransitionMaintenance(ctx, requestID, request.Status, update)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrVersionConflict):
		return nil, ErrInvalidTransition
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrRequestNotFound
	default:
		return nil, fmt.Errorf("%w: transition request: %v", ErrStoreUnavailable, err)
	}

	updated, err := s.store.GetMaintenanceRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload request: %v", ErrStoreUnavailable, err)
	}

	s.publish(EventMaintenanceTransitioned, map[string]any{
		"request_id": requestID,
		"from":       string(request.Status),
		"to":         string(in.To),
		"actor_id":   actorID,
	})
	s.logger.Info().
		Int64("request_id", requestID).
		Str("from", string(request.Status)).
		Str("to", string(in.To)).
		Msg("maintenance request transitioned")
	return updated, nil
}

// Get returns a request visible to the actor.
func (s *Service) Get(ctx context.Context, requestID, actorID int64, actorRole model.Role) (*model.MaintenanceRequest, error) {
	request, err := s.store.GetMaintenanceRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("%w: load request: %v", ErrStoreUnavailable, err)
	}
	if request.UserID != actorID && !access.Can(actorRole, access.CapManageMaintenance) {
		return nil, ErrNotAllowed
	}
	return request, nil
}

// List returns requests. Residents are pinned to their own rows.
func (s *Service) List(ctx context.Context, f database.MaintenanceFilter, actorID int64, actorRole model.Role) ([]model.MaintenanceRequest, error) {
	if !access.Can(actorRole, access.CapManageMaintenance) {
		f.UserID = actorID
	}
	requests, err := s.store.ListMaintenanceRequests(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: list requests: %v", ErrStoreUnavailable, err)
	}
	return requests, nil
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
