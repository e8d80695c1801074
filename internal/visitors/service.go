// Package visitors manages guest registration and the gate workflow.
package visitors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"societyhub/internal/access"
	"societyhub/internal/database"
	"societyhub/internal/metrics"
	"societyhub/internal/model"
)

var (
	// ErrVisitorNotFound is returned when the visitor record does not exist.
	ErrVisitorNotFound = errors.New("visitor not found")
	// ErrInvalidInput is returned when required registration fields are missing.
	ErrInvalidInput = errors.New("invalid visitor input")
	// ErrInvalidTransition is returned for a gate action the current status forbids.
	ErrInvalidTransition = errors.New("invalid visitor transition")
	// ErrNotAllowed is returned when the actor lacks the gate capability.
	ErrNotAllowed = errors.New("not allowed")
	// ErrStoreUnavailable wraps transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the subset of the database layer the service depends on.
type Store interface {
	GetVisitor(ctx context.Context, id int64) (*model.Visitor, error)
	GetVisitorByGatePass(ctx context.Context, gatePass string) (*model.Visitor, error)
	ListVisitors(ctx context.Context, hostID int64, date time.Time) ([]model.Visitor, error)
	CreateVisitor(ctx context.Context, v *model.Visitor) error
	TransitionVisitor(ctx context.Context, id int64, from, to model.VisitorStatus, actorID int64) error
}

// Bus publishes fire-and-forget domain events.
type Bus interface {
	PublishJSON(eventType string, payload interface{}) error
}

const (
	EventVisitorRegistered = "visitor.registered"
	EventVisitorApproved   = "visitor.approved"
	EventVisitorRejected   = "visitor.rejected"
	EventVisitorCheckedIn  = "visitor.checked_in"
	EventVisitorCheckedOut = "visitor.checked_out"
)

// VisitorEvent is the payload for every visitor event type.
type VisitorEvent struct {
	VisitorID int64  `json:"visitor_id"`
	HostID    int64  `json:"host_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	ActorID   int64  `json:"actor_id,omitempty"`
}

// RegisterInput carries a host's visitor registration.
type RegisterInput struct {
	HostID       int64
	VisitorName  string
	VisitorPhone string
	Purpose      string
	ExpectedDate time.Time
}

// Service runs the visitor lifecycle: pending → approved → checked_in →
// checked_out, with reject as the staff off-ramp from pending.
type Service struct {
	store  Store
	bus    Bus
	logger *zerolog.Logger
}

func NewService(store Store, bus Bus, logger *zerolog.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// Register creates a pending visitor with a fresh gate pass.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Visitor, error) {
	if strings.TrimSpace(in.VisitorName) == "" {
		return nil, fmt.Errorf("%w: visitor name required", ErrInvalidInput)
	}
	if model.DateOnly(in.ExpectedDate).Before(model.DateOnly(time.Now())) {
		return nil, fmt.Errorf("%w: expected date in the past", ErrInvalidInput)
	}

	visitor := &model.Visitor{
		HostID:       in.HostID,
		VisitorName:  strings.TrimSpace(in.VisitorName),
		VisitorPhone: in.VisitorPhone,
		Purpose:      in.Purpose,
		ExpectedDate: model.DateOnly(in.ExpectedDate),
		GatePass:     uuid.NewString(),
	}
	if err := s.store.CreateVisitor(ctx, visitor); err != nil {
		return nil, fmt.Errorf("%w: create visitor: %v", ErrStoreUnavailable, err)
	}

	s.publish(EventVisitorRegistered, visitor, in.HostID)
	s.logger.Info().
		Int64("visitor_id", visitor.ID).
		Int64("host_id", visitor.HostID).
		Str("expected", visitor.ExpectedDate.Format("2006-01-02")).
		Msg("visitor registered")
	return visitor, nil
}

// Approve moves a pending visitor to approved. Staff only.
func (s *Service) Approve(ctx context.Context, visitorID, actorID int64, actorRole model.Role) (*model.Visitor, error) {
	if !access.IsStaff(actorRole) {
		return nil, ErrNotAllowed
	}
	return s.transition(ctx, visitorID, model.VisitorPending, model.VisitorApproved, actorID, EventVisitorApproved)
}

// Reject moves a pending visitor to rejected. Staff only.
func (s *Service) Reject(ctx context.Context, visitorID, actorID int64, actorRole model.Role) (*model.Visitor, error) {
	if !access.IsStaff(actorRole) {
		return nil, ErrNotAllowed
	}
	return s.transition(ctx, visitorID, model.VisitorPending, model.VisitorRejected, actorID, EventVisitorRejected)
}

// CheckIn admits an approved visitor at the gate.
func (s *Service) CheckIn(ctx context.Context, gatePass string, actorID int64, actorRole model.Role) (*model.Visitor, error) {
	if !access.Can(actorRole, access.CapManageVisitorGate) {
		return nil, ErrNotAllowed
	}
	visitor, err := s.byGatePass(ctx, gatePass)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, visitor.ID, model.VisitorApproved, model.VisitorCheckedIn, actorID, EventVisitorCheckedIn)
}

// CheckOut records a checked-in visitor leaving.
func (s *Service) CheckOut(ctx context.Context, gatePass string, actorID int64, actorRole model.Role) (*model.Visitor, error) {
	if !access.Can(actorRole, access.CapManageVisitorGate) {
		return nil, ErrNotAllowed
	}
	visitor, err := s.byGatePass(ctx, gatePass)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, visitor.ID, model.VisitorCheckedIn, model.VisitorCheckedOut, actorID, EventVisitorCheckedOut)
}

// List returns visitors. Members see their own guests; gate staff see
// everyone expected on the date.
func (s *Service) List(ctx context.Context, actorID int64, actorRole model.Role, date time.Time) ([]model.Visitor, error) {
	hostID := actorID
	if access.Can(actorRole, access.CapManageVisitorGate) || access.IsStaff(actorRole) {
		hostID = 0
	}
	visitors, err := s.store.ListVisitors(ctx, hostID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: list visitors: %v", ErrStoreUnavailable, err)
	}
	return visitors, nil
}

func (s *Service) byGatePass(ctx context.Context, gatePass string) (*model.Visitor, error) {
	visitor, err := s.store.GetVisitorByGatePass(ctx, gatePass)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrVisitorNotFound
		}
		return nil, fmt.Errorf("%w: load visitor: %v", ErrStoreUnavailable, err)
	}
	return visitor, nil
}

func (s *Service) transition(ctx context.Context, visitorID int64, from, to model.VisitorStatus, actorID int64, eventType string) (*model.Visitor, error) {
	err := s.store.TransitionVisitor(ctx, visitorID, from, to, actorID)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrVisitorNotFound
	case errors.Is(err, database.ErrVersionConflict):
		return nil, ErrInvalidTransition
	default:
		return nil, fmt.Errorf("%w: transition visitor: %v", ErrStoreUnavailable, err)
	}

	visitor, err := s.store.GetVisitor(ctx, visitorID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload visitor: %v", ErrStoreUnavailable, err)
	}

	metrics.IncVisitorTransition(string(to))
	s.publish(eventType, visitor, actorID)
	s.logger.Info().
		Int64("visitor_id", visitorID).
		Str("from", string(from)).
		Str("to", string(to)).
		Int64("actor_id", actorID).
		Msg("visitor transitioned")
	return visitor, nil
}

func (s *Service) publish(eventType string, v *model.Visitor, actorID int64) {
	if s.bus == nil {
		return
	}
	err := s.bus.PublishJSON(eventType, VisitorEvent{
		VisitorID: v.ID,
		HostID:    v.HostID,
		Name:      v.VisitorName,
		Status:    string(v.Status),
		ActorID:   actorID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
