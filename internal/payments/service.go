// Package payments keeps the society's payment ledger. Settlement against a
// gateway happens outside the system; this records what is due and what was
// received.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"societyhub/internal/access"
	"societyhub/internal/database"
	"societyhub/internal/model"
)

var (
	// ErrPaymentNotFound is returned when the payment does not exist.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidInput is returned when the amount or type is off.
	ErrInvalidInput = errors.New("invalid payment input")
	// ErrInvalidTransition is returned for a settlement the current status forbids.
	ErrInvalidTransition = errors.New("invalid payment transition")
	// ErrNotAllowed is returned when the actor lacks the payments capability.
	ErrNotAllowed = errors.New("not allowed")
	// ErrStoreUnavailable wraps transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the subset of the database layer the service depends on.
type Store interface {
	GetPayment(ctx context.Context, id int64) (*model.Payment, error)
	GetPaymentByReceipt(ctx context.Context, receipt string) (*model.Payment, error)
	ListPayments(ctx context.Context, f database.PaymentFilter) ([]model.Payment, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	SettlePayment(ctx context.Context, id int64, from, to model.PaymentStatus) error
}

// RecordInput carries a new ledger entry.
type RecordInput struct {
	UserID      int64
	Amount      int64
	Type        model.PaymentType
	ReferenceID int64
	Description string
	DueDate     *time.Time
}

// Service maintains the ledger.
type Service struct {
	store  Store
	logger *zerolog.Logger
}

func NewService(store Store, logger *zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Record inserts a pending payment with a fresh receipt token. Staff only.
func (s *Service) Record(ctx context.Context, in RecordInput, actorRole model.Role) (*model.Payment, error) {
	if !access.Can(actorRole, access.CapRecordPayments) {
		return nil, ErrNotAllowed
	}
	return s.record(ctx, in)
}

// RecordBookingDue inserts the pending payment emitted when a priced booking
// is approved. Called by the notification dispatcher, not staff, so it skips
// the capability check.
func (s *Service) RecordBookingDue(ctx context.Context, userID, bookingID, amount int64, dueDate time.Time) (*model.Payment, error) {
	return s.record(ctx, RecordInput{
		UserID:      userID,
		Amount:      amount,
		Type:        model.PaymentTypeBooking,
		ReferenceID: bookingID,
		Description: fmt.Sprintf("facility booking #%d", bookingID),
		DueDate:     &dueDate,
	})
}

func (s *Service) record(ctx context.Context, in RecordInput) (*model.Payment, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	switch in.Type {
	case model.PaymentTypeBooking, model.PaymentTypeEvent, model.PaymentTypeMaintenance, model.PaymentTypeDues:
	default:
		return nil, fmt.Errorf("%w: unknown payment type %q", ErrInvalidInput, in.Type)
	}

	payment := &model.Payment{
		UserID:      in.UserID,
		Amount:      in.Amount,
		Type:        in.Type,
		ReferenceID: in.ReferenceID,
		Receipt:     uuid.NewString(),
		Status:      model.PaymentPending,
		Description: in.Description,
		DueDate:     in.DueDate,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("%w: create payment: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info().
		Int64("payment_id", payment.ID).
		Int64("user_id", payment.UserID).
		Int64("amount", payment.Amount).
		Str("type", string(payment.Type)).
		Msg("payment recorded")
	return payment, nil
}

// MarkCompleted settles a pending payment. Staff only.
func (s *Service) MarkCompleted(ctx context.Context, paymentID int64, actorRole model.Role) (*model.Payment, error) {
	return s.settle(ctx, paymentID, model.PaymentPending, model.PaymentCompleted, actorRole)
}

// MarkFailed flags a pending payment as failed. Staff only.
func (s *Service) MarkFailed(ctx context.Context, paymentID int64, actorRole model.Role) (*model.Payment, error) {
	return s.settle(ctx, paymentID, model.PaymentPending, model.PaymentFailed, actorRole)
}

// Refund reverses a completed payment. Staff only.
func (s *Service) Refund(ctx context.Context, paymentID int64, actorRole model.Role) (*model.Payment, error) {
	return s.settle(ctx, paymentID, model.PaymentCompleted, model.PaymentRefunded, actorRole)
}

func (s *Service) settle(ctx context.Context, paymentID int64, from, to model.PaymentStatus, actorRole model.Role) (*model.Payment, error) {
	if !access.Can(actorRole, access.CapRecordPayments) {
		return nil, ErrNotAllowed
	}

	err := s.store.SettlePayment(ctx, paymentID, from, to)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrPaymentNotFound
	case errors.Is(err, database.ErrVersionConflict):
		return nil, fmt.Errorf("%w: not %s", ErrInvalidTransition, from)
	default:
		return nil, fmt.Errorf("%w: settle payment: %v", ErrStoreUnavailable, err)
	}

	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload payment: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info().
		Int64("payment_id", paymentID).
		Str("to", string(to)).
		Msg("payment settled")
	return payment, nil
}

// Get returns a payment visible to the actor.
func (s *Service) Get(ctx context.Context, paymentID, actorID int64, actorRole model.Role) (*model.Payment, error) {
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("%w: load payment: %v", ErrStoreUnavailable, err)
	}
	if payment.UserID != actorID && !access.Can(actorRole, access.CapRecordPayments) {
		return nil, ErrNotAllowed
	}
	return payment, nil
}

// ByReceipt resolves a payment from its receipt token.
func (s *Service) ByReceipt(ctx context.Context, receipt string, actorID int64, actorRole model.Role) (*model.Payment, error) {
	payment, err := s.store.GetPaymentByReceipt(ctx, receipt)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("%w: load payment: %v", ErrStoreUnavailable, err)
	}
	if payment.UserID != actorID && !access.Can(actorRole, access.CapRecordPayments) {
		return nil, ErrNotAllowed
	}
	return payment, nil
}

// List returns ledger rows. Members are pinned to their own payments.
func (s *Service) List(ctx context.Context, f database.PaymentFilter, actorID int64, actorRole model.Role) ([]model.Payment, error) {
	if !access.Can(actorRole, access.CapRecordPayments) {
		f.UserID = actorID
	}
	payments, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: list payments: %v", ErrStoreUnavailable, err)
	}
	return payments, nil
}
