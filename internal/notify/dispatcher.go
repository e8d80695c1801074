package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"societyhub/internal/booking"
	"societyhub/internal/maintenance"
	"societyhub/internal/metrics"
	"societyhub/internal/model"
	"societyhub/internal/visitors"
)

// Store is the subset of the database layer the dispatcher depends on.
type Store interface {
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	GetMaintenanceRequest(ctx context.Context, id int64) (*model.MaintenanceRequest, error)
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// PaymentRecorder files the pending payment a priced booking approval emits.
type PaymentRecorder interface {
	RecordBookingDue(ctx context.Context, userID, bookingID, amount int64, dueDate time.Time) (*model.Payment, error)
}

// Sender pushes a notice to the staff channel. Optional.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Dispatcher subscribes to the domain events and turns them into inbox
// rows, staff-channel notices, and booking payment dues. Everything here is
// best effort: a failed side effect is logged, never propagated.
type Dispatcher struct {
	store    Store
	payments PaymentRecorder
	staff    Sender // nil when telegram is not configured
	logger   *zerolog.Logger
	timeout  time.Duration
}

func NewDispatcher(store Store, payments PaymentRecorder, staff Sender, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		payments: payments,
		staff:    staff,
		logger:   logger,
		timeout:  10 * time.Second,
	}
}

// Attach wires the dispatcher onto the bus.
func (d *Dispatcher) Attach(bus *Bus) {
	bus.Subscribe(booking.EventBookingRequested, d.onBookingRequested)
	bus.Subscribe(booking.EventBookingApproved, d.onBookingApproved)
	bus.Subscribe(booking.EventBookingRejected, d.onBookingDeclined("rejected"))
	bus.Subscribe(booking.EventBookingCancelled, d.onBookingDeclined("cancelled"))

	for _, eventType := range []string{
		visitors.EventVisitorApproved,
		visitors.EventVisitorRejected,
		visitors.EventVisitorCheckedIn,
		visitors.EventVisitorCheckedOut,
	} {
		bus.Subscribe(eventType, d.onVisitorTransition)
	}

	bus.Subscribe(maintenance.EventMaintenanceFiled, d.onMaintenanceFiled)
	bus.Subscribe(maintenance.EventMaintenanceTransitioned, d.onMaintenanceTransitioned)
}

func (d *Dispatcher) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

func (d *Dispatcher) onBookingRequested(event Event) error {
	var payload booking.BookingEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := d.ctx()
	defer cancel()

	d.insert(ctx, &model.Notification{
		UserID:      payload.RequesterID,
		Title:       "Booking received",
		Message:     fmt.Sprintf("Your booking for %s %s-%s is awaiting approval.", payload.Date, payload.Start, payload.End),
		Type:        "booking",
		ReferenceID: payload.BookingID,
	})
	d.tellStaff(ctx, fmt.Sprintf("New booking request #%d: facility %d, %s %s-%s",
		payload.BookingID, payload.FacilityID, payload.Date, payload.Start, payload.End))
	return nil
}

func (d *Dispatcher) onBookingApproved(event Event) error {
	var payload booking.BookingEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := d.ctx()
	defer cancel()

	d.insert(ctx, &model.Notification{
		UserID:      payload.RequesterID,
		Title:       "Booking approved",
		Message:     fmt.Sprintf("Your booking for %s %s-%s is confirmed.", payload.Date, payload.Start, payload.End),
		Type:        "booking",
		ReferenceID: payload.BookingID,
	})

	if d.payments == nil {
		return nil
	}
	b, err := d.store.GetBooking(ctx, payload.BookingID)
	if err != nil {
		d.logger.Warn().Err(err).Int64("booking_id", payload.BookingID).Msg("load booking for payment due")
		return nil
	}
	if b.TotalAmount <= 0 {
		return nil
	}
	if _, err := d.payments.RecordBookingDue(ctx, b.RequesterID, b.ID, b.TotalAmount, b.Date); err != nil {
		d.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("record booking payment due")
	}
	return nil
}

func (d *Dispatcher) onBookingDeclined(verb string) Handler {
	return func(event Event) error {
		var payload booking.BookingEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		ctx, cancel := d.ctx()
		defer cancel()

		d.insert(ctx, &model.Notification{
			UserID:      payload.RequesterID,
			Title:       "Booking " + verb,
			Message:     fmt.Sprintf("Your booking for %s %s-%s was %s.", payload.Date, payload.Start, payload.End, verb),
			Type:        "booking",
			ReferenceID: payload.BookingID,
		})
		return nil
	}
}

func (d *Dispatcher) onVisitorTransition(event Event) error {
	var payload visitors.VisitorEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := d.ctx()
	defer cancel()

	d.insert(ctx, &model.Notification{
		UserID:      payload.HostID,
		Title:       "Visitor update",
		Message:     fmt.Sprintf("Visitor %s is now %s.", payload.Name, payload.Status),
		Type:        "visitor",
		ReferenceID: payload.VisitorID,
	})
	return nil
}

func (d *Dispatcher) onMaintenanceFiled(event Event) error {
	var payload struct {
		RequestID int64  `json:"request_id"`
		UserID    int64  `json:"user_id"`
		Priority  string `json:"priority"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := d.ctx()
	defer cancel()

	d.tellStaff(ctx, fmt.Sprintf("Maintenance request #%d filed (priority %s)", payload.RequestID, payload.Priority))
	return nil
}

func (d *Dispatcher) onMaintenanceTransitioned(event Event) error {
	var payload struct {
		RequestID int64  `json:"request_id"`
		From      string `json:"from"`
		To        string `json:"to"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := d.ctx()
	defer cancel()

	request, err := d.store.GetMaintenanceRequest(ctx, payload.RequestID)
	if err != nil {
		d.logger.Warn().Err(err).Int64("request_id", payload.RequestID).Msg("load maintenance request")
		return nil
	}
	d.insert(ctx, &model.Notification{
		UserID:      request.UserID,
		Title:       "Maintenance update",
		Message:     fmt.Sprintf("Request %q moved to %s.", request.Title, payload.To),
		Type:        "maintenance",
		ReferenceID: payload.RequestID,
	})
	return nil
}

func (d *Dispatcher) insert(ctx context.Context, n *model.Notification) {
	if err := d.store.CreateNotification(ctx, n); err != nil {
		d.logger.Warn().Err(err).Int64("user_id", n.UserID).Msg("insert notification")
		return
	}
	metrics.IncNotificationQueued()
}

func (d *Dispatcher) tellStaff(ctx context.Context, text string) {
	if d.staff == nil {
		return
	}
	if err := d.staff.Send(ctx, text); err != nil {
		d.logger.Warn().Err(err).Msg("staff channel send")
	}
}
