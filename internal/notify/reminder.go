package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"societyhub/internal/database"
	"societyhub/internal/metrics"
	"societyhub/internal/model"
)

// ReminderStore reads tomorrow's schedule and writes inbox rows.
type ReminderStore interface {
	ListBookings(ctx context.Context, filter database.BookingFilter) ([]model.Booking, error)
	ListVisitors(ctx context.Context, hostID int64, date time.Time) ([]model.Visitor, error)
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// ReminderScheduler sends day-before reminders for approved bookings and
// expected visitors. It runs once per day at the configured hour.
type ReminderScheduler struct {
	store      ReminderStore
	logger     *zerolog.Logger
	dailyHour  int
	checkEvery time.Duration

	mu          sync.Mutex
	lastRunDate string
}

func NewReminderScheduler(store ReminderStore, dailyHour int, logger *zerolog.Logger) *ReminderScheduler {
	if dailyHour < 0 || dailyHour > 23 {
		dailyHour = 18
	}
	return &ReminderScheduler{
		store:      store,
		logger:     logger,
		dailyHour:  dailyHour,
		checkEvery: time.Minute,
	}
}

// Start blocks until ctx is cancelled.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.logger.Info().Int("daily_hour", s.dailyHour).Msg("reminder scheduler started")

	ticker := time.NewTicker(s.checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx, time.Now())
		}
	}
}

func (s *ReminderScheduler) checkAndRun(ctx context.Context, now time.Time) {
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	s.mu.Unlock()

	if alreadyRan || now.Hour() != s.dailyHour {
		return
	}

	s.mu.Lock()
	s.lastRunDate = today
	s.mu.Unlock()

	s.RunOnce(ctx, now)
}

// RunOnce sends reminders for the day after the given day.
func (s *ReminderScheduler) RunOnce(ctx context.Context, day time.Time) {
	tomorrow := model.DateOnly(day.AddDate(0, 0, 1))

	bookings, err := s.store.ListBookings(ctx, database.BookingFilter{
		Status:   model.BookingApproved,
		DateFrom: tomorrow,
		DateTo:   tomorrow,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder: list bookings failed")
	}
	sent := 0
	for _, b := range bookings {
		n := &model.Notification{
			UserID: b.RequesterID,
			Title:  "Booking reminder",
			Message: fmt.Sprintf("Reminder: your booking on %s from %s to %s is tomorrow.",
				b.Date.Format("2006-01-02"), b.Start.String(), b.End.String()),
			Type:        "booking_reminder",
			ReferenceID: b.ID,
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			s.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("reminder: notification insert failed")
			continue
		}
		metrics.IncNotificationQueued()
		sent++
	}

	visitors, err := s.store.ListVisitors(ctx, 0, tomorrow)
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder: list visitors failed")
	}
	for _, v := range visitors {
		if v.Status != model.VisitorApproved {
			continue
		}
		n := &model.Notification{
			UserID: v.HostID,
			Title:  "Visitor reminder",
			Message: fmt.Sprintf("Reminder: %s is expected tomorrow. Gate pass %s.",
				v.VisitorName, v.GatePass),
			Type:        "visitor_reminder",
			ReferenceID: v.ID,
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			s.logger.Warn().Err(err).Int64("visitor_id", v.ID).Msg("reminder: notification insert failed")
			continue
		}
		metrics.IncNotificationQueued()
		sent++
	}

	s.logger.Info().
		Str("for_date", tomorrow.Format("2006-01-02")).
		Int("sent", sent).
		Msg("day-before reminders processed")
}
