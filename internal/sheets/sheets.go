// Package sheets mirrors the booking schedule into a Google Spreadsheet
// so the society office has a live read-only view. Mirroring is best
// effort; failures are logged and never block the booking workflow.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"societyhub/internal/booking"
	"societyhub/internal/database"
	"societyhub/internal/model"
	"societyhub/internal/notify"
)

const sheetName = "Schedule"

var headerRow = []interface{}{
	"Booking ID", "Facility", "Requester ID", "Date", "Start", "End",
	"Status", "Amount", "Purpose", "Updated",
}

// Store reads the bookings and facilities being mirrored.
type Store interface {
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	GetFacility(ctx context.Context, id int64) (*model.Facility, error)
	ListBookings(ctx context.Context, filter database.BookingFilter) ([]model.Booking, error)
}

// Service writes booking rows to the configured spreadsheet.
type Service struct {
	api           *sheetsapi.Service
	spreadsheetID string
	store         Store
	logger        *zerolog.Logger

	mu       sync.Mutex
	rowCache map[int64]int // booking id -> 1-based sheet row
}

// New builds the mirror from a service-account credentials file.
func New(ctx context.Context, spreadsheetID, credentialsFile string, store Store, logger *zerolog.Logger) (*Service, error) {
	api, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &Service{
		api:           api,
		spreadsheetID: spreadsheetID,
		store:         store,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}, nil
}

// Attach subscribes the mirror to booking lifecycle events.
func (s *Service) Attach(bus *notify.Bus) {
	bus.Subscribe(booking.EventBookingRequested, s.onBookingChanged)
	bus.Subscribe(booking.EventBookingApproved, s.onBookingChanged)
	bus.Subscribe(booking.EventBookingRejected, s.onBookingRemoved)
	bus.Subscribe(booking.EventBookingCancelled, s.onBookingRemoved)
}

func (s *Service) onBookingChanged(event notify.Event) error {
	var payload booking.BookingEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	b, err := s.store.GetBooking(ctx, payload.BookingID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", payload.BookingID).Msg("sheets mirror: load booking failed")
		return err
	}
	if err := s.UpsertBooking(ctx, b); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("sheets mirror: upsert failed")
		return err
	}
	return nil
}

func (s *Service) onBookingRemoved(event notify.Event) error {
	var payload booking.BookingEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.RemoveBooking(ctx, payload.BookingID); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", payload.BookingID).Msg("sheets mirror: remove failed")
		return err
	}
	return nil
}

// UpsertBooking writes or rewrites the booking's row.
func (s *Service) UpsertBooking(ctx context.Context, b *model.Booking) error {
	facilityName := strconv.FormatInt(b.FacilityID, 10)
	if facility, err := s.store.GetFacility(ctx, b.FacilityID); err == nil {
		facilityName = facility.Name
	}
	values := bookingRowValues(b, facilityName)

	if row, ok := s.getCachedRow(b.ID); ok {
		rangeA1 := fmt.Sprintf("%s!A%d:J%d", sheetName, row, row)
		_, err := s.api.Spreadsheets.Values.Update(s.spreadsheetID, rangeA1, &sheetsapi.ValueRange{
			Values: [][]interface{}{values},
		}).ValueInputOption("RAW").Context(ctx).Do()
		return err
	}

	resp, err := s.api.Spreadsheets.Values.Append(s.spreadsheetID, sheetName+"!A:J", &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(b.ID, row)
		}
	}
	return nil
}

// RemoveBooking blanks the booking's row if the mirror knows it.
func (s *Service) RemoveBooking(ctx context.Context, bookingID int64) error {
	row, ok := s.getCachedRow(bookingID)
	if !ok {
		return nil
	}
	rangeA1 := fmt.Sprintf("%s!A%d:J%d", sheetName, row, row)
	_, err := s.api.Spreadsheets.Values.Clear(s.spreadsheetID, rangeA1, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return err
	}
	s.deleteCachedRow(bookingID)
	return nil
}

// SyncAll rewrites the whole sheet from the live pending and approved
// bookings and rebuilds the row cache.
func (s *Service) SyncAll(ctx context.Context) error {
	var live []model.Booking
	for _, status := range []model.BookingStatus{model.BookingPending, model.BookingApproved} {
		bookings, err := s.store.ListBookings(ctx, database.BookingFilter{Status: status})
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		live = append(live, bookings...)
	}

	_, err := s.api.Spreadsheets.Values.Clear(s.spreadsheetID, sheetName+"!A:J", &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	rows := [][]interface{}{headerRow}
	s.ClearCache()
	for i, b := range live {
		facilityName := strconv.FormatInt(b.FacilityID, 10)
		if facility, err := s.store.GetFacility(ctx, b.FacilityID); err == nil {
			facilityName = facility.Name
		}
		rows = append(rows, bookingRowValues(&live[i], facilityName))
		s.setCachedRow(b.ID, i+2) // row 1 is the header
	}

	_, err = s.api.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("%s!A1:J%d", sheetName, len(rows)), &sheetsapi.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.logger.Info().Int("rows", len(live)).Msg("sheets mirror resynced")
	return nil
}

func bookingRowValues(b *model.Booking, facilityName string) []interface{} {
	return []interface{}{
		b.ID,
		facilityName,
		b.RequesterID,
		b.Date.Format("2006-01-02"),
		b.Start.String(),
		b.End.String(),
		string(b.Status),
		b.TotalAmount,
		b.Purpose,
		b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// rowFromRange extracts the 1-based row from a range like "Schedule!A5:J5".
func rowFromRange(updatedRange string) (int, bool) {
	parts := strings.SplitN(updatedRange, "!", 2)
	if len(parts) != 2 {
		return 0, false
	}
	cell := strings.SplitN(parts[1], ":", 2)[0]
	digits := strings.TrimLeft(cell, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, false
	}
	return row, true
}

func (s *Service) getCachedRow(bookingID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[bookingID]
	return row, ok
}

func (s *Service) setCachedRow(bookingID int64, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[bookingID] = row
}

func (s *Service) deleteCachedRow(bookingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, bookingID)
}

// ClearCache drops every cached row index.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[int64]int)
}
