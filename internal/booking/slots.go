package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"societyhub/internal/database"
	"societyhub/internal/model"
)

// AvailableSlots returns the ordered free intervals within the facility's
// operating window for a date, after subtracting pending and approved
// bookings. Read-only; calling it twice without intervening writes returns
// the same answer.
func (s *Service) AvailableSlots(ctx context.Context, facilityID int64, date time.Time) ([]model.Interval, error) {
	facility, err := s.store.GetFacility(ctx, facilityID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrFacilityNotFound
		}
		return nil, fmt.Errorf("%w: load facility: %v", ErrStoreUnavailable, err)
	}
	if !facility.IsActive {
		return nil, ErrFacilityInactive
	}

	bookings, err := s.store.ListDayBookings(ctx, facilityID, date,
		model.BookingPending, model.BookingApproved)
	if err != nil {
		return nil, fmt.Errorf("%w: load day bookings: %v", ErrStoreUnavailable, err)
	}

	busy := make([]model.Interval, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, b.Interval())
	}
	return freeIntervals(facility.OpenTime, facility.CloseTime, busy), nil
}

// freeIntervals subtracts busy intervals from the [open, close) window.
// Busy intervals may arrive unordered and overlapping; touching intervals
// do not split the free space between them.
func freeIntervals(open, close model.TimeOfDay, busy []model.Interval) []model.Interval {
	if open >= close {
		return nil
	}
	if len(busy) == 0 {
		return []model.Interval{{Start: open, End: close}}
	}

	sorted := append([]model.Interval(nil), busy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var free []model.Interval
	cursor := open
	for _, b := range sorted {
		if b.End <= cursor || b.Start >= close {
			continue
		}
		if b.Start > cursor {
			free = append(free, model.Interval{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < close {
		free = append(free, model.Interval{Start: cursor, End: close})
	}
	return free
}
