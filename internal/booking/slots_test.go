package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"societyhub/internal/database"
	"societyhub/internal/model"
)

func iv(t *testing.T, start, end string) model.Interval {
	t.Helper()
	return model.Interval{Start: mustTime(t, start), End: mustTime(t, end)}
}

func TestFreeIntervals(t *testing.T) {
	open := model.TimeOfDay(8 * 60)
	close := model.TimeOfDay(20 * 60)

	t.Run("EmptyDayIsOneWindow", func(t *testing.T) {
		free := freeIntervals(open, close, nil)
		assert.Equal(t, []model.Interval{{Start: open, End: close}}, free)
	})

	t.Run("SingleBookingSplitsWindow", func(t *testing.T) {
		free := freeIntervals(open, close, []model.Interval{iv(t, "10:00", "12:00")})
		assert.Equal(t, []model.Interval{
			iv(t, "08:00", "10:00"),
			iv(t, "12:00", "20:00"),
		}, free)
	})

	t.Run("TouchingBookingsLeaveNoGap", func(t *testing.T) {
		free := freeIntervals(open, close, []model.Interval{
			iv(t, "10:00", "12:00"),
			iv(t, "12:00", "14:00"),
		})
		assert.Equal(t, []model.Interval{
			iv(t, "08:00", "10:00"),
			iv(t, "14:00", "20:00"),
		}, free)
	})

	t.Run("UnorderedOverlappingBookings", func(t *testing.T) {
		free := freeIntervals(open, close, []model.Interval{
			iv(t, "15:00", "17:00"),
			iv(t, "09:00", "11:00"),
			iv(t, "10:00", "12:00"),
		})
		assert.Equal(t, []model.Interval{
			iv(t, "08:00", "09:00"),
			iv(t, "12:00", "15:00"),
			iv(t, "17:00", "20:00"),
		}, free)
	})

	t.Run("BookingAtOpenEdge", func(t *testing.T) {
		free := freeIntervals(open, close, []model.Interval{iv(t, "08:00", "10:00")})
		assert.Equal(t, []model.Interval{iv(t, "10:00", "20:00")}, free)
	})

	t.Run("FullyBookedDay", func(t *testing.T) {
		free := freeIntervals(open, close, []model.Interval{iv(t, "08:00", "20:00")})
		assert.Empty(t, free)
	})

	t.Run("BusyOutsideWindowIgnored", func(t *testing.T) {
		free := freeIntervals(open, close, []model.Interval{iv(t, "06:00", "07:00")})
		assert.Equal(t, []model.Interval{{Start: open, End: close}}, free)
	})
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	date := model.DateOnly(time.Now().AddDate(0, 0, 1))

	t.Run("SubtractsPendingAndApproved", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)
		store.On("ListDayBookings", ctx, int64(1), date,
			[]model.BookingStatus{model.BookingPending, model.BookingApproved}).
			Return([]model.Booking{
				{Start: 10 * 60, End: 12 * 60, Status: model.BookingPending},
				{Start: 14 * 60, End: 15 * 60, Status: model.BookingApproved},
			}, nil)

		free, err := svc.AvailableSlots(ctx, 1, date)
		assert.NoError(t, err)
		assert.Equal(t, []model.Interval{
			iv(t, "08:00", "10:00"),
			iv(t, "12:00", "14:00"),
			iv(t, "15:00", "20:00"),
		}, free)
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)
		store.On("ListDayBookings", ctx, int64(1), date,
			[]model.BookingStatus{model.BookingPending, model.BookingApproved}).
			Return([]model.Booking{{Start: 9 * 60, End: 10 * 60}}, nil)

		first, err := svc.AvailableSlots(ctx, 1, date)
		assert.NoError(t, err)
		second, err := svc.AvailableSlots(ctx, 1, date)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("InactiveFacility", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		facility := testFacility()
		facility.IsActive = false
		store.On("GetFacility", ctx, int64(1)).Return(facility, nil)

		_, err := svc.AvailableSlots(ctx, 1, date)
		assert.ErrorIs(t, err, ErrFacilityInactive)
	})

	t.Run("UnknownFacility", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(9)).Return(nil, database.ErrNotFound)

		_, err := svc.AvailableSlots(ctx, 9, date)
		assert.ErrorIs(t, err, ErrFacilityNotFound)
	})
}
