package booking

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"societyhub/internal/database"
	"societyhub/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetFacility(ctx context.Context, id int64) (*model.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Facility), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockStore) ListDayBookings(ctx context.Context, facilityID int64, date time.Time, statuses ...model.BookingStatus) ([]model.Booking, error) {
	args := m.Called(ctx, facilityID, date, statuses)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *mockStore) ListBookings(ctx context.Context, filter database.BookingFilter) ([]model.Booking, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *mockStore) CreateBookingIfFree(ctx context.Context, b *model.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) ApproveBookingIfFree(ctx context.Context, id, version, deciderID int64) error {
	return m.Called(ctx, id, version, deciderID).Error(0)
}

func (m *mockStore) RejectBooking(ctx context.Context, id, version, deciderID int64) error {
	return m.Called(ctx, id, version, deciderID).Error(0)
}

func (m *mockStore) CancelBooking(ctx context.Context, id, version int64, from model.BookingStatus) error {
	return m.Called(ctx, id, version, from).Error(0)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

func mustTime(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

// newTestService wires a service with no holds. bus is the interface type so
// a plain nil stays a nil interface and publishing is skipped.
func newTestService(store *mockStore, bus Bus) *Service {
	logger := zerolog.New(io.Discard)
	return NewService(store, bus, nil, 30, &logger)
}

func testFacility() *model.Facility {
	return &model.Facility{
		ID:          1,
		Name:        "Clubhouse",
		HourlyRate:  500,
		OpenTime:    8 * 60,
		CloseTime:   20 * 60,
		MinDuration: 30,
		MaxDuration: 240,
		IsActive:    true,
	}
}

func TestRequest(t *testing.T) {
	ctx := context.Background()
	tomorrow := model.DateOnly(time.Now().AddDate(0, 0, 1))

	t.Run("AcceptsValidRequestAndPricesIt", func(t *testing.T) {
		store := new(mockStore)
		bus := new(mockBus)
		svc := newTestService(store, bus)

		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)
		store.On("CreateBookingIfFree", ctx, mock.AnythingOfType("*model.Booking")).
			Run(func(args mock.Arguments) {
				b := args.Get(1).(*model.Booking)
				b.ID = 42
				b.Status = model.BookingPending
				b.Version = 1
			}).Return(nil)
		bus.On("PublishJSON", EventBookingRequested, mock.Anything).Return(nil)

		b, err := svc.Request(ctx, RequestInput{
			FacilityID:  1,
			RequesterID: 7,
			Date:        tomorrow,
			Start:       mustTime(t, "10:00"),
			End:         mustTime(t, "12:00"),
			Purpose:     "birthday",
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(42), b.ID)
		assert.Equal(t, model.BookingPending, b.Status)
		assert.Equal(t, int64(1000), b.TotalAmount)
		store.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("FreeFacilityCostsNothing", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		facility := testFacility()
		facility.HourlyRate = 0
		store.On("GetFacility", ctx, int64(1)).Return(facility, nil)
		store.On("CreateBookingIfFree", ctx, mock.Anything).Return(nil)

		b, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7, Date: tomorrow,
			Start: mustTime(t, "09:00"), End: mustTime(t, "10:00"),
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(0), b.TotalAmount)
	})

	t.Run("InactiveFacility", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		facility := testFacility()
		facility.IsActive = false
		store.On("GetFacility", ctx, int64(1)).Return(facility, nil)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7, Date: tomorrow,
			Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		assert.ErrorIs(t, err, ErrFacilityInactive)
	})

	t.Run("UnknownFacility", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		store.On("GetFacility", ctx, int64(99)).Return(nil, database.ErrNotFound)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 99, RequesterID: 7, Date: tomorrow,
			Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		assert.ErrorIs(t, err, ErrFacilityNotFound)
	})

	t.Run("PastDate", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7,
			Date:  time.Now().AddDate(0, 0, -1),
			Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		assert.ErrorIs(t, err, ErrPastDate)
	})

	t.Run("TodayIsNotPast", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)
		store.On("CreateBookingIfFree", ctx, mock.Anything).Return(nil)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7, Date: time.Now(),
			Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		assert.NoError(t, err)
	})

	t.Run("TodayIsNotPastWestOfUTC", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		// Late evening at UTC-5; the wire date arrives as UTC midnight of
		// the same calendar day.
		svc.now = func() time.Time {
			return time.Date(2026, 3, 14, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
		}
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)
		store.On("CreateBookingIfFree", ctx, mock.Anything).Return(nil)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7,
			Date:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		assert.NoError(t, err)
	})

	t.Run("TooFarAhead", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7,
			Date:  time.Now().AddDate(0, 0, 45),
			Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		assert.ErrorIs(t, err, ErrTooFarAhead)
	})

	t.Run("StartNotBeforeEnd", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)

		for _, slot := range [][2]string{{"12:00", "12:00"}, {"13:00", "12:00"}} {
			_, err := svc.Request(ctx, RequestInput{
				FacilityID: 1, RequesterID: 7, Date: tomorrow,
				Start: mustTime(t, slot[0]), End: mustTime(t, slot[1]),
			})
			assert.ErrorIs(t, err, ErrInvalidTimeRange)
		}
	})

	t.Run("OutsideOperatingHours", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)

		for _, slot := range [][2]string{{"07:00", "09:00"}, {"19:00", "21:00"}} {
			_, err := svc.Request(ctx, RequestInput{
				FacilityID: 1, RequesterID: 7, Date: tomorrow,
				Start: mustTime(t, slot[0]), End: mustTime(t, slot[1]),
			})
			assert.ErrorIs(t, err, ErrOutsideOperatingHours)
		}
	})

	t.Run("DurationOutOfBounds", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)

		// 15 minutes is under the 30 minute floor.
		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7, Date: tomorrow,
			Start: mustTime(t, "10:00"), End: mustTime(t, "10:15"),
		})
		assert.ErrorIs(t, err, ErrDurationOutOfBounds)

		// 5 hours is over the 4 hour cap.
		_, err = svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7, Date: tomorrow,
			Start: mustTime(t, "09:00"), End: mustTime(t, "14:00"),
		})
		assert.ErrorIs(t, err, ErrDurationOutOfBounds)
	})

	t.Run("SlotConflict", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetFacility", ctx, int64(1)).Return(testFacility(), nil)
		store.On("CreateBookingIfFree", ctx, mock.Anything).Return(database.ErrSlotTaken)

		_, err := svc.Request(ctx, RequestInput{
			FacilityID: 1, RequesterID: 7, Date: tomorrow,
			Start: mustTime(t, "10:00"), End: mustTime(t, "12:00"),
		})
		assert.ErrorIs(t, err, ErrSlotConflict)
	})
}

func TestPrice(t *testing.T) {
	assert.Equal(t, int64(1000), price(500, 120))
	assert.Equal(t, int64(250), price(500, 30))
	assert.Equal(t, int64(750), price(500, 90))
	assert.Equal(t, int64(0), price(0, 120))
	assert.Equal(t, int64(0), price(500, 0))
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	future := model.DateOnly(time.Now().AddDate(0, 0, 2))

	pending := func() *model.Booking {
		return &model.Booking{
			ID: 42, FacilityID: 1, RequesterID: 7,
			Date:  future,
			Start: 10 * 60, End: 12 * 60,
			Status: model.BookingPending, Version: 1,
		}
	}

	t.Run("ApproveHappyPath", func(t *testing.T) {
		store := new(mockStore)
		bus := new(mockBus)
		svc := newTestService(store, bus)

		approved := pending()
		approved.Status = model.BookingApproved
		approved.Version = 2

		store.On("GetBooking", ctx, int64(42)).Return(pending(), nil).Once()
		store.On("ApproveBookingIfFree", ctx, int64(42), int64(1), int64(3)).Return(nil)
		store.On("GetBooking", ctx, int64(42)).Return(approved, nil).Once()
		bus.On("PublishJSON", EventBookingApproved, mock.Anything).Return(nil)

		b, err := svc.Decide(ctx, 42, DecisionApprove, 3, model.RoleSecretary)
		assert.NoError(t, err)
		assert.Equal(t, model.BookingApproved, b.Status)
		store.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("RejectHappyPath", func(t *testing.T) {
		store := new(mockStore)
		bus := new(mockBus)
		svc := newTestService(store, bus)

		rejected := pending()
		rejected.Status = model.BookingRejected

		store.On("GetBooking", ctx, int64(42)).Return(pending(), nil).Once()
		store.On("RejectBooking", ctx, int64(42), int64(1), int64(3)).Return(nil)
		store.On("GetBooking", ctx, int64(42)).Return(rejected, nil).Once()
		bus.On("PublishJSON", EventBookingRejected, mock.Anything).Return(nil)

		b, err := svc.Decide(ctx, 42, DecisionReject, 3, model.RoleAdmin)
		assert.NoError(t, err)
		assert.Equal(t, model.BookingRejected, b.Status)
	})

	t.Run("MemberCannotDecide", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.Decide(ctx, 42, DecisionApprove, 7, model.RoleMember)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("SecurityCannotDecide", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.Decide(ctx, 42, DecisionApprove, 9, model.RoleSecurity)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("AlreadyDecided", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		decided := pending()
		decided.Status = model.BookingApproved
		store.On("GetBooking", ctx, int64(42)).Return(decided, nil)

		_, err := svc.Decide(ctx, 42, DecisionApprove, 3, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	})

	t.Run("ApproveConflictLeavesPending", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		store.On("GetBooking", ctx, int64(42)).Return(pending(), nil)
		store.On("ApproveBookingIfFree", ctx, int64(42), int64(1), int64(3)).
			Return(database.ErrSlotTaken)

		_, err := svc.Decide(ctx, 42, DecisionApprove, 3, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrSlotConflict)
		// No reject call: the row stays pending for manual resolution.
		store.AssertNotCalled(t, "RejectBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ConcurrentDecisionLosesAsAlreadyDecided", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		store.On("GetBooking", ctx, int64(42)).Return(pending(), nil)
		store.On("ApproveBookingIfFree", ctx, int64(42), int64(1), int64(3)).
			Return(database.ErrVersionConflict)

		_, err := svc.Decide(ctx, 42, DecisionApprove, 3, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	})

	t.Run("BookingNotFound", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetBooking", ctx, int64(404)).Return(nil, database.ErrNotFound)

		_, err := svc.Decide(ctx, 404, DecisionApprove, 3, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	booking := func(status model.BookingStatus, date time.Time) *model.Booking {
		return &model.Booking{
			ID: 42, FacilityID: 1, RequesterID: 7,
			Date: model.DateOnly(date), Start: 10 * 60, End: 12 * 60,
			Status: status, Version: 2,
		}
	}

	t.Run("RequesterCancelsPending", func(t *testing.T) {
		store := new(mockStore)
		bus := new(mockBus)
		svc := newTestService(store, bus)

		b := booking(model.BookingPending, time.Now())
		cancelled := booking(model.BookingCancelled, time.Now())

		store.On("GetBooking", ctx, int64(42)).Return(b, nil).Once()
		store.On("CancelBooking", ctx, int64(42), int64(2), model.BookingPending).Return(nil)
		store.On("GetBooking", ctx, int64(42)).Return(cancelled, nil).Once()
		bus.On("PublishJSON", EventBookingCancelled, mock.Anything).Return(nil)

		got, err := svc.Cancel(ctx, 42, 7, model.RoleMember)
		assert.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, got.Status)
	})

	t.Run("ApprovedFutureDateCancellable", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		future := time.Now().AddDate(0, 0, 3)
		store.On("GetBooking", ctx, int64(42)).Return(booking(model.BookingApproved, future), nil).Once()
		store.On("CancelBooking", ctx, int64(42), int64(2), model.BookingApproved).Return(nil)
		store.On("GetBooking", ctx, int64(42)).Return(booking(model.BookingCancelled, future), nil).Once()

		_, err := svc.Cancel(ctx, 42, 7, model.RoleMember)
		assert.NoError(t, err)
	})

	t.Run("ApprovedTodayNotCancellable", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetBooking", ctx, int64(42)).Return(booking(model.BookingApproved, time.Now()), nil)

		_, err := svc.Cancel(ctx, 42, 7, model.RoleMember)
		assert.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("ApprovedSameDayEastOfUTCNotCancellable", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		// Early morning at UTC+5:30 on the booking's calendar day. The
		// UTC clock still reads the previous day, which must not make
		// the booking look future-dated.
		svc.now = func() time.Time {
			return time.Date(2026, 3, 14, 1, 0, 0, 0, time.FixedZone("UTC+5:30", 5*3600+1800))
		}
		day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		store.On("GetBooking", ctx, int64(42)).Return(booking(model.BookingApproved, day), nil)

		_, err := svc.Cancel(ctx, 42, 7, model.RoleMember)
		assert.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("TerminalStatusesNotCancellable", func(t *testing.T) {
		for _, status := range []model.BookingStatus{model.BookingRejected, model.BookingCancelled} {
			store := new(mockStore)
			svc := newTestService(store, nil)
			store.On("GetBooking", ctx, int64(42)).Return(booking(status, time.Now().AddDate(0, 0, 3)), nil)

			_, err := svc.Cancel(ctx, 42, 7, model.RoleMember)
			assert.ErrorIs(t, err, ErrNotCancellable, string(status))
		}
	})

	t.Run("StrangerMemberCannotCancel", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetBooking", ctx, int64(42)).Return(booking(model.BookingPending, time.Now()), nil)

		_, err := svc.Cancel(ctx, 42, 99, model.RoleMember)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("StaffCancelsAnyPending", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		b := booking(model.BookingPending, time.Now())
		store.On("GetBooking", ctx, int64(42)).Return(b, nil).Once()
		store.On("CancelBooking", ctx, int64(42), int64(2), model.BookingPending).Return(nil)
		store.On("GetBooking", ctx, int64(42)).Return(booking(model.BookingCancelled, time.Now()), nil).Once()

		_, err := svc.Cancel(ctx, 42, 3, model.RoleSecretary)
		assert.NoError(t, err)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("MemberPinnedToOwnBookings", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		store.On("ListBookings", ctx, database.BookingFilter{RequesterID: 7}).
			Return([]model.Booking{}, nil)

		_, err := svc.List(ctx, database.BookingFilter{RequesterID: 99}, 7, model.RoleMember)
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("StaffFilterPassesThrough", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		filter := database.BookingFilter{FacilityID: 1, Status: model.BookingPending}
		store.On("ListBookings", ctx, filter).Return([]model.Booking{}, nil)

		_, err := svc.List(ctx, filter, 3, model.RoleAdmin)
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})
}
