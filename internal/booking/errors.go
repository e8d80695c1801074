package booking

import "errors"

var (
	// ErrFacilityNotFound is returned when the facility does not exist.
	ErrFacilityNotFound = errors.New("facility not found")
	// ErrFacilityInactive is returned when the facility has been deactivated.
	ErrFacilityInactive = errors.New("facility is inactive")
	// ErrPastDate is returned when the requested date is before today.
	ErrPastDate = errors.New("booking date is in the past")
	// ErrTooFarAhead is returned when the date exceeds the advance window.
	ErrTooFarAhead = errors.New("booking date exceeds advance window")
	// ErrInvalidTimeRange is returned when start is not strictly before end.
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrOutsideOperatingHours is returned when the slot leaves the operating window.
	ErrOutsideOperatingHours = errors.New("outside operating hours")
	// ErrDurationOutOfBounds is returned when the slot length breaks the facility bounds.
	ErrDurationOutOfBounds = errors.New("duration out of bounds")
	// ErrSlotConflict is returned when the slot overlaps a pending or approved booking.
	ErrSlotConflict = errors.New("slot conflict")
	// ErrBookingNotFound is returned when the booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrAlreadyDecided is returned when deciding a booking that is no longer pending.
	ErrAlreadyDecided = errors.New("booking already decided")
	// ErrNotCancellable is returned when the booking cannot be cancelled anymore.
	ErrNotCancellable = errors.New("booking not cancellable")
	// ErrNotAllowed is returned when the actor lacks the capability or ownership.
	ErrNotAllowed = errors.New("not allowed")
	// ErrSlotHeld is returned when another member holds an advisory lock on the slot.
	ErrSlotHeld = errors.New("slot held by another member")
	// ErrStoreUnavailable wraps transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
