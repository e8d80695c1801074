package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"societyhub/internal/booking"
	"societyhub/internal/database"
	"societyhub/internal/events"
	"societyhub/internal/maintenance"
	"societyhub/internal/payments"
	"societyhub/internal/polls"
	"societyhub/internal/visitors"
)

var statusByError = []struct {
	err    error
	status int
}{
	{booking.ErrFacilityNotFound, http.StatusNotFound},
	{booking.ErrBookingNotFound, http.StatusNotFound},
	{visitors.ErrVisitorNotFound, http.StatusNotFound},
	{events.ErrEventNotFound, http.StatusNotFound},
	{maintenance.ErrRequestNotFound, http.StatusNotFound},
	{payments.ErrPaymentNotFound, http.StatusNotFound},
	{polls.ErrPollNotFound, http.StatusNotFound},
	{database.ErrNotFound, http.StatusNotFound},

	{booking.ErrNotAllowed, http.StatusForbidden},
	{visitors.ErrNotAllowed, http.StatusForbidden},
	{events.ErrNotAllowed, http.StatusForbidden},
	{maintenance.ErrNotAllowed, http.StatusForbidden},
	{payments.ErrNotAllowed, http.StatusForbidden},
	{polls.ErrNotAllowed, http.StatusForbidden},

	{booking.ErrSlotConflict, http.StatusConflict},
	{booking.ErrSlotHeld, http.StatusConflict},
	{booking.ErrAlreadyDecided, http.StatusConflict},
	{booking.ErrNotCancellable, http.StatusConflict},
	{visitors.ErrInvalidTransition, http.StatusConflict},
	{events.ErrEventFull, http.StatusConflict},
	{events.ErrAlreadyRegistered, http.StatusConflict},
	{events.ErrNotRegistered, http.StatusConflict},
	{maintenance.ErrInvalidTransition, http.StatusConflict},
	{payments.ErrInvalidTransition, http.StatusConflict},
	{polls.ErrPollClosed, http.StatusConflict},
	{polls.ErrAlreadyVoted, http.StatusConflict},
	{database.ErrDuplicate, http.StatusConflict},

	{booking.ErrFacilityInactive, http.StatusUnprocessableEntity},
	{booking.ErrPastDate, http.StatusUnprocessableEntity},
	{booking.ErrTooFarAhead, http.StatusUnprocessableEntity},
	{booking.ErrInvalidTimeRange, http.StatusUnprocessableEntity},
	{booking.ErrOutsideOperatingHours, http.StatusUnprocessableEntity},
	{booking.ErrDurationOutOfBounds, http.StatusUnprocessableEntity},
	{events.ErrEventInactive, http.StatusUnprocessableEntity},
	{events.ErrEventPast, http.StatusUnprocessableEntity},
	{polls.ErrUnknownOption, http.StatusUnprocessableEntity},

	{visitors.ErrInvalidInput, http.StatusBadRequest},
	{events.ErrInvalidInput, http.StatusBadRequest},
	{maintenance.ErrInvalidInput, http.StatusBadRequest},
	{payments.ErrInvalidInput, http.StatusBadRequest},
	{polls.ErrInvalidInput, http.StatusBadRequest},

	{booking.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{visitors.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{events.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{maintenance.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{payments.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{polls.ErrStoreUnavailable, http.StatusServiceUnavailable},
}

// fail translates a service error into an HTTP response.
func fail(c *gin.Context, err error) {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

var errInvalidLimit = errors.New("limit must be a positive integer")
