package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"societyhub/internal/booking"
	"societyhub/internal/database"
	"societyhub/internal/model"
)

// BookingHandler exposes the facility booking workflow.
type BookingHandler struct {
	Bookings *booking.Service
	Holds    *booking.HoldManager
}

type createBookingRequest struct {
	FacilityID int64  `json:"facility_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
	Start      string `json:"start" binding:"required"`
	End        string `json:"end" binding:"required"`
	Purpose    string `json:"purpose"`
}

func parseSlot(dateStr, startStr, endStr string) (time.Time, model.TimeOfDay, model.TimeOfDay, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, 0, 0, errors.New("date must be YYYY-MM-DD")
	}
	start, err := model.ParseTimeOfDay(startStr)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	end, err := model.ParseTimeOfDay(endStr)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	return date, start, end, nil
}

// Create submits a booking request for the caller.
func (h *BookingHandler) Create(c *gin.Context) {
	profileID, _ := actor(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, start, end, err := parseSlot(req.Date, req.Start, req.End)
	if err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.Bookings.Request(c.Request.Context(), booking.RequestInput{
		FacilityID:  req.FacilityID,
		RequesterID: profileID,
		Date:        date,
		Start:       start,
		End:         end,
		Purpose:     req.Purpose,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get returns one booking, subject to ownership rules.
func (h *BookingHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, role := actor(c)
	b, err := h.Bookings.Get(c.Request.Context(), id, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// List returns bookings. Members are pinned to their own rows.
func (h *BookingHandler) List(c *gin.Context) {
	profileID, role := actor(c)

	filter := database.BookingFilter{
		Status: model.BookingStatus(c.Query("status")),
	}
	if v := c.Query("facility_id"); v != "" {
		id, err := parseInt64(v)
		if err != nil {
			badRequest(c, errors.New("facility_id must be an integer"))
			return
		}
		filter.FacilityID = id
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(c, errors.New("from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(c, errors.New("to must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = t
	}

	bookings, err := h.Bookings.List(c.Request.Context(), filter, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

type decideRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
}

// Decide approves or rejects a pending booking.
func (h *BookingHandler) Decide(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profileID, role := actor(c)
	b, err := h.Bookings.Decide(c.Request.Context(), id, booking.Decision(req.Decision), profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Cancel withdraws a booking.
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, role := actor(c)
	b, err := h.Bookings.Cancel(c.Request.Context(), id, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type holdRequest struct {
	FacilityID int64  `json:"facility_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
	Start      string `json:"start" binding:"required"`
	End        string `json:"end" binding:"required"`
}

// Hold places a short-lived reservation on a slot while the member
// completes the booking form. No-op when holds are not configured.
func (h *BookingHandler) Hold(c *gin.Context) {
	if h.Holds == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "slot holds not enabled"})
		return
	}
	profileID, _ := actor(c)

	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, start, end, err := parseSlot(req.Date, req.Start, req.End)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Holds.Hold(c.Request.Context(), req.FacilityID, date, start, end, profileID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "slot held"})
}

// ReleaseHold drops the caller's hold on a slot.
func (h *BookingHandler) ReleaseHold(c *gin.Context) {
	if h.Holds == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "slot holds not enabled"})
		return
	}
	profileID, _ := actor(c)

	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, start, end, err := parseSlot(req.Date, req.Start, req.End)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Holds.Release(c.Request.Context(), req.FacilityID, date, start, end, profileID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "hold released"})
}
