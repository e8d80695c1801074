package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"societyhub/internal/events"
	"societyhub/internal/model"
)

// EventHandler runs community events and registrations.
type EventHandler struct {
	Events *events.Service
}

type createEventRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	EventDate       string `json:"event_date" binding:"required"`
	Start           string `json:"start" binding:"required"`
	End             string `json:"end" binding:"required"`
	Location        string `json:"location"`
	MaxAttendees    int    `json:"max_attendees" binding:"min=0"`
	RegistrationFee int64  `json:"registration_fee" binding:"min=0"`
}

// Create publishes a community event.
func (h *EventHandler) Create(c *gin.Context) {
	profileID, role := actor(c)

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, start, end, err := parseSlot(req.EventDate, req.Start, req.End)
	if err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.Events.Create(c.Request.Context(), events.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		EventDate:       date,
		Start:           start,
		End:             end,
		Location:        req.Location,
		MaxAttendees:    req.MaxAttendees,
		RegistrationFee: req.RegistrationFee,
		CreatedBy:       profileID,
	}, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// Upcoming lists active events from today onward.
func (h *EventHandler) Upcoming(c *gin.Context) {
	list, err := h.Events.Upcoming(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.Event{}
	}
	c.JSON(http.StatusOK, list)
}

// Deactivate withdraws an event.
func (h *EventHandler) Deactivate(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	_, role := actor(c)
	if err := h.Events.Deactivate(c.Request.Context(), id, role); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "event deactivated"})
}

// Register admits the caller if seats remain.
func (h *EventHandler) Register(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, _ := actor(c)
	registration, err := h.Events.Register(c.Request.Context(), id, profileID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, registration)
}

// CancelRegistration frees the caller's seat before the event date.
func (h *EventHandler) CancelRegistration(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, _ := actor(c)
	if err := h.Events.CancelRegistration(c.Request.Context(), id, profileID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registration cancelled"})
}

// Attendance reports seats taken against the cap.
func (h *EventHandler) Attendance(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	taken, limit, err := h.Events.Attendance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event_id":      id,
		"taken":         taken,
		"max_attendees": limit,
	})
}

// Mine lists the caller's registrations.
func (h *EventHandler) Mine(c *gin.Context) {
	profileID, _ := actor(c)
	list, err := h.Events.MyRegistrations(c.Request.Context(), profileID)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.EventRegistration{}
	}
	c.JSON(http.StatusOK, list)
}
