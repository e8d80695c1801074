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

// FacilityHandler manages bookable amenities and their availability.
type FacilityHandler struct {
	DB       *database.DB
	Bookings *booking.Service
}

type facilityRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Capacity    int      `json:"capacity" binding:"min=0"`
	HourlyRate  int64    `json:"hourly_rate" binding:"min=0"`
	Amenities   []string `json:"amenities"`
	OpenTime    string   `json:"open_time" binding:"required"`
	CloseTime   string   `json:"close_time" binding:"required"`
	MinDuration int      `json:"min_duration_minutes" binding:"min=0"`
	MaxDuration int      `json:"max_duration_minutes" binding:"min=0"`
}

func (r facilityRequest) toModel() (*model.Facility, error) {
	open, err := model.ParseTimeOfDay(r.OpenTime)
	if err != nil {
		return nil, err
	}
	closeAt, err := model.ParseTimeOfDay(r.CloseTime)
	if err != nil {
		return nil, err
	}
	if closeAt <= open {
		return nil, errors.New("close_time must be after open_time")
	}
	return &model.Facility{
		Name:        r.Name,
		Description: r.Description,
		Capacity:    r.Capacity,
		HourlyRate:  r.HourlyRate,
		Amenities:   r.Amenities,
		OpenTime:    open,
		CloseTime:   closeAt,
		MinDuration: r.MinDuration,
		MaxDuration: r.MaxDuration,
		IsActive:    true,
	}, nil
}

// Create adds a facility to the catalogue.
func (h *FacilityHandler) Create(c *gin.Context) {
	var req facilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	facility, err := req.toModel()
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.DB.CreateFacility(c.Request.Context(), facility); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, facility)
}

// List returns facilities; members see only active ones.
func (h *FacilityHandler) List(c *gin.Context) {
	activeOnly := c.Query("include_inactive") != "true"
	facilities, err := h.DB.ListFacilities(c.Request.Context(), activeOnly)
	if err != nil {
		fail(c, err)
		return
	}
	if facilities == nil {
		facilities = []model.Facility{}
	}
	c.JSON(http.StatusOK, facilities)
}

// Get returns a single facility.
func (h *FacilityHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	facility, err := h.DB.GetFacility(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, facility)
}

// Update rewrites a facility definition.
func (h *FacilityHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req facilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	facility, err := req.toModel()
	if err != nil {
		badRequest(c, err)
		return
	}
	facility.ID = id
	current, err := h.DB.GetFacility(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	facility.IsActive = current.IsActive
	if err := h.DB.UpdateFacility(c.Request.Context(), facility); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, facility)
}

// Deactivate retires a facility from booking.
func (h *FacilityHandler) Deactivate(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.DB.DeactivateFacility(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "facility deactivated"})
}

// Slots returns the free intervals of a facility on a given day.
func (h *FacilityHandler) Slots(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		badRequest(c, errors.New("date must be YYYY-MM-DD"))
		return
	}
	slots, err := h.Bookings.AvailableSlots(c.Request.Context(), id, date)
	if err != nil {
		fail(c, err)
		return
	}
	if slots == nil {
		slots = []model.Interval{}
	}
	c.JSON(http.StatusOK, gin.H{
		"facility_id": id,
		"date":        date.Format("2006-01-02"),
		"slots":       slots,
	})
}
