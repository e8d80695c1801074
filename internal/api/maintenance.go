package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"societyhub/internal/database"
	"societyhub/internal/maintenance"
	"societyhub/internal/model"
)

// MaintenanceHandler runs the repair request workflow.
type MaintenanceHandler struct {
	Maintenance *maintenance.Service
}

type fileMaintenanceRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description" binding:"required"`
	Category      string `json:"category" binding:"required"`
	Priority      string `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	ScheduledDate string `json:"scheduled_date"`
}

// File opens a maintenance request for the caller.
func (h *MaintenanceHandler) File(c *gin.Context) {
	profileID, _ := actor(c)

	var req fileMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var scheduled *time.Time
	if req.ScheduledDate != "" {
		t, err := time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			badRequest(c, errors.New("scheduled_date must be YYYY-MM-DD"))
			return
		}
		scheduled = &t
	}

	request, err := h.Maintenance.File(c.Request.Context(), maintenance.FileInput{
		UserID:        profileID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      model.Priority(req.Priority),
		ScheduledDate: scheduled,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

type progressRequest struct {
	To            string `json:"to" binding:"required,oneof=in_progress completed cancelled"`
	AssignedTo    *int64 `json:"assigned_to"`
	EstimatedCost *int64 `json:"estimated_cost"`
	ActualCost    *int64 `json:"actual_cost"`
	ScheduledDate string `json:"scheduled_date"`
}

// Progress moves a request along its lifecycle.
func (h *MaintenanceHandler) Progress(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var scheduled *time.Time
	if req.ScheduledDate != "" {
		t, err := time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			badRequest(c, errors.New("scheduled_date must be YYYY-MM-DD"))
			return
		}
		scheduled = &t
	}

	profileID, role := actor(c)
	updated, err := h.Maintenance.Progress(c.Request.Context(), id, maintenance.ProgressInput{
		To:            model.MaintenanceStatus(req.To),
		AssignedTo:    req.AssignedTo,
		EstimatedCost: req.EstimatedCost,
		ActualCost:    req.ActualCost,
		ScheduledDate: scheduled,
	}, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Get returns one request, subject to ownership rules.
func (h *MaintenanceHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, role := actor(c)
	request, err := h.Maintenance.Get(c.Request.Context(), id, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// List returns requests; members see only their own.
func (h *MaintenanceHandler) List(c *gin.Context) {
	profileID, role := actor(c)

	filter := database.MaintenanceFilter{
		Status: model.MaintenanceStatus(c.Query("status")),
	}
	list, err := h.Maintenance.List(c.Request.Context(), filter, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.MaintenanceRequest{}
	}
	c.JSON(http.StatusOK, list)
}
