package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"societyhub/internal/model"
	"societyhub/internal/visitors"
)

// VisitorHandler runs the visitor gate workflow.
type VisitorHandler struct {
	Visitors *visitors.Service
}

type registerVisitorRequest struct {
	VisitorName  string `json:"visitor_name" binding:"required"`
	VisitorPhone string `json:"visitor_phone"`
	Purpose      string `json:"purpose"`
	ExpectedDate string `json:"expected_date" binding:"required"`
}

// Register pre-registers a visitor for the calling host.
func (h *VisitorHandler) Register(c *gin.Context) {
	profileID, _ := actor(c)

	var req registerVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.ExpectedDate)
	if err != nil {
		badRequest(c, errors.New("expected_date must be YYYY-MM-DD"))
		return
	}

	visitor, err := h.Visitors.Register(c.Request.Context(), visitors.RegisterInput{
		HostID:       profileID,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Purpose:      req.Purpose,
		ExpectedDate: date,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, visitor)
}

// List returns visitors for a day; members see only their own guests.
func (h *VisitorHandler) List(c *gin.Context) {
	profileID, role := actor(c)

	var date time.Time
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(c, errors.New("date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	list, err := h.Visitors.List(c.Request.Context(), profileID, role, date)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.Visitor{}
	}
	c.JSON(http.StatusOK, list)
}

// Approve clears a pending visitor for entry.
func (h *VisitorHandler) Approve(c *gin.Context) {
	h.decide(c, h.Visitors.Approve)
}

// Reject turns a pending visitor away.
func (h *VisitorHandler) Reject(c *gin.Context) {
	h.decide(c, h.Visitors.Reject)
}

func (h *VisitorHandler) decide(c *gin.Context, fn func(ctx context.Context, visitorID, actorID int64, actorRole model.Role) (*model.Visitor, error)) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, role := actor(c)
	visitor, err := fn(c.Request.Context(), id, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, visitor)
}

// CheckIn records gate entry against a gate pass.
func (h *VisitorHandler) CheckIn(c *gin.Context) {
	h.gate(c, h.Visitors.CheckIn)
}

// CheckOut records gate exit against a gate pass.
func (h *VisitorHandler) CheckOut(c *gin.Context) {
	h.gate(c, h.Visitors.CheckOut)
}

func (h *VisitorHandler) gate(c *gin.Context, fn func(ctx context.Context, gatePass string, actorID int64, actorRole model.Role) (*model.Visitor, error)) {
	gatePass := c.Param("gate_pass")
	if gatePass == "" {
		badRequest(c, errors.New("gate pass required"))
		return
	}
	profileID, role := actor(c)
	visitor, err := fn(c.Request.Context(), gatePass, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, visitor)
}
