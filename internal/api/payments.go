package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"societyhub/internal/database"
	"societyhub/internal/model"
	"societyhub/internal/payments"
)

// PaymentHandler exposes the society ledger.
type PaymentHandler struct {
	Payments *payments.Service
}

type recordPaymentRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,min=1"`
	Type        string `json:"type" binding:"required,oneof=booking event maintenance dues"`
	ReferenceID int64  `json:"reference_id"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

// Record creates a pending ledger entry.
func (h *PaymentHandler) Record(c *gin.Context) {
	_, role := actor(c)

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var due *time.Time
	if req.DueDate != "" {
		t, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			badRequest(c, errors.New("due_date must be YYYY-MM-DD"))
			return
		}
		due = &t
	}

	payment, err := h.Payments.Record(c.Request.Context(), payments.RecordInput{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        model.PaymentType(req.Type),
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		DueDate:     due,
	}, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// Settle moves a payment between ledger states.
func (h *PaymentHandler) Settle(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req struct {
		Action string `json:"action" binding:"required,oneof=complete fail refund"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	_, role := actor(c)
	var payment *model.Payment
	switch req.Action {
	case "complete":
		payment, err = h.Payments.MarkCompleted(c.Request.Context(), id, role)
	case "fail":
		payment, err = h.Payments.MarkFailed(c.Request.Context(), id, role)
	case "refund":
		payment, err = h.Payments.Refund(c.Request.Context(), id, role)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// Get returns one payment, subject to ownership rules.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, role := actor(c)
	payment, err := h.Payments.Get(c.Request.Context(), id, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// ByReceipt looks a payment up by its receipt number.
func (h *PaymentHandler) ByReceipt(c *gin.Context) {
	receipt := c.Param("receipt")
	profileID, role := actor(c)
	payment, err := h.Payments.ByReceipt(c.Request.Context(), receipt, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// List returns ledger entries; members see only their own.
func (h *PaymentHandler) List(c *gin.Context) {
	profileID, role := actor(c)

	filter := database.PaymentFilter{
		Status: model.PaymentStatus(c.Query("status")),
		Type:   model.PaymentType(c.Query("type")),
	}
	list, err := h.Payments.List(c.Request.Context(), filter, profileID, role)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.Payment{}
	}
	c.JSON(http.StatusOK, list)
}
