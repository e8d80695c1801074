package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"societyhub/internal/model"
	"societyhub/internal/polls"
)

// PollHandler runs society polls and voting.
type PollHandler struct {
	Polls *polls.Service
}

type createPollRequest struct {
	Title          string   `json:"title" binding:"required"`
	Description    string   `json:"description"`
	Options        []string `json:"options" binding:"required,min=2"`
	MultipleChoice bool     `json:"multiple_choice"`
	EndDate        string   `json:"end_date"`
}

// Create opens a poll.
func (h *PollHandler) Create(c *gin.Context) {
	profileID, role := actor(c)

	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var endDate *time.Time
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			badRequest(c, errors.New("end_date must be YYYY-MM-DD"))
			return
		}
		endDate = &t
	}

	poll, err := h.Polls.Create(c.Request.Context(), polls.CreateInput{
		CreatedBy:      profileID,
		Title:          req.Title,
		Description:    req.Description,
		Options:        req.Options,
		MultipleChoice: req.MultipleChoice,
		EndDate:        endDate,
	}, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, poll)
}

// Close ends voting on a poll.
func (h *PollHandler) Close(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	_, role := actor(c)
	if err := h.Polls.Close(c.Request.Context(), id, role); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll closed"})
}

type voteRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// Vote casts the caller's ballot.
func (h *PollHandler) Vote(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	profileID, _ := actor(c)
	vote, err := h.Polls.Vote(c.Request.Context(), id, profileID, req.OptionID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, vote)
}

// Results tallies votes per option.
func (h *PollHandler) Results(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	results, err := h.Polls.TallyResults(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// List returns polls, active-only by default.
func (h *PollHandler) List(c *gin.Context) {
	activeOnly := c.Query("include_closed") != "true"
	list, err := h.Polls.List(c.Request.Context(), activeOnly)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.Poll{}
	}
	c.JSON(http.StatusOK, list)
}
