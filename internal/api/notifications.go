package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"societyhub/internal/database"
	"societyhub/internal/model"
)

// NotificationHandler exposes each resident's inbox.
type NotificationHandler struct {
	DB *database.DB
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	profileID, _ := actor(c)

	unreadOnly := c.Query("unread") == "true"
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, errInvalidLimit)
			return
		}
		limit = n
	}

	list, err := h.DB.ListNotifications(c.Request.Context(), profileID, unreadOnly, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	profileID, _ := actor(c)
	if err := h.DB.MarkNotificationRead(c.Request.Context(), id, profileID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

// MarkAllRead clears the caller's unread count.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	profileID, _ := actor(c)
	n, err := h.DB.MarkAllNotificationsRead(c.Request.Context(), profileID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
