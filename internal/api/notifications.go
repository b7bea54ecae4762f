package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/middleware"
	"github.com/lalith-99/fretboard/internal/repository"
	"go.uber.org/zap"
)

// NotificationHandler serves the caller's own notifications.
type NotificationHandler struct {
	repo      repository.NotificationRepository
	publisher *live.Publisher
	logger    *zap.Logger
}

func NewNotificationHandler(repo repository.NotificationRepository, publisher *live.Publisher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, publisher: publisher, logger: logger}
}

// List handles GET /v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.repo.ListByRecipient(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// MarkRead handles PATCH /v1/notifications/:id/read. Someone else's
// notification is reported as not found.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uid := middleware.GetUserID(c)

	ok, err := h.repo.MarkRead(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.logger.Error("failed to mark notification read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	h.publisher.Changed(c.Request.Context(), live.NotificationsTopic(uid.String()))
	c.Status(http.StatusNoContent)
}
