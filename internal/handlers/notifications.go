package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/cabinet/internal/middleware"
	"github.com/charlesng35/cabinet/internal/services"
	appErrors "github.com/charlesng35/cabinet/pkg/errors"
	"github.com/charlesng35/cabinet/pkg/response"
)

const defaultNotificationLimit = 25

// NotificationHandler exposes the caller's in-app notifications.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, errors.New("notification handler: service is required")
	}
	return &NotificationHandler{service: service}, nil
}

// List returns the most recent notifications for the current user with the unread count.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", defaultNotificationLimit)
	page, err := h.service.ListForUser(requestContext(c), services.ListNotificationsInput{
		RecipientID: userID,
		Limit:       limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, page.Items, &response.Meta{
		Limit:       limit,
		Total:       len(page.Items),
		UnreadCount: page.UnreadCount,
	})
}

// Unread returns every unread notification for the current user.
func (h *NotificationHandler) Unread(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.service.ListUnread(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Total:       len(items),
		UnreadCount: int64(len(items)),
	})
}

// MarkRead flags a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.NewBadRequest("notification id is required"))
		return
	}

	dto, err := h.service.MarkRead(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead flags every unread notification of the current user as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

func currentUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
