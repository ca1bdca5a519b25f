package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/nano-midea/notifier/internal/middleware"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/labstack/echo/v4"
)

// NotificationHandler serves the historical notification read path.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications repositories.NotificationRepository, users repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, users: users}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
}

// EnrichedNotification includes actor info
type EnrichedNotification struct {
	models.Notification
	Actor models.UserCompact `json:"actor"`
}

func (h *NotificationHandler) enrich(ctx context.Context, notifications []models.Notification) []EnrichedNotification {
	enriched := make([]EnrichedNotification, len(notifications))
	actors := make(map[string]models.UserCompact)

	for i, n := range notifications {
		enriched[i] = EnrichedNotification{Notification: n}
		actor, ok := actors[n.ActorID]
		if !ok {
			actor = models.UserCompact{ID: n.ActorID}
			if user, err := h.users.FindUserByID(ctx, n.ActorID); err == nil {
				actor = user.ToCompact()
			}
			actors[n.ActorID] = actor
		}
		enriched[i].Actor = actor
	}
	return enriched
}

func currentUser(c echo.Context) (string, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "user not authenticated")
	}
	return id, nil
}

// GetNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c)

	ctx := c.Request().Context()
	notifications, total, err := h.notifications.ListNotifications(ctx, userID, page, limit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list notifications")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"notifications": h.enrich(ctx, notifications)},
		"meta":    pageMeta(page, limit, total),
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "count unread notifications")
	}
	return success(c, http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.notifications.MarkNotificationRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "mark notification read")
	}
	return success(c, http.StatusOK, echo.Map{"read": true})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.notifications.MarkAllNotificationsRead(c.Request().Context(), userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "mark notifications read")
	}
	return success(c, http.StatusOK, echo.Map{"read": true})
}
