package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"promptlime/internal/featureflags"
	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/service"
	"promptlime/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SendNotificationRequest is the body of an admin notification send.
type SendNotificationRequest struct {
	Scope   string `json:"scope" validate:"required,oneof=all user"`
	UserID  uint   `json:"user_id"`
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Message string `json:"message" validate:"required,notblank"`
}

// GetNotifications handles GET /api/notifications
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {object} service.InboxPage
// @Security BearerAuth
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	page := parsePagination(c, 20)

	inbox, err := s.notificationService.List(c.UserContext(), userID, c.QueryBool("unread", false), page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(inbox)
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} object{unread=int}
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	n, err := s.notificationService.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"unread": n})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
// @Summary Mark a notification read
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)
	if err := s.notificationService.MarkRead(c.UserContext(), id, userID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
// @Summary Mark every notification read
// @Tags notifications
// @Produce json
// @Success 200 {object} object{updated=int}
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	n, err := s.notificationService.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// DeleteNotification handles DELETE /api/notifications/:id
// @Summary Delete a notification
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)
	if err := s.notificationService.Delete(c.UserContext(), id, userID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SendNotification handles POST /api/admin/notifications
// @Summary Send a notification to one user or everyone
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SendNotificationRequest true "Notification"
// @Success 201 {object} object{created=int,recipient_online=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/notifications [post]
func (s *Server) SendNotification(c *fiber.Ctx) error {
	var req SendNotificationRequest
	if err := validation.Bind(c, &req); err != nil {
		return respond(c, err)
	}

	created, err := s.notificationService.Send(c.UserContext(), service.SendNotificationInput{
		Scope:   req.Scope,
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
	})
	if err != nil {
		return respond(c, err)
	}
	resp := fiber.Map{"created": created}
	if req.Scope == models.NotificationScopeUser {
		resp["recipient_online"] = s.hub.IsOnline(req.UserID)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// WebsocketHandler streams inbox events to the caller. Every connection
// starts with an unread-count snapshot.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals(localUserID).(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("notification stream rejected",
				slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		unread, err := s.notificationService.UnreadCount(ctx, uid)
		cancel()
		if err == nil {
			if hello, merr := json.Marshal(fiber.Map{"type": "connected", "unread": unread}); merr == nil {
				client.TrySend(hello)
			}
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, _ := currentUserID(c)
		if !s.featureFlags.Enabled(featureflags.RealtimeInbox, userID) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Realtime notifications are unavailable",
			})
		}
		return upgrade(c)
	}
}
