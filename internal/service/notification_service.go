package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/notifications"
	"promptlime/internal/observability"
	"promptlime/internal/repository"
)

// Publisher pushes realtime notification events. userID 0 addresses every
// connected user.
type Publisher interface {
	PublishEvent(ctx context.Context, userID uint, evt models.NotificationEvent) error
}

// SendNotificationInput is an admin fan-out request.
type SendNotificationInput struct {
	Scope   string
	UserID  uint
	Title   string
	Message string
}

// InboxPage is one page of a user's inbox.
type InboxPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Unread        int64                 `json:"unread"`
}

// NotificationService creates inbox entries and serves each user's inbox.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
	now       func() time.Time
}

// NewNotificationService returns a NotificationService. publisher may be nil,
// in which case no realtime push happens.
func NewNotificationService(repo repository.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, now: time.Now}
}

// Send creates one notification per recipient and returns how many were
// created. The realtime push runs after the rows are committed and never
// fails the call.
func (s *NotificationService) Send(ctx context.Context, in SendNotificationInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" || in.Message == "" {
		return 0, models.NewValidationError("Title and message are required")
	}
	if len(in.Title) > 200 {
		return 0, models.NewValidationError("Title must be at most 200 characters")
	}

	evt := models.NotificationEvent{
		Type:    notifications.EventNotification,
		Title:   in.Title,
		Message: in.Message,
	}

	switch in.Scope {
	case models.NotificationScopeAll:
		n, err := s.repo.CreateForAll(ctx, in.Title, in.Message)
		if err != nil {
			return 0, err
		}
		observability.NotificationsCreated.WithLabelValues(in.Scope).Add(float64(n))
		if n > 0 {
			s.push(ctx, 0, evt)
		}
		return n, nil
	case models.NotificationScopeUser:
		if in.UserID == 0 {
			return 0, models.NewValidationError("user_id is required for scope user")
		}
		row, err := s.repo.CreateForUser(ctx, in.UserID, in.Title, in.Message)
		if err != nil {
			return 0, err
		}
		observability.NotificationsCreated.WithLabelValues(in.Scope).Inc()
		evt.ID = row.ID
		s.push(ctx, in.UserID, evt)
		return 1, nil
	default:
		return 0, models.NewValidationError("scope must be 'all' or 'user'")
	}
}

func (s *NotificationService) push(ctx context.Context, userID uint, evt models.NotificationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, userID, evt); err != nil {
		middleware.Logger.WarnContext(ctx, "realtime notification push failed",
			slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

// List returns a page of the user's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) (*InboxPage, error) {
	items, total, err := s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &InboxPage{Notifications: items, Total: total, Unread: unread}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks one of the user's notifications read. Marking an already
// read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	return s.repo.Delete(ctx, id, userID)
}
