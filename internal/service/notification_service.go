package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
)

type NotificationService interface {
	Notifier
	List(ctx context.Context, caller Caller, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, caller Caller) error
	MarkRead(ctx context.Context, caller Caller, id uint64) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *slog.Logger) NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationService{repo: repo, logger: logger}
}

// Notify stores n. Failures are logged, never returned.
func (s *notificationService) Notify(ctx context.Context, n model.Notification) {
	if n.UserUID == "" || n.Type == "" {
		return
	}
	ctx, cancel := withShortDeadline(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.repo.Create(ctx, &n); err != nil {
		s.logger.Warn("failed to store notification", "error", err, "user_uid", n.UserUID, "type", n.Type)
	}
}

func (s *notificationService) List(ctx context.Context, caller Caller, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if caller.Anonymous() {
		return nil, 0, ErrForbidden
	}
	list, err := s.repo.ListByUser(ctx, caller.UID, unreadOnly, limit)
	if err != nil {
		return nil, 0, fromRepo(err)
	}
	cnt, err := s.repo.CountUnread(ctx, caller.UID)
	if err != nil {
		return list, 0, fromRepo(err)
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, caller Caller) error {
	if caller.Anonymous() {
		return ErrForbidden
	}
	return fromRepo(s.repo.MarkAllRead(ctx, caller.UID))
}

func (s *notificationService) MarkRead(ctx context.Context, caller Caller, id uint64) error {
	if caller.Anonymous() {
		return ErrForbidden
	}
	if id == 0 {
		return invalid("id", "is required")
	}
	return fromRepo(s.repo.MarkRead(ctx, caller.UID, id))
}

// withShortDeadline keeps a slow notification write from blocking the main flow.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
