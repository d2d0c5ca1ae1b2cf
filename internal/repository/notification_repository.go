package repository

import (
	"context"

	"github.com/shinyyama/closet-market/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListByUser returns newest first, at most 50.
	ListByUser(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkAllRead(ctx context.Context, userUID string) error
	// MarkRead is a no-op for notifications that are already read or
	// belong to someone else.
	MarkRead(ctx context.Context, userUID string, id uint64) error
	CountUnread(ctx context.Context, userUID string) (int64, error)
}

type notificationRepository struct {
	base
}

func inbox(userUID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&model.Notification{}).Where("user_uid = ?", userUID)
	}
}

func unread(db *gorm.DB) *gorm.DB {
	return db.Where("read_at IS NULL")
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return translate(db.Create(n).Error)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := db.Scopes(inbox(userUID))
	if unreadOnly {
		q = q.Scopes(unread)
	}
	var out []model.Notification
	err = q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, translate(err)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userUID string) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Scopes(inbox(userUID), unread).Update("read_at", db.NowFunc()).Error
}

func (r *notificationRepository) MarkRead(ctx context.Context, userUID string, id uint64) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Scopes(inbox(userUID), unread).Where("id = ?", id).Update("read_at", db.NowFunc()).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userUID string) (int64, error) {
	db, err := r.session(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.Scopes(inbox(userUID), unread).Count(&n).Error
	return n, err
}
