package repository

import (
	"context"

	"github.com/shinyyama/closet-market/internal/model"
)

type StatusEventRepository interface {
	Append(ctx context.Context, e *model.StatusEvent) error
	ListByEntity(ctx context.Context, entityID uint64, entityTypes ...string) ([]model.StatusEvent, error)
}

type statusEventRepository struct {
	base
}

func (r *statusEventRepository) Append(ctx context.Context, e *model.StatusEvent) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Create(e).Error
}

func (r *statusEventRepository) ListByEntity(ctx context.Context, entityID uint64, entityTypes ...string) ([]model.StatusEvent, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var list []model.StatusEvent
	if err := db.Where("entity_id = ? AND entity_type IN ?", entityID, entityTypes).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
