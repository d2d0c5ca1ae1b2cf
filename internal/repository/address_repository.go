package repository

import (
	"context"

	"github.com/shinyyama/closet-market/internal/model"
)

type AddressRepository interface {
	Create(ctx context.Context, a *model.Address) error
	// FindByID only returns addresses owned by userUID.
	FindByID(ctx context.Context, id uint64, userUID string) (*model.Address, error)
	FindDefault(ctx context.Context, userUID string) (*model.Address, error)
	ListByUser(ctx context.Context, userUID string) ([]model.Address, error)
	CountByUser(ctx context.Context, userUID string) (int64, error)
	// SetDefault clears every other default of the user and flags id. Callers
	// run it inside a transaction.
	SetDefault(ctx context.Context, id uint64, userUID string) error
}

type addressRepository struct {
	base
}

func (r *addressRepository) Create(ctx context.Context, a *model.Address) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Create(a).Error
}

func (r *addressRepository) FindByID(ctx context.Context, id uint64, userUID string) (*model.Address, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var a model.Address
	if err := db.Where("id = ? AND user_uid = ?", id, userUID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *addressRepository) FindDefault(ctx context.Context, userUID string) (*model.Address, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var a model.Address
	if err := db.Where("user_uid = ? AND is_default = ?", userUID, true).
		Order("updated_at DESC").
		First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *addressRepository) ListByUser(ctx context.Context, userUID string) ([]model.Address, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var list []model.Address
	if err := db.Where("user_uid = ?", userUID).
		Order("is_default DESC, created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *addressRepository) CountByUser(ctx context.Context, userUID string) (int64, error) {
	db, err := r.session(ctx)
	if err != nil {
		return 0, err
	}
	var cnt int64
	if err := db.Model(&model.Address{}).Where("user_uid = ?", userUID).Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *addressRepository) SetDefault(ctx context.Context, id uint64, userUID string) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	if err := db.Model(&model.Address{}).
		Where("user_uid = ? AND id <> ? AND is_default = ?", userUID, id, true).
		Update("is_default", false).Error; err != nil {
		return err
	}
	res := db.Model(&model.Address{}).
		Where("id = ? AND user_uid = ?", id, userUID).
		Update("is_default", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 when the row already had is_default = true.
		var cnt int64
		if err := db.Model(&model.Address{}).Where("id = ? AND user_uid = ?", id, userUID).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt == 0 {
			return ErrNotFound
		}
	}
	return nil
}
