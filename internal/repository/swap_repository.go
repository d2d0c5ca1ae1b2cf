package repository

import (
	"context"
	"time"

	"github.com/shinyyama/closet-market/internal/model"
	"gorm.io/gorm"
)

type SwapRole string

const (
	SwapRoleAny       SwapRole = ""
	SwapRoleRequester SwapRole = "requester"
	SwapRoleReceiver  SwapRole = "receiver"
)

type SwapFilter struct {
	UserUID string
	Role    SwapRole
	Status  model.SwapStatus
	Page
}

type SwapRepository interface {
	Create(ctx context.Context, s *model.SwapRequest) error
	FindByID(ctx context.Context, id uint64) (*model.SwapRequest, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, s *model.SwapRequest) error
	// HasActiveForListings reports whether any non-terminal swap other than
	// excludeID references one of the listings on either side. Pending swaps
	// past their deadline at now do not count.
	HasActiveForListings(ctx context.Context, listingIDs []uint64, excludeID uint64, now time.Time) (bool, error)
	List(ctx context.Context, f SwapFilter) ([]model.SwapRequest, int64, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.SwapRequest, error)
	CountByStatus(ctx context.Context, userUID string) ([]StatusCount, error)
}

type swapRepository struct {
	base
}

func (r *swapRepository) Create(ctx context.Context, s *model.SwapRequest) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return translate(db.Create(s).Error)
}

func (r *swapRepository) FindByID(ctx context.Context, id uint64) (*model.SwapRequest, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var s model.SwapRequest
	if err := db.First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *swapRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := db.Model(&model.SwapRequest{}).Where("code = ?", code).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *swapRepository) Save(ctx context.Context, s *model.SwapRequest) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	prev := s.Version
	s.Version = prev + 1
	res := db.Model(s).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(s)
	if res.Error != nil {
		s.Version = prev
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		s.Version = prev
		return ErrStaleVersion
	}
	return nil
}

func (r *swapRepository) HasActiveForListings(ctx context.Context, listingIDs []uint64, excludeID uint64, now time.Time) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := db.Model(&model.SwapRequest{}).
		Where("status IN ?", model.ActiveSwapStatuses).
		Where("id <> ?", excludeID).
		Where("NOT (status = ? AND expires_at < ?)", model.SwapStatusPending, now).
		Where("requester_listing_id IN ? OR receiver_listing_id IN ?", listingIDs, listingIDs).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *swapRepository) List(ctx context.Context, f SwapFilter) ([]model.SwapRequest, int64, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, 0, err
	}
	q := scopeSwapRole(db.Model(&model.SwapRequest{}), f.UserUID, f.Role)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := f.Page.normalize()
	var list []model.SwapRequest
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *swapRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.SwapRequest, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var list []model.SwapRequest
	if err := db.Where("status = ? AND expires_at < ?", model.SwapStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *swapRepository) CountByStatus(ctx context.Context, userUID string) ([]StatusCount, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var rows []StatusCount
	if err := scopeSwapRole(db.Model(&model.SwapRequest{}), userUID, SwapRoleAny).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func scopeSwapRole(q *gorm.DB, uid string, role SwapRole) *gorm.DB {
	switch role {
	case SwapRoleRequester:
		return q.Where("requester_uid = ?", uid)
	case SwapRoleReceiver:
		return q.Where("receiver_uid = ?", uid)
	}
	return q.Where("requester_uid = ? OR receiver_uid = ?", uid, uid)
}
