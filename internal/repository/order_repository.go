package repository

import (
	"context"

	"github.com/shinyyama/closet-market/internal/model"
	"gorm.io/gorm"
)

type OrderRole string

const (
	OrderRoleAny    OrderRole = ""
	OrderRoleBuyer  OrderRole = "buyer"
	OrderRoleSeller OrderRole = "seller"
)

type OrderFilter struct {
	UserUID string
	Role    OrderRole
	Status  model.OrderStatus
	Page
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id uint64) (*model.Order, error)
	FindByCode(ctx context.Context, code string) (*model.Order, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// Save writes o if nobody else saved it since it was read and bumps
	// o.Version. It returns ErrStaleVersion otherwise.
	Save(ctx context.Context, o *model.Order) error
	HasOpenForListing(ctx context.Context, listingID uint64) (bool, error)
	List(ctx context.Context, f OrderFilter) ([]model.Order, int64, error)
	// ListAllBySeller is unpaginated, for exports.
	ListAllBySeller(ctx context.Context, sellerUID string) ([]model.Order, error)
	CountByStatus(ctx context.Context, userUID string, role OrderRole) ([]StatusCount, error)
}

var terminalOrderStatuses = []model.OrderStatus{
	model.OrderStatusCompleted,
	model.OrderStatusCancelled,
	model.OrderStatusRefunded,
}

type orderRepository struct {
	base
}

func (r *orderRepository) Create(ctx context.Context, o *model.Order) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	if o.Version == 0 {
		o.Version = 1
	}
	return translate(db.Create(o).Error)
}

func (r *orderRepository) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := db.First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepository) FindByCode(ctx context.Context, code string) (*model.Order, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := db.Where("code = ?", code).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := db.Model(&model.Order{}).Where("code = ?", code).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *orderRepository) Save(ctx context.Context, o *model.Order) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	prev := o.Version
	o.Version = prev + 1
	res := db.Model(o).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(o)
	if res.Error != nil {
		o.Version = prev
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		o.Version = prev
		return ErrStaleVersion
	}
	return nil
}

func (r *orderRepository) HasOpenForListing(ctx context.Context, listingID uint64) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := db.Model(&model.Order{}).
		Where("listing_id = ? AND order_status NOT IN ?", listingID, terminalOrderStatuses).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *orderRepository) List(ctx context.Context, f OrderFilter) ([]model.Order, int64, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, 0, err
	}
	q := scopeRole(db.Model(&model.Order{}), f.UserUID, f.Role)
	if f.Status != "" {
		q = q.Where("order_status = ?", f.Status)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := f.Page.normalize()
	var list []model.Order
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *orderRepository) ListAllBySeller(ctx context.Context, sellerUID string) ([]model.Order, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var list []model.Order
	if err := db.Where("seller_uid = ?", sellerUID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context, userUID string, role OrderRole) ([]StatusCount, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var rows []StatusCount
	if err := scopeRole(db.Model(&model.Order{}), userUID, role).
		Select("order_status AS status, COUNT(*) AS count, COALESCE(SUM(item_price), 0) AS amount").
		Group("order_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func scopeRole(q *gorm.DB, uid string, role OrderRole) *gorm.DB {
	switch role {
	case OrderRoleBuyer:
		return q.Where("buyer_uid = ?", uid)
	case OrderRoleSeller:
		return q.Where("seller_uid = ?", uid)
	}
	return q.Where("buyer_uid = ? OR seller_uid = ?", uid, uid)
}
