package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shinyyama/closet-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListingSort string

const (
	SortNewest    ListingSort = "newest"
	SortPriceLow  ListingSort = "price_low"
	SortPriceHigh ListingSort = "price_high"
	SortPopular   ListingSort = "popular"
	SortFeatured  ListingSort = "featured"
)

type ListingFilter struct {
	Type      model.ListingType
	Condition model.ListingCondition
	Status    model.ListingStatus
	SellerUID string
	Category  string
	MinPrice  *int64
	MaxPrice  *int64
	Featured  bool
	Query     string
	Sort      ListingSort
	Page
}

type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	// FindForUpdate row-locks the listings in id order so two transactions
	// touching the same pair cannot deadlock.
	FindForUpdate(ctx context.Context, ids ...uint64) ([]model.Listing, error)
	List(ctx context.Context, f ListingFilter) ([]model.Listing, int64, error)
	// UpdateStatus moves the listing to `to` only if its status is one of from.
	UpdateStatus(ctx context.Context, id uint64, from []model.ListingStatus, to model.ListingStatus, at time.Time) (bool, error)
	IncrementViews(ctx context.Context, id uint64) error
	AddFavorite(ctx context.Context, uid string, id uint64) (bool, error)
	RemoveFavorite(ctx context.Context, uid string, id uint64) (bool, error)
	IsFavorite(ctx context.Context, uid string, id uint64) (bool, error)
	Boost(ctx context.Context, id uint64, at time.Time) error
}

type listingRepository struct {
	base
}

func (r *listingRepository) Create(ctx context.Context, l *model.Listing) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Create(l).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var l model.Listing
	if err := db.First(&l, id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (r *listingRepository) FindForUpdate(ctx context.Context, ids ...uint64) ([]model.Listing, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var list []model.Listing
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) != len(uniq(ids)) {
		return nil, ErrNotFound
	}
	return list, nil
}

func uniq(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *listingRepository) List(ctx context.Context, f ListingFilter) ([]model.Listing, int64, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, 0, err
	}
	q := db.Model(&model.Listing{})
	status := f.Status
	if status == "" {
		status = model.ListingStatusActive
	}
	q = q.Where("status = ?", status)
	if f.Type != "" {
		// "both" listings show up under either filter.
		q = q.Where("listing_type IN ?", []model.ListingType{f.Type, model.ListingTypeBoth})
	}
	if f.Condition != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: "condition"}, Value: f.Condition})
	}
	if f.SellerUID != "" {
		q = q.Where("seller_uid = ?", f.SellerUID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("selling_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("selling_price <= ?", *f.MaxPrice)
	}
	if f.Featured {
		q = q.Where("is_featured = ?", true)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := f.Page.normalize()
	var list []model.Listing
	if err := q.Order(sortClause(f.Sort)).Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func sortClause(s ListingSort) string {
	switch s {
	case SortPriceLow:
		return "selling_price ASC, id DESC"
	case SortPriceHigh:
		return "selling_price DESC, id DESC"
	case SortPopular:
		return "view_count DESC, favorite_count DESC, id DESC"
	case SortFeatured:
		return "is_featured DESC, last_boosted_at DESC, id DESC"
	}
	return "created_at DESC, id DESC"
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint64, from []model.ListingStatus, to model.ListingStatus, at time.Time) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	updates := map[string]interface{}{"status": to}
	if to == model.ListingStatusSold {
		updates["sold_at"] = at
	}
	res := db.Model(&model.Listing{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *listingRepository) IncrementViews(ctx context.Context, id uint64) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Model(&model.Listing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *listingRepository) AddFavorite(ctx context.Context, uid string, id uint64) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ListingFavorite{UserUID: uid, ListingID: id})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, db.Model(&model.Listing{}).
		Where("id = ?", id).
		UpdateColumn("favorite_count", gorm.Expr("favorite_count + 1")).Error
}

func (r *listingRepository) RemoveFavorite(ctx context.Context, uid string, id uint64) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	res := db.Where("user_uid = ? AND listing_id = ?", uid, id).Delete(&model.ListingFavorite{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, db.Model(&model.Listing{}).
		Where("id = ? AND favorite_count > 0", id).
		UpdateColumn("favorite_count", gorm.Expr("favorite_count - 1")).Error
}

func (r *listingRepository) IsFavorite(ctx context.Context, uid string, id uint64) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := db.Model(&model.ListingFavorite{}).
		Where("user_uid = ? AND listing_id = ?", uid, id).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *listingRepository) Boost(ctx context.Context, id uint64, at time.Time) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Model(&model.Listing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"boost_count":     gorm.Expr("boost_count + 1"),
			"last_boosted_at": at,
		}).Error
}
