package repository

import (
	"context"

	"github.com/shinyyama/closet-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsCounter string

const (
	CounterSales     StatsCounter = "total_sales"
	CounterPurchases StatsCounter = "total_purchases"
	CounterSwaps     StatsCounter = "total_swaps"
)

type UserStatsRepository interface {
	Increment(ctx context.Context, uid string, counter StatsCounter) error
	AddRating(ctx context.Context, uid string, rating int) error
	Get(ctx context.Context, uid string) (*model.UserStats, error)
}

type userStatsRepository struct {
	base
}

func (r *userStatsRepository) Increment(ctx context.Context, uid string, counter StatsCounter) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	row := &model.UserStats{UID: uid}
	switch counter {
	case CounterSales:
		row.TotalSales = 1
	case CounterPurchases:
		row.TotalPurchases = 1
	case CounterSwaps:
		row.TotalSwaps = 1
	}
	col := string(counter)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.Assignments(map[string]interface{}{col: gorm.Expr(col + " + 1")}),
	}).Create(row).Error
}

func (r *userStatsRepository) AddRating(ctx context.Context, uid string, rating int) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uid"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"rating_sum":   gorm.Expr("rating_sum + ?", rating),
			"rating_count": gorm.Expr("rating_count + 1"),
		}),
	}).Create(&model.UserStats{UID: uid, RatingSum: int64(rating), RatingCount: 1}).Error
}

func (r *userStatsRepository) Get(ctx context.Context, uid string) (*model.UserStats, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var st model.UserStats
	if err := db.Where("uid = ?", uid).FirstOrInit(&st, &model.UserStats{UID: uid}).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
