package model

import "time"

type UserStats struct {
	UID            string    `gorm:"column:uid;primaryKey;size:128"`
	TotalSales     int64     `gorm:"column:total_sales;not null;default:0"`
	TotalPurchases int64     `gorm:"column:total_purchases;not null;default:0"`
	TotalSwaps     int64     `gorm:"column:total_swaps;not null;default:0"`
	RatingSum      int64     `gorm:"column:rating_sum;not null;default:0"`
	RatingCount    int64     `gorm:"column:rating_count;not null;default:0"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

func (s UserStats) AverageRating() float64 {
	if s.RatingCount == 0 {
		return 0
	}
	return float64(s.RatingSum) / float64(s.RatingCount)
}
