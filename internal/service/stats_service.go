package service

import (
	"context"

	"github.com/shinyyama/closet-market/internal/repository"
)

// Profile is the public trade record of a user.
type Profile struct {
	UID            string  `json:"uid"`
	TotalSales     int64   `json:"total_sales"`
	TotalPurchases int64   `json:"total_purchases"`
	TotalSwaps     int64   `json:"total_swaps"`
	RatingCount    int64   `json:"rating_count"`
	AverageRating  float64 `json:"average_rating"`
}

type StatsService interface {
	Profile(ctx context.Context, uid string) (*Profile, error)
}

type statsService struct {
	repo repository.UserStatsRepository
}

func NewStatsService(repo repository.UserStatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) Profile(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, invalid("uid", "is required")
	}
	st, err := s.repo.Get(ctx, uid)
	if err != nil {
		return nil, fromRepo(err)
	}
	return &Profile{
		UID:            uid,
		TotalSales:     st.TotalSales,
		TotalPurchases: st.TotalPurchases,
		TotalSwaps:     st.TotalSwaps,
		RatingCount:    st.RatingCount,
		AverageRating:  st.AverageRating(),
	}, nil
}
