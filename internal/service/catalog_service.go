package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/shipping"
)

// ViewDeduper reports whether viewer has not been counted for the listing
// within the de-duplication window.
type ViewDeduper interface {
	FirstView(ctx context.Context, listingID uint64, viewer string) (bool, error)
}

type CreateListingInput struct {
	ItemID         uint64                 `json:"item_id" validate:"required"`
	Title          string                 `json:"title" validate:"required,max=200"`
	Description    string                 `json:"description" validate:"max=5000"`
	Brand          string                 `json:"brand" validate:"max=120"`
	Category       string                 `json:"category" validate:"max=120"`
	ImageURL       string                 `json:"image_url" validate:"omitempty,url,max=512"`
	ListingType    model.ListingType      `json:"listing_type" validate:"required,oneof=sell swap both"`
	SellingPrice   *int64                 `json:"selling_price" validate:"omitempty,gt=0"`
	Condition      model.ListingCondition `json:"condition" validate:"required,oneof=new like_new good fair worn"`
	Shipping       *shipping.Config       `json:"shipping_config"`
	OriginProvince string                 `json:"origin_province" validate:"max=128"`
	OriginDistrict string                 `json:"origin_district" validate:"max=128"`
	OriginStreet   string                 `json:"origin_street" validate:"max=255"`
	OriginLng      *float64               `json:"origin_lng" validate:"omitempty,longitude"`
	OriginLat      *float64               `json:"origin_lat" validate:"omitempty,latitude"`
}

type ListingFilter = repository.ListingFilter

// ListingView is a listing as one viewer sees it.
type ListingView struct {
	model.Listing
	IsFavorite bool
}

type CatalogService interface {
	Create(ctx context.Context, caller Caller, in CreateListingInput) (*model.Listing, error)
	List(ctx context.Context, f ListingFilter) ([]model.Listing, int64, error)
	// Get counts a view once per viewer per window; viewer is the caller's
	// uid or, for anonymous callers, a client fingerprint.
	Get(ctx context.Context, caller Caller, id uint64, viewer string) (*ListingView, error)
	ToggleFavorite(ctx context.Context, caller Caller, id uint64) (bool, error)
	Boost(ctx context.Context, caller Caller, id uint64) (*model.Listing, error)
	SetActive(ctx context.Context, caller Caller, id uint64, active bool) (*model.Listing, error)
}

type catalogService struct {
	store  repository.Store
	views  ViewDeduper
	logger *slog.Logger
	deps   Deps
}

func NewCatalogService(store repository.Store, views ViewDeduper, deps Deps) CatalogService {
	deps = deps.withDefaults()
	return &catalogService{store: store, views: views, logger: deps.Logger, deps: deps}
}

func (s *catalogService) Create(ctx context.Context, caller Caller, in CreateListingInput) (*model.Listing, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.ListingType.Sellable() && in.SellingPrice == nil {
		return nil, invalid("selling_price", "is required for listings that can be sold")
	}
	l := &model.Listing{
		SellerUID:      caller.UID,
		ItemID:         in.ItemID,
		Title:          in.Title,
		Description:    strings.TrimSpace(in.Description),
		Brand:          strings.TrimSpace(in.Brand),
		Category:       strings.TrimSpace(in.Category),
		ListingType:    in.ListingType,
		SellingPrice:   in.SellingPrice,
		Condition:      in.Condition,
		Status:         model.ListingStatusActive,
		OriginProvince: strings.TrimSpace(in.OriginProvince),
		OriginDistrict: strings.TrimSpace(in.OriginDistrict),
		OriginStreet:   strings.TrimSpace(in.OriginStreet),
	}
	if !in.ListingType.Sellable() {
		l.SellingPrice = nil
	}
	if in.ImageURL != "" {
		l.ImageURL = &in.ImageURL
	}
	if in.OriginLng != nil && in.OriginLat != nil {
		l.Origin = model.GeoPoint{Lng: *in.OriginLng, Lat: *in.OriginLat}
	}
	if c := in.Shipping; c != nil {
		if c.FixedFee != nil && *c.FixedFee < 0 {
			return nil, invalid("shipping_config.fixed_fee", "must not be negative")
		}
		l.Shipping = model.ShippingSettings{
			PlatformShippingEnabled: c.PlatformShippingEnabled,
			SelfDeliveryEnabled:     c.SelfDeliveryEnabled,
			MeetupEnabled:           c.MeetupEnabled,
			Regions:                 cleanRegions(c.Regions),
			FixedFee:                c.FixedFee,
		}
	}
	if err := s.store.Listings().Create(ctx, l); err != nil {
		return nil, fromRepo(err)
	}
	s.logger.Info("listing created", "listing_id", l.ID, "seller_uid", l.SellerUID, "type", l.ListingType)
	return l, nil
}

func cleanRegions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (s *catalogService) List(ctx context.Context, f ListingFilter) ([]model.Listing, int64, error) {
	switch f.Sort {
	case "", repository.SortNewest, repository.SortPriceLow, repository.SortPriceHigh,
		repository.SortPopular, repository.SortFeatured:
	default:
		return nil, 0, invalid("sort", "unknown sort order")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, invalid("min_price", "must not exceed max_price")
	}
	list, total, err := s.store.Listings().List(ctx, f)
	return list, total, fromRepo(err)
}

func (s *catalogService) Get(ctx context.Context, caller Caller, id uint64, viewer string) (*ListingView, error) {
	l, err := s.store.Listings().FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	view := &ListingView{Listing: *l}
	if !caller.Anonymous() {
		if view.IsFavorite, err = s.store.Listings().IsFavorite(ctx, caller.UID, id); err != nil {
			return nil, fromRepo(err)
		}
	}
	if caller.UID != l.SellerUID {
		s.countView(ctx, view, viewer)
	}
	return view, nil
}

// countView is best-effort; a failed counter never fails the read.
func (s *catalogService) countView(ctx context.Context, view *ListingView, viewer string) {
	if viewer == "" {
		return
	}
	if s.views != nil {
		first, err := s.views.FirstView(ctx, view.ID, viewer)
		if err != nil {
			s.logger.Warn("view dedupe unavailable", "error", err, "listing_id", view.ID)
		}
		if err == nil && !first {
			return
		}
	}
	if err := s.store.Listings().IncrementViews(ctx, view.ID); err != nil {
		s.logger.Warn("failed to count view", "error", err, "listing_id", view.ID)
		return
	}
	view.ViewCount++
}

// ToggleFavorite flips the caller's favorite and reports the new state.
func (s *catalogService) ToggleFavorite(ctx context.Context, caller Caller, id uint64) (bool, error) {
	if caller.Anonymous() {
		return false, ErrForbidden
	}
	var favorited bool
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Listings().FindByID(ctx, id); err != nil {
			return err
		}
		removed, err := tx.Listings().RemoveFavorite(ctx, caller.UID, id)
		if err != nil || removed {
			return err
		}
		favorited, err = tx.Listings().AddFavorite(ctx, caller.UID, id)
		return err
	})
	if err != nil {
		return false, fromRepo(err)
	}
	return favorited, nil
}

func (s *catalogService) Boost(ctx context.Context, caller Caller, id uint64) (*model.Listing, error) {
	l, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if l.Status != model.ListingStatusActive {
		return nil, fmt.Errorf("%w: only active listings can be boosted", ErrListingUnavailable)
	}
	now := s.deps.Now()
	if err := s.store.Listings().Boost(ctx, id, now); err != nil {
		return nil, fromRepo(err)
	}
	l.BoostCount++
	l.LastBoostedAt = &now
	return l, nil
}

// SetActive lets the owner hide or re-list a listing. Reserved, sold and
// swapped listings are left alone.
func (s *catalogService) SetActive(ctx context.Context, caller Caller, id uint64, active bool) (*model.Listing, error) {
	l, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	from, to := model.ListingStatusActive, model.ListingStatusInactive
	if active {
		from, to = to, from
	}
	if l.Status == to {
		return l, nil
	}
	ok, err := s.store.Listings().UpdateStatus(ctx, id, []model.ListingStatus{from}, to, s.deps.Now())
	if err != nil {
		return nil, fromRepo(err)
	}
	if !ok {
		return nil, transitionError("listing", l.Status, to)
	}
	l.Status = to
	return l, nil
}

func (s *catalogService) owned(ctx context.Context, caller Caller, id uint64) (*model.Listing, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	l, err := s.store.Listings().FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if l.SellerUID != caller.UID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return l, nil
}
