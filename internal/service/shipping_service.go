package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/shipping"
)

type ShippingService interface {
	// Quote lists the methods the caller may choose for listingID delivered
	// to addressID, or to the caller's default address when addressID is 0.
	Quote(ctx context.Context, caller Caller, listingID, addressID uint64) ([]shipping.Quote, error)
	CanShipTo(ctx context.Context, listingID uint64, province string) (bool, error)
}

type shippingService struct {
	store repository.Store
}

func NewShippingService(store repository.Store) ShippingService {
	return &shippingService{store: store}
}

func (s *shippingService) Quote(ctx context.Context, caller Caller, listingID, addressID uint64) ([]shipping.Quote, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	l, err := s.store.Listings().FindByID(ctx, listingID)
	if err != nil {
		return nil, fromRepo(err)
	}
	addr, err := resolveAddress(ctx, s.store.Addresses(), caller.UID, addressID)
	if err != nil {
		return nil, err
	}
	return quotesFor(l, addr)
}

func (s *shippingService) CanShipTo(ctx context.Context, listingID uint64, province string) (bool, error) {
	if strings.TrimSpace(province) == "" {
		return false, invalid("province", "is required")
	}
	l, err := s.store.Listings().FindByID(ctx, listingID)
	if err != nil {
		return false, fromRepo(err)
	}
	return shipping.CanShipToRegion(shippingConfigOf(l), province), nil
}

func quotesFor(l *model.Listing, addr *model.Address) ([]shipping.Quote, error) {
	quotes, err := shipping.Quotes(shippingListingOf(l), destinationOf(addr))
	if err != nil {
		return nil, invalid("address", err.Error())
	}
	return quotes, nil
}

// resolveAddress loads addressID owned by uid, or uid's default when 0.
func resolveAddress(ctx context.Context, repo repository.AddressRepository, uid string, addressID uint64) (*model.Address, error) {
	var (
		addr *model.Address
		err  error
	)
	if addressID == 0 {
		addr, err = repo.FindDefault(ctx, uid)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("address_id", "no address given and no default address on file")
		}
	} else {
		addr, err = repo.FindByID(ctx, addressID, uid)
	}
	if err != nil {
		return nil, fromRepo(err)
	}
	return addr, nil
}

func shippingConfigOf(l *model.Listing) *shipping.Config {
	cfg := &shipping.Config{
		PlatformShippingEnabled: l.Shipping.PlatformShippingEnabled,
		SelfDeliveryEnabled:     l.Shipping.SelfDeliveryEnabled,
		MeetupEnabled:           l.Shipping.MeetupEnabled,
		Regions:                 l.Shipping.Regions,
		FixedFee:                l.Shipping.FixedFee,
	}
	if cfg.IsEmpty() {
		return nil
	}
	return cfg
}

func shippingListingOf(l *model.Listing) *shipping.Listing {
	out := &shipping.Listing{
		Config: shippingConfigOf(l),
		Origin: shipping.Origin{Province: l.OriginProvince},
	}
	if !l.Origin.IsZero() {
		out.Origin.Point = &shipping.Point{Lng: l.Origin.Lng, Lat: l.Origin.Lat}
	}
	return out
}

func destinationOf(a *model.Address) *shipping.Destination {
	if a == nil {
		return nil
	}
	d := &shipping.Destination{
		Province: shipping.Province{Code: a.Province.Code, Name: a.Province.Name},
		District: a.District.Name,
		Ward:     a.Ward.Name,
	}
	if !a.Location.IsZero() {
		d.Point = &shipping.Point{Lng: a.Location.Lng, Lat: a.Location.Lat}
	}
	return d
}
