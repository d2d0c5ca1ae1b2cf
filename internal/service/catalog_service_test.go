package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shinyyama/closet-market/internal/model"
)

type seenViews map[string]bool

func (s seenViews) FirstView(_ context.Context, listingID uint64, viewer string) (bool, error) {
	key := fmt.Sprintf("%d/%s", listingID, viewer)
	if s[key] {
		return false, nil
	}
	s[key] = true
	return true, nil
}

func TestCatalogService_Create(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewCatalogService(f.store, nil, f.deps)
	ctx := context.Background()

	in := CreateListingInput{
		ItemID:      7,
		Title:       "Linen shirt",
		ListingType: model.ListingTypeBoth,
		Condition:   model.ConditionLikeNew,
	}
	if _, err := svc.Create(ctx, User(seller), in); !errors.Is(err, ErrValidation) {
		t.Errorf("missing price err = %v", err)
	}
	in.SellingPrice = ptr(int64(250000))
	in.Condition = "pristine"
	if _, err := svc.Create(ctx, User(seller), in); !errors.Is(err, ErrValidation) {
		t.Errorf("bad condition err = %v", err)
	}
	in.Condition = model.ConditionLikeNew

	l, err := svc.Create(ctx, User(seller), in)
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != model.ListingStatusActive || l.SellerUID != seller {
		t.Errorf("listing = %+v", l)
	}

	swapOnly := in
	swapOnly.ListingType = model.ListingTypeSwap
	l, err = svc.Create(ctx, User(seller), swapOnly)
	if err != nil {
		t.Fatal(err)
	}
	if l.SellingPrice != nil {
		t.Error("swap-only listing kept a price")
	}
}

func TestCatalogService_ViewsAreDeduplicated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.addListing(t, seller, nil)
	svc := NewCatalogService(f.store, seenViews{}, f.deps)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, User(buyer), l.ID, buyer); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Get(ctx, Caller{}, l.ID, "203.0.113.9"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, User(seller), l.ID, seller); err != nil {
		t.Fatal(err)
	}
	if got := f.db.listing(l.ID).ViewCount; got != 2 {
		t.Errorf("views = %d, want 2", got)
	}
}

func TestCatalogService_ToggleFavorite(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.addListing(t, seller, nil)
	svc := NewCatalogService(f.store, nil, f.deps)
	ctx := context.Background()

	on, err := svc.ToggleFavorite(ctx, User(buyer), l.ID)
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v", on, err)
	}
	view, err := svc.Get(ctx, User(buyer), l.ID, "")
	if err != nil || !view.IsFavorite || view.FavoriteCount != 1 {
		t.Errorf("view = %+v, %v", view, err)
	}
	on, err = svc.ToggleFavorite(ctx, User(buyer), l.ID)
	if err != nil || on {
		t.Fatalf("second toggle = %v, %v", on, err)
	}
	if got := f.db.listing(l.ID).FavoriteCount; got != 0 {
		t.Errorf("favorite_count = %d", got)
	}
	if _, err := svc.ToggleFavorite(ctx, User(buyer), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing listing err = %v", err)
	}
}

func TestCatalogService_OwnerActions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.addListing(t, seller, nil)
	reserved := f.addListing(t, seller, func(l *model.Listing) { l.Status = model.ListingStatusPending })
	svc := NewCatalogService(f.store, nil, f.deps)
	ctx := context.Background()

	if _, err := svc.Boost(ctx, User(buyer), l.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger boost err = %v", err)
	}
	boosted, err := svc.Boost(ctx, User(seller), l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if boosted.BoostCount != 1 || boosted.LastBoostedAt == nil || !boosted.LastBoostedAt.Equal(f.clock.Now()) {
		t.Errorf("boosted = %+v", boosted)
	}

	hidden, err := svc.SetActive(ctx, User(seller), l.ID, false)
	if err != nil || hidden.Status != model.ListingStatusInactive {
		t.Fatalf("hide = %v, %v", hidden, err)
	}
	if _, err := svc.SetActive(ctx, User(seller), reserved.ID, false); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("hiding a reserved listing err = %v", err)
	}

	list, total, err := svc.List(ctx, ListingFilter{SellerUID: seller})
	if err != nil || total != 0 || len(list) != 0 {
		t.Errorf("active listings = %d, %v", total, err)
	}
}
