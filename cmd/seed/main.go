package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shinyyama/closet-market/internal/config"
	"github.com/shinyyama/closet-market/internal/db"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
)

type seedSeller struct {
	UID      string
	Name     string
	Phone    string
	Province model.Division
	District model.Division
	Street   string
	Location model.GeoPoint
}

type seedListing struct {
	Title     string
	Brand     string
	Category  string
	Type      model.ListingType
	Price     int64
	Condition model.ListingCondition
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	force := flag.Bool("force", strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), "seed even when listings exist")
	flag.Parse()

	if err := run(context.Background(), logger, *force); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, force bool) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := repository.NewStore(gdb)

	_, total, err := store.Listings().List(ctx, repository.ListingFilter{Page: repository.Page{Limit: 1}})
	if err != nil {
		return fmt.Errorf("count listings: %w", err)
	}
	if total > 0 && !force {
		logger.Info("listings already exist; skipping seed (pass -force to override)", slog.Int64("count", total))
		return nil
	}

	sellers := buildSellers()
	listings := buildListings()
	created := 0
	err = store.Transaction(ctx, func(tx repository.Store) error {
		for _, s := range sellers {
			if err := seedAddress(ctx, tx, s); err != nil {
				return err
			}
		}
		for i, it := range listings {
			l := toListing(it, sellers[i%len(sellers)], uint64(i+1))
			if err := tx.Listings().Create(ctx, l); err != nil {
				return fmt.Errorf("insert listing %q: %w", it.Title, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("seeded", slog.Int("sellers", len(sellers)), slog.Int("listings", created))
	return nil
}

// seedAddress gives each seller one default address unless they already
// have one.
func seedAddress(ctx context.Context, tx repository.Store, s seedSeller) error {
	n, err := tx.Addresses().CountByUser(ctx, s.UID)
	if err != nil {
		return fmt.Errorf("count addresses for %s: %w", s.UID, err)
	}
	if n > 0 {
		return nil
	}
	a := &model.Address{
		UserUID:   s.UID,
		Label:     "Nhà",
		FullName:  s.Name,
		Phone:     s.Phone,
		Province:  s.Province,
		District:  s.District,
		Street:    s.Street,
		Location:  s.Location,
		IsDefault: true,
	}
	if err := tx.Addresses().Create(ctx, a); err != nil {
		return fmt.Errorf("insert address for %s: %w", s.UID, err)
	}
	return nil
}

func toListing(it seedListing, s seedSeller, itemID uint64) *model.Listing {
	on := true
	l := &model.Listing{
		SellerUID:      s.UID,
		ItemID:         itemID,
		Title:          it.Title,
		Description:    fmt.Sprintf("%s của %s, giữ gìn cẩn thận.", it.Title, it.Brand),
		Brand:          it.Brand,
		Category:       it.Category,
		ListingType:    it.Type,
		Condition:      it.Condition,
		Status:         model.ListingStatusActive,
		OriginProvince: s.Province.Name,
		OriginDistrict: s.District.Name,
		OriginStreet:   s.Street,
		Origin:         s.Location,
		Shipping: model.ShippingSettings{
			PlatformShippingEnabled: &on,
			MeetupEnabled:           &on,
		},
	}
	if it.Type.Sellable() {
		price := it.Price
		l.SellingPrice = &price
	}
	img := picsumURL(it.Category, itemID)
	l.ImageURL = &img
	return l
}

func buildSellers() []seedSeller {
	return []seedSeller{
		{
			UID: "seed-seller-hn", Name: "Nguyễn Thu Hà", Phone: "0912345678",
			Province: model.Division{Code: "01", Name: "Hà Nội"},
			District: model.Division{Code: "005", Name: "Cầu Giấy"},
			Street:   "12 Trần Thái Tông",
			Location: model.GeoPoint{Lng: 105.7895, Lat: 21.0313},
		},
		{
			UID: "seed-seller-hcm", Name: "Trần Minh Khoa", Phone: "0987654321",
			Province: model.Division{Code: "79", Name: "Hồ Chí Minh"},
			District: model.Division{Code: "760", Name: "Quận 1"},
			Street:   "45 Lê Lợi",
			Location: model.GeoPoint{Lng: 106.7009, Lat: 10.7769},
		},
		{
			UID: "seed-seller-dn", Name: "Lê Bảo Anh", Phone: "0905111222",
			Province: model.Division{Code: "48", Name: "Đà Nẵng"},
			District: model.Division{Code: "492", Name: "Hải Châu"},
			Street:   "8 Bạch Đằng",
			Location: model.GeoPoint{Lng: 108.2240, Lat: 16.0678},
		},
	}
}

func buildListings() []seedListing {
	type cat struct {
		Slug   string
		Price  int64
		Titles []string
		Brands []string
	}
	categories := []cat{
		{Slug: "tops", Price: 120000, Titles: []string{"Áo sơ mi linen", "Áo thun oversize", "Áo len cổ lọ"}, Brands: []string{"Uniqlo", "Zara", "Routine"}},
		{Slug: "bottoms", Price: 180000, Titles: []string{"Quần jean ống rộng", "Chân váy xếp ly", "Quần tây ống đứng"}, Brands: []string{"Levi's", "H&M", "Ivy Moda"}},
		{Slug: "outerwear", Price: 350000, Titles: []string{"Áo khoác denim", "Áo blazer dạ", "Áo phao nhẹ"}, Brands: []string{"Mango", "Uniqlo", "The North Face"}},
		{Slug: "shoes", Price: 420000, Titles: []string{"Giày sneaker trắng", "Giày lười da", "Sandal quai mảnh"}, Brands: []string{"Converse", "Vascara", "Biti's"}},
		{Slug: "bags", Price: 260000, Titles: []string{"Túi tote canvas", "Túi đeo chéo mini", "Balo da"}, Brands: []string{"Charles & Keith", "Pedro", "Herschel"}},
	}
	types := []model.ListingType{model.ListingTypeSell, model.ListingTypeBoth, model.ListingTypeSwap}
	conditions := []model.ListingCondition{model.ConditionLikeNew, model.ConditionGood, model.ConditionNew}

	var out []seedListing
	for _, c := range categories {
		for i, t := range c.Titles {
			out = append(out, seedListing{
				Title:     t,
				Brand:     c.Brands[i%len(c.Brands)],
				Category:  c.Slug,
				Type:      types[i%len(types)],
				Price:     c.Price + int64(i)*20000,
				Condition: conditions[i%len(conditions)],
			})
		}
	}
	return out
}

func picsumURL(slug string, id uint64) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", slug, id)
}
