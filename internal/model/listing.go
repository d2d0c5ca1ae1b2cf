package model

import "time"

type ListingType string

const (
	ListingTypeSell ListingType = "sell"
	ListingTypeSwap ListingType = "swap"
	ListingTypeBoth ListingType = "both"
)

func (t ListingType) Sellable() bool { return t == ListingTypeSell || t == ListingTypeBoth }
func (t ListingType) Swappable() bool { return t == ListingTypeSwap || t == ListingTypeBoth }

type ListingCondition string

const (
	ConditionNew     ListingCondition = "new"
	ConditionLikeNew ListingCondition = "like_new"
	ConditionGood    ListingCondition = "good"
	ConditionFair    ListingCondition = "fair"
	ConditionWorn    ListingCondition = "worn"
)

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusSwapped  ListingStatus = "swapped"
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusInactive ListingStatus = "inactive"
)

// GeoPoint is stored as two columns; JSON keeps GeoJSON order.
type GeoPoint struct {
	Lng float64 `gorm:"column:lng" json:"lng"`
	Lat float64 `gorm:"column:lat" json:"lat"`
}

func (p GeoPoint) IsZero() bool { return p.Lng == 0 && p.Lat == 0 }

// ShippingSettings mirrors the seller's shipping form. Nil flags mean the
// seller never touched them.
type ShippingSettings struct {
	PlatformShippingEnabled *bool    `gorm:"column:platform_shipping_enabled"`
	SelfDeliveryEnabled     *bool    `gorm:"column:self_delivery_enabled"`
	MeetupEnabled           *bool    `gorm:"column:meetup_enabled"`
	Regions                 []string `gorm:"column:shipping_regions;serializer:json"`
	FixedFee                *int64   `gorm:"column:fixed_shipping_fee"`
}

type Listing struct {
	ID             uint64           `gorm:"primaryKey;autoIncrement"`
	SellerUID      string           `gorm:"column:seller_uid;size:128;index;not null"`
	ItemID         uint64           `gorm:"column:item_id;index;not null"`
	Title          string           `gorm:"column:title;size:200;not null"`
	Description    string           `gorm:"column:description;type:text"`
	Brand          string           `gorm:"column:brand;size:120"`
	Category       string           `gorm:"column:category;size:120;index"`
	ImageURL       *string          `gorm:"column:image_url;size:512"`
	ListingType    ListingType      `gorm:"column:listing_type;size:16;not null"`
	SellingPrice   *int64           `gorm:"column:selling_price"`
	Condition      ListingCondition `gorm:"column:condition;size:16;not null"`
	Status         ListingStatus    `gorm:"column:status;size:16;index;not null"`
	Shipping       ShippingSettings `gorm:"embedded"`
	OriginProvince string           `gorm:"column:origin_province;size:128"`
	OriginDistrict string           `gorm:"column:origin_district;size:128"`
	OriginStreet   string           `gorm:"column:origin_street;size:255"`
	Origin         GeoPoint         `gorm:"embedded;embeddedPrefix:origin_"`
	ViewCount      int64            `gorm:"column:view_count;not null;default:0"`
	FavoriteCount  int64            `gorm:"column:favorite_count;not null;default:0"`
	InquiryCount   int64            `gorm:"column:inquiry_count;not null;default:0"`
	BoostCount     int64            `gorm:"column:boost_count;not null;default:0"`
	IsFeatured     bool             `gorm:"column:is_featured;not null;default:false"`
	LastBoostedAt  *time.Time       `gorm:"column:last_boosted_at"`
	SoldAt         *time.Time       `gorm:"column:sold_at"`
	CreatedAt      time.Time        `gorm:"autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}

type ListingFavorite struct {
	UserUID   string    `gorm:"column:user_uid;primaryKey;size:128"`
	ListingID uint64    `gorm:"column:listing_id;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ListingFavorite) TableName() string {
	return "listing_favorites"
}
