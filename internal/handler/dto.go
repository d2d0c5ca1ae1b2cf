package handler

import (
	"time"

	"github.com/shinyyama/closet-market/internal/model"
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type AddressSnapshotResponse struct {
	RecipientName string  `json:"recipient_name"`
	Phone         string  `json:"phone"`
	Province      string  `json:"province"`
	District      string  `json:"district"`
	Ward          string  `json:"ward"`
	Street        string  `json:"street"`
	Lng           float64 `json:"lng"`
	Lat           float64 `json:"lat"`
}

func toSnapshotResponse(a model.AddressSnapshot) AddressSnapshotResponse {
	return AddressSnapshotResponse(a)
}

type OrderResponse struct {
	ID                 uint64                  `json:"id"`
	Code               string                  `json:"code"`
	BuyerUID           string                  `json:"buyer_uid"`
	SellerUID          string                  `json:"seller_uid"`
	ListingID          uint64                  `json:"listing_id"`
	ItemID             uint64                  `json:"item_id"`
	ItemTitle          string                  `json:"item_title"`
	ItemPrice          int64                   `json:"item_price"`
	ShippingFee        int64                   `json:"shipping_fee"`
	PlatformFee        int64                   `json:"platform_fee"`
	TotalAmount        int64                   `json:"total_amount"`
	ShippingMethod     string                  `json:"shipping_method"`
	ShippingMethodName string                  `json:"shipping_method_name"`
	ShippingProvider   string                  `json:"shipping_provider"`
	EstimatedDaysMin   int                     `json:"estimated_days_min,omitempty"`
	EstimatedDaysMax   int                     `json:"estimated_days_max,omitempty"`
	DeliveryAddress    AddressSnapshotResponse `json:"delivery_address"`
	PickupAddress      AddressSnapshotResponse `json:"pickup_address"`
	TrackingNumber     string                  `json:"tracking_number,omitempty"`
	BuyerNote          string                  `json:"buyer_note,omitempty"`
	PaymentMethod      string                  `json:"payment_method"`
	PaymentStatus      string                  `json:"payment_status"`
	TransactionID      string                  `json:"transaction_id,omitempty"`
	Status             string                  `json:"order_status"`
	CancelReason       string                  `json:"cancel_reason,omitempty"`
	CancelledBy        string                  `json:"cancelled_by,omitempty"`
	BuyerRating        *int                    `json:"buyer_rating,omitempty"`
	BuyerReview        string                  `json:"buyer_review,omitempty"`
	SellerRating       *int                    `json:"seller_rating,omitempty"`
	SellerReview       string                  `json:"seller_review,omitempty"`
	PaidAt             *string                 `json:"paid_at,omitempty"`
	ShippingAt         *string                 `json:"shipping_at,omitempty"`
	DeliveredAt        *string                 `json:"delivered_at,omitempty"`
	CompletedAt        *string                 `json:"completed_at,omitempty"`
	CancelledAt        *string                 `json:"cancelled_at,omitempty"`
	Version            uint                    `json:"version"`
	CreatedAt          string                  `json:"created_at"`
	UpdatedAt          string                  `json:"updated_at"`
}

func toOrderResponse(o *model.Order) OrderResponse {
	return OrderResponse{
		ID:                 o.ID,
		Code:               o.Code,
		BuyerUID:           o.BuyerUID,
		SellerUID:          o.SellerUID,
		ListingID:          o.ListingID,
		ItemID:             o.ItemID,
		ItemTitle:          o.ItemTitle,
		ItemPrice:          o.ItemPrice,
		ShippingFee:        o.ShippingFee,
		PlatformFee:        o.PlatformFee,
		TotalAmount:        o.TotalAmount,
		ShippingMethod:     o.ShippingMethod,
		ShippingMethodName: o.ShippingMethodName,
		ShippingProvider:   o.ShippingProvider,
		EstimatedDaysMin:   o.EstimatedDaysMin,
		EstimatedDaysMax:   o.EstimatedDaysMax,
		DeliveryAddress:    toSnapshotResponse(o.DeliveryAddress),
		PickupAddress:      toSnapshotResponse(o.PickupAddress),
		TrackingNumber:     o.TrackingNumber,
		BuyerNote:          o.BuyerNote,
		PaymentMethod:      string(o.PaymentMethod),
		PaymentStatus:      string(o.PaymentStatus),
		TransactionID:      o.TransactionID,
		Status:             string(o.Status),
		CancelReason:       o.CancelReason,
		CancelledBy:        string(o.CancelledBy),
		BuyerRating:        o.BuyerRating,
		BuyerReview:        o.BuyerReview,
		SellerRating:       o.SellerRating,
		SellerReview:       o.SellerReview,
		PaidAt:             formatTime(o.PaidAt),
		ShippingAt:         formatTime(o.ShippingAt),
		DeliveredAt:        formatTime(o.DeliveredAt),
		CompletedAt:        formatTime(o.CompletedAt),
		CancelledAt:        formatTime(o.CancelledAt),
		Version:            o.Version,
		CreatedAt:          o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          o.UpdatedAt.Format(time.RFC3339),
	}
}

type SwapLegResponse struct {
	Method         string  `json:"method,omitempty"`
	TrackingNumber string  `json:"tracking_number,omitempty"`
	ShippedAt      *string `json:"shipped_at,omitempty"`
	DeliveredAt    *string `json:"delivered_at,omitempty"`
}

func toLegResponse(l model.SwapShipping) SwapLegResponse {
	return SwapLegResponse{
		Method:         l.Method,
		TrackingNumber: l.TrackingNumber,
		ShippedAt:      formatTime(l.ShippedAt),
		DeliveredAt:    formatTime(l.DeliveredAt),
	}
}

type SwapResponse struct {
	ID                 uint64                  `json:"id"`
	Code               string                  `json:"code"`
	RequesterUID       string                  `json:"requester_uid"`
	ReceiverUID        string                  `json:"receiver_uid"`
	RequesterListingID uint64                  `json:"requester_listing_id"`
	ReceiverListingID  uint64                  `json:"receiver_listing_id"`
	Status             string                  `json:"status"`
	Message            string                  `json:"message,omitempty"`
	ResponseMessage    string                  `json:"response_message,omitempty"`
	RejectReason       string                  `json:"reject_reason,omitempty"`
	CancelReason       string                  `json:"cancel_reason,omitempty"`
	CancelledBy        string                  `json:"cancelled_by,omitempty"`
	RequesterShipping  SwapLegResponse         `json:"requester_shipping"`
	ReceiverShipping   SwapLegResponse         `json:"receiver_shipping"`
	RequesterAddress   AddressSnapshotResponse `json:"requester_address"`
	ReceiverAddress    AddressSnapshotResponse `json:"receiver_address"`
	RequesterRating    *int                    `json:"requester_rating,omitempty"`
	ReceiverRating     *int                    `json:"receiver_rating,omitempty"`
	ExpiresAt          string                  `json:"expires_at"`
	RespondedAt        *string                 `json:"responded_at,omitempty"`
	CompletedAt        *string                 `json:"completed_at,omitempty"`
	Version            uint                    `json:"version"`
	CreatedAt          string                  `json:"created_at"`
}

func toSwapResponse(s *model.SwapRequest) SwapResponse {
	return SwapResponse{
		ID:                 s.ID,
		Code:               s.Code,
		RequesterUID:       s.RequesterUID,
		ReceiverUID:        s.ReceiverUID,
		RequesterListingID: s.RequesterListingID,
		ReceiverListingID:  s.ReceiverListingID,
		Status:             string(s.Status),
		Message:            s.Message,
		ResponseMessage:    s.ResponseMessage,
		RejectReason:       s.RejectReason,
		CancelReason:       s.CancelReason,
		CancelledBy:        string(s.CancelledBy),
		RequesterShipping:  toLegResponse(s.RequesterShipping),
		ReceiverShipping:   toLegResponse(s.ReceiverShipping),
		RequesterAddress:   toSnapshotResponse(s.RequesterAddress),
		ReceiverAddress:    toSnapshotResponse(s.ReceiverAddress),
		RequesterRating:    s.RequesterRating,
		ReceiverRating:     s.ReceiverRating,
		ExpiresAt:          s.ExpiresAt.Format(time.RFC3339),
		RespondedAt:        formatTime(s.RespondedAt),
		CompletedAt:        formatTime(s.CompletedAt),
		Version:            s.Version,
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
	}
}

type ListingResponse struct {
	ID             uint64          `json:"id"`
	SellerUID      string          `json:"seller_uid"`
	ItemID         uint64          `json:"item_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Brand          string          `json:"brand,omitempty"`
	Category       string          `json:"category,omitempty"`
	ImageURL       *string         `json:"image_url,omitempty"`
	ListingType    string          `json:"listing_type"`
	SellingPrice   *int64          `json:"selling_price,omitempty"`
	Condition      string          `json:"condition"`
	Status         string          `json:"status"`
	OriginProvince string          `json:"origin_province,omitempty"`
	OriginDistrict string          `json:"origin_district,omitempty"`
	Origin         *model.GeoPoint `json:"origin,omitempty"`
	ViewCount      int64           `json:"view_count"`
	FavoriteCount  int64           `json:"favorite_count"`
	BoostCount     int64           `json:"boost_count"`
	IsFeatured     bool            `json:"is_featured"`
	IsFavorite     *bool           `json:"is_favorite,omitempty"`
	LastBoostedAt  *string         `json:"last_boosted_at,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

func toListingResponse(l *model.Listing) ListingResponse {
	resp := ListingResponse{
		ID:             l.ID,
		SellerUID:      l.SellerUID,
		ItemID:         l.ItemID,
		Title:          l.Title,
		Description:    l.Description,
		Brand:          l.Brand,
		Category:       l.Category,
		ImageURL:       l.ImageURL,
		ListingType:    string(l.ListingType),
		SellingPrice:   l.SellingPrice,
		Condition:      string(l.Condition),
		Status:         string(l.Status),
		OriginProvince: l.OriginProvince,
		OriginDistrict: l.OriginDistrict,
		ViewCount:      l.ViewCount,
		FavoriteCount:  l.FavoriteCount,
		BoostCount:     l.BoostCount,
		IsFeatured:     l.IsFeatured,
		LastBoostedAt:  formatTime(l.LastBoostedAt),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
	}
	if !l.Origin.IsZero() {
		origin := l.Origin
		resp.Origin = &origin
	}
	return resp
}

type AddressResponse struct {
	ID        uint64          `json:"id"`
	Label     string          `json:"label,omitempty"`
	FullName  string          `json:"full_name"`
	Phone     string          `json:"phone"`
	Province  model.Division  `json:"province"`
	District  model.Division  `json:"district"`
	Ward      model.Division  `json:"ward"`
	Street    string          `json:"street"`
	Location  *model.GeoPoint `json:"location,omitempty"`
	IsDefault bool            `json:"is_default"`
	CreatedAt string          `json:"created_at"`
}

func toAddressResponse(a *model.Address) AddressResponse {
	resp := AddressResponse{
		ID:        a.ID,
		Label:     a.Label,
		FullName:  a.FullName,
		Phone:     a.Phone,
		Province:  a.Province,
		District:  a.District,
		Ward:      a.Ward,
		Street:    a.Street,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if !a.Location.IsZero() {
		loc := a.Location
		resp.Location = &loc
	}
	return resp
}

type StatusEventResponse struct {
	Entity    string `json:"entity"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ActorUID  string `json:"actor_uid"`
	ActorRole string `json:"actor_role"`
	Note      string `json:"note,omitempty"`
	At        string `json:"at"`
}

func toEventResponses(list []model.StatusEvent) []StatusEventResponse {
	out := make([]StatusEventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, StatusEventResponse{
			Entity:    e.EntityType,
			From:      e.FromStatus,
			To:        e.ToStatus,
			ActorUID:  e.ActorUID,
			ActorRole: e.ActorRole,
			Note:      e.Note,
			At:        e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
