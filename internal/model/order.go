package model

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodVNPay        PaymentMethod = "vnpay"
	PaymentMethodMoMo         PaymentMethod = "momo"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodBankTransfer, PaymentMethodVNPay, PaymentMethodMoMo:
		return true
	}
	return false
}

// Online methods settle through a provider callback.
func (m PaymentMethod) Online() bool {
	return m == PaymentMethodVNPay || m == PaymentMethodMoMo
}

type CancelledBy string

const (
	CancelledByBuyer  CancelledBy = "buyer"
	CancelledBySeller CancelledBy = "seller"
	CancelledByAdmin  CancelledBy = "admin"
)

type Order struct {
	ID                 uint64          `gorm:"primaryKey;autoIncrement"`
	Code               string          `gorm:"column:code;size:32;uniqueIndex;not null"`
	BuyerUID           string          `gorm:"column:buyer_uid;size:128;index;not null"`
	SellerUID          string          `gorm:"column:seller_uid;size:128;index;not null"`
	ListingID          uint64          `gorm:"column:listing_id;index;not null"`
	ItemID             uint64          `gorm:"column:item_id;not null"`
	ItemTitle          string          `gorm:"column:item_title;size:200"`
	ItemPrice          int64           `gorm:"column:item_price;not null"`
	ShippingFee        int64           `gorm:"column:shipping_fee;not null"`
	PlatformFee        int64           `gorm:"column:platform_fee;not null"`
	TotalAmount        int64           `gorm:"column:total_amount;not null"`
	ShippingMethod     string          `gorm:"column:shipping_method;size:32;not null"`
	ShippingMethodName string          `gorm:"column:shipping_method_name;size:128"`
	ShippingProvider   string          `gorm:"column:shipping_provider;size:64"`
	EstimatedDaysMin   int             `gorm:"column:estimated_days_min"`
	EstimatedDaysMax   int             `gorm:"column:estimated_days_max"`
	DeliveryAddress    AddressSnapshot `gorm:"embedded;embeddedPrefix:delivery_"`
	PickupAddress      AddressSnapshot `gorm:"embedded;embeddedPrefix:pickup_"`
	TrackingNumber     string          `gorm:"column:tracking_number;size:64"`
	BuyerNote          string          `gorm:"column:buyer_note;type:text"`
	PaymentMethod      PaymentMethod   `gorm:"column:payment_method;size:32;not null"`
	PaymentStatus      PaymentStatus   `gorm:"column:payment_status;size:16;index;not null"`
	TransactionID      string          `gorm:"column:transaction_id;size:128"`
	Status             OrderStatus     `gorm:"column:order_status;size:32;index;not null"`
	CancelReason       string          `gorm:"column:cancel_reason;type:text"`
	CancelledBy        CancelledBy     `gorm:"column:cancelled_by;size:16"`
	PaidAt             *time.Time      `gorm:"column:paid_at"`
	PreparingAt        *time.Time      `gorm:"column:preparing_at"`
	ShippingAt         *time.Time      `gorm:"column:shipping_at"`
	DeliveredAt        *time.Time      `gorm:"column:delivered_at"`
	CompletedAt        *time.Time      `gorm:"column:completed_at"`
	CancelledAt        *time.Time      `gorm:"column:cancelled_at"`
	RefundedAt         *time.Time      `gorm:"column:refunded_at"`
	BuyerRating        *int            `gorm:"column:buyer_rating"`
	BuyerReview        string          `gorm:"column:buyer_review;type:text"`
	BuyerRatedAt       *time.Time      `gorm:"column:buyer_rated_at"`
	SellerRating       *int            `gorm:"column:seller_rating"`
	SellerReview       string          `gorm:"column:seller_review;type:text"`
	SellerRatedAt      *time.Time      `gorm:"column:seller_rated_at"`
	Version            uint            `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time       `gorm:"autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// Reconciles reports whether the stored total matches its parts.
func (o *Order) Reconciles() bool {
	return o.TotalAmount == o.ItemPrice+o.ShippingFee+o.PlatformFee
}

func (o *Order) IsParticipant(uid string) bool {
	return uid != "" && (uid == o.BuyerUID || uid == o.SellerUID)
}

// StampStatus sets the timestamp belonging to s unless it is already set.
// It reports whether a timestamp was written.
func (o *Order) StampStatus(s OrderStatus, at time.Time) bool {
	var slot **time.Time
	switch s {
	case OrderStatusPaid:
		slot = &o.PaidAt
	case OrderStatusPreparing:
		slot = &o.PreparingAt
	case OrderStatusShipping:
		slot = &o.ShippingAt
	case OrderStatusDelivered:
		slot = &o.DeliveredAt
	case OrderStatusCompleted:
		slot = &o.CompletedAt
	case OrderStatusCancelled:
		slot = &o.CancelledAt
	case OrderStatusRefunded:
		slot = &o.RefundedAt
	default:
		return false
	}
	if *slot != nil {
		return false
	}
	t := at
	*slot = &t
	return true
}
