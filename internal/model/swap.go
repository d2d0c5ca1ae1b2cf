package model

import "time"

type SwapParty string

const (
	SwapPartyRequester SwapParty = "requester"
	SwapPartyReceiver  SwapParty = "receiver"

	// SwapPartyAdmin only appears in cancelled_by.
	SwapPartyAdmin SwapParty = "admin"
)

func (p SwapParty) Other() SwapParty {
	if p == SwapPartyRequester {
		return SwapPartyReceiver
	}
	return SwapPartyRequester
}

// SwapShipping is one leg of the exchange, sent by the owning party.
type SwapShipping struct {
	Method         string     `gorm:"column:method;size:32"`
	TrackingNumber string     `gorm:"column:tracking_number;size:64"`
	ShippedAt      *time.Time `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at"`
}

func (s SwapShipping) Shipped() bool   { return s.ShippedAt != nil }
func (s SwapShipping) Delivered() bool { return s.DeliveredAt != nil }

type SwapRequest struct {
	ID                 uint64          `gorm:"primaryKey;autoIncrement"`
	Code               string          `gorm:"column:code;size:32;uniqueIndex;not null"`
	RequesterUID       string          `gorm:"column:requester_uid;size:128;index;not null"`
	ReceiverUID        string          `gorm:"column:receiver_uid;size:128;index;not null"`
	RequesterListingID uint64          `gorm:"column:requester_listing_id;index;not null"`
	RequesterItemID    uint64          `gorm:"column:requester_item_id;not null"`
	ReceiverListingID  uint64          `gorm:"column:receiver_listing_id;index;not null"`
	ReceiverItemID     uint64          `gorm:"column:receiver_item_id;not null"`
	Message            string          `gorm:"column:message;type:text"`
	ResponseMessage    string          `gorm:"column:response_message;type:text"`
	RejectReason       string          `gorm:"column:reject_reason;type:text"`
	CancelReason       string          `gorm:"column:cancel_reason;type:text"`
	CancelledBy        SwapParty       `gorm:"column:cancelled_by;size:16"`
	Status             SwapStatus      `gorm:"column:status;size:16;index;not null"`
	RequesterShipping  SwapShipping    `gorm:"embedded;embeddedPrefix:requester_ship_"`
	ReceiverShipping   SwapShipping    `gorm:"embedded;embeddedPrefix:receiver_ship_"`
	RequesterAddress   AddressSnapshot `gorm:"embedded;embeddedPrefix:requester_addr_"`
	ReceiverAddress    AddressSnapshot `gorm:"embedded;embeddedPrefix:receiver_addr_"`
	ExpiresAt          time.Time       `gorm:"column:expires_at;index;not null"`
	RespondedAt        *time.Time      `gorm:"column:responded_at"`
	StartedAt          *time.Time      `gorm:"column:started_at"`
	CompletedAt        *time.Time      `gorm:"column:completed_at"`
	CancelledAt        *time.Time      `gorm:"column:cancelled_at"`
	ExpiredAt          *time.Time      `gorm:"column:expired_at"`
	RequesterRating    *int            `gorm:"column:requester_rating"`
	RequesterReview    string          `gorm:"column:requester_review;type:text"`
	RequesterRatedAt   *time.Time      `gorm:"column:requester_rated_at"`
	ReceiverRating     *int            `gorm:"column:receiver_rating"`
	ReceiverReview     string          `gorm:"column:receiver_review;type:text"`
	ReceiverRatedAt    *time.Time      `gorm:"column:receiver_rated_at"`
	Version            uint            `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time       `gorm:"autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime"`
}

func (SwapRequest) TableName() string {
	return "swap_requests"
}

// PartyOf returns the role uid plays in the swap.
func (s *SwapRequest) PartyOf(uid string) (SwapParty, bool) {
	switch {
	case uid == "":
		return "", false
	case uid == s.RequesterUID:
		return SwapPartyRequester, true
	case uid == s.ReceiverUID:
		return SwapPartyReceiver, true
	}
	return "", false
}

func (s *SwapRequest) UIDOf(p SwapParty) string {
	if p == SwapPartyRequester {
		return s.RequesterUID
	}
	return s.ReceiverUID
}

// Leg returns the shipment sent by party p.
func (s *SwapRequest) Leg(p SwapParty) *SwapShipping {
	if p == SwapPartyRequester {
		return &s.RequesterShipping
	}
	return &s.ReceiverShipping
}

func (s *SwapRequest) ListingIDs() []uint64 {
	return []uint64{s.RequesterListingID, s.ReceiverListingID}
}

func (s *SwapRequest) Overdue(now time.Time) bool {
	return s.Status == SwapStatusPending && now.After(s.ExpiresAt)
}

func (s *SwapRequest) BothDelivered() bool {
	return s.RequesterShipping.Delivered() && s.ReceiverShipping.Delivered()
}
