package shipping

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrMissingInput = errors.New("shipping: listing and destination are required")

type MethodID string

const (
	MethodStandard     MethodID = "standard"
	MethodExpress      MethodID = "express"
	MethodSelfDelivery MethodID = "self_delivery"
	MethodMeetup       MethodID = "meetup"
)

type MethodType string

const (
	TypePlatform MethodType = "platform"
	TypeSelf     MethodType = "self"
	TypeMeetup   MethodType = "meetup"
)

const (
	DefaultStandardFee int64 = 30000
	DefaultExpressFee  int64 = 50000
)

var expressMultiplier = decimal.RequireFromString("1.5")

type ETA struct {
	MinDays int `json:"min_days"`
	MaxDays int `json:"max_days"`
}

// Quote is one offerable delivery method. It is computed per request and
// never stored.
type Quote struct {
	ID   MethodID   `json:"id"`
	Name string     `json:"name"`
	Type MethodType `json:"type"`
	Fee  int64      `json:"fee"`
	ETA  *ETA       `json:"eta,omitempty"`
	Note string     `json:"note,omitempty"`
}

func (q Quote) Provider() string {
	if q.Type == TypePlatform {
		return "platform"
	}
	return string(q.Type)
}

func standardQuote(fee int64) Quote {
	return Quote{ID: MethodStandard, Name: "Giao hàng thường (Tiêu chuẩn)", Type: TypePlatform, Fee: fee,
		ETA: &ETA{MinDays: 3, MaxDays: 5}, Note: "Giao hàng tiêu chuẩn"}
}

func expressQuote(fee int64) Quote {
	return Quote{ID: MethodExpress, Name: "Giao hàng nhanh (Express)", Type: TypePlatform, Fee: fee,
		ETA: &ETA{MinDays: 1, MaxDays: 2}, Note: "Giao hàng nhanh trong 1-2 ngày"}
}

func selfDeliveryQuote() Quote {
	return Quote{ID: MethodSelfDelivery, Name: "Tự giao (Self Delivery)", Type: TypeSelf,
		ETA: &ETA{MinDays: 1, MaxDays: 1}, Note: "Người bán tự giao hàng"}
}

func meetupQuote() Quote {
	return Quote{ID: MethodMeetup, Name: "Gặp mặt (Meet Up)", Type: TypeMeetup,
		Note: "Gặp trực tiếp để giao hàng"}
}

// Fees returns the standard and express fee for s.
func Fees(s Settings) (standard, express int64) {
	if s.FixedFee <= 0 {
		return DefaultStandardFee, DefaultExpressFee
	}
	express = decimal.NewFromInt(s.FixedFee).Mul(expressMultiplier).Round(0).IntPart()
	return s.FixedFee, express
}

// Quotes lists every method the buyer may pick for l shipped to dest. The
// result is never empty: when no rule applies a single meetup quote is
// returned so checkout is not blocked.
func Quotes(l *Listing, dest *Destination) ([]Quote, error) {
	if l == nil || dest == nil {
		return nil, ErrMissingInput
	}
	s := l.Config.Resolve()
	var out []Quote

	if s.PlatformShipping && MatchRegion(s.Regions, dest.Province.Name) {
		std, exp := Fees(s)
		out = append(out, standardQuote(std), expressQuote(exp))
	}
	if s.SelfDelivery {
		out = append(out, selfDeliveryQuote())
	}
	if SameProvince(dest.Province.Name, l.Origin.Province) || s.Meetup {
		out = append(out, meetupQuote())
	}
	if len(out) == 0 {
		out = append(out, meetupQuote())
	}
	return out, nil
}

// CanShipToRegion applies only the platform region rule.
func CanShipToRegion(cfg *Config, province string) bool {
	return MatchRegion(cfg.Resolve().Regions, province)
}

// Find returns the quote for id among quotes.
func Find(quotes []Quote, id MethodID) (Quote, bool) {
	for _, q := range quotes {
		if q.ID == id {
			return q, true
		}
	}
	return Quote{}, false
}

// MethodAllowed reports whether the seller's switches permit id at all,
// ignoring region and province.
func MethodAllowed(cfg *Config, id MethodID) bool {
	s := cfg.Resolve()
	switch id {
	case MethodStandard, MethodExpress:
		return s.PlatformShipping
	case MethodSelfDelivery:
		return s.SelfDelivery
	case MethodMeetup:
		return s.Meetup
	}
	return false
}
