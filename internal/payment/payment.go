// Package payment signs checkout requests for the online payment providers
// and verifies their callbacks. It never touches orders; the service layer
// applies verified results.
package payment

import (
	"context"
	"errors"
	"net/url"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrMalformed        = errors.New("malformed payment callback")
	ErrProvider         = errors.New("payment provider rejected the request")
)

// Intent describes one checkout attempt for an order.
type Intent struct {
	OrderCode string
	Amount    int64
	Info      string
	ReturnURL string
	ClientIP  string
	At        time.Time
}

type Checkout struct {
	Provider  string `json:"provider"`
	PayURL    string `json:"pay_url"`
	Reference string `json:"reference"`
}

// Result is a verified provider callback.
type Result struct {
	Provider      string
	OrderCode     string
	TransactionID string
	Amount        int64
	Success       bool
	Code          string
	Message       string
}

type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, in Intent) (*Checkout, error)
	// VerifyCallback checks the signature of a return or IPN request.
	VerifyCallback(params url.Values) (*Result, error)
}

// vnTime is the provider clock (GMT+7).
var vnTime = time.FixedZone("ICT", 7*60*60)
