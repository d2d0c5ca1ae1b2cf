package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	vnpayVersion     = "2.1.0"
	vnpayHashParam   = "vnp_SecureHash"
	vnpayHashType    = "vnp_SecureHashType"
	vnpaySuccessCode = "00"
)

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	URL        string
	ReturnURL  string
}

type VNPay struct {
	cfg VNPayConfig
}

func NewVNPay(cfg VNPayConfig) *VNPay {
	return &VNPay{cfg: cfg}
}

func (v *VNPay) Name() string { return "vnpay" }

// CreateIntent builds the signed redirect URL. VNPay takes the amount in
// hundredths of a dong.
func (v *VNPay) CreateIntent(_ context.Context, in Intent) (*Checkout, error) {
	created := in.At.In(vnTime).Format("20060102150405")
	ref := in.OrderCode + "_" + created
	info := in.Info
	if info == "" {
		info = "Thanh toan don hang " + in.OrderCode
	}
	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = v.cfg.ReturnURL
	}
	ip := in.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	params := url.Values{
		"vnp_Version":    {vnpayVersion},
		"vnp_Command":    {"pay"},
		"vnp_TmnCode":    {v.cfg.TmnCode},
		"vnp_Locale":     {"vn"},
		"vnp_CurrCode":   {"VND"},
		"vnp_TxnRef":     {ref},
		"vnp_OrderInfo":  {info},
		"vnp_OrderType":  {"other"},
		"vnp_Amount":     {strconv.FormatInt(in.Amount*100, 10)},
		"vnp_ReturnUrl":  {returnURL},
		"vnp_IpAddr":     {ip},
		"vnp_CreateDate": {created},
	}
	params.Set(vnpayHashParam, v.sign(params))
	return &Checkout{
		Provider:  v.Name(),
		PayURL:    v.cfg.URL + "?" + params.Encode(),
		Reference: ref,
	}, nil
}

func (v *VNPay) VerifyCallback(params url.Values) (*Result, error) {
	got := params.Get(vnpayHashParam)
	if got == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, vnpayHashParam)
	}
	want := v.sign(params)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return nil, ErrInvalidSignature
	}
	ref := params.Get("vnp_TxnRef")
	code, _, _ := strings.Cut(ref, "_")
	if code == "" {
		return nil, fmt.Errorf("%w: missing vnp_TxnRef", ErrMalformed)
	}
	amount, err := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: vnp_Amount: %v", ErrMalformed, err)
	}
	rc := params.Get("vnp_ResponseCode")
	return &Result{
		Provider:      v.Name(),
		OrderCode:     code,
		TransactionID: params.Get("vnp_TransactionNo"),
		Amount:        amount / 100,
		Success:       rc == vnpaySuccessCode,
		Code:          rc,
	}, nil
}

// sign is HMAC-SHA512 over the sorted, unescaped key=value pairs, leaving out
// the hash fields themselves.
func (v *VNPay) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == vnpayHashParam || k == vnpayHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params.Get(k))
	}
	mac := hmac.New(sha512.New, []byte(v.cfg.HashSecret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
