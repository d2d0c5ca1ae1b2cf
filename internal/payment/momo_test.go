package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func testMoMo(endpoint string) *MoMo {
	return NewMoMo(MoMoConfig{
		PartnerCode: "MOMO01",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    endpoint,
		RedirectURL: "http://localhost:3000/payment/momo-return",
		IPNURL:      "http://localhost:8080/api/payments/momo/ipn",
	}, http.DefaultClient)
}

func TestMoMo_CreateIntent(t *testing.T) {
	t.Parallel()

	var got momoCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(momoCreateResponse{PayURL: "https://pay.momo.vn/abc", OrderID: got.OrderID})
	}))
	defer srv.Close()

	m := testMoMo(srv.URL)
	at := time.UnixMilli(1735787045000)
	c, err := m.CreateIntent(context.Background(), Intent{OrderCode: "ORD20250102ABCD", Amount: 555000, At: at})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if c.PayURL != "https://pay.momo.vn/abc" {
		t.Errorf("pay url = %q", c.PayURL)
	}
	if got.RequestID != "ORD20250102ABCD_1735787045000" || got.Amount != 555000 {
		t.Errorf("request = %+v", got)
	}
	want := m.sign(
		"accessKey", "access",
		"amount", "555000",
		"extraData", "",
		"ipnUrl", got.IPNURL,
		"orderId", got.OrderID,
		"orderInfo", got.OrderInfo,
		"partnerCode", "MOMO01",
		"redirectUrl", got.RedirectURL,
		"requestId", got.RequestID,
		"requestType", momoRequestType,
	)
	if got.Signature != want {
		t.Errorf("signature mismatch")
	}
}

func TestMoMo_CreateIntentRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(momoCreateResponse{ResultCode: 22, Message: "amount out of range"})
	}))
	defer srv.Close()

	_, err := testMoMo(srv.URL).CreateIntent(context.Background(), Intent{OrderCode: "ORD1", Amount: 1, At: time.Now()})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}

func signedMoMoCallback(m *MoMo, resultCode int) url.Values {
	p := url.Values{
		"partnerCode":  {"MOMO01"},
		"orderId":      {"ORD20250102ABCD"},
		"requestId":    {"ORD20250102ABCD_1735787045000"},
		"amount":       {"555000"},
		"orderInfo":    {"Thanh toan don hang ORD20250102ABCD"},
		"orderType":    {"momo_wallet"},
		"transId":      {"4088878653"},
		"resultCode":   {strconv.Itoa(resultCode)},
		"message":      {"Successful."},
		"payType":      {"qr"},
		"responseTime": {"1735787100000"},
		"extraData":    {""},
	}
	p.Set("signature", m.sign(
		"accessKey", "access",
		"amount", p.Get("amount"),
		"extraData", p.Get("extraData"),
		"message", p.Get("message"),
		"orderId", p.Get("orderId"),
		"orderInfo", p.Get("orderInfo"),
		"orderType", p.Get("orderType"),
		"partnerCode", "MOMO01",
		"payType", p.Get("payType"),
		"requestId", p.Get("requestId"),
		"responseTime", p.Get("responseTime"),
		"resultCode", p.Get("resultCode"),
		"transId", p.Get("transId"),
	))
	return p
}

func TestMoMo_VerifyCallback(t *testing.T) {
	t.Parallel()

	m := testMoMo("")

	res, err := m.VerifyCallback(signedMoMoCallback(m, 0))
	if err != nil {
		t.Fatalf("VerifyCallback: %v", err)
	}
	if !res.Success || res.OrderCode != "ORD20250102ABCD" || res.TransactionID != "4088878653" || res.Amount != 555000 {
		t.Errorf("result = %+v", res)
	}

	res, err = m.VerifyCallback(signedMoMoCallback(m, 1006))
	if err != nil {
		t.Fatalf("VerifyCallback declined: %v", err)
	}
	if res.Success {
		t.Error("declined callback reported success")
	}

	tampered := signedMoMoCallback(m, 0)
	tampered.Set("amount", "1")
	if _, err := m.VerifyCallback(tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("tampered err = %v, want ErrInvalidSignature", err)
	}
}
