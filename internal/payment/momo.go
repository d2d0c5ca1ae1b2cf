package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	momoRequestType = "captureWallet"
	momoSuccessCode = "0"
)

type MoMoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
}

type MoMo struct {
	cfg    MoMoConfig
	client *http.Client
}

// NewMoMo uses an instrumented client when client is nil.
func NewMoMo(cfg MoMoConfig, client *http.Client) *MoMo {
	if client == nil {
		client = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &MoMo{cfg: cfg, client: client}
}

func (m *MoMo) Name() string { return "momo" }

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	PayURL     string `json:"payUrl"`
	OrderID    string `json:"orderId"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

func (m *MoMo) CreateIntent(ctx context.Context, in Intent) (*Checkout, error) {
	info := in.Info
	if info == "" {
		info = "Thanh toan don hang " + in.OrderCode
	}
	redirect := in.ReturnURL
	if redirect == "" {
		redirect = m.cfg.RedirectURL
	}
	req := momoCreateRequest{
		PartnerCode: m.cfg.PartnerCode,
		AccessKey:   m.cfg.AccessKey,
		RequestID:   in.OrderCode + "_" + strconv.FormatInt(in.At.UnixMilli(), 10),
		Amount:      in.Amount,
		OrderID:     in.OrderCode,
		OrderInfo:   info,
		RedirectURL: redirect,
		IPNURL:      m.cfg.IPNURL,
		RequestType: momoRequestType,
		Lang:        "vi",
	}
	req.Signature = m.sign(
		"accessKey", req.AccessKey,
		"amount", strconv.FormatInt(req.Amount, 10),
		"extraData", req.ExtraData,
		"ipnUrl", req.IPNURL,
		"orderId", req.OrderID,
		"orderInfo", req.OrderInfo,
		"partnerCode", req.PartnerCode,
		"redirectUrl", req.RedirectURL,
		"requestId", req.RequestID,
		"requestType", req.RequestType,
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrProvider, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.ResultCode != 0 || out.PayURL == "" {
		return nil, fmt.Errorf("%w: result %d: %s", ErrProvider, out.ResultCode, out.Message)
	}
	return &Checkout{Provider: m.Name(), PayURL: out.PayURL, Reference: req.RequestID}, nil
}

// VerifyCallback accepts both the browser return and the IPN, which carry the
// same signed fields.
func (m *MoMo) VerifyCallback(params url.Values) (*Result, error) {
	got := params.Get("signature")
	if got == "" {
		return nil, fmt.Errorf("%w: missing signature", ErrMalformed)
	}
	want := m.sign(
		"accessKey", m.cfg.AccessKey,
		"amount", params.Get("amount"),
		"extraData", params.Get("extraData"),
		"message", params.Get("message"),
		"orderId", params.Get("orderId"),
		"orderInfo", params.Get("orderInfo"),
		"orderType", params.Get("orderType"),
		"partnerCode", m.cfg.PartnerCode,
		"payType", params.Get("payType"),
		"requestId", params.Get("requestId"),
		"responseTime", params.Get("responseTime"),
		"resultCode", params.Get("resultCode"),
		"transId", params.Get("transId"),
	)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return nil, ErrInvalidSignature
	}
	if params.Get("orderId") == "" {
		return nil, fmt.Errorf("%w: missing orderId", ErrMalformed)
	}
	amount, err := strconv.ParseInt(params.Get("amount"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", ErrMalformed, err)
	}
	rc := params.Get("resultCode")
	return &Result{
		Provider:      m.Name(),
		OrderCode:     params.Get("orderId"),
		TransactionID: params.Get("transId"),
		Amount:        amount,
		Success:       rc == momoSuccessCode,
		Code:          rc,
		Message:       params.Get("message"),
	}, nil
}

// sign is HMAC-SHA256 over "k1=v1&k2=v2..." in the given order, which MoMo
// fixes as alphabetical.
func (m *MoMo) sign(kv ...string) string {
	var buf bytes.Buffer
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(kv[i])
		buf.WriteByte('=')
		buf.WriteString(kv[i+1])
	}
	mac := hmac.New(sha256.New, []byte(m.cfg.SecretKey))
	mac.Write(buf.Bytes())
	return hex.EncodeToString(mac.Sum(nil))
}
