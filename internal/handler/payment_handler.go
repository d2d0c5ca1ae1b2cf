package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/service"
)

type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type CreateIntentRequest struct {
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

type CheckoutResponse struct {
	Provider  string `json:"provider"`
	PayURL    string `json:"pay_url"`
	Reference string `json:"reference"`
}

func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req CreateIntentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	co, err := h.svc.CreateIntent(c.Request().Context(), caller, id, req.ReturnURL, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CheckoutResponse{Provider: co.Provider, PayURL: co.PayURL, Reference: co.Reference})
}

// VNPayReturn handles the browser redirect back from VNPay.
func (h *PaymentHandler) VNPayReturn(c echo.Context) error {
	o, err := h.svc.HandleCallback(c.Request().Context(), model.PaymentMethodVNPay, c.QueryParams())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

type vnpayAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// VNPayIPN answers in the RspCode envelope VNPay retries on.
func (h *PaymentHandler) VNPayIPN(c echo.Context) error {
	_, err := h.svc.HandleCallback(c.Request().Context(), model.PaymentMethodVNPay, c.QueryParams())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, vnpayAck{"00", "Confirm Success"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusOK, vnpayAck{"01", "Order not found"})
	case errors.Is(err, service.ErrExternalProvider):
		return c.JSON(http.StatusOK, vnpayAck{"97", "Invalid signature"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusOK, vnpayAck{"02", "Order already confirmed"})
	default:
		return c.JSON(http.StatusOK, vnpayAck{"99", "Unknown error"})
	}
}

func (h *PaymentHandler) MoMoReturn(c echo.Context) error {
	o, err := h.svc.HandleCallback(c.Request().Context(), model.PaymentMethodMoMo, c.QueryParams())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

// MoMoIPN acknowledges with 204 once the callback is applied.
func (h *PaymentHandler) MoMoIPN(c echo.Context) error {
	params, err := momoParams(c)
	if err != nil {
		return badRequest(c, "invalid json")
	}
	if _, err := h.svc.HandleCallback(c.Request().Context(), model.PaymentMethodMoMo, params); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// momoParams flattens the JSON IPN body so it verifies like the redirect query.
func momoParams(c echo.Context) (url.Values, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	params := url.Values{}
	for k, v := range body {
		switch v := v.(type) {
		case nil:
			params.Set(k, "")
		case string:
			params.Set(k, v)
		default:
			params.Set(k, fmt.Sprint(v))
		}
	}
	return params, nil
}
