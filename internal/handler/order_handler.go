package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/report"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/service"
	"github.com/shinyyama/closet-market/internal/shipping"
)

type OrderHandler struct {
	svc service.OrderService
	loc *time.Location
	now func() time.Time
}

// NewOrderHandler renders export timestamps in loc.
func NewOrderHandler(svc service.OrderService, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, loc: loc, now: time.Now}
}

type CreateOrderRequest struct {
	ListingID      uint64              `json:"listing_id" validate:"required"`
	AddressID      uint64              `json:"address_id"`
	ShippingMethod string              `json:"shipping_method" validate:"required,oneof=standard express self_delivery meetup"`
	PaymentMethod  model.PaymentMethod `json:"payment_method" validate:"required,oneof=cod bank_transfer vnpay momo"`
	BuyerNote      string              `json:"buyer_note" validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status         model.OrderStatus `json:"status" validate:"required"`
	TrackingNumber string            `json:"tracking_number" validate:"max=64"`
	Reason         string            `json:"reason" validate:"max=500"` // cancellations only
}

type UpdatePaymentRequest struct {
	PaymentStatus model.PaymentStatus `json:"payment_status" validate:"required,oneof=pending paid failed refunded"`
	TransactionID string              `json:"transaction_id" validate:"max=128"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RateRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=1000"`
}

func (h *OrderHandler) Create(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.Create(c.Request().Context(), caller, service.CreateOrderInput{
		ListingID:      req.ListingID,
		AddressID:      req.AddressID,
		ShippingMethod: shipping.MethodID(req.ShippingMethod),
		PaymentMethod:  req.PaymentMethod,
		BuyerNote:      req.BuyerNote,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandler) Get(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	o, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) List(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	role := repository.OrderRole(c.QueryParam("role"))
	switch role {
	case repository.OrderRoleAny, repository.OrderRoleBuyer, repository.OrderRoleSeller:
	default:
		return badRequest(c, "role must be buyer or seller")
	}
	f := service.OrderFilter{
		Role:   role,
		Status: model.OrderStatus(c.QueryParam("status")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	list, total, err := h.svc.List(c.Request().Context(), caller, f)
	if err != nil {
		return writeError(c, err)
	}
	resp := ListResponse[OrderResponse]{Items: make([]OrderResponse, 0, len(list)), Total: total, Page: f.Page, Limit: f.Limit}
	for i := range list {
		resp.Items = append(resp.Items, toOrderResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Stats(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	stats, err := h.svc.Stats(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *OrderHandler) History(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	list, err := h.svc.History(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": toEventResponses(list)})
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req UpdateOrderStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	var (
		o   *model.Order
		err error
	)
	if req.Status == model.OrderStatusCancelled {
		o, err = h.svc.Cancel(c.Request().Context(), caller, id, req.Reason)
	} else {
		o, err = h.svc.AdvanceFulfillment(c.Request().Context(), caller, id, req.Status, req.TrackingNumber)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) UpdatePayment(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req UpdatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.UpdatePayment(c.Request().Context(), caller, id, req.PaymentStatus, req.TransactionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req CancelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.Cancel(c.Request().Context(), caller, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) Rate(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req RateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.Rate(c.Request().Context(), caller, id, req.Rating, req.Review)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

// ExportSales streams the caller's sales as an xlsx download.
func (h *OrderHandler) ExportSales(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	orders, err := h.svc.SalesForExport(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err)
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, report.ContentType)
	res.Header().Set(echo.HeaderContentDisposition, "attachment; filename="+report.SalesFilename(h.now().In(h.loc)))
	res.WriteHeader(http.StatusOK)
	return report.WriteSales(res, orders, h.loc)
}
