package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/service"
	"github.com/shinyyama/closet-market/internal/shipping"
)

type SwapHandler struct {
	svc service.SwapService
}

func NewSwapHandler(svc service.SwapService) *SwapHandler {
	return &SwapHandler{svc: svc}
}

type ProposeSwapRequest struct {
	RequesterListingID uint64 `json:"requester_listing_id" validate:"required"`
	ReceiverListingID  uint64 `json:"receiver_listing_id" validate:"required,nefield=RequesterListingID"`
	AddressID          uint64 `json:"address_id"`
	Message            string `json:"message" validate:"max=1000"`
}

type RespondSwapRequest struct {
	AddressID uint64 `json:"address_id"`
	Message   string `json:"message" validate:"max=1000"`
}

type RejectSwapRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type CancelSwapRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type SwapShippingRequest struct {
	Method         string `json:"method" validate:"required,oneof=standard express self_delivery meetup"`
	TrackingNumber string `json:"tracking_number" validate:"max=64"`
}

func (h *SwapHandler) Propose(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req ProposeSwapRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	sw, err := h.svc.Propose(c.Request().Context(), caller, service.ProposeSwapInput{
		RequesterListingID: req.RequesterListingID,
		ReceiverListingID:  req.ReceiverListingID,
		AddressID:          req.AddressID,
		Message:            req.Message,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toSwapResponse(sw))
}

func (h *SwapHandler) Get(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid swap id")
	}
	sw, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSwapResponse(sw))
}

func (h *SwapHandler) List(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	role := repository.SwapRole(c.QueryParam("role"))
	switch role {
	case repository.SwapRoleAny, repository.SwapRoleRequester, repository.SwapRoleReceiver:
	default:
		return badRequest(c, "role must be requester or receiver")
	}
	f := service.SwapFilter{
		Role:   role,
		Status: model.SwapStatus(c.QueryParam("status")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	list, total, err := h.svc.List(c.Request().Context(), caller, f)
	if err != nil {
		return writeError(c, err)
	}
	resp := ListResponse[SwapResponse]{Items: make([]SwapResponse, 0, len(list)), Total: total, Page: f.Page, Limit: f.Limit}
	for i := range list {
		resp.Items = append(resp.Items, toSwapResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SwapHandler) Stats(c echo.Context) error {
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

func (h *SwapHandler) History(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid swap id")
	}
	list, err := h.svc.History(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": toEventResponses(list)})
}

func (h *SwapHandler) Accept(c echo.Context) error {
	return h.act(c, func(c echo.Context, caller service.Caller, id uint64) (*model.SwapRequest, error) {
		var req RespondSwapRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return h.svc.Accept(c.Request().Context(), caller, id, req.AddressID, req.Message)
	})
}

func (h *SwapHandler) Reject(c echo.Context) error {
	return h.act(c, func(c echo.Context, caller service.Caller, id uint64) (*model.SwapRequest, error) {
		var req RejectSwapRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return h.svc.Reject(c.Request().Context(), caller, id, req.Reason)
	})
}

func (h *SwapHandler) Cancel(c echo.Context) error {
	return h.act(c, func(c echo.Context, caller service.Caller, id uint64) (*model.SwapRequest, error) {
		var req CancelSwapRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return h.svc.Cancel(c.Request().Context(), caller, id, req.Reason)
	})
}

func (h *SwapHandler) UpdateShipping(c echo.Context) error {
	return h.act(c, func(c echo.Context, caller service.Caller, id uint64) (*model.SwapRequest, error) {
		var req SwapShippingRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return h.svc.UpdateShipping(c.Request().Context(), caller, id, service.SwapShippingInput{
			Method:         shipping.MethodID(req.Method),
			TrackingNumber: req.TrackingNumber,
		})
	})
}

func (h *SwapHandler) MarkDelivered(c echo.Context) error {
	return h.act(c, func(c echo.Context, caller service.Caller, id uint64) (*model.SwapRequest, error) {
		return h.svc.MarkDelivered(c.Request().Context(), caller, id)
	})
}

func (h *SwapHandler) Rate(c echo.Context) error {
	return h.act(c, func(c echo.Context, caller service.Caller, id uint64) (*model.SwapRequest, error) {
		var req RateRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return h.svc.Rate(c.Request().Context(), caller, id, req.Rating, req.Review)
	})
}

// act runs one lifecycle command against the swap named in the path.
func (h *SwapHandler) act(c echo.Context, fn func(echo.Context, service.Caller, uint64) (*model.SwapRequest, error)) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid swap id")
	}
	sw, err := fn(c, caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSwapResponse(sw))
}
