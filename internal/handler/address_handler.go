package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/service"
)

type AddressHandler struct {
	svc service.AddressService
}

func NewAddressHandler(svc service.AddressService) *AddressHandler {
	return &AddressHandler{svc: svc}
}

func (h *AddressHandler) Create(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req service.CreateAddressInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	a, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toAddressResponse(a))
}

func (h *AddressHandler) List(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	list, err := h.svc.List(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]AddressResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toAddressResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"addresses": resp})
}

func (h *AddressHandler) Get(c echo.Context) error {
	return h.one(c, func(c echo.Context, caller service.Caller) (*model.Address, error) {
		id, ok := pathID(c, "id")
		if !ok {
			return nil, &service.ValidationError{Field: "id", Message: "invalid address id"}
		}
		return h.svc.Get(c.Request().Context(), caller, id)
	})
}

func (h *AddressHandler) GetDefault(c echo.Context) error {
	return h.one(c, func(c echo.Context, caller service.Caller) (*model.Address, error) {
		return h.svc.GetDefault(c.Request().Context(), caller)
	})
}

func (h *AddressHandler) SetDefault(c echo.Context) error {
	return h.one(c, func(c echo.Context, caller service.Caller) (*model.Address, error) {
		id, ok := pathID(c, "id")
		if !ok {
			return nil, &service.ValidationError{Field: "id", Message: "invalid address id"}
		}
		return h.svc.SetDefault(c.Request().Context(), caller, id)
	})
}

func (h *AddressHandler) one(c echo.Context, fn func(echo.Context, service.Caller) (*model.Address, error)) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	a, err := fn(c, caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAddressResponse(a))
}
