package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/service"
)

type ShippingHandler struct {
	svc service.ShippingService
}

func NewShippingHandler(svc service.ShippingService) *ShippingHandler {
	return &ShippingHandler{svc: svc}
}

// Quotes lists the delivery options for a listing; address_id defaults to
// the caller's default address.
func (h *ShippingHandler) Quotes(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var addressID uint64
	if raw := c.QueryParam("address_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "invalid address_id")
		}
		addressID = v
	}
	quotes, err := h.svc.Quote(c.Request().Context(), caller, id, addressID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"methods": quotes})
}

func (h *ShippingHandler) CanShip(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	province := c.QueryParam("province")
	can, err := h.svc.CanShipTo(c.Request().Context(), id, province)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"province": province, "can_ship": can})
}
