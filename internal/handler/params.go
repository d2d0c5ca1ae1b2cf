package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/middleware"
	"github.com/shinyyama/closet-market/internal/service"
)

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func queryInt64(c echo.Context, name string) (*int64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// requireCaller writes a 401 when the route let an anonymous request through.
func requireCaller(c echo.Context) (service.Caller, bool) {
	caller := middleware.CallerFrom(c)
	if caller.Anonymous() {
		_ = c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
		return caller, false
	}
	return caller, true
}
