package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/middleware"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/service"
)

type ListingHandler struct {
	svc service.CatalogService
}

func NewListingHandler(svc service.CatalogService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *ListingHandler) Create(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req service.CreateListingInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	l, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) List(c echo.Context) error {
	minPrice, ok := queryInt64(c, "min_price")
	if !ok {
		return badRequest(c, "invalid min_price")
	}
	maxPrice, ok := queryInt64(c, "max_price")
	if !ok {
		return badRequest(c, "invalid max_price")
	}
	f := service.ListingFilter{
		Type:      model.ListingType(c.QueryParam("type")),
		Condition: model.ListingCondition(c.QueryParam("condition")),
		Status:    model.ListingStatus(c.QueryParam("status")),
		SellerUID: c.QueryParam("seller_uid"),
		Category:  c.QueryParam("category"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Featured:  c.QueryParam("featured") == "true",
		Query:     c.QueryParam("q"),
		Sort:      repository.ListingSort(c.QueryParam("sort")),
		Page:      repository.Page{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 20)},
	}
	list, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	resp := ListResponse[ListingResponse]{Items: make([]ListingResponse, 0, len(list)), Total: total, Page: f.Page.Page, Limit: f.Page.Limit}
	for i := range list {
		resp.Items = append(resp.Items, toListingResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get is public; signed-in viewers also learn whether they favorited it.
func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	caller := middleware.CallerFrom(c)
	viewer := caller.UID
	if viewer == "" {
		viewer = "ip:" + c.RealIP()
	}
	view, err := h.svc.Get(c.Request().Context(), caller, id, viewer)
	if err != nil {
		return writeError(c, err)
	}
	resp := toListingResponse(&view.Listing)
	if !caller.Anonymous() {
		resp.IsFavorite = &view.IsFavorite
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) ToggleFavorite(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	fav, err := h.svc.ToggleFavorite(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_favorite": fav})
}

func (h *ListingHandler) Boost(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	l, err := h.svc.Boost(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) SetActive(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req SetActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	l, err := h.svc.SetActive(c.Request().Context(), caller, id, *req.Active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}
