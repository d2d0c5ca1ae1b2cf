package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	ListingID *uint64 `json:"listing_id,omitempty"`
	OrderID   *uint64 `json:"order_id,omitempty"`
	SwapID    *uint64 `json:"swap_id,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		ListingID: n.ListingID,
		OrderID:   n.OrderID,
		SwapID:    n.SwapID,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	unreadOnly := c.QueryParam("unread_only") != "false"
	limit := queryInt(c, "limit", 20)
	list, unreadCount, err := h.svc.List(c.Request().Context(), caller, unreadOnly, limit)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"notifications": resp,
		"unread_count":  unreadCount,
	})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), caller); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	if err := h.svc.MarkRead(c.Request().Context(), caller, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
