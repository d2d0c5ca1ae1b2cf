package handler

import (
	"context"
	"log/slog"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/service"
)

// UserDirectory is satisfied by *auth.Client.
type UserDirectory interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

type UserHandler struct {
	stats service.StatsService
	users UserDirectory
}

// NewUserHandler accepts a nil directory; profiles then omit names and photos.
func NewUserHandler(stats service.StatsService, users UserDirectory) *UserHandler {
	return &UserHandler{stats: stats, users: users}
}

type PublicUserResponse struct {
	service.Profile
	DisplayName string  `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return badRequest(c, "invalid uid")
	}
	profile, err := h.stats.Profile(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	resp := PublicUserResponse{Profile: *profile}
	if h.users != nil {
		user, err := h.users.GetUser(c.Request().Context(), uid)
		switch {
		case auth.IsUserNotFound(err):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		case err != nil:
			slog.WarnContext(c.Request().Context(), "user lookup failed", "uid", uid, "error", err)
		default:
			resp.DisplayName = user.DisplayName
			resp.PhotoURL = strPtrOrNil(user.PhotoURL)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
