package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/labstack/echo/v4"
)

func (h *Handler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *Handler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}

	pair, err := h.users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.users.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Logout answers success whether or not the token existed. Only bearer
// failures and storage errors reach the client.
func (h *Handler) Logout(c echo.Context, user *models.User) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}

	ctx := c.Request().Context()
	if err := h.users.Logout(ctx, req.RefreshToken, user); err != nil {
		return err
	}
	h.log(c).Info(ctx, "logged out", "user_id", user.ID)
	return c.JSON(http.StatusOK, messageResponse{Message: "Successfully logged out"})
}

func (h *Handler) Me(c echo.Context, user *models.User) error {
	return c.JSON(http.StatusOK, newUserResponse(user))
}
