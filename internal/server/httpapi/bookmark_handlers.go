package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/services"
	"github.com/labstack/echo/v4"
)

func (h *Handler) CreateBookmark(c echo.Context, user *models.User) error {
	var req bookmarkCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	b, err := h.bookmarks.Create(c.Request().Context(), user.ID, services.BookmarkInput{
		URL:   req.URL,
		Title: req.Title,
		Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newBookmarkResponse(b))
}

func (h *Handler) ListBookmarks(c echo.Context, user *models.User) error {
	var archived *bool
	if raw := c.QueryParam("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "archived must be a boolean")
		}
		archived = &v
	}

	items, err := h.bookmarks.List(c.Request().Context(), user.ID, archived)
	if err != nil {
		return err
	}

	out := make([]bookmarkResponse, 0, len(items))
	for _, b := range items {
		out = append(out, newBookmarkResponse(b))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetBookmark(c echo.Context, user *models.User) error {
	id, err := bookmarkID(c)
	if err != nil {
		return err
	}

	b, err := h.bookmarks.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return bookmarkError(err)
	}
	return c.JSON(http.StatusOK, newBookmarkResponse(b))
}

func (h *Handler) UpdateBookmark(c echo.Context, user *models.User) error {
	id, err := bookmarkID(c)
	if err != nil {
		return err
	}
	var req bookmarkUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	b, err := h.bookmarks.Update(c.Request().Context(), user.ID, id, services.BookmarkPatch{
		Archived: req.Archived,
		Notes:    req.Notes,
	})
	if err != nil {
		return bookmarkError(err)
	}
	return c.JSON(http.StatusOK, newBookmarkResponse(b))
}

func (h *Handler) DeleteBookmark(c echo.Context, user *models.User) error {
	id, err := bookmarkID(c)
	if err != nil {
		return err
	}

	if err := h.bookmarks.Delete(c.Request().Context(), user.ID, id); err != nil {
		return bookmarkError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Bookmark deleted successfully"})
}

func bookmarkID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "bookmark id must be an integer")
	}
	return id, nil
}

func bookmarkError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, detailBookmarkMissing)
	}
	return err
}
