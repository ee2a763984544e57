package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/dmitrijs2005/bookmarker/internal/logging"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"
)

const (
	detailBadCredentials  = "Incorrect username or password"
	detailInactive        = "Inactive user"
	detailBadRefresh      = "Invalid or expired refresh token"
	detailNoCredentials   = "Could not validate credentials"
	detailUsernameTaken   = "Username already registered"
	detailNotFound        = "Not found"
	detailInternal        = "internal server error"
	detailBookmarkMissing = "Bookmark not found"
)

// errorBody is the JSON shape of every error response. Detail is a string,
// or a field to message map for validation failures.
type errorBody struct {
	Detail any `json:"detail"`
}

type mappedError struct {
	status    int
	detail    any
	challenge bool
}

// mapError is the only place error kinds become status codes.
func mapError(err error) mappedError {
	var (
		he *echo.HTTPError
		ve validation.Errors
	)
	switch {
	case errors.As(err, &he):
		detail := he.Message
		if s, ok := detail.(string); !ok || s == "" {
			detail = http.StatusText(he.Code)
		}
		return mappedError{status: he.Code, detail: detail}
	case errors.As(err, &ve):
		return mappedError{status: http.StatusUnprocessableEntity, detail: ve}
	case errors.Is(err, common.ErrInvalidCredentials):
		return mappedError{status: http.StatusUnauthorized, detail: detailBadCredentials, challenge: true}
	case errors.Is(err, common.ErrInactiveAccount):
		return mappedError{status: http.StatusUnauthorized, detail: detailInactive}
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return mappedError{status: http.StatusUnauthorized, detail: detailBadRefresh}
	case errors.Is(err, common.ErrMissingCredential), errors.Is(err, common.ErrInvalidCredential):
		return mappedError{status: http.StatusUnauthorized, detail: detailNoCredentials, challenge: true}
	case errors.Is(err, common.ErrorAlreadyExists):
		return mappedError{status: http.StatusBadRequest, detail: detailUsernameTaken}
	case errors.Is(err, common.ErrorNotFound):
		return mappedError{status: http.StatusNotFound, detail: detailNotFound}
	default:
		return mappedError{status: http.StatusInternalServerError, detail: detailInternal}
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	m := mapError(err)
	if m.status >= http.StatusInternalServerError {
		ctx := c.Request().Context()
		logging.FromContext(ctx, s.logger).Error(ctx, "request failed", "error", err.Error())
	}
	if m.challenge {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(m.status)
	} else {
		werr = c.JSON(m.status, errorBody{Detail: m.detail})
	}
	if werr != nil {
		s.logger.Error(c.Request().Context(), "writing error response", "error", werr.Error())
	}
}
