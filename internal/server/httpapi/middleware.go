package httpapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func middlewares(l logging.Logger, origins *regexp.Regexp) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator: uuid.NewString,
		}),
		requestLogger(l),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOriginFunc: func(origin string) (bool, error) {
				return origins.MatchString(origin), nil
			},
			AllowMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPatch,
				http.MethodDelete, http.MethodOptions,
			},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           600,
		}),
	}
}

// requestLogger puts a request scoped logger into the request context and
// writes one line per request once the response status is known.
func requestLogger(base logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := base.With(
				"method", req.Method,
				"path", c.Path(),
				"remote_ip", c.RealIP(),
			)
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
				l = l.With("request_id", rid)
			}

			ctx := logging.IntoContext(req.Context(), l)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			dur := time.Since(start).Milliseconds()

			switch {
			case status >= 500:
				l.Error(ctx, "request completed", "status", status, "duration_ms", dur, "error", errString(err))
			case status >= 400:
				l.Warn(ctx, "request completed", "status", status, "duration_ms", dur)
			default:
				l.Info(ctx, "request completed", "status", status, "duration_ms", dur, "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
