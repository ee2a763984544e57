package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/dmitrijs2005/bookmarker/internal/server/models"
	"github.com/dmitrijs2005/bookmarker/internal/server/services"
	"github.com/labstack/echo/v4"
)

const apiVersion = "1.0.0"

// UserService is the part of services.UserService the handlers call.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, presented string, user *models.User) error
}

type BookmarkService interface {
	Create(ctx context.Context, userID int64, in services.BookmarkInput) (*models.Bookmark, error)
	List(ctx context.Context, userID int64, archived *bool) ([]*models.Bookmark, error)
	Get(ctx context.Context, userID, id int64) (*models.Bookmark, error)
	Update(ctx context.Context, userID, id int64, patch services.BookmarkPatch) (*models.Bookmark, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Authenticator resolves an Authorization header to an active user.
type Authenticator interface {
	ResolveActive(ctx context.Context, header string) (*models.User, error)
}

type Handler struct {
	users     UserService
	bookmarks BookmarkService
	auth      Authenticator
	logger    logging.Logger
}

func NewHandler(us UserService, bs BookmarkService, a Authenticator, l logging.Logger) *Handler {
	return &Handler{users: us, bookmarks: bs, auth: a, logger: l}
}

func (h *Handler) log(c echo.Context) logging.Logger {
	return logging.FromContext(c.Request().Context(), h.logger)
}

func (h *Handler) register(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	g := e.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.protected(h.Logout))
	g.GET("/me", h.protected(h.Me))

	b := e.Group("/bookmarks")
	b.POST("", h.protected(h.CreateBookmark))
	b.POST("/", h.protected(h.CreateBookmark))
	b.GET("", h.protected(h.ListBookmarks))
	b.GET("/", h.protected(h.ListBookmarks))
	b.GET("/:id", h.protected(h.GetBookmark))
	b.PATCH("/:id", h.protected(h.UpdateBookmark))
	b.DELETE("/:id", h.protected(h.DeleteBookmark))
}

// protected resolves the bearer credential before fn runs and hands fn the
// verified, active user.
func (h *Handler) protected(fn func(c echo.Context, user *models.User) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := h.auth.ResolveActive(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return err
		}
		return fn(c, user)
	}
}

func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Bookmarker API", "version": apiVersion})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// bind decodes the body into v and runs its validation rules.
func bind(c echo.Context, v interface{ Validate() error }) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	return v.Validate()
}
