package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/:username", h.GetUser)
}

// GetUser returns the public profile for :username.
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.users.FindUserByUsername(c.Request().Context(), strings.ToLower(c.Param("username")))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "find user")
	}
	return success(c, http.StatusOK, echo.Map{
		"id":         user.ID,
		"username":   user.Username,
		"name":       user.Name,
		"image":      user.Image,
		"created_at": user.CreatedAt,
	})
}
