package handlers

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"

	"github.com/anonto42/nano-midea/notifier/internal/activity"
	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/middleware"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
)

type actionApplier interface {
	Apply(ctx context.Context, principal auth.Principal, action activity.Action) (activity.Result, error)
}

// ActivityHandler exposes the write actions that can produce notifications:
// posting, liking and following.
type ActivityHandler struct {
	writer    actionApplier
	posts     repositories.PostRepository
	sanitizer *bluemonday.Policy
}

func NewActivityHandler(writer actionApplier, posts repositories.PostRepository) *ActivityHandler {
	return &ActivityHandler{
		writer:    writer,
		posts:     posts,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// RegisterActivityRoutes registers routes; write routes go through limit.
func (h *ActivityHandler) RegisterActivityRoutes(g *echo.Group, limit ...echo.MiddlewareFunc) {
	g.POST("/posts", h.CreatePost, limit...)
	g.GET("/posts/:id", h.GetPost)
	g.POST("/posts/:id/like", h.ToggleLike, limit...)
	g.POST("/users/:username/follow", h.ToggleFollow, limit...)
}

// CreatePost creates a post, reply, repost or quote.
func (h *ActivityHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.writer.Apply(c.Request().Context(), middleware.Principal(c), activity.CreatePost{
		Content:  h.plainText(req.Content),
		ParentID: req.ParentID,
		RepostID: req.RepostID,
		QuoteID:  req.QuoteID,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, res.Post)
}

// plainText strips markup from user content. The policy also escapes entities,
// which is undone so the stored text matches what the user typed.
func (h *ActivityHandler) plainText(content string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(content)))
}

func (h *ActivityHandler) GetPost(c echo.Context) error {
	post, err := h.posts.FindPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "find post")
	}
	return success(c, http.StatusOK, post)
}

// ToggleLike likes the post, or unlikes it when already liked.
func (h *ActivityHandler) ToggleLike(c echo.Context) error {
	res, err := h.writer.Apply(c.Request().Context(), middleware.Principal(c), activity.ToggleLike{PostID: c.Param("id")})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{
		"post_id": res.Post.ID,
		"liked":   res.Outcome != activity.OutcomeRemoved,
		"outcome": res.Outcome,
	})
}

// ToggleFollow follows :username, or unfollows when already following.
func (h *ActivityHandler) ToggleFollow(c echo.Context) error {
	username := strings.ToLower(c.Param("username"))
	res, err := h.writer.Apply(c.Request().Context(), middleware.Principal(c), activity.ToggleFollow{Username: username})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{
		"user_id":   res.Target.ID,
		"following": res.Outcome != activity.OutcomeRemoved,
		"outcome":   res.Outcome,
	})
}
