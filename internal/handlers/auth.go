package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type tokenIssuer interface {
	Issue(userID string) (string, error)
}

type firebaseIdentities interface {
	VerifyIdentity(ctx context.Context, idToken string) (auth.FirebaseIdentity, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	users    repositories.UserRepository
	tokens   tokenIssuer
	firebase firebaseIdentities
}

// NewAuthHandler creates a new AuthHandler. firebase may be nil when Firebase
// login is not configured.
func NewAuthHandler(users repositories.UserRepository, tokens tokenIssuer, firebase firebaseIdentities) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, firebase: firebase}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Username: strings.ToLower(req.Username),
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Password: string(hashed),
	}
	if err := h.users.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create user")
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SigninRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.FindUserByEmail(c.Request().Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "invalid email or password")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "find user")
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "invalid email or password")
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

// FirebaseLogin verifies a Firebase ID token, creates the local profile on
// first login and issues a local JWT.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebase == nil {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "firebase login is not enabled")
	}

	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	identity, err := h.firebase.VerifyIdentity(ctx, req.IDToken)
	if err != nil {
		return err
	}

	user, err := h.users.FindUserByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
		return h.respondWithToken(c, http.StatusOK, user)
	case !errors.Is(err, repositories.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "find user")
	}

	username := strings.ToLower(req.Username)
	if username == "" {
		username = usernameFrom(identity)
	}
	email := identity.Email
	if email == "" {
		email = identity.UID + "@firebase.local"
	}
	uid := identity.UID
	user = &models.User{
		Username:    username,
		Name:        identity.Name,
		Email:       strings.ToLower(email),
		Image:       identity.Picture,
		FirebaseUID: &uid,
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered, pick another username")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create user")
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	return success(c, status, echo.Map{"token": token, "user": user})
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

func usernameFrom(identity auth.FirebaseIdentity) string {
	base := identity.Email
	if i := strings.IndexByte(base, '@'); i > 0 {
		base = base[:i]
	}
	base = nonAlphanumeric.ReplaceAllString(strings.ToLower(base), "")
	if len(base) > 20 {
		base = base[:20]
	}
	suffix := nonAlphanumeric.ReplaceAllString(strings.ToLower(identity.UID), "")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	if base == "" {
		base = "user"
	}
	return base + suffix
}
