package auth

import (
	"strings"
)

// Principal is the identity attached to a request or connection: either
// Authenticated or Anonymous.
type Principal interface {
	isPrincipal()
}

type Authenticated struct {
	UserID string
}

type Anonymous struct{}

func (Authenticated) isPrincipal() {}
func (Anonymous) isPrincipal()     {}

// UserID returns the authenticated user id, if any.
func UserID(p Principal) (string, bool) {
	if a, ok := p.(Authenticated); ok && a.UserID != "" {
		return a.UserID, true
	}
	return "", false
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
