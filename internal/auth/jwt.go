package auth

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims are the custom claims carried by locally issued tokens.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWT issues and verifies HS256 tokens for local accounts.
type JWT struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(secret, issuer string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &JWT{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue mints a token for userID.
func (j *JWT) Issue(userID string) (string, error) {
	if len(j.secret) == 0 {
		return "", fmt.Errorf("jwt secret is required")
	}
	now := j.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func (j *JWT) Verify(_ context.Context, token string) (Authenticated, error) {
	if token == "" {
		return Authenticated{}, pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "missing token")
	}

	claims := &Claims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return Authenticated{}, pkgerrors.Wrap(pkgerrors.CodeAuthenticationFailed, err, "invalid or expired token")
	}
	if !parsed.Valid || claims.UserID == "" {
		return Authenticated{}, pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "invalid token")
	}
	if j.issuer != "" && !claims.VerifyIssuer(j.issuer, true) {
		return Authenticated{}, pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "unexpected token issuer")
	}
	return Authenticated{UserID: claims.UserID}, nil
}
