package auth

import (
	"context"

	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
)

// Verifier turns a bearer token into an authenticated identity. A bad token is
// reported as AUTHENTICATION_FAILED.
type Verifier interface {
	Verify(ctx context.Context, token string) (Authenticated, error)
}

// Chain accepts a token when any of its verifiers does, trying them in order.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, token string) (Authenticated, error) {
	var lastErr error = pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "no verifier configured")
	for _, v := range c {
		p, err := v.Verify(ctx, token)
		if err == nil {
			return p, nil
		}
		// A store outage is not a reason to try the next scheme.
		if pkgerrors.HasCode(err, pkgerrors.CodeStoreUnavailable) {
			return Authenticated{}, err
		}
		lastErr = err
	}
	return Authenticated{}, lastErr
}
