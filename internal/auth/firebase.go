package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"google.golang.org/api/option"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type firebaseUsers interface {
	FindUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
}

// Firebase verifies Firebase ID tokens and maps the Firebase UID onto a local user.
type Firebase struct {
	client idTokenVerifier
	users  firebaseUsers
}

func NewFirebase(client *fbauth.Client, users firebaseUsers) *Firebase {
	return &Firebase{client: client, users: users}
}

// NewFirebaseFromCredentials initializes the Firebase app from a service
// account file and returns a verifier backed by its auth client.
func NewFirebaseFromCredentials(ctx context.Context, credentialsPath string, users firebaseUsers) (*Firebase, error) {
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file %s: %w", credentialsPath, err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting firebase auth client: %w", err)
	}
	return NewFirebase(client, users), nil
}

// FirebaseIdentity is what a verified ID token says about its holder.
type FirebaseIdentity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// VerifyIdentity checks the ID token without requiring a local profile. Used
// by the login flow that creates one.
func (f *Firebase) VerifyIdentity(ctx context.Context, idToken string) (FirebaseIdentity, error) {
	if idToken == "" {
		return FirebaseIdentity{}, pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "missing token")
	}
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return FirebaseIdentity{}, pkgerrors.Wrap(pkgerrors.CodeAuthenticationFailed, err, "invalid or expired ID token")
	}
	id := FirebaseIdentity{UID: token.UID}
	id.Email, _ = token.Claims["email"].(string)
	id.Name, _ = token.Claims["name"].(string)
	id.Picture, _ = token.Claims["picture"].(string)
	return id, nil
}

func (f *Firebase) VerifyUID(ctx context.Context, idToken string) (string, error) {
	id, err := f.VerifyIdentity(ctx, idToken)
	return id.UID, err
}

func (f *Firebase) Verify(ctx context.Context, idToken string) (Authenticated, error) {
	uid, err := f.VerifyUID(ctx, idToken)
	if err != nil {
		return Authenticated{}, err
	}
	user, err := f.users.FindUserByFirebaseUID(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return Authenticated{}, pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "no profile for firebase identity")
	}
	if err != nil {
		return Authenticated{}, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "lookup firebase user")
	}
	return Authenticated{UserID: user.ID}, nil
}
