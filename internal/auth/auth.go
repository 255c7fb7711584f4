// Package auth is the identity lookup boundary: it resolves an opaque
// session token to a stable user id. Credential verification itself lives
// outside this service.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/neves-nvs/santorini-sub000/internal/storage"
)

// ErrUnauthenticated is returned when a token resolves to no identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// User is an authenticated identity.
type User struct {
	ID   uuid.UUID
	Name string
}

// Authenticator resolves tokens to users.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (User, error)
}

// Static authenticates against a fixed token map. Used for development and
// tests.
type Static struct {
	tokens map[string]User
}

// NewStatic builds a Static authenticator from token -> user.
func NewStatic(tokens map[string]User) *Static {
	cp := make(map[string]User, len(tokens))
	for t, u := range tokens {
		cp[t] = u
	}
	return &Static{tokens: cp}
}

func (a *Static) Authenticate(_ context.Context, token string) (User, error) {
	u, ok := a.tokens[token]
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}

// StoreAuthenticator resolves tokens through the users table.
type StoreAuthenticator struct {
	store *storage.Store
}

// NewStoreAuthenticator wraps a storage store.
func NewStoreAuthenticator(store *storage.Store) *StoreAuthenticator {
	return &StoreAuthenticator{store: store}
}

func (a *StoreAuthenticator) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	u, err := a.store.LookupUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	return User{ID: u.ID, Name: u.Name}, nil
}
