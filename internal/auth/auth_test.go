package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestStaticAuthenticate(t *testing.T) {
	u := User{ID: uuid.New(), Name: "alice"}
	a := NewStatic(map[string]User{"tok": u})

	got, err := a.Authenticate(context.Background(), "tok")
	if err != nil || got != u {
		t.Fatalf("lookup: %+v err=%v", got, err)
	}
	if _, err := a.Authenticate(context.Background(), "nope"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := a.Authenticate(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("empty token should be rejected, got %v", err)
	}
}

func TestStoreAuthenticatorNilStore(t *testing.T) {
	a := NewStoreAuthenticator(nil)
	if _, err := a.Authenticate(context.Background(), "tok"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
