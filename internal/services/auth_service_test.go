package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/models"
)

type stubSigner struct {
	calls int
}

func (s *stubSigner) Sign(userID uint, email, role string) (string, error) {
	s.calls++
	return fmt.Sprintf("token-%d-%s-%s", userID, email, role), nil
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	signer := &stubSigner{}
	svc := NewAuthService(db, signer)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterUserInput{Nombre: "Luis", Usuario: "luis", Email: "luis@x.com", Password: "secreta"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Rol != "tesorero" {
		t.Fatalf("expected default rol tesorero, got %q", u.Rol)
	}

	var stored models.User
	db.First(&stored, u.ID)
	if stored.Password == "secreta" || stored.Password == "" {
		t.Fatal("expected password to be stored hashed")
	}

	token, user, err := svc.Login(ctx, "luis@x.com", "secreta")
	if err != nil {
		t.Fatal(err)
	}
	if token != fmt.Sprintf("token-%d-luis@x.com-tesorero", u.ID) || user.ID != u.ID {
		t.Fatalf("unexpected login result %q %+v", token, user)
	}
}

func TestAuth_LoginFailures(t *testing.T) {
	db := newTestDB(t)
	signer := &stubSigner{}
	svc := NewAuthService(db, signer)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterUserInput{Nombre: "A", Usuario: "a", Email: "a@x.com", Password: "right", Rol: "admin"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Login(ctx, "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@x.com", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if signer.calls != 0 {
		t.Fatalf("expected no token to be issued, got %d", signer.calls)
	}
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newTestDB(t), &stubSigner{})
	ctx := context.Background()

	in := RegisterUserInput{Nombre: "A", Usuario: "a", Email: "dup@x.com", Password: "p"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}
