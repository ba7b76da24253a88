package authpw

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService("Owner@Example.com", "Owner", "", "password123")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("successful sign in", func(t *testing.T) {
		owner, err := svc.SignIn(ctx, SignInRequest{Email: "owner@example.com", Password: "password123"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if owner.Email != "owner@example.com" || owner.DisplayName != "Owner" {
			t.Errorf("unexpected owner %+v", owner)
		}
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		if _, err := svc.SignIn(ctx, SignInRequest{Email: " OWNER@example.com", Password: "password123"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{Email: "owner@example.com", Password: "wrongpassword"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{Email: "someone@example.com", Password: "password123"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		if _, err := svc.SignIn(ctx, SignInRequest{}); err == nil {
			t.Error("expected error for missing fields")
		}
	})
}

func TestNewServiceConfiguration(t *testing.T) {
	t.Run("hash wins over password", func(t *testing.T) {
		hash, err := HashPassword("hashed-secret")
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		svc, err := NewService("owner@example.com", "", hash, "ignored-password")
		if err != nil {
			t.Fatalf("NewService: %v", err)
		}
		if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "owner@example.com", Password: "hashed-secret"}); err != nil {
			t.Fatalf("expected hash credentials to work: %v", err)
		}
		if svc.Owner().DisplayName != "owner@example.com" {
			t.Errorf("expected display name to default to email, got %q", svc.Owner().DisplayName)
		}
		if svc.Owner().PasswordHash != "" {
			t.Error("Owner() must not expose the hash")
		}
	})

	t.Run("missing email", func(t *testing.T) {
		if _, err := NewService("", "", "", "password123"); err == nil {
			t.Error("expected error for missing email")
		}
	})

	t.Run("missing password", func(t *testing.T) {
		if _, err := NewService("owner@example.com", "", "", ""); err == nil {
			t.Error("expected error for missing password")
		}
	})

	t.Run("bad hash", func(t *testing.T) {
		if _, err := NewService("owner@example.com", "", "not-bcrypt", ""); err == nil {
			t.Error("expected error for malformed hash")
		}
	})

	t.Run("short password", func(t *testing.T) {
		if _, err := NewService("owner@example.com", "", "", "short"); err == nil {
			t.Error("expected error for short password")
		}
	})
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	b, _ := GenerateToken()
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}
