package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/interviewhub/server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "not-an-email", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_NormalizesEmailAndRejectsDuplicates(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "Alice", " Alice@Example.com ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	// Should collide because the stored email is trimmed and lowercased.
	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Email != "alice@example.com" || claims.Name != "Alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestGetSession(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Bearer header.
	req := httptest.NewRequest("GET", "/api/sse?roomId=r", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	sess, err := svc.GetSession(ctx, req)
	if err != nil {
		t.Fatalf("expected session from header, got %v", err)
	}
	if sess.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}

	// Session cookie fallback, used by the push stream where the client
	// cannot set request headers.
	req = httptest.NewRequest("GET", "/api/sse?roomId=r", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	sess, err = svc.GetSession(ctx, req)
	if err != nil {
		t.Fatalf("expected session from cookie, got %v", err)
	}
	if sess.User.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}

	// No credentials.
	req = httptest.NewRequest("GET", "/api/sse?roomId=r", nil)
	if _, err := svc.GetSession(ctx, req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	// Garbage token.
	req = httptest.NewRequest("GET", "/api/sse?roomId=r", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	if _, err := svc.GetSession(ctx, req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for bad token, got %v", err)
	}
}
