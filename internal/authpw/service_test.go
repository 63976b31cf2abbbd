package authpw

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"buildwise/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// mockPersonStore is an in-memory PersonStore keyed by lowercased email.
type mockPersonStore struct {
	persons map[string]store.Person
}

func newMockPersonStore() *mockPersonStore {
	return &mockPersonStore{persons: map[string]store.Person{}}
}

func (m *mockPersonStore) GetPerson(_ context.Context, email string) (store.Person, error) {
	p, ok := m.persons[strings.ToLower(email)]
	if !ok {
		return store.Person{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockPersonStore) SetPassword(_ context.Context, email, passwordHash, fullName, phone string) (store.Person, error) {
	p, ok := m.persons[email]
	if !ok {
		return store.Person{}, sql.ErrNoRows
	}
	p.PasswordHash = &passwordHash
	if fullName != "" {
		p.FullName = fullName
	}
	if phone != "" {
		p.Phone = phone
	}
	m.persons[email] = p
	return p, nil
}

func (m *mockPersonStore) SaveMarketingSignup(_ context.Context, in store.MarketingSignup) (store.Person, error) {
	email := strings.ToLower(in.Email)
	p := m.persons[email]
	p.Email = email
	p.FullName = in.FullName
	p.PasswordHash = &in.PasswordHash
	if !p.HasRole(store.RoleBuilder) {
		p.Roles.V = append(p.Roles.V, store.RoleBuilder)
	}
	p.EmailConfirmToken = &in.ConfirmToken
	expiry := in.ConfirmExpiry
	p.EmailConfirmExpires = &expiry
	m.persons[email] = p
	return p, nil
}

func (m *mockPersonStore) ConfirmEmail(_ context.Context, email string) error {
	p := m.persons[email]
	p.EmailConfirmed = true
	p.EmailConfirmToken = nil
	p.EmailConfirmExpires = nil
	m.persons[email] = p
	return nil
}

func newTestService(m *mockPersonStore) *Service {
	svc := NewService(m)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	m := newMockPersonStore()
	m.persons["invited@example.com"] = store.Person{Email: "invited@example.com", Roles: store.NewJSONB([]string{"monitor"})}
	svc := newTestService(m)

	t.Run("requires invitation", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "stranger@example.com", FullName: "S", Password: "secret1"})
		if !errors.Is(err, ErrInviteRequired) {
			t.Fatalf("expected ErrInviteRequired, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "invited@example.com", Password: "123"})
		if !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("completes invited person", func(t *testing.T) {
		p, err := svc.Register(ctx, RegisterRequest{Email: "Invited@Example.com", FullName: "Ivy", Password: "secret1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.HasPassword() || p.FullName != "Ivy" {
			t.Fatalf("unexpected person %+v", p)
		}
	})

	t.Run("already registered", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "invited@example.com", FullName: "Ivy", Password: "secret1"})
		if !errors.Is(err, ErrUserExists) {
			t.Fatalf("expected ErrUserExists, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	m := newMockPersonStore()
	m.persons["ivy@example.com"] = store.Person{Email: "ivy@example.com"}
	m.persons["nopass@example.com"] = store.Person{Email: "nopass@example.com"}
	svc := newTestService(m)
	if _, err := svc.Register(ctx, RegisterRequest{Email: "ivy@example.com", FullName: "Ivy", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "ivy@example.com", "secret1"); err != nil {
		t.Fatalf("expected login to succeed: %v", err)
	}
	for _, tc := range []struct{ email, password string }{
		{"ivy@example.com", "wrong"},
		{"nopass@example.com", "secret1"},
		{"ghost@example.com", "secret1"},
	} {
		if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.email, err)
		}
	}
}

func TestRegisterMarketingAndConfirm(t *testing.T) {
	ctx := context.Background()
	m := newMockPersonStore()
	svc := newTestService(m)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	p, token, err := svc.RegisterMarketing(ctx, MarketingRequest{Email: "Owner@Example.com", FullName: "Owner", Password: "secret1"})
	if err != nil {
		t.Fatalf("register marketing: %v", err)
	}
	if len(token) != 48 {
		t.Fatalf("expected 24 random bytes hex encoded, got %q", token)
	}
	if !p.HasRole(store.RoleBuilder) {
		t.Fatalf("expected builder role, got %v", p.Roles.V)
	}

	if _, _, err := svc.RegisterMarketing(ctx, MarketingRequest{Email: "owner@example.com", FullName: "Owner", Password: "secret1"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if err := svc.ConfirmEmail(ctx, "owner@example.com", "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	now = now.Add(ConfirmTokenTTL + time.Minute)
	if err := svc.ConfirmEmail(ctx, "owner@example.com", token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	now = now.Add(-2 * time.Hour)
	if err := svc.ConfirmEmail(ctx, "owner@example.com", token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !m.persons["owner@example.com"].EmailConfirmed {
		t.Fatal("expected email confirmed")
	}
	if err := svc.ConfirmEmail(ctx, "owner@example.com", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("expected token to be single use")
	}
}
